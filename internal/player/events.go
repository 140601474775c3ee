package player

import "github.com/desertthunder/opium/internal/models"

// EventKind identifies a controller broadcast.
type EventKind int

const (
	EventMiniPlayerHidden EventKind = iota + 1
	EventTrackChanged
	EventMiniPlayerShown
	EventPlayPause
	EventVolume
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventMiniPlayerHidden:
		return "mini-player-hidden"
	case EventTrackChanged:
		return "track-changed"
	case EventMiniPlayerShown:
		return "mini-player-shown"
	case EventPlayPause:
		return "play-pause"
	case EventVolume:
		return "volume"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event describes a playback transition. Track and Index are zero for
// [EventMiniPlayerHidden] after [Controller.Close].
type Event struct {
	Kind      EventKind
	SessionID string
	Track     models.Track
	Index     int
	Total     int
	Playing   bool
	Volume    float64
}
