package player

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/shared"
)

var (
	ErrNoPlayableTracks   = errors.New("no playable tracks")
	ErrNoSession          = errors.New("no active playback session")
	ErrUnknownEngineState = errors.New("unknown engine state")
	ErrClosed             = errors.New("player closed")
)

// Mode is the kind of playback session.
type Mode int

const (
	ModeSingle Mode = iota
	ModeQueue
)

func (m Mode) String() string {
	if m == ModeQueue {
		return "queue"
	}
	return "single"
}

// Status is the state reported by an [Engine].
type Status int

const (
	StatusUnknown Status = iota
	StatusWaiting        // buffering, not yet audible
	StatusPlaying
	StatusPaused
	StatusStopped // item finished or never started
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Engine plays one item at a time.
type Engine interface {
	Play() error
	Pause() error
	Status() Status
	// SetVolume takes a value in [0, 1].
	SetVolume(v float64) error
	// Replace swaps the current item for url and starts playing it.
	Replace(url string) error
	Close() error
}

// EngineFactory opens engines. onEnd is invoked each time an item finishes on its own, never
// while the engine holds its own lock and never for an item stopped by Pause, Replace or Close.
type EngineFactory interface {
	Open(url string, onEnd func()) (Engine, error)
}

// VolumeStore persists the volume preference. [shared.StateStore] satisfies it.
type VolumeStore interface {
	Volume() (float64, bool)
	SetVolume(v float64) error
}

// Session is a snapshot of the active playback session.
type Session struct {
	ID     string
	Mode   Mode
	Tracks []models.Track
	Index  int

	urls []string
}

// Current returns the track at Index.
func (s *Session) Current() models.Track {
	return s.Tracks[s.Index]
}

// Len returns the number of tracks in the session.
func (s *Session) Len() int {
	return len(s.Tracks)
}

// HasNext reports whether Advance would move.
func (s *Session) HasNext() bool {
	return s.Mode == ModeQueue && s.Index < len(s.Tracks)-1
}

// HasPrevious reports whether Retreat would move.
func (s *Session) HasPrevious() bool {
	return s.Mode == ModeQueue && s.Index > 0
}

func (s *Session) clone() *Session {
	c := *s
	c.Tracks = append([]models.Track(nil), s.Tracks...)
	c.urls = append([]string(nil), s.urls...)
	return &c
}

// ResolvePreviewURL validates a track's preview URL. Only absolute http(s) URLs are playable.
func ResolvePreviewURL(t models.Track) (string, error) {
	raw := strings.TrimSpace(t.PreviewURL)
	if raw == "" {
		return "", fmt.Errorf("%w: track %q has no preview", shared.ErrInvalidURL, t.Name)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an http(s) URL", shared.ErrInvalidURL, raw)
	}
	return u.String(), nil
}

// Playable filters tracks down to those with a resolvable preview URL.
func Playable(tracks []models.Track) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if _, err := ResolvePreviewURL(t); err == nil {
			out = append(out, t)
		}
	}
	return out
}
