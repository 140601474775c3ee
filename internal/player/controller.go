package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/shared"
)

const DefaultVolume = 0.5

// ControllerOpts contains configuration options for creating a [Controller].
type ControllerOpts struct {
	Factory EngineFactory
	Volumes VolumeStore // optional
	Volume  float64     // used when Volumes has no saved preference
	Logger  *log.Logger
}

// Controller is the single authority over playback.
type Controller struct {
	factory EngineFactory
	volumes VolumeStore
	logger  *log.Logger

	mu      sync.Mutex
	session *Session
	engine  Engine
	volume  float64
	closed  bool

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewController creates a [Controller] with no active session.
func NewController(opts ControllerOpts) (*Controller, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("%w: engine factory is required", shared.ErrInvalidArgument)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	volume := opts.Volume
	if volume <= 0 {
		volume = DefaultVolume
	}
	if opts.Volumes != nil {
		if v, ok := opts.Volumes.Volume(); ok {
			volume = v
		}
	}

	return &Controller{
		factory: opts.Factory,
		volumes: opts.Volumes,
		logger:  shared.WithLogger(opts.Logger, "component", "player"),
		volume:  clamp(volume),
		subs:    make(map[int]chan Event),
	}, nil
}

// Subscribe registers an observer. The returned function unsubscribes and closes the channel.
func (c *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	c.subMu.Lock()
	if c.subs == nil {
		c.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

func (c *Controller) broadcast(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for id, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.logger.Warn("dropped player event", "event", ev.Kind, "subscriber", id)
		}
	}
}

func (c *Controller) eventLocked(kind EventKind) Event {
	ev := Event{Kind: kind, Volume: c.volume}
	if c.session != nil {
		ev.SessionID = c.session.ID
		ev.Track = c.session.Current()
		ev.Index = c.session.Index
		ev.Total = c.session.Len()
	}
	if c.engine != nil {
		ev.Playing = c.engine.Status() == StatusPlaying
	}
	return ev
}

// Play starts a Single-mode session for track, replacing any existing session.
func (c *Controller) Play(ctx context.Context, track models.Track) (*Session, error) {
	u, err := ResolvePreviewURL(track)
	if err != nil {
		return nil, err
	}

	return c.start(ctx, &Session{
		ID:     shared.GenerateID(),
		Mode:   ModeSingle,
		Tracks: []models.Track{track},
		urls:   []string{u},
	})
}

// PlayQueue starts a Queue-mode session over the playable subset of tracks, positioned at start.
//
// Tracks without a resolvable preview URL are skipped. When start is not in the playable subset
// the queue begins at its first track. A single playable track yields a queue of one.
func (c *Controller) PlayQueue(ctx context.Context, tracks []models.Track, start models.Track) (*Session, error) {
	s := &Session{ID: shared.GenerateID(), Mode: ModeQueue}
	found := false
	for _, t := range tracks {
		u, err := ResolvePreviewURL(t)
		if err != nil {
			c.logger.Debug("skipping unplayable track", "track", t.Name, "err", err)
			continue
		}
		if !found && t.Equal(start) {
			s.Index, found = len(s.Tracks), true
		}
		s.Tracks = append(s.Tracks, t)
		s.urls = append(s.urls, u)
	}

	if len(s.Tracks) == 0 {
		return nil, ErrNoPlayableTracks
	}
	return c.start(ctx, s)
}

// PlayAll queues tracks from the first one.
func (c *Controller) PlayAll(ctx context.Context, tracks []models.Track) (*Session, error) {
	if len(tracks) == 0 {
		return nil, ErrNoPlayableTracks
	}
	return c.PlayQueue(ctx, tracks, tracks[0])
}

// start opens an engine for the new session and only then tears down the old one.
func (c *Controller) start(ctx context.Context, s *Session) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	engine, err := c.factory.Open(s.urls[s.Index], c.onEnd(s.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}

	if c.engine != nil {
		c.teardownLocked()
		c.broadcast(c.eventLocked(EventMiniPlayerHidden))
	}

	if err := engine.SetVolume(c.volume); err != nil {
		c.logger.Warn("failed to set volume", "err", err)
	}
	if err := engine.Play(); err != nil {
		if cerr := engine.Close(); cerr != nil {
			c.logger.Warn("failed to close engine", "err", cerr)
		}
		c.session, c.engine = nil, nil
		return nil, fmt.Errorf("failed to start playback: %w", err)
	}

	c.session, c.engine = s, engine
	c.logger.Info("playing", "mode", s.Mode, "track", s.Current().Name, "index", s.Index, "total", s.Len())

	c.broadcast(c.eventLocked(EventTrackChanged))
	c.broadcast(c.eventLocked(EventMiniPlayerShown))
	return s.clone(), nil
}

// teardownLocked pauses and closes the active engine, leaving the session in place.
func (c *Controller) teardownLocked() {
	if err := c.engine.Pause(); err != nil {
		c.logger.Debug("failed to pause engine", "err", err)
	}
	if err := c.engine.Close(); err != nil {
		c.logger.Warn("failed to close engine", "err", err)
	}
	c.engine = nil
}

// TogglePlayPause flips the active engine between playing and paused.
//
// While the engine is still buffering this is a no-op.
func (c *Controller) TogglePlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return ErrNoSession
	}

	var err error
	switch status := c.engine.Status(); status {
	case StatusPlaying:
		err = c.engine.Pause()
	case StatusPaused, StatusStopped:
		err = c.engine.Play()
	case StatusWaiting:
		return nil
	default:
		c.logger.Error("unrecognized engine status", "status", status)
		return fmt.Errorf("%w: %v", ErrUnknownEngineState, status)
	}
	if err != nil {
		return err
	}

	c.broadcast(c.eventLocked(EventPlayPause))
	return nil
}

// Advance moves forward by steps, stopping at the last track.
//
// At the boundary, and in Single mode, the session is returned unchanged.
func (c *Controller) Advance(by int) (*Session, error) {
	if by < 1 {
		return nil, fmt.Errorf("%w: step must be positive, got %d", shared.ErrInvalidArgument, by)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.moveLocked(min(c.session.Index+by, c.session.Len()-1))
}

// Retreat moves back by steps, stopping at the first track.
func (c *Controller) Retreat(by int) (*Session, error) {
	if by < 1 {
		return nil, fmt.Errorf("%w: step must be positive, got %d", shared.ErrInvalidArgument, by)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.moveLocked(max(c.session.Index-by, 0))
}

// Next is Advance(1).
func (c *Controller) Next() (*Session, error) {
	return c.Advance(1)
}

// Previous is Retreat(1).
func (c *Controller) Previous() (*Session, error) {
	return c.Retreat(1)
}

func (c *Controller) moveLocked(target int) (*Session, error) {
	s := c.session
	if s.Mode == ModeSingle || target == s.Index {
		return s.clone(), nil
	}

	if c.engine == nil {
		return nil, ErrNoSession
	}
	if err := c.engine.Replace(s.urls[target]); err != nil {
		return nil, fmt.Errorf("failed to replace item: %w", err)
	}

	s.Index = target
	c.logger.Debug("moved", "track", s.Current().Name, "index", s.Index, "total", s.Len())

	c.broadcast(c.eventLocked(EventTrackChanged))
	c.broadcast(c.eventLocked(EventMiniPlayerShown))
	return s.clone(), nil
}

// onEnd returns the engine callback for a session. Callbacks from superseded sessions are ignored.
func (c *Controller) onEnd(sessionID string) func() {
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.session == nil || c.session.ID != sessionID {
			return
		}

		if c.session.HasNext() {
			_, err := c.moveLocked(c.session.Index + 1)
			if err == nil {
				return
			}
			c.logger.Error("auto-advance failed", "err", err)
		}
		c.broadcast(c.eventLocked(EventEnded))
	}
}

// SetVolume clamps v to [0, 1], applies it to the active engine and persists it.
func (c *Controller) SetVolume(v float64) error {
	v = clamp(v)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = v
	if c.engine != nil {
		if err := c.engine.SetVolume(v); err != nil {
			return fmt.Errorf("failed to set volume: %w", err)
		}
	}

	c.broadcast(c.eventLocked(EventVolume))

	if c.volumes != nil {
		if err := c.volumes.SetVolume(v); err != nil {
			return fmt.Errorf("failed to save volume: %w", err)
		}
	}
	return nil
}

// Volume returns the current volume in [0, 1].
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Session returns a snapshot of the active session, or nil.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	return c.session.clone()
}

// Current returns the track being played.
func (c *Controller) Current() (models.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return models.Track{}, false
	}
	return c.session.Current(), true
}

// Playing reports whether the active engine is audible.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine != nil && c.engine.Status() == StatusPlaying
}

// Close stops playback and closes every subscriber channel.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	if c.engine != nil {
		c.teardownLocked()
		c.broadcast(c.eventLocked(EventMiniPlayerHidden))
	}
	c.session = nil
	c.mu.Unlock()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subs = nil
	return nil
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
