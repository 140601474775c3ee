package testing

import (
	"errors"
	"sync"

	"github.com/desertthunder/opium/internal/player"
)

// FakeEngine is an in-memory [player.Engine] that records every call.
type FakeEngine struct {
	mu      sync.Mutex
	url     string
	urls    []string
	status  player.Status
	volume  float64
	closed  bool
	onEnd   func()
	calls   []string
	PlayErr error
}

func (e *FakeEngine) record(call string) {
	e.calls = append(e.calls, call)
}

func (e *FakeEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("play")
	if e.PlayErr != nil {
		return e.PlayErr
	}
	e.status = player.StatusPlaying
	return nil
}

func (e *FakeEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("pause")
	e.status = player.StatusPaused
	return nil
}

func (e *FakeEngine) Status() player.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *FakeEngine) SetVolume(v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("volume")
	e.volume = v
	return nil
}

func (e *FakeEngine) Replace(url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("engine closed")
	}
	e.record("replace")
	e.url = url
	e.urls = append(e.urls, url)
	e.status = player.StatusPlaying
	return nil
}

func (e *FakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("close")
	e.closed = true
	e.status = player.StatusStopped
	return nil
}

// SetStatus forces the reported status.
func (e *FakeEngine) SetStatus(s player.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = s
}

// End simulates the current item finishing on its own.
func (e *FakeEngine) End() {
	e.mu.Lock()
	e.status = player.StatusStopped
	onEnd := e.onEnd
	e.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
}

// URL returns the item currently loaded.
func (e *FakeEngine) URL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

// Volume returns the last volume set.
func (e *FakeEngine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Closed reports whether Close was called.
func (e *FakeEngine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Calls returns the recorded method names in order.
func (e *FakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// FakeFactory opens [FakeEngine]s and keeps every engine it created.
type FakeFactory struct {
	mu      sync.Mutex
	engines []*FakeEngine
	OpenErr error
	PlayErr error
}

func (f *FakeFactory) Open(url string, onEnd func()) (player.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	e := &FakeEngine{url: url, urls: []string{url}, onEnd: onEnd, status: player.StatusStopped, PlayErr: f.PlayErr}
	f.engines = append(f.engines, e)
	return e, nil
}

// Engines returns every engine opened so far.
func (f *FakeFactory) Engines() []*FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeEngine(nil), f.engines...)
}

// Last returns the most recently opened engine, or nil.
func (f *FakeFactory) Last() *FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

// MemoryVolumes is an in-memory [player.VolumeStore].
type MemoryVolumes struct {
	mu    sync.Mutex
	value *float64
	Err   error
}

func (m *MemoryVolumes) Volume() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value == nil {
		return 0, false
	}
	return *m.value, true
}

func (m *MemoryVolumes) SetVolume(v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.value = &v
	return nil
}
