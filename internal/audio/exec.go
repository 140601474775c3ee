// Package audio plays preview clips through an external command-line player.
//
// The default player is ffplay. Because such players cannot be controlled once started, pausing
// stops the process and remembers the elapsed offset, and resuming starts a new process seeking
// to that offset.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/opium/internal/player"
	"github.com/desertthunder/opium/internal/shared"
)

const DefaultCommand = "ffplay"

// DefaultArgs is the argument template for ffplay.
var DefaultArgs = []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", "{volume}", "-ss", "{offset}", "{url}"}

var errEngineClosed = errors.New("engine closed")

// BuildArgs expands the {url}, {volume} and {offset} placeholders in a template.
//
// Volume is rendered as an integer percentage and offset in seconds.
func BuildArgs(template []string, url string, volume float64, offset time.Duration) []string {
	r := strings.NewReplacer(
		"{url}", url,
		"{volume}", strconv.Itoa(int(math.Round(volume*100))),
		"{offset}", fmt.Sprintf("%.2f", offset.Seconds()),
	)

	args := make([]string, len(template))
	for i, a := range template {
		args[i] = r.Replace(a)
	}
	return args
}

// ExecFactory opens [ExecEngine]s for a configured command.
type ExecFactory struct {
	command string
	args    []string
	logger  *log.Logger
}

// NewExecFactory creates an [ExecFactory] from the player configuration.
func NewExecFactory(cfg shared.PlayerConfig, logger *log.Logger) *ExecFactory {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if len(cfg.Args) == 0 {
		cfg.Args = DefaultArgs
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExecFactory{command: cfg.Command, args: cfg.Args, logger: shared.WithLogger(logger, "component", "audio")}
}

// Open prepares an engine for url. Nothing is started until [ExecEngine.Play].
func (f *ExecFactory) Open(url string, onEnd func()) (player.Engine, error) {
	path, err := exec.LookPath(f.command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", shared.ErrServiceUnavailable, f.command, err)
	}

	return &ExecEngine{
		path:   path,
		args:   f.args,
		url:    url,
		volume: player.DefaultVolume,
		status: player.StatusStopped,
		onEnd:  onEnd,
		logger: f.logger,
	}, nil
}

// ExecEngine plays one URL at a time through an external process.
type ExecEngine struct {
	path   string
	args   []string
	logger *log.Logger
	onEnd  func()

	mu         sync.Mutex
	url        string
	volume     float64
	offset     time.Duration
	started    time.Time
	cmd        *exec.Cmd
	generation uint64
	status     player.Status
	closed     bool
}

func (e *ExecEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errEngineClosed
	}
	if e.status == player.StatusPlaying {
		return nil
	}
	return e.startLocked()
}

func (e *ExecEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != player.StatusPlaying {
		return nil
	}
	e.offset += time.Since(e.started)
	e.stopLocked()
	e.status = player.StatusPaused
	return nil
}

func (e *ExecEngine) Status() player.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SetVolume restarts a playing process at the current offset with the new volume.
func (e *ExecEngine) SetVolume(v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = min(max(v, 0), 1)
	if e.status != player.StatusPlaying {
		return nil
	}
	e.offset += time.Since(e.started)
	e.stopLocked()
	return e.startLocked()
}

func (e *ExecEngine) Replace(url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errEngineClosed
	}
	e.stopLocked()
	e.url = url
	e.offset = 0
	return e.startLocked()
}

func (e *ExecEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.stopLocked()
	e.status = player.StatusStopped
	return nil
}

// Offset returns the playback position of the current item.
func (e *ExecEngine) Offset() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == player.StatusPlaying {
		return e.offset + time.Since(e.started)
	}
	return e.offset
}

func (e *ExecEngine) startLocked() error {
	cmd := exec.Command(e.path, BuildArgs(e.args, e.url, e.volume, e.offset)...)
	if err := cmd.Start(); err != nil {
		e.status = player.StatusStopped
		return fmt.Errorf("failed to start %s: %w", e.path, err)
	}

	e.generation++
	e.cmd = cmd
	e.started = time.Now()
	e.status = player.StatusPlaying
	e.logger.Debug("started player process", "pid", cmd.Process.Pid, "url", e.url, "offset", e.offset)

	go e.wait(cmd, e.generation)
	return nil
}

// stopLocked kills the running process. Its exit is not reported through onEnd.
func (e *ExecEngine) stopLocked() {
	e.generation++
	if e.cmd == nil {
		return
	}
	if err := e.cmd.Process.Kill(); err != nil {
		e.logger.Debug("failed to kill player process", "err", err)
	}
	e.cmd = nil
}

func (e *ExecEngine) wait(cmd *exec.Cmd, generation uint64) {
	err := cmd.Wait()

	e.mu.Lock()
	if generation != e.generation {
		e.mu.Unlock()
		return
	}
	e.cmd = nil
	e.offset = 0
	e.status = player.StatusStopped
	onEnd := e.onEnd
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("player process exited with error", "err", err)
	}
	if onEnd != nil {
		onEnd()
	}
}
