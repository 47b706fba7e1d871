package player

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/user/termdemo/internal/scenario"
	"github.com/user/termdemo/internal/surface"
)

var ErrAlreadyPlaying = errors.New("player: already playing")

// errStopped is the cancellation cause used by Stop.
var errStopped = errors.New("player: stopped")

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

const (
	DefaultPromptText   = "~"
	DefaultPromptSymbol = "❯"
)

type Options struct {
	PromptText   string
	PromptSymbol string
	// Speed divides every scripted duration. Values <= 0 mean 1.
	Speed float64
	// Loop repeats the whole scenario list until stopped.
	Loop bool
	// ClearOnPlay clears the surface before a session starts.
	ClearOnPlay bool

	// OnComplete runs after Play finishes on its own, never after Stop.
	OnComplete func()
	// OnScenarioChange runs before each scenario starts.
	OnScenarioChange func(index int, sc scenario.Scenario)
	// OnStateChange runs after every state transition.
	OnStateChange func(State)

	Logger *slog.Logger
}

// Player runs at most one playback session at a time. Play blocks the
// calling goroutine; the other methods may be called from any goroutine.
type Player struct {
	surf surface.Surface
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelCauseFunc
	done     chan struct{}
	paused   bool
	pauseCh  chan struct{} // closed when a pause episode starts
	resumeCh chan struct{} // non-nil while paused; closed on resume or stop
}

func New(surf surface.Surface, opts Options) *Player {
	if opts.PromptText == "" {
		opts.PromptText = DefaultPromptText
	}
	if opts.PromptSymbol == "" {
		opts.PromptSymbol = DefaultPromptSymbol
	}
	if opts.Speed <= 0 || math.IsNaN(opts.Speed) || math.IsInf(opts.Speed, 0) {
		opts.Speed = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{surf: surf, opts: opts, log: logger}
}

// Play runs every scenario in order. It returns nil when playback finishes
// or is stopped, the caller's context error when ctx is cancelled, and a
// validation error, before anything is rendered, for unplayable steps.
func (p *Player) Play(ctx context.Context, scenarios []scenario.Scenario) error {
	if err := scenario.Validate(scenarios); err != nil {
		return err
	}
	r, err := p.begin(ctx)
	if err != nil {
		return err
	}
	if p.opts.ClearOnPlay {
		p.surf.Clear()
	}

	for {
		for i, sc := range scenarios {
			if !r.active() {
				break
			}
			r.playScenario(i, sc)
		}
		if r.active() {
			r.showPrompt()
			p.surf.ScrollToBottom()
		}
		if !p.opts.Loop || len(scenarios) == 0 || !r.active() {
			break
		}
		if !r.sleep(max(p.scale(loopGapMs), minLoopGap)) {
			break
		}
	}

	completed := r.active()
	err = p.end(ctx, r)
	if completed && p.opts.OnComplete != nil {
		p.opts.OnComplete()
	}
	return err
}

// PlayScenario stops any session in flight, waits for it to exit and then
// plays scenarios[index] alone. An out of range index does nothing.
func (p *Player) PlayScenario(ctx context.Context, scenarios []scenario.Scenario, index int) error {
	if index < 0 || index >= len(scenarios) {
		return nil
	}
	sc := scenarios[index]
	if err := scenario.Validate([]scenario.Scenario{sc}); err != nil {
		return err
	}
	p.stopAndWait()

	r, err := p.begin(ctx)
	if err != nil {
		return err
	}
	if p.opts.ClearOnPlay {
		p.surf.Clear()
	}
	r.playScenario(index, sc)
	if r.active() {
		r.showPrompt()
		p.surf.ScrollToBottom()
	}
	return p.end(ctx, r)
}

// Stop requests cancellation. Any pending wait, paused or not, is released.
func (p *Player) Stop() {
	p.mu.Lock()
	changed := p.stopLocked()
	p.mu.Unlock()
	if changed {
		p.notify(StateIdle)
	}
}

// Pause suspends a running session at its next wait.
func (p *Player) Pause() {
	p.mu.Lock()
	if !p.running || p.paused {
		p.mu.Unlock()
		return
	}
	p.paused = true
	p.resumeCh = make(chan struct{})
	close(p.pauseCh)
	p.mu.Unlock()
	p.notify(StatePaused)
}

func (p *Player) Resume() {
	p.mu.Lock()
	if !p.paused {
		p.mu.Unlock()
		return
	}
	p.releasePauseLocked()
	p.mu.Unlock()
	p.notify(StateRunning)
}

// Reset stops playback and leaves the surface with a single prompt line.
func (p *Player) Reset() {
	p.stopAndWait()
	p.surf.Clear()
	p.surf.AppendLine(surface.Line{Text: p.promptText(), Cursor: true})
}

// Destroy stops playback and clears the surface.
func (p *Player) Destroy() {
	p.stopAndWait()
	p.surf.Clear()
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.paused:
		return StatePaused
	case p.running:
		return StateRunning
	default:
		return StateIdle
	}
}

func (p *Player) begin(parent context.Context) (*run, error) {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return nil, ErrAlreadyPlaying
	}
	ctx, cancel := context.WithCancelCause(parent)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})
	p.paused = false
	p.pauseCh = make(chan struct{})
	p.resumeCh = nil
	p.mu.Unlock()

	p.notify(StateRunning)
	return &run{p: p, ctx: ctx}, nil
}

func (p *Player) end(parent context.Context, r *run) error {
	cause := context.Cause(r.ctx)

	p.mu.Lock()
	wasRunning := p.running
	p.cancel(nil)
	p.running = false
	p.paused = false
	p.resumeCh = nil
	close(p.done)
	p.done = nil
	p.cancel = nil
	p.mu.Unlock()

	if wasRunning {
		p.notify(StateIdle)
	}
	if errors.Is(cause, errStopped) {
		return nil
	}
	return parent.Err()
}

func (p *Player) stopLocked() bool {
	changed := p.running
	p.running = false
	if p.cancel != nil {
		p.cancel(errStopped)
	}
	if p.paused {
		p.releasePauseLocked()
	}
	return changed
}

// stopAndWait stops the session in flight and blocks until it has exited.
// It must not be called from a player callback.
func (p *Player) stopAndWait() {
	p.mu.Lock()
	done := p.done
	changed := p.stopLocked()
	p.mu.Unlock()
	if changed {
		p.notify(StateIdle)
	}
	if done != nil {
		<-done
	}
}

func (p *Player) releasePauseLocked() {
	p.paused = false
	if p.resumeCh != nil {
		close(p.resumeCh)
		p.resumeCh = nil
	}
	p.pauseCh = make(chan struct{})
}

// pauseState returns the channel closed by the next Pause and, while
// paused, the channel closed by Resume.
func (p *Player) pauseState() (pauseCh, resumeCh <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resumeCh != nil {
		return p.pauseCh, p.resumeCh
	}
	return p.pauseCh, nil
}

func (p *Player) notify(s State) {
	if p.opts.OnStateChange != nil {
		p.opts.OnStateChange(s)
	}
}

// scale converts scripted milliseconds to wall time at the player speed.
func (p *Player) scale(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	d := float64(ms) * float64(time.Millisecond) / p.opts.Speed
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
