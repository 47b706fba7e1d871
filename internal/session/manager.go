package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/user/termdemo/internal/hub"
	"github.com/user/termdemo/internal/player"
	"github.com/user/termdemo/internal/scenario"
	"github.com/user/termdemo/internal/surface/widget"
)

var (
	ErrUnknownControl = errors.New("unknown control")
	ErrScenarioIndex  = errors.New("scenario index out of range")
	ErrClosed         = errors.New("session closed")
	ErrNotStarted     = errors.New("session not started")
)

type Options struct {
	PromptText   string
	PromptSymbol string
	Speed        float64
	Loop         bool
	// AutoPlay starts every scenario as soon as the manager starts.
	AutoPlay bool
	Logger   *slog.Logger
}

type Status struct {
	State    string `json:"state"`
	Scenario int    `json:"scenario"`
	Name     string `json:"name,omitempty"`
}

type Manager struct {
	hub       *hub.Hub
	widget    *widget.Widget
	player    *player.Player
	scenarios []scenario.Scenario
	autoPlay  bool
	log       *slog.Logger

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	status Status
	wg     sync.WaitGroup
}

// NewManager wires a widget and player to h. h may be nil, in which case
// the demo runs headless.
func NewManager(h *hub.Hub, scenarios []scenario.Scenario, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		hub:       h,
		scenarios: scenarios,
		autoPlay:  opts.AutoPlay,
		log:       logger,
		status:    Status{State: string(player.StateIdle), Scenario: -1},
	}

	var pub widget.Publisher
	if h != nil {
		pub = h
	}
	m.widget = widget.New(pub)
	m.player = player.New(m.widget, player.Options{
		PromptText:       opts.PromptText,
		PromptSymbol:     opts.PromptSymbol,
		Speed:            opts.Speed,
		Loop:             opts.Loop,
		ClearOnPlay:      true,
		OnScenarioChange: m.scenarioChanged,
		OnStateChange:    m.stateChanged,
		Logger:           logger,
	})

	if h != nil {
		h.SetSnapshot(m.widget.Snapshot)
		h.SetScenarios(scenarios)
		h.SetOnControl(func(msg hub.ClientMessage) {
			if err := m.Control(msg); err != nil {
				logger.Warn("control rejected", "type", msg.Type, "error", err)
			}
		})
	}
	return m
}

// Start shows the initial prompt and, with AutoPlay, starts playback.
// Playback stops when ctx is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.cancel != nil {
		m.mu.Unlock()
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.player.Reset()
	if m.autoPlay {
		return m.startPlay(nil)
	}
	return nil
}

// Close stops playback and waits for it to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	m.player.Destroy()
	m.wg.Wait()
}

// Control applies a client request. Play with an index plays that scenario
// alone; play without one resumes a paused demo or starts every scenario.
func (m *Manager) Control(msg hub.ClientMessage) error {
	switch msg.Type {
	case hub.ControlPlay:
		if msg.Index != nil {
			if *msg.Index < 0 || *msg.Index >= len(m.scenarios) {
				return fmt.Errorf("%w: %d", ErrScenarioIndex, *msg.Index)
			}
			return m.startPlay(msg.Index)
		}
		if m.player.IsPaused() {
			m.player.Resume()
			return nil
		}
		if m.player.IsPlaying() {
			return nil
		}
		return m.startPlay(nil)
	case hub.ControlPause:
		m.player.Pause()
	case hub.ControlResume:
		m.player.Resume()
	case hub.ControlStop:
		m.player.Stop()
	case hub.ControlReset:
		m.player.Reset()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownControl, msg.Type)
	}
	return nil
}

func (m *Manager) startPlay(index *int) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	ctx := m.ctx
	if ctx == nil {
		m.mu.Unlock()
		return ErrNotStarted
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		var err error
		if index == nil {
			err = m.player.Play(ctx, m.scenarios)
		} else {
			err = m.player.PlayScenario(ctx, m.scenarios, *index)
		}
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, player.ErrAlreadyPlaying):
			m.log.Debug("play ignored", "reason", err)
		default:
			m.log.Error("playback failed", "error", err)
		}
	}()
	return nil
}

func (m *Manager) scenarioChanged(index int, sc scenario.Scenario) {
	m.mu.Lock()
	m.status.Scenario = index
	m.status.Name = sc.Name
	st := m.status
	m.mu.Unlock()
	m.broadcast(st)
}

func (m *Manager) stateChanged(s player.State) {
	m.mu.Lock()
	m.status.State = string(s)
	st := m.status
	m.mu.Unlock()
	m.broadcast(st)
}

func (m *Manager) broadcast(st Status) {
	if m.hub != nil {
		m.hub.BroadcastStatus(st.State, st.Scenario, st.Name)
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) Scenarios() []scenario.Scenario {
	return m.scenarios
}

// Lines returns the visible text of the shared terminal.
func (m *Manager) Lines() []string {
	return m.widget.Lines()
}
