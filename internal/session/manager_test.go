package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/termdemo/internal/hub"
	"github.com/user/termdemo/internal/scenario"
)

func testScenarios() []scenario.Scenario {
	return []scenario.Scenario{
		{Name: "install", Steps: []scenario.Step{scenario.Prompt(), scenario.Command("npm install"), scenario.Output("done")}},
		{Name: "deploy", Steps: []scenario.Step{scenario.Output("deploying"), scenario.Wait(60_000_000)}},
	}
}

func intPtr(v int) *int { return &v }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startManager(t *testing.T, h *hub.Hub, opts Options) *Manager {
	t.Helper()
	if opts.Speed == 0 {
		opts.Speed = 1000
	}
	m := NewManager(h, testScenarios(), opts)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestStartShowsPrompt(t *testing.T) {
	m := startManager(t, nil, Options{PromptText: "demo"})
	if got := strings.Join(m.Lines(), "\n"); got != "demo ❯ " {
		t.Fatalf("Lines() = %q", got)
	}
	if st := m.Status(); st.State != "idle" || st.Scenario != -1 {
		t.Fatalf("Status() = %+v", st)
	}
}

func TestControlPlayIndex(t *testing.T) {
	m := startManager(t, nil, Options{})

	if err := m.Control(hub.ClientMessage{Type: hub.ControlPlay, Index: intPtr(0)}); err != nil {
		t.Fatalf("Control(play 0) error = %v", err)
	}
	waitFor(t, "scenario to finish", func() bool {
		lines := m.Lines()
		return len(lines) == 3 && lines[2] == "~ ❯ "
	})
	if lines := m.Lines(); lines[0] != "~ ❯ npm install" || lines[1] != "done" {
		t.Fatalf("Lines() = %q", lines)
	}
	waitFor(t, "idle state", func() bool { return m.Status().State == "idle" })
	if st := m.Status(); st.Scenario != 0 || st.Name != "install" {
		t.Fatalf("Status() = %+v", st)
	}
}

func TestControlPauseResumeStop(t *testing.T) {
	m := startManager(t, nil, Options{})

	if err := m.Control(hub.ClientMessage{Type: hub.ControlPlay}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "second scenario", func() bool { return m.Status().Name == "deploy" })

	if err := m.Control(hub.ClientMessage{Type: hub.ControlPause}); err != nil {
		t.Fatal(err)
	}
	if m.Status().State != "paused" {
		t.Fatalf("state after pause = %s", m.Status().State)
	}

	// play without an index resumes a paused demo
	if err := m.Control(hub.ClientMessage{Type: hub.ControlPlay}); err != nil {
		t.Fatal(err)
	}
	if m.Status().State != "running" {
		t.Fatalf("state after play = %s", m.Status().State)
	}

	if err := m.Control(hub.ClientMessage{Type: hub.ControlStop}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "idle state", func() bool { return m.Status().State == "idle" })
}

func TestControlReset(t *testing.T) {
	m := startManager(t, nil, Options{})
	if err := m.Control(hub.ClientMessage{Type: hub.ControlPlay, Index: intPtr(1)}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "deploy output", func() bool {
		lines := m.Lines()
		return len(lines) > 0 && lines[0] == "deploying"
	})
	if err := m.Control(hub.ClientMessage{Type: hub.ControlReset}); err != nil {
		t.Fatal(err)
	}
	if got := m.Lines(); len(got) != 1 || got[0] != "~ ❯ " {
		t.Fatalf("Lines() after reset = %q", got)
	}
}

func TestControlErrors(t *testing.T) {
	tests := []struct {
		name string
		msg  hub.ClientMessage
		want error
	}{
		{"index too large", hub.ClientMessage{Type: hub.ControlPlay, Index: intPtr(2)}, ErrScenarioIndex},
		{"negative index", hub.ClientMessage{Type: hub.ControlPlay, Index: intPtr(-1)}, ErrScenarioIndex},
		{"unknown type", hub.ClientMessage{Type: "rewind"}, ErrUnknownControl},
	}
	m := startManager(t, nil, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.Control(tt.msg); !errors.Is(err, tt.want) {
				t.Fatalf("Control() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPlayBeforeStartAndAfterClose(t *testing.T) {
	m := NewManager(nil, testScenarios(), Options{})
	if err := m.Control(hub.ClientMessage{Type: hub.ControlPlay}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("play before Start = %v, want ErrNotStarted", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.Close()
	if err := m.Control(hub.ClientMessage{Type: hub.ControlPlay}); !errors.Is(err, ErrClosed) {
		t.Fatalf("play after Close = %v, want ErrClosed", err)
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after Close = %v, want ErrClosed", err)
	}
}

func TestAutoPlayWithHub(t *testing.T) {
	h := hub.New("", nil)
	m := startManager(t, h, Options{AutoPlay: true})
	waitFor(t, "autoplay to reach deploy", func() bool { return m.Status().Name == "deploy" })
	if m.Status().State != "running" {
		t.Fatalf("Status() = %+v", m.Status())
	}
	m.Close()
	if m.Status().State != "idle" {
		t.Fatalf("state after Close = %s", m.Status().State)
	}
}
