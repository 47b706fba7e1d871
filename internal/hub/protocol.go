package hub

import (
	"github.com/user/termdemo/internal/markup"
	"github.com/user/termdemo/internal/surface/widget"
)

// InitMessage is the first message a client receives: everything needed to
// paint the terminal as it currently is.
type InitMessage struct {
	Type      string         `json:"type"`
	Title     string         `json:"title,omitempty"`
	Theme     markup.Theme   `json:"theme"`
	State     string         `json:"state"`
	Scenarios []ScenarioInfo `json:"scenarios"`
	Lines     []widget.Row   `json:"lines"`
}

type ScenarioInfo struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// OpsMessage carries surface operations in the order they were applied.
type OpsMessage struct {
	Type string      `json:"type"`
	Ops  []widget.Op `json:"ops"`
}

type StatusMessage struct {
	Type     string `json:"type"`
	State    string `json:"state"`
	Scenario int    `json:"scenario"`
	Name     string `json:"name,omitempty"`
}

// ClientMessage is a playback control request. Index selects a single
// scenario for "play"; without it every scenario plays.
type ClientMessage struct {
	Type  string `json:"type"`
	Index *int   `json:"index,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Control types accepted from clients.
const (
	ControlPlay   = "play"
	ControlPause  = "pause"
	ControlResume = "resume"
	ControlStop   = "stop"
	ControlReset  = "reset"
)
