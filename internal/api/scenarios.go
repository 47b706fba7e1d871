package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/user/termdemo/internal/hub"
	"github.com/user/termdemo/internal/scenario"
	"github.com/user/termdemo/internal/session"
)

type scenarioSummary struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
}

type scenarioDetail struct {
	Index int `json:"index"`
	scenario.Scenario
	Script string `json:"script"`
}

type controlRequest struct {
	Type  string `json:"type"`
	Index *int   `json:"index,omitempty"`
}

func (h *handler) listScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios := h.ctrl.Scenarios()
	out := make([]scenarioSummary, len(scenarios))
	for i, sc := range scenarios {
		out[i] = scenarioSummary{Index: i, Name: sc.Name, Description: sc.Description, Steps: len(sc.Steps)}
	}
	jsonResponse(w, http.StatusOK, out)
}

func (h *handler) getScenario(w http.ResponseWriter, r *http.Request) {
	scenarios := h.ctrl.Scenarios()
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 || index >= len(scenarios) {
		jsonError(w, http.StatusNotFound, "scenario not found")
		return
	}
	sc := scenarios[index]
	jsonResponse(w, http.StatusOK, scenarioDetail{
		Index:    index,
		Scenario: sc,
		Script:   scenario.Format([]scenario.Scenario{sc}),
	})
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.ctrl.Status())
}

func (h *handler) postControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.ctrl.Control(hub.ClientMessage{Type: req.Type, Index: req.Index})
	switch {
	case err == nil:
		jsonResponse(w, http.StatusAccepted, h.ctrl.Status())
	case errors.Is(err, session.ErrUnknownControl), errors.Is(err, session.ErrScenarioIndex):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrClosed), errors.Is(err, session.ErrNotStarted):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		jsonError(w, http.StatusInternalServerError, err.Error())
	}
}
