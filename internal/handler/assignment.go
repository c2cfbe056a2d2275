package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreauction/internal/assign"
	"github.com/dukerupert/choreauction/internal/metrics"
	"github.com/dukerupert/choreauction/internal/websocket"
)

type AssignmentHandler struct {
	generator *assign.Generator
	hub       *websocket.Hub
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewAssignmentHandler(g *assign.Generator, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{generator: g, hub: hub, metrics: m, logger: logger}
}

type generateRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	ChoreID   *int64 `json:"chore_id"`
}

// Generate expands recurrence rules into assignment rows over a date window.
func (h *AssignmentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	if endDate.Before(startDate) {
		writeError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}

	result, err := h.generator.Generate(startDate, endDate, req.ChoreID)
	if err != nil {
		h.logger.Error("generate assignments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate assignments")
		return
	}

	h.metrics.AssignmentsGenerated.Add(float64(result.TotalGenerated))
	if h.hub != nil && result.TotalGenerated > 0 {
		h.hub.Broadcast(websocket.Event{
			Type:  websocket.EventAssignmentsGenerated,
			Extra: map[string]any{"count": result.TotalGenerated},
		})
	}

	writeJSON(w, http.StatusOK, result)
}
