package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

// handleHealth is the liveness probe. It answers 200 whenever the process
// is up; dependency health lives under /status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports version, uptime, last poll and dependency health.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, polledAt, polled := s.status.LastStatus()

	checks := make(map[string]string, len(s.checks))
	healthy := true
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	payload := map[string]any{
		"status":         overall,
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"home_id":        s.status.HomeID(),
		"checks":         checks,
	}
	if polled {
		payload["last_poll"] = polledAt.UTC().Format(time.RFC3339)
	}
	if s.watchdog != nil {
		payload["heating_cycles"] = s.watchdog.State()
	}

	writeJSON(w, status, payload)
}

// handleSetThermMode forwards PUT /setthermode?mode={schedule|away|hg}.
// The mode is validated before anything leaves the process.
func (s *Server) handleSetThermMode(w http.ResponseWriter, r *http.Request) {
	mode := netatmo.ThermMode(r.URL.Query().Get("mode"))
	if !netatmo.ValidMode(mode) {
		writeError(w, r, http.StatusBadRequest,
			"mode must be one of schedule, away, hg")
		return
	}

	if err := s.commander.setThermMode(r.Context(), mode); err != nil {
		writeVendorError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   string(mode),
	})
}

// handleTrueTemperature forwards
// PUT /truetemperature/{room_id}?corrected_temperature={float}.
// The value is forwarded exactly as parsed, no rounding.
func (s *Server) handleTrueTemperature(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room_id")

	raw := r.URL.Query().Get("corrected_temperature")
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "corrected_temperature is required")
		return
	}
	corrected, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest,
			"corrected_temperature must be a number")
		return
	}

	if err := s.commander.setTrueTemperature(r.Context(), roomID, corrected); err != nil {
		writeVendorError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                "ok",
		"room_id":               roomID,
		"corrected_temperature": corrected,
	})
}

// handleHomeStatus serves the last polled snapshot.
func (s *Server) handleHomeStatus(w http.ResponseWriter, r *http.Request) {
	status, polledAt, ok := s.status.LastStatus()
	if !ok {
		writeError(w, r, http.StatusServiceUnavailable, "no poll has completed yet")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"polled_at": polledAt.UTC().Format(time.RFC3339),
		"home":      status.Home,
	})
}

// handleHomesData serves the cached home topology.
func (s *Server) handleHomesData(w http.ResponseWriter, r *http.Request) {
	topology := s.status.Topology()
	if topology == nil {
		writeError(w, r, http.StatusServiceUnavailable, "topology not resolved yet")
		return
	}

	writeJSON(w, http.StatusOK, topology)
}

// handleEvents serves the monitor event log, newest first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, r, http.StatusNotFound, "event log not enabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	events, err := s.events.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "event log unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
