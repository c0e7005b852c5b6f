package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/zonewatch/backend/internal/classify"
	"github.com/zonewatch/backend/internal/httputil"
	"github.com/zonewatch/backend/internal/summary"
)

// defaultHistoryMinutes is the history window used when the query omits
// the minutes parameter.
const defaultHistoryMinutes = 15

type snapshotResponse struct {
	Success   bool               `json:"success"`
	Data      []classify.Reading `json:"data"`
	Timestamp time.Time          `json:"timestamp"`
}

type historyResponse struct {
	Success bool               `json:"success"`
	ZoneID  string             `json:"zoneId"`
	Data    []classify.Reading `json:"data"`
	Count   int                `json:"count"`
}

type summaryResponse struct {
	Success bool            `json:"success"`
	Summary summary.Summary `json:"summary"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.LatestPerZone(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "failed to load latest readings")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, snapshotResponse{
		Success:   true,
		Data:      latest,
		Timestamp: s.clock.Now(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	zoneID := mux.Vars(r)["id"]

	minutes := defaultHistoryMinutes
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "minutes must be a positive integer")
			return
		}
		minutes = n
	}

	since := s.clock.Now().Add(-time.Duration(minutes) * time.Minute)
	readings, err := s.store.History(r.Context(), zoneID, since)
	if err != nil {
		httputil.InternalServerError(w, "failed to load history")
		return
	}

	// An unknown zone id is a valid query with an empty result.
	httputil.WriteJSON(w, http.StatusOK, historyResponse{
		Success: true,
		ZoneID:  zoneID,
		Data:    readings,
		Count:   len(readings),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.summary.Summarize(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "failed to compute summary")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summaryResponse{
		Success: true,
		Summary: sum,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: s.clock.Now(),
		Uptime:    s.clock.Since(s.started).String(),
	})
}

// handleRefresh runs one non-persisted pipeline pass for this requester
// only. The broadcast subscribers never see the result.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snapshot := s.runner.Refresh(r.Context())

	httputil.WriteJSON(w, http.StatusOK, snapshotResponse{
		Success:   true,
		Data:      snapshot,
		Timestamp: s.clock.Now(),
	})
}
