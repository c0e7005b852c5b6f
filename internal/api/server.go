// Package api exposes the query and live-subscription surface over HTTP.
package api

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/zonewatch/backend/internal/hub"
	"github.com/zonewatch/backend/internal/monitoring"
	"github.com/zonewatch/backend/internal/pipeline"
	"github.com/zonewatch/backend/internal/store"
	"github.com/zonewatch/backend/internal/summary"
	"github.com/zonewatch/backend/internal/timeutil"
)

// ANSI escape codes for request log lines.
const (
	colorCyan      = "\033[36m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
	colorReset     = "\033[0m"
)

// Server wires the store, hub, and pipeline into HTTP handlers.
type Server struct {
	store   *store.Store
	hub     *hub.Hub
	runner  *pipeline.Runner
	summary *summary.Service
	clock   timeutil.Clock
	started time.Time
}

// NewServer creates a Server. The clock also marks process start for the
// health endpoint's uptime.
func NewServer(st *store.Store, h *hub.Hub, runner *pipeline.Runner, svc *summary.Service, clock timeutil.Clock) *Server {
	return &Server{
		store:   st,
		hub:     h,
		runner:  runner,
		summary: svc,
		clock:   clock,
		started: clock.Now(),
	}
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/zones/latest", s.handleLatest).Methods(http.MethodGet)
	api.HandleFunc("/zones/{id}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	return r
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := lrw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
