package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------

// APIHandler serves the HTTP plane: health, status, results and metrics, plus
// the resubscribe action.
type APIHandler struct {
	Name       string
	logger     *logger.Logger
	controller interfaces.IStreamController
	gatherer   prometheus.Gatherer
	router     *mux.Router
}

// -----------------------------------------------------------------------------

// NewAPIHandler builds the router. A nil gatherer disables /metrics.
func NewAPIHandler(logger *logger.Logger, controller interfaces.IStreamController, gatherer prometheus.Gatherer) *APIHandler {
	h := &APIHandler{
		Name:       "RESTHandler",
		logger:     logger,
		controller: controller,
		gatherer:   gatherer,
		router:     mux.NewRouter(),
	}

	// full paths on one router so a method mismatch answers 405, not 404
	h.router.HandleFunc("/rest/health", h.handleHealth).Methods(http.MethodGet)
	h.router.HandleFunc("/rest/status", h.handleStatus).Methods(http.MethodGet)
	h.router.HandleFunc("/rest/results", h.handleResults).Methods(http.MethodGet)
	h.router.HandleFunc("/rest/resubscribe", h.handleResubscribe).Methods(http.MethodPost)

	if gatherer != nil {
		h.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	h.router.Use(h.loggingMiddleware)
	return h
}

// -----------------------------------------------------------------------------

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// -----------------------------------------------------------------------------

func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.controller.GetStatus()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"healthy":   true,
		"running":   status.Running,
		"state":     status.State,
		"timestamp": time.Now().Unix(),
	})
}

// -----------------------------------------------------------------------------

func (h *APIHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.GetStatus())
}

// -----------------------------------------------------------------------------

// handleResults returns the most recent results; ?limit=N, 0 or absent for all.
func (h *APIHandler) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	results := h.controller.GetProcessedResults(limit)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

// -----------------------------------------------------------------------------

func (h *APIHandler) handleResubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Resubscribe(); err != nil {
		h.logger.Warning("%s : resubscribe failed: %v", h.Name, err)
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"resubscribed": true})
}

// -----------------------------------------------------------------------------

func (h *APIHandler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		h.logger.Debug("%s : %s %s -> %d (%s)", h.Name, r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter captures the status code for logging
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// -----------------------------------------------------------------------------

func (h *APIHandler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("%s : failed to write response: %v", h.Name, err)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, code int, message string) {
	h.writeJSON(w, code, map[string]string{"error": message})
}
