// Package http serves health, readiness, metrics and the on-demand estimate
// API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/engine"
	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
)

const maxReportBytes = 1 << 20

// ModelLister lists the catalogued models.
type ModelLister interface {
	Models() []gmpe.Model
}

// Estimator turns a raw report into an estimate summary.
type Estimator interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.EstimateSummary, error)
}

// API holds the optional estimate routes. Nil fields leave their route
// unregistered.
type API struct {
	Models    ModelLister
	Estimator Estimator
	// EstimateTimeout bounds one POST /estimate; zero means 2 minutes.
	EstimateTimeout time.Duration
}

// Server exposes health, readiness, metrics and estimate HTTP endpoints.
type Server struct {
	httpServer *http.Server
	api        API
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and,
// when configured, GET /models and POST /estimate.
func NewServer(addr string, ready sharedobs.ReadinessChecker, api API, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	if api.EstimateTimeout <= 0 {
		api.EstimateTimeout = 2 * time.Minute
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: api.EstimateTimeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if api.Models != nil {
		mux.HandleFunc("GET /models", s.handleModels)
	}
	if api.Estimator != nil {
		mux.HandleFunc("POST /estimate", s.handleEstimate)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type modelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	models := s.api.Models.Models()
	out := make([]modelInfo, len(models))
	for i, m := range models {
		out[i] = modelInfo{Name: m.Name, Description: m.Description}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.api.EstimateTimeout)
	defer cancel()

	summary, err := s.api.Estimator.Transform(ctx, domain.RawEvent{Value: body, Timestamp: domain.Now()})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("estimate request failed", "error", err, "stage", engine.FailedStage(err))
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidReport):
		return http.StatusBadRequest
	case errors.Is(err, gmpe.ErrNoActiveModels), engine.FailedStage(err) == engine.StageInput:
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]string{"error": err.Error()}
	if stage := engine.FailedStage(err); stage != "" {
		body["stage"] = stage
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
