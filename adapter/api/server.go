// Package api provides the HTTP JSON API for subscriptions and plan changes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/google/uuid"
)

// Server is the HTTP API server.
type Server struct {
	mux     *http.ServeMux
	server  *http.Server
	logger  *slog.Logger
	handler *SubscriptionHandler
	health  *observability.Health
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new API server. health may be nil.
func NewServer(cfg ServerConfig, handler *SubscriptionHandler, health *observability.Health, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		logger:  logger,
		handler: handler,
		health:  health,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           withCorrelationID(s.mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/v1/catalog", s.handler.GetCatalog)

	s.mux.HandleFunc("POST /api/v1/accounts/{accountID}/subscription", s.handler.CreateSubscription)
	s.mux.HandleFunc("GET /api/v1/accounts/{accountID}/subscription", s.handler.GetSummary)
	s.mux.HandleFunc("GET /api/v1/accounts/{accountID}/timeline", s.handler.GetTimeline)
	s.mux.HandleFunc("GET /api/v1/accounts/{accountID}/months/{month}", s.handler.GetMonth)
	s.mux.HandleFunc("PUT /api/v1/accounts/{accountID}/months/{month}/devices/{deviceID}/oil", s.handler.SetDeviceOil)

	s.mux.HandleFunc("POST /api/v1/accounts/{accountID}/plan-changes", s.handler.ProposePlan)
	s.mux.HandleFunc("GET /api/v1/plan-changes/{workflowID}", s.handler.GetPlanChange)
	s.mux.HandleFunc("POST /api/v1/plan-changes/{workflowID}/confirm", s.handler.ConfirmPlan)
	s.mux.HandleFunc("POST /api/v1/plan-changes/{workflowID}/payment", s.handler.SubmitPayment)
	s.mux.HandleFunc("POST /api/v1/plan-changes/{workflowID}/cancel", s.handler.CancelPlanChange)
}

// Handler exposes the routes, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	s.health.Handler().ServeHTTP(w, r)
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// withCorrelationID tags every request context so log lines can be joined.
func withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(observability.WithCorrelationID(r.Context(), id)))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// APIError is the error body of every failed request.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrBadRequest = &APIError{
		Status:  http.StatusBadRequest,
		Code:    "bad_request",
		Message: "Invalid request",
	}
	ErrInternalServer = &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "Internal server error",
	}
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindInvalidState:
		return http.StatusUnprocessableEntity
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Typed application errors keep their code; anything
// else is logged and reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.Status, apiErr)
		return
	}
	if appErr, ok := apperrors.As(err); ok {
		writeJSON(w, statusFor(appErr.Kind), &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}
	if apperrors.KindOf(err) == apperrors.KindTransient {
		writeJSON(w, http.StatusServiceUnavailable, &APIError{Code: "unavailable", Message: err.Error()})
		return
	}
	logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, ErrInternalServer.Status, ErrInternalServer)
}

func badRequest(details string) *APIError {
	return &APIError{Status: ErrBadRequest.Status, Code: ErrBadRequest.Code, Message: ErrBadRequest.Message, Details: details}
}
