package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"equilibria/internal/config"
	"equilibria/internal/domain"

	"github.com/rs/zerolog"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Services bundles what the HTTP handlers call into.
type Services struct {
	Store         HealthChecker
	Booking       domain.BookingService
	Directory     domain.DirectoryService
	Chat          domain.ChatResponder
	Ratings       domain.RatingService
	Notifications domain.NotificationService
	Users         domain.UserService
	Contact       domain.ContactService
	Limits        domain.RequestLimiter
}

// HTTPServer exposes the scheduling API as JSON over HTTP.
type HTTPServer struct {
	cfg       config.APIConfig
	svc       Services
	exportDir string
	server    *http.Server
	auth      *HTTPAuth
	logger    *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, exportDir string, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	httpLogger := logger.With().Str("component", "http").Logger()

	srv := &HTTPServer{
		cfg:       cfg,
		svc:       svc,
		exportDir: exportDir,
		auth:      NewHTTPAuth(cfg),
		logger:    &httpLogger,
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := requestIDMiddleware(loggingMiddleware(srv.logger, srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/v1/practitioners", s.handleListPractitioners)
	mux.HandleFunc("POST /api/v1/practitioners", s.handleCreatePractitioner)
	mux.HandleFunc("GET /api/v1/practitioners/{id}", s.handleGetPractitioner)
	mux.HandleFunc("GET /api/v1/practitioners/{id}/schedule", s.handleGetSchedule)

	mux.HandleFunc("POST /api/v1/appointments", s.handleBook)
	mux.HandleFunc("GET /api/v1/appointments", s.handleListAppointments)
	mux.HandleFunc("GET /api/v1/appointments/export", s.handleExport)
	mux.HandleFunc("GET /api/v1/appointments/{id}", s.handleGetAppointment)
	mux.HandleFunc("POST /api/v1/appointments/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/v1/appointments/{id}/complete", s.handleComplete)
	mux.HandleFunc("POST /api/v1/appointments/{id}/rating", s.handleRate)
	mux.HandleFunc("GET /api/v1/appointments/{id}/rating", s.handleGetRating)

	mux.HandleFunc("POST /api/v1/chat", s.handleChat)
	mux.HandleFunc("GET /api/v1/chat/history", s.handleChatHistory)

	mux.HandleFunc("GET /api/v1/notifications", s.handleListNotifications)
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", s.handleMarkRead)

	mux.HandleFunc("POST /api/v1/users", s.handleRegister)
	mux.HandleFunc("GET /api/v1/me", s.handleMe)

	mux.HandleFunc("POST /api/v1/contact", s.handleContact)
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

var (
	errMissingIdentity = errors.New("missing user identity")
	errInvalidIdentity = errors.New("invalid user identity")
)

// userID reads the id the identity provider put in the identity header.
func (s *HTTPServer) userID(r *http.Request) (int64, error) {
	header := s.cfg.HTTP.IdentityHeader
	if header == "" {
		header = "X-User-ID"
	}
	raw := strings.TrimSpace(r.Header.Get(header))
	if raw == "" {
		return 0, errMissingIdentity
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidIdentity
	}
	return id, nil
}

// requireUser writes a 401 and returns false when the request carries no
// usable identity.
func (s *HTTPServer) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := s.userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps the domain error taxonomy onto status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrConstraint):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		s.logger.Error().Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
