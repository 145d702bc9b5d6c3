// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	service "github.com/okian/peereval/internal/app"
	"github.com/okian/peereval/internal/domain/model"
	"github.com/okian/peereval/internal/domain/rubric"
	"github.com/okian/peereval/internal/domain/session"
	"github.com/okian/peereval/pkg/logger"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// SessionDependencies drive the login flow.
type SessionDependencies interface {
	Participants(ctx context.Context) []string
	Session(ctx context.Context, sid string) (session.Session, error)
	RequestCode(ctx context.Context, sid, name string) (model.Participant, error)
	Verify(ctx context.Context, sid, participantID, name, code string) (model.Participant, error)
	Logout(ctx context.Context, sid string) error
}

// EvaluationDependencies drive the form and its submission.
type EvaluationDependencies interface {
	Form(ctx context.Context, sid string) (service.Form, error)
	Preview(ctx context.Context, sid string, inputs map[string]rubric.Input) (service.Preview, error)
	Submit(ctx context.Context, sid string, inputs map[string]rubric.Input) (service.Receipt, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	EvaluationDependencies
	Started() bool
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCookieTTL sets the session cookie Max-Age. Zero makes it a browser-session cookie.
func WithCookieTTL(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.cookieTTL = d
		}
	}
}

// WithSecureCookies marks the session cookie Secure even on plain HTTP, for
// deployments behind a TLS-terminating proxy.
func WithSecureCookies(on bool) Option {
	return func(s *Server) { s.secureCookies = on }
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	sessionHandler    *SessionHandler
	evaluationHandler *EvaluationHandler

	cookieTTL     time.Duration
	secureCookies bool
	logger        logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	s.healthHandler = NewHealthHandler(deps.Started)
	s.sessionHandler = &SessionHandler{srv: s, deps: deps}
	s.evaluationHandler = &EvaluationHandler{srv: s, deps: deps}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/participants", MetricsMiddleware(s.sessionHandler.HandleParticipants, "participants"))
	mux.HandleFunc("/api/session", MetricsMiddleware(s.sessionHandler.HandleSession, "session"))
	mux.HandleFunc("/api/session/code", MetricsMiddleware(s.sessionHandler.HandleRequestCode, "session_code"))
	mux.HandleFunc("/api/session/verify", MetricsMiddleware(s.sessionHandler.HandleVerify, "session_verify"))
	mux.HandleFunc("/api/session/logout", MetricsMiddleware(s.sessionHandler.HandleLogout, "session_logout"))
	mux.HandleFunc("/api/evaluation/form", MetricsMiddleware(s.evaluationHandler.HandleForm, "evaluation_form"))
	mux.HandleFunc("/api/evaluation/preview", MetricsMiddleware(s.evaluationHandler.HandlePreview, "evaluation_preview"))
	mux.HandleFunc("/api/evaluation", MetricsMiddleware(s.evaluationHandler.HandleSubmit, "evaluation"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail classifies err, logs server-side failures and writes the response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("code", code),
			logger.Error(err),
		)
	}
	if status == http.StatusInternalServerError {
		err = nil
	}
	writeError(w, status, code, err)
}

// decode reads a JSON body of at most maxBodyBytes into v and validates it.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return WrapKind(op, ErrBadRequest, fmt.Errorf("field %s failed %q", fe.Field(), fe.Tag()))
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
