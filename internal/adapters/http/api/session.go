package api

import (
	"errors"
	"net/http"

	"github.com/okian/peereval/internal/domain/model"
	"github.com/okian/peereval/internal/domain/passcode"
	"github.com/okian/peereval/internal/domain/session"
)

// SessionHandler serves the passcode login flow.
type SessionHandler struct {
	srv  *Server
	deps SessionDependencies
}

type codeRequest struct {
	Name string `json:"name" validate:"required"`
}

type codeResponse struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

type deliveryFailedResponse struct {
	errorResponse
	ChallengePending bool `json:"challenge_pending"`
}

type verifyRequest struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Code          string `json:"code" validate:"required,numeric"`
}

type sessionResponse struct {
	State    string             `json:"state"`
	Identity *model.Participant `json:"identity,omitempty"`
	Pending  string             `json:"pending_for,omitempty"`
}

func viewOf(s session.Session) sessionResponse {
	out := sessionResponse{State: s.State().String(), Identity: s.Identity}
	if s.Identity == nil && s.Challenge != nil {
		out.Pending = s.Challenge.Subject.Name
	}
	return out
}

// HandleParticipants handles GET /api/participants.
func (h *SessionHandler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"names": h.deps.Participants(r.Context())})
}

// HandleSession handles GET /api/session.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sid, ok := existingSessionID(r)
	if !ok {
		writeJSON(w, http.StatusOK, viewOf(session.Session{}))
		return
	}
	s, err := h.deps.Session(r.Context(), sid)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

// HandleRequestCode handles POST /api/session/code.
func (h *SessionHandler) HandleRequestCode(w http.ResponseWriter, r *http.Request) {
	const op = "api.request_code"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req codeRequest
	if err := decode(w, r, op, &req); err != nil {
		h.srv.fail(w, r, op, err)
		return
	}

	sid := h.srv.sessionID(w, r)
	p, err := h.deps.RequestCode(r.Context(), sid, req.Name)
	if errors.Is(err, passcode.ErrDeliveryFailed) {
		writeJSON(w, http.StatusBadGateway, deliveryFailedResponse{
			errorResponse:    errorResponse{Code: "delivery_failed", Message: "the code could not be sent; request a new one or contact the instructor"},
			ChallengePending: true,
		})
		return
	}
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, codeResponse{Status: "sent", Name: p.Name})
}

// HandleVerify handles POST /api/session/verify.
func (h *SessionHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req verifyRequest
	if err := decode(w, r, op, &req); err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	sid, ok := existingSessionID(r)
	if !ok {
		h.srv.fail(w, r, op, WrapKind(op, session.ErrNoChallenge, ErrNoSession))
		return
	}

	who, err := h.deps.Verify(r.Context(), sid, req.ParticipantID, req.Name, req.Code)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{State: session.Authenticated.String(), Identity: &who})
}

// HandleLogout handles POST /api/session/logout.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	const op = "api.logout"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if sid, ok := existingSessionID(r); ok {
		if err := h.deps.Logout(r.Context(), sid); err != nil {
			h.srv.fail(w, r, op, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
