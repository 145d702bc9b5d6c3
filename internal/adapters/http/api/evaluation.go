package api

import (
	"fmt"
	"net/http"

	"github.com/okian/peereval/internal/domain/rubric"
	"github.com/okian/peereval/internal/domain/session"
)

// EvaluationHandler serves the evaluation form and submissions.
type EvaluationHandler struct {
	srv  *Server
	deps EvaluationDependencies
}

type entryRequest struct {
	PeerID  string `json:"peer_id" validate:"required"`
	Scores  []int  `json:"scores"`
	Comment string `json:"comment" validate:"max=2000"`
}

type evaluationRequest struct {
	Entries []entryRequest `json:"entries" validate:"dive"`
}

func (e evaluationRequest) inputs() (map[string]rubric.Input, error) {
	out := make(map[string]rubric.Input, len(e.Entries))
	for _, en := range e.Entries {
		if _, dup := out[en.PeerID]; dup {
			return nil, fmt.Errorf("duplicate entry for %s", en.PeerID)
		}
		out[en.PeerID] = rubric.Input{Scores: en.Scores, Comment: en.Comment}
	}
	return out, nil
}

func (h *EvaluationHandler) read(w http.ResponseWriter, r *http.Request, op string) (string, map[string]rubric.Input, bool) {
	var req evaluationRequest
	if err := decode(w, r, op, &req); err != nil {
		h.srv.fail(w, r, op, err)
		return "", nil, false
	}
	inputs, err := req.inputs()
	if err != nil {
		h.srv.fail(w, r, op, WrapKind(op, ErrBadRequest, err))
		return "", nil, false
	}
	sid, ok := existingSessionID(r)
	if !ok {
		h.srv.fail(w, r, op, WrapKind(op, session.ErrNotAuthenticated, ErrNoSession))
		return "", nil, false
	}
	return sid, inputs, true
}

// HandleForm handles GET /api/evaluation/form.
func (h *EvaluationHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_form"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sid, ok := existingSessionID(r)
	if !ok {
		h.srv.fail(w, r, op, WrapKind(op, session.ErrNotAuthenticated, ErrNoSession))
		return
	}
	form, err := h.deps.Form(r.Context(), sid)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// HandlePreview handles POST /api/evaluation/preview. Nothing is saved.
func (h *EvaluationHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview_evaluation"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	sid, inputs, ok := h.read(w, r, op)
	if !ok {
		return
	}
	preview, err := h.deps.Preview(r.Context(), sid, inputs)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// HandleSubmit handles POST /api/evaluation.
func (h *EvaluationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_evaluation"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	sid, inputs, ok := h.read(w, r, op)
	if !ok {
		return
	}
	receipt, err := h.deps.Submit(r.Context(), sid, inputs)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved", "receipt": receipt})
}
