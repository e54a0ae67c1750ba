package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/eduquery-ai/eduquery/internal/api"
	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/go-chi/chi/v5"
)

type EscalationService interface {
	ListPending(ctx context.Context) ([]*domain.Escalation, error)
	List(ctx context.Context) ([]*domain.Escalation, error)
	Get(ctx context.Context, id string) (*domain.Escalation, error)
	Answer(ctx context.Context, id, answer string) (*domain.Escalation, error)
	ClearAll(ctx context.Context) (int64, error)
}

// EscalationHandler serves the teacher-facing escalation queue.
type EscalationHandler struct {
	svc EscalationService
}

func NewEscalationHandler(svc EscalationService) *EscalationHandler {
	return &EscalationHandler{svc: svc}
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

type EscalationResponse struct {
	ID           string  `json:"id"`
	QuestionText string  `json:"question_text"`
	Confidence   float64 `json:"confidence"`
	Status       string  `json:"status"`
	Answer       string  `json:"answer,omitempty"`
	SubmittedAt  string  `json:"submitted_at"`
	AnsweredAt   string  `json:"answered_at,omitempty"`
}

type EscalationListResponse struct {
	Items []*EscalationResponse `json:"items"`
}

type ClearAllResponse struct {
	Deleted int64 `json:"deleted"`
}

func escalationToResponse(e *domain.Escalation) *EscalationResponse {
	resp := &EscalationResponse{
		ID:           e.ID,
		QuestionText: e.QuestionText,
		Confidence:   e.Confidence,
		Status:       string(e.Status),
		Answer:       e.Answer,
		SubmittedAt:  e.SubmittedAt.Format("2006-01-02T15:04:05Z"),
	}
	if e.AnsweredAt != nil {
		resp.AnsweredAt = e.AnsweredAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func (h *EscalationHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		escalations []*domain.Escalation
		err         error
	)

	switch r.URL.Query().Get("status") {
	case "", "pending":
		escalations, err = h.svc.ListPending(r.Context())
	case "all":
		escalations, err = h.svc.List(r.Context())
	default:
		api.Error(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*EscalationResponse, len(escalations))
	for i, e := range escalations {
		responses[i] = escalationToResponse(e)
	}

	api.Success(w, http.StatusOK, EscalationListResponse{Items: responses})
}

func (h *EscalationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	escalation, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, escalationToResponse(escalation))
}

func (h *EscalationHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Answer == "" {
		api.Error(w, http.StatusBadRequest, "answer is required")
		return
	}

	escalation, err := h.svc.Answer(r.Context(), id, req.Answer)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, escalationToResponse(escalation))
}

func (h *EscalationHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.ClearAll(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ClearAllResponse{Deleted: deleted})
}
