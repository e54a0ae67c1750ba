package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/eduquery-ai/eduquery/internal/api"
	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/service"
)

type RoutingService interface {
	Route(ctx context.Context, questionText string) (*service.RouteResult, error)
}

type AuditHistoryService interface {
	History(ctx context.Context, cursor string, limit int) (*service.AuditPageResult, error)
}

// QuestionHandler serves the student-facing ask endpoint and the
// teacher-facing routing history.
type QuestionHandler struct {
	router RoutingService
	audit  AuditHistoryService
}

func NewQuestionHandler(router RoutingService, audit AuditHistoryService) *QuestionHandler {
	return &QuestionHandler{router: router, audit: audit}
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Decision     string  `json:"decision"`
	Answer       string  `json:"answer"`
	Confidence   float64 `json:"confidence"`
	EscalationID string  `json:"escalation_id,omitempty"`
}

func (h *QuestionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.router.Route(r.Context(), req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AskResponse{
		Decision:     string(result.Decision),
		Answer:       result.Answer,
		Confidence:   result.Confidence,
		EscalationID: result.EscalationID,
	})
}

type AuditRecordResponse struct {
	ID            string  `json:"id"`
	QuestionText  string  `json:"question_text"`
	BestMatchID   string  `json:"best_match_id,omitempty"`
	BestMatchText string  `json:"best_match_text,omitempty"`
	Confidence    float64 `json:"confidence"`
	Decision      string  `json:"decision"`
	Answer        string  `json:"answer,omitempty"`
	EscalationID  string  `json:"escalation_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type AuditListResponse struct {
	Items   []*AuditRecordResponse `json:"items"`
	Cursor  string                 `json:"cursor,omitempty"`
	HasMore bool                   `json:"has_more"`
}

func auditRecordToResponse(rec *domain.AuditRecord) *AuditRecordResponse {
	return &AuditRecordResponse{
		ID:            rec.ID,
		QuestionText:  rec.QuestionText,
		BestMatchID:   rec.BestMatchID,
		BestMatchText: rec.BestMatchText,
		Confidence:    rec.Confidence,
		Decision:      string(rec.Decision),
		Answer:        rec.Answer,
		EscalationID:  rec.EscalationID,
		CreatedAt:     rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *QuestionHandler) History(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 0
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.audit.History(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*AuditRecordResponse, len(page.Items))
	for i, rec := range page.Items {
		responses[i] = auditRecordToResponse(rec)
	}

	api.Success(w, http.StatusOK, AuditListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}
