package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/eduquery-ai/eduquery/internal/api"
	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/service"
	"github.com/go-chi/chi/v5"
)

type CorpusService interface {
	Add(ctx context.Context, text string) (*domain.Question, error)
	List(ctx context.Context, cursor string, limit int) (*service.CorpusPageResult, error)
	Get(ctx context.Context, id string) (*domain.Question, error)
	Delete(ctx context.Context, id string) error
}

// CorpusHandler serves the teacher-facing reference question corpus.
type CorpusHandler struct {
	svc CorpusService
}

func NewCorpusHandler(svc CorpusService) *CorpusHandler {
	return &CorpusHandler{svc: svc}
}

type AddCorpusRequest struct {
	Text string `json:"text"`
}

type CorpusEntryResponse struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Embedded  bool   `json:"embedded"`
	CreatedAt string `json:"created_at"`
}

type CorpusListResponse struct {
	Items   []*CorpusEntryResponse `json:"items"`
	Cursor  string                 `json:"cursor,omitempty"`
	HasMore bool                   `json:"has_more"`
}

func (h *CorpusHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddCorpusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	question, err := h.svc.Add(r.Context(), req.Text)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CorpusEntryResponse{
		ID:        question.ID,
		Text:      question.Text,
		Embedded:  false,
		CreatedAt: question.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *CorpusHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 0
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.List(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*CorpusEntryResponse, len(page.Items))
	for i, entry := range page.Items {
		responses[i] = &CorpusEntryResponse{
			ID:        entry.ID,
			Text:      entry.Text,
			Embedded:  entry.Embedded,
			CreatedAt: entry.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	api.Success(w, http.StatusOK, CorpusListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *CorpusHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	question, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, CorpusEntryResponse{
		ID:        question.ID,
		Text:      question.Text,
		Embedded:  len(question.Embedding) > 0,
		CreatedAt: question.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *CorpusHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
