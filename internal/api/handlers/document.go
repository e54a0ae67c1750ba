package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/eduquery-ai/eduquery/internal/api"
	"github.com/eduquery-ai/eduquery/internal/api/middleware"
	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	Create(ctx context.Context, input service.CreateDocumentInput) (*service.CreateDocumentOutput, error)
	Ingest(ctx context.Context, documentID string) (*domain.EmbeddingJob, error)
	List(ctx context.Context) ([]*domain.Document, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	DownloadURL(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
}

// DocumentHandler serves the teacher-facing document index. The client
// uploads extracted text to the presigned URL, then calls Ingest to queue
// chunking and embedding.
type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type CreateDocumentRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

type DocumentResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	CreatedAt string `json:"created_at"`
}

type CreateDocumentResponse struct {
	Document  *DocumentResponse `json:"document"`
	UploadURL string            `json:"upload_url"`
}

type IngestResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type DocumentListResponse struct {
	Items []*DocumentResponse `json:"items"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

type DeleteAllDocumentsResponse struct {
	Deleted int `json:"deleted"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:        d.ID,
		Filename:  d.Filename,
		MimeType:  d.MimeType,
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}

	out, err := h.svc.Create(r.Context(), service.CreateDocumentInput{
		Filename:   req.Filename,
		MimeType:   req.MimeType,
		UploadedBy: user.ID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateDocumentResponse{
		Document:  documentToResponse(out.Document),
		UploadURL: out.UploadURL,
	})
}

func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.Ingest(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, IngestResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	documents, err := h.svc.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(documents))
	for i, d := range documents {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{Items: responses})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	document, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(document))
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadURLResponse{URL: url})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *DocumentHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteAll(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteAllDocumentsResponse{Deleted: deleted})
}
