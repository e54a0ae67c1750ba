package server

import (
	"net/http"

	"github.com/eduquery-ai/eduquery/internal/api"
	"github.com/eduquery-ai/eduquery/internal/api/handlers"
	"github.com/eduquery-ai/eduquery/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	SessionValidator  middleware.SessionValidator
	AuthHandler       *handlers.AuthHandler
	QuestionHandler   *handlers.QuestionHandler
	EscalationHandler *handlers.EscalationHandler
	DocumentHandler   *handlers.DocumentHandler
	CorpusHandler     *handlers.CorpusHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/register", cfg.AuthHandler.Register)
	r.Post("/auth/login", cfg.AuthHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(cfg.SessionValidator))

		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Get("/auth/me", cfg.AuthHandler.Me)

		r.Post("/questions", cfg.QuestionHandler.Ask)

		// Teacher-only surface: routing history, the escalation queue,
		// documents, and the reference corpus.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTeacher)

			r.Get("/questions/history", cfg.QuestionHandler.History)

			r.Route("/escalations", func(r chi.Router) {
				r.Get("/", cfg.EscalationHandler.List)
				r.Delete("/", cfg.EscalationHandler.ClearAll)
				r.Get("/{id}", cfg.EscalationHandler.Get)
				r.Post("/{id}/answer", cfg.EscalationHandler.Answer)
			})

			r.Route("/documents", func(r chi.Router) {
				r.Post("/", cfg.DocumentHandler.Create)
				r.Get("/", cfg.DocumentHandler.List)
				r.Delete("/", cfg.DocumentHandler.DeleteAll)
				r.Get("/{id}", cfg.DocumentHandler.Get)
				r.Post("/{id}/ingest", cfg.DocumentHandler.Ingest)
				r.Get("/{id}/download", cfg.DocumentHandler.Download)
				r.Delete("/{id}", cfg.DocumentHandler.Delete)
			})

			r.Route("/corpus", func(r chi.Router) {
				r.Post("/", cfg.CorpusHandler.Add)
				r.Get("/", cfg.CorpusHandler.List)
				r.Get("/{id}", cfg.CorpusHandler.Get)
				r.Delete("/{id}", cfg.CorpusHandler.Delete)
			})
		})
	})

	return r
}
