// Package server exposes the appeal workflows over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/appeal-cli/internal/appeal"
	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/internal/valuation"
)

// Workflow is the subset of *appeal.Workflow the handlers call.
type Workflow interface {
	MaxUploadBytes() int64
	Upload(ctx context.Context, in appeal.UploadInput) (*appeal.UploadResult, error)
	Parse(ctx context.Context, in appeal.ParseInput) (*appeal.ParseResult, error)
	GenerateLetter(ctx context.Context, in appeal.LetterInput) (*appeal.LetterResult, error)
	Documents(ctx context.Context, groupID string) ([]model.Document, error)
	Valuation(ctx context.Context, addr string, useCache bool) (*valuation.Summary, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes API requests to the workflow.
type Server struct {
	wf      Workflow
	db      Pinger
	origins []string
}

// New creates a Server. allowedOrigins configures CORS; empty disables it.
func New(wf Workflow, db Pinger, allowedOrigins []string) *Server {
	return &Server{wf: wf, db: db, origins: allowedOrigins}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	r.Route("/api", func(api chi.Router) {
		api.Post("/uploads", s.upload)
		api.Post("/parsing/assessment", s.parse)
		api.Post("/letters", s.letters)
		api.Get("/valuations", s.valuation)
		api.Get("/document-groups/{id}/documents", s.documents)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			zap.L().Warn("server: health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeWorkflowError maps a workflow error to its status and message.
func writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	status := appeal.StatusOf(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeError(w, status, appeal.MessageOf(err))
}

// isUUID accepts canonical RFC 4122 ids of versions 1 to 5.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Variant() == uuid.RFC4122 && id.Version() >= 1 && id.Version() <= 5
}
