// Package api exposes the drawing analysis pipeline over HTTP: drawing
// upload, reference search and refresh, grounded chat, and stored analysis
// retrieval with report downloads.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/config"
	"github.com/planvector/drawing-cli/internal/extract"
	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/report"
	"github.com/planvector/drawing-cli/internal/store"
)

// Analyzer runs drawing text through the analysis pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, docText string) (*model.Analysis, error)
	Chat(ctx context.Context, message string) (string, error)
}

// ReferenceProvider serves reference snapshots for search, chat grounding,
// and the reference endpoints.
type ReferenceProvider interface {
	Snapshot(ctx context.Context) *model.Snapshot
	Refresh(ctx context.Context) *model.Snapshot
}

// Server routes HTTP requests to the pipeline, reference layer, and store.
type Server struct {
	router    chi.Router
	store     store.Store
	refs      ReferenceProvider
	analyzer  Analyzer
	extractor extract.Extractor
	reports   *report.Generator
	cfg       config.ServerConfig
}

// NewServer wires the handlers and creates the upload directory.
func NewServer(st store.Store, refs ReferenceProvider, analyzer Analyzer, extractor extract.Extractor, reports *report.Generator, cfg config.ServerConfig) (*Server, error) {
	if st == nil {
		return nil, eris.New("api: store is required")
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "api: create upload dir")
	}

	srv := &Server{
		router:    chi.NewRouter(),
		store:     st,
		refs:      refs,
		analyzer:  analyzer,
		extractor: extractor,
		reports:   reports,
		cfg:       cfg,
	}
	srv.routes()
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			zap.L().Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			)
		})
	})

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/search", s.handleSearch)
		r.Post("/chat", s.handleChat)
		r.Get("/reference", s.handleReference)
		r.Post("/reference/refresh", s.handleReferenceRefresh)
		r.Get("/analyses", s.handleListAnalyses)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
		r.Get("/analyses/{id}/report", s.handleAnalysisReport)
	})
}

// maxUploadBytes returns the configured request body cap.
func (s *Server) maxUploadBytes() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = 32
	}
	return mb << 20
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		zap.L().Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
