// Package server serves the layout editor: the HTML pages, the JSON API and
// the registry of open editing sessions.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dtnitsch/layout-editor/internal/config"
	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/catalog"
	"github.com/dtnitsch/layout-editor/pkg/db"
	"github.com/dtnitsch/layout-editor/pkg/export"
)

//go:embed templates/*.html
var templateFS embed.FS

// UploadRoot is the catalog root name uploads are stored under.
const UploadRoot = config.UploadRootName

const (
	maxOpBodyBytes  = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Server handles HTTP requests against one catalog and page store.
type Server struct {
	cfg      *models.Config
	catalog  *catalog.Catalog
	store    *db.DB
	exporter *export.Service
	logger   *slog.Logger
	sessions *registry
	pages    *template.Template
}

// New creates a server. The catalog must include a root named UploadRoot for
// uploads to be accepted.
func New(cfg *models.Config, cat *catalog.Catalog, store *db.DB, exporter *export.Service, logger *slog.Logger) (*Server, error) {
	pages, err := template.New("").Funcs(template.FuncMap{
		"pct": percent,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{
		cfg:      cfg,
		catalog:  cat,
		store:    store,
		exporter: exporter,
		logger:   logger,
		sessions: newRegistry(cfg.SessionTTL, time.Now),
		pages:    pages,
	}, nil
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /editor", s.handleEditor)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/{doc...}", s.handleListPages)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("POST /api/sessions", s.handleOpenSession)
	mux.HandleFunc("GET /api/sessions/{sid}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{sid}", s.handleCloseSession)
	mux.HandleFunc("POST /api/sessions/{sid}/{op}", s.handleOp)

	mux.HandleFunc("GET /api/navigate", s.handleNavigate)
	mux.HandleFunc("GET /api/image", s.handleImage)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/export", s.handleExport)

	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, evicting idle sessions in
// the background.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.evictLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "data_dir", s.cfg.DataDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	s.logDirtySessions()
	return nil
}

func (s *Server) evictLoop(ctx context.Context) {
	interval := s.cfg.SessionTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ev := range s.sessions.evict() {
				if ev.dirty {
					s.logger.Warn("evicted session with unsaved changes", "session", ev.id, "page", ev.key.String())
				} else {
					s.logger.Debug("evicted idle session", "session", ev.id, "page", ev.key.String())
				}
			}
		}
	}
}

func (s *Server) logDirtySessions() {
	for _, ev := range s.sessions.snapshotDirty() {
		s.logger.Warn("shutting down with unsaved changes", "session", ev.id, "page", ev.key.String())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
