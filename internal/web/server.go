// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the conversion job API: upload a document, poll its
// status, download the converted tree as a ZIP. The server binds to
// localhost by default and optionally enforces bearer tokens loaded from
// the secrets directory.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/docsmith/internal/extract"
	"github.com/pdiddy/docsmith/internal/jobs"
	"github.com/pdiddy/docsmith/internal/secrets"
	"github.com/pdiddy/docsmith/pkg/types"
)

// tokenPrefix is the secret-file name prefix recognized as an API token.
const tokenPrefix = "api-token"

// Server is the job API over one jobs.Manager.
type Server struct {
	cfg    types.WebConfig
	mgr    *jobs.Manager
	tokens map[string]bool
	logger *slog.Logger
}

// NewServer builds the API server. With RequireAuth set, at least one
// api-token secret must exist or construction fails.
func NewServer(cfg types.WebConfig, mgr *jobs.Manager, logger *slog.Logger) (*Server, error) {
	cfg.Defaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg, mgr: mgr, logger: logger}

	if cfg.RequireAuth {
		loaded, err := secrets.Load(cfg.SecretsDir)
		if err != nil {
			return nil, err
		}
		s.tokens = make(map[string]bool)
		for name, value := range loaded {
			if strings.HasPrefix(name, tokenPrefix) {
				s.tokens[value] = true
			}
		}
		if len(s.tokens) == 0 {
			return nil, fmt.Errorf("auth required but no %s secrets found in %s",
				tokenPrefix, cfg.SecretsDir)
		}
	}

	return s, nil
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Post("/api/validate", s.handleValidate)
		r.Post("/api/upload", s.handleUpload)
		r.Get("/api/status/{id}", s.handleStatus)
		r.Get("/api/download/{id}", s.handleDownload)
		r.Delete("/api/job/{id}", s.handleDelete)
	})

	return r
}

// ListenAndServe runs the server until the context is cancelled, sweeping
// expired jobs in the background.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go s.mgr.RunGC(ctx, s.cfg.Retention/4)

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requireToken rejects requests without a known bearer token when auth is
// enabled.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.RequireAuth {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || !s.tokens[token] {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or missing token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleValidate reports whether a filename would be accepted for upload,
// without transferring the file.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "filename is required"})
		return
	}

	resp := map[string]any{
		"filename":  req.Filename,
		"supported": false,
	}
	if c, ok := extract.ForPath(extract.Converters(types.ConvertConfig{}), req.Filename); ok {
		resp["supported"] = true
		resp["converter"] = c.Name()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUpload accepts one multipart document under the "file" field and
// queues its conversion.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes),
			})
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	opts := types.ConvertConfig{
		FrontMatter: r.FormValue("front_matter") != "false",
		MkDocsNav:   r.FormValue("mkdocs_nav") == "true",
		ExcelMode:   types.ExcelMode(r.FormValue("excel_mode")),
		PDFText:     types.PDFTextMode(r.FormValue("pdf_text")),
	}

	job, err := s.mgr.Submit(header.Filename, file, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	s.logger.Info("job accepted", "job", job.ID, "filename", job.Filename)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok, err := s.mgr.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such job"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, err := s.mgr.ArchivePath(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, ok, err := s.mgr.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such job"})
		return
	}
	if err := s.mgr.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
