// Package http serves the question-answering and ingestion API plus a
// minimal chat page.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/NiteeshPutla/agentic-rag/internal/app"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/usecases"
)

const maxUploadBytes = 64 << 20

// Service is the subset of the application the server needs.
type Service interface {
	Ask(ctx context.Context, question string) (app.AskResult, error)
	Ingest(ctx context.Context, paths []string, reset bool) (app.IngestReport, error)
	Count(ctx context.Context) (int, error)
}

// ErrPathNotAllowed is returned for ingestion paths outside the upload
// directory and the documents root.
var ErrPathNotAllowed = errors.New("path is outside the allowed document roots")

// Options configures a Server.
type Options struct {
	Addr string
	// UploadDir keeps uploaded files so re-uploads of the same name replace
	// the earlier copy in the index.
	UploadDir string
	// DocumentsRoot, when set, is a local directory or gs:// prefix that JSON
	// ingestion requests may also name paths under.
	DocumentsRoot string
	// AllowedOrigins lists origins granted cross-origin access; "*" allows any.
	AllowedOrigins []string
}

// Server is the HTTP server for the RAG API and UI.
type Server struct {
	service Service
	opts    Options
	logger  *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(service Service, opts Options, logger *slog.Logger) *Server {
	if opts.UploadDir == "" {
		opts.UploadDir = filepath.Join(os.TempDir(), "agentic-rag-uploads")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{service: service, opts: opts, logger: logger}
}

// Handler returns the routed handler with logging and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return corsMiddleware(s.opts.AllowedOrigins, s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 600 * time.Second, // generation plus validation retries
	}

	s.logger.Info("server starting", "addr", s.opts.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	app.AskResult
	Error string `json:"error,omitempty"`
}

type ingestRequest struct {
	Paths []string `json:"paths"`
	Reset bool     `json:"reset"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
	} else {
		req.Question = r.FormValue("question")
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question required"})
		return
	}

	result, err := s.service.Ask(r.Context(), question)
	if err != nil {
		s.logger.Error("answering question failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, askResponse{
			AskResult: app.AskResult{Answer: usecases.ApologyAnswer, Sources: []string{}},
			Error:     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, askResponse{AskResult: result})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		paths, err := s.saveUploads(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		req.Paths = paths
		req.Reset = r.FormValue("reset") == "true"
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		for _, p := range req.Paths {
			if err := s.checkPath(p); err != nil {
				s.logger.Warn("rejected ingestion path", "path", p, "error", err)
				writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
				return
			}
		}
	}

	if len(req.Paths) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no documents given"})
		return
	}

	report, err := s.service.Ingest(r.Context(), req.Paths, req.Reset)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecases.ErrNoDocumentsProcessed) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) saveUploads(r *http.Request) ([]string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("parsing upload: %w", err)
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		return nil, errors.New("multipart field \"file\" is required")
	}
	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		dst := filepath.Join(s.opts.UploadDir, filepath.Base(fh.Filename))
		if err := saveUpload(fh, dst); err != nil {
			return nil, fmt.Errorf("saving %s: %w", fh.Filename, err)
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

// checkPath accepts p only if it lies under the upload directory or the
// documents root.
func (s *Server) checkPath(p string) error {
	for _, root := range []string{s.opts.UploadDir, s.opts.DocumentsRoot} {
		if root != "" && within(root, p) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPathNotAllowed, p)
}

func within(root, p string) bool {
	if strings.HasPrefix(root, "gs://") || strings.HasPrefix(p, "gs://") {
		prefix := strings.TrimSuffix(root, "/") + "/"
		return strings.HasPrefix(p, prefix) && !slices.Contains(strings.Split(p, "/"), "..")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// handleHealth returns server health status and index size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "chunks": count})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

// corsMiddleware grants cross-origin access only to the listed origins.
// Cross-origin writes from any other origin are refused.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || sameOrigin(r, origin) {
			next.ServeHTTP(w, r)
			return
		}

		allowed := slices.Contains(origins, "*") || slices.Contains(origins, origin)
		if !allowed {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "origin not allowed"})
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Add("Vary", "Origin")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sameOrigin(r *http.Request, origin string) bool {
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}
