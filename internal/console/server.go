// Package console serves a small local web page for running lookups: pick a
// workbook, validate it, start or stop a run and watch the log live.
package console

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/rs/cors"

	"github.com/FranksOps/sitehunt/internal/runner"
	"github.com/FranksOps/sitehunt/internal/sheet"
)

//go:embed page.html
var pageFS embed.FS

var pageTmpl = template.Must(template.ParseFS(pageFS, "page.html"))

// keepAliveInterval spaces SSE comment lines on idle log streams.
var keepAliveInterval = 15 * time.Second

// ServerConfig wires a Server.
type ServerConfig struct {
	Controller *Controller
	Hub        *Hub
	Logger     *slog.Logger
	// Workbook pre-fills the path field.
	Workbook    string
	CORSOrigins []string
}

// Server exposes the controller and log hub over HTTP.
type Server struct {
	ctrl     *Controller
	hub      *Hub
	logger   *slog.Logger
	workbook string
	origins  []string
}

// NewServer creates a Server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub(DefaultHistory)
	}
	return &Server{
		ctrl:     cfg.Controller,
		hub:      cfg.Hub,
		logger:   cfg.Logger,
		workbook: cfg.Workbook,
		origins:  cfg.CORSOrigins,
	}
}

// Handler returns the routed handler with recovery and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/workbook", s.handleWorkbook)

	var handler http.Handler = mux
	handler = s.recovery(handler)
	if len(s.origins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"},
		}).Handler(handler)
	}
	return handler
}

// NewHTTPServer wraps Handler in an http.Server. Writes have no deadline so
// log streams can stay open; Shutdown closes the hub to end them.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(s.hub.Close)
	return srv
}

type workbookRequest struct {
	Workbook string `json:"workbook"`
}

type problem struct {
	Status  int    `json:"status"`
	Title   string `json:"title"`
	Detail  string `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	wb := s.ctrl.Status().Workbook
	if wb == "" {
		wb = s.workbook
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, struct{ Workbook string }{wb}); err != nil {
		s.logger.Error("render page", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	v, err := s.ctrl.Validate(req.Workbook)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.Start(req.Workbook); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusAccepted, s.ctrl.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusAccepted, s.ctrl.Status())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	lines, backlog, cancel := s.hub.Subscribe()
	defer cancel()

	for _, l := range backlog {
		writeEvent(w, l)
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			writeEvent(w, l)
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	path := s.ctrl.Status().Workbook
	if path == "" {
		respondError(w, http.StatusNotFound, ErrNoWorkbook)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		respondError(w, http.StatusNotFound, sheet.ErrFileNotFound)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeContent(w, r, filepath.Base(path), st.ModTime(), f)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (workbookRequest, bool) {
	var req workbookRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return req, false
	}
	return req, true
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
					"stack", string(debug.Stack()),
				)
				respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRunning), errors.Is(err, ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, ErrNoWorkbook):
		return http.StatusBadRequest
	case errors.Is(err, sheet.ErrFileNotFound):
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeEvent(w http.ResponseWriter, line string) {
	fmt.Fprintf(w, "data: %s\n\n", line)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errors.New("failed to encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	p := problem{
		Status:  status,
		Title:   http.StatusText(status),
		Detail:  err.Error(),
		Message: runner.Explain(err),
	}
	payload, _ := json.Marshal(p)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	w.Write(payload)
}
