package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/charmbracelet/log"

	"github.com/mkuhlmann/flowlayout/pkg/cache"
	apperrors "github.com/mkuhlmann/flowlayout/pkg/errors"
	"github.com/mkuhlmann/flowlayout/pkg/graph"
	flowio "github.com/mkuhlmann/flowlayout/pkg/io"
	"github.com/mkuhlmann/flowlayout/pkg/observability"
	"github.com/mkuhlmann/flowlayout/pkg/pipeline"
	"github.com/mkuhlmann/flowlayout/pkg/session"
)

// serveCommand creates the serve command for running the HTTP layout API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP layout API",
		Long: `Run the HTTP layout API.

Endpoints:

  POST   /api/layout          Compute a layout for a posted graph document
  GET    /api/runs            List saved runs
  GET    /api/runs/{id}       Fetch a saved run
  GET    /api/runs/{id}/render  Render a saved run (format=json|dot|svg|png)
  DELETE /api/runs/{id}       Delete a saved run
  GET    /healthz             Liveness check

The cache and run store backends are taken from the configuration file
(see 'flowlayout config path').`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config, default :8080)")

	return cmd
}

// runServe wires up the server from configuration and blocks until ctx is
// cancelled.
func (c *CLI) runServe(ctx context.Context, addr string) error {
	cfg, err := LoadConfig("")
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	cacheDirPath := cfg.Cache.Dir
	if cacheDirPath == "" && cfg.Cache.Backend == "file" {
		if dir, err := cacheDir(); err == nil {
			cacheDirPath = dir
		}
	}
	cacheBackend, err := cache.New(ctx, cache.Config{
		Backend:       cfg.Cache.Backend,
		Dir:           cacheDirPath,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}

	store, err := newStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("initialize run store: %w", err)
	}
	defer store.Close()

	runner := pipeline.NewRunner(cacheBackend, nil, c.Logger)
	defer runner.Close()

	srv := NewServer(runner, store, c.Logger)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c.Logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

// newStore builds the run store selected by the configuration.
func newStore(ctx context.Context, cfg StoreConfig) (session.Store, error) {
	switch cfg.Backend {
	case "mongo":
		return session.NewMongoStore(ctx, session.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	case "", "file":
		return session.NewFileStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}

// =============================================================================
// Server
// =============================================================================

// Server exposes the layout pipeline and the run store over HTTP.
type Server struct {
	runner *pipeline.Runner
	store  session.Store
	logger *log.Logger
}

// NewServer creates a Server around the given runner and store.
func NewServer(runner *pipeline.Runner, store session.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: store, logger: logger}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/render", s.handleRenderRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)
	})

	return r
}

// instrument reports request timing through the observability hooks.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// LayoutRequest is the POST /api/layout request body.
type LayoutRequest struct {
	Graph   graph.Document   `json:"graph"`
	Options pipeline.Options `json:"options"`

	// Save persists the run in the run store and returns its id.
	Save bool `json:"save,omitempty"`
}

// LayoutResponse is the POST /api/layout response body.
type LayoutResponse struct {
	RunID     string                `json:"run_id,omitempty"`
	GraphHash string                `json:"graph_hash"`
	Layout    flowio.LayoutDocument `json:"layout"`
	Blocks    int                   `json:"blocks"`
	Cached    bool                  `json:"cached"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "invalid request body: %v", err)
		return
	}

	g, err := graph.ToGraph(req.Graph)
	if err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidGraph, "invalid graph: %v", err)
		return
	}

	// The API always returns the layout document; extra formats are only
	// relevant for the render endpoint.
	req.Options.Formats = []string{pipeline.FormatJSON}
	req.Options.Logger = s.logger

	result, err := s.runner.Execute(r.Context(), g, req.Options)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, apperrors.ErrCodeInternal, "layout failed: %v", err)
		return
	}

	resp := LayoutResponse{
		GraphHash: result.GraphHash,
		Layout:    result.Layout,
		Blocks:    result.Stats.BlockCount,
		Cached:    result.CacheInfo.LayoutHit,
	}

	if req.Save {
		run := session.NewRun(result.GraphHash, result.Layout)
		if err := s.store.Save(r.Context(), run); err != nil {
			writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "save run: %v", err)
			return
		}
		resp.RunID = run.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "invalid limit: %q", v)
			return
		}
	}

	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "list runs: %v", err)
		return
	}

	type runSummary struct {
		ID        string    `json:"id"`
		GraphHash string    `json:"graph_hash"`
		Nodes     int       `json:"nodes"`
		Edges     int       `json:"edges"`
		Blocks    int       `json:"blocks"`
		CreatedAt time.Time `json:"created_at"`
	}
	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, runSummary{
			ID:        run.ID,
			GraphHash: run.GraphHash,
			Nodes:     run.NodeCount,
			Edges:     run.EdgeCount,
			Blocks:    run.BlockCount,
			CreatedAt: run.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) *session.Run {
	id := chi.URLParam(r, "id")
	if err := apperrors.ValidateRunID(id); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "%s", apperrors.UserMessage(err))
		return nil
	}

	run, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrExpired) {
			writeError(w, http.StatusGone, apperrors.ErrCodeRunNotFound, "run expired: %s", id)
			return nil
		}
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "get run: %v", err)
		return nil
	}
	if run == nil {
		writeError(w, http.StatusNotFound, apperrors.ErrCodeRunNotFound, "run not found: %s", id)
		return nil
	}
	return run
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRenderRun(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidFormat, "%v", err)
		return
	}

	opts := pipeline.Options{
		Formats:  []string{format},
		Detailed: r.URL.Query().Get("detailed") == "true",
		Logger:   s.logger,
	}
	artifacts, err := s.runner.Export(r.Context(), run.Layout, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "render run: %v", err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := apperrors.ValidateRunID(id); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "%s", apperrors.UserMessage(err))
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "delete run: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// contentType maps an output format to its MIME type.
func contentType(format string) string {
	switch format {
	case pipeline.FormatSVG:
		return "image/svg+xml"
	case pipeline.FormatPNG:
		return "image/png"
	case pipeline.FormatDOT:
		return "text/vnd.graphviz"
	default:
		return "application/json"
	}
}

// errorResponse is the JSON body for all error responses.
type errorResponse struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code apperrors.Code, format string, args ...any) {
	writeJSON(w, status, errorResponse{Code: code, Message: fmt.Sprintf(format, args...)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
