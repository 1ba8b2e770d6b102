// Package server provides the HTTP server for the signbridge fingerspelling
// service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/observe"
	"github.com/ayusman/signbridge/internal/server/api"
	"github.com/ayusman/signbridge/internal/store"
)

// readyTimeout bounds the dependency checks behind /readyz.
const readyTimeout = 2 * time.Second

// Config holds the server configuration.
type Config struct {
	App       *app.App
	Store     *store.Store
	StaticDir string
	Metrics   *observe.Metrics
	Log       *slog.Logger

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Server represents the HTTP server for the signbridge application.
type Server struct {
	config  Config
	log     *slog.Logger
	mux     *http.ServeMux
	handler http.Handler
	hub     *Hub
	start   time.Time
}

// New creates a new Server with the given configuration. When an App is
// configured the server registers its websocket hub as an event sink.
func New(config Config) *Server {
	if config.Log == nil {
		config.Log = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observe.Discard()
	}
	if config.Store == nil && config.App != nil {
		config.Store = config.App.Store()
	}

	s := &Server{
		config: config,
		log:    config.Log,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = observe.Middleware(config.Metrics, config.Log)(s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)

	s.mux.Handle("/api/classify", api.NewClassifyHandler(s.config.Metrics))

	reference := api.NewReferenceHandler()
	s.mux.Handle("/api/rules", reference)
	s.mux.Handle("/api/rules/", reference)
	s.mux.Handle("/api/levels", reference)
	s.mux.Handle("/api/tips", reference)
	s.mux.Handle("/api/tips/", reference)

	// Register store-backed APIs if Store is configured
	if s.config.Store != nil {
		samplesHandler := api.NewSamplesHandler(s.config.Store)
		s.mux.Handle("/api/samples", samplesHandler)
		s.mux.Handle("/api/samples/", samplesHandler)

		var runner api.ActionRunner
		if s.config.App != nil {
			runner = s.config.App
		}
		actionHandler := api.NewActionHandler(s.config.Store, runner)
		s.mux.Handle("/api/actions", actionHandler)
		s.mux.Handle("/api/actions/", actionHandler)
	}

	if a := s.config.App; a != nil {
		transcript := api.NewTranscriptHandler(a)
		s.mux.Handle("/api/transcript", transcript)
		s.mux.Handle("/api/transcript/", transcript)

		phrases := api.NewPhraseHandler(a)
		s.mux.Handle("/api/phrases", phrases)
		s.mux.Handle("/api/phrases/", phrases)

		s.mux.Handle("/api/practice", api.NewPracticeHandler(a))
		s.mux.Handle("/api/detection", api.NewDetectionHandler(a))
		s.mux.Handle("/api/prediction", api.NewPredictionHandler(a))

		s.hub = NewHub(a, s.config.Metrics, s.log)
		a.AddSink(s.hub)
		s.mux.Handle("/api/predictions", s.hub)

		// Register camera stream endpoint if the camera is enabled
		if a.Camera() != nil {
			s.mux.Handle("/api/stream", NewStreamHandler(a.Frames()))
		}
	}

	if s.config.MetricsHandler != nil {
		s.mux.Handle("/metrics", s.config.MetricsHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// Hub returns the websocket hub, nil without an App.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type healthResponse struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	DetectionEnabled *bool  `json:"detection_enabled,omitempty"`
}

type readyResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.App != nil {
		enabled := s.config.App.IsEnabled()
		resp.DetectionEnabled = &enabled
	}
	respond(w, http.StatusOK, resp)
}

// handleReady fails while the store or detector cannot serve.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	var err error
	switch {
	case s.config.App != nil:
		err = s.config.App.Ready(ctx)
	case s.config.Store != nil:
		err = s.config.Store.Ping(ctx)
	}

	if err != nil {
		respond(w, http.StatusServiceUnavailable, readyResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	respond(w, http.StatusOK, readyResponse{Status: "ready"})
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and disconnects websocket clients.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
