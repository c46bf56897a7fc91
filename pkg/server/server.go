// Package server exposes the viewport engine over HTTP for previews and
// remote clients.
//
// All sessions share the layout published by one [engine.Engine]; each
// session owns its own camera and level-of-detail state.
//
//	POST   /sessions                       create a session
//	DELETE /sessions/{id}                  end it
//	POST   /sessions/{id}/gestures         apply a gesture event
//	POST   /sessions/{id}/navigate/{node}  animate to a node
//	POST   /sessions/{id}/step?ms=16       advance animations
//	GET    /sessions/{id}/frame?w=&h=&format=svg|json|png
//	GET    /layout                         the published layout
//	GET    /healthz
//	GET    /metrics
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/kinview/pkg/config"
	"github.com/matzehuels/kinview/pkg/engine"
	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/lod"
	"github.com/matzehuels/kinview/pkg/observability"
	"github.com/matzehuels/kinview/pkg/render"
	"github.com/matzehuels/kinview/pkg/session"
	"github.com/matzehuels/kinview/pkg/viewport"
)

// Default frame size when a request omits w or h.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Options configures a Server.
type Options struct {
	Config config.Config
	// Gatherer backs /metrics. Nil serves prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Hooks    observability.Hooks
	Logger   *log.Logger
}

// Server is an http.Handler.
type Server struct {
	eng    *engine.Engine
	store  *session.Store
	cfg    config.Config
	hooks  observability.Hooks
	logger *log.Logger
	router chi.Router
	detach func()
}

// New returns a server for eng. Sessions are created with SessionFactory.
func New(eng *engine.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		eng:    eng,
		cfg:    opts.Config,
		hooks:  opts.Hooks.OrNoop(),
		logger: opts.Logger,
	}
	s.store = session.NewStore(opts.Config.Server.SessionTTL.Std(), SessionFactory(opts.Config, eng, s.hooks, opts.Logger))
	s.detach = eng.OnPublish(s.resetBuckets)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/layout", s.handleLayout)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteSession)
			r.Post("/gestures", s.handleGesture)
			r.Post("/navigate/{node}", s.handleNavigate)
			r.Post("/step", s.handleStep)
			r.Get("/frame", s.handleFrame)
		})
	})
	s.router = r
	return s
}

// SessionFactory builds per-session controllers from cfg. Bucket commits and
// neighbour prefetches go through eng.
func SessionFactory(cfg config.Config, eng *engine.Engine, hooks observability.Hooks, logger *log.Logger) session.Factory {
	hooks = hooks.OrNoop()
	return func() session.Viewport {
		tierOpts := cfg.LOD.TierOptions()
		tierOpts.OnChange = func(from, to lod.Tier) {
			hooks.Engine.OnTierChange(context.Background(), from.String(), to.String())
		}
		bucketOpts := cfg.LOD.BucketOptions()
		ropts := cfg.Render.Options(logger)
		if eng != nil {
			bucketOpts.OnCommit = eng.PrefetchNode
			ropts.Prefetcher = eng.Prefetcher()
		}
		ropts.Tier = lod.NewTierController(tierOpts)
		ropts.Buckets = lod.NewBucketController(bucketOpts)
		return session.Viewport{
			Controller: viewport.New(cfg.Viewport.Options(logger)),
			Renderer:   render.New(ropts),
		}
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Sessions returns the session store.
func (s *Server) Sessions() *session.Store { return s.store }

// resetBuckets drops every session's image buckets and pending upgrades.
// Node ids of the previous snapshot may no longer exist.
func (s *Server) resetBuckets(snap *engine.Snapshot) {
	n := 0
	s.store.Each(func(sess *session.Session) {
		sess.Renderer.Buckets().Reset()
		n++
	})
	if n > 0 {
		s.logger.Debug("session buckets reset", "generation", snap.Generation, "sessions", n)
	}
}

// Close stops following engine rebuilds and removes every session.
func (s *Server) Close() error {
	s.detach()
	return s.store.Close()
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. Expired sessions are swept in the background.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.store.Run(ctx, time.Minute)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error struct {
		Code    errors.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Code = errors.GetCode(err)
	if body.Error.Code == "" {
		body.Error.Code = errors.ErrCodeInternal
	}
	body.Error.Message = errors.UserMessage(err)
	status := errors.HTTPStatus(err)
	if status >= 500 {
		s.logger.Warn("request failed", "err", err)
	}
	s.writeJSON(w, status, body)
}
