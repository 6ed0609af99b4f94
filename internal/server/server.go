// Package server wires configuration, pages and infrastructure into the
// eventboard HTTP server.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gabrielmiguelok/eventboard/client"
	"github.com/gabrielmiguelok/eventboard/internal/app"
	"github.com/gabrielmiguelok/eventboard/internal/config"
	"github.com/gabrielmiguelok/eventboard/pkg/events"
	"github.com/gabrielmiguelok/eventboard/pkg/health"
	"github.com/gabrielmiguelok/eventboard/pkg/limits"
	"github.com/gabrielmiguelok/eventboard/pkg/logging"
	"github.com/gabrielmiguelok/eventboard/pkg/metrics"
	"github.com/gabrielmiguelok/eventboard/pkg/router"
	"github.com/gabrielmiguelok/eventboard/pkg/shutdown"
	"github.com/gabrielmiguelok/eventboard/pkg/storage"
)

// Version is reported by the health endpoints.
var Version = "dev"

// AssetPrefix is where the client script is served.
const AssetPrefix = "/_live/"

// ParseConfig loads the configuration and applies command-line overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	addr := fs.String("addr", "", "listen address")
	level := fs.String("log-level", "", "debug, info, warn or error")
	codec := fs.String("codec", "", "default live socket codec: json or msgpack")
	dev := fs.Bool("insecure-dev", false, "accept websocket connections from any origin")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return nil, err
	}

	if *addr != "" {
		cfg.Address = *addr
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *codec != "" {
		cfg.Codec = *codec
	}
	if *dev {
		cfg.InsecureDevMode = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Server is a configured, not yet listening eventboard.
type Server struct {
	cfg     *config.Config
	logger  logging.Logger
	router  *router.Router
	stores  *storage.Registry
	events  *events.List
	health  *health.Checker
	metrics *metrics.Metrics
	posts   *limits.TokenBucket
	http    *http.Server
}

// New builds every component from cfg.
func New(cfg *config.Config, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}

	tc, err := cfg.Transport()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		stores:  storage.NewRegistry(nil),
		events:  events.NewList(),
		metrics: metrics.New("eventboard"),
	}
	s.events.Subscribe(func(events.Record) { s.metrics.EventsAdded.Inc() })

	s.router = router.New(router.Options{
		Logger:       logger,
		Transport:    tc,
		Layout:       app.Layout,
		MaxSockets:   cfg.MaxSockets,
		EventLimiter: cfg.Limiter(),
		Metrics:      s.metrics,
	})
	s.router.Use(
		logging.RequestLogger(logger),
		router.Recovery(),
		router.SecureHeaders(),
		router.Sessions(),
	)
	if posts, ok := cfg.Limiter().(*limits.TokenBucket); ok {
		s.posts = posts
		s.router.Use(limits.Middleware(posts, postSession))
	}

	app.New(app.Options{
		Logger:     logger,
		Stores:     s.stores,
		Events:     s.events,
		Categories: cfg.Categories,
	}).Register(s.router)

	s.health = health.NewChecker(Version, logger)
	s.health.AddCriticalCheck("store", health.StoreCheck(storage.NewMemoryStore()), time.Second)
	s.health.AddCheck("live_sockets", health.SocketCapacityCheck(s.router.Sockets().Count, cfg.MaxSockets), time.Second)

	s.router.Handle("GET "+AssetPrefix, http.StripPrefix(AssetPrefix, client.Handler()))
	s.router.Handle("GET /healthz", s.health.HealthHandler())
	s.router.Handle("GET /livez", s.health.LivenessHandler())
	s.router.Handle("GET /readyz", s.health.ReadinessHandler())
	s.router.Handle("GET /metrics", s.metrics.Handler())

	s.http = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.Timeouts.Read,
		IdleTimeout:       cfg.Timeouts.Idle,
	}
	return s, nil
}

// postSession keys form posts by browser session.
func postSession(r *http.Request) string {
	if r.Method != http.MethodPost {
		return ""
	}
	return router.SessionIDFromContext(r.Context())
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens until ctx ends, a signal arrives or the listener fails, then
// shuts down in order: HTTP, live sockets, stores.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	sh := shutdown.NewHandler(s.cfg.Timeouts.Shutdown, s.logger)
	sh.RegisterFunc("http", shutdown.PriorityHTTP, s.http.Shutdown)
	sh.RegisterFunc("live sockets", shutdown.PrioritySockets, s.router.Shutdown)
	sh.Register(shutdown.CloseableHook("stores", shutdown.PriorityStores, s.stores))

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if s.posts != nil {
		go s.posts.Janitor(ctx, s.cfg.Timeouts.Idle)
	}
	go s.stores.Janitor(ctx, s.cfg.Timeouts.Idle, s.cfg.Timeouts.Session)

	go func() {
		s.logger.Info("eventboard listening",
			logging.String("address", ln.Addr().String()),
			logging.String("codec", s.cfg.Codec),
		)
		if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			cancel(fmt.Errorf("serve: %w", err))
		}
	}()

	err := sh.Wait(ctx)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return errors.Join(cause, err)
	}
	return err
}
