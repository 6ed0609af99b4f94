// Package router serves live components over HTTP and websocket.
//
// A GET on a live path mounts a fresh component and renders it inside the
// page layout. A POST on the same path is the no-script fallback: the posted
// form values are dispatched as a submit event and the browser is either
// redirected (303) or shown the re-rendered page. The client script upgrades
// to the websocket endpoint and drives the component from then on.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/limits"
	"github.com/gabrielmiguelok/eventboard/pkg/logging"
	"github.com/gabrielmiguelok/eventboard/pkg/metrics"
	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
	"github.com/gabrielmiguelok/eventboard/pkg/transport"
)

// Common router errors.
var (
	ErrComponentNotFound = errors.New("component not found")
	ErrNilRenderer       = errors.New("component returned nil renderer")
	ErrTooManySockets    = errors.New("too many live connections")
)

// DefaultLivePath is where the websocket endpoint is mounted.
const DefaultLivePath = "/live"

// Middleware is a function that wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// ErrorHandler handles errors during request processing.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Page is what a Layout wraps around a rendered component.
type Page struct {
	Title    string
	Path     string
	LivePath string
	Body     template.HTML

	// Heartbeat is how often the client script must send a heartbeat to
	// stay inside the socket read timeout.
	Heartbeat time.Duration
}

// Layout writes a complete HTML document for page.
type Layout func(ctx context.Context, w io.Writer, page Page) error

// Options configures a Router.
type Options struct {
	Logger    logging.Logger
	Transport *transport.Config
	Layout    Layout

	// LivePath is the websocket endpoint. Defaults to DefaultLivePath.
	LivePath string

	// MaxSockets caps concurrent live connections. Zero means no cap.
	MaxSockets int

	// EventLimiter, when set, limits client events per live connection.
	// Heartbeats are not counted.
	EventLimiter limits.Limiter

	// Metrics, when set, records live sockets, messages and renders.
	Metrics *metrics.Metrics
}

// Router handles HTTP routing for live components.
type Router struct {
	mux          *http.ServeMux
	registry     *core.Registry
	sockets      *core.SocketManager
	middleware   []Middleware
	errorHandler ErrorHandler

	logger     logging.Logger
	transport  *transport.Config
	layout     Layout
	livePath   string
	maxSockets int
	limiter    limits.Limiter
	metrics    *metrics.Metrics

	handler http.Handler
	once    sync.Once
}

// New creates a router and mounts the websocket endpoint.
func New(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger{}
	}
	if opts.Transport == nil {
		opts.Transport = transport.DefaultConfig()
	}
	if opts.Layout == nil {
		opts.Layout = DefaultLayout
	}
	if opts.LivePath == "" {
		opts.LivePath = DefaultLivePath
	}

	r := &Router{
		mux:        http.NewServeMux(),
		registry:   core.NewRegistry(),
		sockets:    core.NewSocketManager(),
		logger:     opts.Logger,
		transport:  opts.Transport,
		layout:     opts.Layout,
		livePath:   opts.LivePath,
		maxSockets: opts.MaxSockets,
		limiter:    opts.EventLimiter,
		metrics:    opts.Metrics,
	}
	r.errorHandler = r.defaultErrorHandler

	r.mux.HandleFunc("GET "+r.livePath, r.handleSocket)
	return r
}

// Use adds middleware. Middleware must be added before the first request.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// SetErrorHandler sets the error handler.
func (r *Router) SetErrorHandler(handler ErrorHandler) {
	r.errorHandler = handler
}

// Registry returns the component registry.
func (r *Router) Registry() *core.Registry {
	return r.registry
}

// Sockets returns the live connection manager.
func (r *Router) Sockets() *core.SocketManager {
	return r.sockets
}

// Live registers a live component at path.
func (r *Router) Live(path string, factory core.Factory) {
	r.registry.Register(path, factory)
	r.mux.HandleFunc(path, r.handleLive(path, factory))
}

// Handle registers a standard HTTP handler.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

// HandleFunc registers a standard HTTP handler function.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.once.Do(func() {
		var h http.Handler = r.mux
		for i := len(r.middleware) - 1; i >= 0; i-- {
			h = r.middleware[i](h)
		}
		r.handler = h
	})
	r.handler.ServeHTTP(w, req)
}

// Shutdown closes every live connection. Components are terminated by
// their message loops as the transports go away.
func (r *Router) Shutdown(ctx context.Context) error {
	n := r.sockets.CloseAll()
	logging.L(ctx).Info("live connections closed", logging.Int("count", n))
	return ctx.Err()
}

func (r *Router) handleLive(path string, factory core.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		// "/" also matches every unregistered path.
		if req.URL.Path != path {
			http.NotFound(w, req)
			return
		}

		switch req.Method {
		case http.MethodGet, http.MethodHead:
			r.renderLive(w, req, path, factory)
		case http.MethodPost:
			r.submitLive(w, req, path, factory)
		default:
			w.Header().Set("Allow", "GET, HEAD, POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	}
}

// mountStatic mounts a component on a socket without transport.
func (r *Router) mountStatic(ctx context.Context, req *http.Request, path string, factory core.Factory) (core.Component, *core.Socket, error) {
	component := factory()
	socket := core.NewSocket(uuid.NewString(), nil)

	if aware, ok := component.(core.SocketAware); ok {
		aware.SetSocket(socket)
	}

	if err := component.Mount(ctx, extractParams(req), sessionFor(req)); err != nil {
		return nil, nil, fmt.Errorf("mount %s: %w", path, err)
	}
	return component, socket, nil
}

func (r *Router) renderLive(w http.ResponseWriter, req *http.Request, path string, factory core.Factory) {
	ctx := req.Context()

	component, _, err := r.mountStatic(ctx, req, path, factory)
	if err != nil {
		r.errorHandler(w, req, err)
		return
	}
	defer component.Terminate(ctx, core.TerminateNormal)

	r.writePage(w, req, path, component)
}

func (r *Router) submitLive(w http.ResponseWriter, req *http.Request, path string, factory core.Factory) {
	ctx := req.Context()

	if err := req.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	component, socket, err := r.mountStatic(ctx, req, path, factory)
	if err != nil {
		r.errorHandler(w, req, err)
		return
	}
	defer component.Terminate(ctx, core.TerminateNormal)

	payload := make(map[string]any, len(req.PostForm))
	for key := range req.PostForm {
		payload[key] = req.PostForm.Get(key)
	}

	if err := component.HandleEvent(ctx, protocol.EventSubmit, payload); err != nil {
		r.errorHandler(w, req, fmt.Errorf("%s submit: %w", component.Name(), err))
		return
	}

	if to, ok := socket.NavigateTarget(); ok {
		http.Redirect(w, req, to, http.StatusSeeOther)
		return
	}
	r.writePage(w, req, path, component)
}

// writePage renders component into the layout.
func (r *Router) writePage(w http.ResponseWriter, req *http.Request, path string, component core.Component) {
	ctx := req.Context()

	body, err := r.render(ctx, component)
	if err != nil {
		r.errorHandler(w, req, err)
		return
	}

	var buf bytes.Buffer
	page := Page{
		Title:     component.Name(),
		Path:      path,
		LivePath:  r.livePath,
		Body:      template.HTML(body),
		Heartbeat: r.transport.PingInterval,
	}
	if err := r.layout(ctx, &buf, page); err != nil {
		r.errorHandler(w, req, fmt.Errorf("layout: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (r *Router) render(ctx context.Context, component core.Component) (string, error) {
	if r.metrics == nil {
		return renderComponent(ctx, component)
	}
	start := time.Now()
	defer func() { r.metrics.RenderDuration.ObserveDuration(time.Since(start)) }()
	return renderComponent(ctx, component)
}

func renderComponent(ctx context.Context, component core.Component) (string, error) {
	renderer := component.Render(ctx)
	if renderer == nil {
		return "", ErrNilRenderer
	}

	var buf bytes.Buffer
	if err := renderer.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("render %s: %w", component.Name(), err)
	}
	return buf.String(), nil
}

func (r *Router) defaultErrorHandler(w http.ResponseWriter, req *http.Request, err error) {
	logging.L(req.Context()).Error("request failed", logging.Err(err))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// extractParams extracts query parameters, first value wins.
func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// sessionFor builds the component session from the browser session.
func sessionFor(req *http.Request) core.Session {
	session := make(core.Session)
	if id := SessionIDFromContext(req.Context()); id != "" {
		session[core.SessionIDKey] = id
	}
	return session
}

// isWebSocketRequest checks if this is a WebSocket upgrade request.
func isWebSocketRequest(req *http.Request) bool {
	return strings.Contains(strings.ToLower(req.Header.Get("Upgrade")), "websocket")
}

var defaultLayout = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<main id="live-root" data-live-path="{{.Path}}" data-live-socket="{{.LivePath}}" data-live-heartbeat="{{.Heartbeat.Milliseconds}}">{{.Body}}</main>
</body>
</html>
`))

// DefaultLayout is a bare HTML document without client script.
func DefaultLayout(ctx context.Context, w io.Writer, page Page) error {
	return defaultLayout.Execute(w, page)
}
