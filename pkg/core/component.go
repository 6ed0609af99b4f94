// Package core provides the live component abstractions: components, the
// socket they talk through, and the registry that maps paths to them.
package core

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Component is the interface that all live components must implement.
// A component instance is driven by exactly one connection, so its methods
// are never called concurrently.
type Component interface {
	// Name returns the component's identifier for logs.
	Name() string

	// Mount is called once, before the first render.
	Mount(ctx context.Context, params Params, session Session) error

	// Render returns the current HTML representation of the component.
	Render(ctx context.Context) Renderer

	// HandleEvent processes client events such as "change" and "submit".
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// HandleInfo processes server-side messages, for example values from
	// an InfoSource channel.
	HandleInfo(ctx context.Context, msg any) error

	// Terminate is called when the component is being destroyed.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// InfoSource is implemented by components that want server-side messages
// delivered to HandleInfo while connected.
type InfoSource interface {
	Infos() <-chan any
}

// SocketAware is implemented by components that need their socket.
type SocketAware interface {
	SetSocket(s *Socket)
}

// Renderer is the interface for rendering HTML content.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc is an adapter to allow ordinary functions to be used as Renderers.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Params contains URL query parameters from the connection.
type Params map[string]string

// Get returns a parameter value or empty string if not found.
func (p Params) Get(key string) string {
	return p[key]
}

// Session contains per-browser data passed from the HTTP layer.
type Session map[string]any

// SessionIDKey holds the browser session id in a Session.
const SessionIDKey = "session_id"

// Get returns a session value.
func (s Session) Get(key string) any {
	return s[key]
}

// GetString returns a session value as string.
func (s Session) GetString(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// ID returns the browser session id, or "".
func (s Session) ID() string {
	return s.GetString(SessionIDKey)
}

// TerminateReason indicates why a component is being terminated.
type TerminateReason int

const (
	TerminateNormal TerminateReason = iota
	TerminateShutdown
	TerminateError
	TerminateNavigate
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateNormal:
		return "normal"
	case TerminateShutdown:
		return "shutdown"
	case TerminateError:
		return "error"
	case TerminateNavigate:
		return "navigate"
	default:
		return "unknown"
	}
}

// BaseComponent provides default implementations for Component methods.
// Embed it to avoid implementing unused methods.
type BaseComponent struct {
	socket *Socket
}

// SetSocket sets the socket for the component (called by the router).
func (bc *BaseComponent) SetSocket(s *Socket) {
	bc.socket = s
}

// Socket returns the component's socket.
func (bc *BaseComponent) Socket() *Socket {
	return bc.socket
}

// Navigate asks the client to go to path. Without a socket it is a no-op.
func (bc *BaseComponent) Navigate(path string) error {
	if bc.socket == nil {
		return nil
	}
	return bc.socket.PushNavigate(path)
}

func (bc *BaseComponent) Name() string {
	return ""
}

func (bc *BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

func (bc *BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return nil
}

func (bc *BaseComponent) HandleInfo(ctx context.Context, msg any) error {
	return nil
}

func (bc *BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}

// Factory creates a fresh component instance.
type Factory func() Component

// Registry maps live paths to component factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for path. Registering a path twice panics.
func (r *Registry) Register(path string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.factories[path]; dup {
		panic(fmt.Sprintf("core: path %q registered twice", path))
	}
	r.factories[path] = factory
}

// Create instantiates the component registered for path.
func (r *Registry) Create(path string) (Component, bool) {
	r.mu.RLock()
	f, ok := r.factories[path]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return f(), true
}
