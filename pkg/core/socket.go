package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
)

// Common socket errors.
var (
	ErrSocketClosed = errors.New("socket is closed")
	ErrSendFailed   = errors.New("failed to send message")
)

// Transport is the part of a connection a socket writes to.
type Transport interface {
	Send(msg *protocol.Message) error
	Close() error
	IsConnected() bool
}

// Socket is one client connection as seen by a component. A socket with a
// nil transport is a static render: sends fail with ErrSocketClosed but
// navigation is still recorded.
type Socket struct {
	id        string
	connected bool

	// version orders render diffs.
	version atomic.Uint64

	transport Transport
	navigate  string

	mu sync.RWMutex
}

// NewSocket creates a socket with the given ID and transport.
func NewSocket(id string, transport Transport) *Socket {
	return &Socket{
		id:        id,
		connected: transport != nil,
		transport: transport,
	}
}

// ID returns the socket's unique identifier.
func (s *Socket) ID() string {
	return s.id
}

// Topic returns the channel name used in messages.
func (s *Socket) Topic() string {
	return "lv:" + s.id
}

// IsConnected returns true if the socket has a live transport.
func (s *Socket) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected && s.transport != nil && s.transport.IsConnected()
}

// Send sends a message to the client.
func (s *Socket) Send(msg *protocol.Message) error {
	s.mu.RLock()
	connected := s.connected
	transport := s.transport
	s.mu.RUnlock()

	if !connected || transport == nil || !transport.IsConnected() {
		return ErrSocketClosed
	}

	if err := transport.Send(msg); err != nil {
		s.mu.RLock()
		stillConnected := s.connected
		s.mu.RUnlock()
		if !stillConnected {
			return ErrSocketClosed
		}
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// SendRender pushes a full re-render.
func (s *Socket) SendRender(html string) error {
	return s.Send(protocol.DiffMessage(s.Topic(), s.version.Add(1), html))
}

// PushNavigate records to as the navigation target and, when connected,
// tells the client to go there.
func (s *Socket) PushNavigate(to string) error {
	s.mu.Lock()
	s.navigate = to
	static := s.transport == nil
	s.mu.Unlock()

	if static {
		return nil
	}
	return s.Send(protocol.RedirectMessage(s.Topic(), to))
}

// NavigateTarget returns the last navigation target and whether one was set.
func (s *Socket) NavigateTarget() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.navigate, s.navigate != ""
}

// Close closes the socket connection.
func (s *Socket) Close() error {
	s.mu.Lock()
	s.connected = false
	transport := s.transport
	s.mu.Unlock()

	if transport != nil {
		return transport.Close()
	}
	return nil
}

// SocketManager tracks active sockets.
type SocketManager struct {
	sockets map[string]*Socket
	mu      sync.RWMutex
}

// NewSocketManager creates a new socket manager.
func NewSocketManager() *SocketManager {
	return &SocketManager{sockets: make(map[string]*Socket)}
}

// Add registers a socket.
func (sm *SocketManager) Add(socket *Socket) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sockets[socket.ID()] = socket
}

// Remove unregisters a socket.
func (sm *SocketManager) Remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sockets, id)
}

// Count returns the number of active sockets.
func (sm *SocketManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sockets)
}

// CloseAll closes and forgets every socket. Used on shutdown.
func (sm *SocketManager) CloseAll() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	n := len(sm.sockets)
	for id, s := range sm.sockets {
		s.Close()
		delete(sm.sockets, id)
	}
	return n
}
