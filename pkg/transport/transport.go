// Package transport carries protocol messages between the live client
// script and the server over a websocket.
package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
)

// Common transport errors.
var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendTimeout      = errors.New("send timeout")
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// Transport is a bidirectional message stream to one client.
type Transport interface {
	Send(msg *protocol.Message) error

	// Receive yields decoded client messages until the connection closes.
	Receive() <-chan *protocol.Message

	// Done is closed once the transport has shut down.
	Done() <-chan struct{}

	Close() error
	IsConnected() bool
}

// Config holds transport configuration.
type Config struct {
	// ReadTimeout bounds the wait for the next client frame. The client
	// script heartbeats well inside it.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration

	MaxMessageSize    int64
	SendBufferSize    int
	ReceiveBufferSize int

	// AllowedOrigins lists cross-origin callers; same-origin is always
	// allowed. "*" allows everything.
	AllowedOrigins []string

	// InsecureDevMode disables origin validation. Development only.
	InsecureDevMode bool

	// Codec frames messages. Defaults to JSON.
	Codec protocol.Codec
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		MaxMessageSize:    64 * 1024,
		SendBufferSize:    64,
		ReceiveBufferSize: 64,
		Codec:             protocol.JSONCodec{},
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.PingInterval <= 0 {
		out.PingInterval = d.PingInterval
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.SendBufferSize <= 0 {
		out.SendBufferSize = d.SendBufferSize
	}
	if out.ReceiveBufferSize <= 0 {
		out.ReceiveBufferSize = d.ReceiveBufferSize
	}
	if out.Codec == nil {
		out.Codec = d.Codec
	}
	return &out
}

// base holds the channels and connection flag shared by transports.
type base struct {
	config    *Config
	connected bool
	sendCh    chan *protocol.Message
	recvCh    chan *protocol.Message
	closeCh   chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
}

func newBase(config *Config) *base {
	config = config.withDefaults()
	return &base{
		config:  config,
		sendCh:  make(chan *protocol.Message, config.SendBufferSize),
		recvCh:  make(chan *protocol.Message, config.ReceiveBufferSize),
		closeCh: make(chan struct{}),
	}
}

// IsConnected returns the connection status.
func (t *base) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

func (t *base) setConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = connected
}

// Receive returns the receive channel.
func (t *base) Receive() <-chan *protocol.Message {
	return t.recvCh
}

// Done returns the close channel.
func (t *base) Done() <-chan struct{} {
	return t.closeCh
}

func (t *base) shutdown() {
	t.closeOnce.Do(func() {
		t.setConnected(false)
		close(t.closeCh)
	})
}

// enqueue hands msg to the write loop.
func (t *base) enqueue(msg *protocol.Message) error {
	if !t.IsConnected() {
		return ErrNotConnected
	}

	timer := time.NewTimer(t.config.WriteTimeout)
	defer timer.Stop()

	select {
	case t.sendCh <- msg:
		return nil
	case <-t.closeCh:
		return ErrConnectionClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}
