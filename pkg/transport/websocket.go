package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/eventboard/pkg/logging"
	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
)

// WebSocketTransport implements Transport over github.com/coder/websocket.
type WebSocketTransport struct {
	*base
	conn   *websocket.Conn
	logger logging.Logger
	mu     sync.Mutex
}

// NewWebSocketTransport creates an unconnected transport.
func NewWebSocketTransport(config *Config, logger logging.Logger) *WebSocketTransport {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &WebSocketTransport{
		base:   newBase(config),
		logger: logger,
	}
}

// isOriginAllowed checks the Origin header against the request host and
// the configured allow list.
func (t *WebSocketTransport) isOriginAllowed(origin, requestHost string) bool {
	if t.config.InsecureDevMode || origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}
	if originURL.Host == requestHost {
		return true
	}

	for _, allowed := range t.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if allowedURL, err := url.Parse(allowed); err == nil && allowedURL.Host == originURL.Host {
			return true
		}
	}
	return false
}

// originPatterns converts the allow list into the host patterns the
// websocket library checks on accept.
func (t *WebSocketTransport) originPatterns() (patterns []string, skipVerify bool) {
	if t.config.InsecureDevMode {
		return nil, true
	}
	for _, allowed := range t.config.AllowedOrigins {
		if allowed == "*" {
			return nil, true
		}
		if u, err := url.Parse(allowed); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		} else {
			patterns = append(patterns, allowed)
		}
	}
	return patterns, false
}

// Upgrade accepts a websocket connection on w (server side).
func (t *WebSocketTransport) Upgrade(w http.ResponseWriter, r *http.Request) error {
	if !t.isOriginAllowed(r.Header.Get("Origin"), r.Host) {
		http.Error(w, "Forbidden: Origin not allowed", http.StatusForbidden)
		return ErrOriginNotAllowed
	}

	patterns, skip := t.originPatterns()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     patterns,
		InsecureSkipVerify: skip,
	})
	if err != nil {
		return fmt.Errorf("accept websocket: %w", err)
	}

	t.start(conn)
	return nil
}

// Dial connects to a websocket server (client side).
func (t *WebSocketTransport) Dial(ctx context.Context, rawURL string, header http.Header) error {
	conn, _, err := websocket.Dial(ctx, rawURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	t.start(conn)
	return nil
}

func (t *WebSocketTransport) start(conn *websocket.Conn) {
	conn.SetReadLimit(t.config.MaxMessageSize)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	t.setConnected(true)

	go t.readLoop()
	go t.writeLoop()
	go t.pingLoop()
}

// Send queues msg for the write loop.
func (t *WebSocketTransport) Send(msg *protocol.Message) error {
	return t.enqueue(msg)
}

// Close closes the connection. Safe to call more than once.
func (t *WebSocketTransport) Close() error {
	t.shutdown()

	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "closing")
	}
	return nil
}

func (t *WebSocketTransport) current() *websocket.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

func (t *WebSocketTransport) readLoop() {
	defer t.Close()

	for {
		conn := t.current()
		if conn == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), t.config.ReadTimeout)
		_, data, err := conn.Read(ctx)
		cancel()

		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				t.logger.Debug("websocket read ended", logging.Err(err))
			}
			return
		}

		msg, err := t.config.Codec.Decode(data)
		if err != nil {
			t.logger.Debug("dropping undecodable frame", logging.Err(err), logging.Int("bytes", len(data)))
			continue
		}

		select {
		case t.recvCh <- msg:
		case <-t.closeCh:
			return
		default:
			t.logger.Warn("receive buffer full, dropping message", logging.String("event", msg.Event))
		}
	}
}

func (t *WebSocketTransport) writeLoop() {
	frame := websocket.MessageText
	if t.config.Codec.Binary() {
		frame = websocket.MessageBinary
	}

	for {
		select {
		case msg := <-t.sendCh:
			conn := t.current()
			if conn == nil {
				return
			}

			data, err := t.config.Codec.Encode(msg)
			if err != nil {
				t.logger.Error("encode message", logging.String("event", msg.Event), logging.Err(err))
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
			err = conn.Write(ctx, frame, data)
			cancel()
			if err != nil {
				t.Close()
				return
			}

		case <-t.closeCh:
			return
		}
	}
}

func (t *WebSocketTransport) pingLoop() {
	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn := t.current()
			if conn == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				t.logger.Debug("ping failed", logging.Err(err))
			}
		case <-t.closeCh:
			return
		}
	}
}
