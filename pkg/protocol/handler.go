package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabrielmiguelok/eventboard/pkg/logging"
)

// Common handler errors.
var (
	ErrHandlerNotFound = errors.New("handler not found for event")
	ErrHandlerPanic    = errors.New("handler panicked")
)

// MessageHandler processes protocol messages. A nil reply means nothing is
// sent back.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *Message) (*Message, error)
}

// MessageHandlerFunc is an adapter to allow functions as MessageHandler.
type MessageHandlerFunc func(ctx context.Context, msg *Message) (*Message, error)

// HandleMessage implements MessageHandler.
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, msg *Message) (*Message, error) {
	return f(ctx, msg)
}

// MiddlewareFunc wraps message handling.
type MiddlewareFunc func(next MessageHandler) MessageHandler

// Mux routes messages by event name. It is built once per connection and
// is not safe for concurrent registration.
type Mux struct {
	routes     map[string]MessageHandler
	fallback   MessageHandler
	middleware []MiddlewareFunc
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{routes: make(map[string]MessageHandler)}
}

// On registers a handler for an event.
func (m *Mux) On(event string, handler MessageHandler) {
	m.routes[event] = handler
}

// OnFunc registers a handler function for an event.
func (m *Mux) OnFunc(event string, fn func(ctx context.Context, msg *Message) (*Message, error)) {
	m.On(event, MessageHandlerFunc(fn))
}

// Fallback handles events with no registered route.
func (m *Mux) Fallback(fn func(ctx context.Context, msg *Message) (*Message, error)) {
	m.fallback = MessageHandlerFunc(fn)
}

// Use appends middleware. The first added runs outermost.
func (m *Mux) Use(mw ...MiddlewareFunc) {
	m.middleware = append(m.middleware, mw...)
}

// HandleMessage implements MessageHandler.
func (m *Mux) HandleMessage(ctx context.Context, msg *Message) (*Message, error) {
	handler, ok := m.routes[msg.Event]
	if !ok {
		handler = m.fallback
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, msg.Event)
	}

	for i := len(m.middleware) - 1; i >= 0; i-- {
		handler = m.middleware[i](handler)
	}
	return handler.HandleMessage(ctx, msg)
}

// LoggingMiddleware logs every handled message at debug level and failures
// at warn level.
func LoggingMiddleware(logger logging.Logger) MiddlewareFunc {
	return func(next MessageHandler) MessageHandler {
		return MessageHandlerFunc(func(ctx context.Context, msg *Message) (*Message, error) {
			start := time.Now()
			reply, err := next.HandleMessage(ctx, msg)

			fields := []logging.Field{
				logging.String("event", msg.Event),
				logging.String("topic", msg.Topic),
				logging.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("message failed", append(fields, logging.Err(err))...)
			} else {
				logger.Debug("message handled", fields...)
			}
			return reply, err
		})
	}
}

// RecoveryMiddleware turns a panic into ErrHandlerPanic.
func RecoveryMiddleware(onPanic func(any)) MiddlewareFunc {
	return func(next MessageHandler) MessageHandler {
		return MessageHandlerFunc(func(ctx context.Context, msg *Message) (reply *Message, err error) {
			defer func() {
				if r := recover(); r != nil {
					if onPanic != nil {
						onPanic(r)
					}
					reply, err = nil, fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			return next.HandleMessage(ctx, msg)
		})
	}
}
