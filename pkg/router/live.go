package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/limits"
	"github.com/gabrielmiguelok/eventboard/pkg/logging"
	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
	"github.com/gabrielmiguelok/eventboard/pkg/transport"
)

var errNotJoined = errors.New("event before join")

// liveSession binds one websocket connection to one component instance.
type liveSession struct {
	component core.Component
	socket    *core.Socket
	params    core.Params
	session   core.Session
	path      string
	mounted   bool
	left      bool
}

// handleSocket upgrades /live?path=<live path>[&codec=json|msgpack] and
// runs the component's message loop until the client leaves or the
// connection drops.
func (r *Router) handleSocket(w http.ResponseWriter, req *http.Request) {
	if !isWebSocketRequest(req) {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}
	if r.maxSockets > 0 && r.sockets.Count() >= r.maxSockets {
		http.Error(w, ErrTooManySockets.Error(), http.StatusServiceUnavailable)
		return
	}

	path := req.URL.Query().Get("path")
	component, ok := r.registry.Create(path)
	if !ok {
		http.Error(w, ErrComponentNotFound.Error(), http.StatusNotFound)
		return
	}

	// ?codec= overrides the configured framing for this connection.
	cfg := r.transport
	if name := req.URL.Query().Get("codec"); name != "" {
		codec, err := protocol.NewCodec(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c := *cfg
		c.Codec = codec
		cfg = &c
	}

	ws := transport.NewWebSocketTransport(cfg, r.logger)
	if err := ws.Upgrade(w, req); err != nil {
		logging.L(req.Context()).Warn("websocket upgrade failed", logging.Err(err))
		return
	}

	socket := core.NewSocket(uuid.NewString(), ws)
	if aware, ok := component.(core.SocketAware); ok {
		aware.SetSocket(socket)
	}

	params := extractParams(req)
	delete(params, "path")
	delete(params, "codec")

	lv := &liveSession{
		component: component,
		socket:    socket,
		params:    params,
		session:   sessionFor(req),
		path:      path,
	}

	r.sockets.Add(socket)
	if r.metrics != nil {
		r.metrics.SocketOpened()
	}

	// The hijacked connection keeps the request context alive until this
	// handler returns.
	logger := logging.L(req.Context()).With(
		logging.String("socket_id", socket.ID()),
		logging.String("component", component.Name()),
	)
	ctx := logging.ContextWithLogger(req.Context(), logger)

	reason := r.messageLoop(ctx, lv, ws)
	r.disconnect(ctx, lv, reason)
}

// messageLoop processes incoming messages and server-side infos.
func (r *Router) messageLoop(ctx context.Context, lv *liveSession, ws transport.Transport) core.TerminateReason {
	logger := logging.L(ctx)
	mux := r.liveMux(lv, logger)

	var infos <-chan any
	for {
		if infos == nil && lv.mounted {
			if src, ok := lv.component.(core.InfoSource); ok {
				infos = src.Infos()
			}
		}

		select {
		case msg, ok := <-ws.Receive():
			if !ok {
				return core.TerminateNormal
			}

			reply, err := mux.HandleMessage(ctx, msg)
			if err != nil {
				lv.socket.Send(protocol.ErrorReply(msg.Ref, lv.socket.Topic(), err.Error()))
				continue
			}
			if reply != nil {
				lv.socket.Send(reply)
			}
			if lv.left {
				return core.TerminateNormal
			}

		case info, ok := <-infos:
			if !ok {
				infos = nil
				continue
			}
			if err := lv.component.HandleInfo(ctx, info); err != nil {
				logger.Error("handle info failed", logging.Err(err))
				continue
			}
			r.pushRender(ctx, lv)

		case <-ws.Done():
			// After a live_redirect the client closes the connection itself.
			if _, navigated := lv.socket.NavigateTarget(); navigated {
				return core.TerminateNavigate
			}
			return core.TerminateNormal

		case <-ctx.Done():
			return core.TerminateShutdown
		}
	}
}

// liveMux builds the per-connection event routes.
func (r *Router) liveMux(lv *liveSession, logger logging.Logger) *protocol.Mux {
	mux := protocol.NewMux()
	mux.Use(
		protocol.RecoveryMiddleware(func(p any) {
			logger.Error("live handler panicked", logging.Any("panic", p))
		}),
		protocol.LoggingMiddleware(logger),
	)
	if r.metrics != nil {
		mux.Use(r.metrics.Middleware())
	}
	if r.limiter != nil {
		mux.Use(r.limitEvents(lv.socket.ID()))
	}

	mux.OnFunc(protocol.EventJoin, func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
		if !lv.mounted {
			if err := lv.component.Mount(ctx, lv.params, lv.session); err != nil {
				return nil, err
			}
			lv.mounted = true
		}

		html, err := r.render(ctx, lv.component)
		if err != nil {
			return nil, err
		}
		return protocol.OkReply(msg.Ref, lv.socket.Topic(), map[string]any{"rendered": html}), nil
	})

	mux.OnFunc(protocol.EventHeartbeat, func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
		return protocol.OkReply(msg.Ref, msg.Topic, nil), nil
	})

	mux.OnFunc(protocol.EventLeave, func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
		lv.left = true
		return nil, nil
	})

	mux.Fallback(func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
		if !lv.mounted {
			return nil, errNotJoined
		}
		if _, navigated := lv.socket.NavigateTarget(); navigated {
			return nil, nil
		}
		if err := lv.component.HandleEvent(ctx, msg.Event, msg.Payload); err != nil {
			return nil, err
		}
		if _, navigated := lv.socket.NavigateTarget(); !navigated {
			r.pushRender(ctx, lv)
		}
		return protocol.OkReply(msg.Ref, lv.socket.Topic(), nil), nil
	})

	return mux
}

func (r *Router) limitEvents(key string) protocol.MiddlewareFunc {
	return func(next protocol.MessageHandler) protocol.MessageHandler {
		return protocol.MessageHandlerFunc(func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
			if msg.Event != protocol.EventHeartbeat && !r.limiter.Allow(key) {
				return nil, limits.ErrRateLimitExceeded
			}
			return next.HandleMessage(ctx, msg)
		})
	}
}

func (r *Router) pushRender(ctx context.Context, lv *liveSession) {
	html, err := r.render(ctx, lv.component)
	if err != nil {
		logging.L(ctx).Error("render failed", logging.Err(err))
		return
	}
	if err := lv.socket.SendRender(html); err != nil {
		logging.L(ctx).Debug("render not delivered", logging.Err(err))
	}
}

func (r *Router) disconnect(ctx context.Context, lv *liveSession, reason core.TerminateReason) {
	if lv.mounted {
		if err := lv.component.Terminate(context.WithoutCancel(ctx), reason); err != nil {
			logging.L(ctx).Warn("terminate failed", logging.Err(err))
		}
	}
	r.sockets.Remove(lv.socket.ID())
	if r.limiter != nil {
		r.limiter.Forget(lv.socket.ID())
	}
	if r.metrics != nil {
		r.metrics.SocketClosed()
	}
	lv.socket.Close()
	logging.L(ctx).Debug("live connection closed",
		logging.String("path", lv.path),
		logging.String("reason", reason.String()),
	)
}
