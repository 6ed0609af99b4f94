package app

import (
	"context"

	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/events"
)

// Home lists the shared events and follows new ones while connected.
type Home struct {
	core.BaseComponent
	list    *events.List
	records []events.Record
	infos   chan any
	cancel  func()
}

// NewHome creates the event listing.
func (a *App) NewHome() *Home {
	return &Home{list: a.events}
}

func (h *Home) Name() string { return "Events" }

func (h *Home) Mount(ctx context.Context, params core.Params, session core.Session) error {
	h.records = h.list.All()
	h.infos = make(chan any, 16)
	h.cancel = h.list.Subscribe(func(r events.Record) {
		select {
		case h.infos <- r:
		default:
		}
	})
	return nil
}

// Infos delivers records appended after Mount.
func (h *Home) Infos() <-chan any {
	return h.infos
}

// HandleInfo reloads the list. A dropped notification is caught up by the
// next one.
func (h *Home) HandleInfo(ctx context.Context, msg any) error {
	if _, ok := msg.(events.Record); ok {
		h.records = h.list.All()
	}
	return nil
}

func (h *Home) Render(ctx context.Context) core.Renderer {
	return renderHome(h.records)
}

func (h *Home) Terminate(ctx context.Context, reason core.TerminateReason) error {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	return nil
}

// AddedEvent confirms a submitted event.
type AddedEvent struct {
	core.BaseComponent
}

func (p *AddedEvent) Name() string { return "Event added" }

func (p *AddedEvent) Render(ctx context.Context) core.Renderer {
	return renderAdded()
}
