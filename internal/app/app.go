// Package app holds the eventboard pages: the add-event, log-in and sign-up
// forms plus the event listing and confirmation pages.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabrielmiguelok/eventboard/pkg/auth"
	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/events"
	"github.com/gabrielmiguelok/eventboard/pkg/forms"
	"github.com/gabrielmiguelok/eventboard/pkg/logging"
	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
	"github.com/gabrielmiguelok/eventboard/pkg/router"
	"github.com/gabrielmiguelok/eventboard/pkg/storage"
)

// Page paths.
const (
	PathHome       = "/"
	PathAddEvent   = "/add-event"
	PathAddedEvent = "/added-event"
	PathLogIn      = "/login"
	PathSignUp     = "/signup"
)

// ErrUnknownEvent is returned for events a page does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// Options configures an App.
type Options struct {
	Logger logging.Logger

	// Stores hands out the per-browser credential store.
	Stores *storage.Registry

	// Events is the shared event list.
	Events *events.List

	Categories []string

	// Now is the clock behind the event date check.
	Now func() time.Time
}

// App wires the pages to their shared dependencies.
type App struct {
	logger      logging.Logger
	stores      *storage.Registry
	events      *events.List
	eventSchema *forms.Schema
}

// New creates an App, filling unset options.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger{}
	}
	if opts.Stores == nil {
		opts.Stores = storage.NewRegistry(nil)
	}
	if opts.Events == nil {
		opts.Events = events.NewList()
	}
	if len(opts.Categories) == 0 {
		opts.Categories = events.Categories
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &App{
		logger:      opts.Logger,
		stores:      opts.Stores,
		events:      opts.Events,
		eventSchema: EventSchema(opts.Now, opts.Categories),
	}
}

// Register mounts every page on r.
func (a *App) Register(r *router.Router) {
	r.Live(PathHome, func() core.Component { return a.NewHome() })
	r.Live(PathAddEvent, func() core.Component { return a.NewEventForm() })
	r.Live(PathAddedEvent, func() core.Component { return &AddedEvent{} })
	r.Live(PathLogIn, func() core.Component { return a.NewLogInForm() })
	r.Live(PathSignUp, func() core.Component { return a.NewSignUpForm() })
}

// credentials returns the credential service of the browser behind session.
func (a *App) credentials(session core.Session, logger logging.Logger) *auth.Service {
	return auth.NewService(a.stores.For(session.ID()), logger)
}

// stringValue reads a payload value as a string.
func stringValue(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// formComponent is the change and submit plumbing shared by the forms.
type formComponent struct {
	core.BaseComponent
	form *forms.Form
	page formPage
}

// change applies a change event.
func (c *formComponent) change(payload map[string]any) error {
	_, err := c.form.ChangeRaw(stringValue(payload, "field"), stringValue(payload, "value"))
	return err
}

// accept binds the submitted values and runs the submission gate. A
// rejected submit is not an error; the form re-renders with its flags.
func (c *formComponent) accept(ctx context.Context, payload map[string]any) bool {
	c.form.BindMap(payload)
	if err := c.form.Submit(); err != nil {
		logging.L(ctx).Debug("submit rejected",
			logging.String("form", c.form.Schema().Name()),
			logging.Err(err),
		)
		return false
	}
	return true
}

// dispatch routes an event to change or onSubmit.
func (c *formComponent) dispatch(ctx context.Context, event string, payload map[string]any, onSubmit func(context.Context) error) error {
	switch event {
	case protocol.EventChange:
		return c.change(payload)
	case protocol.EventSubmit:
		if !c.accept(ctx, payload) {
			return nil
		}
		return onSubmit(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
}

func (c *formComponent) Render(ctx context.Context) core.Renderer {
	return c.page.render(c.form)
}

// Form exposes the form state.
func (c *formComponent) Form() *forms.Form {
	return c.form
}
