package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/events"
	"github.com/gabrielmiguelok/eventboard/pkg/forms"
	"github.com/gabrielmiguelok/eventboard/pkg/logging"
)

// EventForm collects a new event and appends it to the shared list.
type EventForm struct {
	formComponent
	events events.Appender
	logger logging.Logger
}

// NewEventForm creates an add-event form backed by the app's list.
func (a *App) NewEventForm() *EventForm {
	return &EventForm{
		formComponent: formComponent{
			form: forms.NewForm(a.eventSchema),
			page: formPage{title: "Add event", action: PathAddEvent, submit: "Add event"},
		},
		events: a.events,
		logger: a.logger,
	}
}

func (e *EventForm) Name() string { return "Add event" }

func (e *EventForm) Mount(ctx context.Context, params core.Params, session core.Session) error {
	e.form.Reset()
	return nil
}

func (e *EventForm) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return e.dispatch(ctx, event, payload, e.submit)
}

func (e *EventForm) submit(ctx context.Context) error {
	record, err := e.record()
	if err != nil {
		return err
	}

	e.events.Append(ctx, record)
	e.logger.Info("event added",
		logging.String("event_id", record.ID),
		logging.String("title", record.Title),
	)
	return e.Navigate(PathAddedEvent)
}

// record converts the accepted form into an event record.
func (e *EventForm) record() (events.Record, error) {
	v := e.form.Values()

	price, err := strconv.ParseFloat(v.Get(forms.FieldPrice), 64)
	if err != nil {
		return events.Record{}, fmt.Errorf("price: %w", err)
	}
	seats, err := strconv.Atoi(v.Get(forms.FieldSeats))
	if err != nil {
		return events.Record{}, fmt.Errorf("seats: %w", err)
	}

	return events.Record{
		ID:          events.NewID(),
		Title:       v.Get(forms.FieldTitle),
		Description: v.Get(forms.FieldDescription),
		Price:       price,
		City:        v.Get(forms.FieldCity),
		Date:        v.Get(forms.FieldDate),
		StartTime:   v.Get(forms.FieldStartTime),
		EndTime:     v.Get(forms.FieldEndTime),
		Category:    v.Get(forms.FieldCategory),
		Seats:       seats,
		Team:        v.Get(forms.FieldTeam),
		CreatedAt:   time.Now(),
	}, nil
}
