package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/eventboard/pkg/auth"
	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/events"
	"github.com/gabrielmiguelok/eventboard/pkg/forms"
	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
	"github.com/gabrielmiguelok/eventboard/pkg/storage"
	lvtest "github.com/gabrielmiguelok/eventboard/pkg/testing"
)

const (
	disabledButton = `<button type="submit" disabled>`
	enabledButton  = `<button type="submit">`
)

func fixedNow() time.Time {
	return time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func newTestApp() (*App, *events.List, *storage.Registry) {
	list := events.NewList()
	stores := storage.NewRegistry(nil)
	return New(Options{Events: list, Stores: stores, Now: fixedNow}), list, stores
}

func session(id string) lvtest.MountOption {
	return lvtest.WithSession(core.Session{core.SessionIDKey: id})
}

var validEvent = map[string]string{
	"title":       "Summer Fest",
	"description": "Three days of music by the river",
	"price":       "25.5",
	"city":        "Lisbon",
	"date":        "2026-07-01",
	"startTime":   "18:00",
	"endTime":     "23:30",
	"category":    "Festival",
	"seats":       "+100",
	"team":        "Blue Team",
}

func TestEventForm_RejectedValueDisablesSubmit(t *testing.T) {
	a, _, _ := newTestApp()
	form := a.NewEventForm()
	lvt := lvtest.Mount(t, form)

	lvt.AssertHasElement(enabledButton)

	lvt.Change("price", "-3").
		AssertText(forms.MsgPositiveNumber).
		AssertHasElement(disabledButton).
		AssertHasElement(`value="-3"`)
	assert.True(t, form.Form().Invalid(forms.FieldPrice))

	lvt.Change("price", "12.50").
		AssertNoText(forms.MsgPositiveNumber).
		AssertHasElement(enabledButton)
}

func TestEventForm_FieldRules(t *testing.T) {
	tests := []struct {
		field, value, message string
	}{
		{"title", "Gig!", forms.MsgAlphanumeric},
		{"title", "   ", forms.MsgAlphanumeric},
		{"description", "too short", forms.MsgDescription},
		{"city", "Lisbon 2", forms.MsgLettersOnly},
		{"date", "2026-05-31", forms.MsgDate},
		{"startTime", "24:00", forms.MsgTime},
		{"endTime", "7pm", forms.MsgTime},
		{"category", "Opera", forms.MsgCategory},
		{"seats", "12.5", forms.MsgWholeNumber},
		{"team", "A-Team", forms.MsgAlphanumeric},
	}

	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			a, _, _ := newTestApp()
			lvtest.Mount(t, a.NewEventForm()).
				Change(tt.field, tt.value).
				AssertText(tt.message).
				AssertHasElement(disabledButton)
		})
	}
}

func TestEventForm_DescriptionCharCount(t *testing.T) {
	a, _, _ := newTestApp()

	lvtest.Mount(t, a.NewEventForm()).
		AssertText("Description (char: 0)").
		Change("description", "Café by the sea").
		AssertText("Description (char: 15)").
		AssertNoText("(char: 0)")
}

func TestEventForm_TodayIsNotInThePast(t *testing.T) {
	a, _, _ := newTestApp()

	lvtest.Mount(t, a.NewEventForm()).
		Change("date", "2026-06-01").
		AssertNoText(forms.MsgDate)
}

func TestEventForm_ValidSubmissionAppendsOneRecord(t *testing.T) {
	a, list, _ := newTestApp()
	lvt := lvtest.Mount(t, a.NewEventForm())

	for field, value := range validEvent {
		lvt.Change(field, value)
	}
	lvt.AssertHasElement(enabledButton).AssertNotNavigated()

	lvt.Submit(validEvent).AssertNavigated(PathAddedEvent)

	records := list.All()
	require.Len(t, records, 1)
	r := records[0]
	_, err := uuid.Parse(r.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Summer Fest", r.Title)
	assert.Equal(t, 25.5, r.Price)
	assert.Equal(t, 100, r.Seats)
	assert.Equal(t, "Festival", r.Category)
	assert.Equal(t, "2026-07-01", r.Date)
}

func TestEventForm_SubmitWithMissingFieldsIsBlocked(t *testing.T) {
	a, list, _ := newTestApp()

	lvtest.Mount(t, a.NewEventForm()).
		Submit(map[string]string{"title": "Gig"}).
		AssertNotNavigated().
		AssertText("This field is required").
		AssertHasElement(disabledButton)

	assert.Zero(t, list.Len())
}

func TestEventForm_SubmitWithInvalidFieldIsBlocked(t *testing.T) {
	a, list, _ := newTestApp()

	data := make(map[string]string, len(validEvent))
	for k, v := range validEvent {
		data[k] = v
	}
	data["price"] = "free"

	lvtest.Mount(t, a.NewEventForm()).
		Submit(data).
		AssertNotNavigated().
		AssertText(forms.MsgPositiveNumber)

	assert.Zero(t, list.Len())
}

func TestEventForm_OverflowingNumbersAreFlagged(t *testing.T) {
	tests := []struct {
		field, value, message string
	}{
		{"seats", "99999999999999999999", forms.MsgSeatsRange},
		{"seats", "1000001", forms.MsgSeatsRange},
		{"price", "1" + strings.Repeat("0", 400), forms.MsgPriceRange},
		{"price", "1000000.5", forms.MsgPriceRange},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			a, list, _ := newTestApp()
			form := a.NewEventForm()

			lvtest.Mount(t, form).
				Change(tt.field, tt.value).
				AssertText(tt.message).
				AssertHasElement(disabledButton)
			assert.True(t, form.Form().Invalid(forms.FieldName(tt.field)))

			data := make(map[string]string, len(validEvent))
			for k, v := range validEvent {
				data[k] = v
			}
			data[tt.field] = tt.value

			lvt := lvtest.Mount(t, a.NewEventForm())
			require.NoError(t, lvt.SubmitErr(data), "an out-of-range value is a validation error, not a fault")
			lvt.AssertNotNavigated().AssertText(tt.message)
			assert.Zero(t, list.Len())
		})
	}
}

func TestEventForm_EachSubmissionGetsAFreshID(t *testing.T) {
	a, list, _ := newTestApp()

	lvtest.Mount(t, a.NewEventForm()).Submit(validEvent)
	lvtest.Mount(t, a.NewEventForm()).Submit(validEvent)

	records := list.All()
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestSchemas_EmptyStringIsNeverInvalid(t *testing.T) {
	schemas := []*forms.Schema{EventSchema(fixedNow, events.Categories), LogInSchema, SignUpSchema}

	for _, schema := range schemas {
		form := forms.NewForm(schema)
		for _, spec := range schema.Fields() {
			form.Change(spec.Name, "invalid value!")
			invalid, err := form.Change(spec.Name, "")
			require.NoError(t, err)
			assert.False(t, invalid, "%s.%s", schema.Name(), spec.Name)
		}
		assert.True(t, form.CanSubmit(), schema.Name())
	}
}

func TestSignUp_ThenLogIn(t *testing.T) {
	a, _, stores := newTestApp()
	sid := storage.NewSessionID()

	lvtest.Mount(t, a.NewSignUpForm(), session(sid)).
		Submit(map[string]string{
			"username":        "abc",
			"email":           "a@b.com",
			"password":        "secret",
			"confirmPassword": "secret",
		}).
		AssertNavigated(PathLogIn)

	store := stores.For(sid)
	for key, want := range map[string]string{
		auth.KeyUsername: `"abc"`,
		auth.KeyEmail:    `"a@b.com"`,
		auth.KeyPassword: `"secret"`,
	} {
		got, err := store.Get(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	lvtest.Mount(t, a.NewLogInForm(), session(sid)).
		Submit(map[string]string{"email": "a@b.com", "password": "secret"}).
		AssertNavigated(PathHome)
}

func TestSignUp_IsPerBrowser(t *testing.T) {
	a, _, _ := newTestApp()

	lvtest.Mount(t, a.NewSignUpForm(), session("browser-a")).
		Submit(map[string]string{
			"username":        "abc",
			"email":           "a@b.com",
			"password":        "secret",
			"confirmPassword": "secret",
		})

	lvt := lvtest.Mount(t, a.NewLogInForm(), session("browser-b"))
	err := lvt.SubmitErr(map[string]string{"email": "a@b.com", "password": "secret"})
	assert.ErrorIs(t, err, auth.ErrNoCredentials)
}

func TestSignUp_PasswordMismatch(t *testing.T) {
	a, _, _ := newTestApp()
	form := a.NewSignUpForm()

	lvt := lvtest.Mount(t, form).
		Change("password", "secret1").
		Change("confirmPassword", "secret2").
		AssertText(forms.MsgPasswordMatch).
		AssertHasElement(disabledButton)
	assert.True(t, form.Form().Invalid(forms.FieldConfirmPassword))

	// Fixing the password re-checks the confirmation.
	lvt.Change("password", "secret2").
		AssertNoText(forms.MsgPasswordMatch).
		AssertHasElement(enabledButton)
}

func TestSignUp_MismatchBlocksSubmit(t *testing.T) {
	a, _, stores := newTestApp()
	sid := storage.NewSessionID()

	lvtest.Mount(t, a.NewSignUpForm(), session(sid)).
		Submit(map[string]string{
			"username":        "abc",
			"email":           "a@b.com",
			"password":        "secret1",
			"confirmPassword": "secret2",
		}).
		AssertNotNavigated().
		AssertText(forms.MsgPasswordMatch)

	_, err := stores.For(sid).Get(context.Background(), auth.KeyPassword)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestLogIn_WithoutSignUpIsAFault(t *testing.T) {
	a, _, _ := newTestApp()
	lvt := lvtest.Mount(t, a.NewLogInForm(), session(storage.NewSessionID()))

	err := lvt.SubmitErr(map[string]string{"email": "a@b.com", "password": "secret"})

	assert.ErrorIs(t, err, auth.ErrNoCredentials)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	lvt.AssertNotNavigated()
}

func TestSessions_WithoutWritesKeepNoStore(t *testing.T) {
	a, _, stores := newTestApp()

	for i := 0; i < 100; i++ {
		sid := storage.NewSessionID()
		lvtest.Mount(t, a.NewLogInForm(), session(sid))
		lvtest.Mount(t, a.NewSignUpForm(), session(sid))

		err := lvtest.Mount(t, a.NewLogInForm(), session(sid)).
			SubmitErr(map[string]string{"email": "a@b.com", "password": "secret"})
		require.ErrorIs(t, err, auth.ErrNoCredentials)
	}
	assert.Zero(t, stores.Len(), "failed log-ins must not allocate a store")

	lvtest.Mount(t, a.NewSignUpForm(), session(storage.NewSessionID())).
		Submit(map[string]string{
			"username":        "abc",
			"email":           "a@b.com",
			"password":        "secret",
			"confirmPassword": "secret",
		})
	assert.Equal(t, 1, stores.Len())
}

func TestLogIn_WrongPasswordStaysSilent(t *testing.T) {
	a, _, stores := newTestApp()
	sid := storage.NewSessionID()

	svc := auth.NewService(stores.For(sid), nil)
	require.NoError(t, svc.SignUp(context.Background(), auth.Credentials{
		Username: "abc", Email: "a@b.com", Password: "secret",
	}))

	lvt := lvtest.Mount(t, a.NewLogInForm(), session(sid))
	err := lvt.SubmitErr(map[string]string{"email": "a@b.com", "password": "wrong1"})

	assert.NoError(t, err)
	lvt.AssertNotNavigated().AssertNoElement(`role="alert"`)
}

func TestLogIn_FormatChecks(t *testing.T) {
	a, _, _ := newTestApp()

	lvtest.Mount(t, a.NewLogInForm()).
		Change("email", "a@b").
		AssertText(forms.MsgEmail).
		Change("password", "abc").
		AssertText(forms.MsgPassword).
		AssertHasElement(disabledButton)
}

func TestForms_UnknownFieldAndEvent(t *testing.T) {
	a, _, _ := newTestApp()
	lvt := lvtest.Mount(t, a.NewSignUpForm())

	err := lvt.PushEvent(protocol.EventChange, map[string]any{"field": "title", "value": "x"})
	assert.ErrorIs(t, err, forms.ErrUnknownField)

	err = lvt.PushEvent(protocol.EventChange, map[string]any{"field": "nope", "value": "x"})
	assert.ErrorIs(t, err, forms.ErrUnknownField)

	err = lvt.PushEvent("click", nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestHome_ListsAndFollowsEvents(t *testing.T) {
	a, list, _ := newTestApp()
	ctx := context.Background()
	list.Append(ctx, events.Record{ID: events.NewID(), Title: "First Gig", Price: 10})

	home := a.NewHome()
	lvt := lvtest.Mount(t, home).
		AssertText("First Gig").
		AssertText("10.00")

	list.Append(ctx, events.Record{ID: events.NewID(), Title: "Second Gig"})
	select {
	case info := <-home.Infos():
		lvt.SendInfo(info).AssertText("Second Gig")
	default:
		t.Fatal("expected a notification for the appended record")
	}

	lvt.Terminate(core.TerminateNormal)
	list.Append(ctx, events.Record{ID: events.NewID(), Title: "Third Gig"})
	assert.Len(t, home.Infos(), 0)
}

func TestHome_Empty(t *testing.T) {
	a, _, _ := newTestApp()

	lvtest.Mount(t, a.NewHome()).AssertText("No events yet.")
}

func TestAddedEvent(t *testing.T) {
	lvtest.Mount(t, &AddedEvent{}).
		AssertText("Your event has been added.").
		AssertHasElement(`<a href="/">`)
}
