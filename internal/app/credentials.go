package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabrielmiguelok/eventboard/pkg/auth"
	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/forms"
	"github.com/gabrielmiguelok/eventboard/pkg/logging"
)

// LogInForm checks an email and password against the browser's stored
// credentials.
type LogInForm struct {
	formComponent
	app  *App
	auth *auth.Service
}

// NewLogInForm creates a log-in form.
func (a *App) NewLogInForm() *LogInForm {
	return &LogInForm{
		formComponent: formComponent{
			form: forms.NewForm(LogInSchema),
			page: formPage{
				title:  "Log in",
				action: PathLogIn,
				submit: "Log in",
				footer: &footerView{Text: "No account yet?", Link: "Sign up", Href: PathSignUp},
			},
		},
		app: a,
	}
}

func (l *LogInForm) Name() string { return "Log in" }

func (l *LogInForm) Mount(ctx context.Context, params core.Params, session core.Session) error {
	l.auth = l.app.credentials(session, l.app.logger)
	return nil
}

func (l *LogInForm) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return l.dispatch(ctx, event, payload, l.submit)
}

// submit navigates home on a match. A mismatch leaves the page as it is.
// Missing credentials are returned as an error.
func (l *LogInForm) submit(ctx context.Context) error {
	v := l.form.Values()

	err := l.auth.LogIn(ctx, v.Get(forms.FieldEmail), v.Get(forms.FieldPassword))
	switch {
	case err == nil:
		return l.Navigate(PathHome)
	case errors.Is(err, auth.ErrInvalidCredentials):
		logging.L(ctx).Debug("login rejected")
		return nil
	default:
		return fmt.Errorf("log in: %w", err)
	}
}

// SignUpForm stores a username, email and password in the browser's store.
type SignUpForm struct {
	formComponent
	app  *App
	auth *auth.Service
}

// NewSignUpForm creates a sign-up form.
func (a *App) NewSignUpForm() *SignUpForm {
	return &SignUpForm{
		formComponent: formComponent{
			form: forms.NewForm(SignUpSchema),
			page: formPage{
				title:  "Sign up",
				action: PathSignUp,
				submit: "Sign up",
				footer: &footerView{Text: "Already signed up?", Link: "Log in", Href: PathLogIn},
			},
		},
		app: a,
	}
}

func (s *SignUpForm) Name() string { return "Sign up" }

func (s *SignUpForm) Mount(ctx context.Context, params core.Params, session core.Session) error {
	s.auth = s.app.credentials(session, s.app.logger)
	return nil
}

func (s *SignUpForm) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return s.dispatch(ctx, event, payload, s.submit)
}

func (s *SignUpForm) submit(ctx context.Context) error {
	v := s.form.Values()

	err := s.auth.SignUp(ctx, auth.Credentials{
		Username: v.Get(forms.FieldUsername),
		Email:    v.Get(forms.FieldEmail),
		Password: v.Get(forms.FieldPassword),
	})
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	return s.Navigate(PathLogIn)
}
