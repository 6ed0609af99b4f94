package app

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/eventboard/pkg/router"
)

func newTestServer(t *testing.T) (http.Handler, *App) {
	t.Helper()
	a, _, _ := newTestApp()

	r := router.New(router.Options{Layout: Layout})
	r.Use(router.SecureHeaders(), router.Sessions())
	a.Register(r)
	return r, a
}

func TestRegister_ServesEveryPage(t *testing.T) {
	h, _ := newTestServer(t)

	for path, text := range map[string]string{
		PathHome:       "No events yet.",
		PathAddEvent:   `name="description"`,
		PathAddedEvent: "Your event has been added.",
		PathLogIn:      `name="password"`,
		PathSignUp:     `name="confirmPassword"`,
	} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, text)
			assert.Contains(t, body, `<script src="/_live/eventboard.js" defer></script>`)
			assert.Contains(t, body, `data-live-path="`+path+`"`)
			assert.Contains(t, body, `<style nonce="`)
		})
	}
}

func post(h http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegister_SignUpAndLogInWithoutScript(t *testing.T) {
	h, _ := newTestServer(t)

	rec := post(h, PathSignUp, url.Values{
		"username":        {"abc"},
		"email":           {"a@b.com"},
		"password":        {"secret"},
		"confirmPassword": {"secret"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, PathLogIn, rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, router.SessionCookieName, cookies[0].Name)

	rec = post(h, PathLogIn, url.Values{"email": {"a@b.com"}, "password": {"secret"}}, cookies[0])
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, PathHome, rec.Header().Get("Location"))
}

func TestRegister_LogInWithoutSignUpFails(t *testing.T) {
	h, _ := newTestServer(t)

	rec := post(h, PathLogIn, url.Values{"email": {"a@b.com"}, "password": {"secret"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRegister_InvalidSubmitRerenders(t *testing.T) {
	h, _ := newTestServer(t)

	rec := post(h, PathSignUp, url.Values{
		"username":        {"abc"},
		"email":           {"a@b.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret2"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")
	assert.Contains(t, rec.Body.String(), `value="abc"`)
	assert.Contains(t, rec.Body.String(), disabledButton)
}

func TestRegister_AddEventShowsOnHome(t *testing.T) {
	h, _ := newTestServer(t)

	form := url.Values{}
	for k, v := range validEvent {
		form.Set(k, v)
	}
	rec := post(h, PathAddEvent, form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, PathAddedEvent, rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathHome, nil))
	assert.Contains(t, rec.Body.String(), "Summer Fest")
}
