package router

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/eventboard/pkg/storage"
)

// SessionCookieName names the per-browser session cookie.
const SessionCookieName = "eventboard_sid"

type sessionIDKey struct{}

// SessionIDFromContext returns the browser session id, or "".
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// ContextWithSessionID stores a browser session id in ctx.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// Sessions makes sure every request carries a browser session id. A
// missing or malformed cookie is replaced with a fresh one. The cookie is
// the only link between a browser and its store, so it lives as long as
// the browser keeps it.
func Sessions() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookieName); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}

			if id == "" {
				id = storage.NewSessionID()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					Secure:   r.TLS != nil,
				})
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSessionID(r.Context(), id)))
		})
	}
}
