package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"scanx/internal/models"
)

// DefaultCookieName: cookie с токеном сессии дашборда.
const DefaultCookieName = "scanx_token"

type ctxKey struct{}

// FromContext: личность администратора, положенная Gate.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Gate пропускает запрос только с действительным токеном:
// сначала cookie, затем заголовок Authorization: Bearer.
func Gate(tokens *Tokens, cookieName string) mux.MiddlewareFunc {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := credential(r, cookieName)
			if raw == "" {
				deny(w, "Access denied. No token provided.", false)
				return
			}
			id, err := tokens.Parse(raw)
			switch {
			case errors.Is(err, ErrExpiredToken):
				deny(w, "Token expired. Please sign in again.", true)
				return
			case err != nil:
				deny(w, "Invalid token. Please sign in again.", false)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func credential(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func deny(w http.ResponseWriter, msg string, expired bool) {
	models.WriteJSON(w, http.StatusUnauthorized, models.ErrorBody{
		Message: msg,
		Logout:  true,
		Expired: expired,
	})
}
