package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellopos/internal/http/errors"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
)

// HeaderAdminKey header con la admin key (también se acepta Authorization: Bearer).
const HeaderAdminKey = "X-Admin-Key"

// RequireAdminKey protege las rutas de mantenimiento. Con key vacía deja pasar
// todo (modo desarrollo).
func RequireAdminKey(key string) Middleware {
	if key == "" {
		logger.Named("http").Warn("admin key not configured, maintenance routes are open")
	}
	want := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			got := strings.TrimSpace(r.Header.Get(HeaderAdminKey))
			if got == "" {
				if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
					got = strings.TrimSpace(h[7:])
				}
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				errors.WriteError(w, r, errors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithNoStore agrega Cache-Control: no-store a la respuesta.
func WithNoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
