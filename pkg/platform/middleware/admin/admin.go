package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	request "molecule/pkg/platform/middleware/request"
	"molecule/pkg/requestcontext"
)

// HeaderAdminToken carries the shared administrative secret.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken guards registry and list mutations behind a shared token.
// An empty expected token rejects every request.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAdminToken)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			ctx := requestcontext.WithActor(r.Context(), "admin")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
