package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	dErrors "voxguard/pkg/domain-errors"
	"voxguard/pkg/platform/httputil"
	"voxguard/pkg/requestcontext"
)

const (
	HeaderToken = "X-Admin-Token"
	HeaderActor = "X-Admin-Actor"

	defaultActor = "admin"
)

// RequireAdminToken guards operator endpoints. The optional X-Admin-Actor
// header names the initiator recorded in audit entries.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get(HeaderToken)
			// Use constant-time comparison to prevent timing attacks
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			actor := strings.TrimSpace(r.Header.Get(HeaderActor))
			if actor == "" {
				actor = defaultActor
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActorID(ctx, actor)))
		})
	}
}
