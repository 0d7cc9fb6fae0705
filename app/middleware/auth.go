package appMiddleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-signup-auth/internal/api"
	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (uuid.UUID, error)
}

// Authenticate guards protected routes. Requests without a valid, unexpired
// Bearer token are answered with 403 and never reach next.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				l.DebugContext(ctx, "Missing Authorization header")
				api.ErrorResponse(w, r, http.StatusForbidden, "Authorization header required")
				return
			}

			headerParts := strings.Fields(authHeader)
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
				l.DebugContext(ctx, "Invalid Authorization header format")
				api.ErrorResponse(w, r, http.StatusForbidden, "Authorization header format must be Bearer {token}")
				return
			}

			userID, err := verifier.VerifyToken(ctx, headerParts[1])
			if err != nil {
				l.InfoContext(ctx, "Token rejected", slog.Any("error", err))
				errMsg := "Invalid token"
				if errors.Is(err, types.ErrTokenExpired) {
					errMsg = "Token has expired"
				}
				api.ErrorResponse(w, r, http.StatusForbidden, errMsg)
				return
			}

			ctx = WithUserID(ctx, userID)
			l.DebugContext(ctx, "Authentication successful", slog.String("user_id", userID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
