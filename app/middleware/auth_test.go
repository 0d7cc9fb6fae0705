package appMiddleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

type stubVerifier map[string]error

var goodID = uuid.MustParse("7b0e5f0c-3a59-4d2b-9d6e-3f1c2a4b5c6d")

func (s stubVerifier) VerifyToken(_ context.Context, token string) (uuid.UUID, error) {
	if err, ok := s[token]; ok {
		return uuid.Nil, err
	}
	if token == "good" {
		return goodID, nil
	}
	return uuid.Nil, types.ErrTokenInvalid
}

func TestAuthenticate(t *testing.T) {
	verifier := stubVerifier{
		"old": fmt.Errorf("%w: token is expired", types.ErrTokenExpired),
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{name: "valid", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK},
		{name: "missing", header: "", wantStatus: http.StatusForbidden, wantError: "Authorization header required"},
		{name: "no scheme", header: "good", wantStatus: http.StatusForbidden, wantError: "Authorization header format must be Bearer {token}"},
		{name: "basic scheme", header: "Basic Z29vZA==", wantStatus: http.StatusForbidden, wantError: "Authorization header format must be Bearer {token}"},
		{name: "expired", header: "Bearer old", wantStatus: http.StatusForbidden, wantError: "Token has expired"},
		{name: "invalid", header: "Bearer forged", wantStatus: http.StatusForbidden, wantError: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen uuid.UUID
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, ok := GetUserIDFromContext(r.Context())
				require.True(t, ok)
				seen = id
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(verifier, slog.Default())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError == "" {
				assert.Equal(t, goodID, seen)
				return
			}
			assert.Equal(t, uuid.Nil, seen)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestGetUserIDFromContext(t *testing.T) {
	_, ok := GetUserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = GetUserIDFromContext(WithUserID(context.Background(), uuid.Nil))
	assert.False(t, ok)

	id := uuid.New()
	got, ok := GetUserIDFromContext(WithUserID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
