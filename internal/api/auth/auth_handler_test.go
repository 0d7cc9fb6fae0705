package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (uuid.UUID, error) {
	args := m.Called(ctx, username, email, password)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) VerifyToken(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*types.UserAuth, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func doJSON(t *testing.T, h http.HandlerFunc, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHandlerRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		callsSvc   bool
		wantStatus int
		wantKey    string
		wantValue  string
	}{
		{
			name:       "Success",
			body:       `{"username":"alice","email":"a@x.io","password":"pw1"}`,
			callsSvc:   true,
			wantStatus: http.StatusOK,
			wantKey:    "message",
			wantValue:  "User registered successfully",
		},
		{
			name:       "Conflict",
			body:       `{"username":"bob","email":"a@x.io","password":"pw2"}`,
			serviceErr: &types.ConflictError{Field: "email"},
			callsSvc:   true,
			wantStatus: http.StatusConflict,
			wantKey:    "error",
			wantValue:  "email already exists",
		},
		{
			name:       "Validation",
			body:       `{"username":"","email":"a@x.io","password":"pw1"}`,
			serviceErr: &types.ValidationError{Field: "username", Reason: "must not be empty"},
			callsSvc:   true,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
			wantValue:  "username must not be empty",
		},
		{
			name:       "StoreUnavailable",
			body:       `{"username":"alice","email":"a@x.io","password":"pw1"}`,
			serviceErr: errors.Join(types.ErrStoreUnavailable, errors.New("dial tcp 10.0.0.5:5432: i/o timeout")),
			callsSvc:   true,
			wantStatus: http.StatusServiceUnavailable,
			wantKey:    "error",
			wantValue:  "Service temporarily unavailable",
		},
		{
			name:       "Unexpected",
			body:       `{"username":"alice","email":"a@x.io","password":"pw1"}`,
			serviceErr: errors.New("boom"),
			callsSvc:   true,
			wantStatus: http.StatusInternalServerError,
			wantKey:    "error",
			wantValue:  "Registration failed",
		},
		{
			name:       "BadJSON",
			body:       `{"username":`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
			wantValue:  "body contains badly-formed JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			h := NewHandlerImpl(svc, slog.Default())
			if tt.callsSvc {
				svc.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(uuid.New(), tt.serviceErr).Once()
			}

			status, body := doJSON(t, h.Register, "/register", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantValue, body[tt.wantKey])
			svc.AssertExpectations(t)

			// raw store text never reaches the client
			if msg, ok := body["error"].(string); ok {
				assert.NotContains(t, msg, "dial tcp")
			}
		})
	}
}

func TestHandlerLogin(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{name: "UserNotFound", serviceErr: types.ErrUserNotFound, wantStatus: http.StatusBadRequest, wantError: "User not found"},
		{name: "InvalidCredentials", serviceErr: types.ErrInvalidCredentials, wantStatus: http.StatusBadRequest, wantError: "Invalid credentials"},
		{name: "StoreUnavailable", serviceErr: types.ErrStoreUnavailable, wantStatus: http.StatusServiceUnavailable, wantError: "Service temporarily unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			h := NewHandlerImpl(svc, slog.Default())
			svc.On("Login", mock.Anything, "a@x.io", "pw1").Return("", tt.serviceErr).Once()

			status, body := doJSON(t, h.Login, "/login", `{"email":"a@x.io","password":"pw1"}`)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantError, body["error"])
			assert.NotContains(t, body, "token")
			svc.AssertExpectations(t)
		})
	}

	t.Run("Success", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewHandlerImpl(svc, slog.Default())
		svc.On("Login", mock.Anything, "a@x.io", "pw1").Return("signed.jwt.token", nil).Once()

		status, body := doJSON(t, h.Login, "/login", `{"email":"a@x.io","password":"pw1"}`)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, map[string]any{"token": "signed.jwt.token"}, body)
	})
}

// Full flow through the real service over the in-memory store.
func TestHandler_RegisterThenLogin(t *testing.T) {
	repo := NewMemoryAuthRepo()
	service := newTestService(t, repo, false)
	h := NewHandlerImpl(service, slog.Default())

	status, body := doJSON(t, h.Register, "/register", `{"username":"alice","email":"a@x.io","password":"pw1"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User registered successfully", body["message"])

	status, body = doJSON(t, h.Login, "/login", `{"email":"a@x.io","password":"pw1"}`)
	require.Equal(t, http.StatusOK, status)
	token, ok := body["token"].(string)
	require.True(t, ok)

	id, err := service.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	stored, err := repo.GetUserByEmail(context.Background(), "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, id)

	status, body = doJSON(t, h.Login, "/login", `{"email":"a@x.io","password":"wrong"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid credentials", body["error"])

	status, body = doJSON(t, h.Login, "/login", `{"email":"nobody@x.io","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User not found", body["error"])

	status, _ = doJSON(t, h.Register, "/register", `{"username":"bob","email":"a@x.io","password":"pw2"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 1, repo.Len())
}
