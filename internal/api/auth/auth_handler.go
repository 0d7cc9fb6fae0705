package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-signup-auth/internal/api"
	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	if logger == nil {
		panic("auth: NewHandlerImpl called with nil logger")
	}
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register
// @Description  Creates a new account. Username and email must both be unused.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "New account"
// @Success      200 {object} MessageResponse "User registered"
// @Failure      400 {object} api.ErrorBody "Invalid input"
// @Failure      409 {object} api.ErrorBody "Username or email taken"
// @Failure      500 {object} api.ErrorBody "Internal Server Error"
// @Failure      503 {object} api.ErrorBody "Store unavailable"
// @Router       /register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.authService.Register(ctx, req.Username, req.Email, req.Password); err != nil {
		status, msg := registerErrorStatus(err)
		if status >= http.StatusInternalServerError {
			l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
		}
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, MessageResponse{Message: MsgRegistered})
}

// Login godoc
// @Summary      Login
// @Description  Exchanges email and password for a one-hour access token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} TokenResponse "Access token"
// @Failure      400 {object} api.ErrorBody "User not found, invalid credentials or invalid input"
// @Failure      500 {object} api.ErrorBody "Internal Server Error"
// @Failure      503 {object} api.ErrorBody "Store unavailable"
// @Router       /login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		status, msg := loginErrorStatus(err)
		if status >= http.StatusInternalServerError {
			l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		}
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, TokenResponse{Token: token})
}

func registerErrorStatus(err error) (int, string) {
	var ve *types.ValidationError
	var ce *types.ConflictError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.As(err, &ce):
		return http.StatusConflict, ce.Error()
	case errors.Is(err, types.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Registration failed"
	}
}

func loginErrorStatus(err error) (int, string) {
	var ve *types.ValidationError
	switch {
	case errors.Is(err, types.ErrUserNotFound):
		return http.StatusBadRequest, MsgUserNotFound
	case errors.Is(err, types.ErrInvalidCredentials):
		return http.StatusBadRequest, MsgInvalidCredentials
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, types.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Login failed"
	}
}
