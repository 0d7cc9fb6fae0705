package dashboard

import (
	"errors"
	"log/slog"
	"net/http"

	appMiddleware "github.com/FACorreiaa/go-signup-auth/app/middleware"
	"github.com/FACorreiaa/go-signup-auth/internal/api"
	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetDashboard(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	dashboardService DashboardService
	logger           *slog.Logger
}

func NewHandlerImpl(dashboardService DashboardService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// GetDashboard godoc
// @Summary      Dashboard
// @Description  Protected resource. Returns the authenticated user's profile.
// @Tags         Dashboard
// @Produce      json
// @Success      200 {object} Dashboard "Dashboard"
// @Failure      403 {object} api.ErrorBody "Missing, invalid or expired token"
// @Failure      404 {object} api.ErrorBody "User not found"
// @Failure      503 {object} api.ErrorBody "Store unavailable"
// @Security     BearerAuth
// @Router       /dashboard [get]
func (h *HandlerImpl) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "GetDashboard"))

	userID, ok := appMiddleware.GetUserIDFromContext(ctx)
	if !ok {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusForbidden, "Authentication required")
		return
	}

	dash, err := h.dashboardService.GetDashboard(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		case errors.Is(err, types.ErrStoreUnavailable):
			l.ErrorContext(ctx, "Failed to load dashboard", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Service temporarily unavailable")
		default:
			l.ErrorContext(ctx, "Failed to load dashboard", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load dashboard")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, dash)
}
