package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

const (
	profileTTL      = 5 * time.Minute
	cleanupInterval = 10 * time.Minute
)

// UserLookup reads a user's public profile.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.UserAuth, error)
}

var _ DashboardService = (*DashboardServiceImpl)(nil)

type DashboardService interface {
	GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error)
}

type Dashboard struct {
	Message string         `json:"message" example:"Welcome to your dashboard, alice"`
	User    types.UserAuth `json:"user"`
}

// DashboardServiceImpl caches profiles in process. User records are never
// updated, so a cached entry can only be stale by its absence.
type DashboardServiceImpl struct {
	logger *slog.Logger
	users  UserLookup
	cache  *cache.Cache
}

func NewDashboardService(users UserLookup, logger *slog.Logger) *DashboardServiceImpl {
	return &DashboardServiceImpl{
		logger: logger,
		users:  users,
		cache:  cache.New(profileTTL, cleanupInterval),
	}
}

func (s *DashboardServiceImpl) GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	user, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Message: "Welcome to your dashboard, " + user.Username,
		User:    user,
	}, nil
}

func (s *DashboardServiceImpl) profile(ctx context.Context, userID uuid.UUID) (types.UserAuth, error) {
	key := userID.String()
	if cached, found := s.cache.Get(key); found {
		s.logger.DebugContext(ctx, "Profile cache hit", slog.String("user_id", key))
		return cached.(types.UserAuth), nil
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return types.UserAuth{}, err
	}
	public := u.Public()
	s.cache.Set(key, public, cache.DefaultExpiration)
	return public, nil
}
