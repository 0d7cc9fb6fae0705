package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-signup-auth/app/observability/metrics"
	"github.com/FACorreiaa/go-signup-auth/config"
	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

// bcrypt ignores everything past 72 bytes; longer passwords are rejected
// rather than silently truncated.
const maxPasswordBytes = 72

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (uuid.UUID, error)
	Login(ctx context.Context, email, password string) (string, error)
	VerifyToken(ctx context.Context, token string) (uuid.UUID, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.UserAuth, error)
}

type AuthServiceImpl struct {
	logger  *slog.Logger
	repo    AuthRepo
	tokens  *TokenCodec
	metrics *metrics.AppMetrics

	bcryptCost       int
	unifyLoginErrors bool
	dummyHash        []byte
}

func NewAuthService(repo AuthRepo, tokens *TokenCodec, cfg config.AuthConfig, m *metrics.AppMetrics, logger *slog.Logger) *AuthServiceImpl {
	s := &AuthServiceImpl{
		logger:           logger,
		repo:             repo,
		tokens:           tokens,
		metrics:          m,
		bcryptCost:       cfg.BcryptCost,
		unifyLoginErrors: cfg.UnifyLoginErrors,
	}
	if cfg.UnifyLoginErrors {
		// unknown emails pay for one comparison too, so timing does not
		// reveal whether the account exists
		hash, err := bcrypt.GenerateFromPassword([]byte("no-such-user"), cfg.BcryptCost)
		if err != nil {
			logger.Error("Failed to precompute dummy hash", slog.Any("error", err))
		}
		s.dummyHash = hash
	}
	return s
}

// Register validates input, hashes the password once and stores the record.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register")
	defer span.End()
	start := time.Now()

	id, err := s.register(ctx, username, email, password)

	s.record(ctx, s.metrics.RegisterRequestsTotal, s.metrics.RegisterDurationSeconds, start, err)
	finishSpan(span, err)
	return id, err
}

func (s *AuthServiceImpl) register(ctx context.Context, username, email, password string) (uuid.UUID, error) {
	l := s.logger.With(slog.String("method", "Register"))

	if err := requireFields("username", username, "email", email, "password", password); err != nil {
		return uuid.Nil, err
	}
	if len(password) > maxPasswordBytes {
		return uuid.Nil, &types.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.repo.InsertUser(ctx, username, email, string(hashed))
	if err != nil {
		l.InfoContext(ctx, "Registration failed", slog.Any("error", err))
		return uuid.Nil, err
	}

	l.InfoContext(ctx, "User registered", slog.String("user_id", id.String()))
	return id, nil
}

// Login checks the password against the stored hash and issues an access token.
// Unknown emails fail with types.ErrUserNotFound unless login errors are
// unified, in which case both failures are types.ErrInvalidCredentials.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()
	start := time.Now()

	token, err := s.login(ctx, email, password)

	s.record(ctx, s.metrics.LoginRequestsTotal, s.metrics.LoginDurationSeconds, start, err)
	finishSpan(span, err)
	return token, err
}

func (s *AuthServiceImpl) login(ctx context.Context, email, password string) (string, error) {
	l := s.logger.With(slog.String("method", "Login"))

	if err := requireFields("email", email, "password", password); err != nil {
		return "", err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			return "", err
		}
		l.DebugContext(ctx, "Login for unknown email")
		if s.unifyLoginErrors {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return "", types.ErrInvalidCredentials
		}
		return "", types.ErrUserNotFound
	}

	// bcrypt compares only the first 72 bytes, so a longer candidate could
	// match a stored password it merely starts with
	if len(password) > maxPasswordBytes {
		return "", types.ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			l.ErrorContext(ctx, "Stored password hash is unusable",
				slog.String("user_id", user.ID.String()), slog.Any("error", err))
		}
		return "", types.ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue token", slog.Any("error", err))
		return "", err
	}

	l.InfoContext(ctx, "User logged in", slog.String("user_id", user.ID.String()))
	return token, nil
}

// VerifyToken returns the user id carried by a valid, unexpired token.
func (s *AuthServiceImpl) VerifyToken(ctx context.Context, token string) (uuid.UUID, error) {
	id, err := s.tokens.Parse(token)

	outcome := "valid"
	switch {
	case errors.Is(err, types.ErrTokenExpired):
		outcome = "expired"
	case err != nil:
		outcome = "invalid"
	}
	s.metrics.TokenVerificationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	return id, err
}

// GetUserByID returns the stored profile without its password hash.
func (s *AuthServiceImpl) GetUserByID(ctx context.Context, id uuid.UUID) (*types.UserAuth, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	public := u.Public()
	return &public, nil
}

func (s *AuthServiceImpl) record(ctx context.Context, counter metric.Int64Counter, hist metric.Float64Histogram, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcomeOf(err)))
	counter.Add(ctx, 1, attrs)
	hist.Record(ctx, time.Since(start).Seconds(), attrs)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, types.ErrValidation):
		return "validation"
	case errors.Is(err, types.ErrConflict):
		return "conflict"
	case errors.Is(err, types.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, types.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcomeOf(err))
		return
	}
	span.SetStatus(codes.Ok, "")
}
