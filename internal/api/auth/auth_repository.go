package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-signup-auth/app/observability/metrics"
	"github.com/FACorreiaa/go-signup-auth/config"
	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the credential store.
type AuthRepo interface {
	// InsertUser persists a new record and returns its id. The password must
	// already be hashed.
	InsertUser(ctx context.Context, username, email, hashedPassword string) (uuid.UUID, error)
	// GetUserByEmail returns the full record, hash included, or types.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.UserAuth, error)
}

// DB is the part of *pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"

	retryBackoff = 100 * time.Millisecond
)

type PostgresAuthRepo struct {
	logger       *slog.Logger
	db           DB
	metrics      *metrics.AppMetrics
	queryTimeout time.Duration
	maxRetries   int
}

func NewPostgresAuthRepo(db DB, cfg config.PostgresConfig, m *metrics.AppMetrics, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger:       logger,
		db:           db,
		metrics:      m,
		queryTimeout: cfg.QueryTimeout,
		maxRetries:   cfg.MaxRetries,
	}
}

func (r *PostgresAuthRepo) InsertUser(ctx context.Context, username, email, hashedPassword string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "InsertUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.operation", "INSERT"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "InsertUser"))

	if err := requireFields("username", username, "email", email, "password", hashedPassword); err != nil {
		span.SetStatus(codes.Error, "empty field")
		return uuid.Nil, err
	}

	var id uuid.UUID
	err := r.queryRow(ctx, "insert_user",
		`INSERT INTO users (username, email, password) VALUES ($1, $2, $3) RETURNING id`,
		[]any{username, email, hashedPassword}, &id)
	if err != nil {
		err = mapPgError("insert user", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if errors.Is(err, types.ErrStoreUnavailable) {
			l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		} else {
			l.DebugContext(ctx, "User insert rejected", slog.Any("error", err))
		}
		return uuid.Nil, err
	}

	span.SetAttributes(attribute.String("user.id", id.String()))
	span.SetStatus(codes.Ok, "")
	l.InfoContext(ctx, "User inserted", slog.String("user_id", id.String()))
	return id, nil
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.operation", "SELECT"),
	))
	defer span.End()

	var u types.UserAuth
	err := r.queryRow(ctx, "get_user_by_email",
		`SELECT id, username, email, password, created_at FROM users WHERE email = $1`,
		[]any{email}, &u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		err = mapPgError("get user by email", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		if errors.Is(err, types.ErrStoreUnavailable) {
			r.logger.ErrorContext(ctx, "Failed to look up user by email", slog.Any("error", err))
		}
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &u, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("user.id", id.String()),
	))
	defer span.End()

	var u types.UserAuth
	err := r.queryRow(ctx, "get_user_by_id",
		`SELECT id, username, email, created_at FROM users WHERE id = $1`,
		[]any{id}, &u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		err = mapPgError("get user by id", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		if errors.Is(err, types.ErrStoreUnavailable) {
			r.logger.ErrorContext(ctx, "Failed to look up user by id", slog.Any("error", err))
		}
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &u, nil
}

// queryRow runs a single-row query with a bounded timeout per attempt. Only
// errors pgconn reports as safe to retry (the statement never reached the
// server) are retried, so an insert is never applied twice.
func (r *PostgresAuthRepo) queryRow(ctx context.Context, op, sql string, args []any, dest ...any) error {
	opAttr := metric.WithAttributes(attribute.String("db.operation", op))

	var err error
	for attempt := 0; ; attempt++ {
		start := time.Now()
		qctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
		err = r.db.QueryRow(qctx, sql, args...).Scan(dest...)
		cancel()
		r.metrics.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), opAttr)

		if err == nil || attempt >= r.maxRetries || !pgconn.SafeToRetry(err) {
			break
		}

		r.logger.WarnContext(ctx, "Retrying query after transient error",
			slog.String("operation", op),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}

	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.metrics.DbQueryErrorsTotal.Add(ctx, 1, opAttr)
	}
	return err
}

// mapPgError translates driver errors into the types taxonomy. Raw driver
// text only survives behind ErrStoreUnavailable, for logs.
func mapPgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &types.ConflictError{Field: conflictField(pgErr.ConstraintName)}
		case pgNotNullViolation:
			return &types.ValidationError{Field: pgErr.ColumnName, Reason: "must not be empty"}
		}
	}

	return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
}

// requireFields takes name/value pairs and reports the first blank value.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &types.ValidationError{Field: pairs[i], Reason: "must not be empty"}
		}
	}
	return nil
}

func conflictField(constraint string) string {
	switch constraint {
	case "users_email_key":
		return "email"
	case "users_username_key":
		return "username"
	default:
		return ""
	}
}
