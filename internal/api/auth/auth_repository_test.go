package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-signup-auth/app/observability/metrics"
	"github.com/FACorreiaa/go-signup-auth/config"
	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

// transientErr looks like a connection failure that never reached the server.
type transientErr struct{}

func (transientErr) Error() string { return "connection reset" }
func (transientErr) SafeToRetry() bool { return true }

func newMockRepo(t *testing.T, maxRetries int) (*PostgresAuthRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	m, err := metrics.InitAppMetrics()
	require.NoError(t, err)

	cfg := config.PostgresConfig{QueryTimeout: time.Second, MaxRetries: maxRetries}
	return NewPostgresAuthRepo(mockPool, cfg, m, slog.Default()), mockPool
}

func TestInsertUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 0)
		id := uuid.New()
		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("alice", "a@x.io", "hash").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

		got, err := repo.InsertUser(ctx, "alice", "a@x.io", "hash")
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 0)
		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("bob", "a@x.io", "hash").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		_, err := repo.InsertUser(ctx, "bob", "a@x.io", "hash")
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrConflict)
		var ce *types.ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "email", ce.Field)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 0)
		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("alice", "b@x.io", "hash").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

		_, err := repo.InsertUser(ctx, "alice", "b@x.io", "hash")
		var ce *types.ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "username", ce.Field)
		assert.Equal(t, "username already exists", ce.Error())
	})

	t.Run("EmptyFieldNeverReachesStore", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 0)

		_, err := repo.InsertUser(ctx, "alice", "  ", "hash")
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrValidation)
		var ve *types.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "email", ve.Field)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("StoreDown", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 2)
		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("alice", "a@x.io", "hash").
			WillReturnError(errors.New("server closed the connection unexpectedly"))

		_, err := repo.InsertUser(ctx, "alice", "a@x.io", "hash")
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrStoreUnavailable)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetUserByEmail(t *testing.T) {
	ctx := context.Background()
	cols := []string{"id", "username", "email", "password", "created_at"}

	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 0)
		id := uuid.New()
		created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		mockPool.ExpectQuery("SELECT id, username, email, password, created_at FROM users WHERE email").
			WithArgs("a@x.io").
			WillReturnRows(pgxmock.NewRows(cols).AddRow(id, "alice", "a@x.io", "hash", created))

		u, err := repo.GetUserByEmail(ctx, "a@x.io")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "hash", u.Password)
		assert.Equal(t, created, u.CreatedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 0)
		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("A@x.io").
			WillReturnRows(pgxmock.NewRows(cols))

		u, err := repo.GetUserByEmail(ctx, "A@x.io")
		assert.Nil(t, u)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("RetriesTransientFailure", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 1)
		id := uuid.New()
		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("a@x.io").
			WillReturnError(transientErr{})
		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("a@x.io").
			WillReturnRows(pgxmock.NewRows(cols).AddRow(id, "alice", "a@x.io", "hash", time.Now()))

		u, err := repo.GetUserByEmail(ctx, "a@x.io")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("GivesUpAfterMaxRetries", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 1)
		for range 2 {
			mockPool.ExpectQuery("SELECT (.+) FROM users WHERE email").
				WithArgs("a@x.io").
				WillReturnError(transientErr{})
		}

		_, err := repo.GetUserByEmail(ctx, "a@x.io")
		assert.ErrorIs(t, err, types.ErrStoreUnavailable)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetUserByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 0)
		id := uuid.New()
		mockPool.ExpectQuery("SELECT id, username, email, created_at FROM users WHERE id").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "created_at"}).
				AddRow(id, "alice", "a@x.io", time.Now()))

		u, err := repo.GetUserByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.Empty(t, u.Password)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t, 0)
		id := uuid.New()
		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "created_at"}))

		_, err := repo.GetUserByID(ctx, id)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}
