//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Stockpulse/internal/domain/user"
	"github.com/NordCoder/Stockpulse/internal/repository/storetest"
	"github.com/NordCoder/Stockpulse/migrations"
)

func itDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("IT_DB_DSN")
	if dsn == "" {
		t.Skip("IT_DB_DSN not set")
	}
	return dsn
}

func migrate(t *testing.T, dsn string) {
	t.Helper()
	sqlDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(sqlDB, "."))
}

func TestUserRepo_Contract(t *testing.T) {
	dsn := itDSN(t)
	migrate(t, dsn)

	ctx := context.Background()
	db, err := New(ctx, Config{DSN: dsn, MaxConns: 4, QueryTimeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	storetest.Run(t, func(t *testing.T) user.Store {
		_, err := db.Pool.Exec(ctx, `TRUNCATE users`)
		require.NoError(t, err)
		return NewUserRepo(db)
	})
}

func TestUserRepo_NonUUIDIsNotFound(t *testing.T) {
	dsn := itDSN(t)
	migrate(t, dsn)

	ctx := context.Background()
	db, err := New(ctx, Config{DSN: dsn, QueryTimeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = NewUserRepo(db).GetByID(ctx, "alice")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserRepo_QueryTimeoutSurfaces(t *testing.T) {
	dsn := itDSN(t)
	migrate(t, dsn)

	ctx := context.Background()
	db, err := New(ctx, Config{DSN: dsn, QueryTimeout: time.Nanosecond})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = NewUserRepo(db).GetByUsername(ctx, "alice")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
