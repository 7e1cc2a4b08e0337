// Package dbtest provides an in-memory SQLite database with the full schema
// for package tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/artisanmarket/promo-engine/internal/database"
)

// New opens a fresh, isolated in-memory database and closes it when the test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.OpenDB(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
