// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/nimbuswolf/finance-api/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB returns a migrated in-memory database closed at the end of t.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() { _ = database.CloseDB(db) })
	return db
}
