// Package databasetest opens throwaway sqlite databases for repository tests.
package databasetest

import (
	"testing"

	"kedoo/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenMemory opens a private in-memory sqlite database migrated for models.
// The database disappears with t.
func OpenMemory(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()

	db, err := database.NewSQLiteDB("file:mem_" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err, "open memory db")
	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...), "migrate memory db")
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
