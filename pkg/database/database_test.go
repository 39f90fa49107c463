package database

import (
	"testing"

	"kedoo/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDB_ForeignKeysOn(t *testing.T) {
	db, err := NewSQLiteDB("file:database_fk?mode=memory&cache=shared")
	require.NoError(t, err)

	var enabled int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error)
	assert.Equal(t, 1, enabled)
}

func TestNewDB_SQLiteDriver(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", SQLitePath: "file:database_driver?mode=memory&cache=shared"}

	db, err := NewDB(cfg)
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestNewDB_UnknownDriver(t *testing.T) {
	_, err := NewDB(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
