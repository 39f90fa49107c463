package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_EveryMigrationHasUpAndDown(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		data, err := fs.ReadFile(FS, name)
		require.NoError(t, err)
		body := string(data)
		assert.True(t, strings.Contains(body, "-- +goose Up"), name)
		assert.True(t, strings.Contains(body, "-- +goose Down"), name)
	}
}

func TestFS_InitCreatesCascadingTracks(t *testing.T) {
	data, err := fs.ReadFile(FS, "00001_init.sql")
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, "REFERENCES releases (id) ON DELETE CASCADE")
	assert.Contains(t, body, "UNIQUE (release_id, position)")
	assert.Contains(t, body, "CREATE TABLE IF NOT EXISTS tickets")
}
