package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithMigrations(t *testing.T) {
	t.Run("creates schema", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		for _, table := range []string{"schema_migrations", "entities", "relationships"} {
			var count int
			err = db.QueryRow(
				"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
			).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "table %s should exist after migrations", table)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		db.Close()

		// opening again skips applied migrations
		db, err = OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		var applied int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied)
		require.NoError(t, err)
		assert.Equal(t, 2, applied)
	})
}
