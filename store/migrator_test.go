package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studydeck/internal/profile"
)

func TestSplitStatements(t *testing.T) {
	script := `-- system_setting
CREATE TABLE system_setting (
  name TEXT NOT NULL, -- key; value
  value TEXT NOT NULL DEFAULT 'a;b'
);
/* block; comment */
INSERT INTO system_setting (name, value) VALUES ('x', "y;z");

;`
	stmts := splitStatements(script)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "DEFAULT 'a;b'")
	assert.NotContains(t, stmts[0], "key; value")
	assert.Equal(t, `INSERT INTO system_setting (name, value) VALUES ('x', "y;z")`, stmts[1])

	assert.Empty(t, splitStatements("-- only a comment\n"))
}

func TestGetSchemaVersionOfMigrateScript(t *testing.T) {
	s := &Store{profile: &profile.Profile{Mode: "prod", Driver: "sqlite"}}

	tests := []struct {
		path string
		want string
	}{
		{"migration/sqlite/0.3/00__review_log_card_index.sql", "0.3.1"},
		{"migration/sqlite/0.4/11__add_column.sql", "0.4.12"},
	}
	for _, tt := range tests {
		got, err := s.getSchemaVersionOfMigrateScript(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := s.getSchemaVersionOfMigrateScript("migration/sqlite/0.3/missing_split.sql")
	assert.Error(t, err)
	_, err = s.getSchemaVersionOfMigrateScript("migration/sqlite/0.3/xx__bad.sql")
	assert.Error(t, err)
}

func TestShouldApplyMigration(t *testing.T) {
	assert.True(t, shouldApplyMigration("0.3.1", "", "0.3.1"))
	assert.True(t, shouldApplyMigration("0.3.1", "0.2.5", "0.3.1"))
	assert.False(t, shouldApplyMigration("0.3.1", "0.3.1", "0.3.1"))
	assert.False(t, shouldApplyMigration("0.4.1", "0.3.1", "0.3.1"))
}

func TestMigrationFilesPresent(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres", "mysql"} {
		_, err := migrationFS.ReadFile("migration/" + driver + "/" + LatestSchemaFileName)
		require.NoError(t, err, driver)
	}

	s := &Store{profile: &profile.Profile{Mode: "prod", Driver: "sqlite"}}
	current, err := s.GetCurrentSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", current)
}
