package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/shop?sslmode=disable", migrateURL("postgres://u:p@localhost:5432/shop?sslmode=disable"))
	assert.Equal(t, "pgx5://localhost/shop", migrateURL("postgresql://localhost/shop"))
	assert.Equal(t, "pgx5://localhost/shop", migrateURL("pgx5://localhost/shop"))
}

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestInitialMigrationNotifiesOrderChannel(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/0001_orders.up.sql")
	require.NoError(t, err)
	sql := string(raw)
	assert.Contains(t, sql, "pg_notify('"+orderChannel+"'")
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS order_items")
}

func TestParseNotification(t *testing.T) {
	n, err := parseNotification(`{"op":"UPDATE","id":"3f0c"}`)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE", n.Op)
	assert.Equal(t, "3f0c", n.ID)

	_, err = parseNotification(`{"op":"DELETE"}`)
	assert.Error(t, err)

	_, err = parseNotification(`not json`)
	assert.Error(t, err)
}
