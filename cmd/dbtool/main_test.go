package main

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"transit-map-service/internal/adapters/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestSeedCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "transit.db")
	seedPath := filepath.Join("..", "..", "data", "seeds", "routes.yaml")

	root := newRootCommand()
	root.SetArgs([]string{"seed", "--driver", "sqlite", "--database-url", dbPath, "--file", seedPath})
	require.NoError(t, root.ExecuteContext(context.Background()))

	conn, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	routes, err := repositories.NewSQLRouteRepository(conn, repositories.DialectSQLite).ListRoutes(context.Background())
	require.NoError(t, err)
	assert.Len(t, routes, 3)
}

func TestInitCommandRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	root := newRootCommand()
	root.SetArgs([]string{"init", "--driver", "sqlite", "--database-url", ""})
	root.SilenceErrors = true
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestInitCommandRejectsUnknownDriver(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"init", "--driver", "mysql", "--database-url", "x"})
	root.SilenceErrors = true
	assert.Error(t, root.ExecuteContext(context.Background()))
}
