package migrations_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_MatchAcrossDrivers(t *testing.T) {
	lite, err := migrations.Versions(database.DriverSQLite)
	require.NoError(t, err)
	pg, err := migrations.Versions(database.DriverPostgres)
	require.NoError(t, err)

	assert.Equal(t, []string{"0001_subscriptions", "0002_outbox", "0003_plan_change_workflows"}, lite)
	assert.Equal(t, lite, pg)
}

func TestApply_SQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := sqlite.Open(ctx, database.Config{SQLitePath: sqlite.MemoryPath})
	require.NoError(t, err)
	defer conn.Close()

	ran, err := migrations.Apply(ctx, conn)
	require.NoError(t, err)
	assert.Len(t, ran, 3)

	ran, err = migrations.Apply(ctx, conn)
	require.NoError(t, err)
	assert.Empty(t, ran)

	for _, table := range []string{"subscriptions", "subscription_devices", "monthly_selections", "outbox", "plan_change_workflows"} {
		var n int
		err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}
