package persistence_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/persistence"
)

func memoryOptions() persistence.Options {
	return persistence.Options{
		Driver: accounts.DialectSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}
}

func TestOpenAndMigrateSeedsRoles(t *testing.T) {
	ctx := context.Background()

	db, err := persistence.OpenAndMigrate(ctx, memoryOptions(), nil)
	require.NoError(t, err)
	defer db.Close()

	roles, err := accounts.NewRolesRepository(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, accounts.RoleAdmin, roles[0].Name)
	assert.Equal(t, accounts.RoleUser, roles[1].Name)

	for _, table := range []string{"users", "oauth_strategies", "security_questions", "users_security_questions"} {
		var count int
		err := db.NewSelect().TableExpr(table).ColumnExpr("count(*)").Scan(ctx, &count)
		require.NoError(t, err, table)
		assert.Zero(t, count, table)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	opts := memoryOptions()

	db, err := persistence.OpenAndMigrate(ctx, opts, nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, persistence.Migrate(ctx, db, opts.Driver, nil))

	roles, err := accounts.NewRolesRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := persistence.Open(context.Background(), persistence.Options{Driver: "mysql"})
	assert.Error(t, err)

	_, err = accounts.MigrationsFor("mysql")
	assert.Error(t, err)
}
