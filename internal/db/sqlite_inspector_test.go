package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteClient {
	t.Helper()
	ctx := context.Background()

	c, err := NewSQLiteClient(ctx, filepath.Join(t.TempDir(), "inspect.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(ctx) })
	return c
}

func TestSQLiteInspect(t *testing.T) {
	ctx := context.Background()
	c := openTestSQLite(t)

	for _, stmt := range []string{
		`CREATE TABLE "Users" ("Id" TEXT NOT NULL, "Email" TEXT NULL, CONSTRAINT "PK_Users" PRIMARY KEY ("Id"))`,
		`CREATE TABLE "UserRoles" (
			"UserId" TEXT NOT NULL,
			"RoleName" TEXT NOT NULL,
			CONSTRAINT "PK_UserRoles" PRIMARY KEY ("UserId", "RoleName"),
			CONSTRAINT "FK_UserRoles_Users_UserId" FOREIGN KEY ("UserId") REFERENCES "Users" ("Id") ON DELETE CASCADE
		)`,
		`CREATE UNIQUE INDEX "EmailIndex" ON "Users" ("Email") WHERE "Email" IS NOT NULL`,
	} {
		require.NoError(t, c.Exec(ctx, stmt))
	}

	snap, err := c.Inspect(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tables, 2)

	roles, ok := snap.Table("userroles")
	require.True(t, ok)
	assert.Equal(t, []string{"UserId", "RoleName"}, roles.PrimaryKey)
	require.Len(t, roles.ForeignKeys, 1)
	assert.Equal(t, "Users", roles.ForeignKeys[0].TargetTable)
	assert.Equal(t, []string{"UserId"}, roles.ForeignKeys[0].Columns)
	assert.Equal(t, []string{"Id"}, roles.ForeignKeys[0].TargetColumns)
	assert.Equal(t, "CASCADE", roles.ForeignKeys[0].OnDelete)
	assert.Empty(t, roles.Indexes, "primary key autoindex is not reported")

	users, ok := snap.Table("Users")
	require.True(t, ok)
	require.Len(t, users.Columns, 2)
	assert.False(t, users.Columns[0].Nullable)
	assert.True(t, users.Columns[1].Nullable)
	require.Len(t, users.Indexes, 1)
	assert.Equal(t, "EmailIndex", users.Indexes[0].Name)
	assert.True(t, users.Indexes[0].IsUnique)
	assert.Equal(t, []string{"Email"}, users.Indexes[0].Columns)
}

func TestSQLiteEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	c := openTestSQLite(t)

	require.NoError(t, c.Exec(ctx, `CREATE TABLE "Parents" ("Id" TEXT NOT NULL PRIMARY KEY)`))
	require.NoError(t, c.Exec(ctx, `CREATE TABLE "Children" ("Id" TEXT NOT NULL PRIMARY KEY, "ParentId" TEXT NOT NULL REFERENCES "Parents" ("Id"))`))

	err := c.Exec(ctx, `INSERT INTO "Children" ("Id", "ParentId") VALUES (?, ?)`, "c1", "missing")
	assert.ErrorContains(t, err, "FOREIGN KEY constraint failed")
}

func TestSQLiteTransactionRollback(t *testing.T) {
	ctx := context.Background()
	c := openTestSQLite(t)

	tx, err := c.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, `CREATE TABLE "Temp" ("Id" TEXT NOT NULL PRIMARY KEY)`))
	require.NoError(t, tx.Rollback(ctx))

	snap, err := c.Inspect(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Tables)
	assert.Equal(t, "sqlite", c.Dialect())
}
