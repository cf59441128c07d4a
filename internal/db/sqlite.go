package db

import (
	"context"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/communitycar/schemagraph/internal/schema"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	sqlClient
}

// NewSQLiteClient creates a new SQLite client with foreign key enforcement
// switched on.
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	c, err := openSQL(ctx, "sqlite3", withForeignKeys(path))
	if err != nil {
		return nil, err
	}

	// PRAGMA foreign_keys is per connection and a no-op inside a
	// transaction; one connection keeps it and in-memory databases stable.
	c.db.SetMaxOpenConns(1)

	return &SQLiteClient{sqlClient: c}, nil
}

func (c *SQLiteClient) Dialect() string { return "sqlite" }

func (c *SQLiteClient) Inspect(ctx context.Context) (*schema.Snapshot, error) {
	return NewSQLiteInspector(c).Inspect(ctx)
}

func withForeignKeys(path string) string {
	if strings.Contains(path, "_foreign_keys=") || strings.Contains(path, "_fk=") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}
