package db

import (
	"context"
	"database/sql"
	"fmt"
)

// sqlClient adapts a database/sql handle to Conn. MySQL, SQLite and SQL
// Server clients embed it and add their own Dialect and Inspect.
type sqlClient struct {
	db *sql.DB
}

func openSQL(ctx context.Context, driver, dsn string) (sqlClient, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return sqlClient{}, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return sqlClient{}, fmt.Errorf("failed to ping database: %w", err)
	}

	return sqlClient{db: db}, nil
}

func (c sqlClient) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.db.ExecContext(ctx, query, args...)
	return err
}

func (c sqlClient) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (c sqlClient) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx}, nil
}

// Close closes the database connection
func (c sqlClient) Close(context.Context) error {
	return c.db.Close()
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

func (t sqlTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t sqlTx) Rollback(context.Context) error { return t.tx.Rollback() }

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }
