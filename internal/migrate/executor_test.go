package migrate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitycar/schemagraph/internal/db"
	"github.com/communitycar/schemagraph/internal/dialect"
	"github.com/communitycar/schemagraph/internal/schema"
)

// fakeConn records statements and fails the first one containing failOn.
type fakeConn struct {
	dialect    string
	executed   []string
	failOn     string
	failErr    error
	began      bool
	committed  bool
	rolledBack bool
}

func (c *fakeConn) Dialect() string { return c.dialect }

func (c *fakeConn) Exec(_ context.Context, query string, _ ...any) error {
	c.executed = append(c.executed, query)
	if c.failOn != "" && strings.Contains(query, c.failOn) {
		return c.failErr
	}
	return nil
}

func (c *fakeConn) Query(context.Context, string, ...any) (db.Rows, error) {
	return nil, errors.New("query not supported")
}

func (c *fakeConn) Begin(context.Context) (db.Tx, error) {
	c.began = true
	return fakeTx{c}, nil
}

func (c *fakeConn) Inspect(context.Context) (*schema.Snapshot, error) {
	return &schema.Snapshot{}, nil
}

func (c *fakeConn) Close(context.Context) error { return nil }

type fakeTx struct{ c *fakeConn }

func (t fakeTx) Exec(ctx context.Context, query string, args ...any) error {
	return t.c.Exec(ctx, query, args...)
}

func (t fakeTx) Commit(context.Context) error {
	t.c.committed = true
	return nil
}

func (t fakeTx) Rollback(context.Context) error {
	t.c.rolledBack = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecutorUpRunsInTransaction(t *testing.T) {
	g, _ := mediaGraph(t)
	conn := &fakeConn{dialect: "postgres"}

	run, err := NewExecutor(conn, dialect.NewPostgres(), Config{}, quietLogger()).Up(context.Background(), g)
	require.NoError(t, err)

	assert.True(t, conn.began)
	assert.True(t, conn.committed)
	assert.False(t, conn.rolledBack)
	assert.Len(t, conn.executed, 7)
	assert.Equal(t, Up, run.Direction)
	assert.Equal(t, 3, run.Entities)
	assert.NotEmpty(t, run.ID.String())
}

func TestExecutorUpFailureIsApplyError(t *testing.T) {
	g, _ := mediaGraph(t)
	driverErr := errors.New("relation \"Videos\" already exists")
	conn := &fakeConn{dialect: "postgres", failOn: `CREATE TABLE "Videos"`, failErr: driverErr}

	run, err := NewExecutor(conn, dialect.NewPostgres(), Config{}, quietLogger()).Up(context.Background(), g)
	require.Error(t, err)
	assert.Nil(t, run)

	var applyErr *ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "Videos", applyErr.Entity)
	assert.Equal(t, OpCreateTable, applyErr.Operation)
	assert.Same(t, driverErr, errors.Unwrap(err))
	assert.EqualError(t, err, `schema up: create table Videos: relation "Videos" already exists`)

	assert.True(t, conn.rolledBack)
	assert.False(t, conn.committed)
	assert.Len(t, conn.executed, 3, "nothing runs after the failing statement")
}

func TestExecutorDownFailureIsRollbackError(t *testing.T) {
	g, _ := mediaGraph(t)
	driverErr := errors.New("constraint does not exist")
	conn := &fakeConn{dialect: "postgres", failOn: "DROP CONSTRAINT", failErr: driverErr}

	_, err := NewExecutor(conn, dialect.NewPostgres(), Config{}, quietLogger()).Down(context.Background(), g)

	var rbErr *RollbackError
	require.ErrorAs(t, err, &rbErr)
	assert.Equal(t, "Videos", rbErr.Entity)
	assert.Equal(t, OpDropForeignKey, rbErr.Operation)
	assert.Equal(t, "FK_Videos_Videos_DuetOfVideoId", rbErr.Object)
	assert.ErrorIs(t, err, driverErr)
	assert.Contains(t, err.Error(), "schema down: drop foreign key FK_Videos_Videos_DuetOfVideoId on Videos")
}

func TestExecutorWithoutTransaction(t *testing.T) {
	g, _ := mediaGraph(t)

	t.Run("disabled by config", func(t *testing.T) {
		conn := &fakeConn{dialect: "postgres"}
		_, err := NewExecutor(conn, dialect.NewPostgres(), Config{DisableTransaction: true}, quietLogger()).Up(context.Background(), g)
		require.NoError(t, err)
		assert.False(t, conn.began)
		assert.Len(t, conn.executed, 7)
	})

	t.Run("store without transactional DDL", func(t *testing.T) {
		conn := &fakeConn{dialect: "mysql", failOn: "CREATE INDEX", failErr: errors.New("boom")}
		_, err := NewExecutor(conn, dialect.NewMySQL(), Config{}, quietLogger()).Up(context.Background(), g)

		var applyErr *ApplyError
		require.ErrorAs(t, err, &applyErr)
		assert.Equal(t, OpCreateIndex, applyErr.Operation)
		assert.False(t, conn.began)
		assert.False(t, conn.rolledBack)
	})
}

func TestExecutorRecordsInsideTransaction(t *testing.T) {
	g, _ := mediaGraph(t)
	conn := &fakeConn{dialect: "postgres"}
	cfg := Config{Ledger: NewLedger(conn)}

	_, err := NewExecutor(conn, dialect.NewPostgres(), cfg, quietLogger()).Up(context.Background(), g)
	require.NoError(t, err)

	require.Len(t, conn.executed, 9)
	assert.Contains(t, conn.executed[0], "CREATE TABLE IF NOT EXISTS schema_migrations")
	assert.Equal(t,
		"INSERT INTO schema_migrations (id, direction, checksum, entities, applied_at) VALUES ($1, $2, $3, $4, $5)",
		conn.executed[8])
	assert.True(t, conn.committed)
}

func TestExecutorRejectsInvalidGraph(t *testing.T) {
	conn := &fakeConn{dialect: "postgres"}
	_, err := schema.NewGraph(
		[]schema.Entity{{
			Name:       "A",
			Columns:    []schema.Column{{Name: "Id", Type: schema.MustType("uuid")}},
			PrimaryKey: []string{"Missing"},
		}},
		nil, nil,
	)
	require.ErrorIs(t, err, schema.ErrInvalidSchema)
	assert.Empty(t, conn.executed, "validation fails before any statement")
}

func TestBind(t *testing.T) {
	assert.Equal(t, "$3", bind("postgres", 3))
	assert.Equal(t, "@p2", bind("sqlserver", 2))
	assert.Equal(t, "?", bind("mysql", 1))
	assert.Equal(t, "?", bind("sqlite", 4))
}
