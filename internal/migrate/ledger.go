package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/communitycar/schemagraph/internal/db"
)

// LedgerTable records every successful run. Drift checks and emptiness
// checks ignore it.
const LedgerTable = "schema_migrations"

// Run is one recorded execution of a script.
type Run struct {
	ID        uuid.UUID
	Direction Direction
	Checksum  string
	Entities  int
	AppliedAt time.Time
}

type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// Ledger persists runs in LedgerTable on the target database.
type Ledger struct {
	conn db.Conn
}

// NewLedger creates a ledger on conn. Call Ensure before the first Record.
func NewLedger(conn db.Conn) *Ledger {
	return &Ledger{conn: conn}
}

// Ensure creates the ledger table if it does not exist.
func (l *Ledger) Ensure(ctx context.Context) error {
	if err := l.conn.Exec(ctx, ledgerDDL(l.conn.Dialect())); err != nil {
		return fmt.Errorf("failed to create %s: %w", LedgerTable, err)
	}
	return nil
}

// Record appends run through ex, which may be a transaction so that the row
// commits together with the DDL it describes.
func (l *Ledger) Record(ctx context.Context, ex execer, run Run) error {
	d := l.conn.Dialect()
	query := fmt.Sprintf(
		"INSERT INTO %s (id, direction, checksum, entities, applied_at) VALUES (%s, %s, %s, %s, %s)",
		LedgerTable, bind(d, 1), bind(d, 2), bind(d, 3), bind(d, 4), bind(d, 5))

	err := ex.Exec(ctx, query, run.ID.String(), string(run.Direction), run.Checksum, run.Entities, run.AppliedAt)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// History lists recorded runs, oldest first. A missing ledger table reads as
// an empty history.
func (l *Ledger) History(ctx context.Context) ([]Run, error) {
	exists, err := l.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := l.conn.Query(ctx, fmt.Sprintf(
		"SELECT id, direction, checksum, entities, applied_at FROM %s ORDER BY applied_at, id", LedgerTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", LedgerTable, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var id, direction string
		if err := rows.Scan(&id, &direction, &run.Checksum, &run.Entities, &run.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		run.Direction = Direction(direction)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Last returns the most recent run, or nil when none is recorded.
func (l *Ledger) Last(ctx context.Context) (*Run, error) {
	runs, err := l.History(ctx)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[len(runs)-1], nil
}

func (l *Ledger) exists(ctx context.Context) (bool, error) {
	rows, err := l.conn.Query(ctx, ledgerExistsQuery(l.conn.Dialect()))
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", LedgerTable, err)
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, fmt.Errorf("failed to look up %s: %w", LedgerTable, err)
		}
	}
	return n > 0, rows.Err()
}

func ledgerExistsQuery(dialect string) string {
	switch dialect {
	case "postgres":
		return "SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = 'schema_migrations'"
	case "sqlserver":
		return "SELECT count(*) FROM sys.tables WHERE schema_id = SCHEMA_ID() AND name = 'schema_migrations'"
	case "mysql":
		return "SELECT count(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = 'schema_migrations'"
	default:
		return "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'"
	}
}

func ledgerDDL(dialect string) string {
	switch dialect {
	case "postgres":
		return `CREATE TABLE IF NOT EXISTS schema_migrations (
			id varchar(36) PRIMARY KEY,
			direction varchar(8) NOT NULL,
			checksum char(64) NOT NULL,
			entities integer NOT NULL,
			applied_at timestamptz NOT NULL
		)`
	case "sqlserver":
		return `IF OBJECT_ID(N'schema_migrations', N'U') IS NULL
		CREATE TABLE schema_migrations (
			id nvarchar(36) NOT NULL PRIMARY KEY,
			direction nvarchar(8) NOT NULL,
			checksum nchar(64) NOT NULL,
			entities int NOT NULL,
			applied_at datetime2 NOT NULL
		)`
	case "mysql":
		return `CREATE TABLE IF NOT EXISTS schema_migrations (
			id char(36) NOT NULL PRIMARY KEY,
			direction varchar(8) NOT NULL,
			checksum char(64) NOT NULL,
			entities int NOT NULL,
			applied_at datetime(6) NOT NULL
		)`
	default:
		return `CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT NOT NULL PRIMARY KEY,
			direction TEXT NOT NULL,
			checksum TEXT NOT NULL,
			entities INTEGER NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)`
	}
}

// bind returns the n-th (1-based) query placeholder for the driver.
func bind(dialect string, n int) string {
	switch dialect {
	case "postgres":
		return fmt.Sprintf("$%d", n)
	case "sqlserver":
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}
