package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/communitycar/schemagraph/internal/db"
	"github.com/communitycar/schemagraph/internal/dialect"
	"github.com/communitycar/schemagraph/internal/schema"
)

// Config tunes an Executor. The zero value runs in a transaction where the
// store allows it and records nothing.
type Config struct {
	// DisableTransaction runs statements one by one even on stores with
	// transactional DDL.
	DisableTransaction bool
	// Ledger, when set, receives a row for every successful run.
	Ledger *Ledger
}

// Executor runs up and down scripts against one connection.
type Executor struct {
	conn    db.Conn
	dialect dialect.Dialect
	cfg     Config
	logger  *slog.Logger
}

// NewExecutor creates an executor for conn. The dialect must match the
// store behind conn.
func NewExecutor(conn db.Conn, d dialect.Dialect, cfg Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		conn:    conn,
		dialect: d,
		cfg:     cfg,
		logger:  logger,
	}
}

// Up creates every table of g with its immediate foreign keys, then adds the
// deferred foreign keys, then creates indexes. A failing statement aborts the
// run with *ApplyError.
func (x *Executor) Up(ctx context.Context, g *schema.Graph) (*Run, error) {
	plan, err := schema.Order(g)
	if err != nil {
		return nil, err
	}
	return x.run(ctx, BuildUp(g, plan, x.dialect))
}

// Down drops the deferred foreign keys of g, then its tables in reverse
// creation order. A failing statement aborts the run with *RollbackError.
func (x *Executor) Down(ctx context.Context, g *schema.Graph) (*Run, error) {
	plan, err := schema.Order(g)
	if err != nil {
		return nil, err
	}
	return x.run(ctx, BuildDown(g, plan, x.dialect))
}

func (x *Executor) run(ctx context.Context, s *Script) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		Direction: s.Direction,
		Checksum:  s.Checksum(),
		Entities:  s.Entities,
	}
	logger := x.logger.With("run", run.ID.String(), "direction", string(s.Direction), "dialect", s.Dialect)

	for _, w := range s.Warnings {
		logger.Warn(w)
	}

	if x.cfg.Ledger != nil {
		if err := x.cfg.Ledger.Ensure(ctx); err != nil {
			return nil, err
		}
	}

	var ex execer = x.conn
	var tx db.Tx
	if !x.cfg.DisableTransaction && x.dialect.Capabilities().TransactionalDDL {
		var err error
		if tx, err = x.conn.Begin(ctx); err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		ex = tx
	}

	rollback := func() {
		if tx == nil {
			return
		}
		if err := tx.Rollback(ctx); err != nil {
			logger.Warn("rollback failed", "error", err)
		}
	}

	logger.Info("running schema script", "statements", len(s.Statements), "entities", s.Entities, "transactional", tx != nil)
	start := time.Now()

	for i, st := range s.Statements {
		logger.Debug("executing statement", "step", i+1, "op", string(st.Op), "entity", st.Entity, "object", st.Object)
		if err := ex.Exec(ctx, st.SQL); err != nil {
			rollback()
			logger.Error("statement failed", "op", string(st.Op), "entity", st.Entity, "object", st.Object, "error", err)
			if tx == nil && i > 0 {
				logger.Warn("earlier statements were not rolled back", "applied", i)
			}
			return nil, statementError(s.Direction, st, err)
		}
	}

	run.AppliedAt = time.Now().UTC()
	if x.cfg.Ledger != nil {
		if err := x.cfg.Ledger.Record(ctx, ex, *run); err != nil {
			rollback()
			return nil, err
		}
	}

	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit schema %s: %w", s.Direction, err)
		}
	}

	logger.Info("schema script applied", "duration", time.Since(start).String(), "checksum", run.Checksum)
	return run, nil
}

func statementError(dir Direction, st Statement, err error) error {
	if dir == Down {
		return &RollbackError{Entity: st.Entity, Operation: st.Op, Object: st.Object, Err: err}
	}
	return &ApplyError{Entity: st.Entity, Operation: st.Op, Object: st.Object, Err: err}
}
