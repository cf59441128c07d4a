package dialect

import (
	"github.com/communitycar/schemagraph/internal/schema"
)

// SQLite renders DDL for SQLite.
//
// SQLite cannot add or drop constraints on an existing table. Every foreign
// key, deferred ones included, is declared in CREATE TABLE; references are
// resolved when rows are written, so a table may name one that does not
// exist yet.
type SQLite struct {
	builder
}

// NewSQLite creates the SQLite dialect.
func NewSQLite() *SQLite {
	return &SQLite{builder{
		open:       `"`,
		close:      `"`,
		columnType: sqliteType,
		action:     standardAction,
		filters:    true,
	}}
}

func (*SQLite) Name() string { return "sqlite" }

func (*SQLite) Capabilities() Capabilities {
	return Capabilities{TransactionalDDL: true, FilteredIndexes: true}
}

// AddForeignKey returns an empty statement; see CreateTable.
func (*SQLite) AddForeignKey(ForeignKey) string { return "" }

// SQLite has attached databases, not schemas.
func (s *SQLite) CreateTable(e schema.Entity, fks []ForeignKey) string {
	e.Schema = ""
	local := make([]ForeignKey, len(fks))
	for i, fk := range fks {
		fk.Table.Schema, fk.Ref.Schema = "", ""
		local[i] = fk
	}
	return s.builder.CreateTable(e, local)
}

func (s *SQLite) DropTable(e schema.Entity) string {
	e.Schema = ""
	return s.builder.DropTable(e)
}

func (s *SQLite) CreateIndex(e schema.Entity, idx schema.Index) string {
	e.Schema = ""
	return s.builder.CreateIndex(e, idx)
}

func sqliteType(t schema.Type) string {
	switch t.Kind {
	case schema.KindSmallInt, schema.KindInt, schema.KindBigInt, schema.KindBool:
		return "INTEGER"
	case schema.KindDecimal:
		return "NUMERIC"
	case schema.KindFloat:
		return "REAL"
	case schema.KindBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}
