package dialect

import (
	"fmt"

	"github.com/communitycar/schemagraph/internal/schema"
)

// Postgres renders DDL for PostgreSQL.
type Postgres struct {
	builder
}

// NewPostgres creates the PostgreSQL dialect.
func NewPostgres() *Postgres {
	return &Postgres{builder{
		open:       `"`,
		close:      `"`,
		columnType: postgresType,
		action:     standardAction,
		dropFK:     "DROP CONSTRAINT",
		filters:    true,
	}}
}

func (*Postgres) Name() string { return "postgres" }

func (*Postgres) Capabilities() Capabilities {
	return Capabilities{TransactionalDDL: true, AlterForeignKeys: true, FilteredIndexes: true}
}

func postgresType(t schema.Type) string {
	switch t.Kind {
	case schema.KindUUID:
		return "uuid"
	case schema.KindString:
		if t.Length > 0 {
			return fmt.Sprintf("varchar(%d)", t.Length)
		}
		return "text"
	case schema.KindText:
		return "text"
	case schema.KindSmallInt:
		return "smallint"
	case schema.KindInt:
		return "integer"
	case schema.KindBigInt:
		return "bigint"
	case schema.KindBool:
		return "boolean"
	case schema.KindTimestamp:
		return "timestamp with time zone"
	case schema.KindDate:
		return "date"
	case schema.KindDecimal:
		if t.Precision > 0 {
			return fmt.Sprintf("numeric(%d,%d)", t.Precision, t.Scale)
		}
		return "numeric"
	case schema.KindFloat:
		return "double precision"
	case schema.KindBinary:
		return "bytea"
	case schema.KindJSON:
		return "jsonb"
	default:
		return string(t.Kind)
	}
}
