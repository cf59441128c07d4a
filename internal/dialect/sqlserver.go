package dialect

import (
	"fmt"

	"github.com/communitycar/schemagraph/internal/schema"
)

// SQLServer renders DDL for Microsoft SQL Server.
type SQLServer struct {
	builder
}

// NewSQLServer creates the SQL Server dialect.
func NewSQLServer() *SQLServer {
	return &SQLServer{builder{
		open:       "[",
		close:      "]",
		columnType: sqlServerType,
		action:     sqlServerAction,
		dropFK:     "DROP CONSTRAINT",
		filters:    true,
	}}
}

func (*SQLServer) Name() string { return "sqlserver" }

func (*SQLServer) Capabilities() Capabilities {
	return Capabilities{TransactionalDDL: true, AlterForeignKeys: true, FilteredIndexes: true, SingleCascadePath: true}
}

// SQL Server has no RESTRICT; NO ACTION is checked at statement end, which
// is the same for single-statement deletes.
func sqlServerAction(a schema.Action) string {
	if a == schema.Restrict {
		return string(schema.NoAction)
	}
	return standardAction(a)
}

func sqlServerType(t schema.Type) string {
	switch t.Kind {
	case schema.KindUUID:
		return "uniqueidentifier"
	case schema.KindString:
		if t.Length > 0 && t.Length <= 4000 {
			return fmt.Sprintf("nvarchar(%d)", t.Length)
		}
		return "nvarchar(max)"
	case schema.KindText, schema.KindJSON:
		return "nvarchar(max)"
	case schema.KindSmallInt:
		return "smallint"
	case schema.KindInt:
		return "int"
	case schema.KindBigInt:
		return "bigint"
	case schema.KindBool:
		return "bit"
	case schema.KindTimestamp:
		return "datetime2"
	case schema.KindDate:
		return "date"
	case schema.KindDecimal:
		if t.Precision > 0 {
			return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
		}
		return "decimal(18,2)"
	case schema.KindFloat:
		return "float"
	case schema.KindBinary:
		if t.Length > 0 && t.Length <= 8000 {
			return fmt.Sprintf("varbinary(%d)", t.Length)
		}
		return "varbinary(max)"
	default:
		return string(t.Kind)
	}
}
