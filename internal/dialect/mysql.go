package dialect

import (
	"fmt"

	"github.com/communitycar/schemagraph/internal/schema"
)

// MySQL renders DDL for MySQL 8 with InnoDB tables.
//
// MySQL commits implicitly around every DDL statement and has no partial
// indexes; index filters are dropped and callers are expected to warn.
type MySQL struct {
	builder
}

// NewMySQL creates the MySQL dialect.
func NewMySQL() *MySQL {
	return &MySQL{builder{
		open:       "`",
		close:      "`",
		columnType: mysqlType,
		action:     standardAction,
		dropFK:     "DROP FOREIGN KEY",
	}}
}

func (*MySQL) Name() string { return "mysql" }

func (*MySQL) Capabilities() Capabilities {
	return Capabilities{AlterForeignKeys: true}
}

// MySQL schemas are databases, so the entity schema is ignored and tables
// land in the connection's database.
func (m *MySQL) CreateTable(e schema.Entity, fks []ForeignKey) string {
	e.Schema = ""
	local := make([]ForeignKey, len(fks))
	for i, fk := range fks {
		fk.Table.Schema, fk.Ref.Schema = "", ""
		local[i] = fk
	}
	return m.builder.CreateTable(e, local)
}

func (m *MySQL) AddForeignKey(fk ForeignKey) string {
	fk.Table.Schema, fk.Ref.Schema = "", ""
	return m.builder.AddForeignKey(fk)
}

func (m *MySQL) DropForeignKey(fk ForeignKey) string {
	fk.Table.Schema = ""
	return m.builder.DropForeignKey(fk)
}

func (m *MySQL) DropTable(e schema.Entity) string {
	e.Schema = ""
	return m.builder.DropTable(e)
}

func (m *MySQL) CreateIndex(e schema.Entity, idx schema.Index) string {
	e.Schema = ""
	return m.builder.CreateIndex(e, idx)
}

func mysqlType(t schema.Type) string {
	switch t.Kind {
	case schema.KindUUID:
		return "char(36)"
	case schema.KindString:
		if t.Length > 0 {
			return fmt.Sprintf("varchar(%d)", t.Length)
		}
		return "longtext"
	case schema.KindText:
		return "longtext"
	case schema.KindSmallInt:
		return "smallint"
	case schema.KindInt:
		return "int"
	case schema.KindBigInt:
		return "bigint"
	case schema.KindBool:
		return "tinyint(1)"
	case schema.KindTimestamp:
		return "datetime(6)"
	case schema.KindDate:
		return "date"
	case schema.KindDecimal:
		if t.Precision > 0 {
			return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
		}
		return "decimal(65,30)"
	case schema.KindFloat:
		return "double"
	case schema.KindBinary:
		if t.Length > 0 {
			return fmt.Sprintf("varbinary(%d)", t.Length)
		}
		return "longblob"
	case schema.KindJSON:
		return "json"
	default:
		return string(t.Kind)
	}
}
