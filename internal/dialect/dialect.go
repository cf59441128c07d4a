// Package dialect renders DDL statements for the supported SQL stores from the
// semantic model in internal/schema.
//
// Renderers never execute anything and never append a statement terminator;
// callers join statements with ";\n" when they need a script.
package dialect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/communitycar/schemagraph/internal/schema"
)

// Capabilities describes what a store can do with DDL.
type Capabilities struct {
	// TransactionalDDL reports whether CREATE/DROP/ALTER can run inside a
	// transaction and be rolled back.
	TransactionalDDL bool
	// AlterForeignKeys reports whether foreign keys can be added to or dropped
	// from an existing table. When false, deferred foreign keys are declared
	// inline in CREATE TABLE and the store must resolve references lazily.
	AlterForeignKeys bool
	// FilteredIndexes reports whether CREATE INDEX accepts a WHERE predicate.
	FilteredIndexes bool
	// SingleCascadePath reports whether the store rejects a foreign key that
	// closes a cycle of cascading deletes or gives a table a second cascading
	// path. SET NULL counts as cascading.
	SingleCascadePath bool
}

// TableName is a possibly schema-qualified table name.
type TableName struct {
	Schema string
	Name   string
}

// TableOf returns the table name of an entity.
func TableOf(e schema.Entity) TableName {
	return TableName{Schema: e.Schema, Name: e.Name}
}

// ForeignKey is a relationship resolved to the tables it connects.
type ForeignKey struct {
	schema.Relationship
	Table TableName
	Ref   TableName
}

// Dialect renders DDL for one store.
type Dialect interface {
	Name() string
	Capabilities() Capabilities
	Quote(ident string) string
	ColumnType(t schema.Type) string
	// OnDelete returns the action the store records for a declared action.
	OnDelete(a schema.Action) schema.Action
	CreateTable(e schema.Entity, fks []ForeignKey) string
	AddForeignKey(fk ForeignKey) string
	DropForeignKey(fk ForeignKey) string
	DropTable(e schema.Entity) string
	CreateIndex(e schema.Entity, idx schema.Index) string
}

// ForName returns the dialect registered under name. Accepted names are
// postgres (postgresql), sqlserver (mssql), mysql and sqlite (sqlite3).
func ForName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return NewPostgres(), nil
	case "sqlserver", "mssql":
		return NewSQLServer(), nil
	case "mysql":
		return NewMySQL(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", name)
	}
}

// Names lists the canonical dialect names.
func Names() []string {
	return []string{"postgres", "sqlserver", "mysql", "sqlite"}
}

// builder holds the rendering shared by every dialect. Dialects differ in
// quoting, type mapping, referential action spelling and a few clauses.
type builder struct {
	open, close string
	columnType  func(schema.Type) string
	action      func(schema.Action) string
	// dropFK is the clause after ALTER TABLE <t> used to drop a foreign key.
	dropFK string
	// filters reports whether index predicates are rendered.
	filters bool
}

func (b builder) Quote(ident string) string {
	return b.open + strings.ReplaceAll(ident, b.close, b.close+b.close) + b.close
}

func (b builder) ColumnType(t schema.Type) string {
	return b.columnType(t)
}

func (b builder) OnDelete(a schema.Action) schema.Action {
	return schema.Action(b.action(a))
}

func (b builder) table(t TableName) string {
	if t.Schema == "" {
		return b.Quote(t.Name)
	}
	return b.Quote(t.Schema) + "." + b.Quote(t.Name)
}

func (b builder) columns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

func (b builder) column(c schema.Column) string {
	var sb strings.Builder
	sb.WriteString(b.Quote(c.Name))
	sb.WriteByte(' ')
	sb.WriteString(b.columnType(c.Type))
	if c.Nullable {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}
	if c.Default != nil && strings.TrimSpace(*c.Default) != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(strings.TrimSpace(*c.Default))
	}
	return sb.String()
}

func (b builder) references(fk ForeignKey) string {
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
		b.Quote(fk.Name),
		b.columns(fk.SourceColumns),
		b.table(fk.Ref),
		b.columns(fk.TargetColumns),
		b.action(fk.OnDelete))
}

// CreateTable renders CREATE TABLE with columns, a named primary key and the
// given foreign keys declared inline.
func (b builder) CreateTable(e schema.Entity, fks []ForeignKey) string {
	defs := make([]string, 0, len(e.Columns)+1+len(fks))
	for _, c := range e.Columns {
		defs = append(defs, b.column(c))
	}
	defs = append(defs, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", b.Quote("PK_"+e.Name), b.columns(e.PrimaryKey)))
	for _, fk := range fks {
		defs = append(defs, b.references(fk))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", b.table(TableOf(e)), strings.Join(defs, ",\n  "))
}

func (b builder) AddForeignKey(fk ForeignKey) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", b.table(fk.Table), b.references(fk))
}

func (b builder) DropForeignKey(fk ForeignKey) string {
	if b.dropFK == "" {
		return ""
	}
	return fmt.Sprintf("ALTER TABLE %s %s %s", b.table(fk.Table), b.dropFK, b.Quote(fk.Name))
}

func (b builder) DropTable(e schema.Entity) string {
	return "DROP TABLE " + b.table(TableOf(e))
}

func (b builder) CreateIndex(e schema.Entity, idx schema.Index) string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if idx.Unique {
		sb.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&sb, "INDEX %s ON %s (%s)", b.Quote(idx.Name), b.table(TableOf(e)), b.columns(idx.Columns))
	if b.filters && strings.TrimSpace(idx.Filter) != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(b.quoteFilter(e, idx.Filter))
	}
	return sb.String()
}

// quoteFilter quotes the entity's column names where they appear as bare
// words in an index predicate.
func (b builder) quoteFilter(e schema.Entity, filter string) string {
	names := make([]string, 0, len(e.Columns))
	for _, c := range e.Columns {
		names = append(names, regexp.QuoteMeta(c.Name))
	}
	if len(names) == 0 {
		return filter
	}
	// Longest first so a column that prefixes another does not win.
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	re := regexp.MustCompile(`(^|[^\w'"\[` + "`" + `])(` + strings.Join(names, "|") + `)\b`)
	return re.ReplaceAllStringFunc(filter, func(m string) string {
		sub := re.FindStringSubmatch(m)
		return sub[1] + b.Quote(sub[2])
	})
}

func standardAction(a schema.Action) string {
	if a == "" {
		return string(schema.NoAction)
	}
	return string(a)
}
