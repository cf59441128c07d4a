package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the semantic type of a column. Dialects map kinds to concrete SQL types.
type Kind string

const (
	KindUUID      Kind = "uuid"
	KindString    Kind = "string"
	KindText      Kind = "text"
	KindSmallInt  Kind = "smallint"
	KindInt       Kind = "int"
	KindBigInt    Kind = "bigint"
	KindBool      Kind = "bool"
	KindTimestamp Kind = "timestamp"
	KindDate      Kind = "date"
	KindDecimal   Kind = "decimal"
	KindFloat     Kind = "float"
	KindBinary    Kind = "binary"
	KindJSON      Kind = "json"
)

var knownKinds = map[Kind]bool{
	KindUUID: true, KindString: true, KindText: true, KindSmallInt: true, KindInt: true,
	KindBigInt: true, KindBool: true, KindTimestamp: true, KindDate: true, KindDecimal: true,
	KindFloat: true, KindBinary: true, KindJSON: true,
}

// Type is a semantic column type with optional size parameters.
// Length applies to string and binary (0 means unbounded), Precision/Scale to decimal.
type Type struct {
	Kind      Kind
	Length    int
	Precision int
	Scale     int
}

// ParseType parses the compact notation used in schema files:
// "uuid", "string(256)", "string", "decimal(18,2)", "binary(64)".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Type{}, fmt.Errorf("empty type")
	}

	name, args := s, ""
	open := strings.Index(s, "(")
	if open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Type{}, fmt.Errorf("invalid type %q: missing closing parenthesis", s)
		}
		name = strings.TrimSpace(s[:open])
		args = strings.TrimSpace(s[open+1 : len(s)-1])
	}

	t := Type{Kind: Kind(name)}
	if !knownKinds[t.Kind] {
		return Type{}, fmt.Errorf("unknown type %q", name)
	}
	if open < 0 {
		return t, nil
	}
	if args == "" {
		return Type{}, fmt.Errorf("invalid type %q: empty size", s)
	}

	parts := strings.Split(args, ",")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return Type{}, fmt.Errorf("invalid type %q: bad size %q", s, p)
		}
		nums = append(nums, n)
	}

	switch t.Kind {
	case KindString, KindBinary:
		if len(nums) != 1 {
			return Type{}, fmt.Errorf("invalid type %q: %s takes one length", s, t.Kind)
		}
		t.Length = nums[0]
	case KindDecimal:
		if len(nums) != 2 {
			return Type{}, fmt.Errorf("invalid type %q: decimal takes precision and scale", s)
		}
		if nums[1] > nums[0] {
			return Type{}, fmt.Errorf("invalid type %q: scale exceeds precision", s)
		}
		t.Precision, t.Scale = nums[0], nums[1]
	default:
		return Type{}, fmt.Errorf("invalid type %q: %s takes no size", s, t.Kind)
	}
	return t, nil
}

// MustType is ParseType for literals in code and tests.
func MustType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Type) String() string {
	switch {
	case t.Kind == KindDecimal && t.Precision > 0:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case t.Length > 0:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Length)
	default:
		return string(t.Kind)
	}
}

// Action is the referential action applied to dependent rows when the referenced row is deleted.
type Action string

const (
	Cascade  Action = "CASCADE"
	SetNull  Action = "SET NULL"
	Restrict Action = "RESTRICT"
	NoAction Action = "NO ACTION"
)

// Cascades reports whether deleting a referenced row writes to the
// referencing rows. SQL Server counts SET NULL as a cascade path.
func (a Action) Cascades() bool {
	return a == Cascade || a == SetNull
}

// ParseAction accepts the SQL spelling and the usual config spellings
// ("cascade", "set-null", "SetNull", "no_action", ...). Empty means NoAction.
func ParseAction(s string) (Action, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	switch norm {
	case "", "noaction":
		return NoAction, nil
	case "cascade":
		return Cascade, nil
	case "setnull":
		return SetNull, nil
	case "restrict":
		return Restrict, nil
	default:
		return "", fmt.Errorf("unknown referential action %q", s)
	}
}

// Column is one column of an entity.
type Column struct {
	Name     string
	Type     Type
	Nullable bool
	Default  *string
}

// Entity is a table-like record type.
type Entity struct {
	Name       string
	Schema     string // optional namespace
	Columns    []Column
	PrimaryKey []string
}

// QualifiedName returns schema.name, or name when no namespace is set.
func (e *Entity) QualifiedName() string {
	if e.Schema == "" {
		return e.Name
	}
	return e.Schema + "." + e.Name
}

// Column looks up a column by name.
func (e *Entity) Column(name string) (Column, bool) {
	for _, c := range e.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// SameKey reports whether cols names the same column set as the primary key.
// Order matters for index layout but not for identity.
func (e *Entity) SameKey(cols []string) bool {
	if len(cols) != len(e.PrimaryKey) {
		return false
	}
	seen := make(map[string]int, len(cols))
	for _, c := range e.PrimaryKey {
		seen[c]++
	}
	for _, c := range cols {
		if seen[c] == 0 {
			return false
		}
		seen[c]--
	}
	return true
}

func (e Entity) clone() Entity {
	out := e
	out.Columns = append([]Column(nil), e.Columns...)
	out.PrimaryKey = append([]string(nil), e.PrimaryKey...)
	return out
}

// Relationship is a many-to-one foreign key from Source to Target.
type Relationship struct {
	Name          string
	Source        string
	SourceColumns []string
	Target        string
	TargetColumns []string
	OnDelete      Action
	// Nullable is derived from the source columns when the graph is built:
	// the relationship is optional when every source column is nullable.
	Nullable bool
	// Deferred relationships are added after every table exists.
	Deferred bool
}

// SelfReference reports whether the relationship points back at its own entity.
func (r Relationship) SelfReference() bool {
	return r.Source == r.Target
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s(%s) -> %s(%s)",
		r.Source, strings.Join(r.SourceColumns, ", "),
		r.Target, strings.Join(r.TargetColumns, ", "))
}

func (r Relationship) clone() Relationship {
	out := r
	out.SourceColumns = append([]string(nil), r.SourceColumns...)
	out.TargetColumns = append([]string(nil), r.TargetColumns...)
	return out
}

// Index is a secondary index. Filter is an optional predicate written with bare
// column names, e.g. "NormalizedEmail IS NOT NULL".
type Index struct {
	Name    string
	Entity  string
	Columns []string
	Unique  bool
	Filter  string
}

func (i Index) clone() Index {
	out := i
	out.Columns = append([]string(nil), i.Columns...)
	return out
}

// DefaultRelationshipName follows the FK_<Source>_<Target>_<Columns> convention.
func DefaultRelationshipName(source, target string, cols []string) string {
	return "FK_" + source + "_" + target + "_" + strings.Join(cols, "_")
}

// DefaultIndexName follows the IX_<Entity>_<Columns> convention.
func DefaultIndexName(entity string, cols []string) string {
	return "IX_" + entity + "_" + strings.Join(cols, "_")
}
