package schema

import (
	"fmt"
	"strings"
)

// Snapshot is a database catalog as read back by an inspector.
type Snapshot struct {
	Tables []TableInfo
}

// TableInfo represents a live database table
type TableInfo struct {
	Name        string
	Columns     []ColumnInfo
	ForeignKeys []ForeignKeyInfo
	Indexes     []IndexInfo
	PrimaryKey  []string
}

// ColumnInfo represents a live table column
type ColumnInfo struct {
	Name     string
	Nullable bool
}

// ForeignKeyInfo represents a live foreign key constraint
type ForeignKeyInfo struct {
	Name          string
	Columns       []string
	TargetTable   string
	TargetColumns []string
	OnDelete      string
}

// IndexInfo represents a live secondary index
type IndexInfo struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// Table finds a table by name, ignoring case.
func (s *Snapshot) Table(name string) (*TableInfo, bool) {
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// Without returns a copy of s minus the named tables.
func (s *Snapshot) Without(names ...string) *Snapshot {
	exclude := make(map[string]bool, len(names))
	for _, n := range names {
		exclude[strings.ToLower(n)] = true
	}

	out := &Snapshot{Tables: make([]TableInfo, 0, len(s.Tables))}
	for _, t := range s.Tables {
		if !exclude[strings.ToLower(t.Name)] {
			out.Tables = append(out.Tables, t)
		}
	}
	return out
}

// DriftKind classifies a difference between a graph and a live catalog.
type DriftKind string

const (
	MissingTable      DriftKind = "missing table"
	UnexpectedTable   DriftKind = "unexpected table"
	MissingColumn     DriftKind = "missing column"
	UnexpectedColumn  DriftKind = "unexpected column"
	NullabilityChange DriftKind = "nullability differs"
	PrimaryKeyChange  DriftKind = "primary key differs"
	MissingForeignKey DriftKind = "missing foreign key"
	MissingIndex      DriftKind = "missing index"
	ActionChange      DriftKind = "on delete action differs"
	UniquenessChange  DriftKind = "index uniqueness differs"
)

// Drift is one difference found by Compare.
type Drift struct {
	Kind   DriftKind
	Entity string
	Object string
}

func (d Drift) String() string {
	if d.Object == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Entity)
	}
	return fmt.Sprintf("%s: %s.%s", d.Kind, d.Entity, d.Object)
}

// CompareOptions tunes Compare for dialect limitations.
type CompareOptions struct {
	// OnDelete holds, by constraint name, the action a store actually
	// records when it differs from the declared one.
	OnDelete map[string]Action
}

// Compare reports how snap differs from what g declares. Names are compared
// case-insensitively because several stores fold identifier case.
func Compare(g *Graph, snap *Snapshot, opts CompareOptions) []Drift {
	var drifts []Drift

	declared := make(map[string]bool, len(g.entities))
	for _, e := range g.entities {
		declared[strings.ToLower(e.Name)] = true

		t, ok := snap.Table(e.Name)
		if !ok {
			drifts = append(drifts, Drift{Kind: MissingTable, Entity: e.Name})
			continue
		}
		drifts = append(drifts, compareColumns(e, t)...)

		if len(t.PrimaryKey) > 0 && !sameFold(e.PrimaryKey, t.PrimaryKey) {
			drifts = append(drifts, Drift{Kind: PrimaryKeyChange, Entity: e.Name, Object: strings.Join(t.PrimaryKey, ",")})
		}
	}

	for _, t := range snap.Tables {
		if !declared[strings.ToLower(t.Name)] {
			drifts = append(drifts, Drift{Kind: UnexpectedTable, Entity: t.Name})
		}
	}

	for _, r := range g.relationships {
		t, ok := snap.Table(r.Source)
		if !ok {
			continue
		}
		fk, ok := findForeignKey(t, r)
		if !ok {
			drifts = append(drifts, Drift{Kind: MissingForeignKey, Entity: r.Source, Object: r.Name})
			continue
		}
		want := r.OnDelete
		if a, ok := opts.OnDelete[r.Name]; ok {
			want = a
		}
		if want == "" {
			want = NoAction
		}
		if !strings.EqualFold(fk.OnDelete, string(want)) {
			drifts = append(drifts, Drift{Kind: ActionChange, Entity: r.Source, Object: r.Name})
		}
	}

	for _, idx := range g.indexes {
		t, ok := snap.Table(idx.Entity)
		if !ok {
			continue
		}
		li, ok := findIndex(t, idx)
		if !ok {
			drifts = append(drifts, Drift{Kind: MissingIndex, Entity: idx.Entity, Object: idx.Name})
			continue
		}
		if li.IsUnique != idx.Unique {
			drifts = append(drifts, Drift{Kind: UniquenessChange, Entity: idx.Entity, Object: idx.Name})
		}
	}

	return drifts
}

func compareColumns(e Entity, t *TableInfo) []Drift {
	var drifts []Drift
	live := make(map[string]ColumnInfo, len(t.Columns))
	for _, c := range t.Columns {
		live[strings.ToLower(c.Name)] = c
	}

	for _, c := range e.Columns {
		lc, ok := live[strings.ToLower(c.Name)]
		if !ok {
			drifts = append(drifts, Drift{Kind: MissingColumn, Entity: e.Name, Object: c.Name})
			continue
		}
		if lc.Nullable != c.Nullable {
			drifts = append(drifts, Drift{Kind: NullabilityChange, Entity: e.Name, Object: c.Name})
		}
		delete(live, strings.ToLower(c.Name))
	}

	for _, c := range t.Columns {
		if _, extra := live[strings.ToLower(c.Name)]; extra {
			drifts = append(drifts, Drift{Kind: UnexpectedColumn, Entity: e.Name, Object: c.Name})
		}
	}
	return drifts
}

func findForeignKey(t *TableInfo, r Relationship) (ForeignKeyInfo, bool) {
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.TargetTable, r.Target) && sameFold(fk.Columns, r.SourceColumns) {
			return fk, true
		}
	}
	return ForeignKeyInfo{}, false
}

func findIndex(t *TableInfo, idx Index) (IndexInfo, bool) {
	for _, li := range t.Indexes {
		if strings.EqualFold(li.Name, idx.Name) {
			return li, true
		}
	}
	return IndexInfo{}, false
}

func sameFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
