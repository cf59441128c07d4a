// Package migrate turns a validated schema graph into ordered DDL and runs it
// against a database, in either direction.
package migrate

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"

	"github.com/communitycar/schemagraph/internal/dialect"
	"github.com/communitycar/schemagraph/internal/schema"
)

// Direction is up (create) or down (drop).
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts up or down in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("invalid direction %q (must be up or down)", s)
}

// Operation names the kind of DDL a statement performs.
type Operation string

const (
	OpCreateTable    Operation = "create table"
	OpAddForeignKey  Operation = "add foreign key"
	OpCreateIndex    Operation = "create index"
	OpDropForeignKey Operation = "drop foreign key"
	OpDropTable      Operation = "drop table"
)

// Statement is one DDL statement and what it acts on.
type Statement struct {
	Op     Operation
	Entity string
	// Object is the constraint or index name; empty for table statements.
	Object string
	SQL    string
}

// Script is the ordered DDL for one direction and dialect.
type Script struct {
	Direction  Direction
	Dialect    string
	Statements []Statement
	// Entities is the number of tables the script creates or drops.
	Entities int
	// Warnings describe declared features the dialect cannot express.
	Warnings []string
}

// String renders the script as semicolon-terminated SQL.
func (s *Script) String() string {
	var sb strings.Builder
	for i, st := range s.Statements {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(st.SQL)
		sb.WriteString(";\n")
	}
	return sb.String()
}

// Checksum is the hex sha256 of the rendered script.
func (s *Script) Checksum() string {
	h := sha256.Sum256([]byte(s.String()))
	return fmt.Sprintf("%x", h)
}

// BuildUp renders the creation script for plan: tables with their immediate
// foreign keys, then deferred foreign keys, then indexes.
//
// On dialects that cannot alter constraints the deferred foreign keys are
// declared inside the CREATE TABLE of their source entity instead. On
// dialects that allow a single cascade path, keys that would add a second
// path are created with NO ACTION and reported in Warnings.
func BuildUp(g *schema.Graph, plan *schema.Plan, d dialect.Dialect) *Script {
	caps := d.Capabilities()
	s := &Script{Direction: Up, Dialect: d.Name(), Entities: len(plan.Entities)}

	noAction := make(map[string]bool)
	for _, r := range cascadeConflicts(plan, d) {
		noAction[r.Name] = true
		s.Warnings = append(s.Warnings, fmt.Sprintf("foreign key %s on %s: %s allows one cascade path per table, using NO ACTION instead of %s",
			r.Name, r.Source, d.Name(), r.OnDelete))
	}
	resolveUp := func(rels []schema.Relationship) []dialect.ForeignKey {
		fks := resolve(g, rels)
		for i := range fks {
			if noAction[fks[i].Name] {
				fks[i].OnDelete = schema.NoAction
			}
		}
		return fks
	}

	for _, e := range plan.Entities {
		fks := resolveUp(plan.Immediate[e.Name])
		if !caps.AlterForeignKeys {
			for _, r := range plan.Deferred {
				if r.Source == e.Name {
					fks = append(fks, resolveUp([]schema.Relationship{r})...)
				}
			}
		}
		s.add(Statement{Op: OpCreateTable, Entity: e.Name, SQL: d.CreateTable(e, fks)})
	}

	if caps.AlterForeignKeys {
		for _, fk := range resolveUp(plan.Deferred) {
			s.add(Statement{Op: OpAddForeignKey, Entity: fk.Source, Object: fk.Name, SQL: d.AddForeignKey(fk)})
		}
	}

	for _, idx := range plan.Indexes {
		e, _ := g.Entity(idx.Entity)
		if idx.Filter != "" && !caps.FilteredIndexes {
			s.Warnings = append(s.Warnings, fmt.Sprintf("index %s on %s: %s has no filtered indexes, dropping filter %q",
				idx.Name, idx.Entity, d.Name(), idx.Filter))
		}
		s.add(Statement{Op: OpCreateIndex, Entity: idx.Entity, Object: idx.Name, SQL: d.CreateIndex(e, idx)})
	}

	return s
}

// BuildDown renders the teardown script for plan: deferred foreign keys in
// reverse, then tables in reverse creation order. Indexes go with their
// tables.
func BuildDown(g *schema.Graph, plan *schema.Plan, d dialect.Dialect) *Script {
	s := &Script{Direction: Down, Dialect: d.Name(), Entities: len(plan.Entities)}

	if d.Capabilities().AlterForeignKeys {
		deferred := resolve(g, plan.Deferred)
		slices.Reverse(deferred)
		for _, fk := range deferred {
			s.add(Statement{Op: OpDropForeignKey, Entity: fk.Source, Object: fk.Name, SQL: d.DropForeignKey(fk)})
		}
	}

	for _, e := range plan.DropOrder() {
		s.add(Statement{Op: OpDropTable, Entity: e.Name, SQL: d.DropTable(e)})
	}

	return s
}

// Build renders the script for one direction.
func Build(dir Direction, g *schema.Graph, plan *schema.Plan, d dialect.Dialect) *Script {
	if dir == Down {
		return BuildDown(g, plan, d)
	}
	return BuildUp(g, plan, d)
}

// Actions returns, by constraint name, the ON DELETE action d records for
// each foreign key BuildUp creates.
func Actions(plan *schema.Plan, d dialect.Dialect) map[string]schema.Action {
	out := make(map[string]schema.Action)
	for _, rels := range plan.Immediate {
		for _, r := range rels {
			out[r.Name] = d.OnDelete(r.OnDelete)
		}
	}
	for _, r := range plan.Deferred {
		out[r.Name] = d.OnDelete(r.OnDelete)
	}
	for _, r := range cascadeConflicts(plan, d) {
		out[r.Name] = d.OnDelete(schema.NoAction)
	}
	return out
}

func cascadeConflicts(plan *schema.Plan, d dialect.Dialect) []schema.Relationship {
	if !d.Capabilities().SingleCascadePath {
		return nil
	}
	return plan.CascadeConflicts()
}

func (s *Script) add(st Statement) {
	if st.SQL == "" {
		return
	}
	s.Statements = append(s.Statements, st)
}

func resolve(g *schema.Graph, rels []schema.Relationship) []dialect.ForeignKey {
	out := make([]dialect.ForeignKey, 0, len(rels))
	for _, r := range rels {
		src, _ := g.Entity(r.Source)
		dst, _ := g.Entity(r.Target)
		out = append(out, dialect.ForeignKey{
			Relationship: r,
			Table:        dialect.TableOf(src),
			Ref:          dialect.TableOf(dst),
		})
	}
	return out
}
