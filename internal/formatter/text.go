// Package formatter renders schema graphs and their execution plans for
// people: compact text for terminals, markdown for docs.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/communitycar/schemagraph/internal/schema"
)

// TextFormatter formats a plan as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the creation order, the deferred foreign keys and the
// indexes of plan.
func (f *TextFormatter) Format(g *schema.Graph, plan *schema.Plan) error {
	_, _ = fmt.Fprintf(f.writer, "CREATION ORDER (%d entities)\n", len(plan.Entities))
	for i, e := range plan.Entities {
		line := fmt.Sprintf("  %3d. %s [level %d]", i+1, e.QualifiedName(), plan.Level(e.Name))
		if targets := immediateTargets(plan, e.Name); len(targets) > 0 {
			line += " → " + strings.Join(targets, ", ")
		}
		_, _ = fmt.Fprintln(f.writer, line)
	}

	if len(plan.Deferred) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintf(f.writer, "DEFERRED FOREIGN KEYS (%d)\n", len(plan.Deferred))
		for _, r := range plan.Deferred {
			_, _ = fmt.Fprintf(f.writer, "  %s: %s ON DELETE %s\n", r.Name, r, r.OnDelete)
		}
	}

	if len(plan.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintf(f.writer, "INDEXES (%d)\n", len(plan.Indexes))
		for _, idx := range plan.Indexes {
			_, _ = fmt.Fprintf(f.writer, "  %s\n", formatIndex(idx))
		}
	}

	return nil
}

// FormatEntity writes one entity with its columns, references and indexes.
func (f *TextFormatter) FormatEntity(g *schema.Graph, e schema.Entity) error {
	pkStr := ""
	if len(e.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(e.PrimaryKey, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", e.QualifiedName(), pkStr)

	for _, col := range e.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatColumn(col))
	}

	if rels := g.RelationshipsFrom(e.Name); len(rels) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, r := range rels {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s (%s)\n",
				strings.Join(r.SourceColumns, ", "), r.Target, strings.Join(r.TargetColumns, ", "), describeRelationship(r))
		}
	}

	if rels := g.RelationshipsTo(e.Name); len(rels) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  REFERENCED BY:")
		for _, r := range rels {
			_, _ = fmt.Fprintf(f.writer, "    %s.%s (%s)\n", r.Source, strings.Join(r.SourceColumns, ", "), describeRelationship(r))
		}
	}

	if indexes := g.IndexesOf(e.Name); len(indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range indexes {
			_, _ = fmt.Fprintf(f.writer, "    %s\n", formatIndex(idx))
		}
	}

	return nil
}

func formatColumn(col schema.Column) string {
	parts := []string{col.Name + ":", col.Type.String()}

	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}

	if col.Default != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.Default))
	}

	return strings.Join(parts, " ")
}

func formatIndex(idx schema.Index) string {
	s := fmt.Sprintf("%s on %s (%s)", idx.Name, idx.Entity, strings.Join(idx.Columns, ", "))
	if idx.Unique {
		s += " UNIQUE"
	}
	if idx.Filter != "" {
		s += " WHERE " + idx.Filter
	}
	return s
}

// describeRelationship spells out cardinality and delete behaviour, e.g.
// "many-to-one, optional, on delete SET NULL, deferred".
func describeRelationship(r schema.Relationship) string {
	parts := []string{"many-to-one"}
	if r.Nullable {
		parts = append(parts, "optional")
	}
	parts = append(parts, "on delete "+string(r.OnDelete))
	if r.Deferred || r.SelfReference() {
		parts = append(parts, "deferred")
	}
	return strings.Join(parts, ", ")
}

// immediateTargets lists the distinct entities name must be created after.
func immediateTargets(plan *schema.Plan, name string) []string {
	var targets []string
	seen := make(map[string]bool)
	for _, r := range plan.Immediate[name] {
		if !seen[r.Target] {
			seen[r.Target] = true
			targets = append(targets, r.Target)
		}
	}
	return targets
}
