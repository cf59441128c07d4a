package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/communitycar/schemagraph/internal/schema"
)

// MarkdownFormatter formats plans and entities as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the plan as a markdown document
func (f *MarkdownFormatter) Format(g *schema.Graph, plan *schema.Plan) error {
	_, _ = fmt.Fprintln(f.writer, "# Schema Plan")
	_, _ = fmt.Fprintln(f.writer)

	_, _ = fmt.Fprintln(f.writer, "## Creation Order")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintln(f.writer, "| # | Entity | Level | Depends on |")
	_, _ = fmt.Fprintln(f.writer, "|---|--------|-------|------------|")
	for i, e := range plan.Entities {
		_, _ = fmt.Fprintf(f.writer, "| %d | %s | %d | %s |\n",
			i+1, e.QualifiedName(), plan.Level(e.Name), strings.Join(immediateTargets(plan, e.Name), ", "))
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(plan.Deferred) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Deferred Foreign Keys")
		_, _ = fmt.Fprintln(f.writer)
		for _, r := range plan.Deferred {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, on delete %s\n", r.Name, r, r.OnDelete)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(plan.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range plan.Indexes {
			_, _ = fmt.Fprintf(f.writer, "- %s\n", markdownIndex(idx, true))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

// FormatEntity formats a single entity (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatEntity(g *schema.Graph, e schema.Entity) error {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", e.QualifiedName())

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range e.Columns {
		constraintStr := f.formatConstraints(col, e.PrimaryKey)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, col.Type, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, col.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if rels := g.RelationshipsFrom(e.Name); len(rels) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, r := range rels {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s)\n",
				strings.Join(r.SourceColumns, ", "),
				r.Target,
				strings.Join(r.TargetColumns, ", "),
				describeRelationship(r))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if rels := g.RelationshipsTo(e.Name); len(rels) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, r := range rels {
			_, _ = fmt.Fprintf(f.writer, "- %s.%s (%s)\n",
				r.Source,
				strings.Join(r.SourceColumns, ", "),
				describeRelationship(r))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if indexes := g.IndexesOf(e.Name); len(indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range indexes {
			_, _ = fmt.Fprintf(f.writer, "- %s\n", markdownIndex(idx, false))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

func (f *MarkdownFormatter) formatConstraints(col schema.Column, primaryKey []string) string {
	var constraints []string

	for _, pk := range primaryKey {
		if pk == col.Name {
			constraints = append(constraints, "PK")
			break
		}
	}

	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}

	if col.Default != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *col.Default))
	}

	return strings.Join(constraints, ", ")
}

func markdownIndex(idx schema.Index, withEntity bool) string {
	var sb strings.Builder
	sb.WriteString(idx.Name)
	if withEntity {
		fmt.Fprintf(&sb, " on %s", idx.Entity)
	}
	fmt.Fprintf(&sb, " (%s)", strings.Join(idx.Columns, ", "))
	if idx.Unique {
		sb.WriteString(", unique")
	}
	if idx.Filter != "" {
		fmt.Fprintf(&sb, ", where `%s`", idx.Filter)
	}
	return sb.String()
}
