package db

import (
	"context"
	"strings"

	"github.com/communitycar/schemagraph/internal/schema"
)

// fkCollector groups one-row-per-column foreign key results by constraint
// name, keeping the order rows arrive in.
type fkCollector struct {
	fks   []schema.ForeignKeyInfo
	index map[string]int
}

func (c *fkCollector) add(name, column, target, targetColumn, onDelete string) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	i, ok := c.index[name]
	if !ok {
		i = len(c.fks)
		c.index[name] = i
		c.fks = append(c.fks, schema.ForeignKeyInfo{
			Name:        name,
			TargetTable: target,
			OnDelete:    normalizeAction(onDelete),
		})
	}
	c.fks[i].Columns = append(c.fks[i].Columns, column)
	if targetColumn != "" {
		c.fks[i].TargetColumns = append(c.fks[i].TargetColumns, targetColumn)
	}
}

// indexCollector does the same for one-row-per-column index results.
type indexCollector struct {
	indexes []schema.IndexInfo
	index   map[string]int
}

func (c *indexCollector) add(name string, unique bool, column string) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	i, ok := c.index[name]
	if !ok {
		i = len(c.indexes)
		c.index[name] = i
		c.indexes = append(c.indexes, schema.IndexInfo{Name: name, IsUnique: unique})
	}
	c.indexes[i].Columns = append(c.indexes[i].Columns, column)
}

// normalizeAction maps catalog spellings such as SET_NULL or "set null" to
// the referential action keywords.
func normalizeAction(s string) string {
	s = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
	if s == "" {
		return string(schema.NoAction)
	}
	return s
}

type querier interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// queryStrings runs a single-column query and collects the values.
func queryStrings(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}
