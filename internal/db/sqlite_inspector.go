package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/communitycar/schemagraph/internal/schema"
)

// SQLiteInspector reads a SQLite database back into a snapshot
type SQLiteInspector struct {
	client *SQLiteClient
}

// NewSQLiteInspector creates a new SQLite schema inspector
func NewSQLiteInspector(client *SQLiteClient) *SQLiteInspector {
	return &SQLiteInspector{client: client}
}

// Inspect reads every user table in the database
func (e *SQLiteInspector) Inspect(ctx context.Context) (*schema.Snapshot, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	tableNames, err := queryStrings(ctx, e.client, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	tables := make([]schema.TableInfo, 0, len(tableNames))
	for _, tableName := range tableNames {
		table, err := e.inspectTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect table %s: %w", tableName, err)
		}
		tables = append(tables, *table)
	}

	return &schema.Snapshot{Tables: tables}, nil
}

func (e *SQLiteInspector) inspectTable(ctx context.Context, tableName string) (*schema.TableInfo, error) {
	table := &schema.TableInfo{Name: tableName}

	columns, pk, err := e.inspectColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns
	table.PrimaryKey = pk

	fks, err := e.inspectForeignKeys(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	table.ForeignKeys = fks

	indexes, err := e.inspectIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	return table, nil
}

// inspectColumns returns the columns and, ordered by key position, the
// primary key.
func (e *SQLiteInspector) inspectColumns(ctx context.Context, tableName string) ([]schema.ColumnInfo, []string, error) {
	rows, err := e.client.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLite(tableName)))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.ColumnInfo
	pkByPos := make(map[int]string)

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		col := schema.ColumnInfo{
			Name:     name,
			Nullable: notNull == 0,
		}
		if pk > 0 {
			pkByPos[pk] = name
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	pk := make([]string, 0, len(pkByPos))
	for i := 1; i <= len(pkByPos); i++ {
		pk = append(pk, pkByPos[i])
	}

	return columns, pk, nil
}

func (e *SQLiteInspector) inspectForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKeyInfo, error) {
	rows, err := e.client.Query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteSQLite(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// SQLite does not keep constraint names; the id is stable per table.
	var fks fkCollector
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		fks.add(fmt.Sprintf("%s_fk%d", tableName, id), fromCol, targetTable, toCol.String, onDelete)
	}

	return fks.fks, rows.Err()
}

func (e *SQLiteInspector) inspectIndexes(ctx context.Context, tableName string) ([]schema.IndexInfo, error) {
	rows, err := e.client.Query(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteSQLite(tableName)))
	if err != nil {
		return nil, err
	}

	type entry struct {
		name   string
		unique bool
	}
	var entries []entry
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}

		// Skip auto-generated primary key and UNIQUE constraint indexes
		if strings.HasPrefix(name, "sqlite_autoindex") || origin == "pk" {
			continue
		}
		entries = append(entries, entry{name: name, unique: unique == 1})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Column lookups run after index_list is closed; the client holds a
	// single connection.
	var indexes []schema.IndexInfo
	for _, ent := range entries {
		columns, err := e.indexColumns(ctx, ent.name)
		if err != nil {
			return nil, err
		}
		if len(columns) > 0 {
			indexes = append(indexes, schema.IndexInfo{Name: ent.name, IsUnique: ent.unique, Columns: columns})
		}
	}

	return indexes, nil
}

func (e *SQLiteInspector) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.Query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteSQLite(indexName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}

func quoteSQLite(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
