package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/communitycar/schemagraph/internal/schema"
)

// MySQLInspector reads a MySQL database back into a snapshot
type MySQLInspector struct {
	client     *MySQLClient
	schemaName string
}

// NewMySQLInspector creates a new MySQL schema inspector
func NewMySQLInspector(client *MySQLClient, schemaName string) *MySQLInspector {
	return &MySQLInspector{
		client:     client,
		schemaName: schemaName,
	}
}

// Inspect reads every base table in the database
func (e *MySQLInspector) Inspect(ctx context.Context) (*schema.Snapshot, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	tableNames, err := queryStrings(ctx, e.client, query, e.schemaName)
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

func (e *MySQLInspector) inspectTable(ctx context.Context, tableName string) (*schema.TableInfo, error) {
	table := &schema.TableInfo{Name: tableName}

	columns, err := e.inspectColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	pkQuery := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`
	pk, err := queryStrings(ctx, e.client, pkQuery, e.schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
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

func (e *MySQLInspector) inspectColumns(ctx context.Context, tableName string) ([]schema.ColumnInfo, error) {
	query := `
		SELECT
			c.column_name,
			c.is_nullable
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.Query(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.ColumnInfo
	for rows.Next() {
		var col schema.ColumnInfo
		var nullable string

		if err := rows.Scan(&col.Name, &nullable); err != nil {
			return nil, err
		}

		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (e *MySQLInspector) inspectForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKeyInfo, error) {
	query := `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = kcu.table_schema
			AND rc.constraint_name = kcu.constraint_name
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`

	rows, err := e.client.Query(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks fkCollector
	for rows.Next() {
		var name, column, target, targetColumn, onDelete string
		if err := rows.Scan(&name, &column, &target, &targetColumn, &onDelete); err != nil {
			return nil, err
		}
		fks.add(name, column, target, targetColumn, onDelete)
	}

	return fks.fks, rows.Err()
}

func (e *MySQLInspector) inspectIndexes(ctx context.Context, tableName string) ([]schema.IndexInfo, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`

	rows, err := e.client.Query(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.IndexInfo
	for rows.Next() {
		var idx schema.IndexInfo
		var isUnique int
		var columnNames string

		if err := rows.Scan(&idx.Name, &isUnique, &columnNames); err != nil {
			return nil, err
		}

		idx.IsUnique = isUnique == 1
		idx.Columns = strings.Split(columnNames, ",")
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
