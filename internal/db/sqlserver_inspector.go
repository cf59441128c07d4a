package db

import (
	"context"
	"fmt"

	"github.com/communitycar/schemagraph/internal/schema"
)

// SQLServerInspector reads the default schema of a SQL Server database
// back into a snapshot
type SQLServerInspector struct {
	client *SQLServerClient
}

// NewSQLServerInspector creates a new SQL Server schema inspector
func NewSQLServerInspector(client *SQLServerClient) *SQLServerInspector {
	return &SQLServerInspector{client: client}
}

// objectID resolves @p1 to a table in the login's default schema.
const objectID = "OBJECT_ID(QUOTENAME(SCHEMA_NAME()) + '.' + QUOTENAME(@p1))"

// Inspect reads every user table in the default schema
func (e *SQLServerInspector) Inspect(ctx context.Context) (*schema.Snapshot, error) {
	query := `
		SELECT t.name
		FROM sys.tables t
		WHERE t.schema_id = SCHEMA_ID() AND t.is_ms_shipped = 0
		ORDER BY t.name
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

func (e *SQLServerInspector) inspectTable(ctx context.Context, tableName string) (*schema.TableInfo, error) {
	table := &schema.TableInfo{Name: tableName}

	columns, err := e.inspectColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	pkQuery := `
		SELECT c.name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE i.is_primary_key = 1 AND i.object_id = ` + objectID + `
		ORDER BY ic.key_ordinal
	`
	pk, err := queryStrings(ctx, e.client, pkQuery, tableName)
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

func (e *SQLServerInspector) inspectColumns(ctx context.Context, tableName string) ([]schema.ColumnInfo, error) {
	query := `
		SELECT c.name, c.is_nullable
		FROM sys.columns c
		WHERE c.object_id = ` + objectID + `
		ORDER BY c.column_id
	`

	rows, err := e.client.Query(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.ColumnInfo
	for rows.Next() {
		var col schema.ColumnInfo
		if err := rows.Scan(&col.Name, &col.Nullable); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (e *SQLServerInspector) inspectForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKeyInfo, error) {
	query := `
		SELECT fk.name, pc.name, rt.name, rc.name, fk.delete_referential_action_desc
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE fk.parent_object_id = ` + objectID + `
		ORDER BY fk.name, fkc.constraint_column_id
	`

	rows, err := e.client.Query(ctx, query, tableName)
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

func (e *SQLServerInspector) inspectIndexes(ctx context.Context, tableName string) ([]schema.IndexInfo, error) {
	query := `
		SELECT i.name, i.is_unique, c.name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE i.object_id = ` + objectID + `
			AND i.is_primary_key = 0
			AND i.type > 0
			AND ic.is_included_column = 0
		ORDER BY i.name, ic.key_ordinal
	`

	rows, err := e.client.Query(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes indexCollector
	for rows.Next() {
		var name, column string
		var unique bool
		if err := rows.Scan(&name, &unique, &column); err != nil {
			return nil, err
		}
		indexes.add(name, unique, column)
	}

	return indexes.indexes, rows.Err()
}
