package db

import (
	"context"
	"fmt"

	"github.com/communitycar/schemagraph/internal/schema"
)

// PostgresInspector reads a PostgreSQL schema back into a snapshot
type PostgresInspector struct {
	client *PostgresClient
	schema string
}

// NewPostgresInspector creates a new schema inspector
func NewPostgresInspector(client *PostgresClient, schemaName string) *PostgresInspector {
	return &PostgresInspector{
		client: client,
		schema: schemaName,
	}
}

// Inspect reads every base table in the schema
func (e *PostgresInspector) Inspect(ctx context.Context) (*schema.Snapshot, error) {
	tableNames, err := e.getTableNames(ctx)
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

func (e *PostgresInspector) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	return queryStrings(ctx, e.client, query, e.schema)
}

func (e *PostgresInspector) inspectTable(ctx context.Context, tableName string) (*schema.TableInfo, error) {
	table := &schema.TableInfo{Name: tableName}

	columns, err := e.inspectColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	pk, err := e.inspectPrimaryKey(ctx, tableName)
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

func (e *PostgresInspector) inspectColumns(ctx context.Context, tableName string) ([]schema.ColumnInfo, error) {
	query := `
		SELECT
			c.column_name,
			c.is_nullable
		FROM information_schema.columns c
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := e.client.Query(ctx, query, e.schema, tableName)
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

func (e *PostgresInspector) inspectPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = $1
			AND table_name = $2
			AND constraint_name IN (
				SELECT constraint_name
				FROM information_schema.table_constraints
				WHERE table_schema = $1
					AND table_name = $2
					AND constraint_type = 'PRIMARY KEY'
			)
		ORDER BY ordinal_position
	`

	return queryStrings(ctx, e.client, query, e.schema, tableName)
}

// inspectForeignKeys reads constraints from pg_constraint so composite keys
// keep their column pairing.
func (e *PostgresInspector) inspectForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKeyInfo, error) {
	query := `
		SELECT
			con.conname::text,
			src.attname::text,
			ref.relname::text,
			dst.attname::text,
			CASE con.confdeltype
				WHEN 'c' THEN 'CASCADE'
				WHEN 'n' THEN 'SET NULL'
				WHEN 'r' THEN 'RESTRICT'
				WHEN 'd' THEN 'SET DEFAULT'
				ELSE 'NO ACTION'
			END
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class ref ON ref.oid = con.confrelid
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(src_attnum, dst_attnum, ord)
		JOIN pg_attribute src ON src.attrelid = con.conrelid AND src.attnum = k.src_attnum
		JOIN pg_attribute dst ON dst.attrelid = con.confrelid AND dst.attnum = k.dst_attnum
		WHERE con.contype = 'f'
			AND n.nspname = $1
			AND t.relname = $2
		ORDER BY con.conname, k.ord
	`

	rows, err := e.client.Query(ctx, query, e.schema, tableName)
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

func (e *PostgresInspector) inspectIndexes(ctx context.Context, tableName string) ([]schema.IndexInfo, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname::text ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`

	rows, err := e.client.Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.IndexInfo
	for rows.Next() {
		var idx schema.IndexInfo
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
