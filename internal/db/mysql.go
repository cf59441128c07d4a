package db

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/communitycar/schemagraph/internal/schema"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	sqlClient
	schemaName string
}

// NewMySQLClient creates a new MySQL client. The DSN must name a database;
// that database is the schema Inspect reads. DATETIME columns are always
// scanned as time.Time.
func NewMySQLClient(ctx context.Context, connString string) (*MySQLClient, error) {
	cfg, err := parseMySQLDSN(connString)
	if err != nil {
		return nil, err
	}

	c, err := openSQL(ctx, "mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}

	return &MySQLClient{sqlClient: c, schemaName: cfg.DBName}, nil
}

func (c *MySQLClient) Dialect() string { return "mysql" }

func (c *MySQLClient) Inspect(ctx context.Context) (*schema.Snapshot, error) {
	return NewMySQLInspector(c, c.schemaName).Inspect(ctx)
}

// parseMySQLDSN validates dsn and forces time.Time scanning.
func parseMySQLDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("no database name in MySQL DSN")
	}
	cfg.ParseTime = true
	return cfg, nil
}
