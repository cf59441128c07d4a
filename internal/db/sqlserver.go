package db

import (
	"context"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/communitycar/schemagraph/internal/schema"
)

// SQLServerClient manages the connection to Microsoft SQL Server
type SQLServerClient struct {
	sqlClient
}

// NewSQLServerClient creates a new SQL Server client. Inspect reads the
// login's default schema, usually dbo.
func NewSQLServerClient(ctx context.Context, connString string) (*SQLServerClient, error) {
	if _, err := msdsn.Parse(connString); err != nil {
		return nil, fmt.Errorf("invalid SQL Server DSN: %w", err)
	}

	c, err := openSQL(ctx, "sqlserver", connString)
	if err != nil {
		return nil, err
	}

	return &SQLServerClient{sqlClient: c}, nil
}

func (c *SQLServerClient) Dialect() string { return "sqlserver" }

func (c *SQLServerClient) Inspect(ctx context.Context) (*schema.Snapshot, error) {
	return NewSQLServerInspector(c).Inspect(ctx)
}
