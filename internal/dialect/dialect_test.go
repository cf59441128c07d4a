package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitycar/schemagraph/internal/schema"
)

func ptr(s string) *string { return &s }

func comments() schema.Entity {
	return schema.Entity{
		Name: "Comments",
		Columns: []schema.Column{
			{Name: "Id", Type: schema.MustType("uuid")},
			{Name: "AuthorId", Type: schema.MustType("uuid")},
			{Name: "Body", Type: schema.MustType("string(2000)"), Nullable: true},
			{Name: "IsDeleted", Type: schema.MustType("bool"), Default: ptr("FALSE")},
			{Name: "CreatedAt", Type: schema.MustType("timestamp"), Default: ptr("CURRENT_TIMESTAMP")},
		},
		PrimaryKey: []string{"Id"},
	}
}

func authorFK(action schema.Action) ForeignKey {
	return ForeignKey{
		Relationship: schema.Relationship{
			Name:          "FK_Comments_Users_AuthorId",
			Source:        "Comments",
			SourceColumns: []string{"AuthorId"},
			Target:        "Users",
			TargetColumns: []string{"Id"},
			OnDelete:      action,
		},
		Table: TableName{Name: "Comments"},
		Ref:   TableName{Name: "Users"},
	}
}

func TestPostgresCreateTable(t *testing.T) {
	got := NewPostgres().CreateTable(comments(), []ForeignKey{authorFK(schema.Cascade)})
	want := `CREATE TABLE "Comments" (
  "Id" uuid NOT NULL,
  "AuthorId" uuid NOT NULL,
  "Body" varchar(2000) NULL,
  "IsDeleted" boolean NOT NULL DEFAULT FALSE,
  "CreatedAt" timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
  CONSTRAINT "PK_Comments" PRIMARY KEY ("Id"),
  CONSTRAINT "FK_Comments_Users_AuthorId" FOREIGN KEY ("AuthorId") REFERENCES "Users" ("Id") ON DELETE CASCADE
)`
	assert.Equal(t, want, got)
}

func TestSchemaQualifiedNames(t *testing.T) {
	e := comments()
	e.Schema = "social"
	fk := authorFK(schema.NoAction)
	fk.Table.Schema = "social"
	fk.Ref.Schema = "identity"

	assert.Equal(t, `DROP TABLE "social"."Comments"`, NewPostgres().DropTable(e))
	assert.Equal(t, "DROP TABLE [social].[Comments]", NewSQLServer().DropTable(e))
	assert.Equal(t, "DROP TABLE `Comments`", NewMySQL().DropTable(e))
	assert.Equal(t, `DROP TABLE "Comments"`, NewSQLite().DropTable(e))

	assert.Equal(t,
		`ALTER TABLE "social"."Comments" ADD CONSTRAINT "FK_Comments_Users_AuthorId" FOREIGN KEY ("AuthorId") REFERENCES "identity"."Users" ("Id") ON DELETE NO ACTION`,
		NewPostgres().AddForeignKey(fk))
	assert.Equal(t,
		"ALTER TABLE `Comments` ADD CONSTRAINT `FK_Comments_Users_AuthorId` FOREIGN KEY (`AuthorId`) REFERENCES `Users` (`Id`) ON DELETE NO ACTION",
		NewMySQL().AddForeignKey(fk))
}

func TestForeignKeyActions(t *testing.T) {
	tests := []struct {
		dialect Dialect
		action  schema.Action
		want    string
	}{
		{NewPostgres(), schema.Restrict, "ON DELETE RESTRICT"},
		{NewPostgres(), schema.SetNull, "ON DELETE SET NULL"},
		{NewSQLServer(), schema.Restrict, "ON DELETE NO ACTION"},
		{NewSQLServer(), schema.Cascade, "ON DELETE CASCADE"},
		{NewMySQL(), schema.Restrict, "ON DELETE RESTRICT"},
		{NewSQLite(), "", "ON DELETE NO ACTION"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name()+"/"+string(tt.action), func(t *testing.T) {
			got := tt.dialect.CreateTable(comments(), []ForeignKey{authorFK(tt.action)})
			assert.Contains(t, got, tt.want)
			assert.Equal(t, "ON DELETE "+string(tt.dialect.OnDelete(tt.action)), tt.want)
		})
	}
}

func TestDropForeignKey(t *testing.T) {
	fk := authorFK(schema.Cascade)
	assert.Equal(t, `ALTER TABLE "Comments" DROP CONSTRAINT "FK_Comments_Users_AuthorId"`, NewPostgres().DropForeignKey(fk))
	assert.Equal(t, "ALTER TABLE [Comments] DROP CONSTRAINT [FK_Comments_Users_AuthorId]", NewSQLServer().DropForeignKey(fk))
	assert.Equal(t, "ALTER TABLE `Comments` DROP FOREIGN KEY `FK_Comments_Users_AuthorId`", NewMySQL().DropForeignKey(fk))
	assert.Empty(t, NewSQLite().DropForeignKey(fk))
	assert.Empty(t, NewSQLite().AddForeignKey(fk))
}

func TestCreateIndex(t *testing.T) {
	users := schema.Entity{
		Name: "AspNetUsers",
		Columns: []schema.Column{
			{Name: "Id", Type: schema.MustType("uuid")},
			{Name: "NormalizedEmail", Type: schema.MustType("string(256)"), Nullable: true},
			{Name: "Email", Type: schema.MustType("string(256)"), Nullable: true},
		},
		PrimaryKey: []string{"Id"},
	}
	idx := schema.Index{
		Name:    "EmailIndex",
		Entity:  "AspNetUsers",
		Columns: []string{"NormalizedEmail"},
		Unique:  true,
		Filter:  "NormalizedEmail IS NOT NULL AND Email <> 'Email'",
	}

	tests := []struct {
		dialect Dialect
		want    string
	}{
		{NewPostgres(), `CREATE UNIQUE INDEX "EmailIndex" ON "AspNetUsers" ("NormalizedEmail") WHERE "NormalizedEmail" IS NOT NULL AND "Email" <> 'Email'`},
		{NewSQLServer(), `CREATE UNIQUE INDEX [EmailIndex] ON [AspNetUsers] ([NormalizedEmail]) WHERE [NormalizedEmail] IS NOT NULL AND [Email] <> 'Email'`},
		{NewMySQL(), "CREATE UNIQUE INDEX `EmailIndex` ON `AspNetUsers` (`NormalizedEmail`)"},
		{NewSQLite(), `CREATE UNIQUE INDEX "EmailIndex" ON "AspNetUsers" ("NormalizedEmail") WHERE "NormalizedEmail" IS NOT NULL AND "Email" <> 'Email'`},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.CreateIndex(users, idx))
		})
	}

	plain := schema.Index{Name: "IX_AspNetUsers_Email", Entity: "AspNetUsers", Columns: []string{"Email", "Id"}}
	assert.Equal(t, `CREATE INDEX "IX_AspNetUsers_Email" ON "AspNetUsers" ("Email", "Id")`, NewPostgres().CreateIndex(users, plain))
}

func TestColumnTypes(t *testing.T) {
	tests := []struct {
		typ                                string
		postgres, sqlserver, mysql, sqlite string
	}{
		{"uuid", "uuid", "uniqueidentifier", "char(36)", "TEXT"},
		{"string(450)", "varchar(450)", "nvarchar(450)", "varchar(450)", "TEXT"},
		{"string(8000)", "varchar(8000)", "nvarchar(max)", "varchar(8000)", "TEXT"},
		{"string", "text", "nvarchar(max)", "longtext", "TEXT"},
		{"bool", "boolean", "bit", "tinyint(1)", "INTEGER"},
		{"timestamp", "timestamp with time zone", "datetime2", "datetime(6)", "TEXT"},
		{"decimal(18,2)", "numeric(18,2)", "decimal(18,2)", "decimal(18,2)", "NUMERIC"},
		{"float", "double precision", "float", "double", "REAL"},
		{"binary", "bytea", "varbinary(max)", "longblob", "BLOB"},
		{"json", "jsonb", "nvarchar(max)", "json", "TEXT"},
		{"bigint", "bigint", "bigint", "bigint", "INTEGER"},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			typ := schema.MustType(tt.typ)
			assert.Equal(t, tt.postgres, NewPostgres().ColumnType(typ))
			assert.Equal(t, tt.sqlserver, NewSQLServer().ColumnType(typ))
			assert.Equal(t, tt.mysql, NewMySQL().ColumnType(typ))
			assert.Equal(t, tt.sqlite, NewSQLite().ColumnType(typ))
		})
	}
}

func TestQuoteEscapes(t *testing.T) {
	assert.Equal(t, `"a""b"`, NewPostgres().Quote(`a"b`))
	assert.Equal(t, "[a]]b]", NewSQLServer().Quote("a]b"))
	assert.Equal(t, "`a``b`", NewMySQL().Quote("a`b"))
}

func TestForName(t *testing.T) {
	for _, name := range []string{"postgres", "PostgreSQL", "sqlserver", "mssql", "mysql", "sqlite3"} {
		d, err := ForName(name)
		require.NoError(t, err, name)
		assert.Contains(t, Names(), d.Name())
	}

	_, err := ForName("oracle")
	assert.EqualError(t, err, "unsupported dialect: oracle")
}

func TestCapabilities(t *testing.T) {
	assert.True(t, NewPostgres().Capabilities().TransactionalDDL)
	assert.False(t, NewMySQL().Capabilities().TransactionalDDL)
	assert.False(t, NewMySQL().Capabilities().FilteredIndexes)
	assert.False(t, NewSQLite().Capabilities().AlterForeignKeys)
	assert.True(t, NewSQLServer().Capabilities().AlterForeignKeys)
	assert.True(t, NewSQLServer().Capabilities().SingleCascadePath)
	assert.False(t, NewPostgres().Capabilities().SingleCascadePath)
}
