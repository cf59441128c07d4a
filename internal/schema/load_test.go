package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
entities:
  - name: AspNetUsers
    columns:
      - {name: Id, type: uuid}
      - {name: Email, type: string(256), nullable: true}
      - {name: CreatedAt, type: timestamp, default: CURRENT_TIMESTAMP}
    indexes:
      - {name: EmailIndex, columns: [Email], unique: true, filter: Email IS NOT NULL}
  - name: Comments
    columns:
      - {name: Id, type: uuid}
      - {name: AuthorId, type: uuid}
      - {name: ParentCommentId, type: uuid, nullable: true}
      - {name: Score, type: "decimal(18,2)"}
    foreignKeys:
      - {columns: [AuthorId], references: AspNetUsers, onDelete: cascade}
      - {columns: [ParentCommentId], references: Comments, onDelete: no-action}
`

func TestLoad(t *testing.T) {
	g, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	require.Equal(t, 2, g.Len())
	users, ok := g.Entity("AspNetUsers")
	require.True(t, ok)
	assert.Equal(t, []string{"Id"}, users.PrimaryKey, "Id is the default primary key")

	created, ok := users.Column("CreatedAt")
	require.True(t, ok)
	require.NotNil(t, created.Default)
	assert.Equal(t, "CURRENT_TIMESTAMP", *created.Default)

	comments, _ := g.Entity("Comments")
	score, _ := comments.Column("Score")
	assert.Equal(t, Type{Kind: KindDecimal, Precision: 18, Scale: 2}, score.Type)

	rels := g.Relationships()
	require.Len(t, rels, 2)
	assert.Equal(t, Cascade, rels[0].OnDelete)
	assert.True(t, rels[1].SelfReference())
	assert.True(t, rels[1].Nullable)

	idx := g.Indexes()
	require.Len(t, idx, 1)
	assert.Equal(t, "EmailIndex", idx[0].Name)
	assert.Equal(t, "Email IS NOT NULL", idx[0].Filter)

	plan, err := Order(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"AspNetUsers", "Comments"}, plan.Names())
	assert.Len(t, plan.Deferred, 1)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantSchema  bool
		errContains string
	}{
		{
			name:        "empty document",
			yaml:        "",
			wantSchema:  true,
			errContains: "schema file is empty",
		},
		{
			name:        "unknown field",
			yaml:        "entities:\n  - name: A\n    colums: []\n",
			errContains: "field colums not found",
		},
		{
			name:        "unknown type",
			yaml:        "entities:\n  - name: A\n    columns:\n      - {name: Id, type: guid}\n",
			wantSchema:  true,
			errContains: `unknown type "guid"`,
		},
		{
			name: "unknown action",
			yaml: "entities:\n  - name: A\n    columns:\n      - {name: Id, type: uuid}\n" +
				"    foreignKeys:\n      - {columns: [Id], references: A, onDelete: explode}\n",
			wantSchema:  true,
			errContains: `unknown referential action "explode"`,
		},
		{
			name: "dangling reference",
			yaml: "entities:\n  - name: A\n    columns:\n      - {name: Id, type: uuid}\n      - {name: BId, type: uuid}\n" +
				"    foreignKeys:\n      - {columns: [BId], references: B}\n",
			wantSchema:  true,
			errContains: "references unknown entity B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)

			var schemaErr *SchemaError
			assert.Equal(t, tt.wantSchema, errors.As(err, &schemaErr))
		})
	}
}

func TestLoadParameterisedTypesInFlowMappings(t *testing.T) {
	doc := "entities:\n  - name: Prices\n    columns:\n      - {name: Id, type: uuid}\n" +
		"      - {name: Amount, type: \"decimal(18,2)\", nullable: true}\n" +
		"      - {name: Code, type: string(3)}\n"

	g, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	prices, _ := g.Entity("Prices")
	amount, ok := prices.Column("Amount")
	require.True(t, ok)
	assert.Equal(t, Type{Kind: KindDecimal, Precision: 18, Scale: 2}, amount.Type)
	assert.True(t, amount.Nullable)

	// Unquoted, the comma ends the flow-mapping value.
	_, err = Load(strings.NewReader(strings.Replace(doc, `"decimal(18,2)"`, "decimal(18,2)", 1)))
	assert.ErrorContains(t, err, "field 2) not found")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	g, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read schema file")
}
