package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph(
		[]Entity{
			entity("Users", nullCol("Email", "string(256)")),
			entity("Posts", col("AuthorId", "uuid"), nullCol("ParentId", "uuid")),
		},
		[]Relationship{
			fk("Posts", "AuthorId", "Users", Cascade),
			fk("Posts", "ParentId", "Posts", NoAction),
		},
		[]Index{{Entity: "Posts", Columns: []string{"AuthorId"}}},
	)
	require.NoError(t, err)
	return g
}

func TestCompareInSync(t *testing.T) {
	snap := &Snapshot{Tables: []TableInfo{
		{
			Name:       "users",
			Columns:    []ColumnInfo{{Name: "id"}, {Name: "email", Nullable: true}},
			PrimaryKey: []string{"id"},
		},
		{
			Name:       "Posts",
			Columns:    []ColumnInfo{{Name: "Id"}, {Name: "AuthorId"}, {Name: "ParentId", Nullable: true}},
			PrimaryKey: []string{"Id"},
			ForeignKeys: []ForeignKeyInfo{
				{Columns: []string{"AuthorId"}, TargetTable: "Users", OnDelete: "CASCADE"},
				{Columns: []string{"ParentId"}, TargetTable: "Posts", OnDelete: "NO ACTION"},
			},
			Indexes: []IndexInfo{{Name: "ix_posts_authorid", Columns: []string{"AuthorId"}}},
		},
		{Name: "schema_migrations"},
	}}

	drifts := Compare(snapshotGraph(t), snap.Without("schema_migrations"), CompareOptions{})
	assert.Empty(t, drifts)
}

func TestCompareReportsDrift(t *testing.T) {
	snap := &Snapshot{Tables: []TableInfo{
		{
			Name:       "Posts",
			Columns:    []ColumnInfo{{Name: "Id"}, {Name: "AuthorId", Nullable: true}, {Name: "Legacy"}},
			PrimaryKey: []string{"Id"},
		},
		{Name: "Orphans", Columns: []ColumnInfo{{Name: "Id"}}},
	}}

	drifts := Compare(snapshotGraph(t), snap, CompareOptions{})
	var got []string
	for _, d := range drifts {
		got = append(got, d.String())
	}

	assert.Equal(t, []string{
		"missing table: Users",
		"nullability differs: Posts.AuthorId",
		"missing column: Posts.ParentId",
		"unexpected column: Posts.Legacy",
		"unexpected table: Orphans",
		"missing foreign key: Posts.FK_Posts_Users_AuthorId",
		"missing foreign key: Posts.FK_Posts_Posts_ParentId",
		"missing index: Posts.IX_Posts_AuthorId",
	}, got)
}

func TestCompareActionsAndUniqueness(t *testing.T) {
	live := func(authorAction, parentAction string, unique bool) *Snapshot {
		return &Snapshot{Tables: []TableInfo{
			{Name: "Users", Columns: []ColumnInfo{{Name: "Id"}, {Name: "Email", Nullable: true}}},
			{
				Name:    "Posts",
				Columns: []ColumnInfo{{Name: "Id"}, {Name: "AuthorId"}, {Name: "ParentId", Nullable: true}},
				ForeignKeys: []ForeignKeyInfo{
					{Columns: []string{"AuthorId"}, TargetTable: "Users", OnDelete: authorAction},
					{Columns: []string{"ParentId"}, TargetTable: "Posts", OnDelete: parentAction},
				},
				Indexes: []IndexInfo{{Name: "IX_Posts_AuthorId", Columns: []string{"AuthorId"}, IsUnique: unique}},
			},
		}}
	}

	tests := []struct {
		name string
		snap *Snapshot
		opts CompareOptions
		want []string
	}{
		{
			name: "in sync",
			snap: live("CASCADE", "NO ACTION", false),
		},
		{
			name: "action changed",
			snap: live("SET NULL", "NO ACTION", false),
			want: []string{"on delete action differs: Posts.FK_Posts_Users_AuthorId"},
		},
		{
			name: "restrict recorded as no action",
			snap: live("NO ACTION", "NO ACTION", false),
			opts: CompareOptions{OnDelete: map[string]Action{"FK_Posts_Users_AuthorId": NoAction}},
		},
		{
			name: "override still compared",
			snap: live("CASCADE", "NO ACTION", false),
			opts: CompareOptions{OnDelete: map[string]Action{"FK_Posts_Users_AuthorId": NoAction}},
			want: []string{"on delete action differs: Posts.FK_Posts_Users_AuthorId"},
		},
		{
			name: "index became unique",
			snap: live("CASCADE", "NO ACTION", true),
			want: []string{"index uniqueness differs: Posts.IX_Posts_AuthorId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, d := range Compare(snapshotGraph(t), tt.snap, tt.opts) {
				got = append(got, d.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
