// Package schema holds the declarative description of a relational schema
// (entities, relationships, indexes), its validation, and the dependency
// ordering used to create and drop it.
package schema

import (
	"fmt"
	"strings"
)

// Graph is an immutable, validated set of entities, relationships and indexes.
// Accessors return copies; nothing can be added or removed once built.
type Graph struct {
	entities      []Entity
	byName        map[string]int
	relationships []Relationship
	indexes       []Index
}

// NewGraph copies the given declarations, fills in defaults (constraint and
// index names, target columns, referential actions, relationship optionality)
// and validates the result. The error is a *SchemaError or a *CycleError.
func NewGraph(entities []Entity, relationships []Relationship, indexes []Index) (*Graph, error) {
	g := &Graph{
		entities:      make([]Entity, 0, len(entities)),
		byName:        make(map[string]int, len(entities)),
		relationships: make([]Relationship, 0, len(relationships)),
		indexes:       make([]Index, 0, len(indexes)),
	}

	for _, e := range entities {
		if _, dup := g.byName[e.Name]; !dup {
			g.byName[e.Name] = len(g.entities)
		}
		g.entities = append(g.entities, e.clone())
	}

	for _, r := range relationships {
		r = r.clone()
		if len(r.TargetColumns) == 0 {
			if target, ok := g.lookup(r.Target); ok {
				r.TargetColumns = append([]string(nil), target.PrimaryKey...)
			}
		}
		if r.Name == "" {
			r.Name = DefaultRelationshipName(r.Source, r.Target, r.SourceColumns)
		}
		if r.OnDelete == "" {
			r.OnDelete = NoAction
		}
		r.Nullable = g.optional(r)
		g.relationships = append(g.relationships, r)
	}

	for _, idx := range indexes {
		idx = idx.clone()
		if idx.Name == "" {
			idx.Name = DefaultIndexName(idx.Entity, idx.Columns)
		}
		g.indexes = append(g.indexes, idx)
	}

	if err := Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Entities returns the entities in declaration order.
func (g *Graph) Entities() []Entity {
	out := make([]Entity, len(g.entities))
	for i, e := range g.entities {
		out[i] = e.clone()
	}
	return out
}

// Relationships returns the relationships in declaration order.
func (g *Graph) Relationships() []Relationship {
	out := make([]Relationship, len(g.relationships))
	for i, r := range g.relationships {
		out[i] = r.clone()
	}
	return out
}

// Indexes returns the indexes in declaration order.
func (g *Graph) Indexes() []Index {
	out := make([]Index, len(g.indexes))
	for i, idx := range g.indexes {
		out[i] = idx.clone()
	}
	return out
}

// Entity returns a copy of the named entity.
func (g *Graph) Entity(name string) (Entity, bool) {
	e, ok := g.lookup(name)
	if !ok {
		return Entity{}, false
	}
	return e.clone(), true
}

// RelationshipsFrom returns the relationships whose source is the named entity.
func (g *Graph) RelationshipsFrom(name string) []Relationship {
	var out []Relationship
	for _, r := range g.relationships {
		if r.Source == name {
			out = append(out, r.clone())
		}
	}
	return out
}

// RelationshipsTo returns the relationships whose target is the named entity.
func (g *Graph) RelationshipsTo(name string) []Relationship {
	var out []Relationship
	for _, r := range g.relationships {
		if r.Target == name {
			out = append(out, r.clone())
		}
	}
	return out
}

// IndexesOf returns the indexes declared on the named entity.
func (g *Graph) IndexesOf(name string) []Index {
	var out []Index
	for _, idx := range g.indexes {
		if idx.Entity == name {
			out = append(out, idx.clone())
		}
	}
	return out
}

// Len returns the number of entities.
func (g *Graph) Len() int { return len(g.entities) }

func (g *Graph) lookup(name string) (*Entity, bool) {
	i, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return &g.entities[i], true
}

func (g *Graph) position(name string) int {
	return g.byName[name]
}

// optional reports whether every source column of r is nullable. Unknown
// columns are reported by validation, not here.
func (g *Graph) optional(r Relationship) bool {
	src, ok := g.lookup(r.Source)
	if !ok || len(r.SourceColumns) == 0 {
		return false
	}
	for _, name := range r.SourceColumns {
		c, ok := src.Column(name)
		if !ok || !c.Nullable {
			return false
		}
	}
	return true
}

// Validate checks g for dangling references, unknown columns, duplicate names
// and unresolved dependency cycles. It does not modify g, so validating the
// same graph twice yields the same result.
func Validate(g *Graph) error {
	var problems []Problem
	add := func(entity, format string, args ...any) {
		problems = append(problems, Problem{Entity: entity, Message: fmt.Sprintf(format, args...)})
	}

	seenEntities := make(map[string]string, len(g.entities))
	for _, e := range g.entities {
		if strings.TrimSpace(e.Name) == "" {
			add("", "entity with empty name")
			continue
		}
		folded := strings.ToLower(e.QualifiedName())
		if prev, dup := seenEntities[folded]; dup {
			add(e.Name, "duplicate entity (already declared as %s)", prev)
			continue
		}
		seenEntities[folded] = e.Name
		validateEntity(e, add)
	}

	seenRels := make(map[string]bool, len(g.relationships))
	for _, r := range g.relationships {
		if seenRels[strings.ToLower(r.Name)] {
			add(r.Source, "duplicate foreign key name %s", r.Name)
		}
		seenRels[strings.ToLower(r.Name)] = true
		g.validateRelationship(r, add)
	}

	seenIdx := make(map[string]bool, len(g.indexes))
	for _, idx := range g.indexes {
		if seenIdx[strings.ToLower(idx.Name)] {
			add(idx.Entity, "duplicate index name %s", idx.Name)
		}
		seenIdx[strings.ToLower(idx.Name)] = true
		g.validateIndex(idx, add)
	}

	if len(problems) > 0 {
		return &SchemaError{Problems: problems}
	}

	if _, err := Order(g); err != nil {
		return err
	}
	return nil
}

func validateEntity(e Entity, add func(entity, format string, args ...any)) {
	if len(e.Columns) == 0 {
		add(e.Name, "no columns")
	}
	cols := make(map[string]Column, len(e.Columns))
	for _, c := range e.Columns {
		if strings.TrimSpace(c.Name) == "" {
			add(e.Name, "column with empty name")
			continue
		}
		if _, dup := cols[strings.ToLower(c.Name)]; dup {
			add(e.Name, "duplicate column %s", c.Name)
			continue
		}
		cols[strings.ToLower(c.Name)] = c
		if !knownKinds[c.Type.Kind] {
			add(e.Name, "column %s has unknown type %q", c.Name, c.Type.Kind)
		}
	}

	if len(e.PrimaryKey) == 0 {
		add(e.Name, "no primary key")
	}
	seenPK := make(map[string]bool, len(e.PrimaryKey))
	for _, name := range e.PrimaryKey {
		if seenPK[name] {
			add(e.Name, "primary key lists column %s twice", name)
		}
		seenPK[name] = true
		c, ok := e.Column(name)
		if !ok {
			add(e.Name, "primary key references unknown column %s", name)
			continue
		}
		if c.Nullable {
			add(e.Name, "primary key column %s is nullable", name)
		}
	}
}

func (g *Graph) validateRelationship(r Relationship, add func(entity, format string, args ...any)) {
	src, ok := g.lookup(r.Source)
	if !ok {
		add(r.Source, "foreign key %s declared on unknown entity", r.Name)
		return
	}
	target, ok := g.lookup(r.Target)
	if !ok {
		add(r.Source, "foreign key %s references unknown entity %s", r.Name, r.Target)
		return
	}
	if len(r.SourceColumns) == 0 {
		add(r.Source, "foreign key %s has no columns", r.Name)
		return
	}
	if len(r.SourceColumns) != len(r.TargetColumns) {
		add(r.Source, "foreign key %s maps %d columns onto %d", r.Name, len(r.SourceColumns), len(r.TargetColumns))
		return
	}

	for i, name := range r.SourceColumns {
		sc, ok := src.Column(name)
		if !ok {
			add(r.Source, "foreign key %s references unknown column %s", r.Name, name)
			continue
		}
		tc, ok := target.Column(r.TargetColumns[i])
		if !ok {
			add(r.Source, "foreign key %s references unknown column %s.%s", r.Name, r.Target, r.TargetColumns[i])
			continue
		}
		if sc.Type.Kind != tc.Type.Kind {
			add(r.Source, "foreign key %s column %s is %s but %s.%s is %s",
				r.Name, name, sc.Type, r.Target, tc.Name, tc.Type)
		}
		if r.OnDelete == SetNull && !sc.Nullable {
			add(r.Source, "foreign key %s uses SET NULL on non-nullable column %s", r.Name, name)
		}
	}

	if !target.SameKey(r.TargetColumns) {
		add(r.Source, "foreign key %s must reference the primary key of %s", r.Name, r.Target)
	}

	switch r.OnDelete {
	case Cascade, SetNull, Restrict, NoAction:
	default:
		add(r.Source, "foreign key %s has unknown referential action %q", r.Name, r.OnDelete)
	}
}

func (g *Graph) validateIndex(idx Index, add func(entity, format string, args ...any)) {
	e, ok := g.lookup(idx.Entity)
	if !ok {
		add(idx.Entity, "index %s declared on unknown entity", idx.Name)
		return
	}
	if len(idx.Columns) == 0 {
		add(idx.Entity, "index %s has no columns", idx.Name)
	}
	for _, name := range idx.Columns {
		if _, ok := e.Column(name); !ok {
			add(idx.Entity, "index %s references unknown column %s", idx.Name, name)
		}
	}
}
