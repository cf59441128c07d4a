package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a schema description. Foreign keys and indexes
// are declared under their entity; declaration order is file order.
type File struct {
	Entities []EntitySpec `yaml:"entities"`
}

// EntitySpec is one entity in a schema file.
type EntitySpec struct {
	Name        string           `yaml:"name"`
	Schema      string           `yaml:"schema,omitempty"`
	Columns     []ColumnSpec     `yaml:"columns"`
	PrimaryKey  []string         `yaml:"primaryKey,omitempty"`
	ForeignKeys []ForeignKeySpec `yaml:"foreignKeys,omitempty"`
	Indexes     []IndexSpec      `yaml:"indexes,omitempty"`
}

// ColumnSpec is one column in a schema file.
type ColumnSpec struct {
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
	Nullable bool    `yaml:"nullable,omitempty"`
	Default  *string `yaml:"default,omitempty"`
}

// ForeignKeySpec is one foreign key in a schema file. TargetColumns defaults
// to the target's primary key.
type ForeignKeySpec struct {
	Name          string   `yaml:"name,omitempty"`
	Columns       []string `yaml:"columns"`
	References    string   `yaml:"references"`
	TargetColumns []string `yaml:"targetColumns,omitempty"`
	OnDelete      string   `yaml:"onDelete,omitempty"`
	Deferred      bool     `yaml:"deferred,omitempty"`
}

// IndexSpec is one index in a schema file.
type IndexSpec struct {
	Name    string   `yaml:"name,omitempty"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
	Filter  string   `yaml:"filter,omitempty"`
}

// LoadFile reads and validates a YAML schema description from path.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	g, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Load decodes a YAML schema description and builds a validated Graph.
// Unknown keys are rejected so typos do not silently drop constraints.
func Load(r io.Reader) (*Graph, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Problems: []Problem{{Message: "schema file is empty"}}}
		}
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return f.Graph()
}

// Graph converts the file into a validated Graph. Type and action spellings
// are checked here; everything else is checked by NewGraph.
func (f *File) Graph() (*Graph, error) {
	var (
		entities      []Entity
		relationships []Relationship
		indexes       []Index
		problems      []Problem
	)

	for _, es := range f.Entities {
		e := Entity{Name: es.Name, Schema: es.Schema, PrimaryKey: es.PrimaryKey}
		for _, cs := range es.Columns {
			t, err := ParseType(cs.Type)
			if err != nil {
				problems = append(problems, Problem{Entity: es.Name, Message: fmt.Sprintf("column %s: %v", cs.Name, err)})
				continue
			}
			e.Columns = append(e.Columns, Column{Name: cs.Name, Type: t, Nullable: cs.Nullable, Default: cs.Default})
		}
		if len(e.PrimaryKey) == 0 {
			if _, ok := e.Column("Id"); ok {
				e.PrimaryKey = []string{"Id"}
			}
		}
		entities = append(entities, e)

		for _, fk := range es.ForeignKeys {
			action, err := ParseAction(fk.OnDelete)
			if err != nil {
				problems = append(problems, Problem{Entity: es.Name, Message: fmt.Sprintf("foreign key to %s: %v", fk.References, err)})
				continue
			}
			relationships = append(relationships, Relationship{
				Name:          fk.Name,
				Source:        es.Name,
				SourceColumns: fk.Columns,
				Target:        fk.References,
				TargetColumns: fk.TargetColumns,
				OnDelete:      action,
				Deferred:      fk.Deferred,
			})
		}

		for _, is := range es.Indexes {
			indexes = append(indexes, Index{
				Name:    is.Name,
				Entity:  es.Name,
				Columns: is.Columns,
				Unique:  is.Unique,
				Filter:  is.Filter,
			})
		}
	}

	if len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}
	return NewGraph(entities, relationships, indexes)
}
