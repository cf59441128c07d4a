package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSchema is wrapped by every validation failure.
var ErrInvalidSchema = errors.New("invalid schema graph")

// Problem is a single inconsistency found while validating a graph.
type Problem struct {
	Entity  string
	Message string
}

func (p Problem) String() string {
	if p.Entity == "" {
		return p.Message
	}
	return p.Entity + ": " + p.Message
}

// SchemaError reports an internally inconsistent graph: dangling references,
// unknown columns, duplicate names. Problems are listed in declaration order.
type SchemaError struct {
	Problems []Problem
}

func (e *SchemaError) Error() string {
	if len(e.Problems) == 1 {
		return "schema: " + e.Problems[0].String()
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("schema: %d problems: %s", len(e.Problems), strings.Join(parts, "; "))
}

func (e *SchemaError) Unwrap() error { return ErrInvalidSchema }

// CycleError reports entities whose non-deferred foreign keys form a cycle.
// Cycle is one concrete loop (first entity repeated at the end); Entities is
// every entity that could not be ordered, in declaration order.
type CycleError struct {
	Cycle    []string
	Entities []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("schema: dependency cycle among non-deferred foreign keys: %s (unordered: %s); mark one relationship deferred",
		strings.Join(e.Cycle, " -> "), strings.Join(e.Entities, ", "))
}

func (e *CycleError) Unwrap() error { return ErrInvalidSchema }
