package migrate

import "fmt"

// ApplyError reports the statement that failed while bringing a schema up.
// Statements before it have run; on stores without transactional DDL they
// are not undone.
type ApplyError struct {
	Entity    string
	Operation Operation
	Object    string
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("schema up: %s: %v", describe(e.Operation, e.Entity, e.Object), e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// RollbackError reports the statement that failed while tearing a schema
// down.
type RollbackError struct {
	Entity    string
	Operation Operation
	Object    string
	Err       error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("schema down: %s: %v", describe(e.Operation, e.Entity, e.Object), e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

func describe(op Operation, entity, object string) string {
	if object == "" {
		return fmt.Sprintf("%s %s", op, entity)
	}
	return fmt.Sprintf("%s %s on %s", op, object, entity)
}
