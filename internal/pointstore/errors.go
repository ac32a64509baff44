package pointstore

import "fmt"

// Operation names used in errors, logs and metrics.
const (
	OpCreate  = "create"
	OpReadAll = "read_all"
	OpReadOne = "read_one"
	OpUpdate  = "update"
	OpDelete  = "delete"
)

// PersistenceError is the single error kind returned by the store. It covers
// connection, permission, validation and not-found-on-update failures; the
// cause stays reachable through errors.Is and errors.As.
type PersistenceError struct {
	Op  string // Op is the store operation that failed.
	ID  string // ID is the point id involved, empty for create and read_all.
	Err error  // Err is the underlying cause.
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("point store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("point store %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
