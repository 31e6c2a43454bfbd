package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup, update or delete matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrUniqueViolation matches constraint errors raised for duplicate keys.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrForeignKeyViolation matches constraint errors raised for dangling references.
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")
)

// ConstraintKind identifies the constraint the storage engine enforced.
type ConstraintKind int

const (
	ConstraintUnknown ConstraintKind = iota
	ConstraintUnique
	ConstraintForeignKey
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique constraint"
	case ConstraintForeignKey:
		return "foreign key constraint"
	default:
		return "constraint"
	}
}

// ConstraintError wraps a driver error raised by the storage engine when a
// write violates a constraint. The driver error stays reachable via errors.As.
type ConstraintError struct {
	Kind  ConstraintKind
	Table string
	Err   error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s violated on %s: %v", e.Kind, e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this constraint kind.
func (e *ConstraintError) Is(target error) bool {
	switch target {
	case ErrUniqueViolation:
		return e.Kind == ConstraintUnique
	case ErrForeignKeyViolation:
		return e.Kind == ConstraintForeignKey
	}
	return false
}

// constraintError classifies err with the driver's rules and wraps it when it
// is a constraint violation. Other errors are returned unchanged.
func (d driver) constraintError(table string, err error) error {
	if err == nil || d.classify == nil {
		return err
	}
	if kind, ok := d.classify(err); ok {
		return &ConstraintError{Kind: kind, Table: table, Err: err}
	}
	return err
}

// notFound maps sql.ErrNoRows onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
