// Package dberr declares the error kinds shared across the buffer-managed
// page store and the execution pipeline. Components wrap one of these
// sentinels with fmt.Errorf("pkg: ...: %w", err) and callers branch on the
// kind with errors.Is, mirroring the per-package sentinel style used
// throughout the rest of the engine.
package dberr

import "errors"

var (
	// ErrIO marks a disk manager read/write failure. Fatal for the current
	// transaction; it is never retried silently.
	ErrIO = errors.New("dberr: io error")

	// ErrNoFreeFrame is returned by the buffer manager when every frame is
	// pinned and find_victim has nothing eligible to return.
	ErrNoFreeFrame = errors.New("dberr: no free frame")

	// ErrSchemaMismatch marks a tuple/value count or shape that does not
	// match the table schema it is being encoded or decoded against.
	ErrSchemaMismatch = errors.New("dberr: schema mismatch")

	// ErrTypeMismatch marks a cross-type comparison or an assignment whose
	// runtime type does not match the declared column type.
	ErrTypeMismatch = errors.New("dberr: type mismatch")

	// ErrDuplicateKey marks an index insert whose key already has an entry
	// where the index enforces uniqueness.
	ErrDuplicateKey = errors.New("dberr: duplicate key")

	// ErrNotFound is a normal result of indexed probing or heap lookup; it
	// converts to "no matching tuple" rather than aborting a transaction.
	ErrNotFound = errors.New("dberr: not found")

	// ErrOptimizerDiverged marks a rule driver that failed to reach a
	// fixpoint within the configured iteration bound.
	ErrOptimizerDiverged = errors.New("dberr: optimizer diverged")

	// ErrConfig marks an unrecognized configuration option or a value that
	// does not parse into its expected type.
	ErrConfig = errors.New("dberr: config error")

	// ErrAborted marks a transaction that observed a non-ErrNotFound error
	// (or a cooperative cancellation) and must stop producing tuples.
	ErrAborted = errors.New("dberr: aborted")

	// ErrDivByZero marks an Arithmetic expression whose right operand
	// evaluated to zero under OpDiv.
	ErrDivByZero = errors.New("dberr: division by zero")
)

// Internal wraps an error with the name of the component that raised it, for
// failures that are not meant to carry a user-visible diagnostic alone
// (spec: "internal failures additionally carry the originating component
// name").
type Internal struct {
	Component string
	Err       error
}

func (e *Internal) Error() string {
	return e.Component + ": " + e.Err.Error()
}

func (e *Internal) Unwrap() error { return e.Err }

// Wrap annotates err with the raising component, unless err is nil.
func Wrap(component string, err error) error {
	if err == nil {
		return nil
	}
	return &Internal{Component: component, Err: err}
}
