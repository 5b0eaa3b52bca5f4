package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrMissingEntry     = errors.New("missing CPT entry")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrDivisionByZero   = errors.New("evidence has zero probability")
	ErrInvalidNetwork   = errors.New("invalid network")
	ErrTooLarge         = errors.New("too many variables to enumerate")
	ErrNotFound         = errors.New("not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// MissingEntryError reports a CPT lookup with no matching row.
// It indicates a malformed network definition.
type MissingEntryError struct {
	Key string // e.g. "At|Bt,Ef"
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingEntry, e.Key)
}

func (e *MissingEntryError) Unwrap() error { return ErrMissingEntry }

// InvalidQueryError reports malformed or contradictory query input.
type InvalidQueryError struct {
	Literal string
	Reason  string
}

func (e *InvalidQueryError) Error() string {
	if e.Literal == "" {
		return fmt.Sprintf("%v: %s", ErrInvalidQuery, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrInvalidQuery, e.Literal, e.Reason)
}

func (e *InvalidQueryError) Unwrap() error { return ErrInvalidQuery }

// DivisionByZeroError reports conditioning on evidence that is impossible
// under the network.
type DivisionByZeroError struct {
	Evidence string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("%v: P(%s) = 0", ErrDivisionByZero, e.Evidence)
}

func (e *DivisionByZeroError) Unwrap() error { return ErrDivisionByZero }
