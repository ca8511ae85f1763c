package optimizer

import (
	"errors"
	"fmt"
)

// ErrStuck is matched by a SearchError of kind KindStuck.
var ErrStuck = errors.New("no legal moves from a non-terminal plan state")

// SearchErrorKind classifies search failures.
type SearchErrorKind string

// KindStuck means move generation returned nothing for a non-terminal state.
const KindStuck SearchErrorKind = "stuck"

// SearchError is returned when the search cannot continue. State carries a
// description of the offending plan state and Plan the state itself.
type SearchError struct {
	Kind  SearchErrorKind
	State string
	Plan  *PlanState
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %s at state %s", e.Kind, e.State)
}

func (e *SearchError) Unwrap() error {
	if e.Kind == KindStuck {
		return ErrStuck
	}
	return nil
}

// ErrInvalidConfig is returned when the configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}
