package shgat

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel validation/numerical/serialization errors (spec 7). Callers
// should use errors.Is against these and errors.As against the structured
// error types below.
var (
	ErrDuplicateID          = errors.New("shgat: duplicate id")
	ErrUnknownMember        = errors.New("shgat: unknown member")
	ErrEmptyInput           = errors.New("shgat: empty input")
	ErrNaNGradient          = errors.New("shgat: NaN gradient")
	ErrInfGradient          = errors.New("shgat: infinite gradient")
	ErrVersionMismatch      = errors.New("shgat: parameter blob version mismatch")
	ErrCorruptBlob          = errors.New("shgat: corrupt parameter blob")
	ErrMissingLevelParams   = errors.New("shgat: missing parameters for existing level")
	ErrInvalidSuccessRate   = errors.New("shgat: success rate must be in [0,1]")
)

// DimensionMismatchError reports an embedding whose length does not match
// the engine's fixed embedding_dim.
type DimensionMismatchError struct {
	Context  string
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("shgat: dimension mismatch in %s: expected %d, got %d", e.Context, e.Expected, e.Got)
}

// HierarchyCycleError reports that inserting or updating a capability's
// members would create a cycle in the capability-to-capability hierarchy.
// Path is the DFS stack from the first re-encountered capability, inclusive
// of the repeated id at both ends of the cycle.
type HierarchyCycleError struct {
	Path []string
}

func (e *HierarchyCycleError) Error() string {
	return fmt.Sprintf("shgat: hierarchy cycle detected: %s", strings.Join(e.Path, " -> "))
}

// NumericalError wraps a non-finite gradient detected during training; the
// step that produced it is aborted and parameters are left untouched.
type NumericalError struct {
	Op  string
	Err error
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("shgat: numerical error during %s: %v", e.Op, e.Err)
}

func (e *NumericalError) Unwrap() error {
	return e.Err
}
