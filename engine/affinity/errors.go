package affinity

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three failure classes of a grouping run.
var (
	// ErrConfig marks an invalid grouping configuration. Raised before any model call.
	ErrConfig = errors.New("affinity configuration error")
	// ErrModel marks an embedding or clustering failure.
	ErrModel = errors.New("affinity model error")
	// ErrNaming marks a failure of the group naming stage.
	ErrNaming = errors.New("affinity naming error")
)

// Error carries the failing operation together with its error class.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error for op.
func NewConfigError(op string, err error) error {
	return &Error{Kind: ErrConfig, Op: op, Err: err}
}

// NewModelError creates a model/library error for op.
func NewModelError(op string, err error) error {
	return &Error{Kind: ErrModel, Op: op, Err: err}
}

// NewNamingError creates a naming-service error for op.
func NewNamingError(op string, err error) error {
	return &Error{Kind: ErrNaming, Op: op, Err: err}
}
