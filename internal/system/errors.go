package system

import "errors"

var (
	ErrEmptyGrid        = errors.New("system: empty grid")
	ErrGridSize         = errors.New("system: invalid current sweep size")
	ErrUnboundedCurrent = errors.New("system: phase current limit is unbounded")
	ErrUnknownPath      = errors.New("system: unknown path")
	ErrInvalid          = errors.New("system: invalid value")
	ErrShape            = errors.New("system: mismatched shapes")
)
