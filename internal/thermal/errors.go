package thermal

import "errors"

var (
	ErrUnknownNode = errors.New("thermal: unknown node")
	ErrInvalid     = errors.New("thermal: invalid parameter")
	ErrSingular    = errors.New("thermal: singular network")
)
