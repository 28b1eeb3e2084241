package geometry

import "errors"

var (
	// ErrConflict indicates two alternative parameterizations of one quantity were both given.
	ErrConflict = errors.New("geometry: conflicting parameters")

	// ErrMissing indicates a required quantity was given in neither of its forms.
	ErrMissing = errors.New("geometry: missing parameter")

	// ErrInvalid indicates a non-physical value, such as a negative radius.
	ErrInvalid = errors.New("geometry: invalid parameter")
)
