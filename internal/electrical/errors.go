package electrical

import "errors"

var (
	ErrConflict = errors.New("electrical: conflicting parameters")
	ErrMissing  = errors.New("electrical: missing parameter")
	ErrInvalid  = errors.New("electrical: invalid parameter")
)
