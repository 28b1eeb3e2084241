package scaled

import "errors"

var (
	// ErrUnknownAttribute indicates an attribute that is neither declared in the
	// scaling table nor stored as a coefficient.
	ErrUnknownAttribute = errors.New("scaled: unknown attribute")

	// ErrUnknownQuantity indicates a scaling quantity none of the contexts can sample.
	ErrUnknownQuantity = errors.New("scaled: unknown context quantity")

	// ErrDegenerateScale indicates a zero or non-finite scale factor when
	// back-solving a coefficient from a dimensional value.
	ErrDegenerateScale = errors.New("scaled: degenerate scale factor")
)
