package clipboard

import "errors"

// ErrUnsupported is returned when the platform has no clipboard utility.
var ErrUnsupported = errors.New("clipboard unsupported on this platform")
