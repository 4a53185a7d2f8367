package dom

import "errors"

var ErrMissingElement = errors.New("missing element")
