package primitive

import (
	"errors"
	"fmt"
)

var ErrParse = errors.New("parse error")

func parseErr(kind, input string, why string) error {
	if why == "" {
		return fmt.Errorf("%w: invalid %s %q", ErrParse, kind, input)
	}
	return fmt.Errorf("%w: invalid %s %q: %s", ErrParse, kind, input, why)
}
