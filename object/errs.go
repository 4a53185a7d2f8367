package object

import (
	"errors"
	"fmt"

	"github.com/signadot/simtree/primitive"
	"github.com/signadot/simtree/schema"
)

var (
	ErrParse               = primitive.ErrParse
	ErrNotFound            = errors.New("not found")
	ErrMultiplicity        = errors.New("multiplicity violated")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrAnonymous           = errors.New("anonymous identifier")
	ErrUnknownType         = errors.New("unknown type")
	ErrNoParent            = errors.New("node has no parent")
	ErrFixedShape          = errors.New("fixed shape")
	ErrNotSubstitutable    = schema.ErrNotSubstitutable

	errNegative = errors.New("negative value for a non-negative type")
	errBoolean  = errors.New("want true, false, 1 or 0")
	errLatLon   = errors.New("want a latitude and a longitude")
)

// errWrap marks a strconv or validation error as a parse error.
func errWrap(err error) error {
	return fmt.Errorf("%w: %w", ErrParse, err)
}

// ParseError reports a value that could not be set on a leaf from its
// string form. The leaf is left unchanged.
type ParseError struct {
	Path  string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: cannot set %q: %v", e.Path, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(n Node, input string, err error) error {
	return &ParseError{Path: Path(n).String(), Input: input, Err: err}
}

// ContractError is the panic value for programming errors: mutations a
// node's shape forbids, unregistered types, anonymous identifiers.
type ContractError struct {
	Op  string
	Msg string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("object: %s: %s", e.Op, e.Msg)
}

func contractf(op string, format string, args ...any) {
	panic(&ContractError{Op: op, Msg: fmt.Sprintf(format, args...)})
}
