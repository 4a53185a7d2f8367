package schema

import (
	"fmt"
	"strconv"
)

// Declaration describes one child slot permitted by a type.
type Declaration struct {
	Name      string
	Type      Type
	MinOccurs int
	MaxOccurs int
	Unbounded bool

	index int
}

// NewDeclaration creates a free-standing declaration, one that is not
// part of any type's element list.
func NewDeclaration(name string, t Type, min, max int, unbounded bool) *Declaration {
	return &Declaration{
		Name:      name,
		Type:      t,
		MinOccurs: min,
		MaxOccurs: max,
		Unbounded: unbounded,
		index:     -1,
	}
}

// Singular returns a declaration for exactly one occurrence of t.
func Singular(name string, t Type) *Declaration {
	return NewDeclaration(name, t, 1, 1, false)
}

// Index is the position of the declaration in its owning type's element
// list, or -1 for a free-standing declaration.
func (d *Declaration) Index() int {
	return d.index
}

func (d *Declaration) IsSingular() bool {
	return d.MinOccurs == 1 && d.MaxOccurs == 1 && !d.Unbounded
}

func (d *Declaration) IsOptional() bool {
	return d.MinOccurs == 0 && d.MaxOccurs == 1 && !d.Unbounded
}

// IsList reports whether the slot is repeatable.
func (d *Declaration) IsList() bool {
	return d.Unbounded || d.MinOccurs > 1 || d.MaxOccurs > 1
}

// IsFull reports whether n occurrences saturate the declaration.
func (d *Declaration) IsFull(n int) bool {
	return !d.Unbounded && n >= d.MaxOccurs
}

// Clone returns a copy of d declared with subType, which must be
// substitutable for d's type.
func (d *Declaration) Clone(subType Type) (*Declaration, error) {
	if subType == nil {
		subType = d.Type
	}
	if !subType.CanSubstitute(d.Type) {
		return nil, fmt.Errorf("%w: %s cannot substitute %s in %q", ErrNotSubstitutable, subType.QName(), d.Type.QName(), d.Name)
	}
	c := *d
	c.Type = subType
	return &c, nil
}

// Renamed returns a copy of d with a different slot name.
func (d *Declaration) Renamed(name string) *Declaration {
	c := *d
	c.Name = name
	return &c
}

func (d *Declaration) String() string {
	max := strconv.Itoa(d.MaxOccurs)
	if d.Unbounded {
		max = "*"
	}
	tn := "<nil>"
	if d.Type != nil {
		tn = d.Type.QName()
	}
	return fmt.Sprintf("%s: %s [%d..%s]", d.Name, tn, d.MinOccurs, max)
}
