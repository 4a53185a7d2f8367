package object

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/signadot/simtree/primitive"
	"github.com/signadot/simtree/schema"
)

// List is the container for a repeatable declaration. Its children keep
// insertion order, and its declared bounds are checked on mutation.
type List struct {
	Complex
}

// Declaration returns the declaration the list's children occupy.
func (l *List) Declaration() *schema.Declaration {
	return l.itemDecl
}

// IsFull reports whether the list holds as many children as its
// declaration allows.
func (l *List) IsFull() bool {
	return l.itemDecl.IsFull(len(l.parts))
}

// CanRemove reports whether a child may be removed by a user without going
// below the declaration's minimum.
func (l *List) CanRemove() bool {
	return len(l.parts) > l.itemDecl.MinOccurs
}

// Add adds child, replacing any child with the same identifier. Adding a
// new identifier to a full list fails with ErrMultiplicity.
func (l *List) Add(child Node, origin ChangeOrigin) error {
	if err := l.checkAdd(child); err != nil {
		return err
	}
	if l.index[child.Identifier()] == nil && l.IsFull() {
		return fmt.Errorf("%w: %s holds %d of at most %d", ErrMultiplicity, Path(l), len(l.parts), l.itemDecl.MaxOccurs)
	}
	l.add(child, origin)
	return nil
}

// UniqueIdentifier returns id if no child has it, otherwise the first of
// "id 2", "id 3", ... that is free.
func (l *List) UniqueIdentifier(id string) string {
	res := id
	for n := 2; l.index[res] != nil; n++ {
		res = id + " " + strconv.Itoa(n)
	}
	return res
}

// AddWithUniqueIdentifier adds child under a free identifier derived from
// its own instead of replacing a namesake. A child the list cannot take
// keeps its identifier.
func (l *List) AddWithUniqueIdentifier(child Node, origin ChangeOrigin) error {
	if child.Parent() == l {
		return nil
	}
	if err := l.checkAdd(child); err != nil {
		return err
	}
	if l.IsFull() {
		return fmt.Errorf("%w: %s holds %d of at most %d", ErrMultiplicity, Path(l), len(l.parts), l.itemDecl.MaxOccurs)
	}
	id := l.UniqueIdentifier(child.Identifier())
	if id != child.Identifier() {
		if err := child.SetIdentifier(id, origin); err != nil {
			return err
		}
	}
	return l.Add(child, origin)
}

// RemoveChild removes child. A user may not take the list below its
// declared minimum; server and internal removals are not limited.
func (l *List) RemoveChild(child Node, origin ChangeOrigin) error {
	if child == nil || child.Parent() != l {
		return fmt.Errorf("%w: child of %s", ErrNotFound, Path(l))
	}
	if origin.Kind == OriginUser && !l.CanRemove() {
		return fmt.Errorf("%w: %s needs at least %d", ErrMultiplicity, Path(l), l.itemDecl.MinOccurs)
	}
	l.remove(child, origin)
	return nil
}

// Update applies the <update> children of el to the list.
func (l *List) Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	return applyUpdates(l, el, t, origin)
}

func (l *List) clone(f *Factory) Node {
	c := f.newList(l.itemDecl, cloneParts(f, l.parts))
	c.id = l.id
	return c
}
