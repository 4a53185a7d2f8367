package object

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/signadot/simtree/primitive"
	"github.com/signadot/simtree/schema"
)

// Node is an element of the object tree.
type Node interface {
	Identifier() string
	// SetIdentifier renames the node, keeping the parent's identifier index
	// in step, and fires IdentifierChanged with the old identifier.
	SetIdentifier(id string, origin ChangeOrigin) error
	Type() schema.Type
	Parent() Node
	Factory() *Factory
	IsLeaf() bool

	// Children returns a copy of the child sequence, in schema order.
	Children() []Node
	ChildCount() int
	Child(id string) Node

	Add(child Node, origin ChangeOrigin) error
	RemoveChild(child Node, origin ChangeOrigin) error
	ReplaceChild(old, with Node, origin ChangeOrigin) error
	// Replace puts with in this node's place in its parent.
	Replace(with Node, origin ChangeOrigin) error

	// Update applies el, either an update batch or a new value, at
	// simulation time t.
	Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error

	AddEventListener(l Listener)
	RemoveEventListener(l Listener)

	XML() string

	node() *base
	appendBody(el *etree.Element)
	clone(f *Factory) Node
}

// base carries the state every node has. this is the outermost value
// embedding base, through which calls that concrete kinds override are
// made.
type base struct {
	this     Node
	id       string
	typ      schema.Type
	parent   Node
	factory  *Factory
	ls       listeners
	attached bool
	selected bool
}

func (b *base) init(this Node, id string, t schema.Type, f *Factory) {
	b.this = this
	b.id = id
	b.typ = t
	b.factory = f
}

func (b *base) node() *base { return b }

func (b *base) Identifier() string { return b.id }

func (b *base) Type() schema.Type { return b.typ }

func (b *base) Parent() Node { return b.parent }

func (b *base) Factory() *Factory { return b.factory }

func (b *base) IsLeaf() bool { return true }

func (b *base) Children() []Node { return nil }

func (b *base) ChildCount() int { return 0 }

func (b *base) Child(string) Node { return nil }

func (b *base) Add(child Node, origin ChangeOrigin) error {
	contractf("Add", "%s is a leaf of type %s", Path(b.this), b.typ.QName())
	return nil
}

func (b *base) RemoveChild(child Node, origin ChangeOrigin) error {
	contractf("RemoveChild", "%s is a leaf of type %s", Path(b.this), b.typ.QName())
	return nil
}

func (b *base) ReplaceChild(old, with Node, origin ChangeOrigin) error {
	contractf("ReplaceChild", "%s is a leaf of type %s", Path(b.this), b.typ.QName())
	return nil
}

func (b *base) Replace(with Node, origin ChangeOrigin) error {
	if b.parent == nil {
		return fmt.Errorf("%w: cannot replace %s", ErrNoParent, b.id)
	}
	return b.parent.ReplaceChild(b.this, with, origin)
}

func (b *base) SetIdentifier(id string, origin ChangeOrigin) error {
	if id == "" {
		return fmt.Errorf("%w: renaming %s", ErrAnonymous, Path(b.this))
	}
	if id == b.id {
		return nil
	}
	if b.parent != nil {
		if err := b.parent.(container).rekey(b.this, id); err != nil {
			return err
		}
	}
	old := b.id
	b.id = id
	b.fire(Event{Kind: IdentifierChanged, OldIdentifier: old, Origin: origin})
	return nil
}

func (b *base) XML() string {
	return XML(b.this)
}

func (b *base) String() string {
	return fmt.Sprintf("%s(%s)", Path(b.this), b.typ.QName())
}

// setParent links b under p and runs the factory's attached hook the
// first time b gains a parent.
func (b *base) setParent(p Node) {
	b.parent = p
	if p == nil || b.attached {
		return
	}
	b.attached = true
	if b.factory != nil {
		b.factory.fireAttached(b.this)
	}
}

// container is implemented by nodes that hold an identifier index.
type container interface {
	Node
	rekey(child Node, id string) error
	detach(child Node)
	remove(child Node, origin ChangeOrigin)
}

// Value is implemented by leaves whose value has a canonical string form.
type Value interface {
	Node
	ValueString() string
	// SetValueString parses s and sets the value when it differs from the
	// current one. It returns a *ParseError and leaves the node unchanged
	// when s does not parse.
	SetValueString(s string, origin ChangeOrigin) error
}
