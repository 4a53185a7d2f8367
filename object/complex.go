package object

import (
	"fmt"
	"slices"

	"github.com/beevik/etree"
	"github.com/signadot/simtree/primitive"
	"github.com/signadot/simtree/schema"
)

// Complex is a node holding children in schema declaration order, unique
// by identifier.
type Complex struct {
	base
	parts []Node
	index map[string]Node
	// itemDecl is set on lists, whose children all occupy one declaration
	// and are kept in insertion order.
	itemDecl *schema.Declaration
}

func (c *Complex) initComplex(this Node, id string, t schema.Type, f *Factory) {
	c.init(this, id, t, f)
	c.index = map[string]Node{}
}

func (c *Complex) IsLeaf() bool { return false }

func (c *Complex) Children() []Node {
	return slices.Clone(c.parts)
}

func (c *Complex) ChildCount() int {
	return len(c.parts)
}

func (c *Complex) Child(id string) Node {
	return c.index[id]
}

// IndexOf returns the position of child in the child sequence, or -1.
func (c *Complex) IndexOf(child Node) int {
	return slices.Index(c.parts, child)
}

func (c *Complex) Add(child Node, origin ChangeOrigin) error {
	if err := c.checkAdd(child); err != nil {
		return err
	}
	c.add(child, origin)
	return nil
}

// checkAdd validates child against the declaration of its slot, when the
// type declares one.
func (c *Complex) checkAdd(child Node) error {
	if child == nil {
		contractf("Add", "nil child added to %s", Path(c.this))
	}
	if child.Identifier() == "" {
		contractf("Add", "anonymous child of type %s added to %s", child.Type().QName(), Path(c.this))
	}
	if child == c.this || IsAncestor(child, c.this) {
		contractf("Add", "adding %s to %s would create a cycle", Path(child), Path(c.this))
	}
	d := c.declFor(child.Identifier())
	if d == nil {
		return nil
	}
	if !child.Type().CanSubstitute(d.Type) {
		return fmt.Errorf("%w: %s cannot occupy %s in %s", ErrNotSubstitutable, child.Type().QName(), d, Path(c.this))
	}
	return nil
}

// add inserts child, replacing any child with the same identifier, and
// fires ObjectAdded followed by ChildChanged on the ancestors.
func (c *Complex) add(child Node, origin ChangeOrigin) {
	release(child, c.this, origin)
	if prev := c.index[child.Identifier()]; prev != nil {
		c.detach(prev)
		fireRemoved(prev, origin)
	}
	c.insert(child)
	c.fire(Event{Kind: ObjectAdded, Added: child, Origin: origin})
	propagate(c.this, origin)
}

// insert places child without firing events.
func (c *Complex) insert(child Node) {
	id := child.Identifier()
	if prev := c.index[id]; prev != nil {
		c.detach(prev)
	}
	pos := c.slot(id)
	c.parts = slices.Insert(c.parts, pos, child)
	c.index[id] = child
	child.node().setParent(c.this)
}

// slot returns the position at which a child named id belongs: before the
// first present child whose declaration comes later in the schema, or last.
func (c *Complex) slot(id string) int {
	if c.itemDecl != nil {
		return len(c.parts)
	}
	d := c.typ.SubElement(id)
	if d == nil {
		return len(c.parts)
	}
	for i, p := range c.parts {
		pd := c.typ.SubElement(p.Identifier())
		if pd == nil || pd.Index() > d.Index() {
			return i
		}
	}
	return len(c.parts)
}

// release takes child out of its current parent before it moves to to.
// Leaving another parent fires Removed over child and ChildChanged from
// that parent up.
func release(child, to Node, origin ChangeOrigin) {
	p := child.Parent()
	if p == nil {
		return
	}
	c := p.node().this.(container)
	if p == to {
		c.detach(child)
		return
	}
	c.remove(child, origin)
}

// detach unlinks child without firing events.
func (c *Complex) detach(child Node) {
	i := slices.Index(c.parts, child)
	if i < 0 {
		return
	}
	c.parts = slices.Delete(c.parts, i, i+1)
	if c.index[child.Identifier()] == child {
		delete(c.index, child.Identifier())
	}
	child.node().parent = nil
}

func (c *Complex) rekey(child Node, id string) error {
	if other := c.index[id]; other != nil && other != child {
		return fmt.Errorf("%w: %q in %s", ErrDuplicateIdentifier, id, Path(c.this))
	}
	delete(c.index, child.Identifier())
	c.index[id] = child
	return nil
}

func (c *Complex) RemoveChild(child Node, origin ChangeOrigin) error {
	if child == nil || child.Parent() != c.this {
		return fmt.Errorf("%w: child of %s", ErrNotFound, Path(c.this))
	}
	c.remove(child, origin)
	return nil
}

// remove detaches child, fires Removed over its subtree and then
// ChildChanged from this node up.
func (c *Complex) remove(child Node, origin ChangeOrigin) {
	c.detach(child)
	fireRemoved(child, origin)
	c.fire(Event{Kind: ChildChanged, Changed: child, Origin: origin})
	propagate(c.this, origin)
}

func (c *Complex) ReplaceChild(old, with Node, origin ChangeOrigin) error {
	if old == nil || old.Parent() != c.this {
		return fmt.Errorf("%w: child of %s", ErrNotFound, Path(c.this))
	}
	if with == nil {
		contractf("ReplaceChild", "nil replacement in %s", Path(c.this))
	}
	if with == old {
		return nil
	}
	if IsAncestor(with, c.this) {
		contractf("ReplaceChild", "replacing with %s would create a cycle", Path(with))
	}
	if d := c.declFor(old.Identifier()); d != nil && !with.Type().CanSubstitute(d.Type) {
		return fmt.Errorf("%w: %s cannot replace %s in %s", ErrNotSubstitutable, with.Type().QName(), d, Path(c.this))
	}
	release(with, c.this, origin)
	with.node().id = old.Identifier()
	i := slices.Index(c.parts, old)
	c.parts[i] = with
	c.index[old.Identifier()] = with
	old.node().parent = nil
	with.node().setParent(c.this)

	old.node().fire(Event{Kind: Replaced, NewNode: with, Origin: origin})
	fireRemoved(old, origin)
	c.fire(Event{Kind: ChildChanged, Changed: with, Origin: origin})
	propagate(c.this, origin)
	return nil
}

// declFor returns the declaration governing a child named id.
func (c *Complex) declFor(id string) *schema.Declaration {
	if c.itemDecl != nil {
		return c.itemDecl
	}
	return c.typ.SubElement(id)
}

// Update applies the <update> children of el, or when there are none takes
// el as a complete value and brings the children in line with it.
func (c *Complex) Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	return updateParts(c, el, t, origin)
}

func (c *Complex) appendBody(el *etree.Element) {
	for _, p := range c.parts {
		AppendXML(el, p)
	}
}

func (c *Complex) clone(f *Factory) Node {
	return f.newComplex(c.id, c.typ, cloneParts(f, c.parts))
}

func cloneParts(f *Factory, parts []Node) []Node {
	res := make([]Node, len(parts))
	for i, p := range parts {
		res[i] = p.clone(f)
	}
	return res
}
