package object

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/golang/glog"
	"github.com/signadot/simtree/debug"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/primitive"
	"github.com/signadot/simtree/schema"
)

// opFunc applies one <update> element to target.
type opFunc func(target Node, up *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error

// opcode returns the function applying the update named op, or nil.
func opcode(op string) opFunc {
	switch op {
	case "UpdateScope":
		return updateScope
	case "UpdateAdd":
		return updateAdd
	case "UpdateRemove":
		return updateRemove
	case "UpdateReplace":
		return updateReplace
	case "UpdateModify":
		return updateModify
	}
	return nil
}

// Opcodes returns the names of the update operations understood by Update.
func Opcodes() []string {
	return []string{"UpdateScope", "UpdateAdd", "UpdateRemove", "UpdateReplace", "UpdateModify"}
}

// applyUpdates runs the <update> children of el against target in document
// order. A failing update is logged and skipped; the failures are returned
// together once the batch is done.
func applyUpdates(target Node, el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	var errs []error
	for _, up := range dom.Children(el, "update") {
		op := localName(dom.XSIType(up))
		fn := opcode(op)
		if fn == nil {
			glog.V(2).Infof("skipping unknown update %q at %s", op, Path(target))
			continue
		}
		if debug.Update() {
			debug.Logf("%s %s/%s (%s)\n", op, Path(target), up.SelectAttrValue(dom.IdentifierAttr, ""), origin)
		}
		if err := fn(target, up, t, origin); err != nil {
			glog.Warningf("%s at %s: %v", op, Path(target), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func localName(qname string) string {
	if i := strings.LastIndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

func updateID(up *etree.Element) (string, error) {
	id := up.SelectAttrValue(dom.IdentifierAttr, "")
	if id == "" {
		return "", fmt.Errorf("%w: %s without identifier", ErrAnonymous, localName(dom.XSIType(up)))
	}
	return id, nil
}

func updateChild(target Node, up *etree.Element) (Node, error) {
	id, err := updateID(up)
	if err != nil {
		return nil, err
	}
	c := target.Child(id)
	if c == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrNotFound, id, Path(target))
	}
	return c, nil
}

// payload returns the named payload element of up and the identifier the
// node built from it gets: its own identifier attribute, else the update's.
func payload(up *etree.Element, tag string) (*etree.Element, string, error) {
	el := dom.FirstChild(up, tag)
	if el == nil {
		return nil, "", fmt.Errorf("%w: <%s> in %s", dom.ErrMissingElement, tag, localName(dom.XSIType(up)))
	}
	if id := el.SelectAttrValue(dom.IdentifierAttr, ""); id != "" {
		return el, id, nil
	}
	id, err := updateID(up)
	return el, id, err
}

// slotDecl returns the declaration a child of target named id occupies.
func slotDecl(target Node, id string) *schema.Declaration {
	if l, ok := target.(*List); ok {
		return l.itemDecl
	}
	return target.Type().SubElement(id)
}

// updateScope runs the updates nested in up against the child it names.
func updateScope(target Node, up *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	c, err := updateChild(target, up)
	if err != nil {
		return err
	}
	if c.IsLeaf() {
		return c.Update(up, t, origin)
	}
	return applyUpdates(c, up, t, origin)
}

// checkSlot rejects updates that would put a single node where target
// keeps a list.
func checkSlot(target Node, d *schema.Declaration, id string) error {
	if _, ok := target.(*List); !ok && d.IsList() {
		return fmt.Errorf("%w: %q in %s is a list, update its items", ErrMultiplicity, id, Path(target))
	}
	return nil
}

func updateAdd(target Node, up *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	el, id, err := payload(up, "identifiable")
	if err != nil {
		return err
	}
	d := slotDecl(target, id)
	if d == nil {
		return fmt.Errorf("%w: %s declares no %q", ErrNotFound, target.Type().QName(), id)
	}
	if err := checkSlot(target, d, id); err != nil {
		return err
	}
	n, err := target.Factory().fromElementAs(d, id, el)
	if err != nil {
		return err
	}
	if _, ok := target.(*Line); ok {
		if _, ok := n.(*Point); !ok {
			return fmt.Errorf("%w: %s only holds points p1 and p2", ErrFixedShape, Path(target))
		}
	}
	return target.Add(n, origin)
}

// updateRemove treats a missing child as already removed.
func updateRemove(target Node, up *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	c, err := updateChild(target, up)
	if errors.Is(err, ErrNotFound) {
		glog.Warningf("remove at %s: %v", Path(target), err)
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := target.(*Line); ok {
		return fmt.Errorf("%w: end point %q of %s", ErrFixedShape, c.Identifier(), Path(target))
	}
	return target.RemoveChild(c, origin)
}

func updateReplace(target Node, up *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	c, err := updateChild(target, up)
	if err != nil {
		return err
	}
	el := dom.FirstChild(up, "newObject")
	if el == nil {
		return fmt.Errorf("%w: <newObject> in UpdateReplace", dom.ErrMissingElement)
	}
	d := slotDecl(target, c.Identifier())
	if d == nil {
		return fmt.Errorf("%w: %s declares no %q", ErrNotFound, target.Type().QName(), c.Identifier())
	}
	if err := checkSlot(target, d, c.Identifier()); err != nil {
		return err
	}
	n, err := target.Factory().fromElementAs(d, c.Identifier(), el)
	if err != nil {
		return err
	}
	return c.Replace(n, origin)
}

func updateModify(target Node, up *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	c, err := updateChild(target, up)
	if err != nil {
		return err
	}
	el := dom.FirstChild(up, "newValue")
	if el == nil {
		return fmt.Errorf("%w: <newValue> in UpdateModify", dom.ErrMissingElement)
	}
	return c.Update(el, t, origin)
}

// updateParts applies el to c: as an update batch when el has <update>
// children, otherwise as the complete new value of c.
func updateParts(c *Complex, el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	if len(dom.Children(el, "update")) != 0 {
		return applyUpdates(c.this, el, t, origin)
	}
	var errs []error
	for _, d := range c.typ.SubElements() {
		cur := c.index[d.Name]
		if d.IsList() {
			l, ok := cur.(*List)
			if !ok {
				l = c.factory.newList(d, nil)
				c.add(l, origin)
			}
			if err := syncList(l, dom.Children(el, d.Name), t, origin); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		sub := dom.FirstChild(el, d.Name)
		if sub == nil {
			continue
		}
		if cur != nil {
			if err := cur.Update(sub, t, origin); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		n, err := c.factory.fromElementAs(d, d.Name, sub)
		if err == nil {
			err = c.this.Add(n, origin)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// syncList makes l hold exactly the items described by elems: existing
// items are updated in place, new ones built and added, the rest removed.
func syncList(l *List, elems []*etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	var errs []error
	keep := map[string]bool{}
	for _, e := range elems {
		id := dom.Identifier(e)
		keep[id] = true
		if cur := l.index[id]; cur != nil {
			if err := cur.Update(e, t, origin); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		n, err := l.factory.fromElementAs(l.itemDecl, id, e)
		if err == nil {
			err = l.Add(n, origin)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range l.Children() {
		if keep[p.Identifier()] {
			continue
		}
		if err := l.RemoveChild(p, origin); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// replaceIfRetyped replaces n by a node built from el when el's xsi:type
// names a type other than n's. done reports whether el was handled. An
// update batch never retypes.
func replaceIfRetyped(n Node, el *etree.Element, origin ChangeOrigin) (done bool, err error) {
	xt := dom.XSIType(el)
	if xt == "" || opcode(localName(xt)) != nil || len(dom.Children(el, "update")) != 0 {
		return false, nil
	}
	f := n.Factory()
	t := f.lookupXSI(xt)
	if t == nil {
		return true, fmt.Errorf("%w: %s", ErrUnknownType, xt)
	}
	if t.QName() == n.Type().QName() {
		return false, nil
	}
	p := n.Parent()
	if p == nil {
		return true, fmt.Errorf("%w: cannot retype %s", ErrNoParent, Path(n))
	}
	d := slotDecl(p, n.Identifier())
	if d == nil {
		return true, fmt.Errorf("%w: %s declares no %q", ErrNotFound, p.Type().QName(), n.Identifier())
	}
	x, err := f.fromElementAs(d, n.Identifier(), el)
	if err != nil {
		return true, err
	}
	return true, n.Replace(x, origin)
}
