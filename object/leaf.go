package object

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/primitive"
	"github.com/signadot/simtree/schema"
)

// leaf is embedded by the value kinds.
type leaf struct {
	base
}

func (l *leaf) Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	v := l.this.(Value)
	s, err := dom.ValueText(el)
	if err != nil {
		return err
	}
	return v.SetValueString(s, origin)
}

func (l *leaf) appendBody(el *etree.Element) {
	dom.AddText(el, "value", l.this.(Value).ValueString())
}

func nonNegative(t schema.Type) bool {
	return schema.IsA(t, t.Namespace()+":NonNegativeInteger") || schema.IsA(t, t.Namespace()+":NonNegativeDouble")
}

type String struct {
	leaf
	value string
}

func (s *String) Value() string { return s.value }

func (s *String) SetValue(v string, origin ChangeOrigin) {
	if v == s.value {
		return
	}
	s.value = v
	s.fireValueChanged(origin)
}

func (s *String) ValueString() string { return s.value }

func (s *String) SetValueString(v string, origin ChangeOrigin) error {
	s.SetValue(v, origin)
	return nil
}

func (s *String) clone(f *Factory) Node {
	return f.newString(s.id, s.typ, s.value)
}

type Integer struct {
	leaf
	value int64
}

func (n *Integer) Value() int64 { return n.value }

func (n *Integer) SetValue(v int64, origin ChangeOrigin) {
	if v == n.value {
		return
	}
	n.value = v
	n.fireValueChanged(origin)
}

func (n *Integer) ValueString() string {
	return strconv.FormatInt(n.value, 10)
}

func (n *Integer) SetValueString(s string, origin ChangeOrigin) error {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return parseError(n, s, errWrap(err))
	}
	if v < 0 && nonNegative(n.typ) {
		return parseError(n, s, errWrap(errNegative))
	}
	n.SetValue(v, origin)
	return nil
}

func (n *Integer) clone(f *Factory) Node {
	return f.newInteger(n.id, n.typ, n.value)
}

type Decimal struct {
	leaf
	value float64
}

func (d *Decimal) Value() float64 { return d.value }

func (d *Decimal) SetValue(v float64, origin ChangeOrigin) {
	if v == d.value || (math.IsNaN(v) && math.IsNaN(d.value)) {
		return
	}
	d.value = v
	d.fireValueChanged(origin)
}

func (d *Decimal) ValueString() string {
	return strconv.FormatFloat(d.value, 'g', -1, 64)
}

func (d *Decimal) SetValueString(s string, origin ChangeOrigin) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return parseError(d, s, errWrap(err))
	}
	if v < 0 && nonNegative(d.typ) {
		return parseError(d, s, errWrap(errNegative))
	}
	d.SetValue(v, origin)
	return nil
}

func (d *Decimal) clone(f *Factory) Node {
	return f.newDecimal(d.id, d.typ, d.value)
}

type Boolean struct {
	leaf
	value bool
}

func (b *Boolean) Value() bool { return b.value }

func (b *Boolean) SetValue(v bool, origin ChangeOrigin) {
	if v == b.value {
		return
	}
	b.value = v
	b.fireValueChanged(origin)
}

func (b *Boolean) ValueString() string {
	return strconv.FormatBool(b.value)
}

// SetValueString accepts "true", "1", "false" and "0".
func (b *Boolean) SetValueString(s string, origin ChangeOrigin) error {
	switch strings.TrimSpace(s) {
	case "true", "1":
		b.SetValue(true, origin)
	case "false", "0":
		b.SetValue(false, origin)
	default:
		return parseError(b, s, errWrap(errBoolean))
	}
	return nil
}

func (b *Boolean) clone(f *Factory) Node {
	return f.newBoolean(b.id, b.typ, b.value)
}

type Duration struct {
	leaf
	value primitive.Duration
}

func (d *Duration) Value() primitive.Duration { return d.value }

func (d *Duration) SetValue(v primitive.Duration, origin ChangeOrigin) {
	if v == d.value {
		return
	}
	d.value = v
	d.fireValueChanged(origin)
}

func (d *Duration) ValueString() string { return d.value.String() }

func (d *Duration) SetValueString(s string, origin ChangeOrigin) error {
	v, err := primitive.ParseDuration(s)
	if err != nil {
		return parseError(d, s, err)
	}
	d.SetValue(v, origin)
	return nil
}

func (d *Duration) clone(f *Factory) Node {
	return f.newDuration(d.id, d.typ, d.value)
}

type Timestamp struct {
	leaf
	value primitive.Timestamp
}

func (t *Timestamp) Value() primitive.Timestamp { return t.value }

func (t *Timestamp) SetValue(v primitive.Timestamp, origin ChangeOrigin) {
	if v == t.value {
		return
	}
	t.value = v
	t.fireValueChanged(origin)
}

func (t *Timestamp) ValueString() string { return t.value.String() }

func (t *Timestamp) SetValueString(s string, origin ChangeOrigin) error {
	v, err := primitive.ParseTimestamp(s)
	if err != nil {
		return parseError(t, s, err)
	}
	t.SetValue(v, origin)
	return nil
}

func (t *Timestamp) clone(f *Factory) Node {
	return f.newTimestamp(t.id, t.typ, t.value)
}

// SymbolIDCode holds a fixed length symbol identification code.
type SymbolIDCode struct {
	leaf
	value string
}

func (s *SymbolIDCode) Value() string { return s.value }

func (s *SymbolIDCode) ValueString() string { return s.value }

// SetValueString accepts exactly 15 characters once surrounding space is
// trimmed.
func (s *SymbolIDCode) SetValueString(v string, origin ChangeOrigin) error {
	code, err := primitive.ParseSymbolCode(v)
	if err != nil {
		return parseError(s, v, err)
	}
	if code == s.value {
		return nil
	}
	s.value = code
	s.fireValueChanged(origin)
	return nil
}

func (s *SymbolIDCode) Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	v, err := symbolText(el)
	if err != nil {
		return err
	}
	return s.SetValueString(v, origin)
}

func symbolText(el *etree.Element) (string, error) {
	outer := dom.FirstChild(el, "value")
	if outer == nil {
		return "", fmt.Errorf("%w: <%s> has no <value>", dom.ErrMissingElement, el.Tag)
	}
	return dom.ValueText(outer)
}

func (s *SymbolIDCode) appendBody(el *etree.Element) {
	dom.AddText(el.CreateElement("value"), "value", s.value)
}

func (s *SymbolIDCode) clone(f *Factory) Node {
	return f.newSymbolIDCode(s.id, s.typ, s.value)
}

// Reference holds a reference to another node of the tree.
type Reference struct {
	leaf
	value primitive.Reference
}

func (r *Reference) Value() primitive.Reference { return r.value }

func (r *Reference) SetValue(v primitive.Reference, origin ChangeOrigin) {
	if v.Equal(r.value) {
		return
	}
	r.value = v
	r.fireValueChanged(origin)
}

func (r *Reference) ValueString() string { return r.value.String() }

func (r *Reference) SetValueString(s string, origin ChangeOrigin) error {
	v, err := primitive.ParseReference(s)
	if err != nil {
		return parseError(r, s, err)
	}
	r.SetValue(v, origin)
	return nil
}

// Target resolves the reference from the reference's own position.
func (r *Reference) Target() Node {
	scope := r.Parent()
	if scope == nil {
		return nil
	}
	return Resolve(scope, r.value)
}

func (r *Reference) Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	v, err := referenceFromElement(el)
	if err != nil {
		return err
	}
	r.SetValue(v, origin)
	return nil
}

// referenceFromElement reads <name>n</name><scope><name>s</name>...</scope>,
// innermost name first. A plain <value> is accepted as well.
func referenceFromElement(el *etree.Element) (primitive.Reference, error) {
	name, ok := dom.ChildText(el, "name")
	if !ok {
		s, err := dom.ValueText(el)
		if err != nil {
			return primitive.Reference{}, err
		}
		return primitive.ParseReference(s)
	}
	ids := []string{name}
	for sc := dom.FirstChild(el, "scope"); sc != nil; sc = dom.FirstChild(sc, "scope") {
		n, ok := dom.ChildText(sc, "name")
		if !ok {
			break
		}
		ids = append(ids, n)
	}
	slices.Reverse(ids)
	return primitive.NewReference(ids...), nil
}

func (r *Reference) appendBody(el *etree.Element) {
	ids := r.value.Identifiers()
	cur := el
	for i := len(ids) - 1; i >= 0; i-- {
		if i < len(ids)-1 {
			cur = cur.CreateElement("scope")
		}
		dom.AddText(cur, "name", ids[i])
	}
}

func (r *Reference) clone(f *Factory) Node {
	return f.newReference(r.id, r.typ, r.value)
}
