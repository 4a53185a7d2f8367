package object

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/beevik/etree"
	"github.com/signadot/simtree/debug"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/primitive"
	"github.com/signadot/simtree/schema"
)

// FactoryListener observes the node lifecycle. ObjectCreated is called for
// every node a Factory returns, ObjectAttached once per node when it first
// gains a parent.
type FactoryListener interface {
	ObjectCreated(n Node)
	ObjectAttached(n Node)
}

// FactoryOption configures NewFactory.
type FactoryOption func(*Factory)

// WithConstructor maps the type named qname to kind, overriding the default
// mapping.
func WithConstructor(qname string, kind Kind) FactoryOption {
	return func(f *Factory) {
		f.exact[qname] = kind
	}
}

// WithSubstitution makes the type named from build as the type named to
// when from has no constructor of its own.
func WithSubstitution(from, to string) FactoryOption {
	return func(f *Factory) {
		f.subst[from] = to
	}
}

// Factory creates every node of a tree. It resolves each type of its
// schema to a Kind once, at construction:
//
//  1. the type's own entry in the constructor table;
//  2. otherwise the constructor of the type it substitutes to, one level
//     only;
//  3. otherwise steps 1 and 2 for the base type, up the chain.
//
// A Factory is safe for concurrent use; the nodes it creates are not.
type Factory struct {
	schema *schema.Schema
	exact  map[string]Kind
	subst  map[string]string
	table  []Kind

	mu sync.Mutex
	ls atomic.Pointer[[]FactoryListener]
}

func NewFactory(s *schema.Schema, opts ...FactoryOption) *Factory {
	ns := s.Namespace() + ":"
	xs := schema.XSDNamespace + ":"
	f := &Factory{
		schema: s,
		exact: map[string]Kind{
			xs + "string":       KindString,
			xs + "integer":      KindInteger,
			xs + "double":       KindDecimal,
			xs + "boolean":      KindBoolean,
			xs + "dateTime":     KindTimestamp,
			ns + "Duration":     KindDuration,
			ns + "Timestamp":    KindTimestamp,
			ns + "SymbolIDCode": KindSymbolIDCode,
			ns + "Reference":    KindReference,
			ns + "Point":        KindPoint,
			ns + "Line":         KindLine,
			ns + "Circle":       KindCircle,
			ns + "Polygon":      KindPolygon,
			ns + "Composite":    KindComposite,
			ns + "ComplexType":  KindComplex,
		},
		subst: map[string]string{
			ns + "String":       xs + "string",
			ns + "Integer":      xs + "integer",
			ns + "Double":       xs + "double",
			ns + "Boolean":      xs + "boolean",
			ns + "Identifiable": ns + "ComplexType",
		},
	}
	for _, o := range opts {
		o(f)
	}
	f.table = make([]Kind, s.Len()+1)
	for _, t := range s.Types() {
		f.table[t.ID()] = f.resolve(t)
	}
	return f
}

func (f *Factory) resolve(t schema.Type) Kind {
	for x := t; x != nil; x = x.Base() {
		if k, ok := f.exact[x.QName()]; ok {
			return k
		}
		if to, ok := f.subst[x.QName()]; ok {
			if k, ok := f.exact[to]; ok {
				return k
			}
		}
	}
	return KindNone
}

func (f *Factory) Schema() *schema.Schema {
	return f.schema
}

// KindOf returns the kind nodes of type t are built as. It panics when t
// does not belong to the factory's schema or has no constructor.
func (f *Factory) KindOf(t schema.Type) Kind {
	if t == nil {
		contractf("KindOf", "nil type")
	}
	own := f.schema.ByID(t.ID())
	if own == nil || own.QName() != t.QName() {
		contractf("KindOf", "type %s is not from schema %s", t.QName(), f.schema.Namespace())
	}
	k := f.table[t.ID()]
	if k == KindNone {
		contractf("KindOf", "no constructor for type %s", t.QName())
	}
	return k
}

func (f *Factory) AddListener(l FactoryListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cur []FactoryListener
	if p := f.ls.Load(); p != nil {
		cur = *p
	}
	next := append(slices.Clone(cur), l)
	f.ls.Store(&next)
}

func (f *Factory) RemoveListener(l FactoryListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.ls.Load()
	if p == nil {
		return
	}
	i := slices.Index(*p, l)
	if i < 0 {
		return
	}
	next := slices.Delete(slices.Clone(*p), i, i+1)
	f.ls.Store(&next)
}

func (f *Factory) listeners() []FactoryListener {
	if p := f.ls.Load(); p != nil {
		return *p
	}
	return nil
}

// register is called on every node the factory returns.
func (f *Factory) register(n Node) {
	if debug.Factory() {
		debug.Logf("created %s %s\n", n.Type().QName(), n.Identifier())
	}
	for _, l := range f.listeners() {
		l.ObjectCreated(n)
	}
}

func (f *Factory) fireAttached(n Node) {
	if debug.Factory() {
		debug.Logf("attached %s\n", Path(n))
	}
	for _, l := range f.listeners() {
		l.ObjectAttached(n)
	}
}

// concrete returns t, or for an abstract t the first concrete type that
// substitutes it.
func (f *Factory) concrete(t schema.Type) schema.Type {
	if !t.IsAbstract() {
		return t
	}
	ds := f.schema.Derived(t)
	if len(ds) == 0 {
		contractf("Create", "abstract type %s has no concrete subtype", t.QName())
	}
	return ds[0]
}

// Create builds the default value for decl: an empty List for a repeatable
// declaration, otherwise a single node as CreateOne does.
func (f *Factory) Create(decl *schema.Declaration) Node {
	if decl.IsList() {
		return f.newList(decl, nil)
	}
	return f.CreateOne(decl)
}

// CreateOne builds one default node of decl's type named decl.Name. Complex
// nodes get a default child for every required singular declaration and an
// empty list for every repeatable one. An abstract type is built as its
// first concrete subtype.
func (f *Factory) CreateOne(decl *schema.Declaration) Node {
	return f.createDefault(decl.Name, f.concrete(decl.Type))
}

// CreateType builds a default node of type t identified by id.
func (f *Factory) CreateType(id string, t schema.Type) Node {
	return f.createDefault(id, f.concrete(t))
}

func (f *Factory) createDefault(id string, t schema.Type) Node {
	k := f.KindOf(t)
	switch k {
	case KindString:
		return f.newString(id, t, "")
	case KindInteger:
		return f.newInteger(id, t, 0)
	case KindDecimal:
		return f.newDecimal(id, t, 0)
	case KindBoolean:
		return f.newBoolean(id, t, false)
	case KindDuration:
		return f.newDuration(id, t, 0)
	case KindTimestamp:
		return f.newTimestamp(id, t, 0)
	case KindSymbolIDCode:
		return f.newSymbolIDCode(id, t, primitive.NoSymbolCode)
	case KindReference:
		return f.newReference(id, t, primitive.Reference{})
	case KindPoint:
		return f.newPoint(id, t, 0, 0)
	}
	var parts []Node
	for _, d := range t.SubElements() {
		switch {
		case d.IsList():
			parts = append(parts, f.newList(d, nil))
		case d.MinOccurs > 0:
			parts = append(parts, f.CreateOne(d))
		}
	}
	return f.newComplexKind(k, id, t, parts)
}

// lookupXSI resolves an xsi:type value. A prefix the schema does not know
// is tolerated by retrying with the local name.
func (f *Factory) lookupXSI(name string) schema.Type {
	if t := f.schema.Lookup(name); t != nil {
		return t
	}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return f.schema.Lookup(name[i+1:])
	}
	return nil
}

// FromElement builds a node from el, whose type is taken from its
// xsi:type attribute.
func (f *Factory) FromElement(el *etree.Element) (Node, error) {
	xt := dom.XSIType(el)
	if xt == "" {
		return nil, fmt.Errorf("%w: <%s> has no xsi:type", ErrUnknownType, el.Tag)
	}
	t := f.lookupXSI(xt)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, xt)
	}
	return f.build(dom.Identifier(el), t, el)
}

// FromElementAs builds one node for decl from el. The xsi:type of el, when
// present, must substitute decl's type; otherwise decl's type is used.
func (f *Factory) FromElementAs(decl *schema.Declaration, el *etree.Element) (Node, error) {
	return f.fromElementAs(decl, dom.Identifier(el), el)
}

func (f *Factory) fromElementAs(decl *schema.Declaration, id string, el *etree.Element) (Node, error) {
	t, err := f.elementType(decl, el)
	if err != nil {
		return nil, err
	}
	return f.build(id, t, el)
}

func (f *Factory) elementType(decl *schema.Declaration, el *etree.Element) (schema.Type, error) {
	xt := dom.XSIType(el)
	if xt == "" {
		return decl.Type, nil
	}
	t := f.lookupXSI(xt)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, xt)
	}
	if !t.CanSubstitute(decl.Type) {
		return nil, fmt.Errorf("%w: %s for %s", ErrNotSubstitutable, xt, decl)
	}
	return t, nil
}

func (f *Factory) build(id string, t schema.Type, el *etree.Element) (Node, error) {
	if t.IsAbstract() {
		return nil, fmt.Errorf("%w: %s is abstract", ErrUnknownType, t.QName())
	}
	if id == "" {
		contractf("FromElement", "anonymous element of type %s", t.QName())
	}
	k := f.KindOf(t)
	if k.IsLeaf() {
		n := f.createLeaf(k, id, t)
		if err := n.Update(el, 0, Internal); err != nil {
			return nil, err
		}
		f.register(n)
		return n, nil
	}
	var (
		parts []Node
		errs  []error
	)
	for _, d := range t.SubElements() {
		if d.IsList() {
			l := f.newList(d, nil)
			for _, item := range dom.Children(el, d.Name) {
				c, err := f.fromElementAs(d, dom.Identifier(item), item)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if l.index[c.Identifier()] != nil {
					errs = append(errs, fmt.Errorf("%w: %q in %s", ErrDuplicateIdentifier, c.Identifier(), d.Name))
					continue
				}
				l.insert(c)
			}
			parts = append(parts, l)
			continue
		}
		sub := dom.FirstChild(el, d.Name)
		if sub == nil {
			if d.MinOccurs > 0 {
				errs = append(errs, fmt.Errorf("%w: <%s> in %s %q", dom.ErrMissingElement, d.Name, t.QName(), id))
			}
			continue
		}
		c, err := f.fromElementAs(d, d.Name, sub)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parts = append(parts, c)
	}
	if len(errs) != 0 {
		return nil, fmt.Errorf("error building %s %q: %w", t.QName(), id, errors.Join(errs...))
	}
	return f.newComplexKind(k, id, t, parts), nil
}

// createLeaf builds an unregistered leaf holding the zero value.
func (f *Factory) createLeaf(k Kind, id string, t schema.Type) Node {
	switch k {
	case KindString:
		n := &String{}
		n.init(n, id, t, f)
		return n
	case KindInteger:
		n := &Integer{}
		n.init(n, id, t, f)
		return n
	case KindDecimal:
		n := &Decimal{}
		n.init(n, id, t, f)
		return n
	case KindBoolean:
		n := &Boolean{}
		n.init(n, id, t, f)
		return n
	case KindDuration:
		n := &Duration{}
		n.init(n, id, t, f)
		return n
	case KindTimestamp:
		n := &Timestamp{}
		n.init(n, id, t, f)
		return n
	case KindSymbolIDCode:
		n := &SymbolIDCode{value: primitive.NoSymbolCode}
		n.init(n, id, t, f)
		return n
	case KindReference:
		n := &Reference{}
		n.init(n, id, t, f)
		return n
	case KindPoint:
		n := &Point{}
		n.init(n, id, t, f)
		return n
	}
	contractf("createLeaf", "%s is not a leaf kind", k)
	return nil
}

// FromParts builds a node for decl out of already constructed children,
// given in any order. A repeatable decl yields a List. Children attached
// elsewhere are detached first.
func (f *Factory) FromParts(decl *schema.Declaration, parts []Node) (Node, error) {
	if decl.IsList() {
		return f.NewList(decl, parts...)
	}
	t := f.concrete(decl.Type)
	k := f.KindOf(t)
	if k.IsLeaf() {
		if len(parts) != 0 {
			contractf("FromParts", "%s of leaf type %s given children", decl.Name, t.QName())
		}
		return f.createDefault(decl.Name, t), nil
	}
	seen := map[string]bool{}
	for _, p := range parts {
		id := p.Identifier()
		d := t.SubElement(id)
		if d == nil {
			return nil, fmt.Errorf("%w: %s declares no %q", ErrNotFound, t.QName(), id)
		}
		if !p.Type().CanSubstitute(d.Type) {
			return nil, fmt.Errorf("%w: %s for %s", ErrNotSubstitutable, p.Type().QName(), d)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %q in %s", ErrDuplicateIdentifier, id, t.QName())
		}
		seen[id] = true
	}
	detachAll(parts)
	return f.newComplexKind(k, decl.Name, t, parts), nil
}

func detachAll(parts []Node) {
	for _, p := range parts {
		release(p, nil, Internal)
	}
}

// defaultType returns the schema type named name in the factory's
// namespace.
func (f *Factory) defaultType(name string) schema.Type {
	return f.schema.MustLookup(f.schema.Namespace() + ":" + name)
}

func (f *Factory) NewString(id, v string) *String {
	return f.newString(id, f.defaultType("String"), v)
}

func (f *Factory) NewInteger(id string, v int64) *Integer {
	return f.newInteger(id, f.defaultType("Integer"), v)
}

func (f *Factory) NewDecimal(id string, v float64) *Decimal {
	return f.newDecimal(id, f.defaultType("Double"), v)
}

func (f *Factory) NewBoolean(id string, v bool) *Boolean {
	return f.newBoolean(id, f.defaultType("Boolean"), v)
}

func (f *Factory) NewDuration(id string, v primitive.Duration) *Duration {
	return f.newDuration(id, f.defaultType("Duration"), v)
}

func (f *Factory) NewTimestamp(id string, v primitive.Timestamp) *Timestamp {
	return f.newTimestamp(id, f.defaultType("Timestamp"), v)
}

// NewSymbolIDCode returns an error when code is not a valid symbol code.
func (f *Factory) NewSymbolIDCode(id, code string) (*SymbolIDCode, error) {
	c, err := primitive.ParseSymbolCode(code)
	if err != nil {
		return nil, err
	}
	return f.newSymbolIDCode(id, f.defaultType("SymbolIDCode"), c), nil
}

func (f *Factory) NewReference(id string, v primitive.Reference) *Reference {
	return f.newReference(id, f.defaultType("Reference"), v)
}

func (f *Factory) NewPoint(id string, lat, lon float64) *Point {
	return f.newPoint(id, f.defaultType("Point"), lat, lon)
}

func (f *Factory) NewLine(id string, lat1, lon1, lat2, lon2 float64) *Line {
	t := f.defaultType("Line")
	return f.newLine(id, t, f.newPoint("p1", f.defaultType("Point"), lat1, lon1), f.newPoint("p2", f.defaultType("Point"), lat2, lon2))
}

func (f *Factory) NewCircle(id string, lat, lon, radius float64) *Circle {
	t := f.defaultType("Circle")
	center := f.newPoint("center", f.defaultType("Point"), lat, lon)
	r := f.newDecimal("radius", t.SubElement("radius").Type, radius)
	return f.newComplexKind(KindCircle, id, t, []Node{center, r}).(*Circle)
}

// NewPolygon returns a polygon whose curves list holds lines, which are
// renamed line 1, line 2, ... when anonymous or colliding.
func (f *Factory) NewPolygon(id string, lines ...*Line) *Polygon {
	t := f.defaultType("Polygon")
	l := f.newList(t.SubElement("curves"), nil)
	for _, ln := range lines {
		detachAll([]Node{ln})
		if ln.id == "" || l.index[ln.id] != nil {
			ln.id = l.UniqueIdentifier("line")
		}
		l.insert(ln)
	}
	return f.newComplexKind(KindPolygon, id, t, []Node{l}).(*Polygon)
}

func (f *Factory) NewComposite(id string, shapes ...Shape) *Composite {
	t := f.defaultType("Composite")
	l := f.newList(t.SubElement("shapes"), nil)
	for _, s := range shapes {
		detachAll([]Node{s})
		if l.index[s.Identifier()] != nil {
			s.node().id = l.UniqueIdentifier(s.Identifier())
		}
		l.insert(s)
	}
	return f.newComplexKind(KindComposite, id, t, []Node{l}).(*Composite)
}

// NewList returns a list for decl holding parts in the given order.
func (f *Factory) NewList(decl *schema.Declaration, parts ...Node) (*List, error) {
	if !decl.Unbounded && len(parts) > decl.MaxOccurs {
		return nil, fmt.Errorf("%w: %d items for %s", ErrMultiplicity, len(parts), decl)
	}
	seen := map[string]bool{}
	for _, p := range parts {
		if !p.Type().CanSubstitute(decl.Type) {
			return nil, fmt.Errorf("%w: %s for %s", ErrNotSubstitutable, p.Type().QName(), decl)
		}
		if seen[p.Identifier()] {
			return nil, fmt.Errorf("%w: %q in %s", ErrDuplicateIdentifier, p.Identifier(), decl.Name)
		}
		seen[p.Identifier()] = true
	}
	detachAll(parts)
	return f.newList(decl, parts), nil
}

// NewComplex is FromParts for a singular declaration.
func (f *Factory) NewComplex(decl *schema.Declaration, parts ...Node) (Node, error) {
	return f.FromParts(decl, parts)
}

// Clone returns a deep copy of n which shares no node with n and has no
// parent.
func (f *Factory) Clone(n Node) Node {
	return n.clone(f)
}

func (f *Factory) newString(id string, t schema.Type, v string) *String {
	n := &String{value: v}
	n.init(n, id, t, f)
	f.register(n)
	return n
}

func (f *Factory) newInteger(id string, t schema.Type, v int64) *Integer {
	n := &Integer{value: v}
	n.init(n, id, t, f)
	f.register(n)
	return n
}

func (f *Factory) newDecimal(id string, t schema.Type, v float64) *Decimal {
	n := &Decimal{value: v}
	n.init(n, id, t, f)
	f.register(n)
	return n
}

func (f *Factory) newBoolean(id string, t schema.Type, v bool) *Boolean {
	n := &Boolean{value: v}
	n.init(n, id, t, f)
	f.register(n)
	return n
}

func (f *Factory) newDuration(id string, t schema.Type, v primitive.Duration) *Duration {
	n := &Duration{value: v}
	n.init(n, id, t, f)
	f.register(n)
	return n
}

func (f *Factory) newTimestamp(id string, t schema.Type, v primitive.Timestamp) *Timestamp {
	n := &Timestamp{value: v}
	n.init(n, id, t, f)
	f.register(n)
	return n
}

func (f *Factory) newSymbolIDCode(id string, t schema.Type, v string) *SymbolIDCode {
	n := &SymbolIDCode{value: v}
	n.init(n, id, t, f)
	f.register(n)
	return n
}

func (f *Factory) newReference(id string, t schema.Type, v primitive.Reference) *Reference {
	n := &Reference{value: v}
	n.init(n, id, t, f)
	f.register(n)
	return n
}

func (f *Factory) newPoint(id string, t schema.Type, lat, lon float64) *Point {
	n := &Point{lat: lat, lon: lon}
	n.init(n, id, t, f)
	f.register(n)
	return n
}

func (f *Factory) newLine(id string, t schema.Type, p1, p2 *Point) *Line {
	p1.id, p2.id = "p1", "p2"
	return f.newComplexKind(KindLine, id, t, []Node{p1, p2}).(*Line)
}

func (f *Factory) newComplex(id string, t schema.Type, parts []Node) Node {
	return f.newComplexKind(KindComplex, id, t, parts)
}

// newComplexKind builds a container of kind k around parts, which must be
// unattached. The children are attached before the container itself is
// registered.
func (f *Factory) newComplexKind(k Kind, id string, t schema.Type, parts []Node) Node {
	var (
		n Node
		c *Complex
	)
	switch k {
	case KindLine:
		x := &Line{}
		n, c = x, &x.Complex
	case KindCircle:
		x := &Circle{}
		n, c = x, &x.Complex
	case KindPolygon:
		x := &Polygon{}
		n, c = x, &x.Complex
	case KindComposite:
		x := &Composite{}
		n, c = x, &x.Complex
	case KindComplex:
		x := &Complex{}
		n, c = x, x
	default:
		contractf("newComplexKind", "%s is not a container kind", k)
	}
	c.initComplex(n, id, t, f)
	for _, p := range parts {
		c.insert(p)
	}
	f.register(n)
	return n
}

func (f *Factory) newList(decl *schema.Declaration, parts []Node) *List {
	l := &List{}
	l.initComplex(l, decl.Name, decl.Type, f)
	l.itemDecl = decl
	for _, p := range parts {
		l.insert(p)
	}
	f.register(l)
	return l
}
