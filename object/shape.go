package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/primitive"
)

// metresPerDegree approximates the length of one degree of latitude.
const metresPerDegree = 111000.0

// BoundingBox is a lat/lon rectangle. The zero BoundingBox is a point at
// 0,0; use EmptyBox for a box containing nothing.
type BoundingBox struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

var EmptyBox = BoundingBox{
	MinLat: math.Inf(1), MinLon: math.Inf(1),
	MaxLat: math.Inf(-1), MaxLon: math.Inf(-1),
}

func (b BoundingBox) IsEmpty() bool {
	return b.MinLat > b.MaxLat || b.MinLon > b.MaxLon
}

func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		MinLat: math.Min(b.MinLat, o.MinLat),
		MinLon: math.Min(b.MinLon, o.MinLon),
		MaxLat: math.Max(b.MaxLat, o.MaxLat),
		MaxLon: math.Max(b.MaxLon, o.MaxLon),
	}
}

func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Shape is implemented by the geometric kinds.
type Shape interface {
	Node
	BoundingBox() BoundingBox
	// Move translates the shape by the given number of degrees.
	Move(dLat, dLon float64, origin ChangeOrigin)
}

// Point is a geographic position. Its canonical string form is "lat lon".
type Point struct {
	leaf
	lat, lon float64
}

func (p *Point) Lat() float64 { return p.lat }
func (p *Point) Lon() float64 { return p.lon }

func (p *Point) SetLatLon(lat, lon float64, origin ChangeOrigin) {
	if lat == p.lat && lon == p.lon {
		return
	}
	p.lat, p.lon = lat, lon
	p.fireValueChanged(origin)
}

func (p *Point) MoveTo(lat, lon float64, origin ChangeOrigin) {
	p.SetLatLon(lat, lon, origin)
}

func (p *Point) Move(dLat, dLon float64, origin ChangeOrigin) {
	p.SetLatLon(p.lat+dLat, p.lon+dLon, origin)
}

func (p *Point) BoundingBox() BoundingBox {
	return BoundingBox{MinLat: p.lat, MinLon: p.lon, MaxLat: p.lat, MaxLon: p.lon}
}

func (p *Point) ValueString() string {
	return strconv.FormatFloat(p.lat, 'g', -1, 64) + " " + strconv.FormatFloat(p.lon, 'g', -1, 64)
}

func (p *Point) SetValueString(s string, origin ChangeOrigin) error {
	fs := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	if len(fs) != 2 {
		return parseError(p, s, errWrap(errLatLon))
	}
	lat, err := strconv.ParseFloat(fs[0], 64)
	if err != nil {
		return parseError(p, s, errWrap(err))
	}
	lon, err := strconv.ParseFloat(fs[1], 64)
	if err != nil {
		return parseError(p, s, errWrap(err))
	}
	p.SetLatLon(lat, lon, origin)
	return nil
}

// Update reads <lat> and <lon> children.
func (p *Point) Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	lat, lon, err := latLon(el)
	if err != nil {
		return parseError(p, dom.String(el), err)
	}
	p.SetLatLon(lat, lon, origin)
	return nil
}

func latLon(el *etree.Element) (float64, float64, error) {
	latS, ok1 := dom.ChildText(el, "lat")
	lonS, ok2 := dom.ChildText(el, "lon")
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("%w: <%s> needs <lat> and <lon>", dom.ErrMissingElement, el.Tag)
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return 0, 0, errWrap(err)
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil {
		return 0, 0, errWrap(err)
	}
	return lat, lon, nil
}

func (p *Point) appendBody(el *etree.Element) {
	dom.AddText(el, "lat", strconv.FormatFloat(p.lat, 'g', -1, 64))
	dom.AddText(el, "lon", strconv.FormatFloat(p.lon, 'g', -1, 64))
}

func (p *Point) clone(f *Factory) Node {
	return f.newPoint(p.id, p.typ, p.lat, p.lon)
}

// Line is a segment between two points held in the fixed slots p1 and p2.
type Line struct {
	Complex
}

func (l *Line) P1() *Point { p, _ := l.index["p1"].(*Point); return p }
func (l *Line) P2() *Point { p, _ := l.index["p2"].(*Point); return p }

// Add replaces one of the end points. Any other child is a contract
// violation.
func (l *Line) Add(child Node, origin ChangeOrigin) error {
	if _, ok := child.(*Point); !ok || (child.Identifier() != "p1" && child.Identifier() != "p2") {
		contractf("Add", "line %s only holds points p1 and p2", Path(l))
	}
	return l.Complex.Add(child, origin)
}

func (l *Line) RemoveChild(child Node, origin ChangeOrigin) error {
	contractf("RemoveChild", "line %s end points cannot be removed", Path(l))
	return nil
}

func (l *Line) BoundingBox() BoundingBox {
	return shapeBox(l.parts)
}

func (l *Line) Move(dLat, dLon float64, origin ChangeOrigin) {
	moveAll(l.parts, dLat, dLon, origin)
}

func (l *Line) clone(f *Factory) Node {
	return f.newLine(l.id, l.typ, l.P1().clone(f).(*Point), l.P2().clone(f).(*Point))
}

// Circle is a center point and a radius in metres.
type Circle struct {
	Complex
}

func (c *Circle) Center() *Point { p, _ := c.index["center"].(*Point); return p }

func (c *Circle) Radius() float64 {
	if d, ok := c.index["radius"].(*Decimal); ok {
		return d.value
	}
	return 0
}

func (c *Circle) SetRadius(r float64, origin ChangeOrigin) {
	if d, ok := c.index["radius"].(*Decimal); ok {
		d.SetValue(r, origin)
	}
}

func (c *Circle) BoundingBox() BoundingBox {
	p := c.Center()
	if p == nil {
		return EmptyBox
	}
	d := c.Radius() / metresPerDegree
	return BoundingBox{MinLat: p.lat - d, MinLon: p.lon - d, MaxLat: p.lat + d, MaxLon: p.lon + d}
}

func (c *Circle) Move(dLat, dLon float64, origin ChangeOrigin) {
	if p := c.Center(); p != nil {
		p.Move(dLat, dLon, origin)
	}
}

// Update replaces the circle when el describes a shape of another type and
// updates center and radius otherwise.
func (c *Circle) Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	if done, err := replaceIfRetyped(c, el, origin); done {
		return err
	}
	return updateParts(&c.Complex, el, t, origin)
}

func (c *Circle) clone(f *Factory) Node {
	return f.newComplexKind(KindCircle, c.id, c.typ, cloneParts(f, c.parts))
}

// Polygon is a shape bounded by the lines in its curves list.
type Polygon struct {
	Complex
}

func (p *Polygon) Curves() *List {
	l, _ := p.index["curves"].(*List)
	return l
}

func (p *Polygon) Lines() []*Line {
	l := p.Curves()
	if l == nil {
		return nil
	}
	res := make([]*Line, 0, len(l.parts))
	for _, c := range l.parts {
		if x, ok := c.(*Line); ok {
			res = append(res, x)
		}
	}
	return res
}

// IsClosed reports whether each line ends where the next begins and the
// last ends where the first begins.
func (p *Polygon) IsClosed() bool {
	ls := p.Lines()
	if len(ls) < 2 {
		return false
	}
	for i, l := range ls {
		next := ls[(i+1)%len(ls)]
		a, b := l.P2(), next.P1()
		if a == nil || b == nil || a.lat != b.lat || a.lon != b.lon {
			return false
		}
	}
	return true
}

func (p *Polygon) BoundingBox() BoundingBox {
	if l := p.Curves(); l != nil {
		return shapeBox(l.parts)
	}
	return EmptyBox
}

func (p *Polygon) Move(dLat, dLon float64, origin ChangeOrigin) {
	if l := p.Curves(); l != nil {
		moveAll(l.parts, dLat, dLon, origin)
	}
}

func (p *Polygon) Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	if done, err := replaceIfRetyped(p, el, origin); done {
		return err
	}
	return updateParts(&p.Complex, el, t, origin)
}

func (p *Polygon) clone(f *Factory) Node {
	return f.newComplexKind(KindPolygon, p.id, p.typ, cloneParts(f, p.parts))
}

// Composite is a shape made of the shapes in its shapes list.
type Composite struct {
	Complex
}

func (c *Composite) Shapes() *List {
	l, _ := c.index["shapes"].(*List)
	return l
}

// HasUnclosed reports whether any polygon within c is open.
func (c *Composite) HasUnclosed() bool {
	l := c.Shapes()
	if l == nil {
		return false
	}
	for _, s := range l.parts {
		switch x := s.(type) {
		case *Polygon:
			if !x.IsClosed() {
				return true
			}
		case *Composite:
			if x.HasUnclosed() {
				return true
			}
		}
	}
	return false
}

func (c *Composite) BoundingBox() BoundingBox {
	if l := c.Shapes(); l != nil {
		return shapeBox(l.parts)
	}
	return EmptyBox
}

func (c *Composite) Move(dLat, dLon float64, origin ChangeOrigin) {
	if l := c.Shapes(); l != nil {
		moveAll(l.parts, dLat, dLon, origin)
	}
}

func (c *Composite) Update(el *etree.Element, t primitive.Timestamp, origin ChangeOrigin) error {
	if done, err := replaceIfRetyped(c, el, origin); done {
		return err
	}
	return updateParts(&c.Complex, el, t, origin)
}

func (c *Composite) clone(f *Factory) Node {
	return f.newComplexKind(KindComposite, c.id, c.typ, cloneParts(f, c.parts))
}

func shapeBox(parts []Node) BoundingBox {
	b := EmptyBox
	for _, p := range parts {
		if s, ok := p.(Shape); ok {
			b = b.Union(s.BoundingBox())
		}
	}
	return b
}

func moveAll(parts []Node, dLat, dLon float64, origin ChangeOrigin) {
	for _, p := range parts {
		if s, ok := p.(Shape); ok {
			s.Move(dLat, dLon, origin)
		}
	}
}
