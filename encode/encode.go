package encode

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/object"
)

// TypeKey holds the type of a complex node in its projection.
const TypeKey = "@type"

// Project returns n as plain maps, slices and scalars.
func Project(n object.Node) any {
	return project(n, false)
}

func project(n object.Node, ordered bool) any {
	switch x := n.(type) {
	case *object.Integer:
		return x.Value()
	case *object.Decimal:
		return x.Value()
	case *object.Boolean:
		return x.Value()
	case *object.Point:
		if ordered {
			return yaml.MapSlice{{Key: "lat", Value: x.Lat()}, {Key: "lon", Value: x.Lon()}}
		}
		return map[string]any{"lat": x.Lat(), "lon": x.Lon()}
	case object.Value:
		return x.ValueString()
	}
	_, isList := n.(*object.List)
	if ordered {
		res := yaml.MapSlice{}
		if !isList {
			res = append(res, yaml.MapItem{Key: TypeKey, Value: n.Type().QName()})
		}
		for _, c := range n.Children() {
			res = append(res, yaml.MapItem{Key: c.Identifier(), Value: project(c, true)})
		}
		return res
	}
	res := make(map[string]any, n.ChildCount()+1)
	if !isList {
		res[TypeKey] = n.Type().QName()
	}
	for _, c := range n.Children() {
		res[c.Identifier()] = project(c, false)
	}
	return res
}

// Root wraps a projection under the identifier of its node, so that the
// root's own name is kept.
func Root(n object.Node) map[string]any {
	return map[string]any{n.Identifier(): Project(n)}
}

// YAML writes n as YAML under its identifier, children in schema order.
func YAML(w io.Writer, n object.Node) error {
	d, err := yaml.Marshal(yaml.MapSlice{{Key: n.Identifier(), Value: project(n, true)}})
	if err != nil {
		return fmt.Errorf("error encoding yaml: %w", err)
	}
	_, err = w.Write(d)
	return err
}

// JSON writes n as indented JSON under its identifier.
func JSON(w io.Writer, n object.Node) error {
	d, err := json.MarshalIndent(Root(n), "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding json: %w", err)
	}
	d = append(d, '\n')
	_, err = w.Write(d)
	return err
}

// WriteDocument writes root as a standalone document, declaring the
// namespaces its xsi:type values use.
func WriteDocument(w io.Writer, root object.Node) error {
	return XML(w, root)
}

// XML writes n as an indented standalone document.
func XML(w io.Writer, n object.Node, opts ...EncodeOption) error {
	es := newEncState(opts)
	return dom.Write(w, object.Document(n), es.indent)
}

// Tree writes an outline of n, one node per line: identifier, value for
// leaves, and type. Depth limits how far below n it goes when positive.
func Tree(w io.Writer, n object.Node, opts ...EncodeOption) error {
	es := newEncState(opts)
	var werr error
	base := object.Depth(n)
	object.Walk(n, func(x object.Node) bool {
		if werr != nil {
			return false
		}
		d := object.Depth(x) - base
		werr = es.line(w, x, d)
		return es.depth <= 0 || d < es.depth
	})
	return werr
}

func (es *EncState) line(w io.Writer, n object.Node, depth int) error {
	k := n.Factory().KindOf(n.Type())
	b := &strings.Builder{}
	b.WriteString(strings.Repeat(" ", depth*es.indent))
	b.WriteString(es.color(k, IDColor, n.Identifier()))
	if _, ok := n.(*object.List); ok {
		b.WriteString(es.color(k, SepColor, "[]"))
	}
	if v, ok := n.(object.Value); ok {
		b.WriteString(es.color(k, SepColor, " = "))
		b.WriteString(es.color(k, ValueColor, v.ValueString()))
	}
	b.WriteString(" ")
	b.WriteString(es.color(k, TypeColor, "("+n.Type().QName()+")"))
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
