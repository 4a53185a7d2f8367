package object

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/signadot/simtree/dom"
)

// Tag returns the element name n is written under: the enclosing list's
// name for list items, the node's identifier otherwise.
func Tag(n Node) string {
	if l, ok := n.Parent().(*List); ok {
		return l.id
	}
	return n.Identifier()
}

// Element renders n as <tag xsi:type="...">body</tag>. List items carry an
// identifier attribute. A List renders as its first item only; use
// AppendXML for lists.
func Element(n Node) *etree.Element {
	id := ""
	if _, ok := n.Parent().(*List); ok {
		id = n.Identifier()
	}
	el := dom.NewElement(Tag(n), n.Type().QName(), id)
	n.appendBody(el)
	return el
}

// AppendXML appends the element for n to parent. A List appends one
// element per item and no wrapper of its own.
func AppendXML(parent *etree.Element, n Node) {
	if l, ok := n.(*List); ok {
		for _, c := range l.parts {
			AppendXML(parent, c)
		}
		return
	}
	parent.AddChild(Element(n))
}

// XML returns the compact XML form of n.
func XML(n Node) string {
	l, ok := n.(*List)
	if !ok {
		return dom.String(Element(n))
	}
	var b strings.Builder
	for _, c := range l.parts {
		b.WriteString(dom.String(Element(c)))
	}
	return b.String()
}

// Document returns n as the root element of a standalone document, with
// the namespace declarations its xsi:type values need.
func Document(n Node) *etree.Element {
	el := Element(n)
	dom.Declare(el, n.Type().Namespace())
	return el
}
