// Package dom holds the XML element helpers used to read and write
// simulation documents and update batches.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

const (
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"
	XSDNamespace = "http://www.w3.org/2001/XMLSchema"
	SPNamespace  = "http://pdc.kth.se/stratmasNamespace"

	IdentifierAttr = "identifier"
)

// Parse reads one XML document and returns its root element.
func Parse(r io.Reader) (*etree.Element, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("error parsing xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("error parsing xml: no root element")
	}
	return root, nil
}

func ParseBytes(d []byte) (*etree.Element, error) {
	return Parse(bytes.NewReader(d))
}

func ParseString(s string) (*etree.Element, error) {
	return Parse(strings.NewReader(s))
}

// XSIType returns the xsi:type attribute of el, or "" when absent. Any
// prefix bound to the XML Schema instance namespace is accepted.
func XSIType(el *etree.Element) string {
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Key != "type" {
			continue
		}
		if a.Space == "xsi" || a.NamespaceURI() == XSINamespace {
			return a.Value
		}
	}
	return ""
}

// Identifier returns the identifier attribute of el, falling back to the
// element's tag.
func Identifier(el *etree.Element) string {
	if a := el.SelectAttr(IdentifierAttr); a != nil {
		return a.Value
	}
	return el.Tag
}

// FirstChild returns the first child element of el with the given tag.
func FirstChild(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	return el.SelectElement(tag)
}

// Children returns the child elements of el with the given tag.
func Children(el *etree.Element, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	return el.SelectElements(tag)
}

// ChildText returns the trimmed text of el's first child with the given
// tag, and whether such a child exists.
func ChildText(el *etree.Element, tag string) (string, bool) {
	c := FirstChild(el, tag)
	if c == nil {
		return "", false
	}
	return strings.TrimSpace(c.Text()), true
}

// ValueText returns the text of el's <value> child.
func ValueText(el *etree.Element) (string, error) {
	s, ok := ChildText(el, "value")
	if !ok {
		return "", fmt.Errorf("%w: <%s> has no <value>", ErrMissingElement, el.Tag)
	}
	return s, nil
}

// NewElement creates an element with an xsi:type and, when id is not empty,
// an identifier attribute.
func NewElement(tag, xsiType, id string) *etree.Element {
	el := etree.NewElement(tag)
	if xsiType != "" {
		el.CreateAttr("xsi:type", xsiType)
	}
	if id != "" {
		el.CreateAttr(IdentifierAttr, id)
	}
	return el
}

// AddText appends <tag>text</tag> to parent and returns the new element.
func AddText(parent *etree.Element, tag, text string) *etree.Element {
	c := parent.CreateElement(tag)
	c.SetText(text)
	return c
}

// Declare adds the namespace declarations a standalone document needs.
func Declare(root *etree.Element, spPrefix string) {
	root.CreateAttr("xmlns:xsi", XSINamespace)
	root.CreateAttr("xmlns:xsd", XSDNamespace)
	if spPrefix != "" {
		root.CreateAttr("xmlns:"+spPrefix, SPNamespace)
	}
}

// Write serializes el. indent < 0 writes compactly.
func Write(w io.Writer, el *etree.Element, indent int) error {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	if indent >= 0 {
		doc.Indent(indent)
	}
	_, err := doc.WriteTo(w)
	return err
}

// String serializes el compactly.
func String(el *etree.Element) string {
	buf := &bytes.Buffer{}
	if err := Write(buf, el, -1); err != nil {
		return fmt.Sprintf("<!-- %v -->", err)
	}
	return buf.String()
}
