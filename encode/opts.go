package encode

import "github.com/signadot/simtree/object"

type EncodeOption func(*EncState)

// EncState holds the options of one encoding.
type EncState struct {
	depth  int
	indent int
	Color  func(k object.Kind, a ColorAttr, s string) string
}

func Depth(n int) EncodeOption {
	return func(es *EncState) { es.depth = n }
}

func Indent(n int) EncodeOption {
	return func(es *EncState) { es.indent = n }
}

func EncodeColors(c *Colors) EncodeOption {
	return func(es *EncState) {
		if c == nil {
			es.Color = nil
			return
		}
		es.Color = c.Color
	}
}

func newEncState(opts []EncodeOption) *EncState {
	es := &EncState{indent: 2}
	for _, o := range opts {
		o(es)
	}
	return es
}

func (es *EncState) color(k object.Kind, a ColorAttr, s string) string {
	if es.Color == nil {
		return s
	}
	return es.Color(k, a, s)
}
