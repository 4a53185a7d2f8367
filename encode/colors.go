package encode

import (
	"strings"

	"github.com/fatih/color"
	"github.com/signadot/simtree/object"
)

type Colorable struct {
	Kind object.Kind
	Attr ColorAttr
}

type ColorAttr int

const (
	IDColor ColorAttr = iota
	TypeColor
	ValueColor
	SepColor
)

type Colors struct {
	Default func(string, ...any) string
	Map     map[Colorable]func(string, ...any) string
}

func NewColors() *Colors {
	colors := &Colors{
		Default: colorDefault,
		Map:     map[Colorable]func(string, ...any) string{},
	}
	for _, k := range object.Kinds() {
		able := Colorable{Kind: k, Attr: TypeColor}
		colors.Map[able] = color.RGB(74, 92, 138).SprintfFunc()
		able.Attr = SepColor
		colors.Map[able] = color.RGB(255, 0, 196).SprintfFunc()
		able.Attr = IDColor
		if k.IsLeaf() {
			colors.Map[able] = color.RGB(196, 96, 16).SprintfFunc()
		} else {
			colors.Map[able] = color.RGB(128, 168, 196).SprintfFunc()
		}
	}
	able := Colorable{Attr: ValueColor}
	for _, k := range []object.Kind{object.KindInteger, object.KindDecimal} {
		able.Kind = k
		colors.Map[able] = color.RGB(128, 216, 236).SprintfFunc()
	}
	able.Kind = object.KindBoolean
	colors.Map[able] = color.CyanString
	for _, k := range []object.Kind{object.KindString, object.KindSymbolIDCode} {
		able.Kind = k
		colors.Map[able] = color.RGB(8, 196, 16).SprintfFunc()
	}
	for _, k := range []object.Kind{object.KindDuration, object.KindTimestamp} {
		able.Kind = k
		colors.Map[able] = color.RGB(198, 198, 46).SprintfFunc()
	}
	able.Kind = object.KindReference
	colors.Map[able] = color.RGB(168, 0, 196).SprintfFunc()
	able.Kind = object.KindPoint
	colors.Map[able] = color.RGB(88, 158, 86).SprintfFunc()
	for k, f := range colors.Map {
		colors.Map[k] = func(v string, _ ...any) string {
			return f(strings.ReplaceAll(v, "%", "%%"))
		}
	}
	return colors
}

func colorDefault(v string, _ ...any) string { return v }

func (c *Colors) Color(k object.Kind, a ColorAttr, s string) string {
	return c.Get(k, a)(s)
}

func (c *Colors) Get(k object.Kind, a ColorAttr) func(string, ...any) string {
	f := c.Map[Colorable{Kind: k, Attr: a}]
	if f == nil {
		return c.Default
	}
	return f
}
