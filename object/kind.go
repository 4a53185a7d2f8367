package object

import "fmt"

// Kind names the Go implementation a schema type is built with.
type Kind int

const (
	KindNone Kind = iota
	KindComplex
	KindString
	KindInteger
	KindDecimal
	KindBoolean
	KindDuration
	KindTimestamp
	KindSymbolIDCode
	KindReference
	KindPoint
	KindLine
	KindCircle
	KindPolygon
	KindComposite
)

var kindNames = map[Kind]string{
	KindNone:         "None",
	KindComplex:      "Complex",
	KindString:       "String",
	KindInteger:      "Integer",
	KindDecimal:      "Decimal",
	KindBoolean:      "Boolean",
	KindDuration:     "Duration",
	KindTimestamp:    "Timestamp",
	KindSymbolIDCode: "SymbolIDCode",
	KindReference:    "Reference",
	KindPoint:        "Point",
	KindLine:         "Line",
	KindCircle:       "Circle",
	KindPolygon:      "Polygon",
	KindComposite:    "Composite",
}

func (k Kind) String() string {
	s, ok := kindNames[k]
	if ok {
		return s
	}
	return "<unknown kind>"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(d []byte) error {
	for kk, name := range kindNames {
		if name == string(d) {
			*k = kk
			return nil
		}
	}
	return fmt.Errorf("unrecognized kind %q", d)
}

func Kinds() []Kind {
	res := make([]Kind, 0, len(kindNames)-1)
	for k := KindComplex; k <= KindComposite; k++ {
		res = append(res, k)
	}
	return res
}

// IsLeaf reports whether nodes of kind k hold a value rather than children.
func (k Kind) IsLeaf() bool {
	switch k {
	case KindNone, KindComplex, KindLine, KindCircle, KindPolygon, KindComposite:
		return false
	default:
		return true
	}
}
