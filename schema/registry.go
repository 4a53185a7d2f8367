package schema

import (
	"errors"
	"fmt"
	"strings"
)

const (
	XSDNamespace = "xsd"
	AnyType      = "xsd:anyType"
)

var (
	ErrSchema           = errors.New("schema error")
	ErrNotSubstitutable = errors.New("type not substitutable")
)

// Schema holds the types of one namespace plus the XML Schema built-ins.
// A Schema is immutable once loaded and safe for concurrent reads.
type Schema struct {
	namespace string
	root      *Declaration
	types     []*Def
	byQName   map[string]*Def
}

func newSchema(namespace string) *Schema {
	s := &Schema{
		namespace: namespace,
		byQName:   make(map[string]*Def),
	}
	any := s.define(XSDNamespace, "anyType", nil, false)
	for _, name := range []string{"string", "integer", "double", "boolean", "dateTime"} {
		s.define(XSDNamespace, name, any, false)
	}
	return s
}

func (s *Schema) define(ns, name string, base *Def, abstract bool) *Def {
	d := &Def{
		name:     name,
		ns:       ns,
		id:       TypeID(len(s.types) + 1),
		base:     base,
		abstract: abstract,
		byName:   map[string]*Declaration{},
	}
	s.types = append(s.types, d)
	s.byQName[d.QName()] = d
	return d
}

func (s *Schema) Namespace() string {
	return s.namespace
}

// Root returns the declaration of the document root, if the schema names one.
func (s *Schema) Root() *Declaration {
	return s.root
}

// Lookup resolves a type name. Unprefixed names are taken to be in the
// schema's namespace; prefixed names must match a known namespace.
func (s *Schema) Lookup(name string) Type {
	d := s.lookup(name)
	if d == nil {
		return nil
	}
	return d
}

func (s *Schema) lookup(name string) *Def {
	if d, ok := s.byQName[name]; ok {
		return d
	}
	if !strings.Contains(name, ":") {
		if d, ok := s.byQName[s.namespace+":"+name]; ok {
			return d
		}
		return s.byQName[XSDNamespace+":"+name]
	}
	return nil
}

// MustLookup is Lookup for names known to be defined; it panics otherwise.
func (s *Schema) MustLookup(name string) Type {
	t := s.Lookup(name)
	if t == nil {
		panic(fmt.Sprintf("schema: type %q not defined", name))
	}
	return t
}

// ByID returns the type with the given id, or nil.
func (s *Schema) ByID(id TypeID) Type {
	if id == NoType || int(id) > len(s.types) {
		return nil
	}
	return s.types[id-1]
}

// Types returns all types in TypeID order.
func (s *Schema) Types() []Type {
	res := make([]Type, len(s.types))
	for i, d := range s.types {
		res[i] = d
	}
	return res
}

// Len is the number of types, which is also the largest TypeID.
func (s *Schema) Len() int {
	return len(s.types)
}

// Derived returns the concrete types that can substitute t, t included when
// it is not abstract.
func (s *Schema) Derived(t Type) []Type {
	var res []Type
	for _, d := range s.types {
		if d.abstract {
			continue
		}
		if d.CanSubstitute(t) {
			res = append(res, d)
		}
	}
	return res
}
