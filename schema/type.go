package schema

import "fmt"

// TypeID is the dense identifier assigned to a type when its schema is
// loaded. The zero value names no type.
type TypeID uint32

const NoType TypeID = 0

func (id TypeID) String() string {
	if id == NoType {
		return "<no type>"
	}
	return fmt.Sprintf("#%d", uint32(id))
}

// Type is the view of a schema type consumed by the object tree.
type Type interface {
	Name() string
	Namespace() string
	// QName is the prefixed name, as used in xsi:type attributes.
	QName() string
	ID() TypeID
	// Base returns the type this type derives from, or nil for xsd:anyType.
	Base() Type
	IsAbstract() bool
	// SubElements returns the declared child slots in declaration order.
	SubElements() []*Declaration
	SubElement(name string) *Declaration
	// CanSubstitute reports whether a value of this type may appear where t
	// is declared, that is whether this type is t or derives from t.
	CanSubstitute(t Type) bool
}

// Def is the Type implementation held by a Schema.
type Def struct {
	name     string
	ns       string
	id       TypeID
	base     *Def
	abstract bool
	elements []*Declaration
	byName   map[string]*Declaration
}

func (d *Def) Name() string      { return d.name }
func (d *Def) Namespace() string { return d.ns }
func (d *Def) ID() TypeID        { return d.id }
func (d *Def) IsAbstract() bool  { return d.abstract }

func (d *Def) QName() string {
	if d.ns == "" {
		return d.name
	}
	return d.ns + ":" + d.name
}

func (d *Def) Base() Type {
	if d.base == nil {
		return nil
	}
	return d.base
}

func (d *Def) SubElements() []*Declaration {
	return d.elements
}

func (d *Def) SubElement(name string) *Declaration {
	return d.byName[name]
}

func (d *Def) CanSubstitute(t Type) bool {
	if t == nil {
		return false
	}
	q := t.QName()
	for x := d; x != nil; x = x.base {
		if x.QName() == q {
			return true
		}
	}
	return false
}

func (d *Def) String() string {
	return d.QName()
}

// IsA reports whether t is, or derives from, the type named qname.
func IsA(t Type, qname string) bool {
	for x := t; x != nil; x = x.Base() {
		if x.QName() == qname {
			return true
		}
	}
	return false
}
