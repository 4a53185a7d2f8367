package primitive

import (
	"slices"
	"strings"
)

// Reference names a node by identifiers, outermost scope first. The last
// identifier is the name of the referenced node itself.
type Reference struct {
	ids []string
}

func NewReference(ids ...string) Reference {
	return Reference{ids: slices.Clone(ids)}
}

// Identifiers returns the identifiers of r, outermost first.
func (r Reference) Identifiers() []string {
	return slices.Clone(r.ids)
}

func (r Reference) Len() int {
	return len(r.ids)
}

func (r Reference) IsZero() bool {
	return len(r.ids) == 0
}

// Name is the identifier of the referenced node.
func (r Reference) Name() string {
	if len(r.ids) == 0 {
		return ""
	}
	return r.ids[len(r.ids)-1]
}

// Scope returns the reference to the enclosing scope, which is the zero
// Reference for a single identifier.
func (r Reference) Scope() Reference {
	if len(r.ids) <= 1 {
		return Reference{}
	}
	return Reference{ids: slices.Clone(r.ids[:len(r.ids)-1])}
}

// Child returns the reference to id inside r.
func (r Reference) Child(id string) Reference {
	ids := make([]string, len(r.ids), len(r.ids)+1)
	copy(ids, r.ids)
	return Reference{ids: append(ids, id)}
}

func (r Reference) Equal(o Reference) bool {
	return slices.Equal(r.ids, o.ids)
}

// String joins the identifiers with ':', escaping ':' and '\' inside
// identifiers with '\'.
func (r Reference) String() string {
	b := &strings.Builder{}
	for i, id := range r.ids {
		if i > 0 {
			b.WriteByte(':')
		}
		for _, c := range id {
			if c == ':' || c == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(c)
		}
	}
	return b.String()
}

// ParseReference is the inverse of Reference.String.
func ParseReference(s string) (Reference, error) {
	if strings.TrimSpace(s) == "" {
		return Reference{}, parseErr("reference", s, "empty")
	}
	var (
		ids []string
		cur strings.Builder
		esc bool
	)
	for _, c := range s {
		switch {
		case esc:
			cur.WriteRune(c)
			esc = false
		case c == '\\':
			esc = true
		case c == ':':
			ids = append(ids, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	if esc {
		return Reference{}, parseErr("reference", s, "trailing escape")
	}
	ids = append(ids, cur.String())
	for _, id := range ids {
		if id == "" {
			return Reference{}, parseErr("reference", s, "empty identifier")
		}
	}
	return Reference{ids: ids}, nil
}
