// Package filter selects tree nodes with expr-lang expressions.
//
// An expression is evaluated once per node against an Env and must yield a
// bool. For example
//
//	leaf && type == "sp:NonNegativeInteger" && value > 100
//	isa("Faction") && depth == 3
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/signadot/simtree/object"
)

// Env is what an expression sees of a node.
type Env struct {
	ID       string `expr:"id"`
	Type     string `expr:"type"`
	Kind     string `expr:"kind"`
	Leaf     bool   `expr:"leaf"`
	Parent   string `expr:"parent"`
	Depth    int    `expr:"depth"`
	Path     string `expr:"path"`
	Children int    `expr:"children"`
	Selected bool   `expr:"selected"`

	// Value is nil for complex nodes. Integers, decimals and booleans
	// keep their Go type, durations and timestamps are milliseconds and
	// other leaves give their canonical string.
	Value any `expr:"value"`

	// Isa reports whether the node's type is, or derives from, the named
	// type.
	Isa func(string) bool `expr:"isa"`
}

// NewEnv describes n.
func NewEnv(n object.Node) Env {
	env := Env{
		ID:       n.Identifier(),
		Type:     n.Type().QName(),
		Kind:     n.Factory().KindOf(n.Type()).String(),
		Leaf:     n.IsLeaf(),
		Depth:    object.Depth(n),
		Path:     object.Path(n).String(),
		Children: n.ChildCount(),
		Selected: object.IsSelected(n),
		Value:    value(n),
	}
	if p := n.Parent(); p != nil {
		env.Parent = p.Identifier()
	}
	env.Isa = func(name string) bool {
		t := n.Factory().Schema().Lookup(name)
		return t != nil && n.Type().CanSubstitute(t)
	}
	return env
}

func value(n object.Node) any {
	switch x := n.(type) {
	case *object.Integer:
		return x.Value()
	case *object.Decimal:
		return x.Value()
	case *object.Boolean:
		return x.Value()
	case *object.Duration:
		return x.Value().Milliseconds()
	case *object.Timestamp:
		return x.Value().Milliseconds()
	case object.Value:
		return x.ValueString()
	}
	return nil
}

// Predicate is a compiled filter expression.
type Predicate struct {
	src  string
	prog *vm.Program
}

// Compile checks src against Env and compiles it.
func Compile(src string) (*Predicate, error) {
	prog, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", src, err)
	}
	return &Predicate{src: src, prog: prog}, nil
}

// MustCompile is Compile for expressions known to be valid.
func MustCompile(src string) *Predicate {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Predicate) String() string {
	return p.src
}

// Match evaluates p on n.
func (p *Predicate) Match(n object.Node) (bool, error) {
	res, err := expr.Run(p.prog, NewEnv(n))
	if err != nil {
		return false, fmt.Errorf("filter %q at %s: %w", p.src, object.Path(n), err)
	}
	return res.(bool), nil
}

// Children returns the children of n matching p.
func Children(n object.Node, p *Predicate) ([]object.Node, error) {
	var ferr error
	res := object.FilteredChildren(n, func(c object.Node) bool {
		if ferr != nil {
			return false
		}
		ok, err := p.Match(c)
		if err != nil {
			ferr = err
		}
		return ok
	})
	if ferr != nil {
		return nil, ferr
	}
	return res, nil
}

// Select returns the nodes under root, root included, matching p, in
// pre-order.
func Select(root object.Node, p *Predicate) ([]object.Node, error) {
	var (
		res  []object.Node
		ferr error
	)
	object.Walk(root, func(n object.Node) bool {
		if ferr != nil {
			return false
		}
		ok, err := p.Match(n)
		if err != nil {
			ferr = err
			return false
		}
		if ok {
			res = append(res, n)
		}
		return true
	})
	if ferr != nil {
		return nil, ferr
	}
	return res, nil
}
