package object

import (
	"fmt"
	"slices"

	"github.com/signadot/simtree/primitive"
	"github.com/signadot/simtree/schema"
)

// Root returns the topmost ancestor of n, or n itself.
func Root(n Node) Node {
	for n.Parent() != nil {
		n = n.Parent()
	}
	return n
}

// IsAncestor reports whether a is a proper ancestor of d.
func IsAncestor(a, d Node) bool {
	for p := d.Parent(); p != nil; p = p.Parent() {
		if p == a {
			return true
		}
	}
	return false
}

// YoungestCommonAncestor returns the deepest node that is a or an ancestor
// of a and also b or an ancestor of b, or nil when they are in different
// trees.
func YoungestCommonAncestor(a, b Node) Node {
	seen := map[Node]bool{}
	for x := a; x != nil; x = x.Parent() {
		seen[x] = true
	}
	for x := b; x != nil; x = x.Parent() {
		if seen[x] {
			return x
		}
	}
	return nil
}

// Depth is the number of ancestors of n.
func Depth(n Node) int {
	d := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}

// Path returns the identifiers from the root down to n.
func Path(n Node) primitive.Reference {
	var ids []string
	for x := n; x != nil; x = x.Parent() {
		ids = append(ids, x.Identifier())
	}
	slices.Reverse(ids)
	return primitive.NewReference(ids...)
}

// Walk calls fn on n and its descendants in pre-order. When fn returns
// false the children of the node it was given are skipped.
func Walk(n Node, fn func(Node) bool) {
	stack := []Node{n}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(x) {
			continue
		}
		kids := x.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// FilteredChildren returns the children of n for which keep is true.
func FilteredChildren(n Node, keep func(Node) bool) []Node {
	var res []Node
	for _, c := range n.Children() {
		if keep(c) {
			res = append(res, c)
		}
	}
	return res
}

// Resolve finds the node ref names as seen from scope: the nearest
// ancestor-or-self of scope having a child named by ref's outermost
// identifier is searched, and ref's remaining identifiers are followed down
// from that child. A root named by the outermost identifier matches too.
func Resolve(scope Node, ref primitive.Reference) Node {
	ids := ref.Identifiers()
	if len(ids) == 0 {
		return nil
	}
	for s := scope; s != nil; s = s.Parent() {
		if x := descend(s.Child(ids[0]), ids[1:]); x != nil {
			return x
		}
		if s.Parent() == nil && s.Identifier() == ids[0] {
			return descend(s, ids[1:])
		}
	}
	return nil
}

func descend(n Node, ids []string) Node {
	for _, id := range ids {
		if n == nil {
			return nil
		}
		n = n.Child(id)
	}
	return n
}

// Lookup follows an absolute path from root, whose first identifier must
// be root's own.
func Lookup(root Node, ref primitive.Reference) (Node, error) {
	ids := ref.Identifiers()
	if len(ids) == 0 || ids[0] != root.Identifier() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	n := root
	for _, id := range ids[1:] {
		c := n.Child(id)
		if c == nil {
			return nil, fmt.Errorf("%w: %q under %s", ErrNotFound, id, Path(n))
		}
		n = c
	}
	return n, nil
}

// CanAdd reports whether some slot of c accepts a node of type t right now.
func CanAdd(c Node, t schema.Type) bool {
	if c.IsLeaf() {
		return false
	}
	if l, ok := c.(*List); ok {
		return !l.IsFull() && t.CanSubstitute(l.itemDecl.Type)
	}
	for _, d := range c.Type().SubElements() {
		if !t.CanSubstitute(d.Type) {
			continue
		}
		if l, ok := c.Child(d.Name).(*List); ok && l.IsFull() {
			continue
		}
		return true
	}
	return false
}

// Remove detaches n from its parent.
func Remove(n Node, origin ChangeOrigin) error {
	p := n.Parent()
	if p == nil {
		return fmt.Errorf("%w: cannot remove %s", ErrNoParent, n.Identifier())
	}
	return p.RemoveChild(n, origin)
}
