package mirror

import (
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/primitive"
)

// Change summarizes one event fired in the mirrored tree. Path is the
// source node's path when the event fired; a removed node keeps the path
// it had before removal.
type Change struct {
	Kind  object.EventKind `json:"kind"`
	Path  string           `json:"path"`
	Type  string           `json:"type,omitempty"`
	Child string           `json:"child,omitempty"`
	Old   string           `json:"old,omitempty"`
	Time  string           `json:"time,omitempty"`
}

// collector is registered on every node of the live tree. It follows
// additions, replacements and renames so that new nodes are listened to
// and removed ones dropped.
type collector struct {
	paths   map[object.Node]primitive.Reference
	changes []Change
}

func newCollector(root object.Node) *collector {
	c := &collector{paths: map[object.Node]primitive.Reference{}}
	c.track(root)
	return c
}

func (c *collector) track(n object.Node) {
	object.Walk(n, func(x object.Node) bool {
		if _, ok := c.paths[x]; !ok {
			x.AddEventListener(c)
		}
		c.paths[x] = object.Path(x)
		return true
	})
}

func (c *collector) untrack(n object.Node) primitive.Reference {
	p, ok := c.paths[n]
	if !ok {
		return object.Path(n)
	}
	delete(c.paths, n)
	n.RemoveEventListener(c)
	return p
}

func (c *collector) EventOccurred(e object.Event) {
	ch := Change{Kind: e.Kind, Type: e.Source.Type().QName()}
	switch e.Kind {
	case object.Removed:
		ch.Path = c.untrack(e.Source).String()
	case object.ObjectAdded:
		c.track(e.Added)
		ch.Child = e.Added.Identifier()
	case object.Replaced:
		c.track(e.NewNode)
		ch.Child = e.NewNode.Type().QName()
	case object.IdentifierChanged:
		c.track(e.Source)
		ch.Old = e.OldIdentifier
	case object.ChildChanged:
		ch.Child = e.Changed.Identifier()
	case object.SubscriptionHandled:
		ch.Time = e.Time.String()
	}
	if ch.Path == "" {
		ch.Path = object.Path(e.Source).String()
	}
	c.changes = append(c.changes, ch)
}

// take returns the changes collected so far and starts a new list.
func (c *collector) take() []Change {
	res := c.changes
	c.changes = nil
	return res
}

// detach removes the collector from every node it listens to.
func (c *collector) detach() {
	for n := range c.paths {
		n.RemoveEventListener(c)
	}
	clear(c.paths)
}
