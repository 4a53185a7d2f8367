package object

import (
	"fmt"

	"github.com/signadot/simtree/debug"
	"github.com/signadot/simtree/primitive"
)

type EventKind int

const (
	ObjectAdded EventKind = iota
	ChildChanged
	Removed
	Replaced
	ValueChanged
	IdentifierChanged
	Selected
	Unselected
	RegionUpdated
	GridUpdated
	GraticulesUpdated
	CoordSystemChanged
	SubscriptionHandled
)

var eventKindNames = map[EventKind]string{
	ObjectAdded:         "ObjectAdded",
	ChildChanged:        "ChildChanged",
	Removed:             "Removed",
	Replaced:            "Replaced",
	ValueChanged:        "ValueChanged",
	IdentifierChanged:   "IdentifierChanged",
	Selected:            "Selected",
	Unselected:          "Unselected",
	RegionUpdated:       "RegionUpdated",
	GridUpdated:         "GridUpdated",
	GraticulesUpdated:   "GraticulesUpdated",
	CoordSystemChanged:  "CoordSystemChanged",
	SubscriptionHandled: "SubscriptionHandled",
}

func (k EventKind) String() string {
	s, ok := eventKindNames[k]
	if ok {
		return s
	}
	return "<unknown event>"
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(d []byte) error {
	for kk, name := range eventKindNames {
		if name == string(d) {
			*k = kk
			return nil
		}
	}
	return fmt.Errorf("unrecognized event kind %q", d)
}

func EventKinds() []EventKind {
	res := make([]EventKind, 0, len(eventKindNames))
	for k := ObjectAdded; k <= SubscriptionHandled; k++ {
		res = append(res, k)
	}
	return res
}

// IsDomain reports whether k is one of the view-specific kinds that are
// delivered to the source only.
func (k EventKind) IsDomain() bool {
	return k >= RegionUpdated && k <= SubscriptionHandled
}

// Event describes one change. Which payload field is set depends on Kind:
// Added for ObjectAdded, Changed for ChildChanged, NewNode for Replaced,
// OldIdentifier for IdentifierChanged and Time for SubscriptionHandled.
type Event struct {
	Kind   EventKind
	Source Node
	Origin ChangeOrigin

	Added         Node
	Changed       Node
	NewNode       Node
	OldIdentifier string
	Time          primitive.Timestamp
}

func (e Event) String() string {
	src := "<nil>"
	if e.Source != nil {
		src = Path(e.Source).String()
	}
	switch e.Kind {
	case ObjectAdded:
		return fmt.Sprintf("%s %s +%s (%s)", e.Kind, src, e.Added.Identifier(), e.Origin)
	case ChildChanged:
		return fmt.Sprintf("%s %s ~%s (%s)", e.Kind, src, e.Changed.Identifier(), e.Origin)
	case IdentifierChanged:
		return fmt.Sprintf("%s %s was %q (%s)", e.Kind, src, e.OldIdentifier, e.Origin)
	case SubscriptionHandled:
		return fmt.Sprintf("%s %s at %s (%s)", e.Kind, src, e.Time, e.Origin)
	default:
		return fmt.Sprintf("%s %s (%s)", e.Kind, src, e.Origin)
	}
}

// Listener observes events fired on a node. Listeners are compared by
// interface equality on removal, so implementations should be pointers.
type Listener interface {
	EventOccurred(e Event)
}

type funcListener struct {
	f func(Event)
}

func (l *funcListener) EventOccurred(e Event) { l.f(e) }

// ListenerFunc adapts f to a Listener. Keep the result to remove it later.
func ListenerFunc(f func(Event)) Listener {
	return &funcListener{f: f}
}

// listeners is never modified in place: registration replaces the slice, so
// a delivery loop keeps iterating the snapshot it started with.
type listeners []Listener

func (ls listeners) with(l Listener) listeners {
	res := make(listeners, len(ls), len(ls)+1)
	copy(res, ls)
	return append(res, l)
}

func (ls listeners) without(l Listener) listeners {
	for i, x := range ls {
		if x != l {
			continue
		}
		res := make(listeners, 0, len(ls)-1)
		res = append(res, ls[:i]...)
		return append(res, ls[i+1:]...)
	}
	return ls
}

func (b *base) AddEventListener(l Listener) {
	if l == nil {
		return
	}
	b.ls = b.ls.with(l)
}

func (b *base) RemoveEventListener(l Listener) {
	b.ls = b.ls.without(l)
}

// ListenerCount returns the number of listeners registered on n.
func ListenerCount(n Node) int {
	return len(n.node().ls)
}

func (b *base) fire(e Event) {
	e.Source = b.this
	if debug.Events() {
		debug.Logf("event %s\n", e)
	}
	snap := b.ls
	for _, l := range snap {
		l.EventOccurred(e)
	}
}

// propagate fires ChildChanged on every ancestor of from, nearest first.
// Changed names the child through which the change arrived.
func propagate(from Node, origin ChangeOrigin) {
	child := from
	for p := from.Parent(); p != nil; p = p.Parent() {
		p.node().fire(Event{Kind: ChildChanged, Changed: child, Origin: origin})
		child = p
	}
}

func (b *base) fireValueChanged(origin ChangeOrigin) {
	b.fire(Event{Kind: ValueChanged, Origin: origin})
	propagate(b.this, origin)
}

// fireRemoved fires Removed on n and then on its descendants, pre-order.
func fireRemoved(n Node, origin ChangeOrigin) {
	stack := []Node{n}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x.node().fire(Event{Kind: Removed, Origin: origin})
		kids := x.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// FireDomainEvent delivers one of the view-specific kinds (RegionUpdated,
// GridUpdated, ...) to n's listeners without propagating it.
func FireDomainEvent(n Node, kind EventKind, origin ChangeOrigin) {
	if !kind.IsDomain() {
		contractf("FireDomainEvent", "%s is not a domain event", kind)
	}
	n.node().fire(Event{Kind: kind, Origin: origin})
}

// FireSubscriptionHandled tells n's listeners that the updates for time t
// have been applied.
func FireSubscriptionHandled(n Node, t primitive.Timestamp, origin ChangeOrigin) {
	n.node().fire(Event{Kind: SubscriptionHandled, Origin: origin, Time: t})
}

// Select marks n as selected and fires Selected. It is a no-op when n is
// already selected.
func Select(n Node, origin ChangeOrigin) {
	b := n.node()
	if b.selected {
		return
	}
	b.selected = true
	b.fire(Event{Kind: Selected, Origin: origin})
}

func Unselect(n Node, origin ChangeOrigin) {
	b := n.node()
	if !b.selected {
		return
	}
	b.selected = false
	b.fire(Event{Kind: Unselected, Origin: origin})
}

func IsSelected(n Node) bool {
	return n.node().selected
}
