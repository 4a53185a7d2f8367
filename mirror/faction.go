package mirror

import (
	"slices"
	"sync"

	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/schema"
)

// FactionRegistry tracks the Faction nodes of one tree. It listens to the
// factory for attached nodes, so factions are found wherever they are
// placed, and to each faction for its removal. Factions seen outside the
// tree, such as those of a clone, are dropped by Prune.
type FactionRegistry struct {
	mu       sync.Mutex
	root     object.Node
	typ      schema.Type
	factions []object.Node
}

// NewFactionRegistry registers a registry for the tree under root with f.
// A schema without a Faction type gives a registry that never records
// anything.
func NewFactionRegistry(f *object.Factory, root object.Node) *FactionRegistry {
	r := &FactionRegistry{root: root, typ: f.Schema().Lookup("Faction")}
	object.Walk(root, func(n object.Node) bool {
		r.ObjectAttached(n)
		return true
	})
	f.AddListener(r)
	return r
}

func (r *FactionRegistry) ObjectCreated(object.Node) {}

func (r *FactionRegistry) ObjectAttached(n object.Node) {
	if r.typ == nil || !n.Type().CanSubstitute(r.typ) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.factions, n) {
		return
	}
	r.factions = append(r.factions, n)
	n.AddEventListener(r)
}

func (r *FactionRegistry) EventOccurred(e object.Event) {
	if e.Kind != object.Removed {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forget(e.Source)
}

func (r *FactionRegistry) forget(n object.Node) {
	i := slices.Index(r.factions, n)
	if i < 0 {
		return
	}
	r.factions = slices.Delete(r.factions, i, i+1)
	n.RemoveEventListener(r)
}

// Prune drops the recorded factions that are not in the tree.
func (r *FactionRegistry) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range slices.Clone(r.factions) {
		if object.Root(n) != r.root {
			r.forget(n)
		}
	}
}

// Factions returns the factions in the tree, in the order they were
// attached.
func (r *FactionRegistry) Factions() []object.Node {
	r.Prune()
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.factions)
}
