package mirror

import (
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/signadot/simtree/object"
)

// DefaultBroadcastTimeout is how long a subscriber may block a broadcast
// before its subscription is failed.
const DefaultBroadcastTimeout = 5 * time.Second

// Notification reports one applied batch.
type Notification struct {
	BatchID string   `json:"batchId"`
	Commit  int64    `json:"commit,omitempty"`
	Changes []Change `json:"changes"`
	Err     string   `json:"error,omitempty"`
}

// Subscriber receives the notifications of batches that changed nodes at
// or under Path. If it does not keep up, Failed is closed and it is
// dropped.
type Subscriber struct {
	Path   string
	Events chan *Notification
	Failed chan struct{}

	failOnce sync.Once
}

func (s *Subscriber) fail() {
	s.failOnce.Do(func() {
		close(s.Failed)
	})
}

// hub fans notifications out to subscribers.
type hub struct {
	mu      sync.RWMutex
	subs    map[*Subscriber]struct{}
	timeout time.Duration
}

func newHub(timeout time.Duration) *hub {
	return &hub{
		subs:    map[*Subscriber]struct{}{},
		timeout: timeout,
	}
}

func (h *hub) add(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = struct{}{}
}

func (h *hub) remove(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s)
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// broadcast sends each subscriber the part of n under its path. A
// subscriber that blocks longer than the timeout is failed and removed.
func (h *hub) broadcast(n *Notification) {
	h.mu.RLock()
	type target struct {
		sub *Subscriber
		n   *Notification
	}
	var targets []target
	for s := range h.subs {
		if sn := n.under(s.Path); sn != nil {
			targets = append(targets, target{sub: s, n: sn})
		}
	}
	h.mu.RUnlock()

	var failed []*Subscriber
	for _, t := range targets {
		select {
		case <-t.sub.Failed:
			continue
		default:
		}
		select {
		case t.sub.Events <- t.n:
		case <-time.After(h.timeout):
			glog.Warningf("mirror: subscriber on %q too slow, dropping it", t.sub.Path)
			t.sub.fail()
			failed = append(failed, t.sub)
		case <-t.sub.Failed:
		}
	}
	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, s := range failed {
		delete(h.subs, s)
	}
	h.mu.Unlock()
}

// under returns n restricted to the changes at or below path, or nil when
// there are none. The removal or replacement of an ancestor of path also
// counts.
func (n *Notification) under(path string) *Notification {
	if path == "" {
		return n
	}
	var changes []Change
	for _, c := range n.Changes {
		if matchesPath(path, c) {
			changes = append(changes, c)
		}
	}
	if len(changes) == 0 {
		return nil
	}
	res := *n
	res.Changes = changes
	return &res
}

func matchesPath(path string, c Change) bool {
	if c.Path == path || strings.HasPrefix(c.Path, path+":") {
		return true
	}
	switch c.Kind {
	case object.Removed, object.Replaced:
		return strings.HasPrefix(path, c.Path+":")
	}
	return false
}
