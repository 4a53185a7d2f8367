// Package mirror owns one live object tree and applies server update
// batches to it from a single worker goroutine. Each batch is applied as a
// unit, its events are summarized and fanned out to subscribers once the
// batch is done, and it can be journaled.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/beevik/etree"
	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
	"github.com/signadot/simtree/config"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/primitive"
	"github.com/signadot/simtree/store"
)

var (
	ErrNotStarted = errors.New("mirror not started")
	ErrStarted    = errors.New("mirror already started")
	ErrStopped    = errors.New("mirror stopped")
	ErrRejected   = errors.New("batch rejected")
)

// TimeAttr is the batch root attribute carrying the simulation time the
// batch belongs to.
const TimeAttr = "simulatedTime"

// Journal records applied batches. *store.Store implements it.
type Journal interface {
	Append(ctx context.Context, b *store.Batch) (int64, error)
	WriteSnapshot(ctx context.Context, commit int64, xml string) error
}

type Option func(*Mirror)

// Strict makes the mirror rehearse every batch on a clone of the tree and
// reject it, leaving the tree untouched, if the rehearsal reports an
// error.
func Strict(on bool) Option {
	return func(m *Mirror) { m.strict = on }
}

func WithJournal(j Journal) Option {
	return func(m *Mirror) { m.journal = j }
}

// SnapshotEvery writes a snapshot to the journal after every n commits.
func SnapshotEvery(n int64) Option {
	return func(m *Mirror) { m.snapEvery = n }
}

func QueueSize(n int) Option {
	return func(m *Mirror) { m.queueSize = n }
}

func BroadcastTimeout(d time.Duration) Option {
	return func(m *Mirror) { m.hub.timeout = d }
}

// FromConfig applies the mirror and snapshot sections of cfg.
func FromConfig(cfg *config.Config) Option {
	return func(m *Mirror) {
		if cfg.Mirror != nil {
			m.strict = cfg.Mirror.Strict
			m.queueSize = cfg.Mirror.Queue
		}
		if cfg.Snapshot != nil {
			m.snapEvery = cfg.Snapshot.MaxCommits
		}
	}
}

// Result describes an applied batch. Err joins the recoverable errors met
// while applying it; the rest of the batch was applied regardless.
type Result struct {
	BatchID string
	Commit  int64
	Changes []Change
	Err     error
}

type Mirror struct {
	factory   *object.Factory
	root      object.Node
	strict    bool
	journal   Journal
	snapEvery int64
	sinceSnap int64
	queueSize int

	hub      *hub
	col      *collector
	factions *FactionRegistry

	queue   chan *request
	started atomic.Bool
	done    chan struct{}
}

// New returns a mirror of root. The mirror takes ownership of root: after
// Start, root must only be touched through View.
func New(f *object.Factory, root object.Node, opts ...Option) *Mirror {
	m := &Mirror{
		factory:   f,
		root:      root,
		queueSize: 16,
		hub:       newHub(DefaultBroadcastTimeout),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	if m.queueSize < 1 {
		m.queueSize = 1
	}
	m.queue = make(chan *request, m.queueSize)
	m.col = newCollector(root)
	m.factions = NewFactionRegistry(f, root)
	return m
}

func (m *Mirror) Factory() *object.Factory {
	return m.factory
}

const (
	queued int32 = iota
	running
	cancelled
)

type request struct {
	data  []byte
	view  func(object.Node) error
	state atomic.Int32
	done  chan reply
}

type reply struct {
	res Result
	err error
}

// Start runs the worker until ctx is done. Batches still queued then fail
// with ErrStopped.
func (m *Mirror) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	go m.run(ctx)
	return nil
}

// Done is closed once the worker has stopped.
func (m *Mirror) Done() <-chan struct{} {
	return m.done
}

func (m *Mirror) run(ctx context.Context) {
	defer close(m.done)
	defer m.factory.RemoveListener(m.factions)
	for {
		select {
		case <-ctx.Done():
			m.drain()
			return
		case r := <-m.queue:
			if !r.state.CompareAndSwap(queued, running) {
				continue
			}
			r.done <- m.handle(ctx, r)
		}
	}
}

func (m *Mirror) drain() {
	for {
		select {
		case r := <-m.queue:
			if r.state.CompareAndSwap(queued, running) {
				r.done <- reply{err: ErrStopped}
			}
		default:
			return
		}
	}
}

func (m *Mirror) handle(ctx context.Context, r *request) reply {
	if r.view != nil {
		return reply{err: r.view(m.root)}
	}
	res, err := m.apply(ctx, r.data)
	return reply{res: res, err: err}
}

// submit queues r and waits for its reply. r can be cancelled through ctx
// until the worker picks it up; after that its reply is awaited.
func (m *Mirror) submit(ctx context.Context, r *request) (reply, error) {
	if !m.started.Load() {
		return reply{}, ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return reply{}, err
	}
	select {
	case <-m.done:
		return reply{}, ErrStopped
	default:
	}
	select {
	case m.queue <- r:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-m.done:
		return reply{}, ErrStopped
	}
	select {
	case rep := <-r.done:
		return rep, rep.err
	case <-ctx.Done():
		if r.state.CompareAndSwap(queued, cancelled) {
			return reply{}, ctx.Err()
		}
	case <-m.done:
		if r.state.CompareAndSwap(queued, cancelled) {
			return reply{}, ErrStopped
		}
	}
	rep := <-r.done
	return rep, rep.err
}

// Apply queues an XML update batch and waits until it has been applied.
// The returned error is set when the batch was not applied at all: it did
// not parse, it was rejected in strict mode, it was cancelled, or the
// mirror stopped.
func (m *Mirror) Apply(ctx context.Context, batch []byte) (Result, error) {
	rep, err := m.submit(ctx, &request{data: batch, done: make(chan reply, 1)})
	return rep.res, err
}

// View runs fn on the worker, between batches. fn must neither modify the
// tree nor keep root or any node reached from it.
func (m *Mirror) View(ctx context.Context, fn func(root object.Node) error) error {
	_, err := m.submit(ctx, &request{view: fn, done: make(chan reply, 1)})
	return err
}

// Subscribe registers a subscriber for changes at or under path, given as
// a reference string. An empty path subscribes to everything.
func (m *Mirror) Subscribe(path string, buffer int) *Subscriber {
	s := &Subscriber{
		Path:   path,
		Events: make(chan *Notification, buffer),
		Failed: make(chan struct{}),
	}
	m.hub.add(s)
	return s
}

// Unsubscribe stops deliveries to s and closes s.Failed.
func (m *Mirror) Unsubscribe(s *Subscriber) {
	m.hub.remove(s)
	s.fail()
}

func (m *Mirror) SubscriberCount() int {
	return m.hub.count()
}

// Factions returns the paths of the Faction nodes in the tree.
func (m *Mirror) Factions(ctx context.Context) ([]primitive.Reference, error) {
	var res []primitive.Reference
	err := m.View(ctx, func(object.Node) error {
		for _, n := range m.factions.Factions() {
			res = append(res, object.Path(n))
		}
		return nil
	})
	return res, err
}

func (m *Mirror) apply(ctx context.Context, data []byte) (Result, error) {
	el, err := dom.ParseBytes(data)
	if err != nil {
		return Result{}, err
	}
	t, err := BatchTime(el)
	if err != nil {
		return Result{}, err
	}
	id := ulid.Make().String()
	origin := object.ServerUpdate(id)
	res := Result{BatchID: id}

	if m.strict {
		rehearsal := m.factory.Clone(m.root)
		if err := rehearsal.Update(el, t, origin); err != nil {
			glog.Warningf("mirror: batch %s rejected: %v", id, err)
			return res, fmt.Errorf("%w: %s: %w", ErrRejected, id, err)
		}
	}

	uerr := m.root.Update(el, t, origin)
	if uerr != nil {
		glog.Warningf("mirror: batch %s applied with errors: %v", id, uerr)
	}
	object.FireSubscriptionHandled(m.root, t, origin)
	res.Changes = m.col.take()
	res.Err = uerr
	m.factions.Prune()

	if m.journal != nil {
		res.Commit = m.record(ctx, id, data, uerr)
	}
	glog.V(1).Infof("mirror: batch %s at commit %d: %d changes", id, res.Commit, len(res.Changes))

	n := &Notification{BatchID: id, Commit: res.Commit, Changes: res.Changes}
	if uerr != nil {
		n.Err = uerr.Error()
	}
	m.hub.broadcast(n)
	return res, nil
}

// record journals a batch and snapshots the tree when due. Journal
// failures are logged: the batch is already part of the tree.
func (m *Mirror) record(ctx context.Context, id string, data []byte, uerr error) int64 {
	b := &store.Batch{MsgID: id, XML: string(data)}
	if uerr != nil {
		b.Err = uerr.Error()
	}
	commit, err := m.journal.Append(ctx, b)
	if err != nil {
		glog.Errorf("mirror: journal batch %s: %v", id, err)
		return 0
	}
	m.sinceSnap++
	if m.snapEvery > 0 && m.sinceSnap >= m.snapEvery {
		if err := m.journal.WriteSnapshot(ctx, commit, dom.String(object.Document(m.root))); err != nil {
			glog.Errorf("mirror: snapshot at %d: %v", commit, err)
		} else {
			m.sinceSnap = 0
		}
	}
	return commit
}

// BatchTime reads the simulation time of a batch from its TimeAttr
// attribute. A batch without one is at time zero.
func BatchTime(el *etree.Element) (primitive.Timestamp, error) {
	v := el.SelectAttrValue(TimeAttr, "")
	if v == "" {
		return 0, nil
	}
	return primitive.ParseTimestamp(v)
}
