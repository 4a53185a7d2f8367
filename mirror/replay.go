package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/store"
)

// Source is the read side of a journal. *store.Store implements it.
type Source interface {
	NearestSnapshot(ctx context.Context, commit int64) (*store.Snapshot, error)
	BatchesUpTo(ctx context.Context, since, upTo int64) ([]store.Batch, error)
}

// Replay rebuilds a tree as of commit upTo, or as of the latest commit
// when upTo is negative. It starts from the nearest snapshot, or from a
// clone of base when the journal has none, and reapplies the batches
// after it. It returns the tree and the last commit applied.
func Replay(ctx context.Context, f *object.Factory, src Source, base object.Node, upTo int64) (object.Node, int64, error) {
	var (
		root  object.Node
		since int64
	)
	snap, err := src.NearestSnapshot(ctx, upTo)
	switch {
	case err == nil:
		el, err := dom.ParseString(snap.XML)
		if err != nil {
			return nil, 0, fmt.Errorf("snapshot %d: %w", snap.Commit, err)
		}
		if root, err = f.FromElement(el); err != nil {
			return nil, 0, fmt.Errorf("snapshot %d: %w", snap.Commit, err)
		}
		since = snap.Commit
	case errors.Is(err, store.ErrNoSnapshot) && base != nil:
		root = f.Clone(base)
	default:
		return nil, 0, err
	}

	batches, err := src.BatchesUpTo(ctx, since, upTo)
	if err != nil {
		return nil, 0, err
	}
	commit := since
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		el, err := dom.ParseString(b.XML)
		if err != nil {
			return nil, 0, fmt.Errorf("batch %d: %w", b.Commit, err)
		}
		t, err := BatchTime(el)
		if err != nil {
			return nil, 0, fmt.Errorf("batch %d: %w", b.Commit, err)
		}
		if err := root.Update(el, t, object.ServerUpdate(b.MsgID)); err != nil && b.Err == "" {
			glog.Warningf("replay: batch %d (%s) failed where it had applied cleanly: %v", b.Commit, b.MsgID, err)
		}
		commit = b.Commit
	}
	return root, commit, nil
}
