// Package store is a sqlite journal of applied update batches and tree
// snapshots, ordered by a commit sequence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/signadot/simtree/debug"
	_ "modernc.org/sqlite"
)

var ErrNoSnapshot = errors.New("no snapshot")

// Batch is one journaled update batch. Err holds the joined error text of
// a batch that applied with recoverable failures, or that was rejected.
type Batch struct {
	Commit int64
	MsgID  string
	Time   time.Time
	XML    string
	Err    string
}

// Snapshot is the XML of a whole tree as of a commit.
type Snapshot struct {
	Commit int64
	Time   time.Time
	XML    string
}

type Store struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS batches (
	commit_seq INTEGER PRIMARY KEY AUTOINCREMENT,
	msg_id TEXT NOT NULL,
	ts TEXT NOT NULL,
	xml TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS batches_msg_id ON batches(msg_id);

CREATE TABLE IF NOT EXISTS snapshots (
	commit_seq INTEGER PRIMARY KEY,
	ts TEXT NOT NULL,
	xml TEXT NOT NULL
);
`

// Open opens or creates the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// one connection: sqlite serializes writers and ":memory:" is
	// per-connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append journals b and returns the commit it was assigned. b.Commit is
// ignored and set on success. A zero b.Time is set to now.
func (s *Store) Append(ctx context.Context, b *Batch) (int64, error) {
	if b.Time.IsZero() {
		b.Time = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (msg_id, ts, xml, error) VALUES (?, ?, ?, ?)`,
		b.MsgID, formatTime(b.Time), b.XML, b.Err)
	if err != nil {
		return 0, fmt.Errorf("failed to append batch %s: %w", b.MsgID, err)
	}
	commit, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read commit of batch %s: %w", b.MsgID, err)
	}
	b.Commit = commit
	if debug.Store() {
		debug.Logf("store: append %s at commit %d", b.MsgID, commit)
	}
	return commit, nil
}

// Commit returns the latest commit, or 0 for an empty journal.
func (s *Store) Commit(ctx context.Context) (int64, error) {
	var commit sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(commit_seq) FROM batches`).Scan(&commit)
	if err != nil {
		return 0, fmt.Errorf("failed to read commit: %w", err)
	}
	return commit.Int64, nil
}

// Batches returns the batches committed after since, oldest first.
func (s *Store) Batches(ctx context.Context, since int64) ([]Batch, error) {
	return s.batches(ctx, since, -1)
}

// BatchesUpTo returns the batches in (since, upTo], oldest first.
func (s *Store) BatchesUpTo(ctx context.Context, since, upTo int64) ([]Batch, error) {
	return s.batches(ctx, since, upTo)
}

func (s *Store) batches(ctx context.Context, since, upTo int64) ([]Batch, error) {
	q := `SELECT commit_seq, msg_id, ts, xml, error FROM batches WHERE commit_seq > ?`
	args := []any{since}
	if upTo >= 0 {
		q += ` AND commit_seq <= ?`
		args = append(args, upTo)
	}
	q += ` ORDER BY commit_seq`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var res []Batch
	for rows.Next() {
		var (
			b  Batch
			ts string
		)
		if err := rows.Scan(&b.Commit, &b.MsgID, &ts, &b.XML, &b.Err); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		if b.Time, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("batch %d: %w", b.Commit, err)
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// WriteSnapshot records xml as the tree state at commit, replacing any
// earlier snapshot at the same commit.
func (s *Store) WriteSnapshot(ctx context.Context, commit int64, xml string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (commit_seq, ts, xml) VALUES (?, ?, ?)
		ON CONFLICT(commit_seq) DO UPDATE SET ts = excluded.ts, xml = excluded.xml`,
		commit, formatTime(time.Now().UTC()), xml)
	if err != nil {
		return fmt.Errorf("failed to write snapshot at %d: %w", commit, err)
	}
	if debug.Store() {
		debug.Logf("store: snapshot at commit %d", commit)
	}
	return nil
}

// NearestSnapshot returns the latest snapshot at or before commit. A
// negative commit means the latest snapshot overall.
func (s *Store) NearestSnapshot(ctx context.Context, commit int64) (*Snapshot, error) {
	q := `SELECT commit_seq, ts, xml FROM snapshots`
	var args []any
	if commit >= 0 {
		q += ` WHERE commit_seq <= ?`
		args = append(args, commit)
	}
	q += ` ORDER BY commit_seq DESC LIMIT 1`

	var (
		snap Snapshot
		ts   string
	)
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&snap.Commit, &ts, &snap.XML)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w at or before commit %d", ErrNoSnapshot, commit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if snap.Time, err = parseTime(ts); err != nil {
		return nil, fmt.Errorf("snapshot %d: %w", snap.Commit, err)
	}
	return &snap, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad journal timestamp %q: %w", s, err)
	}
	return t, nil
}
