// Package cachetracker implements the executor configuration's
// cache-id map and cache-op queue (spec.md §3, SPEC_FULL.md §4.13): a
// shared-id map the executor reads under a read lock, and a
// single-goroutine tracker that owns every mutation so the map is never
// written from two goroutines at once.
package cachetracker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/compss-go/pipeworker/internal/cache"
	"github.com/compss-go/pipeworker/internal/metrics"
)

// Cacher is what the executor needs from a cache-id tracker: a put, a
// lookup, and a close. Both *Tracker and *MirroredTracker satisfy it, so
// cmd/worker can hand the executor either a plain in-process tracker or
// an L2-mirrored one without the executor knowing which.
type Cacher interface {
	Put(id, desc string)
	Lookup(id string) (string, bool)
	Close()
}

// OpKind identifies a cache-op queue entry.
type OpKind int

const (
	OpPut OpKind = iota
	OpRemove
)

// Op is one mutation submitted to the tracker's queue. Entries are
// applied strictly in submission order by the single owner goroutine.
type Op struct {
	Kind OpKind
	ID   string
	Desc string // opaque descriptor, e.g. a serialized-object path
}

// Tracker owns the cache-id map. Reads (Lookup, Snapshot) are served
// directly against the live map under the read lock, without going
// through the queue — the executor's configuration describes this map as
// "read-only from the executor". Every mutation funnels through Submit
// and is applied by the single owner goroutine under the write lock.
type Tracker struct {
	mu    sync.RWMutex
	ids   map[string]string // id -> descriptor
	queue chan Op
	done  chan struct{}
}

// New starts a tracker with a bounded op queue of the given depth. A full
// queue drops the op and counts it via metrics rather than blocking the
// executor's hot path (SPEC_FULL.md §7.10).
func New(queueDepth int) *Tracker {
	if queueDepth <= 0 {
		queueDepth = 1024
	}
	t := &Tracker{
		ids:   make(map[string]string),
		queue: make(chan Op, queueDepth),
		done:  make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Tracker) run() {
	defer close(t.done)
	for op := range t.queue {
		t.apply(op)
	}
}

func (t *Tracker) apply(op Op) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch op.Kind {
	case OpPut:
		t.ids[op.ID] = op.Desc
	case OpRemove:
		delete(t.ids, op.ID)
	}
}

// Submit enqueues a mutation. Non-blocking: a full queue drops the op and
// is counted, never stalling the caller.
func (t *Tracker) Submit(op Op) {
	select {
	case t.queue <- op:
	default:
		metrics.Global().RecordCacheOpDropped()
		slog.Warn("cachetracker: op queue full, dropping", "kind", op.Kind, "id", op.ID)
	}
}

// Put enqueues a put mutation for id. It is the Cacher-facing shorthand
// for Submit(Op{Kind: OpPut, ...}); MirroredTracker overrides it to also
// mirror to L2.
func (t *Tracker) Put(id, desc string) {
	t.Submit(Op{Kind: OpPut, ID: id, Desc: desc})
}

// Remove enqueues a removal of id. MirroredTracker overrides it to also
// mirror to L2.
func (t *Tracker) Remove(id string) {
	t.Submit(Op{Kind: OpRemove, ID: id})
}

// Lookup returns the descriptor registered for id, read-only.
func (t *Tracker) Lookup(id string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.ids[id]
	return d, ok
}

// Snapshot returns a copy of the id->descriptor map, read-only.
func (t *Tracker) Snapshot() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.ids))
	for k, v := range t.ids {
		out[k] = v
	}
	return out
}

// Close stops accepting ops and waits for the tracker goroutine to drain
// the queue and exit.
func (t *Tracker) Close() {
	close(t.queue)
	<-t.done
}

// WithL2 wires an optional Redis-backed L2 (shared across executor
// processes on the same node) behind the in-process id map: a put is
// mirrored to l2 under the given context so other executors observe the
// same cache-resident PSCO set, the rationale the teacher's tiered.go
// gives for pairing an in-memory L1 with a shared L2.
func (t *Tracker) WithL2(ctx context.Context, l2 cache.Cache) *MirroredTracker {
	return &MirroredTracker{Tracker: t, l2: l2, ctx: ctx}
}

// MirroredTracker mirrors Put/Remove to a shared L2 cache best-effort; L2
// failures are logged, never propagated, since the in-process map remains
// authoritative for this executor.
type MirroredTracker struct {
	*Tracker
	l2  cache.Cache
	ctx context.Context
}

func (m *MirroredTracker) Put(id, desc string) {
	m.Submit(Op{Kind: OpPut, ID: id, Desc: desc})
	if err := m.l2.Set(m.ctx, id, []byte(desc), 0); err != nil {
		slog.Warn("cachetracker: l2 mirror put failed", "id", id, "err", err)
	}
}

func (m *MirroredTracker) Remove(id string) {
	m.Submit(Op{Kind: OpRemove, ID: id})
	if err := m.l2.Delete(m.ctx, id); err != nil {
		slog.Warn("cachetracker: l2 mirror remove failed", "id", id, "err", err)
	}
}
