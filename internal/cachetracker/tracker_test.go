package cachetracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/compss-go/pipeworker/internal/cache"
	"github.com/stretchr/testify/assert"
)

// fakeL2 is an in-memory stand-in for cache.Cache, used to observe what
// MirroredTracker mirrors without a real Redis backend.
type fakeL2 struct {
	mu   sync.Mutex
	sets map[string][]byte
}

func newFakeL2() *fakeL2 { return &fakeL2{sets: make(map[string][]byte)} }

func (f *fakeL2) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.sets[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return v, nil
}

func (f *fakeL2) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets[key] = value
	return nil
}

func (f *fakeL2) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sets, key)
	return nil
}

func (f *fakeL2) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sets[key]
	return ok, nil
}

func (f *fakeL2) Ping(context.Context) error { return nil }
func (f *fakeL2) Close() error               { return nil }

func TestSubmitAppliesInOrder(t *testing.T) {
	tr := New(16)
	defer tr.Close()

	tr.Submit(Op{Kind: OpPut, ID: "a", Desc: "first"})
	tr.Submit(Op{Kind: OpPut, ID: "a", Desc: "second"})
	tr.Submit(Op{Kind: OpRemove, ID: "b"})

	assert.Eventually(t, func() bool {
		d, ok := tr.Lookup("a")
		return ok && d == "second"
	}, time.Second, time.Millisecond)
}

func TestLookupMissingID(t *testing.T) {
	tr := New(4)
	defer tr.Close()

	_, ok := tr.Lookup("missing")
	assert.False(t, ok)
}

func TestFullQueueDropsRatherThanBlocks(t *testing.T) {
	tr := New(1)
	defer tr.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			tr.Submit(Op{Kind: OpPut, ID: "x", Desc: "y"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked instead of dropping under backpressure")
	}
}

func TestPutAndRemoveViaCacherInterface(t *testing.T) {
	var c Cacher = New(4)
	defer c.Close()

	c.Put("a", "desc-a")
	assert.Eventually(t, func() bool {
		d, ok := c.Lookup("a")
		return ok && d == "desc-a"
	}, time.Second, time.Millisecond)
}

func TestMirroredTrackerPutMirrorsToL2(t *testing.T) {
	tr := New(4)
	defer tr.Close()
	l2 := newFakeL2()
	m := tr.WithL2(context.Background(), l2)

	m.Put("a", "desc-a")

	assert.Eventually(t, func() bool {
		d, ok := m.Lookup("a")
		return ok && d == "desc-a"
	}, time.Second, time.Millisecond)
	v, err := l2.Get(context.Background(), "a")
	assert.NoError(t, err)
	assert.Equal(t, "desc-a", string(v))
}

func TestMirroredTrackerRemoveMirrorsToL2(t *testing.T) {
	tr := New(4)
	defer tr.Close()
	l2 := newFakeL2()
	m := tr.WithL2(context.Background(), l2)

	m.Put("a", "desc-a")
	assert.Eventually(t, func() bool {
		_, ok := m.Lookup("a")
		return ok
	}, time.Second, time.Millisecond)

	m.Remove("a")

	assert.Eventually(t, func() bool {
		_, ok := m.Lookup("a")
		return !ok
	}, time.Second, time.Millisecond)
	_, err := l2.Get(context.Background(), "a")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := New(4)
	defer tr.Close()

	tr.Submit(Op{Kind: OpPut, ID: "a", Desc: "v"})
	assert.Eventually(t, func() bool {
		_, ok := tr.Lookup("a")
		return ok
	}, time.Second, time.Millisecond)

	snap := tr.Snapshot()
	snap["a"] = "mutated"

	d, _ := tr.Lookup("a")
	assert.Equal(t, "v", d)
}
