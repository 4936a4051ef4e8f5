package oracle

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"chatten/internal/qscore"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

type fakeSource struct {
	mu    sync.Mutex
	snaps map[string]qscore.Snapshot
	err   error
	calls int
}

func (f *fakeSource) Fetch(ctx context.Context, modelID string) (qscore.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return qscore.Snapshot{}, f.err
	}
	snap, ok := f.snaps[modelID]
	if !ok {
		return qscore.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, modelID)
	}
	return snap, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStoreServesCacheFirst(t *testing.T) {
	src := &fakeSource{snaps: map[string]qscore.Snapshot{}}
	store := NewStore(src, noopLogger())

	want := qscore.Snapshot{AvgLatencyMS: 42}
	store.Put(context.Background(), "gpt-4", want)

	got := store.Get(context.Background(), "gpt-4")
	if got != want {
		t.Fatalf("cached snapshot = %+v, want %+v", got, want)
	}
	if src.callCount() != 0 {
		t.Fatalf("cache hit must not touch the source, saw %d calls", src.callCount())
	}
}

func TestStoreFetchesOnMissAndCaches(t *testing.T) {
	want := qscore.Snapshot{AvgLatencyMS: 30, ThroughputTPS: 1200}
	src := &fakeSource{snaps: map[string]qscore.Snapshot{"gpt-4": want}}
	store := NewStore(src, noopLogger())

	got := store.Get(context.Background(), "gpt-4")
	if got != want {
		t.Fatalf("fetched snapshot = %+v, want %+v", got, want)
	}

	store.Get(context.Background(), "gpt-4")
	if src.callCount() != 1 {
		t.Fatalf("second read should hit the cache, saw %d source calls", src.callCount())
	}
}

func TestStoreDefaultsWhenNotFound(t *testing.T) {
	src := &fakeSource{snaps: map[string]qscore.Snapshot{}}
	store := NewStore(src, noopLogger())

	got := store.Get(context.Background(), "ghost")
	if !got.IsZero() {
		t.Fatalf("unknown model should yield zero snapshot, got %+v", got)
	}
}

func TestStoreDefaultsOnSourceError(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("oracle offline")}
	store := NewStore(src, noopLogger())

	got := store.Get(context.Background(), "gpt-4")
	if !got.IsZero() {
		t.Fatalf("source failure should yield zero snapshot, got %+v", got)
	}
}

func TestStoreDefaultsWithoutSource(t *testing.T) {
	store := NewStore(nil, noopLogger())
	if got := store.Get(context.Background(), "gpt-4"); !got.IsZero() {
		t.Fatalf("no source should yield zero snapshot, got %+v", got)
	}
}

func TestStoreLastWriteWins(t *testing.T) {
	store := NewStore(nil, noopLogger())
	store.Put(context.Background(), "m", qscore.Snapshot{AvgLatencyMS: 1})
	store.Put(context.Background(), "m", qscore.Snapshot{AvgLatencyMS: 2})

	if got := store.Get(context.Background(), "m"); got.AvgLatencyMS != 2 {
		t.Fatalf("expected last write to win, got latency %v", got.AvgLatencyMS)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore(nil, noopLogger())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Put(context.Background(), "m", qscore.Snapshot{AvgLatencyMS: float64(n)})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Get(context.Background(), "m")
			}
		}()
	}
	wg.Wait()

	if got := store.Get(context.Background(), "m"); got.AvgLatencyMS < 0 || got.AvgLatencyMS > 7 {
		t.Fatalf("unexpected snapshot after concurrent writes: %+v", got)
	}
}
