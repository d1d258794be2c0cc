package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCache_SyncsOnce(t *testing.T) {
	dir := writeLibrary(t, "a.pdf", "b.pdf")
	store := newFakeStore()
	cache := NewCache(newTestSynchronizer(store, dir, &fakeClock{}))

	first, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Error("second Get should return the cached result")
	}
	if got := store.totalUploads(); got != 2 {
		t.Errorf("uploads = %d, want 2 (one per file)", got)
	}
}

func TestCache_ConcurrentGetUploadsOnce(t *testing.T) {
	dir := writeLibrary(t, "a.pdf")
	store := newFakeStore()
	cache := NewCache(newTestSynchronizer(store, dir, &fakeClock{}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(context.Background()); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := store.totalUploads(); got != 1 {
		t.Errorf("uploads = %d, want 1", got)
	}
}

func TestCache_InvalidateResyncs(t *testing.T) {
	dir := writeLibrary(t, "a.pdf")
	store := newFakeStore()
	cache := NewCache(newTestSynchronizer(store, dir, &fakeClock{}))

	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	cache.Invalidate()
	if snap := cache.Snapshot(); snap.Result != nil {
		t.Error("snapshot should be empty after invalidate")
	}
	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.totalUploads(); got != 2 {
		t.Errorf("uploads = %d, want 2", got)
	}
	if snap := cache.Snapshot(); snap.Runs != 2 {
		t.Errorf("runs = %d, want 2", snap.Runs)
	}
}

type erroringSyncer struct{ calls int }

func (s *erroringSyncer) Sync(ctx context.Context) (*Result, error) {
	s.calls++
	return nil, ErrLibraryDirMissing
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	syncer := &erroringSyncer{}
	cache := NewCache(syncer)

	for i := 0; i < 2; i++ {
		if _, err := cache.Get(context.Background()); !errors.Is(err, ErrLibraryDirMissing) {
			t.Fatalf("Get: %v", err)
		}
	}
	if syncer.calls != 2 {
		t.Errorf("calls = %d, want 2", syncer.calls)
	}
	if snap := cache.Snapshot(); !errors.Is(snap.LastErr, ErrLibraryDirMissing) {
		t.Errorf("LastErr = %v", snap.LastErr)
	}
}

func TestCache_CallerCancellationIsNotCached(t *testing.T) {
	dir := writeLibrary(t, "a.pdf", "b.pdf", "c.pdf")
	store := newFakeStore()
	cache := NewCache(newTestSynchronizer(store, dir, &fakeClock{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get with cancelled caller: %v", err)
	}
	if len(first.Documents) != 3 {
		t.Errorf("active documents = %d, want 3 (%s)", len(first.Documents), first.Report())
	}

	second, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(second.Documents) != 3 {
		t.Errorf("cached active documents = %d, want 3 (%s)", len(second.Documents), second.Report())
	}
	if got := store.totalUploads(); got != 3 {
		t.Errorf("uploads = %d, want 3", got)
	}
}

// gatedSyncer blocks each run until release is closed.
type gatedSyncer struct {
	started chan struct{}
	release chan struct{}
	result  *Result
}

func (s *gatedSyncer) Sync(ctx context.Context) (*Result, error) {
	s.started <- struct{}{}
	<-s.release
	return s.result, nil
}

func TestCache_SnapshotDoesNotWaitForSync(t *testing.T) {
	syncer := &gatedSyncer{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  &Result{},
	}
	cache := NewCache(syncer)

	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(context.Background())
		done <- err
	}()
	<-syncer.started

	snapped := make(chan Snapshot, 1)
	go func() { snapped <- cache.Snapshot() }()
	select {
	case snap := <-snapped:
		if !snap.Syncing || snap.Runs != 1 || snap.Result != nil {
			t.Errorf("snapshot during sync = %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("Snapshot blocked while a sync was running")
	}

	close(syncer.release)
	if err := <-done; err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap := cache.Snapshot(); snap.Syncing || snap.Result == nil {
		t.Errorf("snapshot after sync = %+v", snap)
	}
}

func TestCache_InvalidateDuringSyncDropsResult(t *testing.T) {
	syncer := &gatedSyncer{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
		result:  &Result{},
	}
	cache := NewCache(syncer)

	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(context.Background())
		done <- err
	}()
	<-syncer.started
	cache.Invalidate()
	close(syncer.release)
	if err := <-done; err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap := cache.Snapshot(); snap.Result != nil {
		t.Error("a run overtaken by Invalidate should not be cached")
	}
}
