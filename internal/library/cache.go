package library

import (
	"context"
	"sync"
	"time"
)

// Syncer is the work the cache memoizes.
type Syncer interface {
	Sync(ctx context.Context) (*Result, error)
}

// Cache holds the synced library for the process lifetime. A completed sync
// is kept until Invalidate; errors are not cached.
type Cache struct {
	syncer Syncer

	// runMu serializes sync runs; mu guards the state below and is never
	// held across a sync.
	runMu sync.Mutex

	mu         sync.RWMutex
	result     *Result
	syncedAt   time.Time
	lastErr    error
	runs       int
	syncing    bool
	generation uint64
}

func NewCache(syncer Syncer) *Cache {
	return &Cache{syncer: syncer}
}

// Get returns the cached library, syncing on a miss. Concurrent callers wait
// for the same run. The run is detached from ctx so a caller that goes away
// cannot leave a half-synced library behind; Policy.Deadline still bounds it.
func (c *Cache) Get(ctx context.Context) (*Result, error) {
	if result := c.cached(); result != nil {
		return result, nil
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	if result := c.cached(); result != nil {
		return result, nil
	}

	c.mu.Lock()
	c.runs++
	c.syncing = true
	generation := c.generation
	c.mu.Unlock()

	result, err := c.syncer.Sync(context.WithoutCancel(ctx))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncing = false
	if err != nil {
		c.lastErr = err
		return nil, err
	}
	c.lastErr = nil
	// An Invalidate during the run means the directory changed under it.
	if generation == c.generation {
		c.result = result
		c.syncedAt = time.Now()
	}
	return result, nil
}

func (c *Cache) cached() *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = nil
	c.syncedAt = time.Time{}
	c.generation++
}

type Snapshot struct {
	Result   *Result
	SyncedAt time.Time
	LastErr  error
	Runs     int
	Syncing  bool
}

// Snapshot reads the cache state without triggering or waiting for a sync.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Result:   c.result,
		SyncedAt: c.syncedAt,
		LastErr:  c.lastErr,
		Runs:     c.runs,
		Syncing:  c.syncing,
	}
}
