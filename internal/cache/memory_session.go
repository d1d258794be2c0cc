package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mentor-ai/internal/model"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemorySessionStore is the single-process session store. Sessions are
// stored as JSON so callers never share transcript slices.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &MemorySessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, id string) (*model.Session, bool, error) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	if ok && !s.now().Before(entry.expiresAt) {
		delete(s.sessions, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	var session model.Session
	if err := json.Unmarshal(entry.payload, &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return &session, true, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, session *model.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = memoryEntry{payload: payload, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
