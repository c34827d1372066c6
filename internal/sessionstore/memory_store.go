package sessionstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/erpbuddy-assistant/internal/models"
)

// MemoryStore is an in-process Store for single-instance deployments and
// the CLI. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]memoryEntry
	locks   map[string]memoryLock
	seq     uint64
}

type memoryEntry struct {
	rec     Record
	expires time.Time
}

type memoryLock struct {
	owner   uint64
	expires time.Time
}

// NewMemoryStore returns an empty store. A zero ttl keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		records: make(map[string]memoryEntry),
		locks:   make(map[string]memoryLock),
	}
}

func (m *MemoryStore) LoadSession(ctx context.Context, sessionID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.records[sessionID]
	if !ok || m.expired(e.expires) {
		delete(m.records, sessionID)
		return nil, ErrSessionNotFound
	}
	rec := e.rec
	return &rec, nil
}

func (m *MemoryStore) SaveState(ctx context.Context, userID, companyID string, state *models.ConversationState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("state without session id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.records[state.SessionID]
	if !ok || m.expired(e.expires) {
		e = memoryEntry{rec: Record{SessionID: state.SessionID}}
	}
	touch(&e.rec, userID, companyID, state, now)
	if m.ttl > 0 {
		e.expires = now.Add(m.ttl)
	}
	m.records[state.SessionID] = e
	return nil
}

func (m *MemoryStore) ClearSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, sessionID)
	return nil
}

func (m *MemoryStore) Lock(ctx context.Context, sessionID string, ttl time.Duration) (Unlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.locks[sessionID]; ok && !m.expired(l.expires) {
		return nil, ErrSessionBusy
	}
	m.seq++
	owner := m.seq
	l := memoryLock{owner: owner}
	if ttl > 0 {
		l.expires = m.now().Add(ttl)
	}
	m.locks[sessionID] = l

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.locks[sessionID]; ok && cur.owner == owner {
			delete(m.locks, sessionID)
		}
		return nil
	}, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) expired(t time.Time) bool {
	return !t.IsZero() && !m.now().Before(t)
}
