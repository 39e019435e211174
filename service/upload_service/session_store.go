package upload_service

import (
	"sync"
	"time"

	"chunk-upload-system/model"
)

// SessionEntry registry slot. Lock it before touching Session.
type SessionEntry struct {
	sync.Mutex
	Session *model.UploadSession
}

// SessionStore keyed store of in-progress upload sessions
type SessionStore interface {
	Get(sessionId string) (*SessionEntry, bool)
	Put(entry *SessionEntry)
	Delete(sessionId string)
	// ScanExpired returns entries created before cutoff.
	ScanExpired(cutoff time.Time) []*SessionEntry
	Len() int
}

// MemorySessionStore in-process session store. Creation times are also kept
// in a heap so expiry scans only visit sessions past the cutoff.
type MemorySessionStore struct {
	mu      sync.RWMutex
	entries map[string]*SessionEntry
	expiry  *expiryQueue
}

// NewMemorySessionStore create empty store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]*SessionEntry),
		expiry:  newExpiryQueue(),
	}
}

func (m *MemorySessionStore) Get(sessionId string) (*SessionEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[sessionId]
	return entry, ok
}

func (m *MemorySessionStore) Put(entry *SessionEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Session.SessionId] = entry
	m.expiry.push(&expiryItem{
		sessionId: entry.Session.SessionId,
		createdAt: entry.Session.CreatedAt,
		entry:     entry,
	})
}

func (m *MemorySessionStore) Delete(sessionId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionId)
	// Deleted sessions leave stale heap items behind; rebuild once they dominate.
	if m.expiry.Len() > 2*len(m.entries)+64 {
		m.rebuildExpiryLocked()
	}
}

func (m *MemorySessionStore) rebuildExpiryLocked() {
	m.expiry = newExpiryQueue()
	for id, entry := range m.entries {
		m.expiry.push(&expiryItem{sessionId: id, createdAt: entry.Session.CreatedAt, entry: entry})
	}
}

// ScanExpired CreatedAt never changes after Put, so it is read without the entry lock.
// Live entries stay queued since the caller may decline to expire them.
func (m *MemorySessionStore) ScanExpired(cutoff time.Time) []*SessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []*SessionEntry
	var keep []*expiryItem
	for _, item := range m.expiry.popBefore(cutoff) {
		if m.entries[item.sessionId] != item.entry {
			continue
		}
		expired = append(expired, item.entry)
		keep = append(keep, item)
	}
	for _, item := range keep {
		m.expiry.push(item)
	}
	return expired
}

func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
