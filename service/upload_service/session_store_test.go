package upload_service

import (
	"testing"
	"time"

	"chunk-upload-system/model"
)

func storeEntry(id string, createdAt time.Time) *SessionEntry {
	return &SessionEntry{Session: &model.UploadSession{SessionId: id, CreatedAt: createdAt}}
}

func TestExpiryQueue_PopBefore(t *testing.T) {
	q := newExpiryQueue()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	q.push(&expiryItem{sessionId: "b", createdAt: base.Add(2 * time.Minute)})
	q.push(&expiryItem{sessionId: "a", createdAt: base})
	q.push(&expiryItem{sessionId: "c", createdAt: base.Add(5 * time.Minute)})

	popped := q.popBefore(base.Add(3 * time.Minute))
	if len(popped) != 2 {
		t.Fatalf("Expected 2 items before cutoff, got %d", len(popped))
	}
	if popped[0].sessionId != "a" || popped[1].sessionId != "b" {
		t.Errorf("Expected oldest first, got %s, %s", popped[0].sessionId, popped[1].sessionId)
	}
	if q.Len() != 1 {
		t.Errorf("Expected 1 item left, got %d", q.Len())
	}

	// Cutoff equal to creation time is not expired
	if got := q.popBefore(base.Add(5 * time.Minute)); len(got) != 0 {
		t.Errorf("Expected nothing at exact cutoff, got %d", len(got))
	}
}

func TestMemorySessionStore_ScanExpired(t *testing.T) {
	store := NewMemorySessionStore()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	old := storeEntry("old", base)
	mid := storeEntry("mid", base.Add(time.Minute))
	fresh := storeEntry("fresh", base.Add(time.Hour))
	store.Put(old)
	store.Put(mid)
	store.Put(fresh)

	store.Delete("mid")

	expired := store.ScanExpired(base.Add(10 * time.Minute))
	if len(expired) != 1 || expired[0] != old {
		t.Fatalf("Expected only the old session, got %d entries", len(expired))
	}

	// Entries the caller left alone are reported again
	expired = store.ScanExpired(base.Add(10 * time.Minute))
	if len(expired) != 1 {
		t.Errorf("Expected old session to stay queued, got %d entries", len(expired))
	}

	store.Delete("old")
	if got := store.ScanExpired(base.Add(2 * time.Hour)); len(got) != 1 || got[0] != fresh {
		t.Errorf("Expected only the fresh session, got %d entries", len(got))
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 live session, got %d", store.Len())
	}
}

func TestMemorySessionStore_RebuildsAfterDeletes(t *testing.T) {
	store := NewMemorySessionStore()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	keep := storeEntry("keep", base)
	store.Put(keep)
	for i := 0; i < 100; i++ {
		id := "s" + time.Duration(i).String()
		store.Put(storeEntry(id, base.Add(time.Duration(i)*time.Second)))
		store.Delete(id)
	}

	if store.expiry.Len() > 2*store.Len()+64 {
		t.Errorf("Expected stale heap items to be compacted, heap has %d", store.expiry.Len())
	}
	if got := store.ScanExpired(base.Add(time.Hour)); len(got) != 1 || got[0] != keep {
		t.Errorf("Expected the kept session after rebuild, got %d entries", len(got))
	}
}
