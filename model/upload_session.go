package model

import (
	"sort"
	"time"
)

// SessionState upload session state
type SessionState string

const (
	SessionStateOpen      SessionState = "open"      // Accepting chunks
	SessionStateVerifying SessionState = "verifying" // Completion checking chunk set
	SessionStateMerging   SessionState = "merging"   // Streaming chunks into storage
	SessionStateStored    SessionState = "stored"    // Object stored, record not yet published
	SessionStatePersisted SessionState = "persisted" // Record published, session finished
	SessionStateAborted   SessionState = "aborted"   // Aborted by caller
	SessionStateExpired   SessionState = "expired"   // Reclaimed after the expiry window
)

// UploadSession in-progress chunked upload, owned by the session registry
type UploadSession struct {
	SessionId   string            `json:"session_id"`
	FileName    string            `json:"file_name"`
	StorageKey  string            `json:"storage_key"`  // Target key of the merged object
	TotalSize   int64             `json:"total_size"`   // Declared size
	TotalChunks int               `json:"total_chunks"` // Never decreases
	Received    map[int]int64     `json:"received"`     // Chunk number -> bytes on disk
	ChunkDir    string            `json:"chunk_dir"`    // Session-scoped temp directory
	Category    string            `json:"category"`
	Owner       string            `json:"owner"`
	HashHint    string            `json:"hash_hint"` // Optional SHA256 hex supplied at init
	State       SessionState      `json:"state"`
	CreatedAt   time.Time         `json:"created_at"`
	Stored      *StoredObjectInfo `json:"stored,omitempty"` // Set once the merged object is in storage
	RecordID    int64             `json:"record_id"`        // Pending record id, 0 until inserted
}

// StoredObjectInfo result of a successful merge
type StoredObjectInfo struct {
	Size        int64  `json:"size"`
	ContentHash string `json:"content_hash"`
	ContentType string `json:"content_type"`
}

// NewUploadSession create an open session
func NewUploadSession(sessionId, fileName, storageKey string, totalSize int64, totalChunks int) *UploadSession {
	return &UploadSession{
		SessionId:   sessionId,
		FileName:    fileName,
		StorageKey:  storageKey,
		TotalSize:   totalSize,
		TotalChunks: totalChunks,
		Received:    make(map[int]int64),
		State:       SessionStateOpen,
		CreatedAt:   time.Now(),
	}
}

// IsTerminal reports whether the session can no longer change
func (s *UploadSession) IsTerminal() bool {
	switch s.State {
	case SessionStatePersisted, SessionStateAborted, SessionStateExpired:
		return true
	}
	return false
}

// IsCompleting reports whether a completion currently owns the session
func (s *UploadSession) IsCompleting() bool {
	return s.State == SessionStateVerifying || s.State == SessionStateMerging
}

// ExpiresAt deadline after which the session is reclaimed
func (s *UploadSession) ExpiresAt(expiry time.Duration) time.Time {
	return s.CreatedAt.Add(expiry)
}

// IsExpired reports whether the session is older than expiry at now
func (s *UploadSession) IsExpired(now time.Time, expiry time.Duration) bool {
	return now.Sub(s.CreatedAt) > expiry
}

// ReceivedNumbers sorted list of received chunk numbers
func (s *UploadSession) ReceivedNumbers() []int {
	numbers := make([]int, 0, len(s.Received))
	for n := range s.Received {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// FirstMissing smallest chunk number in 1..TotalChunks not yet received, 0 if none
func (s *UploadSession) FirstMissing() int {
	for i := 1; i <= s.TotalChunks; i++ {
		if _, ok := s.Received[i]; !ok {
			return i
		}
	}
	return 0
}

// ReceivedBytes sum of chunk sizes on disk
func (s *UploadSession) ReceivedBytes() int64 {
	var total int64
	for _, size := range s.Received {
		total += size
	}
	return total
}

// UploadProgress public view of a session
type UploadProgress struct {
	SessionId      string       `json:"sessionId"`
	State          SessionState `json:"state"`
	TotalChunks    int          `json:"totalChunks"`
	ReceivedCount  int          `json:"receivedCount"`
	ReceivedChunks []int        `json:"receivedChunks"`
	ReceivedBytes  int64        `json:"receivedBytes"`
	TotalSize      int64        `json:"totalSize"`
	ExpiresAt      time.Time    `json:"expiresAt"`
}
