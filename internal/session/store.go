package session

import "sync"

// Turn roles. The assistant role is translated to the provider-specific
// role name at the generation boundary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single exchange unit in a conversation transcript. Order is
// chronological and is replayed verbatim to the generation service.
type Turn struct {
	Role    string
	Content string
}

// Store keeps per-user conversation transcripts. Writes are last-write-wins
// per key; callers that need rounds for the same user serialized must do so
// themselves.
type Store interface {
	// Get returns the transcript for the user, empty for unseen users.
	Get(userID string) []Turn
	// Replace swaps the user's transcript with the provided one.
	Replace(userID string, turns []Turn)
	// Clear removes the user's transcript entirely.
	Clear(userID string)
}

// MemoryStore is an in-memory Store. Transcripts live for the lifetime of
// the process only.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Turn)}
}

func (s *MemoryStore) Get(userID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[userID]
	if len(turns) == 0 {
		return nil
	}

	// Copy so callers can append without aliasing the stored slice.
	out := make([]Turn, len(turns))
	copy(out, turns)

	return out
}

func (s *MemoryStore) Replace(userID string, turns []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]Turn, len(turns))
	copy(stored, turns)
	s.sessions[userID] = stored
}

func (s *MemoryStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}

// Len reports the number of users with a stored transcript.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
