package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/embedding"
	"github.com/convergio/convergio-go/internal/util"
)

// InMemoryStore is a process-local MemoryStore and ConversationStore.
// Entries are deep-copied on the way in and out, so callers can mutate
// results freely. Vector search scans matching entries and ranks them by
// cosine similarity in process.
//
// Suitable for tests, examples and single-process deployments; use the
// sqlite or postgres backends when state must outlive the process.
type InMemoryStore struct {
	mu            sync.RWMutex
	entries       map[string]map[string]*core.MemoryEntry        // userID -> entryID
	conversations map[string]map[string]*core.ConversationRecord // userID -> conversationID
}

var (
	_ core.MemoryStore       = (*InMemoryStore)(nil)
	_ core.VectorSearcher    = (*InMemoryStore)(nil)
	_ core.ConversationStore = (*InMemoryStore)(nil)
)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries:       make(map[string]map[string]*core.MemoryEntry),
		conversations: make(map[string]map[string]*core.ConversationRecord),
	}
}

// Save persists the entry, replacing any existing entry with the same ID.
func (s *InMemoryStore) Save(_ context.Context, entry *core.MemoryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.entries[entry.UserID]
	if !ok {
		byID = make(map[string]*core.MemoryEntry)
		s.entries[entry.UserID] = byID
	}
	byID[entry.ID] = entry.Clone()

	return nil
}

// Get returns the entry by id scoped to the user, or core.ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, userID, id string) (*core.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[userID][id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return entry.Clone(), nil
}

// Search returns entries matching the query, unordered.
func (s *InMemoryStore) Search(_ context.Context, q core.MemoryQuery) ([]*core.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.MemoryEntry
	for userID, byID := range s.entries {
		if q.UserID != "" && userID != q.UserID {
			continue
		}
		for _, entry := range byID {
			if !q.Matches(entry) {
				continue
			}
			out = append(out, entry.Clone())
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// Touch increments access counts and sets last-accessed for the given ids.
// Unknown ids are skipped.
func (s *InMemoryStore) Touch(_ context.Context, userID string, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.entries[userID]
	for _, id := range ids {
		entry, ok := byID[id]
		if !ok {
			continue
		}
		entry.AccessCount++
		entry.LastAccessed = at
	}
	return nil
}

// Delete removes the entry, or returns core.ErrNotFound.
func (s *InMemoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.entries[userID]
	if _, ok := byID[id]; !ok {
		return core.ErrNotFound
	}
	delete(byID, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

// SearchSimilar ranks entries that carry an embedding by cosine similarity
// to the query embedding, descending. Entries without an embedding are
// skipped; callers score those client-side via token overlap.
func (s *InMemoryStore) SearchSimilar(_ context.Context, emb []float64, q core.MemoryQuery) ([]core.ScoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []core.ScoredEntry
	for userID, byID := range s.entries {
		if q.UserID != "" && userID != q.UserID {
			continue
		}
		for _, entry := range byID {
			if len(entry.Embedding) == 0 || !q.Matches(entry) {
				continue
			}
			scored = append(scored, core.ScoredEntry{
				Entry:      entry.Clone(),
				Similarity: util.Clamp(embedding.CosineSimilarity(emb, entry.Embedding), 0, 1),
			})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if q.Limit > 0 && len(scored) > q.Limit {
		scored = scored[:q.Limit]
	}
	return scored, nil
}

// SaveConversation persists the record, replacing any existing record with
// the same ID.
func (s *InMemoryStore) SaveConversation(_ context.Context, rec *core.ConversationRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("conversation record: missing id")
	}
	if rec.UserID == "" {
		return fmt.Errorf("conversation record %s: missing user id", rec.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.conversations[rec.UserID]
	if !ok {
		byID = make(map[string]*core.ConversationRecord)
		s.conversations[rec.UserID] = byID
	}
	byID[rec.ID] = rec.Clone()

	return nil
}

// GetConversation returns the record by id scoped to the user, or
// core.ErrNotFound.
func (s *InMemoryStore) GetConversation(_ context.Context, userID, id string) (*core.ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.conversations[userID][id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return rec.Clone(), nil
}

// DeleteConversation removes the record, or returns core.ErrNotFound.
func (s *InMemoryStore) DeleteConversation(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.conversations[userID]
	if _, ok := byID[id]; !ok {
		return core.ErrNotFound
	}
	delete(byID, id)
	return nil
}
