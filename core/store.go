package core

import (
	"context"
	"time"
)

// MemoryQuery filters memory entries. Zero-value fields match everything,
// so a zero query lists a store's full contents (the retention sweep relies
// on this). Limit == 0 means no limit.
type MemoryQuery struct {
	UserID         string
	AgentID        string
	ConversationID string
	Types          []MemoryType
	Limit          int
}

// Matches reports whether the entry satisfies every set filter field.
func (q MemoryQuery) Matches(e *MemoryEntry) bool {
	if q.UserID != "" && e.UserID != q.UserID {
		return false
	}
	if q.AgentID != "" && e.AgentID != q.AgentID {
		return false
	}
	if q.ConversationID != "" && e.ConversationID != q.ConversationID {
		return false
	}
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MemoryStore defines persistence and retrieval for memory entries.
// Implementations must be safe for concurrent use; the core issues
// independent operations per entry and never multi-key transactions.
type MemoryStore interface {
	// Save persists the entry, replacing any existing entry with the same ID.
	Save(ctx context.Context, entry *MemoryEntry) error

	// Get returns the entry by id scoped to the user, or ErrNotFound.
	Get(ctx context.Context, userID, id string) (*MemoryEntry, error)

	// Search returns entries matching the query, unordered.
	Search(ctx context.Context, q MemoryQuery) ([]*MemoryEntry, error)

	// Touch increments access counts and sets last-accessed for the given
	// ids. Unknown ids are skipped, not errors.
	Touch(ctx context.Context, userID string, ids []string, at time.Time) error

	// Delete removes the entry, or returns ErrNotFound.
	Delete(ctx context.Context, userID, id string) error

	// Close releases backend resources.
	Close() error
}

// ScoredEntry pairs a memory entry with a store-computed similarity score
// in [0,1].
type ScoredEntry struct {
	Entry      *MemoryEntry
	Similarity float64
}

// VectorSearcher is an optional extension of MemoryStore implemented by
// backends that rank entries by embedding similarity server-side. Callers
// type-assert for it and fall back to Search plus client-side scoring when
// it is absent.
type VectorSearcher interface {
	// SearchSimilar returns up to limit entries matching the query filters,
	// ordered by descending similarity to the embedding.
	SearchSimilar(ctx context.Context, embedding []float64, q MemoryQuery) ([]ScoredEntry, error)
}

// ConversationStore persists conversation transcripts and cost records.
type ConversationStore interface {
	// SaveConversation persists the record, replacing any existing record
	// with the same ID.
	SaveConversation(ctx context.Context, rec *ConversationRecord) error

	// GetConversation returns the record by id scoped to the user, or
	// ErrNotFound.
	GetConversation(ctx context.Context, userID, id string) (*ConversationRecord, error)

	// DeleteConversation removes the record, or returns ErrNotFound.
	DeleteConversation(ctx context.Context, userID, id string) error
}
