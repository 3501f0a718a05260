package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/logging"
)

// RetentionPolicy decides when stored memories have aged out. An entry is
// deleted only when all three hold: older than MaxAge, importance below
// MinImportance, and accessed fewer than MinAccessCount times.
type RetentionPolicy struct {
	// MaxAge is the minimum age before an entry becomes a deletion candidate.
	MaxAge time.Duration
	// MinImportance protects entries at or above this importance score.
	MinImportance float64
	// MinAccessCount protects entries accessed at least this many times.
	MinAccessCount int
}

// DefaultRetentionPolicy keeps everything younger than 30 days, any entry
// with importance >= 0.3, and any entry accessed 3+ times.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		MaxAge:         30 * 24 * time.Hour,
		MinImportance:  0.3,
		MinAccessCount: 3,
	}
}

// ShouldDelete reports whether the entry meets the deletion conjunction at
// the given instant.
func (p RetentionPolicy) ShouldDelete(e *core.MemoryEntry, now time.Time) bool {
	if now.Sub(e.CreatedAt) < p.MaxAge {
		return false
	}
	if e.ImportanceScore >= p.MinImportance {
		return false
	}
	if e.AccessCount >= p.MinAccessCount {
		return false
	}
	return true
}

// SweeperOptions configure a Sweeper.
type SweeperOptions struct {
	Logger logging.Logger
}

// Sweeper applies a RetentionPolicy to a store. Sweeps are idempotent and
// safe to run alongside live conversations: conversations pinned by a
// running orchestration are skipped wholesale until unpinned.
type Sweeper struct {
	store  core.MemoryStore
	policy RetentionPolicy
	logger logging.Logger

	mu     sync.Mutex
	pinned map[string]int // conversationID -> pin count
}

// NewSweeper creates a sweeper over the store with the given policy.
func NewSweeper(store core.MemoryStore, policy RetentionPolicy, optFns ...func(o *SweeperOptions)) *Sweeper {
	opts := SweeperOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Sweeper{
		store:  store,
		policy: policy,
		logger: logging.OrNoop(opts.Logger),
		pinned: make(map[string]int),
	}
}

// Pin marks a conversation as in use; its entries survive sweeps until the
// matching Unpin. Pins nest.
func (s *Sweeper) Pin(conversationID string) {
	if conversationID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned[conversationID]++
}

// Unpin releases one pin on the conversation.
func (s *Sweeper) Unpin(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinned[conversationID] <= 1 {
		delete(s.pinned, conversationID)
		return
	}
	s.pinned[conversationID]--
}

func (s *Sweeper) isPinned(conversationID string) bool {
	if conversationID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned[conversationID] > 0
}

// Sweep deletes the user's aged-out entries and returns how many were
// removed. Running it again immediately removes nothing further.
func (s *Sweeper) Sweep(ctx context.Context, userID string) (int, error) {
	entries, err := s.store.Search(ctx, core.MemoryQuery{UserID: userID})
	if err != nil {
		return 0, fmt.Errorf("retention sweep: list entries: %w", err)
	}

	now := time.Now()
	deleted := 0
	for _, entry := range entries {
		if !s.policy.ShouldDelete(entry, now) {
			continue
		}
		if s.isPinned(entry.ConversationID) {
			continue
		}
		if err := s.store.Delete(ctx, userID, entry.ID); err != nil {
			// A concurrent sweep may have removed it already.
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			return deleted, fmt.Errorf("retention sweep: delete %s: %w", entry.ID, err)
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info("retention.sweep", "user_id", userID, "scanned", len(entries), "deleted", deleted)
	}
	return deleted, nil
}
