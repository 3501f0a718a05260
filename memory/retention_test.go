package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/convergio-go/core"
)

func TestRetentionPolicyConjunction(t *testing.T) {
	policy := DefaultRetentionPolicy()
	now := time.Now()
	old := now.Add(-31 * 24 * time.Hour)
	fresh := now.Add(-time.Hour)

	tests := []struct {
		name       string
		createdAt  time.Time
		importance float64
		access     int
		want       bool
	}{
		{"old, unimportant, unread", old, 0.1, 0, true},
		{"fresh entries survive", fresh, 0.1, 0, false},
		{"importance protects", old, 0.5, 0, false},
		{"access protects", old, 0.1, 3, false},
		{"boundary importance protects", old, 0.3, 0, false},
		{"just below protections", old, 0.29, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := newEntry("m1", "user-1", func(e *core.MemoryEntry) {
				e.CreatedAt = tt.createdAt
				e.LastAccessed = tt.createdAt
				e.ImportanceScore = tt.importance
				e.AccessCount = tt.access
			})
			assert.Equal(t, tt.want, policy.ShouldDelete(entry, now))
		})
	}
}

func TestSweeperDeletesAgedOutEntries(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	aged := newEntry("aged", "user-1", func(e *core.MemoryEntry) {
		e.CreatedAt = time.Now().Add(-40 * 24 * time.Hour)
		e.LastAccessed = e.CreatedAt
		e.ImportanceScore = 0.1
	})
	kept := newEntry("kept", "user-1", func(e *core.MemoryEntry) {
		e.CreatedAt = time.Now().Add(-40 * 24 * time.Hour)
		e.LastAccessed = e.CreatedAt
		e.ImportanceScore = 0.9
	})
	require.NoError(t, store.Save(ctx, aged))
	require.NoError(t, store.Save(ctx, kept))

	sweeper := NewSweeper(store, DefaultRetentionPolicy())

	deleted, err := sweeper.Sweep(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.Get(ctx, "user-1", "aged")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.Get(ctx, "user-1", "kept")
	assert.NoError(t, err)
}

func TestSweeperIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newEntry("aged", "user-1", func(e *core.MemoryEntry) {
		e.CreatedAt = time.Now().Add(-40 * 24 * time.Hour)
		e.LastAccessed = e.CreatedAt
		e.ImportanceScore = 0.1
	})))

	sweeper := NewSweeper(store, DefaultRetentionPolicy())

	first, err := sweeper.Sweep(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := sweeper.Sweep(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, second)
}

func TestSweeperSkipsPinnedConversations(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newEntry("aged", "user-1", func(e *core.MemoryEntry) {
		e.CreatedAt = time.Now().Add(-40 * 24 * time.Hour)
		e.LastAccessed = e.CreatedAt
		e.ImportanceScore = 0.1
		e.ConversationID = "live-conv"
	})))

	sweeper := NewSweeper(store, DefaultRetentionPolicy())
	sweeper.Pin("live-conv")

	deleted, err := sweeper.Sweep(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, deleted)

	sweeper.Unpin("live-conv")

	deleted, err = sweeper.Sweep(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestNewEntryIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id := NewEntryID()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestIDGeneratorRejectsBadNode(t *testing.T) {
	_, err := NewIDGenerator(-1)
	assert.Error(t, err)
}
