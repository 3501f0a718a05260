package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/convergio-go/agent"
	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/memory"
)

// failingStore errors on every operation, simulating a dead backend.
type failingStore struct{}

func (failingStore) Save(context.Context, *core.MemoryEntry) error { return errors.New("store offline") }
func (failingStore) Get(context.Context, string, string) (*core.MemoryEntry, error) {
	return nil, errors.New("store offline")
}
func (failingStore) Search(context.Context, core.MemoryQuery) ([]*core.MemoryEntry, error) {
	return nil, errors.New("store offline")
}
func (failingStore) Touch(context.Context, string, []string, time.Time) error {
	return errors.New("store offline")
}
func (failingStore) Delete(context.Context, string, string) error { return errors.New("store offline") }
func (failingStore) Close() error                                 { return nil }

func TestInjectorAddsContextSections(t *testing.T) {
	store := memory.NewInMemoryStore()
	seedMemory(t, store, nil, "m1", "budget forecast shows 14 months of runway", core.MemoryTypeKnowledge, 0.9, 0)

	inj := NewInjector(NewProcessor(store, nil), agent.DefaultProfiles())

	req := TurnRequest{
		ConversationID: "conv-1",
		UserID:         "roberdan",
		AgentKey:       agent.KeyCFO,
		AgentTier:      core.TierOperational,
		TurnNumber:     1,
		Message:        "what is the budget forecast?",
	}

	out := inj.Inject(context.Background(), req)

	assert.True(t, strings.HasPrefix(out, req.Message))
	assert.Contains(t, out, "Relevant Context:")
	assert.Contains(t, out, "budget forecast shows 14 months of runway")
	assert.Contains(t, out, "Considerations:")
	assert.Contains(t, out, "- costs")
	assert.Contains(t, out, "- ROI")
	assert.Contains(t, out, "Focus Area: financial implications")

	// first turn has nothing to recall yet
	assert.NotContains(t, out, "Previous Discussion Points:")
	assert.NotContains(t, out, "Turn Notes:")
}

func TestInjectorFailSafeReturnsOriginalMessage(t *testing.T) {
	inj := NewInjector(NewProcessor(failingStore{}, nil), agent.DefaultProfiles())

	msg := "Approve the Q3 budget?  \n (exact bytes matter here)"
	out := inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-1",
		UserID:         "roberdan",
		AgentKey:       agent.KeyCFO,
		TurnNumber:     2,
		Message:        msg,
	})

	assert.Equal(t, msg, out)
}

func TestInjectorDisabled(t *testing.T) {
	store := memory.NewInMemoryStore()
	seedMemory(t, store, nil, "m1", "budget forecast shows 14 months of runway", core.MemoryTypeKnowledge, 0.9, 0)

	inj := NewInjector(NewProcessor(store, nil), agent.DefaultProfiles(), func(o *InjectorOptions) {
		o.Disabled = true
	})

	msg := "what is the budget forecast?"
	out := inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-1",
		UserID:         "roberdan",
		AgentKey:       agent.KeyCFO,
		TurnNumber:     1,
		Message:        msg,
	})

	assert.Equal(t, msg, out)
}

func TestInjectorUnknownAgentWithNothingToAdd(t *testing.T) {
	inj := NewInjector(NewProcessor(memory.NewInMemoryStore(), nil), agent.DefaultProfiles())

	msg := "hello there"
	out := inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-1",
		UserID:         "roberdan",
		AgentKey:       "some-custom-agent",
		TurnNumber:     1,
		Message:        msg,
	})

	// no context, no profile, no insights: the message passes through
	assert.Equal(t, msg, out)
}

func TestInjectorCachesEnhancedMessage(t *testing.T) {
	rec := &recordingStore{InMemoryStore: memory.NewInMemoryStore()}
	seedMemory(t, rec.InMemoryStore, nil, "m1", "budget forecast shows 14 months of runway", core.MemoryTypeKnowledge, 0.9, 0)

	inj := NewInjector(NewProcessor(rec, nil), agent.DefaultProfiles())

	req := TurnRequest{
		ConversationID: "conv-1",
		UserID:         "roberdan",
		AgentKey:       agent.KeyCFO,
		TurnNumber:     1,
		Message:        "what is the budget forecast?",
	}

	first := inj.Inject(context.Background(), req)
	searches := len(rec.queries)

	second := inj.Inject(context.Background(), req)

	assert.Equal(t, first, second)
	assert.Equal(t, searches, len(rec.queries), "cache hit must skip retrieval")
}

func TestInjectorConflictAlert(t *testing.T) {
	inj := NewInjector(NewProcessor(memory.NewInMemoryStore(), nil), agent.DefaultProfiles())

	out := inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-1",
		UserID:         "roberdan",
		AgentKey:       "some-custom-agent",
		TurnNumber:     3,
		Message:        "where do we stand?",
		History: []string{
			"the plan was approved",
			"actually it is not approved",
		},
	})

	assert.Contains(t, out, "Detected 1 potential conflicts across recent turns")
	assert.Contains(t, out, "This is turn 3")
}

func TestInjectorLateTurnsFavorRecency(t *testing.T) {
	store := memory.NewInMemoryStore()

	// Old but exactly on-topic versus fresh but off-topic.
	oldContent := "numbers review budget runway"
	newContent := "completely different subject matter entirely"
	seedMemory(t, store, nil, "old", oldContent, core.MemoryTypeKnowledge, 0.75, 96*time.Hour)
	seedMemory(t, store, nil, "new", newContent, core.MemoryTypeKnowledge, 0.5, 0)

	inj := NewInjector(NewProcessor(store, nil), agent.DefaultProfiles())
	msg := "budget runway review numbers"

	early := inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-early",
		UserID:         "roberdan",
		AgentKey:       "some-custom-agent",
		TurnNumber:     2,
		Message:        msg,
	})
	require.Greater(t, strings.Index(early, oldContent), -1)
	require.Greater(t, strings.Index(early, newContent), -1)
	assert.Less(t, strings.Index(early, oldContent), strings.Index(early, newContent),
		"relevance should lead on early turns")

	late := inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-late",
		UserID:         "roberdan",
		AgentKey:       "some-custom-agent",
		TurnNumber:     5,
		Message:        msg,
	})
	require.Greater(t, strings.Index(late, oldContent), -1)
	require.Greater(t, strings.Index(late, newContent), -1)
	assert.Less(t, strings.Index(late, newContent), strings.Index(late, oldContent),
		"recency should lead on late turns")
}

func TestInjectorDiscussionPointsAndTurnNotes(t *testing.T) {
	store := memory.NewInMemoryStore()
	seedMemory(t, store, nil, "k1", "funding round closes in june", core.MemoryTypeKnowledge, 0.95, 0)
	seedMemory(t, store, nil, "k2", "infra costs doubled since april", core.MemoryTypeKnowledge, 0.9, 0)
	seedMemory(t, store, nil, "c1", "we agreed to ship beta in may", core.MemoryTypeConversation, 0.85, 0)
	seedMemory(t, store, nil, "c2", "marketing asked for updated collateral", core.MemoryTypeConversation, 0.8, 0)
	seedMemory(t, store, nil, "c3", "support backlog is shrinking steadily", core.MemoryTypeConversation, 0.75, 0)

	inj := NewInjector(NewProcessor(store, nil), agent.DefaultProfiles())

	inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-9",
		UserID:         "roberdan",
		AgentKey:       "some-custom-agent",
		TurnNumber:     1,
		Message:        "kick off planning",
	})

	out := inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-9",
		UserID:         "roberdan",
		AgentKey:       "some-custom-agent",
		TurnNumber:     2,
		Message:        "continue with the open items",
	})

	// ranked by importance: k1, k2, c1 are the headline facts
	assert.Contains(t, out, "Relevant Context:")
	assert.Contains(t, out, "funding round closes in june")
	assert.Contains(t, out, "we agreed to ship beta in may")

	// conversation memories beyond the facts become discussion points
	assert.Contains(t, out, "Previous Discussion Points:")
	assert.Contains(t, out, "marketing asked for updated collateral")
	assert.Contains(t, out, "support backlog is shrinking steadily")

	assert.Contains(t, out, "Turn Notes:")
	assert.Contains(t, out, "turn 1: kick off planning")

	iRC := strings.Index(out, "Relevant Context:")
	iPD := strings.Index(out, "Previous Discussion Points:")
	iTN := strings.Index(out, "Turn Notes:")
	iC := strings.Index(out, "Considerations:")
	assert.True(t, iRC > 0 && iPD > iRC && iTN > iPD && iC > iTN,
		"sections out of order: %d %d %d %d", iRC, iPD, iTN, iC)
}

func TestInjectorEndConversationDropsNotes(t *testing.T) {
	inj := NewInjector(NewProcessor(memory.NewInMemoryStore(), nil), agent.DefaultProfiles())

	inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-2",
		UserID:         "roberdan",
		AgentKey:       "some-custom-agent",
		TurnNumber:     1,
		Message:        "first turn opening",
	})

	inj.EndConversation("conv-2")

	out := inj.Inject(context.Background(), TurnRequest{
		ConversationID: "conv-2",
		UserID:         "roberdan",
		AgentKey:       "some-custom-agent",
		TurnNumber:     2,
		Message:        "second turn message",
	})

	assert.NotContains(t, out, "Turn Notes:")
}
