package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHelpers(t *testing.T) {
	t.Run("user content", func(t *testing.T) {
		c := NewUserContent("hello")
		assert.Equal(t, RoleUser, c.Role)
		assert.Equal(t, "hello", c.Text)
		assert.False(t, c.HasToolCalls())
		assert.True(t, c.IsResolved())
	})

	t.Run("tool call content is unresolved", func(t *testing.T) {
		c := NewToolCallContent(ToolCall{ID: "1", Name: "web_search", Arguments: `{"query":"x"}`})
		assert.True(t, c.HasToolCalls())
		assert.False(t, c.IsResolved())
	})

	t.Run("text alongside calls is resolved", func(t *testing.T) {
		c := Content{Role: RoleAssistant, Text: "done", ToolCalls: []ToolCall{{Name: "web_search"}}}
		assert.True(t, c.HasToolCalls())
		assert.True(t, c.IsResolved())
	})
}

func TestTranscriptAgents(t *testing.T) {
	tr := Transcript{
		{Number: 1, AgentKey: "user", Content: NewUserContent("q")},
		{Number: 2, AgentKey: "amy", Content: NewAgentContent("a")},
		{Number: 3, AgentKey: "ali", Content: NewAgentContent("b")},
		{Number: 4, AgentKey: "amy", Content: NewAgentContent("c")},
	}

	assert.Equal(t, []string{"user", "amy", "ali"}, tr.Agents())

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, 4, last.Number)

	_, ok = Transcript{}.Last()
	assert.False(t, ok)
}

func TestMemoryEntryValidate(t *testing.T) {
	now := time.Now()

	entry := &MemoryEntry{
		ID:              "m1",
		Type:            MemoryTypeKnowledge,
		Content:         "the fiscal year ends in june",
		UserID:          "u1",
		ImportanceScore: 0.8,
		CreatedAt:       now,
		LastAccessed:    now,
	}
	assert.NoError(t, entry.Validate())

	t.Run("importance out of range", func(t *testing.T) {
		bad := entry.Clone()
		bad.ImportanceScore = 1.2
		assert.Error(t, bad.Validate())
	})

	t.Run("accessed before created", func(t *testing.T) {
		bad := entry.Clone()
		bad.LastAccessed = now.Add(-time.Hour)
		assert.Error(t, bad.Validate())
	})

	t.Run("missing id", func(t *testing.T) {
		bad := entry.Clone()
		bad.ID = ""
		assert.Error(t, bad.Validate())
	})
}

func TestMemoryEntryClone(t *testing.T) {
	entry := &MemoryEntry{
		ID:        "m1",
		UserID:    "u1",
		Embedding: []float64{0.1, 0.2},
		Metadata:  map[string]string{"source": "turn"},
	}

	cp := entry.Clone()
	cp.Embedding[0] = 0.9
	cp.Metadata["source"] = "other"

	assert.Equal(t, 0.1, entry.Embedding[0])
	assert.Equal(t, "turn", entry.Metadata["source"])
}

func TestMemoryQueryMatches(t *testing.T) {
	entry := &MemoryEntry{
		ID:             "m1",
		Type:           MemoryTypeConversation,
		UserID:         "u1",
		AgentID:        "amy",
		ConversationID: "c1",
	}

	assert.True(t, MemoryQuery{}.Matches(entry))
	assert.True(t, MemoryQuery{UserID: "u1", AgentID: "amy"}.Matches(entry))
	assert.True(t, MemoryQuery{Types: []MemoryType{MemoryTypeConversation, MemoryTypeContext}}.Matches(entry))
	assert.False(t, MemoryQuery{UserID: "u2"}.Matches(entry))
	assert.False(t, MemoryQuery{Types: []MemoryType{MemoryTypeKnowledge}}.Matches(entry))
}

func TestCallLimiter(t *testing.T) {
	l := NewCallLimiter(2)

	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 0, l.Remaining())

	err := l.Increment()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallLimitExceeded)

	unlimited := NewCallLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, unlimited.Increment())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}

func TestConversationRecordClone(t *testing.T) {
	rec := &ConversationRecord{
		ID:         "c1",
		UserID:     "u1",
		Transcript: Transcript{{Number: 1, AgentKey: "amy", Content: NewAgentContent("hi")}},
		AgentsUsed: []string{"amy"},
		Metadata:   map[string]string{"k": "v"},
	}

	cp := rec.Clone()
	cp.Transcript[0].AgentKey = "ali"
	cp.AgentsUsed[0] = "ali"
	cp.Metadata["k"] = "w"

	assert.Equal(t, "amy", rec.Transcript[0].AgentKey)
	assert.Equal(t, "amy", rec.AgentsUsed[0])
	assert.Equal(t, "v", rec.Metadata["k"])
}
