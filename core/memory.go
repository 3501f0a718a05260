package core

import (
	"fmt"
	"time"
)

// MemoryType classifies a memory entry for retrieval filtering.
type MemoryType string

// Memory types recognized by the retrieval pipeline.
const (
	MemoryTypeConversation  MemoryType = "conversation"
	MemoryTypeContext       MemoryType = "context"
	MemoryTypeKnowledge     MemoryType = "knowledge"
	MemoryTypeRelationships MemoryType = "relationships"
	MemoryTypePreferences   MemoryType = "preferences"
)

// MemoryEntry is a unit of retrievable context persisted in a MemoryStore.
// Embedding is optional; entries without one are scored by token overlap.
type MemoryEntry struct {
	ID              string            `json:"id"`
	Type            MemoryType        `json:"memory_type"`
	Content         string            `json:"content"`
	AgentID         string            `json:"agent_id"`
	UserID          string            `json:"user_id"`
	ConversationID  string            `json:"conversation_id,omitempty"`
	Embedding       []float64         `json:"embedding,omitempty"`
	ImportanceScore float64           `json:"importance_score"`
	AccessCount     int               `json:"access_count"`
	CreatedAt       time.Time         `json:"created_at"`
	LastAccessed    time.Time         `json:"last_accessed"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Validate checks the entry invariants: importance in [0,1] and
// last_accessed never before created_at.
func (e *MemoryEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("memory entry: missing id")
	}
	if e.UserID == "" {
		return fmt.Errorf("memory entry %s: missing user id", e.ID)
	}
	if e.ImportanceScore < 0 || e.ImportanceScore > 1 {
		return fmt.Errorf("memory entry %s: importance score %v outside [0,1]", e.ID, e.ImportanceScore)
	}
	if !e.LastAccessed.IsZero() && e.LastAccessed.Before(e.CreatedAt) {
		return fmt.Errorf("memory entry %s: last accessed before creation", e.ID)
	}
	return nil
}

// Clone returns a deep copy so stores can hand out entries safely.
func (e *MemoryEntry) Clone() *MemoryEntry {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Embedding = append([]float64(nil), e.Embedding...)
	if e.Metadata != nil {
		cp.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
