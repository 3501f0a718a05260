package rag

import (
	"math"
	"time"

	"github.com/convergio/convergio-go/core"
)

// Weights blend the three sub-scores into a composite. They are supplied
// per retrieval and never persisted alongside entries.
type Weights struct {
	Relevance  float64
	Importance float64
	Recency    float64
}

// DefaultWeights is the standard blend: importance leads, relevance and
// recency share the rest.
func DefaultWeights() Weights {
	return Weights{Relevance: 0.3, Importance: 0.4, Recency: 0.3}
}

// RelationshipWeights scores relationship and preference extras: what the
// agent knows about the user matters more than how well it matches the
// current query.
func RelationshipWeights() Weights {
	return Weights{Relevance: 0.2, Importance: 0.6, Recency: 0.2}
}

// LateTurnWeights favor recency once a dialogue is past its opening turns:
// what just happened outweighs what is generally relevant.
func LateTurnWeights() Weights {
	return Weights{Relevance: 0.2, Importance: 0.4, Recency: 0.4}
}

// Composite computes relevance*Wr + importance*Wi + recency*Wrec.
func (w Weights) Composite(relevance, importance, recency float64) float64 {
	return relevance*w.Relevance + importance*w.Importance + recency*w.Recency
}

// Context is one scored retrieval candidate. Scores live in [0,1]; the
// composite is recomputed on every retrieval with that call's weights.
type Context struct {
	ID              string          `json:"id"`
	Content         string          `json:"content"`
	RelevanceScore  float64         `json:"relevance_score"`
	ImportanceScore float64         `json:"importance_score"`
	RecencyScore    float64         `json:"recency_score"`
	CompositeScore  float64         `json:"composite_score"`
	SourceAgent     string          `json:"source_agent"`
	MemoryType      core.MemoryType `json:"memory_type"`
	ConversationID  string          `json:"conversation_id,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// RecencyScore is the exponential age decay exp(-ageHours/24): a memory
// from right now scores ~1.0, a day-old one ~0.37, a week-old one ~0.001.
func RecencyScore(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		age = 0
	}
	return math.Exp(-age / 24)
}
