package testutil

import (
	"time"

	"github.com/convergio/convergio-go/core"
)

// RecordBuilder helps construct conversation records with fluent chaining
// for tests. Example:
//
//	rec := NewRecordBuilder("conv-1").User("user-1").Turns(t1, t2).Build()
type RecordBuilder struct {
	id         string
	userID     string
	transcript core.Transcript
	agents     []string
	cost       core.CostBreakdown
	state      string
	createdAt  time.Time
	metadata   map[string]string
}

// NewRecordBuilder creates a new builder for a conversation record with the
// given id. Use chainable methods (User, Turns, Cost) then call Build.
func NewRecordBuilder(id string) *RecordBuilder {
	return &RecordBuilder{id: id, cost: core.CostBreakdown{Currency: "USD"}}
}

// User sets the owning user id (chainable).
func (b *RecordBuilder) User(userID string) *RecordBuilder { b.userID = userID; return b }

// Turn appends a single turn to the transcript (chainable).
func (b *RecordBuilder) Turn(t core.Turn) *RecordBuilder {
	b.transcript = append(b.transcript, t)
	return b
}

// Turns appends multiple turns to the transcript (chainable).
func (b *RecordBuilder) Turns(ts ...core.Turn) *RecordBuilder {
	b.transcript = append(b.transcript, ts...)
	return b
}

// Agents sets the participating agent keys (chainable).
func (b *RecordBuilder) Agents(keys ...string) *RecordBuilder { b.agents = keys; return b }

// Cost sets the accumulated token volume and spend in USD (chainable).
func (b *RecordBuilder) Cost(tokens int, usd float64) *RecordBuilder {
	b.cost.Tokens = tokens
	b.cost.CostUSD = usd
	return b
}

// State sets the terminal run state recorded on the conversation (chainable).
func (b *RecordBuilder) State(s string) *RecordBuilder { b.state = s; return b }

// CreatedAt sets both creation and update timestamps (chainable).
func (b *RecordBuilder) CreatedAt(t time.Time) *RecordBuilder { b.createdAt = t; return b }

// Meta sets or overwrites a metadata key/value pair (chainable).
func (b *RecordBuilder) Meta(key, val string) *RecordBuilder {
	if b.metadata == nil {
		b.metadata = map[string]string{}
	}
	b.metadata[key] = val
	return b
}

// Build returns a *core.ConversationRecord with pre-populated fields.
func (b *RecordBuilder) Build() *core.ConversationRecord {
	created := b.createdAt
	if created.IsZero() {
		created = time.Now()
	}

	return &core.ConversationRecord{
		ID:         b.id,
		UserID:     b.userID,
		Transcript: append(core.Transcript{}, b.transcript...),
		AgentsUsed: append([]string(nil), b.agents...),
		Cost:       b.cost,
		State:      b.state,
		CreatedAt:  created,
		UpdatedAt:  created,
		Metadata:   b.metadata,
	}
}
