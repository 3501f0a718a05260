package core

import "time"

// Turn is one contribution within a bounded conversation run: the turn
// number, the key of the agent that produced it, and its content.
type Turn struct {
	Number    int       `json:"number"`
	AgentKey  string    `json:"agent_key"`
	Content   Content   `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is the ordered sequence of turns accumulated by a run. Turn
// order is preserved; the turn count is always len(transcript).
type Transcript []Turn

// Last returns the most recent turn, or false when the transcript is empty.
func (t Transcript) Last() (Turn, bool) {
	if len(t) == 0 {
		return Turn{}, false
	}
	return t[len(t)-1], true
}

// Agents returns the unique agent keys that produced at least one turn,
// in first-seen order.
func (t Transcript) Agents() []string {
	seen := make(map[string]struct{}, len(t))
	var keys []string
	for _, turn := range t {
		if _, ok := seen[turn.AgentKey]; ok {
			continue
		}
		seen[turn.AgentKey] = struct{}{}
		keys = append(keys, turn.AgentKey)
	}
	return keys
}

// CostBreakdown summarizes the token volume and estimated spend of a run.
// Currency is always "USD".
type CostBreakdown struct {
	Tokens   int     `json:"tokens"`
	CostUSD  float64 `json:"cost_usd"`
	Currency string  `json:"currency"`
}

// ConversationRecord is the persisted state of one conversation: transcript,
// participants and accumulated cost.
type ConversationRecord struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Transcript Transcript        `json:"transcript"`
	AgentsUsed []string          `json:"agents_used"`
	Cost       CostBreakdown     `json:"cost"`
	State      string            `json:"state,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy so callers can mutate without affecting stores.
func (r *ConversationRecord) Clone() *ConversationRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Transcript = make(Transcript, len(r.Transcript))
	copy(cp.Transcript, r.Transcript)
	cp.AgentsUsed = append([]string(nil), r.AgentsUsed...)
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
