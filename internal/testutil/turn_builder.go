package testutil

import (
	"time"

	"github.com/convergio/convergio-go/core"
)

// TurnBuilder provides a fluent helper for constructing transcript turns in
// tests. Example:
//
//	turn := NewTurnBuilder().Number(1).Agent("amy-cfo").AgentText("done").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type TurnBuilder struct {
	number    int
	agentKey  string
	role      string
	text      string
	toolCalls []core.ToolCall
	result    *core.ToolCall
	timestamp time.Time
}

// NewTurnBuilder creates a builder producing a user turn by default.
func NewTurnBuilder() *TurnBuilder { return &TurnBuilder{role: core.RoleUser} }

// Number sets the turn number (chainable).
func (b *TurnBuilder) Number(n int) *TurnBuilder { b.number = n; return b }

// Agent sets the agent key attributed to the turn (chainable).
func (b *TurnBuilder) Agent(key string) *TurnBuilder { b.agentKey = key; return b }

// At overrides the turn timestamp (chainable).
func (b *TurnBuilder) At(ts time.Time) *TurnBuilder { b.timestamp = ts; return b }

// UserText sets user-role text content (chainable).
func (b *TurnBuilder) UserText(t string) *TurnBuilder {
	b.role = core.RoleUser
	b.text = t
	return b
}

// AgentText sets assistant-role text content (chainable). Combined with
// ToolCall it marks the calls as resolved.
func (b *TurnBuilder) AgentText(t string) *TurnBuilder {
	b.role = core.RoleAssistant
	b.text = t
	return b
}

// SystemText sets system-role text content (chainable).
func (b *TurnBuilder) SystemText(t string) *TurnBuilder {
	b.role = core.RoleSystem
	b.text = t
	return b
}

// ToolCall adds a tool call with the given id, name and JSON argument string
// (chainable). Without a matching AgentText the call stays unresolved.
func (b *TurnBuilder) ToolCall(id, name, args string) *TurnBuilder {
	b.role = core.RoleAssistant
	b.toolCalls = append(b.toolCalls, core.ToolCall{ID: id, Name: name, Arguments: args})
	return b
}

// ToolResult turns the content into a tool-role result paired with the given
// call id (chainable).
func (b *TurnBuilder) ToolResult(callID, text string) *TurnBuilder {
	b.role = core.RoleTool
	b.result = &core.ToolCall{ID: callID}
	b.text = text
	return b
}

// Build constructs the core.Turn value.
func (b *TurnBuilder) Build() core.Turn {
	var content core.Content
	switch {
	case b.result != nil:
		content = core.NewToolResultContent(b.result.ID, b.text)
	case len(b.toolCalls) > 0:
		content = core.NewToolCallContent(b.toolCalls...)
		content.Text = b.text
	case b.role == core.RoleSystem:
		content = core.NewSystemContent(b.text)
	case b.role == core.RoleAssistant:
		content = core.NewAgentContent(b.text)
	default:
		content = core.NewUserContent(b.text)
	}

	key := b.agentKey
	if key == "" {
		switch b.role {
		case core.RoleSystem:
			key = core.RoleSystem
		case core.RoleAssistant, core.RoleTool:
			key = "agent"
		default:
			key = core.RoleUser
		}
	}

	ts := b.timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return core.Turn{Number: b.number, AgentKey: key, Content: content, Timestamp: ts}
}
