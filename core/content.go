package core

// Standard roles used in conversation contents.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a structured function invocation requested by a model.
// Arguments holds the raw JSON string exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Content is a single message in a conversation. It carries plain text,
// one or more tool calls awaiting execution, or both (when a model emits
// text alongside calls). Tool-role contents set ToolCallID to pair the
// result with the call that produced it.
type Content struct {
	Role       string     `json:"role"`
	Text       string     `json:"text,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewSystemContent creates system-role content.
func NewSystemContent(text string) Content {
	return Content{Role: RoleSystem, Text: text}
}

// NewUserContent creates user-role content.
func NewUserContent(text string) Content {
	return Content{Role: RoleUser, Text: text}
}

// NewAgentContent creates assistant-role content attributed to an agent.
func NewAgentContent(text string) Content {
	return Content{Role: RoleAssistant, Text: text}
}

// NewToolResultContent creates tool-role content carrying the execution
// result for the identified call.
func NewToolResultContent(callID, text string) Content {
	return Content{Role: RoleTool, Text: text, ToolCallID: callID}
}

// NewToolCallContent creates assistant-role content carrying tool calls.
func NewToolCallContent(calls ...ToolCall) Content {
	return Content{Role: RoleAssistant, ToolCalls: calls}
}

// HasToolCalls reports whether the content carries at least one tool call.
func (c Content) HasToolCalls() bool {
	return len(c.ToolCalls) > 0
}

// IsResolved reports whether the content resolved to usable text. A tool-call
// payload that was never executed to a text result is unresolved.
func (c Content) IsResolved() bool {
	return c.Text != "" || len(c.ToolCalls) == 0
}
