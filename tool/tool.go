// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (web search, memory search, business data
// lookups) with schema validated arguments and consistent error handling.
//
// Tool results always flow back into the conversation transcript as text:
// the Executor converts unknown tool names and execution failures into
// descriptive messages instead of errors, so a single bad call never aborts
// a conversation run.
package tool

import (
	"context"
	"fmt"

	"github.com/convergio/convergio-go/internal/util"
	"github.com/convergio/convergio-go/logging"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tools are registered with an Executor and invoked by name when a model
// response contains structured tool calls. Implementations should:
//   - Provide clear, descriptive names (snake_case) and descriptions
//   - Define a JSON schema for parameters
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool
	// does. It is provided to the model to help it decide when to call.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	// The schema is used for validation and for model function declarations.
	Parameters() map[string]any

	// Call executes the tool with already-decoded arguments. The Context
	// identifies the conversation, user, agent, and call, and carries the
	// run's logger and cancellation.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// CallInfo identifies a single tool invocation within a conversation run.
type CallInfo struct {
	ConversationID string
	UserID         string
	AgentKey       string
	CallID         string
}

// Context carries per-call metadata into a tool invocation. It is created
// by the executor (or directly by tests) for each call and must not be
// retained past the call.
type Context struct {
	ctx    context.Context
	info   CallInfo
	logger logging.Logger
}

// NewContext builds a tool call context. A nil ctx defaults to
// context.Background and a nil logger to the no-op logger.
func NewContext(ctx context.Context, info CallInfo, logger logging.Logger) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{ctx: ctx, info: info, logger: logging.OrNoop(logger)}
}

// Context returns the run's context for cancellation and deadlines.
func (tc *Context) Context() context.Context { return tc.ctx }

// ConversationID returns the owning conversation identifier.
func (tc *Context) ConversationID() string { return tc.info.ConversationID }

// UserID returns the requesting user identifier.
func (tc *Context) UserID() string { return tc.info.UserID }

// AgentKey returns the key of the agent that issued the call.
func (tc *Context) AgentKey() string { return tc.info.AgentKey }

// CallID returns the model-assigned tool call identifier, correlating the
// model request with the tool execution.
func (tc *Context) CallID() string { return tc.info.CallID }

// Logger returns the logger for this call, never nil.
func (tc *Context) Logger() logging.Logger { return tc.logger }

// ValidationError represents parameter validation errors with detailed
// information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
