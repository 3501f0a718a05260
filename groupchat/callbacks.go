package groupchat

import (
	"context"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/logging"
)

// Hook identifies a lifecycle point within a conversation run where
// callbacks can observe or veto execution.
type Hook string

const (
	// HookBeforeTurn fires before a turn's context injection and model call.
	HookBeforeTurn Hook = "before_turn"

	// HookAfterTurn fires after a turn was appended to the transcript.
	HookAfterTurn Hook = "after_turn"

	// HookBeforeModel fires before each model completion.
	HookBeforeModel Hook = "before_model"

	// HookAfterModel fires after a completion produced its final content.
	HookAfterModel Hook = "after_model"

	// HookBeforeTool fires before each tool call executes.
	HookBeforeTool Hook = "before_tool"

	// HookAfterTool fires after a tool call produced its result text.
	HookAfterTool Hook = "after_tool"

	// HookOnError fires when an execution path fails. Observational only:
	// errors returned from it are logged, never propagated.
	HookOnError Hook = "on_error"
)

// HookContext carries the state visible to a callback at one lifecycle
// point. Beyond the identifying fields, population depends on the hook:
// Content after model calls, Turn after turns, ToolCall and ToolResult
// around tool execution, Err on failures.
type HookContext struct {
	ConversationID string
	UserID         string
	AgentKey       string
	TurnNumber     int
	Hook           Hook

	Content    *core.Content
	Turn       *core.Turn
	ToolCall   *core.ToolCall
	ToolResult string
	Err        error
}

// Callback observes or vetoes one lifecycle hook. Implementations should be
// fast (they run synchronously inside the turn loop) and safe for concurrent
// runs. A non-nil error from a Before* hook fails the surrounding operation,
// which then follows the runner's normal failure semantics.
type Callback interface {
	// Hook returns the lifecycle point this callback handles.
	Hook() Hook

	// Handle executes the callback.
	Handle(ctx context.Context, hc *HookContext) error
}

// HookFunc wraps a plain function as a Callback.
type HookFunc struct {
	hook Hook
	fn   func(ctx context.Context, hc *HookContext) error
}

// NewHookFunc creates a function-backed callback for the given hook.
func NewHookFunc(hook Hook, fn func(ctx context.Context, hc *HookContext) error) *HookFunc {
	return &HookFunc{hook: hook, fn: fn}
}

// Hook implements Callback.
func (h *HookFunc) Hook() Hook { return h.hook }

// Handle implements Callback.
func (h *HookFunc) Handle(ctx context.Context, hc *HookContext) error {
	return h.fn(ctx, hc)
}

// LoggingHook logs every firing of one hook through a structured logger.
// Useful as a drop-in audit trail during development.
type LoggingHook struct {
	hook   Hook
	logger logging.Logger
}

// NewLoggingHook creates a logging callback for the given hook.
func NewLoggingHook(hook Hook, logger logging.Logger) *LoggingHook {
	return &LoggingHook{hook: hook, logger: logging.OrNoop(logger)}
}

// Hook implements Callback.
func (h *LoggingHook) Hook() Hook { return h.hook }

// Handle implements Callback.
func (h *LoggingHook) Handle(_ context.Context, hc *HookContext) error {
	h.logger.Debug("groupchat.hook",
		"hook", string(hc.Hook),
		"conversation_id", hc.ConversationID,
		"agent", hc.AgentKey,
		"turn", hc.TurnNumber,
	)
	return nil
}

// Callbacks routes lifecycle hooks to registered callbacks. Register
// everything before the first run; execution is then safe for concurrent
// runs.
type Callbacks struct {
	callbacks map[Hook][]Callback
}

// NewCallbacks creates a registry seeded with the given callbacks.
func NewCallbacks(cbs ...Callback) *Callbacks {
	c := &Callbacks{callbacks: make(map[Hook][]Callback)}
	c.Register(cbs...)
	return c
}

// Register adds callbacks, each under the hook it reports.
func (c *Callbacks) Register(cbs ...Callback) {
	for _, cb := range cbs {
		c.callbacks[cb.Hook()] = append(c.callbacks[cb.Hook()], cb)
	}
}

// Fire executes the callbacks registered for hook in registration order.
// The first error stops the chain and is returned to the caller.
func (c *Callbacks) Fire(ctx context.Context, hook Hook, hc *HookContext) error {
	for _, cb := range c.callbacks[hook] {
		if err := cb.Handle(ctx, hc); err != nil {
			return err
		}
	}
	return nil
}
