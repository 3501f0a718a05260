package groupchat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/logging"
	"github.com/convergio/convergio-go/model"
	"github.com/convergio/convergio-go/rag"
	"github.com/convergio/convergio-go/tool"
)

// State identifies where a conversation run is in its lifecycle.
type State string

// Run states. Every run starts at StateInit and ends in exactly one of the
// terminal states.
const (
	StateInit                 State = "INIT"
	StateRunning              State = "RUNNING"
	StateTerminatedByMaxTurns State = "TERMINATED_BY_MAX_TURNS"
	StateTerminatedByMarker   State = "TERMINATED_BY_MARKER"
	StateTerminatedByTimeout  State = "TERMINATED_BY_TIMEOUT"
	StateFailed               State = "FAILED"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	switch s {
	case StateTerminatedByMaxTurns, StateTerminatedByMarker, StateTerminatedByTimeout, StateFailed:
		return true
	default:
		return false
	}
}

// Routing markers recorded in Result.RoutingDecisions, in the order the
// runner tried its execution paths.
const (
	// RouteDirectAgent marks the single-agent fast path.
	RouteDirectAgent = "direct-agent"

	// RouteDirectFallback marks a failed fast path escalating to a group run.
	RouteDirectFallback = "direct-agent+fallback"

	// RouteGroupChat marks the turn-bounded group execution.
	RouteGroupChat = "group-chat"
)

// Synthetic transcript identities: the seeded user entry and the apology
// entry produced when every execution path failed.
const (
	userAgentKey   = "user"
	systemAgentKey = "system"
)

const defaultMaxTurns = 10

// apologyText is returned instead of an error when the direct path and the
// group fallback both failed.
const apologyText = "I apologize, but I'm having trouble processing your request right now. Please try again in a moment."

// errNoCleanText signals that a direct run finished without usable agent
// text (tool calls only, or an empty completion) and the group fallback
// should take over.
var errNoCleanText = errors.New("no clean text response")

// Request describes one conversation run.
type Request struct {
	// ConversationID scopes caching, scratchpads and tool calls.
	ConversationID string

	// UserID identifies the requesting user for retrieval and tools.
	UserID string

	// Message is the user's message driving the run.
	Message string

	// Agents are the resolved participants in speaking order. Zero agents
	// fail the run immediately with core.ErrNoAgents.
	Agents []core.AgentMetadata

	// MaxTurns bounds the turn loop for this run. Zero uses the runner's
	// configured default.
	MaxTurns int
}

// Result is the outcome of a run. Runs that ended on the apology path still
// produce a Result: Run returns an error only for unstartable runs (no
// agents) and caller cancellation.
type Result struct {
	// Response is the text of the final resolved turn, or the apology.
	Response string

	// Transcript is the ordered exchange, seeded with the user's message
	// under the synthetic "user" identity at turn number zero.
	Transcript core.Transcript

	// AgentsUsed lists the agents that produced at least one turn, in
	// first-seen order, excluding the synthetic "user" entry.
	AgentsUsed []string

	// TurnCount is the number of executed agent turns.
	TurnCount int

	// State is the terminal state the run ended in.
	State State

	// RoutingDecisions records which execution paths ran, using the Route*
	// markers.
	RoutingDecisions []string
}

// EventType discriminates streamed run events.
type EventType string

const (
	// EventState announces a run state transition.
	EventState EventType = "state"

	// EventChunk carries one partial model output chunk.
	EventChunk EventType = "chunk"

	// EventTurn carries a completed transcript turn.
	EventTurn EventType = "turn"

	// EventResult carries the final Result; it is the last event emitted.
	EventResult EventType = "result"
)

// Event is one streamed observation of a running conversation.
type Event struct {
	Type     EventType
	AgentKey string
	Chunk    string
	Turn     *core.Turn
	State    State
	Result   *Result
}

// eventSink receives events during a run; nil disables streaming.
type eventSink func(Event)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// MaxTurns is the turn budget applied when a request does not set one.
	// Defaults to 10.
	MaxTurns int

	// Timeout is the hard wall-clock budget per run. On expiry the partial
	// transcript is returned, tagged TERMINATED_BY_TIMEOUT. Defaults to two
	// minutes; zero disables the deadline.
	Timeout time.Duration

	// TerminationMarkers end the run early when one appears in the latest
	// turn's content. Defaults to ["TERMINATE"].
	TerminationMarkers []string

	// MaxModelCalls caps model completions per run. Zero derives the cap
	// from the turn budget (2*maxTurns+1, enough for a direct attempt plus
	// a full fallback loop); negative disables the cap.
	MaxModelCalls int

	// Stream requests partial chunks from the model when an event sink is
	// attached. Defaults to true.
	Stream bool

	// EventBufferSize sets the Events channel buffer. Defaults to 100.
	EventBufferSize int

	// Injector augments each turn's message with retrieved context.
	// Optional; without it messages pass through unchanged.
	Injector *rag.Injector

	// Executor resolves tool calls. Optional; without it tool calls resolve
	// to "not supported" turn text.
	Executor *tool.Executor

	// Callbacks observe run lifecycle hooks. Optional.
	Callbacks *Callbacks

	// Logger receives run telemetry. Defaults to the no-op logger.
	Logger logging.Logger
}

// Runner drives bounded conversation runs against one model client. It owns
// turn sequencing, context injection, synchronous tool execution and
// termination; agents are metadata, not goroutines. Safe for concurrent
// use; every run is independent.
type Runner struct {
	model     model.Model
	injector  *rag.Injector
	executor  *tool.Executor
	callbacks *Callbacks
	options   RunnerOptions
	logger    logging.Logger
}

// NewRunner creates a Runner over the model client.
func NewRunner(m model.Model, optFns ...func(o *RunnerOptions)) *Runner {
	options := RunnerOptions{
		MaxTurns:           defaultMaxTurns,
		Timeout:            2 * time.Minute,
		TerminationMarkers: []string{"TERMINATE"},
		Stream:             true,
		EventBufferSize:    100,
	}

	for _, fn := range optFns {
		fn(&options)
	}

	return &Runner{
		model:     m,
		injector:  options.Injector,
		executor:  options.Executor,
		callbacks: options.Callbacks,
		options:   options,
		logger:    logging.OrNoop(options.Logger),
	}
}

// Run executes the conversation synchronously and returns its Result. The
// error is non-nil only when the run could not start (no agents) or the
// caller's context was canceled; execution failures surface as a FAILED
// result carrying an apology response instead.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	return r.run(ctx, req, nil)
}

// Events executes the conversation asynchronously, streaming state
// transitions, partial model chunks and completed turns. The events channel
// closes after the final EventResult; the error channel delivers at most
// one error. Callers must drain the events channel.
func (r *Runner) Events(ctx context.Context, req Request) (<-chan Event, <-chan error) {
	events := make(chan Event, r.options.EventBufferSize)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		res, err := r.run(ctx, req, func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		if err != nil {
			errs <- err
			return
		}

		select {
		case events <- Event{Type: EventResult, Result: res}:
		case <-ctx.Done():
		}
	}()

	return events, errs
}

func (r *Runner) run(ctx context.Context, req Request, sink eventSink) (*Result, error) {
	r.emit(sink, Event{Type: EventState, State: StateInit})

	if len(req.Agents) == 0 {
		return nil, fmt.Errorf("groupchat: resolve participants: %w", core.ErrNoAgents)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = r.options.MaxTurns
	}
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	runCtx := ctx
	if r.options.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.options.Timeout)
		defer cancel()
	}

	limiter := r.newLimiter(maxTurns)
	start := time.Now()
	r.logger.Debug("groupchat.run.start",
		"conversation_id", req.ConversationID,
		"agents", len(req.Agents),
		"max_turns", maxTurns,
	)
	r.emit(sink, Event{Type: EventState, State: StateRunning})

	var (
		res   *Result
		err   error
		trail []string
	)
	if len(req.Agents) == 1 {
		trail = []string{RouteDirectAgent}
		res, err = r.runDirect(runCtx, req, limiter, sink, trail)
		if err != nil && !errors.Is(err, context.Canceled) {
			// Non-fatal escalation: the fast path could not produce a clean
			// answer, so the same message runs through the group machinery.
			r.logger.Warn("groupchat.direct.fallback",
				"conversation_id", req.ConversationID,
				"agent", req.Agents[0].Key,
				"error", err.Error(),
			)
			r.notifyError(runCtx, req, req.Agents[0].Key, 1, err)
			trail = append(trail, RouteDirectFallback, RouteGroupChat)
			res, err = r.runGroup(runCtx, req, maxTurns, limiter, sink, trail)
		}
	} else {
		trail = []string{RouteGroupChat}
		res, err = r.runGroup(runCtx, req, maxTurns, limiter, sink, trail)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		r.logger.Error("groupchat.run.failed",
			"conversation_id", req.ConversationID,
			"error", err.Error(),
		)
		r.notifyError(runCtx, req, "", 0, err)
		res = r.apologyResult(req, trail)
	}

	r.emit(sink, Event{Type: EventState, State: res.State})
	r.logger.Info("groupchat.run.complete",
		"conversation_id", req.ConversationID,
		"state", string(res.State),
		"turns", res.TurnCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// runDirect streams the lone agent once. Tool calls still execute through
// the synchronous path; an attempt that never produces agent text returns
// errNoCleanText so the caller can escalate to the group path.
func (r *Runner) runDirect(ctx context.Context, req Request, limiter *core.CallLimiter, sink eventSink, trail []string) (*Result, error) {
	a := req.Agents[0]
	transcript := core.Transcript{userTurn(req)}

	if err := r.fire(ctx, HookBeforeTurn, &HookContext{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		AgentKey:       a.Key,
		TurnNumber:     1,
	}); err != nil {
		return nil, err
	}

	injected := r.inject(ctx, req, a, 1, nil)
	contents := []core.Content{core.NewUserContent(injected)}

	content, err := r.complete(ctx, req, a, 1, r.instructions(a, req.Agents), contents, limiter, sink)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				r.logger.Warn("groupchat.run.timeout", "conversation_id", req.ConversationID, "turns", 0)
				return r.buildResult(transcript, 0, StateTerminatedByTimeout, "", trail), nil
			}
			return nil, ctxErr
		}
		return nil, err
	}

	text := content.Text
	if content.HasToolCalls() {
		resolved := r.resolveToolCalls(ctx, req, a, 1, content)
		if strings.TrimSpace(content.Text) == "" {
			// Tools ran but the agent never answered.
			r.logger.Debug("groupchat.direct.no_text",
				"agent", a.Key,
				"tool_calls", len(content.ToolCalls),
				"discarded_chars", len(resolved),
			)
			return nil, errNoCleanText
		}
		text = resolved
	}
	if strings.TrimSpace(text) == "" {
		return nil, errNoCleanText
	}

	turn := core.Turn{Number: 1, AgentKey: a.Key, Content: core.NewAgentContent(text), Timestamp: time.Now()}
	transcript = append(transcript, turn)

	if err := r.fire(ctx, HookAfterTurn, &HookContext{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		AgentKey:       a.Key,
		TurnNumber:     1,
		Turn:           &turn,
	}); err != nil {
		return nil, err
	}
	r.emit(sink, Event{Type: EventTurn, AgentKey: a.Key, Turn: &turn})

	// A direct run has an effective budget of one turn; completing it is
	// max-turns termination unless the agent signaled the marker itself.
	state := StateTerminatedByMaxTurns
	if r.matchMarker(text) != "" {
		state = StateTerminatedByMarker
	}
	return r.buildResult(transcript, 1, state, text, trail), nil
}

// runGroup drives the bounded round-robin loop over the participants. The
// error return is reserved for caller cancellation and model or callback
// failures; timeout is a tagged partial success, not an error.
func (r *Runner) runGroup(ctx context.Context, req Request, maxTurns int, limiter *core.CallLimiter, sink eventSink, trail []string) (*Result, error) {
	transcript := core.Transcript{userTurn(req)}
	state := StateRunning
	lastText := ""
	turns := 0

	for turn := 1; turn <= maxTurns; turn++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				state = StateTerminatedByTimeout
				break
			}
			return nil, ctxErr
		}

		a := req.Agents[(turn-1)%len(req.Agents)]

		if err := r.fire(ctx, HookBeforeTurn, &HookContext{
			ConversationID: req.ConversationID,
			UserID:         req.UserID,
			AgentKey:       a.Key,
			TurnNumber:     turn,
		}); err != nil {
			return nil, err
		}

		injected := r.inject(ctx, req, a, turn, agentTexts(transcript))
		contents := buildContents(injected, transcript)

		content, err := r.complete(ctx, req, a, turn, r.instructions(a, req.Agents), contents, limiter, sink)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				if errors.Is(ctxErr, context.DeadlineExceeded) {
					state = StateTerminatedByTimeout
					break
				}
				return nil, ctxErr
			}
			return nil, err
		}

		text := content.Text
		if content.HasToolCalls() {
			text = r.resolveToolCalls(ctx, req, a, turn, content)
		}

		produced := core.Turn{Number: turn, AgentKey: a.Key, Content: core.NewAgentContent(text), Timestamp: time.Now()}
		transcript = append(transcript, produced)
		turns = turn
		lastText = text

		if err := r.fire(ctx, HookAfterTurn, &HookContext{
			ConversationID: req.ConversationID,
			UserID:         req.UserID,
			AgentKey:       a.Key,
			TurnNumber:     turn,
			Turn:           &produced,
		}); err != nil {
			return nil, err
		}
		r.emit(sink, Event{Type: EventTurn, AgentKey: a.Key, Turn: &produced})
		r.logger.Debug("groupchat.turn",
			"conversation_id", req.ConversationID,
			"turn", turn,
			"agent", a.Key,
			"tool_calls", len(content.ToolCalls),
		)

		if marker := r.matchMarker(text); marker != "" {
			r.logger.Debug("groupchat.run.marker", "conversation_id", req.ConversationID, "marker", marker)
			state = StateTerminatedByMarker
			break
		}
	}

	if state == StateRunning {
		state = StateTerminatedByMaxTurns
	}
	if state == StateTerminatedByTimeout {
		r.logger.Warn("groupchat.run.timeout", "conversation_id", req.ConversationID, "turns", turns)
	}

	return r.buildResult(transcript, turns, state, lastText, trail), nil
}

// complete performs one model completion, streaming partial chunks to the
// sink and returning the final content.
func (r *Runner) complete(ctx context.Context, req Request, a core.AgentMetadata, turn int, instructions string, contents []core.Content, limiter *core.CallLimiter, sink eventSink) (core.Content, error) {
	if err := limiter.Increment(); err != nil {
		return core.Content{}, err
	}

	hc := &HookContext{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		AgentKey:       a.Key,
		TurnNumber:     turn,
	}
	if err := r.fire(ctx, HookBeforeModel, hc); err != nil {
		return core.Content{}, err
	}

	mreq := model.Request{
		Instructions: instructions,
		Contents:     contents,
		Stream:       r.options.Stream && sink != nil,
	}
	if r.executor != nil && r.executor.Len() > 0 {
		mreq.Tools = toolDefinitions(r.executor.Tools())
	}

	respCh, errCh := r.model.Generate(ctx, mreq)

	var (
		final    core.Content
		sawFinal bool
	)
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				r.emit(sink, Event{Type: EventChunk, AgentKey: a.Key, Chunk: resp.Content.Text})
				continue
			}
			final = resp.Content
			sawFinal = true
		case genErr, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if genErr != nil {
				return core.Content{}, genErr
			}
		case <-ctx.Done():
			return core.Content{}, ctx.Err()
		}
	}
	if !sawFinal {
		return core.Content{}, fmt.Errorf("model stream for agent %s closed without a final response", a.Key)
	}

	hc.Content = &final
	if err := r.fire(ctx, HookAfterModel, hc); err != nil {
		return core.Content{}, err
	}
	return final, nil
}

// resolveToolCalls executes the content's tool calls in order and returns
// the turn's text: the agent's own text (when present) followed by each
// call's result. Failures resolve to error text, never to an aborted run.
func (r *Runner) resolveToolCalls(ctx context.Context, req Request, a core.AgentMetadata, turn int, content core.Content) string {
	parts := make([]string, 0, len(content.ToolCalls)+1)
	if strings.TrimSpace(content.Text) != "" {
		parts = append(parts, content.Text)
	}

	for _, call := range content.ToolCalls {
		hc := &HookContext{
			ConversationID: req.ConversationID,
			UserID:         req.UserID,
			AgentKey:       a.Key,
			TurnNumber:     turn,
			ToolCall:       &call,
		}
		if err := r.fire(ctx, HookBeforeTool, hc); err != nil {
			parts = append(parts, fmt.Sprintf("Error executing tool: %v", err))
			continue
		}

		var result string
		if r.executor == nil {
			result = fmt.Sprintf("Tool '%s' is not supported.", call.Name)
		} else {
			toolCtx := tool.NewContext(ctx, tool.CallInfo{
				ConversationID: req.ConversationID,
				UserID:         req.UserID,
				AgentKey:       a.Key,
				CallID:         call.ID,
			}, r.logger)
			result = r.executor.Execute(toolCtx, call.Name, call.Arguments)
		}

		hc.ToolResult = result
		if err := r.fire(ctx, HookAfterTool, hc); err != nil {
			r.logger.Warn("groupchat.hook.after_tool_failed", "tool", call.Name, "error", err.Error())
		}

		parts = append(parts, result)
	}

	return strings.Join(parts, "\n")
}

// inject augments the turn message through the configured injector; without
// one the original message is used as-is.
func (r *Runner) inject(ctx context.Context, req Request, a core.AgentMetadata, turn int, history []string) string {
	if r.injector == nil {
		return req.Message
	}
	return r.injector.Inject(ctx, rag.TurnRequest{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		AgentKey:       a.Key,
		AgentTier:      a.Tier,
		TurnNumber:     turn,
		Message:        req.Message,
		History:        history,
	})
}

// instructions builds the per-agent system prompt: persona, group framing
// when more than one agent participates, and the termination protocol.
func (r *Runner) instructions(a core.AgentMetadata, participants []core.AgentMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", a.Name)
	switch {
	case a.Persona != "":
		b.WriteString("\n")
		b.WriteString(a.Persona)
	case a.Description != "":
		b.WriteString("\n")
		b.WriteString(a.Description)
	}

	if len(participants) > 1 {
		names := make([]string, 0, len(participants)-1)
		for _, p := range participants {
			if p.Key == a.Key {
				continue
			}
			names = append(names, p.Name)
		}
		fmt.Fprintf(&b, "\nYou are in a working session with %s. Build on the discussion so far instead of restating it.", strings.Join(names, ", "))
		if len(r.options.TerminationMarkers) > 0 && r.options.TerminationMarkers[0] != "" {
			fmt.Fprintf(&b, "\nWhen the group has reached a final answer, end your reply with %s.", r.options.TerminationMarkers[0])
		}
	}
	return b.String()
}

// matchMarker returns the first configured termination marker present in
// text, or the empty string.
func (r *Runner) matchMarker(text string) string {
	for _, marker := range r.options.TerminationMarkers {
		if marker != "" && strings.Contains(text, marker) {
			return marker
		}
	}
	return ""
}

// newLimiter builds the per-run model call cap. The derived default covers
// a direct attempt plus a full fallback loop.
func (r *Runner) newLimiter(maxTurns int) *core.CallLimiter {
	limit := r.options.MaxModelCalls
	switch {
	case limit < 0:
		limit = 0
	case limit == 0:
		limit = 2*maxTurns + 1
	}
	return core.NewCallLimiter(limit)
}

func (r *Runner) buildResult(transcript core.Transcript, turns int, state State, response string, trail []string) *Result {
	return &Result{
		Response:         response,
		Transcript:       transcript,
		AgentsUsed:       agentsUsed(transcript),
		TurnCount:        turns,
		State:            state,
		RoutingDecisions: trail,
	}
}

// apologyResult is the non-crashing terminal for a run whose execution
// paths all failed: a user-visible apology attributed to the synthetic
// "system" identity with zero counted turns.
func (r *Runner) apologyResult(req Request, trail []string) *Result {
	transcript := core.Transcript{
		userTurn(req),
		{Number: 0, AgentKey: systemAgentKey, Content: core.NewAgentContent(apologyText), Timestamp: time.Now()},
	}
	return &Result{
		Response:         apologyText,
		Transcript:       transcript,
		AgentsUsed:       []string{systemAgentKey},
		TurnCount:        0,
		State:            StateFailed,
		RoutingDecisions: trail,
	}
}

func (r *Runner) emit(sink eventSink, ev Event) {
	if sink != nil {
		sink(ev)
	}
}

func (r *Runner) fire(ctx context.Context, hook Hook, hc *HookContext) error {
	if r.callbacks == nil {
		return nil
	}
	hc.Hook = hook
	return r.callbacks.Fire(ctx, hook, hc)
}

// notifyError fires the OnError hook without letting callback failures
// compound the original problem.
func (r *Runner) notifyError(ctx context.Context, req Request, agentKey string, turn int, cause error) {
	if r.callbacks == nil {
		return
	}
	hc := &HookContext{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		AgentKey:       agentKey,
		TurnNumber:     turn,
		Hook:           HookOnError,
		Err:            cause,
	}
	if err := r.callbacks.Fire(ctx, HookOnError, hc); err != nil {
		r.logger.Warn("groupchat.hook.error_failed", "error", err.Error())
	}
}

// userTurn seeds a transcript with the user's message. Synthetic entries
// carry turn number zero; counted agent turns start at one.
func userTurn(req Request) core.Turn {
	return core.Turn{Number: 0, AgentKey: userAgentKey, Content: core.NewUserContent(req.Message), Timestamp: time.Now()}
}

// agentTexts returns the texts of the agent turns, for retrieval history.
func agentTexts(transcript core.Transcript) []string {
	var texts []string
	for _, t := range transcript {
		if t.AgentKey == userAgentKey {
			continue
		}
		texts = append(texts, t.Content.Text)
	}
	return texts
}

// buildContents assembles the model input for one turn: the injected user
// message followed by the prior agent turns, each attributed by key so the
// model can follow who said what.
func buildContents(injected string, transcript core.Transcript) []core.Content {
	contents := make([]core.Content, 0, len(transcript))
	contents = append(contents, core.NewUserContent(injected))
	for _, t := range transcript {
		if t.AgentKey == userAgentKey {
			continue
		}
		contents = append(contents, core.NewAgentContent(fmt.Sprintf("%s: %s", t.AgentKey, t.Content.Text)))
	}
	return contents
}

// agentsUsed lists the transcript's contributors excluding the synthetic
// user entry, preserving first-seen order.
func agentsUsed(transcript core.Transcript) []string {
	var keys []string
	for _, key := range transcript.Agents() {
		if key == userAgentKey {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// toolDefinitions converts registered tools into model function
// declarations.
func toolDefinitions(tools []tool.Tool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.NewToolDefinition(t.Name(), t.Description(), t.Parameters()))
	}
	return defs
}
