package groupchat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/convergio-go/agent"
	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/memory"
	"github.com/convergio/convergio-go/model"
	"github.com/convergio/convergio-go/rag"
	"github.com/convergio/convergio-go/tool"
)

type scriptedTool struct {
	name   string
	fn     func(args map[string]any) (any, error)
	called int
}

func (s *scriptedTool) Name() string        { return s.name }
func (s *scriptedTool) Description() string { return s.name + " test tool" }

func (s *scriptedTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (s *scriptedTool) Call(_ *tool.Context, args map[string]any) (any, error) {
	s.called++
	return s.fn(args)
}

func cfoAgent() core.AgentMetadata {
	return core.AgentMetadata{
		Key:     agent.KeyCFO,
		Name:    "Amy",
		Persona: "You are Amy, the CFO.",
		Tier:    core.TierStrategic,
	}
}

func architectAgent() core.AgentMetadata {
	return core.AgentMetadata{
		Key:     agent.KeyTechArchitect,
		Name:    "Baccio",
		Persona: "You are Baccio, the technology architect.",
		Tier:    core.TierStrategic,
	}
}

// recordingModel captures every request passed to the inner mock so tests
// can assert on instructions, contents and tool declarations.
type recordingModel struct {
	*model.MockModel
	mu       sync.Mutex
	requests []model.Request
}

func newRecordingModel() *recordingModel {
	return &recordingModel{MockModel: model.NewMockModel("recording", "mock")}
}

func (m *recordingModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.MockModel.Generate(ctx, req)
}

func (m *recordingModel) Requests() []model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Request(nil), m.requests...)
}

// stallModel answers normally up to stallAfter calls, then blocks until the
// context expires. It makes timeout behavior deterministic without racing
// real model latency.
type stallModel struct {
	inner      *model.MockModel
	stallAfter int
	mu         sync.Mutex
	calls      int
}

func (m *stallModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	m.calls++
	calls := m.calls
	m.mu.Unlock()

	if calls <= m.stallAfter {
		return m.inner.Generate(ctx, req)
	}

	respCh := make(chan model.Response)
	errCh := make(chan error, 1)
	go func() {
		defer close(respCh)
		defer close(errCh)
		<-ctx.Done()
		errCh <- ctx.Err()
	}()
	return respCh, errCh
}

func (m *stallModel) Info() model.Info { return m.inner.Info() }

// cancelModel cancels the run's parent context at call number cancelAt and
// then reports the cancellation, simulating a caller abandoning a run that
// is mid-generation.
type cancelModel struct {
	inner    *model.MockModel
	cancelAt int
	cancel   context.CancelFunc
	mu       sync.Mutex
	calls    int
}

func (m *cancelModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	m.calls++
	calls := m.calls
	m.mu.Unlock()

	if calls < m.cancelAt {
		return m.inner.Generate(ctx, req)
	}

	respCh := make(chan model.Response)
	errCh := make(chan error, 1)
	go func() {
		defer close(respCh)
		defer close(errCh)
		m.cancel()
		<-ctx.Done()
		errCh <- ctx.Err()
	}()
	return respCh, errCh
}

func (m *cancelModel) Info() model.Info { return m.inner.Info() }

func TestRunnerFailsFastWithoutAgents(t *testing.T) {
	r := NewRunner(model.NewMockModel("test", "mock"))

	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "hello",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoAgents)
	assert.Nil(t, res)
}

func TestRunnerDirectAgentSingleTurn(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.AddResponse("What is our runway?", "Here is the plan.")

	r := NewRunner(m)
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		UserID:         "user-1",
		Message:        "What is our runway?",
		Agents:         []core.AgentMetadata{cfoAgent()},
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Here is the plan.", res.Response)
	assert.Equal(t, StateTerminatedByMaxTurns, res.State)
	assert.Equal(t, 1, res.TurnCount)
	assert.Equal(t, []string{agent.KeyCFO}, res.AgentsUsed)
	assert.Equal(t, []string{RouteDirectAgent}, res.RoutingDecisions)
	assert.Equal(t, 1, m.Calls())

	require.Len(t, res.Transcript, 2)
	assert.Equal(t, "user", res.Transcript[0].AgentKey)
	assert.Equal(t, 0, res.Transcript[0].Number)
	assert.Equal(t, agent.KeyCFO, res.Transcript[1].AgentKey)
	assert.Equal(t, 1, res.Transcript[1].Number)
}

func TestRunnerDirectFallbackWhenOnlyToolCallsArrive(t *testing.T) {
	fetch := &scriptedTool{name: "fetch_data", fn: func(map[string]any) (any, error) {
		return "42 rows", nil
	}}
	executor := tool.NewExecutor([]tool.Tool{fetch})

	m := model.NewMockModel("test", "mock")
	m.EnqueueToolCalls(core.ToolCall{ID: "call-1", Name: "fetch_data", Arguments: "{}"})
	m.AddResponse("Summarize the data.", "The data shows 42 rows. TERMINATE")

	r := NewRunner(m, func(o *RunnerOptions) {
		o.Executor = executor
	})
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Summarize the data.",
		Agents:         []core.AgentMetadata{cfoAgent()},
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{RouteDirectAgent, RouteDirectFallback, RouteGroupChat}, res.RoutingDecisions)
	assert.NotEmpty(t, res.Response)
	assert.Contains(t, res.Response, "42 rows")
	assert.Equal(t, StateTerminatedByMarker, res.State)
	assert.Equal(t, 1, res.TurnCount)
	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, 1, fetch.called)
}

func TestRunnerGroupToolFailureBecomesErrorTurn(t *testing.T) {
	crunch := &scriptedTool{name: "crunch", fn: func(map[string]any) (any, error) {
		return nil, errors.New("backend down")
	}}
	executor := tool.NewExecutor([]tool.Tool{crunch})

	m := model.NewMockModel("test", "mock")
	m.EnqueueToolCalls(core.ToolCall{ID: "call-9", Name: "crunch", Arguments: "{}"})
	m.EnqueueText("We proceed without the numbers. TERMINATE")

	r := NewRunner(m, func(o *RunnerOptions) {
		o.Executor = executor
	})
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Crunch the Q3 numbers.",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Transcript, 3)
	assert.Equal(t, "Error executing tool: backend down", res.Transcript[1].Content.Text)
	assert.Equal(t, StateTerminatedByMarker, res.State)
	assert.Equal(t, 2, res.TurnCount)
	assert.Equal(t, []string{agent.KeyCFO, agent.KeyTechArchitect}, res.AgentsUsed)
	assert.Equal(t, 1, crunch.called)
}

func TestRunnerGroupTerminatesOnMarker(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueText("Analysis first.")
	m.EnqueueText("All agreed. TERMINATE")

	r := NewRunner(m)
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Align on the budget.",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
		MaxTurns:       6,
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateTerminatedByMarker, res.State)
	assert.Equal(t, 2, res.TurnCount)
	assert.Equal(t, "All agreed. TERMINATE", res.Response)
	assert.Equal(t, []string{RouteGroupChat}, res.RoutingDecisions)
	assert.Equal(t, 2, m.Calls())
}

func TestRunnerGroupStopsAtMaxTurns(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueText("Round one.")
	m.EnqueueText("Round two.")
	m.EnqueueText("Round three.")

	r := NewRunner(m)
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Keep discussing.",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
		MaxTurns:       3,
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateTerminatedByMaxTurns, res.State)
	assert.Equal(t, 3, res.TurnCount)
	assert.Equal(t, "Round three.", res.Response)

	require.Len(t, res.Transcript, 4)
	assert.Equal(t, agent.KeyCFO, res.Transcript[1].AgentKey)
	assert.Equal(t, agent.KeyTechArchitect, res.Transcript[2].AgentKey)
	assert.Equal(t, agent.KeyCFO, res.Transcript[3].AgentKey)
	for i, turn := range res.Transcript[1:] {
		assert.Equal(t, i+1, turn.Number)
	}
	assert.Equal(t, []string{agent.KeyCFO, agent.KeyTechArchitect}, res.AgentsUsed)
}

func TestRunnerTimeoutReturnsPartialTranscript(t *testing.T) {
	inner := model.NewMockModel("test", "mock")
	inner.EnqueueText("First answer.")
	m := &stallModel{inner: inner, stallAfter: 1}

	r := NewRunner(m, func(o *RunnerOptions) {
		o.Timeout = 80 * time.Millisecond
	})
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Take your time.",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
		MaxTurns:       4,
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateTerminatedByTimeout, res.State)
	assert.Equal(t, 1, res.TurnCount)
	assert.Equal(t, "First answer.", res.Response)
	assert.Equal(t, []string{agent.KeyCFO}, res.AgentsUsed)
	require.Len(t, res.Transcript, 2)
}

func TestRunnerApologizesWhenAllPathsFail(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.FailWith(errors.New("provider 500"))

	r := NewRunner(m)
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Anyone there?",
		Agents:         []core.AgentMetadata{cfoAgent()},
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, res.Response, "apologize")
	assert.Equal(t, []string{"system"}, res.AgentsUsed)
	assert.Equal(t, 0, res.TurnCount)
	assert.Contains(t, res.RoutingDecisions, RouteDirectFallback)

	require.Len(t, res.Transcript, 2)
	assert.Equal(t, "user", res.Transcript[0].AgentKey)
	assert.Equal(t, "system", res.Transcript[1].AgentKey)
}

func TestRunnerMultiAgentFailureApologizes(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.FailWith(errors.New("provider 500"))

	r := NewRunner(m)
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Anyone there?",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, []string{RouteGroupChat}, res.RoutingDecisions)
}

func TestRunnerCanceledContextPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(model.NewMockModel("test", "mock"))
	res, err := r.Run(ctx, Request{
		ConversationID: "conv-1",
		Message:        "hello",
		Agents:         []core.AgentMetadata{cfoAgent()},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRunnerMidRunCancelPropagates(t *testing.T) {
	inner := model.NewMockModel("test", "mock")
	inner.EnqueueText("First answer.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &cancelModel{inner: inner, cancelAt: 2, cancel: cancel}

	r := NewRunner(m)
	res, err := r.Run(ctx, Request{
		ConversationID: "conv-1",
		Message:        "Keep going.",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
		MaxTurns:       4,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRunnerModelCallLimit(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueText("Round one.")
	m.EnqueueText("Round two.")

	var captured []error
	callbacks := NewCallbacks(NewHookFunc(HookOnError, func(_ context.Context, hc *HookContext) error {
		captured = append(captured, hc.Err)
		return nil
	}))

	r := NewRunner(m, func(o *RunnerOptions) {
		o.MaxModelCalls = 1
		o.Callbacks = callbacks
	})
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Keep discussing.",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
		MaxTurns:       3,
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 1, m.Calls())

	require.NotEmpty(t, captured)
	assert.ErrorIs(t, captured[0], core.ErrCallLimitExceeded)
}

func TestRunnerCallbackOrder(t *testing.T) {
	echo := &scriptedTool{name: "echo", fn: func(map[string]any) (any, error) {
		return "x", nil
	}}
	executor := tool.NewExecutor([]tool.Tool{echo})

	m := model.NewMockModel("test", "mock")
	m.EnqueueToolCalls(core.ToolCall{ID: "call-1", Name: "echo", Arguments: "{}"})
	m.EnqueueText("Done. TERMINATE")

	var (
		order       []Hook
		toolResults []string
	)
	record := func(_ context.Context, hc *HookContext) error {
		order = append(order, hc.Hook)
		if hc.Hook == HookAfterTool {
			toolResults = append(toolResults, hc.ToolResult)
		}
		return nil
	}
	callbacks := NewCallbacks(
		NewHookFunc(HookBeforeTurn, record),
		NewHookFunc(HookAfterTurn, record),
		NewHookFunc(HookBeforeModel, record),
		NewHookFunc(HookAfterModel, record),
		NewHookFunc(HookBeforeTool, record),
		NewHookFunc(HookAfterTool, record),
	)

	r := NewRunner(m, func(o *RunnerOptions) {
		o.Executor = executor
		o.Callbacks = callbacks
	})
	_, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Echo something.",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
	})

	require.NoError(t, err)
	assert.Equal(t, []Hook{
		HookBeforeTurn, HookBeforeModel, HookAfterModel, HookBeforeTool, HookAfterTool, HookAfterTurn,
		HookBeforeTurn, HookBeforeModel, HookAfterModel, HookAfterTurn,
	}, order)
	assert.Equal(t, []string{"x"}, toolResults)
}

func TestRunnerBeforeModelHookAborts(t *testing.T) {
	sentinel := errors.New("blocked by policy")

	var captured []error
	callbacks := NewCallbacks(
		NewHookFunc(HookBeforeModel, func(context.Context, *HookContext) error {
			return sentinel
		}),
		NewHookFunc(HookOnError, func(_ context.Context, hc *HookContext) error {
			captured = append(captured, hc.Err)
			return nil
		}),
	)

	m := model.NewMockModel("test", "mock")
	r := NewRunner(m, func(o *RunnerOptions) {
		o.Callbacks = callbacks
	})
	res, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "hello",
		Agents:         []core.AgentMetadata{cfoAgent()},
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, res.RoutingDecisions, RouteDirectFallback)
	assert.Equal(t, 0, m.Calls())

	require.NotEmpty(t, captured)
	assert.ErrorIs(t, captured[0], sentinel)
}

func TestRunnerEventsStreaming(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.AddResponse("Stream it.", "Streamed reply.")

	r := NewRunner(m)
	events, errs := r.Events(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Stream it.",
		Agents:         []core.AgentMetadata{cfoAgent()},
	})

	var collected []Event
	for ev := range events {
		collected = append(collected, ev)
	}
	assert.NoError(t, <-errs)

	require.GreaterOrEqual(t, len(collected), 5)
	assert.Equal(t, EventState, collected[0].Type)
	assert.Equal(t, StateInit, collected[0].State)
	assert.Equal(t, EventState, collected[1].Type)
	assert.Equal(t, StateRunning, collected[1].State)

	var chunks strings.Builder
	var turns []*core.Turn
	for _, ev := range collected {
		switch ev.Type {
		case EventChunk:
			chunks.WriteString(ev.Chunk)
		case EventTurn:
			turns = append(turns, ev.Turn)
		}
	}
	assert.Equal(t, "Streamed reply.", chunks.String())
	require.Len(t, turns, 1)
	assert.Equal(t, 1, turns[0].Number)
	assert.Equal(t, agent.KeyCFO, turns[0].AgentKey)

	penultimate := collected[len(collected)-2]
	assert.Equal(t, EventState, penultimate.Type)
	assert.Equal(t, StateTerminatedByMaxTurns, penultimate.State)

	last := collected[len(collected)-1]
	assert.Equal(t, EventResult, last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, "Streamed reply.", last.Result.Response)
}

func TestRunnerEventsFailFast(t *testing.T) {
	r := NewRunner(model.NewMockModel("test", "mock"))
	events, errs := r.Events(context.Background(), Request{Message: "hello"})

	for range events {
	}
	err := <-errs
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoAgents)
}

func TestRunnerInjectsContextAndBuildsInstructions(t *testing.T) {
	injector := rag.NewInjector(
		rag.NewProcessor(memory.NewInMemoryStore(), nil),
		agent.DefaultProfiles(),
	)
	echo := &scriptedTool{name: "echo", fn: func(map[string]any) (any, error) {
		return "x", nil
	}}
	executor := tool.NewExecutor([]tool.Tool{echo})

	m := newRecordingModel()
	m.EnqueueText("Fine.")

	r := NewRunner(m, func(o *RunnerOptions) {
		o.Injector = injector
		o.Executor = executor
	})
	_, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		UserID:         "user-1",
		Message:        "Review the hiring budget.",
		Agents:         []core.AgentMetadata{cfoAgent()},
	})
	require.NoError(t, err)

	requests := m.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Instructions, "You are Amy")
	assert.NotContains(t, requests[0].Instructions, "working session")

	require.NotEmpty(t, requests[0].Contents)
	assert.True(t, strings.HasPrefix(requests[0].Contents[0].Text, "Review the hiring budget."))
	assert.Contains(t, requests[0].Contents[0].Text, "Focus Area: financial implications")

	require.Len(t, requests[0].Tools, 1)
	assert.Equal(t, "echo", requests[0].Tools[0].Function.Name)

	m2 := newRecordingModel()
	m2.EnqueueText("Quick thought.")
	m2.EnqueueText("Done. TERMINATE")

	r2 := NewRunner(m2)
	_, err = r2.Run(context.Background(), Request{
		ConversationID: "conv-2",
		Message:        "Plan the rollout.",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
	})
	require.NoError(t, err)

	requests = m2.Requests()
	require.NotEmpty(t, requests)
	assert.Contains(t, requests[0].Instructions, "working session with Baccio")
	assert.Contains(t, requests[0].Instructions, "TERMINATE")
}

func TestRunnerGroupPassesHistoryToModel(t *testing.T) {
	m := newRecordingModel()
	m.EnqueueText("First view.")
	m.EnqueueText("Second. TERMINATE")

	r := NewRunner(m)
	_, err := r.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        "Compare the options.",
		Agents:         []core.AgentMetadata{cfoAgent(), architectAgent()},
	})
	require.NoError(t, err)

	requests := m.Requests()
	require.Len(t, requests, 2)
	require.Len(t, requests[0].Contents, 1)

	require.Len(t, requests[1].Contents, 2)
	assert.Equal(t, core.RoleUser, requests[1].Contents[0].Role)
	assert.Equal(t, "Compare the options.", requests[1].Contents[0].Text)
	assert.Equal(t, core.RoleAssistant, requests[1].Contents[1].Role)
	assert.Equal(t, agent.KeyCFO+": First view.", requests[1].Contents[1].Text)
}

func TestStateTerminal(t *testing.T) {
	tests := []struct {
		state    State
		terminal bool
	}{
		{StateInit, false},
		{StateRunning, false},
		{StateTerminatedByMaxTurns, true},
		{StateTerminatedByMarker, true},
		{StateTerminatedByTimeout, true},
		{StateFailed, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.terminal, tt.state.Terminal(), string(tt.state))
	}
}
