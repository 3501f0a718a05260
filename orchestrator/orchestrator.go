// Package orchestrator wires the full conversation pipeline behind one
// call: conversation identity, decision planning, agent routing, the
// group-chat run, metrics extraction and persistence.
//
// Conversation-level failures never cross this boundary as errors. The
// runner converts them into an apology result, so OrchestrateConversation
// returns an error only when the orchestrator is unhealthy, the caller's
// context ends, or the finished transcript fails the metrics integrity
// check.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/convergio/convergio-go/agent"
	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/decision"
	"github.com/convergio/convergio-go/groupchat"
	"github.com/convergio/convergio-go/internal/util"
	"github.com/convergio/convergio-go/logging"
	"github.com/convergio/convergio-go/memory"
	"github.com/convergio/convergio-go/metrics"
	"github.com/convergio/convergio-go/model"
	"github.com/convergio/convergio-go/router"
)

// Request describes one orchestration call.
type Request struct {
	// Message is the user's message.
	Message string

	// UserID identifies the requesting user.
	UserID string

	// ConversationID continues an existing conversation. When absent, or
	// when the store does not know the id, a fresh conversation is minted.
	ConversationID string

	// Context carries optional planning metadata attached to the decision
	// plan.
	Context map[string]string

	// MaxTurns overrides the planned turn ceiling for this call. Zero keeps
	// the plan's ceiling.
	MaxTurns int

	// AgentHint names an agent (key or display name) that must handle the
	// message, bypassing keyword routing.
	AgentHint string
}

// Result is the structured outcome of one orchestration call. Failed runs
// produce a Result too, carrying the apology response.
type Result struct {
	Response         string             `json:"response"`
	AgentsUsed       []string           `json:"agents_used"`
	TurnCount        int                `json:"turn_count"`
	DurationSeconds  float64            `json:"duration_seconds"`
	Cost             core.CostBreakdown `json:"cost_breakdown"`
	RoutingDecisions []string           `json:"routing_decisions"`
	ConversationID   string             `json:"conversation_id"`
	State            groupchat.State    `json:"state"`
}

// Options configure an Orchestrator. Nil components default to working
// in-process implementations, so a bare New(model, registry) orchestrates
// against an in-memory store.
type Options struct {
	// Engine plans message execution. Defaults to decision.NewEngine().
	Engine *decision.Engine

	// Router selects handling agents. Defaults to router.New().
	Router *router.Router

	// Runner executes conversation runs. Defaults to a runner over the
	// orchestrator's model with no injector or tools.
	Runner *groupchat.Runner

	// Extractor post-processes transcripts. Defaults to metrics.NewExtractor().
	Extractor *metrics.Extractor

	// Conversations persists transcripts and cost. Defaults to a shared
	// in-memory store.
	Conversations core.ConversationStore

	// Memories receives per-turn conversation memories. Defaults to the
	// same in-memory store.
	Memories core.MemoryStore

	// Scorer assigns creation-time importance to persisted turns. Defaults
	// to memory.NewImportanceScorer().
	Scorer *memory.ImportanceScorer

	// PanelSize caps the participants of a multi-perspective exchange.
	// Defaults to 3.
	PanelSize int

	// MinAgents is the smallest registry size Healthy accepts. Defaults to 1.
	MinAgents int

	// Logger receives orchestration telemetry. Defaults to the no-op logger.
	Logger logging.Logger
}

// Orchestrator runs the conversation pipeline. Safe for concurrent use;
// conversations are isolated by id.
type Orchestrator struct {
	model         model.Model
	registry      *agent.Registry
	engine        *decision.Engine
	router        *router.Router
	runner        *groupchat.Runner
	extractor     *metrics.Extractor
	conversations core.ConversationStore
	memories      core.MemoryStore
	scorer        *memory.ImportanceScorer
	panelSize     int
	minAgents     int
	logger        logging.Logger
}

// New creates an Orchestrator over the model client and agent registry.
func New(m model.Model, registry *agent.Registry, optFns ...func(o *Options)) *Orchestrator {
	options := Options{
		PanelSize: 3,
		MinAgents: 1,
	}

	for _, fn := range optFns {
		fn(&options)
	}

	if options.Engine == nil {
		options.Engine = decision.NewEngine()
	}
	if options.Router == nil {
		options.Router = router.New()
	}
	if options.Runner == nil {
		options.Runner = groupchat.NewRunner(m)
	}
	if options.Extractor == nil {
		options.Extractor = metrics.NewExtractor()
	}
	if options.Conversations == nil || options.Memories == nil {
		shared := memory.NewInMemoryStore()
		if options.Conversations == nil {
			options.Conversations = shared
		}
		if options.Memories == nil {
			options.Memories = shared
		}
	}
	if options.Scorer == nil {
		options.Scorer = memory.NewImportanceScorer()
	}

	return &Orchestrator{
		model:         m,
		registry:      registry,
		engine:        options.Engine,
		router:        options.Router,
		runner:        options.Runner,
		extractor:     options.Extractor,
		conversations: options.Conversations,
		memories:      options.Memories,
		scorer:        options.Scorer,
		panelSize:     options.PanelSize,
		minAgents:     options.MinAgents,
		logger:        logging.OrNoop(options.Logger),
	}
}

// Healthy reports whether the orchestrator can serve conversations: a model
// client is wired and the registry holds at least the minimum viable agent
// count. Callers treat false as service unavailable.
func (o *Orchestrator) Healthy() bool {
	return o.model != nil && o.registry != nil && o.registry.Len() >= o.minAgents
}

// OrchestrateConversation runs the pipeline for one message: resolve the
// conversation id, plan, route, execute, extract metrics, persist. The
// returned Result is structured even when the run itself failed; the error
// is reserved for an unhealthy orchestrator, caller cancellation, and the
// deliberate hard failure on an unresolved final tool call.
func (o *Orchestrator) OrchestrateConversation(ctx context.Context, req Request) (*Result, error) {
	if !o.Healthy() {
		return nil, fmt.Errorf("orchestrator: refusing to run: %w", core.ErrUnhealthy)
	}

	start := time.Now()
	conversationID, existing := o.resolveConversation(ctx, req.UserID, req.ConversationID)

	plan := o.engine.Plan(req.Message, req.Context)

	available := o.registry.List()
	lead, routed := o.router.Select(req.Message, available, req.AgentHint)
	if lead == nil {
		return nil, fmt.Errorf("orchestrator: resolve participants: %w", core.ErrNoAgents)
	}

	trail := []string{
		fmt.Sprintf("plan: %s (confidence %.2f)", plan.Rationale, plan.Confidence),
		fmt.Sprintf("router: %s -> %s", routed.Reason, routed.AgentKey),
	}

	participants := []core.AgentMetadata{*lead}
	if !router.ShouldUseSingleAgent(req.Message) {
		participants = leadFirst(*lead, o.router.Panel(req.Message, available, o.panelSize))
		trail = append(trail, fmt.Sprintf("panel: multi-perspective query, %d agents", len(participants)))
	}

	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = plan.MaxTurns
	}
	if floor := router.MinimumTurns(req.Message); maxTurns < floor {
		maxTurns = floor
		trail = append(trail, fmt.Sprintf("turns: raised to %d for deliberative phrasing", floor))
	}

	o.logger.Debug("orchestrator.run.start",
		"conversation_id", conversationID,
		"agents", len(participants),
		"max_turns", maxTurns,
	)

	runRes, err := o.runner.Run(ctx, groupchat.Request{
		ConversationID: conversationID,
		UserID:         req.UserID,
		Message:        req.Message,
		Agents:         participants,
		MaxTurns:       maxTurns,
	})
	if err != nil {
		return nil, err
	}
	trail = append(trail, runRes.RoutingDecisions...)

	response, err := o.extractor.FinalResponse(runRes.Transcript)
	if err != nil {
		if errors.Is(err, core.ErrUnresolvedToolCalls) {
			o.logger.Error("orchestrator.extract.unresolved",
				"conversation_id", conversationID, "error", err.Error())
		}
		return nil, err
	}
	agentsUsed := o.extractor.AgentsUsed(runRes.Transcript)
	if runRes.TurnCount == 0 && runRes.State == groupchat.StateTerminatedByTimeout {
		// No agent ever spoke; the seeded user message is not a response.
		response, agentsUsed = "", nil
	}

	res := &Result{
		Response:         response,
		AgentsUsed:       agentsUsed,
		TurnCount:        runRes.TurnCount,
		DurationSeconds:  time.Since(start).Seconds(),
		Cost:             o.extractor.CostForModel(runRes.Transcript, plan.Model),
		RoutingDecisions: trail,
		ConversationID:   conversationID,
		State:            runRes.State,
	}

	o.persist(ctx, req, conversationID, existing, runRes.Transcript, res)

	o.logger.Info("orchestrator.run.complete",
		"conversation_id", conversationID,
		"state", string(res.State),
		"turns", res.TurnCount,
		"cost_usd", res.Cost.CostUSD,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// resolveConversation returns the id to run under and the existing record
// when the supplied id is known. Unknown or unreadable ids mint a fresh
// conversation rather than resurrecting state the store cannot see.
func (o *Orchestrator) resolveConversation(ctx context.Context, userID, id string) (string, *core.ConversationRecord) {
	if id == "" {
		return core.NewID(), nil
	}

	rec, err := o.conversations.GetConversation(ctx, userID, id)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			o.logger.Warn("orchestrator.conversation.lookup_failed",
				"conversation_id", id, "error", err.Error())
		}
		return core.NewID(), nil
	}
	return id, rec
}

// persist appends the run to the conversation record and stores each turn
// as a conversation memory. Persistence failures are logged, never allowed
// to eat a finished response.
func (o *Orchestrator) persist(ctx context.Context, req Request, conversationID string, existing *core.ConversationRecord, transcript core.Transcript, res *Result) {
	now := time.Now()

	rec := &core.ConversationRecord{
		ID:         conversationID,
		UserID:     req.UserID,
		Transcript: transcript,
		AgentsUsed: res.AgentsUsed,
		Cost:       res.Cost,
		State:      string(res.State),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		rec.CreatedAt = existing.CreatedAt
		rec.Transcript = append(append(core.Transcript{}, existing.Transcript...), transcript...)
		rec.AgentsUsed = util.UniqueStrings(append(append([]string{}, existing.AgentsUsed...), res.AgentsUsed...))
		rec.Cost = core.CostBreakdown{
			Tokens:   existing.Cost.Tokens + res.Cost.Tokens,
			CostUSD:  existing.Cost.CostUSD + res.Cost.CostUSD,
			Currency: "USD",
		}
	}
	if err := o.conversations.SaveConversation(ctx, rec); err != nil {
		o.logger.Warn("orchestrator.persist.conversation_failed",
			"conversation_id", conversationID, "error", err.Error())
	}

	for _, turn := range transcript {
		if turn.AgentKey == core.RoleSystem {
			continue
		}
		if strings.TrimSpace(turn.Content.Text) == "" {
			continue
		}

		ts := turn.Timestamp
		if ts.IsZero() {
			ts = now
		}
		entry := &core.MemoryEntry{
			ID:              memory.NewEntryID(),
			Type:            core.MemoryTypeConversation,
			Content:         turn.Content.Text,
			AgentID:         turn.AgentKey,
			UserID:          req.UserID,
			ConversationID:  conversationID,
			ImportanceScore: o.scorer.Score(core.MemoryTypeConversation, turn.Content.Text, nil),
			CreatedAt:       ts,
			LastAccessed:    ts,
		}
		if err := o.memories.Save(ctx, entry); err != nil {
			o.logger.Warn("orchestrator.persist.memory_failed",
				"conversation_id", conversationID, "turn", turn.Number, "error", err.Error())
		}
	}
}

// leadFirst keeps the routed lead as the opening speaker of a panel.
func leadFirst(lead core.AgentMetadata, panel []core.AgentMetadata) []core.AgentMetadata {
	out := []core.AgentMetadata{lead}
	for _, a := range panel {
		if a.Key == lead.Key {
			continue
		}
		out = append(out, a)
	}
	return out
}
