// Package convergio provides a high-level façade over the orchestration
// pipeline (agent registry, decision planning, routing, per-turn retrieval
// injection, the group-chat runner, metrics and persistence). Most
// applications interact with this package by:
//  1. Creating a Convergio via New() with a model client, optionally
//     overriding the roster, stores, tools and retrieval wiring
//  2. Asking questions with Converse, reusing the returned conversation id
//     for follow-ups
//  3. Registering extra agents or tools at runtime as the roster evolves
//
// The façade delegates pipeline work to orchestrator.Orchestrator while
// keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply durable
// stores, an embedding provider and a structured logger.
package convergio

import (
	"context"
	"time"

	"github.com/convergio/convergio-go/agent"
	"github.com/convergio/convergio-go/config"
	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/decision"
	"github.com/convergio/convergio-go/embedding"
	"github.com/convergio/convergio-go/groupchat"
	"github.com/convergio/convergio-go/logging"
	"github.com/convergio/convergio-go/memory"
	"github.com/convergio/convergio-go/metrics"
	"github.com/convergio/convergio-go/model"
	"github.com/convergio/convergio-go/orchestrator"
	"github.com/convergio/convergio-go/rag"
	"github.com/convergio/convergio-go/tool"
)

// Request and Result are re-exported so callers assemble conversations
// without importing the orchestrator package.
type (
	Request = orchestrator.Request
	Result  = orchestrator.Result
)

// Options configures the Convergio instance.
type Options struct {
	// Config supplies the tunables normally read from the environment:
	// turn ceiling, run timeout, termination marker, cache lifetimes and
	// the blended cost rate. Nil uses config.Default(); the explicit
	// options below win over config values.
	Config *config.Config

	// Agents is the starting roster. Defaults to the built-in seven-agent
	// roster.
	Agents []core.AgentMetadata

	// Profiles drive per-agent retrieval filtering and focus areas.
	// Defaults to the profiles matching the built-in roster.
	Profiles agent.Profiles

	// Tools are registered with the executor and exposed to every agent.
	Tools []tool.Tool

	// Embedder enables semantic retrieval scoring. Nil falls back to
	// token-overlap relevance.
	Embedder embedding.Provider

	// Conversations persists transcripts and cost. Defaults to a shared
	// in-memory store.
	Conversations core.ConversationStore

	// Memories backs retrieval and receives per-turn conversation
	// memories. Defaults to the same in-memory store.
	Memories core.MemoryStore

	// Timeout overrides the runner's default per-conversation wall clock.
	Timeout time.Duration

	// ModelRates overrides the blended USD rate per 1000 tokens for
	// specific model names.
	ModelRates map[string]float64

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Convergio is the high-level façade aggregating the orchestrator and the
// retrieval and tool wiring it runs on.
type Convergio struct {
	registry     *agent.Registry
	injector     *rag.Injector
	executor     *tool.Executor
	orchestrator *orchestrator.Orchestrator
}

// New creates a Convergio instance over the model client with optional
// overrides. Any unset store is initialized with a shared in-memory
// implementation. It fails only when the starting roster carries invalid
// agent metadata.
func New(m model.Model, optFns ...func(o *Options)) (*Convergio, error) {
	opts := Options{
		Agents:   agent.DefaultRoster(),
		Profiles: agent.DefaultProfiles(),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Conversations == nil || opts.Memories == nil {
		shared := memory.NewInMemoryStore()
		if opts.Conversations == nil {
			opts.Conversations = shared
		}
		if opts.Memories == nil {
			opts.Memories = shared
		}
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	registry, err := agent.NewRegistry(opts.Agents...)
	if err != nil {
		return nil, err
	}

	engine := decision.NewEngine(func(o *decision.Options) {
		o.Model = cfg.ModelID
		o.MaxTurns = cfg.MaxTurns
		o.TotalBudgetUSD = cfg.TotalBudgetUSD
		o.Logger = opts.Logger
	})

	processor := rag.NewProcessor(opts.Memories, opts.Embedder, func(o *rag.ProcessorOptions) {
		o.CacheTTL = cfg.RAGCacheTTL
		o.Logger = opts.Logger
	})
	injector := rag.NewInjector(processor, opts.Profiles, func(o *rag.InjectorOptions) {
		o.Disabled = !cfg.PerTurnRAGEnabled
		o.CacheTTL = cfg.InjectorCacheTTL
		o.Logger = opts.Logger
	})
	executor := tool.NewExecutor(opts.Tools, func(o *tool.ExecutorOptions) {
		o.Logger = opts.Logger
	})

	runner := groupchat.NewRunner(m, func(o *groupchat.RunnerOptions) {
		o.MaxTurns = cfg.MaxTurns
		o.Timeout = cfg.RunTimeout
		o.TerminationMarkers = []string{cfg.TerminationMarker}
		o.MaxModelCalls = cfg.MaxModelCalls
		o.Injector = injector
		o.Executor = executor
		o.Logger = opts.Logger
		if opts.Timeout > 0 {
			o.Timeout = opts.Timeout
		}
	})

	extractor := metrics.NewExtractor(func(o *metrics.ExtractorOptions) {
		o.RatePer1K = cfg.CostPer1KTokens
		o.Logger = opts.Logger
		if opts.ModelRates != nil {
			o.ModelRates = opts.ModelRates
		}
	})

	orch := orchestrator.New(m, registry, func(o *orchestrator.Options) {
		o.Engine = engine
		o.Runner = runner
		o.Extractor = extractor
		o.Conversations = opts.Conversations
		o.Memories = opts.Memories
		o.Logger = opts.Logger
	})

	return &Convergio{
		registry:     registry,
		injector:     injector,
		executor:     executor,
		orchestrator: orch,
	}, nil
}

// NewFromEnv creates a Convergio instance configured from CONVERGIO_*
// environment variables. Explicit options still win over the environment.
func NewFromEnv(m model.Model, optFns ...func(o *Options)) (*Convergio, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	withCfg := append([]func(o *Options){func(o *Options) { o.Config = cfg }}, optFns...)
	return New(m, withCfg...)
}

// Converse runs one orchestrated exchange for a user message and returns
// the structured result. Reuse Result.ConversationID on the next call to
// stay in the same conversation.
func (c *Convergio) Converse(ctx context.Context, req Request) (*Result, error) {
	return c.orchestrator.OrchestrateConversation(ctx, req)
}

// Healthy reports whether the instance can serve conversations.
func (c *Convergio) Healthy() bool { return c.orchestrator.Healthy() }

// RegisterAgent adds or replaces an agent in the roster.
func (c *Convergio) RegisterAgent(a core.AgentMetadata) error { return c.registry.Upsert(a) }

// RemoveAgent removes an agent from the roster by key.
func (c *Convergio) RemoveAgent(key string) { c.registry.Remove(key) }

// Agents returns the current roster sorted by key.
func (c *Convergio) Agents() []core.AgentMetadata { return c.registry.List() }

// RegisterTool exposes additional tools to every agent.
func (c *Convergio) RegisterTool(tools ...tool.Tool) error { return c.executor.Register(tools...) }

// EndConversation releases the in-process scratchpad kept for a
// conversation. Persisted transcript and memories are unaffected.
func (c *Convergio) EndConversation(conversationID string) {
	c.injector.EndConversation(conversationID)
}
