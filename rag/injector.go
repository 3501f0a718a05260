package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/convergio/convergio-go/agent"
	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/internal/cache"
	"github.com/convergio/convergio-go/internal/util"
	"github.com/convergio/convergio-go/logging"
)

const (
	// scratchNoteChars truncates each per-turn scratchpad note.
	scratchNoteChars = 100

	// scratchKeep bounds how many notes a conversation accumulates.
	scratchKeep = 20

	// scratchShown is how many recent notes a turn sees.
	scratchShown = 3
)

// TurnRequest describes one agent turn about to run.
type TurnRequest struct {
	ConversationID string
	UserID         string
	AgentKey       string
	AgentTier      core.AgentTier
	TurnNumber     int
	Message        string
	History        []string
}

// InjectorOptions configure an Injector.
type InjectorOptions struct {
	// Disabled turns injection off; Inject returns messages unchanged.
	Disabled bool

	// MaxHistory is how many recent history entries widen the retrieval
	// query, each truncated to HistoryTruncate characters. Defaults 5/200.
	MaxHistory      int
	HistoryTruncate int

	// LateTurnAfter is the turn number past which the recency-favoring
	// weight blend takes over. Defaults to 3.
	LateTurnAfter int

	// TopFacts and TopDiscussion size the injected sections. Default 3/2.
	TopFacts      int
	TopDiscussion int

	// CacheTTL bounds how long an enhanced message is reused for identical
	// turns. Defaults to 60 seconds; <= 0 disables the cache.
	CacheTTL time.Duration

	// Conflicts overrides the default conflict detector.
	Conflicts *ConflictDetector

	// Logger receives injection telemetry. Defaults to a no-op.
	Logger logging.Logger
}

// Injector augments each turn's message with retrieved context, discussion
// recall, conflict alerts and the agent's focus framing. Injection is
// strictly best-effort: whatever goes wrong, the caller gets back a usable
// message.
type Injector struct {
	processor *Processor
	profiles  agent.Profiles
	conflicts *ConflictDetector
	options   InjectorOptions
	logger    logging.Logger
	cache     *cache.Expiring[string, string]
	scratch   *scratchpad
}

// NewInjector creates an Injector over the processor. The profile table
// supplies per-agent focus, considerations and retrieval tuning; agents
// without a profile still get context injection, just no framing.
func NewInjector(processor *Processor, profiles agent.Profiles, optFns ...func(o *InjectorOptions)) *Injector {
	options := InjectorOptions{
		MaxHistory:      5,
		HistoryTruncate: 200,
		LateTurnAfter:   3,
		TopFacts:        3,
		TopDiscussion:   2,
		CacheTTL:        time.Minute,
	}

	for _, fn := range optFns {
		fn(&options)
	}

	conflicts := options.Conflicts
	if conflicts == nil {
		conflicts = NewConflictDetector()
	}

	return &Injector{
		processor: processor,
		profiles:  profiles,
		conflicts: conflicts,
		options:   options,
		logger:    logging.OrNoop(options.Logger),
		cache:     cache.New[string, string](options.CacheTTL),
		scratch:   newScratchpad(scratchKeep),
	}
}

// Inject returns the turn's message augmented with retrieved context. It
// never fails: when injection is disabled or anything goes wrong internally,
// the original message comes back untouched and the turn proceeds without
// enhancement.
func (i *Injector) Inject(ctx context.Context, req TurnRequest) string {
	if i.options.Disabled || strings.TrimSpace(req.Message) == "" {
		return req.Message
	}

	key := i.cacheKey(req)
	if cached, ok := i.cache.Get(key); ok {
		return cached
	}

	enhanced, err := i.enhance(ctx, req)

	// The scratchpad logs this turn's opening either way; enhancement of
	// later turns should recall it even if this one ran bare.
	i.scratch.add(req.ConversationID, fmt.Sprintf("turn %d: %s",
		req.TurnNumber, util.Truncate(req.Message, scratchNoteChars)))

	if err != nil {
		i.logger.Warn("rag.inject_failed",
			"conversation_id", req.ConversationID,
			"agent", req.AgentKey,
			"turn", req.TurnNumber,
			"error", err,
		)
		return req.Message
	}

	i.cache.Set(key, enhanced)

	return enhanced
}

// EndConversation releases per-conversation injection state.
func (i *Injector) EndConversation(conversationID string) {
	i.scratch.drop(conversationID)
}

func (i *Injector) enhance(ctx context.Context, req TurnRequest) (string, error) {
	profile, hasProfile := i.profiles.For(req.AgentKey)

	var weights *Weights
	if req.TurnNumber > i.options.LateTurnAfter {
		w := LateTurnWeights()
		weights = &w
	}

	contexts, err := i.processor.Retrieve(ctx, Query{
		UserID:                     req.UserID,
		AgentKey:                   req.AgentKey,
		AgentTier:                  req.AgentTier,
		Text:                       i.combinedQuery(req),
		Limit:                      i.options.TopFacts + i.options.TopDiscussion,
		TurnNumber:                 req.TurnNumber,
		Weights:                    weights,
		Filter:                     profile.Retrieval,
		IncludeConversationHistory: true,
		IncludeKnowledgeBase:       true,
	})
	if err != nil {
		return "", err
	}

	conflicts := i.conflicts.Detect(req.History, req.Message)

	return i.compose(req, profile, hasProfile, contexts, conflicts), nil
}

// combinedQuery widens retrieval with recent turns so follow-ups like
// "what about the budget?" still match the earlier subject matter.
func (i *Injector) combinedQuery(req TurnRequest) string {
	parts := make([]string, 0, i.options.MaxHistory+1)
	parts = append(parts, req.Message)

	start := len(req.History) - i.options.MaxHistory
	if start < 0 {
		start = 0
	}
	for _, h := range req.History[start:] {
		parts = append(parts, util.Truncate(h, i.options.HistoryTruncate))
	}

	return strings.Join(parts, "\n")
}

func (i *Injector) compose(req TurnRequest, profile agent.Profile, hasProfile bool, contexts []Context, conflicts []Conflict) string {
	facts := contexts
	if len(facts) > i.options.TopFacts {
		facts = facts[:i.options.TopFacts]
	}

	sections := []string{req.Message}

	if len(facts) > 0 {
		sections = append(sections, listSection("Relevant Context", factLines(facts)))
	}

	if req.TurnNumber > 1 {
		if discussion := discussionPoints(contexts, facts, i.options.TopDiscussion); len(discussion) > 0 {
			sections = append(sections, listSection("Previous Discussion Points", factLines(discussion)))
		}

		if notes := i.scratch.recent(req.ConversationID, scratchShown); len(notes) > 0 {
			sections = append(sections, listSection("Turn Notes", notes))
		}
	}

	var considerations []string
	if insight := turnInsight(req.TurnNumber); insight != "" {
		considerations = append(considerations, insight)
	}
	if insight := ConflictInsight(conflicts); insight != "" {
		considerations = append(considerations, insight)
	}
	if hasProfile {
		considerations = append(considerations, profile.Considerations...)
	}
	if len(considerations) > 0 {
		sections = append(sections, listSection("Considerations", considerations))
	}

	if hasProfile && profile.Focus != "" {
		sections = append(sections, "Focus Area: "+profile.Focus)
	}

	if len(sections) == 1 {
		return req.Message
	}
	return strings.Join(sections, "\n\n")
}

func factLines(contexts []Context) []string {
	lines := make([]string, len(contexts))
	for i, c := range contexts {
		lines[i] = util.Truncate(c.Content, maxItemChars)
	}
	return lines
}

func listSection(heading string, items []string) string {
	var b strings.Builder
	b.WriteString(heading + ":")
	for _, item := range items {
		b.WriteString("\n- " + item)
	}
	return b.String()
}

// discussionPoints picks conversation memories beyond the headline facts so
// the section recalls earlier turns instead of repeating them.
func discussionPoints(contexts, facts []Context, n int) []Context {
	used := make(map[string]struct{}, len(facts))
	for _, f := range facts {
		used[f.ID] = struct{}{}
	}

	var out []Context
	for _, c := range contexts {
		if len(out) == n {
			break
		}
		if c.MemoryType != core.MemoryTypeConversation {
			continue
		}
		if _, ok := used[c.ID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

func turnInsight(turn int) string {
	switch {
	case turn >= 8:
		return fmt.Sprintf("This is turn %d; summarize the thread and close out open points", turn)
	case turn >= 5:
		return fmt.Sprintf("This is turn %d; converge on a recommendation", turn)
	case turn > 1:
		return fmt.Sprintf("This is turn %d; build on earlier points rather than restating them", turn)
	default:
		return ""
	}
}

func (i *Injector) cacheKey(req TurnRequest) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s",
		req.ConversationID, req.UserID, req.AgentKey, req.TurnNumber,
		util.Truncate(req.Message, 80))
}

// scratchpad keeps a short per-conversation log of turn openings. Advisory
// only: it feeds continuity hints, never authoritative state.
type scratchpad struct {
	mu    sync.Mutex
	max   int
	notes map[string][]string
}

func newScratchpad(max int) *scratchpad {
	return &scratchpad{
		max:   max,
		notes: make(map[string][]string),
	}
}

func (s *scratchpad) add(conversationID, note string) {
	if conversationID == "" || note == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notes := append(s.notes[conversationID], note)
	if len(notes) > s.max {
		notes = notes[len(notes)-s.max:]
	}
	s.notes[conversationID] = notes
}

func (s *scratchpad) recent(conversationID string, n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes := s.notes[conversationID]
	if len(notes) > n {
		notes = notes[len(notes)-n:]
	}

	return append([]string(nil), notes...)
}

func (s *scratchpad) drop(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, conversationID)
}
