// Package metrics post-processes a finished conversation transcript into
// the values callers report on: the final response text, the set of
// participating agents, and a token/cost estimate.
//
// Final-response extraction is the one place this codebase intentionally
// hard-fails: a transcript whose last entry is an unexecuted tool-call
// payload signals an integration bug, and surfacing it beats fabricating an
// empty answer.
package metrics

import (
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/logging"
)

// heuristicTokensPerChar approximates tokens from text length when the
// exact tokenizer is unavailable.
const heuristicTokensPerChar = 0.75

// defaultRatePer1K is the blended USD rate applied per 1000 tokens when no
// model-specific rate is configured.
const defaultRatePer1K = 0.002

var (
	enc     *tiktoken.Tiktoken
	encOnce sync.Once
)

// encoding lazily loads the cl100k_base tokenizer. The BPE table is fetched
// on first use and loading can fail offline; callers fall back to the
// character heuristic when it does.
func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		loaded, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return
		}
		enc = loaded
	})
	return enc
}

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	// RatePer1K is the blended USD cost applied per 1000 tokens. Defaults
	// to 0.002.
	RatePer1K float64

	// ModelRates maps model names to per-1000-token USD rates, overriding
	// RatePer1K for runs that report their model via CostForModel.
	ModelRates map[string]float64

	// TokenCounter overrides the built-in counter. The default counts exact
	// cl100k_base tokens when the encoding loads and estimates at ~0.75
	// tokens per character otherwise.
	TokenCounter func(text string) int

	// Logger receives extraction telemetry. Defaults to the no-op logger.
	Logger logging.Logger
}

// Summary bundles the reportable outputs of one finished run.
type Summary struct {
	FinalResponse string             `json:"final_response"`
	AgentsUsed    []string           `json:"agents_used"`
	Cost          core.CostBreakdown `json:"cost"`
}

// Extractor derives final response, participants and cost from a finished
// transcript. Safe for concurrent use.
type Extractor struct {
	rate   float64
	rates  map[string]float64
	count  func(text string) int
	logger logging.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(optFns ...func(o *ExtractorOptions)) *Extractor {
	options := ExtractorOptions{
		RatePer1K: defaultRatePer1K,
	}

	for _, fn := range optFns {
		fn(&options)
	}

	count := options.TokenCounter
	if count == nil {
		count = CountTokens
	}

	return &Extractor{
		rate:   options.RatePer1K,
		rates:  options.ModelRates,
		count:  count,
		logger: logging.OrNoop(options.Logger),
	}
}

// Extract produces the full summary for a finished transcript. It fails
// exactly when FinalResponse fails.
func (e *Extractor) Extract(transcript core.Transcript) (*Summary, error) {
	response, err := e.FinalResponse(transcript)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		FinalResponse: response,
		AgentsUsed:    e.AgentsUsed(transcript),
		Cost:          e.Cost(transcript),
	}
	e.logger.Debug("metrics.extract",
		"agents", len(summary.AgentsUsed),
		"tokens", summary.Cost.Tokens,
		"cost_usd", summary.Cost.CostUSD,
	)
	return summary, nil
}

// FinalResponse returns the text of the last transcript entry, exactly as
// produced. It returns core.ErrUnresolvedToolCalls when that entry is a
// tool-call payload that never resolved to text: skipping tool execution is
// a bug worth surfacing, not papering over with an empty answer.
func (e *Extractor) FinalResponse(transcript core.Transcript) (string, error) {
	last, ok := transcript.Last()
	if !ok {
		return "", fmt.Errorf("metrics: empty transcript")
	}
	if !last.Content.IsResolved() {
		return "", fmt.Errorf("final transcript entry has %d unresolved tool calls: %w",
			len(last.Content.ToolCalls), core.ErrUnresolvedToolCalls)
	}
	return last.Content.Text, nil
}

// AgentsUsed returns the unique agent keys that produced at least one turn,
// in first-seen order, excluding the synthetic "user" source.
func (e *Extractor) AgentsUsed(transcript core.Transcript) []string {
	var keys []string
	for _, key := range transcript.Agents() {
		if key == core.RoleUser {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// Cost estimates the run's token volume and spend at the blended rate. The
// token count covers the combined input and output: every turn's text plus
// any tool-call argument payloads.
func (e *Extractor) Cost(transcript core.Transcript) core.CostBreakdown {
	return e.cost(transcript, e.rate)
}

// CostForModel estimates cost using the configured rate for the named
// model, falling back to the blended rate for unknown models.
func (e *Extractor) CostForModel(transcript core.Transcript, model string) core.CostBreakdown {
	rate := e.rate
	if r, ok := e.rates[model]; ok {
		rate = r
	}
	return e.cost(transcript, rate)
}

func (e *Extractor) cost(transcript core.Transcript, rate float64) core.CostBreakdown {
	tokens := 0
	for _, turn := range transcript {
		tokens += e.count(turn.Content.Text)
		for _, call := range turn.Content.ToolCalls {
			tokens += e.count(call.Arguments)
		}
	}

	return core.CostBreakdown{
		Tokens:   tokens,
		CostUSD:  float64(tokens) / 1000.0 * rate,
		Currency: "USD",
	}
}

// CountTokens counts the tokens in text: exact cl100k_base counts when the
// encoding loads, the character heuristic otherwise.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if tk := encoding(); tk != nil {
		return len(tk.Encode(text, nil, nil))
	}
	return heuristicTokens(text)
}

// heuristicTokens estimates ~0.75 tokens per character, never returning
// zero for non-empty text.
func heuristicTokens(text string) int {
	if text == "" {
		return 0
	}
	n := int(math.Ceil(float64(utf8.RuneCountInString(text)) * heuristicTokensPerChar))
	if n < 1 {
		n = 1
	}
	return n
}
