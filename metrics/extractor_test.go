package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/internal/testutil"
)

func userTurn(text string) core.Turn {
	return testutil.NewTurnBuilder().UserText(text).Build()
}

func agentTurn(number int, agent, text string) core.Turn {
	return testutil.NewTurnBuilder().Number(number).Agent(agent).AgentText(text).Build()
}

func TestFinalResponseReturnsLastTextExactly(t *testing.T) {
	e := NewExtractor()
	transcript := core.Transcript{
		userTurn("What is our runway?"),
		agentTurn(1, "amy-cfo", "Eighteen months."),
		agentTurn(2, "amy-cfo", "  Final: 18 months.\nWith hiring freeze: 22.  "),
	}

	response, err := e.FinalResponse(transcript)
	require.NoError(t, err)
	assert.Equal(t, "  Final: 18 months.\nWith hiring freeze: 22.  ", response)
}

func TestFinalResponseFailsOnUnresolvedToolCalls(t *testing.T) {
	e := NewExtractor()
	transcript := core.Transcript{
		userTurn("Crunch the numbers."),
		testutil.NewTurnBuilder().Number(1).Agent("amy-cfo").
			ToolCall("call-1", "analytics", "{}").Build(),
	}

	response, err := e.FinalResponse(transcript)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnresolvedToolCalls)
	assert.Empty(t, response)

	_, err = e.Extract(transcript)
	assert.ErrorIs(t, err, core.ErrUnresolvedToolCalls)
}

func TestFinalResponseAcceptsResolvedToolCalls(t *testing.T) {
	e := NewExtractor()
	transcript := core.Transcript{
		userTurn("Crunch the numbers."),
		testutil.NewTurnBuilder().Number(1).Agent("amy-cfo").
			ToolCall("call-1", "analytics", "{}").AgentText("Revenue grew 12%.").Build(),
	}

	response, err := e.FinalResponse(transcript)
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12%.", response)
}

func TestFinalResponseEmptyTranscript(t *testing.T) {
	e := NewExtractor()
	_, err := e.FinalResponse(nil)
	assert.Error(t, err)
}

func TestAgentsUsedExcludesUser(t *testing.T) {
	e := NewExtractor()
	transcript := core.Transcript{
		userTurn("Align on the plan."),
		agentTurn(1, "amy-cfo", "Budget looks fine."),
		agentTurn(2, "baccio-tech-architect", "Architecture holds."),
		agentTurn(3, "amy-cfo", "Approved."),
	}

	assert.Equal(t, []string{"amy-cfo", "baccio-tech-architect"}, e.AgentsUsed(transcript))
	assert.Empty(t, e.AgentsUsed(core.Transcript{userTurn("hello")}))
}

func TestCostUsesConfiguredRate(t *testing.T) {
	e := NewExtractor(func(o *ExtractorOptions) {
		o.RatePer1K = 2.0
		o.TokenCounter = func(text string) int { return len(text) }
	})
	transcript := core.Transcript{
		userTurn("abcde"),
		agentTurn(1, "amy-cfo", "xyz"),
	}

	cost := e.Cost(transcript)
	assert.Equal(t, 8, cost.Tokens)
	assert.InDelta(t, 0.016, cost.CostUSD, 1e-9)
	assert.Equal(t, "USD", cost.Currency)
}

func TestCostCountsToolCallArguments(t *testing.T) {
	e := NewExtractor(func(o *ExtractorOptions) {
		o.TokenCounter = func(text string) int { return len(text) }
	})
	transcript := core.Transcript{
		testutil.NewTurnBuilder().Number(1).Agent("amy-cfo").
			ToolCall("call-1", "analytics", `{"q":1}`).Build(),
	}

	assert.Equal(t, 7, e.Cost(transcript).Tokens)
}

func TestCostForModelOverridesBlendedRate(t *testing.T) {
	e := NewExtractor(func(o *ExtractorOptions) {
		o.RatePer1K = 1.0
		o.ModelRates = map[string]float64{"gpt-4o": 10.0}
		o.TokenCounter = func(text string) int { return len(text) }
	})
	transcript := core.Transcript{agentTurn(1, "amy-cfo", "abcd")}

	blended := e.CostForModel(transcript, "unknown-model")
	assert.InDelta(t, 0.004, blended.CostUSD, 1e-9)

	premium := e.CostForModel(transcript, "gpt-4o")
	assert.InDelta(t, 0.04, premium.CostUSD, 1e-9)
	assert.Equal(t, blended.Tokens, premium.Tokens)
}

func TestExtractBundlesSummary(t *testing.T) {
	e := NewExtractor(func(o *ExtractorOptions) {
		o.TokenCounter = func(text string) int { return len(text) }
	})
	transcript := core.Transcript{
		userTurn("Status?"),
		agentTurn(1, "amy-cfo", "On track."),
	}

	summary, err := e.Extract(transcript)
	require.NoError(t, err)
	assert.Equal(t, "On track.", summary.FinalResponse)
	assert.Equal(t, []string{"amy-cfo"}, summary.AgentsUsed)
	assert.Equal(t, "USD", summary.Cost.Currency)
	assert.Equal(t, len("Status?")+len("On track."), summary.Cost.Tokens)
}

func TestHeuristicTokens(t *testing.T) {
	assert.Equal(t, 0, heuristicTokens(""))
	assert.Equal(t, 1, heuristicTokens("a"))
	assert.Equal(t, 3, heuristicTokens("abcd"))
	assert.Equal(t, 4, heuristicTokens("héllo"))
}

func TestCountTokensNonEmpty(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Greater(t, CountTokens("hello world"), 0)
}
