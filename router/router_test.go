package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/convergio-go/agent"
	"github.com/convergio/convergio-go/core"
)

func availableAgents() []core.AgentMetadata {
	return agent.DefaultRoster()
}

func TestSelectHintWins(t *testing.T) {
	r := New()
	available := availableAgents()

	// The query screams finance, but the hint names the architect.
	queries := []string{
		"what is our budget forecast for revenue and cost",
		"",
		"anything at all",
	}
	for _, q := range queries {
		selected, decision := r.Select(q, available, "Baccio")
		require.NotNil(t, selected)
		assert.Equal(t, agent.KeyTechArchitect, selected.Key)
		assert.Equal(t, "explicit user selection", decision.Reason)
	}

	t.Run("hint is case-insensitive", func(t *testing.T) {
		selected, _ := r.Select("budget question", available, "aMy")
		require.NotNil(t, selected)
		assert.Equal(t, agent.KeyCFO, selected.Key)
	})

	t.Run("unknown hint falls through to scoring", func(t *testing.T) {
		selected, _ := r.Select("what is our budget for the quarter", available, "nobody")
		require.NotNil(t, selected)
		assert.Equal(t, agent.KeyCFO, selected.Key)
	})
}

func TestSelectKeywordScoring(t *testing.T) {
	r := New()
	available := availableAgents()

	cases := []struct {
		query string
		want  string
	}{
		{"review the budget forecast and cost projections", agent.KeyCFO},
		{"design a scalable system architecture for the api", agent.KeyTechArchitect},
		{"we found a security vulnerability in the audit", agent.KeySecurityExpert},
		{"update the project timeline and milestone schedule", agent.KeyProjectManager},
	}
	for _, tc := range cases {
		selected, decision := r.Select(tc.query, available, "")
		require.NotNil(t, selected, tc.query)
		assert.Equal(t, tc.want, selected.Key, tc.query)
		assert.Positive(t, decision.Score)
	}
}

func TestSelectTieBreaksLexicographically(t *testing.T) {
	profiles := agent.Profiles{
		"beta-agent":  {Keywords: []string{"widget"}, Priority: 1},
		"alpha-agent": {Keywords: []string{"widget"}, Priority: 1},
	}
	r := New(func(o *Options) { o.Profiles = profiles })
	available := []core.AgentMetadata{
		{Key: "beta-agent", Name: "Beta"},
		{Key: "alpha-agent", Name: "Alpha"},
	}

	// Equal scores: the lexicographically smaller key must win, regardless
	// of input order.
	selected, _ := r.Select("tell me about the widget", available, "")
	require.NotNil(t, selected)
	assert.Equal(t, "alpha-agent", selected.Key)

	selected, _ = r.Select("tell me about the widget",
		[]core.AgentMetadata{available[1], available[0]}, "")
	require.NotNil(t, selected)
	assert.Equal(t, "alpha-agent", selected.Key)
}

func TestSelectDomainFallbacks(t *testing.T) {
	r := New()
	available := availableAgents()

	cases := []struct {
		query  string
		want   string
		reason string
	}{
		{"how do we handle the invoice for taxes", agent.KeyCFO, "financial domain fallback"},
		{"the deploy hit a bug on the server", agent.KeyTechArchitect, "technical domain fallback"},
		{"hello there", agent.KeyChiefOfStaff, "coordinator fallback"},
	}
	for _, tc := range cases {
		selected, decision := r.Select(tc.query, available, "")
		require.NotNil(t, selected, tc.query)
		assert.Equal(t, tc.want, selected.Key, tc.query)
		assert.Equal(t, tc.reason, decision.Reason, tc.query)
	}
}

func TestSelectEmptyAvailable(t *testing.T) {
	r := New()
	selected, decision := r.Select("anything", nil, "Amy")
	assert.Nil(t, selected)
	assert.Nil(t, decision)
}

func TestSelectFallbackAgentMissing(t *testing.T) {
	r := New()
	// Roster without the coordinator: first agent by key is used.
	available := []core.AgentMetadata{
		{Key: "zeta", Name: "Zeta"},
		{Key: "eta", Name: "Eta"},
	}
	selected, decision := r.Select("hello there", available, "")
	require.NotNil(t, selected)
	assert.Equal(t, "eta", selected.Key)
	assert.Equal(t, "first available", decision.Reason)
}

func TestPanelPicksScoringAgents(t *testing.T) {
	r := New()
	available := availableAgents()

	// Finance and architecture both score; panel order follows score.
	panel := r.Panel("compare the budget cost of the cloud architecture options", available, 3)
	require.NotEmpty(t, panel)
	assert.LessOrEqual(t, len(panel), 3)

	keys := make([]string, len(panel))
	for i, a := range panel {
		keys[i] = a.Key
	}
	assert.Contains(t, keys, agent.KeyCFO)
	assert.Contains(t, keys, agent.KeyTechArchitect)
}

func TestPanelTopsUpWhenNothingScores(t *testing.T) {
	r := New()
	available := []core.AgentMetadata{
		{Key: "zeta", Name: "Zeta"},
		{Key: "eta", Name: "Eta"},
		{Key: "theta", Name: "Theta"},
	}

	// No keywords match: the panel still seats two agents, in key order.
	panel := r.Panel("hello there", available, 3)
	require.Len(t, panel, 2)
	assert.Equal(t, "eta", panel[0].Key)
	assert.Equal(t, "theta", panel[1].Key)
}

func TestPanelHonorsSize(t *testing.T) {
	r := New()
	available := availableAgents()

	panel := r.Panel("budget cost revenue architecture security project marketing", available, 2)
	assert.Len(t, panel, 2)

	assert.Nil(t, r.Panel("anything", nil, 3))
	assert.Nil(t, r.Panel("anything", available, 0))
}

func TestShouldUseSingleAgent(t *testing.T) {
	multi := []string{
		"compare postgres and sqlite for this workload",
		"what are the pros and cons of remote work",
		"I want the team opinion on this hire",
		"let's discuss the pricing change",
		"give me different perspectives on the roadmap",
	}
	for _, q := range multi {
		assert.False(t, ShouldUseSingleAgent(q), q)
	}

	single := []string{
		"what is our Q3 budget",
		"summarize yesterday's standup",
		"how many engineers are on the platform team",
	}
	for _, q := range single {
		assert.True(t, ShouldUseSingleAgent(q), q)
	}
}

func TestMinimumTurns(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"what's the weather", 1},
		{"review this document", 2},
		{"analyze our churn numbers", 3},
		{"plan the migration", 3},
		{"build a forecast for next year", 4},
		{"draft the product roadmap", 4},
		{"comprehensive analysis of the market", 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MinimumTurns(tc.query), tc.query)
	}

	t.Run("floor is never below 1", func(t *testing.T) {
		assert.Equal(t, 1, MinimumTurns(""))
	})
}
