package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
	assert.Equal(t, "héll...", Truncate("héllo wörld", 4))
}

func TestContentHash(t *testing.T) {
	a := ContentHash("The Budget   was Approved")
	b := ContentHash("the budget was approved")
	c := ContentHash("the budget was rejected")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.3, Clamp(0.1, 0.3, 0.9))
	assert.Equal(t, 0.9, Clamp(1.5, 0.3, 0.9))
	assert.Equal(t, 0.5, Clamp(0.5, 0.3, 0.9))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t,
		[]string{"web_search", "vector_search"},
		UniqueStrings([]string{"web_search", "vector_search", "web_search"}),
	)
	assert.Empty(t, UniqueStrings(nil))
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
			"limit": map[string]any{"type": "integer"},
			"scope": map[string]any{"type": "string", "enum": []any{"internal", "external"}},
		},
		"required": []string{"query"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"query": "revenue"}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"query": "revenue", "limit": float64(3)}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	assert.Error(t, err)

	err = ValidateParameters(map[string]any{"query": 42}, schema)
	assert.Error(t, err)

	err = ValidateParameters(map[string]any{"query": "x", "scope": "everywhere"}, schema)
	assert.Error(t, err)
}

func TestCreateSchema(t *testing.T) {
	type args struct {
		Query string  `json:"query" description:"Search query"`
		Limit int     `json:"limit,omitempty"`
		Score float64 `json:"score"`
	}

	schema := CreateSchema(args{})

	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")

	required, ok := schema["required"].([]string)
	assert.True(t, ok)
	assert.Contains(t, required, "query")
	assert.Contains(t, required, "score")
	assert.NotContains(t, required, "limit")

	// the schema it generates passes its own validator
	assert.NoError(t, ValidateParameters(map[string]any{"query": "x", "score": 0.5}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"score": 0.5}, schema))
}
