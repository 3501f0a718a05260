package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/convergio-go/core"
)

func TestWhereClauseEmpty(t *testing.T) {
	where, args := whereClause(core.MemoryQuery{}, 0)
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestWhereClauseAllFilters(t *testing.T) {
	where, args := whereClause(core.MemoryQuery{
		UserID:         "user-1",
		AgentID:        "amy-cfo",
		ConversationID: "conv-1",
		Types:          []core.MemoryType{core.MemoryTypeKnowledge},
	}, 0)

	assert.Equal(t,
		" WHERE user_id = $1 AND agent_id = $2 AND conversation_id = $3 AND memory_type = ANY($4)",
		where,
	)
	require.Len(t, args, 4)
	assert.Equal(t, "user-1", args[0])
	assert.Equal(t, []string{"knowledge"}, args[3])
}

func TestWhereClauseOffsetReservesPlaceholders(t *testing.T) {
	where, args := whereClause(core.MemoryQuery{UserID: "user-1", AgentID: "amy-cfo"}, 1)

	assert.Equal(t, " WHERE user_id = $2 AND agent_id = $3", where)
	assert.Equal(t, []any{"user-1", "amy-cfo"}, args)
}

func TestVectorConversion(t *testing.T) {
	assert.Nil(t, toVector(nil))
	assert.Nil(t, toVector([]float64{}))
	assert.Nil(t, fromVector(nil))

	vec := toVector([]float64{0.5, -0.25})
	require.NotNil(t, vec)
	back := fromVector(vec)
	require.Len(t, back, 2)
	assert.InDelta(t, 0.5, back[0], 1e-6)
	assert.InDelta(t, -0.25, back[1], 1e-6)
}
