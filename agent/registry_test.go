package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/convergio-go/core"
)

func TestRegistrySetAll(t *testing.T) {
	reg, err := NewRegistry(DefaultRoster()...)
	require.NoError(t, err)
	assert.Equal(t, 7, reg.Len())

	t.Run("hot swap replaces the full set", func(t *testing.T) {
		next := []core.AgentMetadata{
			{Key: "amy-cfo", Name: "Amy", Description: "updated"},
			{Key: "new-agent", Name: "Nova"},
		}
		require.NoError(t, reg.SetAll(next))

		assert.Equal(t, 2, reg.Len())
		a, ok := reg.Get("amy-cfo")
		require.True(t, ok)
		assert.Equal(t, "updated", a.Description)

		_, ok = reg.Get("ali-chief-of-staff")
		assert.False(t, ok)
	})

	t.Run("invalid metadata rejected", func(t *testing.T) {
		err := reg.SetAll([]core.AgentMetadata{{Key: "", Name: "Ghost"}})
		assert.Error(t, err)
	})

	t.Run("duplicate keys rejected", func(t *testing.T) {
		err := reg.SetAll([]core.AgentMetadata{
			{Key: "dup", Name: "One"},
			{Key: "dup", Name: "Two"},
		})
		assert.Error(t, err)
	})
}

func TestRegistryGetByName(t *testing.T) {
	reg, err := NewRegistry(DefaultRoster()...)
	require.NoError(t, err)

	a, ok := reg.GetByName("amy")
	require.True(t, ok)
	assert.Equal(t, KeyCFO, a.Key)

	a, ok = reg.GetByName("BACCIO-TECH-ARCHITECT")
	require.True(t, ok)
	assert.Equal(t, KeyTechArchitect, a.Key)

	_, ok = reg.GetByName("nobody")
	assert.False(t, ok)
}

func TestRegistryListOrderStable(t *testing.T) {
	reg, err := NewRegistry(DefaultRoster()...)
	require.NoError(t, err)

	keys := reg.Keys()
	list := reg.List()
	require.Len(t, list, len(keys))
	for i, a := range list {
		assert.Equal(t, keys[i], a.Key)
	}
	assert.IsIncreasing(t, keys)
}

func TestRegistryUpsertRemove(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	require.NoError(t, reg.Upsert(core.AgentMetadata{Key: "x", Name: "X"}))
	assert.Equal(t, 1, reg.Len())

	assert.Error(t, reg.Upsert(core.AgentMetadata{Key: "y"}))

	reg.Remove("x")
	assert.Equal(t, 0, reg.Len())
}

func TestDefaultProfilesCoverRoster(t *testing.T) {
	profiles := DefaultProfiles()
	for _, a := range DefaultRoster() {
		prof, ok := profiles.For(a.Key)
		require.True(t, ok, "missing profile for %s", a.Key)
		assert.NotEmpty(t, prof.Keywords, "profile %s has no routing keywords", a.Key)
		assert.NotEmpty(t, prof.Focus, "profile %s has no focus", a.Key)
		assert.Equal(t, prof.Tools, a.Tools)
	}
}

func TestRetrievalFilterZero(t *testing.T) {
	assert.True(t, RetrievalFilter{}.Zero())
	assert.False(t, RetrievalFilter{MaxFacts: 3}.Zero())
	assert.False(t, RetrievalFilter{ExcludedTypes: []core.MemoryType{core.MemoryTypeContext}}.Zero())
}
