package rag

import (
	"math"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/internal/util"
)

// DynamicThreshold computes the per-turn relevance bar:
//
//	base * tierMultiplier * decay^turn, clamped to [Min, Max]
//
// Strategic agents get a harder bar than operational ones, and the bar
// relaxes as a conversation progresses so later turns can draw on weaker
// context instead of going silent.
type DynamicThreshold struct {
	Base            float64
	TierMultipliers map[core.AgentTier]float64
	TurnDecay       float64
	Min             float64
	Max             float64
}

// DefaultDynamicThreshold returns the standard bar configuration.
func DefaultDynamicThreshold() DynamicThreshold {
	return DynamicThreshold{
		Base: 0.5,
		TierMultipliers: map[core.AgentTier]float64{
			core.TierStrategic:   1.2,
			core.TierOperational: 1.0,
			core.TierSupport:     0.9,
		},
		TurnDecay: 0.9,
		Min:       0.3,
		Max:       0.9,
	}
}

// Calculate returns the effective threshold for an agent tier at the given
// turn number. Unknown tiers are treated as operational; negative turns as
// turn zero.
func (t DynamicThreshold) Calculate(tier core.AgentTier, turn int) float64 {
	mult, ok := t.TierMultipliers[tier]
	if !ok {
		mult = 1.0
	}
	if turn < 0 {
		turn = 0
	}
	raw := t.Base * mult * math.Pow(t.TurnDecay, float64(turn))
	return util.Clamp(raw, t.Min, t.Max)
}
