package core

import "fmt"

// AgentTier groups agents by organizational altitude. The retrieval
// pipeline uses it to tune the dynamic relevance threshold: strategic
// agents face a harder bar than operational ones.
type AgentTier string

// Known agent tiers. An empty tier is treated as operational.
const (
	TierStrategic   AgentTier = "strategic"
	TierOperational AgentTier = "operational"
	TierSupport     AgentTier = "support"
)

// AgentMetadata is the static description of an available agent, produced
// by an external definition loader and consumed by the router and runner.
// Key is the unique, stable identity used to address the agent; it must
// survive metadata reloads unchanged.
type AgentMetadata struct {
	Key               string    `json:"key"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Persona           string    `json:"persona"`
	Tools             []string  `json:"tools,omitempty"`
	ExpertiseKeywords []string  `json:"expertise_keywords,omitempty"`
	Tier              AgentTier `json:"tier,omitempty"`
}

// Validate checks that the metadata is addressable.
func (a AgentMetadata) Validate() error {
	if a.Key == "" {
		return fmt.Errorf("agent metadata: missing key")
	}
	if a.Name == "" {
		return fmt.Errorf("agent metadata %s: missing name", a.Key)
	}
	return nil
}
