package memory

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator hands out time-sortable, collision-free entry IDs backed by a
// snowflake node. Safe for concurrent use.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for the given node number (0-1023).
// Deployments running multiple writers against a shared store should give
// each writer a distinct node number.
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("memory: create id generator: %w", err)
	}
	return &IDGenerator{node: node}, nil
}

// Next returns the next ID.
func (g *IDGenerator) Next() string {
	return g.node.Generate().String()
}

var (
	defaultIDsOnce sync.Once
	defaultIDs     *IDGenerator
)

// NewEntryID returns an ID from a shared process-wide generator on node 1.
// Multi-writer deployments should hold their own IDGenerator instead.
func NewEntryID() string {
	defaultIDsOnce.Do(func() {
		// Node 1 is always within the valid node range.
		defaultIDs, _ = NewIDGenerator(1)
	})
	return defaultIDs.Next()
}
