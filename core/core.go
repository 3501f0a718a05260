package core

import "github.com/google/uuid"

// NewID returns a new unique identifier. Used for conversation and run IDs.
func NewID() string {
	return uuid.NewString()
}
