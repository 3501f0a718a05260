package core

import "errors"

// Sentinel errors shared across packages. Callers match with errors.Is.
var (
	// ErrNotFound indicates a store lookup for a missing key.
	ErrNotFound = errors.New("not found")

	// ErrNoAgents indicates a run was requested with zero resolvable
	// participants. Runs fail fast on this rather than executing silently.
	ErrNoAgents = errors.New("no agents available")

	// ErrUnresolvedToolCalls indicates a transcript ended on a tool-call
	// payload that was never executed to text. This is a deliberate hard
	// error: fabricating a final answer would hide an integration bug.
	ErrUnresolvedToolCalls = errors.New("final content is an unresolved tool-call payload")

	// ErrCallLimitExceeded indicates a run exceeded its model call budget.
	ErrCallLimitExceeded = errors.New("model call limit exceeded")

	// ErrUnhealthy indicates the orchestrator is missing a model client or a
	// viable agent set and refuses to serve conversations. Callers treat it
	// as service unavailable, not as a retryable condition.
	ErrUnhealthy = errors.New("orchestrator unhealthy")
)
