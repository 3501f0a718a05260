// Package groupchat drives bounded multi-agent conversation runs: per-turn
// context injection, streaming model completions, synchronous tool execution
// and explicit termination control.
//
// A run walks a small state machine: INIT resolves the participants (zero
// participants fail fast), RUNNING executes turns round-robin, and the run
// ends in exactly one terminal state: the turn budget was exhausted, a
// termination marker appeared, the wall-clock budget expired (the partial
// transcript is still returned), or every execution path failed and the
// caller receives an apology result instead of an error.
//
// When exactly one agent is selected the runner skips the group machinery
// and streams that agent directly; if the attempt produces tool calls but
// never clean text, the runner escalates to a full group run of the same
// message and records the escalation in the routing trail.
package groupchat
