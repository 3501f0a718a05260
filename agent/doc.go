// Package agent manages the set of available agents and their static
// behavior profiles.
//
// Agent metadata (name, persona, tools, expertise) is produced by an
// external definition loader; this package only holds the current snapshot
// in a hot-swappable Registry. Profiles add the orchestration-side knowledge
// the loader does not carry: routing keywords and priorities, focus framing
// for context injection, and per-agent retrieval filters.
package agent
