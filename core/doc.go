// Package core provides the foundational domain types and interfaces used by
// Convergio. It defines the core abstractions for:
//
//   - Conversation contents and turns (text and structured tool calls)
//   - Memory entries (typed, scored, access-tracked retrieval units)
//   - Agent metadata (externally loaded persona descriptions)
//   - Pluggable stores for memory entries and conversation records
//   - Cost bookkeeping and per-run call limiting
//
// The package intentionally keeps implementation concerns (persistence,
// orchestration, scoring, concrete model clients) out of scope, exposing
// small interfaces to enable custom backends and isolated testing.
package core
