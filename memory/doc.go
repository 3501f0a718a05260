// Package memory implements the persistence layer for retrievable context:
// a process-local reference store, snowflake entry IDs, rule-based importance
// scoring for new entries, and the retention sweep that ages out stale ones.
//
// The store contracts live in the core package; depend on core.MemoryStore
// and core.ConversationStore in your code and pick an implementation at
// wiring time. Durable backends live in the sqlite and postgres subpackages.
package memory
