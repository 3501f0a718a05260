// Package sqlite provides a file-backed MemoryStore and ConversationStore on
// top of mattn/go-sqlite3. Embeddings are stored as JSON text and similarity
// is computed in process over a table scan, which keeps the backend free of
// native vector extensions and is plenty for stores below ~10k entries.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/embedding"
	"github.com/convergio/convergio-go/internal/util"
	"github.com/convergio/convergio-go/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_entries (
	id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	agent_id TEXT NOT NULL DEFAULT '',
	conversation_id TEXT NOT NULL DEFAULT '',
	memory_type TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT,
	importance_score REAL NOT NULL DEFAULT 0,
	access_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	last_accessed DATETIME NOT NULL,
	metadata TEXT,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_memory_entries_scope
	ON memory_entries (user_id, agent_id, conversation_id);

CREATE TABLE IF NOT EXISTS conversation_records (
	id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	record TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, id)
);
`

const entryColumns = `id, user_id, agent_id, conversation_id, memory_type, content,
	embedding, importance_score, access_count, created_at, last_accessed, metadata`

// Options configure the sqlite store.
type Options struct {
	Logger logging.Logger
}

// Store persists memory entries and conversation records in one sqlite
// database file.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

var (
	_ core.MemoryStore       = (*Store)(nil)
	_ core.VectorSearcher    = (*Store)(nil)
	_ core.ConversationStore = (*Store)(nil)
)

// Open opens the database at path, creating it and the schema as needed.
// Pass ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &Store{db: db, logger: logging.OrNoop(opts.Logger)}, nil
}

// Save persists the entry, replacing any existing entry with the same ID.
func (s *Store) Save(ctx context.Context, entry *core.MemoryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	embJSON, err := marshalJSON(entry.Embedding, len(entry.Embedding) > 0)
	if err != nil {
		return fmt.Errorf("sqlite: encode embedding: %w", err)
	}
	metaJSON, err := marshalJSON(entry.Metadata, len(entry.Metadata) > 0)
	if err != nil {
		return fmt.Errorf("sqlite: encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memory_entries
		(`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.AgentID, entry.ConversationID,
		string(entry.Type), entry.Content, embJSON, entry.ImportanceScore,
		entry.AccessCount, entry.CreatedAt, entry.LastAccessed, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save entry %s: %w", entry.ID, err)
	}
	return nil
}

// Get returns the entry by id scoped to the user, or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, userID, id string) (*core.MemoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM memory_entries WHERE user_id = ? AND id = ?`,
		userID, id,
	)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get entry %s: %w", id, err)
	}
	return entry, nil
}

// Search returns entries matching the query, newest first.
func (s *Store) Search(ctx context.Context, q core.MemoryQuery) ([]*core.MemoryEntry, error) {
	where, args := whereClause(q)
	query := `SELECT ` + entryColumns + ` FROM memory_entries` + where + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search entries: %w", err)
	}
	defer rows.Close()

	var out []*core.MemoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Touch increments access counts and sets last-accessed for the given ids.
// Unknown ids are skipped.
func (s *Store) Touch(ctx context.Context, userID string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+2)
	args = append(args, at, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE memory_entries
		SET access_count = access_count + 1, last_accessed = ?
		WHERE user_id = ? AND id IN (%s)`, placeholders), args...)
	if err != nil {
		return fmt.Errorf("sqlite: touch entries: %w", err)
	}
	return nil
}

// Delete removes the entry, or returns core.ErrNotFound.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_entries WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete entry %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete entry %s: %w", id, err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SearchSimilar loads entries carrying an embedding and ranks them by cosine
// similarity in process. sqlite has no vector index, so this is a table scan
// bounded by the query filters.
func (s *Store) SearchSimilar(ctx context.Context, emb []float64, q core.MemoryQuery) ([]core.ScoredEntry, error) {
	where, args := whereClause(q)
	if where == "" {
		where = " WHERE embedding IS NOT NULL"
	} else {
		where += " AND embedding IS NOT NULL"
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM memory_entries`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: similarity search: %w", err)
	}
	defer rows.Close()

	var scored []core.ScoredEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan entry: %w", err)
		}
		scored = append(scored, core.ScoredEntry{
			Entry:      entry,
			Similarity: util.Clamp(embedding.CosineSimilarity(emb, entry.Embedding), 0, 1),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if q.Limit > 0 && len(scored) > q.Limit {
		scored = scored[:q.Limit]
	}
	return scored, nil
}

// SaveConversation persists the record as a JSON document keyed by
// (user_id, id), replacing any existing record.
func (s *Store) SaveConversation(ctx context.Context, rec *core.ConversationRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("conversation record: missing id")
	}
	if rec.UserID == "" {
		return fmt.Errorf("conversation record %s: missing user id", rec.ID)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite: encode conversation %s: %w", rec.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO conversation_records (id, user_id, record, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, string(payload), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save conversation %s: %w", rec.ID, err)
	}
	return nil
}

// GetConversation returns the record by id scoped to the user, or
// core.ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, userID, id string) (*core.ConversationRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM conversation_records WHERE user_id = ? AND id = ?`,
		userID, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get conversation %s: %w", id, err)
	}

	var rec core.ConversationRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("sqlite: decode conversation %s: %w", id, err)
	}
	return &rec, nil
}

// DeleteConversation removes the record, or returns core.ErrNotFound.
func (s *Store) DeleteConversation(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_records WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete conversation %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete conversation %s: %w", id, err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// whereClause renders the query filters as a WHERE clause (with leading
// space) plus positional args, or returns an empty string for a zero query.
func whereClause(q core.MemoryQuery) (string, []any) {
	var conds []string
	var args []any

	if q.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.AgentID != "" {
		conds = append(conds, "agent_id = ?")
		args = append(args, q.AgentID)
	}
	if q.ConversationID != "" {
		conds = append(conds, "conversation_id = ?")
		args = append(args, q.ConversationID)
	}
	if len(q.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.Types)), ",")
		conds = append(conds, fmt.Sprintf("memory_type IN (%s)", placeholders))
		for _, t := range q.Types {
			args = append(args, string(t))
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// marshalJSON encodes v, or returns a NULL-able empty when present is false.
func marshalJSON(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

// scanEntry reads one memory entry from a row or rows cursor.
func scanEntry(scanner interface{ Scan(dest ...any) error }) (*core.MemoryEntry, error) {
	var (
		entry    core.MemoryEntry
		memType  string
		embJSON  sql.NullString
		metaJSON sql.NullString
	)

	err := scanner.Scan(
		&entry.ID, &entry.UserID, &entry.AgentID, &entry.ConversationID,
		&memType, &entry.Content, &embJSON, &entry.ImportanceScore,
		&entry.AccessCount, &entry.CreatedAt, &entry.LastAccessed, &metaJSON,
	)
	if err != nil {
		return nil, err
	}

	entry.Type = core.MemoryType(memType)
	if embJSON.Valid {
		if err := json.Unmarshal([]byte(embJSON.String), &entry.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", entry.ID, err)
		}
	}
	if metaJSON.Valid {
		if err := json.Unmarshal([]byte(metaJSON.String), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", entry.ID, err)
		}
	}
	return &entry, nil
}
