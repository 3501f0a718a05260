// Package postgres provides a PostgreSQL MemoryStore and ConversationStore
// backed by pgx. Similarity search runs server-side through pgvector's
// cosine distance operator, so it scales past what the in-process scanning
// backends can handle.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/convergio/convergio-go/core"
	"github.com/convergio/convergio-go/internal/util"
	"github.com/convergio/convergio-go/logging"
)

const entryColumns = `id, user_id, agent_id, conversation_id, memory_type, content,
	embedding, importance_score, access_count, created_at, last_accessed, metadata`

// Options configure the postgres store.
type Options struct {
	// EmbeddingDims is the dimensionality of the vector column, fixed at
	// schema creation. Must match the embedding provider in use.
	EmbeddingDims int

	Logger logging.Logger
}

// Store persists memory entries and conversation records in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

var (
	_ core.MemoryStore       = (*Store)(nil)
	_ core.VectorSearcher    = (*Store)(nil)
	_ core.ConversationStore = (*Store)(nil)
)

// Open connects to the database at dsn and ensures the pgvector extension
// and schema exist.
func Open(ctx context.Context, dsn string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{EmbeddingDims: 1536}
	for _, fn := range optFns {
		fn(&opts)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{pool: pool, logger: logging.OrNoop(opts.Logger)}
	if err := s.ensureSchema(ctx, opts.EmbeddingDims); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context, dims int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_entries (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			agent_id TEXT NOT NULL DEFAULT '',
			conversation_id TEXT NOT NULL DEFAULT '',
			memory_type TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			importance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			access_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			last_accessed TIMESTAMPTZ NOT NULL,
			metadata JSONB,
			PRIMARY KEY (user_id, id)
		)`, dims),
		`CREATE INDEX IF NOT EXISTS idx_memory_entries_scope
			ON memory_entries (user_id, agent_id, conversation_id)`,
		`CREATE TABLE IF NOT EXISTS conversation_records (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			record JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

// Save persists the entry, replacing any existing entry with the same ID.
func (s *Store) Save(ctx context.Context, entry *core.MemoryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	metaJSON, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: encode metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO memory_entries
		(`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, id) DO UPDATE SET
			agent_id = EXCLUDED.agent_id,
			conversation_id = EXCLUDED.conversation_id,
			memory_type = EXCLUDED.memory_type,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			importance_score = EXCLUDED.importance_score,
			access_count = EXCLUDED.access_count,
			created_at = EXCLUDED.created_at,
			last_accessed = EXCLUDED.last_accessed,
			metadata = EXCLUDED.metadata`,
		entry.ID, entry.UserID, entry.AgentID, entry.ConversationID,
		string(entry.Type), entry.Content, toVector(entry.Embedding),
		entry.ImportanceScore, entry.AccessCount, entry.CreatedAt,
		entry.LastAccessed, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("postgres: save entry %s: %w", entry.ID, err)
	}
	return nil
}

// Get returns the entry by id scoped to the user, or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, userID, id string) (*core.MemoryEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM memory_entries WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get entry %s: %w", id, err)
	}
	return entry, nil
}

// Search returns entries matching the query, newest first.
func (s *Store) Search(ctx context.Context, q core.MemoryQuery) ([]*core.MemoryEntry, error) {
	where, args := whereClause(q, 0)
	query := `SELECT ` + entryColumns + ` FROM memory_entries` + where + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, q.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search entries: %w", err)
	}
	defer rows.Close()

	var out []*core.MemoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan entry: %w", err)
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

	_, err := s.pool.Exec(ctx, `
		UPDATE memory_entries
		SET access_count = access_count + 1, last_accessed = $1
		WHERE user_id = $2 AND id = ANY($3)`,
		at, userID, ids,
	)
	if err != nil {
		return fmt.Errorf("postgres: touch entries: %w", err)
	}
	return nil
}

// Delete removes the entry, or returns core.ErrNotFound.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	ct, err := s.pool.Exec(ctx,
		`DELETE FROM memory_entries WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("postgres: delete entry %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SearchSimilar ranks entries by cosine similarity server-side via the
// pgvector `<=>` distance operator.
func (s *Store) SearchSimilar(ctx context.Context, emb []float64, q core.MemoryQuery) ([]core.ScoredEntry, error) {
	vec := toVector(emb)
	if vec == nil {
		return nil, fmt.Errorf("postgres: similarity search requires a non-empty embedding")
	}

	where, args := whereClause(q, 1)
	if where == "" {
		where = " WHERE embedding IS NOT NULL"
	} else {
		where += " AND embedding IS NOT NULL"
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	args = append([]any{*vec}, args...)
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT `+entryColumns+`, 1 - (embedding <=> $1) AS similarity
		FROM memory_entries
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d`, where, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: similarity search: %w", err)
	}
	defer rows.Close()

	var scored []core.ScoredEntry
	for rows.Next() {
		entry, similarity, err := scanScoredEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan entry: %w", err)
		}
		scored = append(scored, core.ScoredEntry{
			Entry:      entry,
			Similarity: util.Clamp(similarity, 0, 1),
		})
	}
	return scored, rows.Err()
}

// SaveConversation persists the record as a JSONB document keyed by
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
		return fmt.Errorf("postgres: encode conversation %s: %w", rec.ID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversation_records (id, user_id, record, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, id) DO UPDATE SET
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.UserID, payload, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save conversation %s: %w", rec.ID, err)
	}
	return nil
}

// GetConversation returns the record by id scoped to the user, or
// core.ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, userID, id string) (*core.ConversationRecord, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM conversation_records WHERE user_id = $1 AND id = $2`,
		userID, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get conversation %s: %w", id, err)
	}

	var rec core.ConversationRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("postgres: decode conversation %s: %w", id, err)
	}
	return &rec, nil
}

// DeleteConversation removes the record, or returns core.ErrNotFound.
func (s *Store) DeleteConversation(ctx context.Context, userID, id string) error {
	ct, err := s.pool.Exec(ctx,
		`DELETE FROM conversation_records WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("postgres: delete conversation %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// whereClause renders the query filters as a WHERE clause (with leading
// space) plus args. Placeholders start after the given offset so callers can
// reserve leading parameters (the similarity vector is $1).
func whereClause(q core.MemoryQuery, offset int) (string, []any) {
	var conds []string
	var args []any
	argIdx := offset + 1

	if q.UserID != "" {
		conds = append(conds, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, q.UserID)
		argIdx++
	}
	if q.AgentID != "" {
		conds = append(conds, fmt.Sprintf("agent_id = $%d", argIdx))
		args = append(args, q.AgentID)
		argIdx++
	}
	if q.ConversationID != "" {
		conds = append(conds, fmt.Sprintf("conversation_id = $%d", argIdx))
		args = append(args, q.ConversationID)
		argIdx++
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		conds = append(conds, fmt.Sprintf("memory_type = ANY($%d)", argIdx))
		args = append(args, types)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// toVector converts an embedding to the pgvector parameter type, or nil for
// a NULL column value.
func toVector(emb []float64) *pgvector.Vector {
	if len(emb) == 0 {
		return nil
	}
	f32 := make([]float32, len(emb))
	for i, v := range emb {
		f32[i] = float32(v)
	}
	vec := pgvector.NewVector(f32)
	return &vec
}

func fromVector(vec *pgvector.Vector) []float64 {
	if vec == nil {
		return nil
	}
	f32 := vec.Slice()
	if len(f32) == 0 {
		return nil
	}
	out := make([]float64, len(f32))
	for i, v := range f32 {
		out[i] = float64(v)
	}
	return out
}

type pgxScanner interface {
	Scan(dest ...any) error
}

func scanEntry(scanner pgxScanner) (*core.MemoryEntry, error) {
	var (
		entry    core.MemoryEntry
		memType  string
		vec      *pgvector.Vector
		metaJSON []byte
	)

	err := scanner.Scan(
		&entry.ID, &entry.UserID, &entry.AgentID, &entry.ConversationID,
		&memType, &entry.Content, &vec, &entry.ImportanceScore,
		&entry.AccessCount, &entry.CreatedAt, &entry.LastAccessed, &metaJSON,
	)
	if err != nil {
		return nil, err
	}

	entry.Type = core.MemoryType(memType)
	entry.Embedding = fromVector(vec)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", entry.ID, err)
		}
	}
	return &entry, nil
}

func scanScoredEntry(scanner pgxScanner) (*core.MemoryEntry, float64, error) {
	var (
		entry      core.MemoryEntry
		memType    string
		vec        *pgvector.Vector
		metaJSON   []byte
		similarity float64
	)

	err := scanner.Scan(
		&entry.ID, &entry.UserID, &entry.AgentID, &entry.ConversationID,
		&memType, &entry.Content, &vec, &entry.ImportanceScore,
		&entry.AccessCount, &entry.CreatedAt, &entry.LastAccessed, &metaJSON,
		&similarity,
	)
	if err != nil {
		return nil, 0, err
	}

	entry.Type = core.MemoryType(memType)
	entry.Embedding = fromVector(vec)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &entry.Metadata); err != nil {
			return nil, 0, fmt.Errorf("decode metadata for %s: %w", entry.ID, err)
		}
	}
	return &entry, similarity, nil
}
