package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/pellucidlabs/sage/core"
)

// LongTerm is the durable, cross-session memory facade. Records always land
// in SQLite; indexing into the similarity collaborator is best-effort, and
// similarity search fails closed (empty results) when the collaborator is
// unavailable. Preferences are plain keyed upserts, independent of the
// index.
//
// LongTerm is safe for concurrent use across sessions: record insert is
// append-only and preference writes are single-row upserts.
type LongTerm struct {
	db       *sql.DB
	index    Index
	embedder Embedder
	embCache *ristretto.Cache
	logger   *log.Logger
}

// LongTermOption configures the facade.
type LongTermOption func(*LongTerm)

// WithIndex attaches the similarity collaborator.
func WithIndex(idx Index) LongTermOption {
	return func(l *LongTerm) {
		l.index = idx
	}
}

// WithEmbedder attaches the embedding collaborator.
func WithEmbedder(e Embedder) LongTermOption {
	return func(l *LongTerm) {
		l.embedder = e
	}
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(logger *log.Logger) LongTermOption {
	return func(l *LongTerm) {
		l.logger = logger
	}
}

// NewLongTerm opens or creates the backing database at dbPath.
func NewLongTerm(dbPath string, opts ...LongTermOption) (*LongTerm, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	l := &LongTerm{
		db:     db,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Embeddings for recurring texts (recent-turn queries, consolidated
	// chunks) are cached so the embedder is not hit twice for the same
	// input.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	l.embCache = cache

	return l, nil
}

func (l *LongTerm) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id               TEXT PRIMARY KEY,
		content          TEXT NOT NULL,
		memory_type      TEXT NOT NULL,
		importance_score REAL NOT NULL DEFAULT 0.5,
		tags             TEXT,
		created_at       TEXT NOT NULL,
		last_accessed    TEXT NOT NULL,
		access_count     INTEGER NOT NULL DEFAULT 0,
		metadata         TEXT,
		indexed          INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);

	CREATE TABLE IF NOT EXISTS user_preferences (
		preference_key   TEXT PRIMARY KEY,
		preference_value TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Store persists a record. The SQLite insert must succeed; indexing into the
// similarity collaborator is best-effort and a failure there only leaves the
// returned record with Indexed=false.
func (l *LongTerm) Store(ctx context.Context, content, memType string, importance float64, tags []string, metadata map[string]string) (Record, error) {
	now := time.Now().UTC()
	rec := Record{
		ID:           ulid.Make().String(),
		Content:      content,
		Type:         memType,
		Importance:   core.Clamp01(importance),
		Tags:         tags,
		CreatedAt:    now,
		LastAccessed: now,
		Metadata:     metadata,
	}
	if rec.Type == "" {
		rec.Type = TypeConversation
	}

	var tagsJSON, metaJSON *string
	if len(tags) > 0 {
		b, _ := json.Marshal(tags)
		s := string(b)
		tagsJSON = &s
	}
	if len(metadata) > 0 {
		b, _ := json.Marshal(metadata)
		s := string(b)
		metaJSON = &s
	}

	// Insert first so the durable store is the source of truth: a failed
	// insert must not leave a ghost entry in the similarity index.
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO memories (id, content, memory_type, importance_score, tags, created_at, last_accessed, access_count, metadata, indexed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, 0)`,
		rec.ID, rec.Content, rec.Type, rec.Importance, tagsJSON,
		now.Format(time.RFC3339), now.Format(time.RFC3339), metaJSON)
	if err != nil {
		return Record{}, fmt.Errorf("insert memory: %w", err)
	}

	if l.tryIndex(ctx, rec) {
		rec.Indexed = true
		if _, err := l.db.ExecContext(ctx,
			`UPDATE memories SET indexed = 1 WHERE id = ?`, rec.ID); err != nil {
			l.logger.Printf("[LTM] Indexed flag update failed for %s: %v", rec.ID, err)
		}
	}

	l.logger.Printf("[LTM] Stored record: id=%s type=%s importance=%.2f indexed=%t",
		rec.ID, rec.Type, rec.Importance, rec.Indexed)
	return rec, nil
}

// tryIndex embeds the content and adds it to the similarity index. Returns
// false when the collaborator is unavailable or fails.
func (l *LongTerm) tryIndex(ctx context.Context, rec Record) bool {
	if l.index == nil || l.embedder == nil {
		return false
	}

	embedding, err := l.embed(ctx, rec.Content)
	if err != nil {
		l.logger.Printf("[LTM] Embed failed, record stored unindexed: %v", err)
		return false
	}

	err = l.index.Add(ctx, IndexEntry{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: embedding,
		Metadata: map[string]string{
			"memory_type": rec.Type,
		},
	})
	if err != nil {
		l.logger.Printf("[LTM] Index add failed, record stored unindexed: %v", err)
		return false
	}
	return true
}

// Search returns records ranked by similarity to the query, filtered by the
// options. It fails closed: any collaborator failure yields an empty result,
// never an error.
func (l *LongTerm) Search(ctx context.Context, query string, opts SearchOptions) []SearchResult {
	if l.index == nil || l.embedder == nil {
		return nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	embedding, err := l.embed(ctx, query)
	if err != nil {
		l.logger.Printf("[LTM] Search embed failed: %v", err)
		return nil
	}

	// Over-fetch when filters may discard hits.
	fetch := limit
	if opts.TypeFilter != "" || opts.MinImportance > 0 {
		fetch = limit * 4
	}

	hits, err := l.index.Query(ctx, embedding, fetch)
	if err != nil {
		l.logger.Printf("[LTM] Index query failed: %v", err)
		return nil
	}

	var results []SearchResult
	for _, hit := range hits {
		rec, err := l.Get(ctx, hit.ID)
		if err != nil {
			l.logger.Printf("[LTM] Skipping hit %s: %v", hit.ID, err)
			continue
		}
		if opts.TypeFilter != "" && rec.Type != opts.TypeFilter {
			continue
		}
		if rec.Importance < opts.MinImportance {
			continue
		}
		touched := l.touchAccess(ctx, rec.ID)
		// Mirror the bookkeeping on the returned copy so it matches what a
		// subsequent Get would report.
		rec.AccessCount++
		rec.LastAccessed = touched
		results = append(results, SearchResult{Record: rec, Relevance: hit.Score})
		if len(results) >= limit {
			break
		}
	}

	l.logger.Printf("[LTM] Search %q: %d results", truncateLog(query, 40), len(results))
	return results
}

// Get loads one record by id.
func (l *LongTerm) Get(ctx context.Context, id string) (Record, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, content, memory_type, importance_score, tags, created_at, last_accessed, access_count, metadata, indexed
		 FROM memories WHERE id = ?`, id)
	return scanRecord(row)
}

// touchAccess updates the access bookkeeping for a retrieved record and
// returns the access timestamp it wrote.
func (l *LongTerm) touchAccess(ctx context.Context, id string) time.Time {
	now := time.Now().UTC().Truncate(time.Second)
	if _, err := l.db.ExecContext(ctx,
		`UPDATE memories SET last_accessed = ?, access_count = access_count + 1 WHERE id = ?`,
		now.Format(time.RFC3339), id); err != nil {
		l.logger.Printf("[LTM] Access bookkeeping failed for %s: %v", id, err)
	}
	return now
}

// SetPreference upserts a preference keyed by key. The upsert is a single
// atomic statement.
func (l *LongTerm) SetPreference(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO user_preferences (preference_key, preference_value, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(preference_key) DO UPDATE SET
		   preference_value = excluded.preference_value,
		   updated_at = excluded.updated_at`,
		key, value, now, now)
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

// GetPreference looks up a preference. The second return is false when the
// key has never been stored.
func (l *LongTerm) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := l.db.QueryRowContext(ctx,
		`SELECT preference_value FROM user_preferences WHERE preference_key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return value, true, nil
}

// Stats summarizes the long-term store.
type Stats struct {
	TotalRecords  int
	CountsByType  map[string]int
	Preferences   int
	IndexAttached bool
}

// Stats returns aggregate record counts by type.
func (l *LongTerm) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		CountsByType:  make(map[string]int),
		IndexAttached: l.index != nil && l.embedder != nil,
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT memory_type, COUNT(*) FROM memories GROUP BY memory_type`)
	if err != nil {
		return stats, fmt.Errorf("count memories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var memType string
		var count int
		if err := rows.Scan(&memType, &count); err != nil {
			return stats, err
		}
		stats.CountsByType[memType] = count
		stats.TotalRecords += count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_preferences`).Scan(&stats.Preferences)
	if err != nil {
		return stats, fmt.Errorf("count preferences: %w", err)
	}
	return stats, nil
}

// Close releases the database and the embedding cache.
func (l *LongTerm) Close() error {
	if l.embCache != nil {
		l.embCache.Close()
	}
	return l.db.Close()
}

// embed converts text to a vector, consulting the cache first.
func (l *LongTerm) embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := l.embCache.Get(text); ok {
		if emb, ok := cached.([]float32); ok {
			return emb, nil
		}
	}

	emb, err := l.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	l.embCache.Set(text, emb, int64(len(emb)*4))
	return emb, nil
}

func scanRecord(row *sql.Row) (Record, error) {
	var rec Record
	var tagsJSON, metaJSON sql.NullString
	var createdAt, lastAccessed string
	var indexed int

	err := row.Scan(&rec.ID, &rec.Content, &rec.Type, &rec.Importance, &tagsJSON,
		&createdAt, &lastAccessed, &rec.AccessCount, &metaJSON, &indexed)
	if err != nil {
		return rec, err
	}

	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.LastAccessed, _ = time.Parse(time.RFC3339, lastAccessed)
	rec.Indexed = indexed != 0
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &rec.Tags)
	}
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &rec.Metadata)
	}
	return rec, nil
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
