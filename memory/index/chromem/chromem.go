// Package chromem implements the similarity index on chromem-go, a pure Go
// embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/pellucidlabs/sage/memory"
)

const collectionName = "memories"

// Index wraps a chromem collection. Embeddings are supplied by the caller;
// chromem only stores and ranks them (default cosine distance).
type Index struct {
	db  *chromem.DB
	col *chromem.Collection
	mu  sync.Mutex
}

// New creates an in-memory index.
func New() (*Index, error) {
	return wrap(chromem.NewDB())
}

// NewPersistent creates an index backed by files under path, so the index
// survives process restarts alongside the durable store.
func NewPersistent(path string) (*Index, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open persistent index: %w", err)
	}
	return wrap(db)
}

func wrap(db *chromem.DB) (*Index, error) {
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{db: db, col: col}, nil
}

// Add stores one entry with its embedding.
func (x *Index) Add(ctx context.Context, entry memory.IndexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	doc := chromem.Document{
		ID:        entry.ID,
		Content:   entry.Content,
		Embedding: entry.Embedding,
		Metadata:  entry.Metadata,
	}
	if err := x.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query returns up to limit hits ranked by similarity. chromem rejects
// result counts above the collection size, so the limit is capped at the
// document count; an empty collection yields no hits.
func (x *Index) Query(ctx context.Context, embedding []float32, limit int) ([]memory.Hit, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	count := x.col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := x.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]memory.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, memory.Hit{ID: r.ID, Score: r.Similarity})
	}
	return hits, nil
}
