// Package memory implements the agent's two-layer memory system.
//
// Architecture:
//   - ShortTerm: bounded, session-scoped buffer of recent conversation turns
//   - LongTerm: durable record store (SQLite) paired with a similarity index
//   - Coordinator: composes the two, consolidating short-term history into
//     long-term records and injecting relevant records into model context
//
// The similarity index and the embedder are collaborator interfaces; the
// long-term store degrades gracefully when either is unavailable (records
// stay durable, similarity retrieval fails closed).
package memory

import (
	"context"
	"time"
)

// Memory record types.
const (
	TypeConversation = "conversation"
	TypeFact         = "fact"
	TypePreference   = "preference"
	TypeInteraction  = "interaction"
)

// Record is a long-term memory record. Records are created by consolidation
// or explicit store_memory actions, mutated only by access bookkeeping, and
// never deleted by the core.
type Record struct {
	ID           string
	Content      string
	Type         string
	Importance   float64
	Tags         []string
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int
	Metadata     map[string]string

	// Indexed is false when the similarity collaborator was unavailable at
	// store time; the record is durable but not retrievable by similarity.
	Indexed bool
}

// SearchResult pairs a record with its similarity score for one query.
type SearchResult struct {
	Record    Record
	Relevance float32
}

// SearchOptions filter a similarity search.
type SearchOptions struct {
	Limit         int
	TypeFilter    string
	MinImportance float64
}

// Embedder converts text to vector embeddings. Embedding computation is a
// collaborator concern; the core never implements it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// IndexEntry is the payload handed to the similarity index alongside its
// embedding.
type IndexEntry struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Hit is one ranked result from a similarity query.
type Hit struct {
	ID    string
	Score float32
}

// Index is the similarity collaborator backing long-term retrieval.
// Implementations: chromem (embedded, this repo), external vector stores in
// production.
type Index interface {
	Add(ctx context.Context, entry IndexEntry) error
	Query(ctx context.Context, embedding []float32, limit int) ([]Hit, error)
}
