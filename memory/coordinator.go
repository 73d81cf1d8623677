package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pellucidlabs/sage/core"
)

// ConsolidationConfig holds the consolidation trigger and scoring constants.
// The additive bonuses are empirically chosen; they are carried as
// configuration rather than reinterpreted.
type ConsolidationConfig struct {
	// Threshold is the STM message count that triggers consolidation.
	Threshold int

	// RelevanceFloor is the minimum importance a retrieved record needs to
	// be injected into assembled context.
	RelevanceFloor float64

	BaseScore      float64
	LongChunkBonus float64
	QuestionBonus  float64
	PersonalBonus  float64
	DetailBonus    float64

	// PersistenceThreshold is the score a chunk must exceed to be stored.
	PersistenceThreshold float64
}

// DefaultConsolidationConfig returns the documented defaults.
func DefaultConsolidationConfig() ConsolidationConfig {
	return ConsolidationConfig{
		Threshold:            10,
		RelevanceFloor:       0.6,
		BaseScore:            0.5,
		LongChunkBonus:       0.1,
		QuestionBonus:        0.1,
		PersonalBonus:        0.2,
		DetailBonus:          0.1,
		PersistenceThreshold: 0.5,
	}
}

// Coordinator composes the short-term buffer and the long-term store. It
// decides when short-term history is consolidated into durable records and
// injects relevant records into the context assembled for decision-making.
type Coordinator struct {
	stm    *ShortTerm
	ltm    *LongTerm
	cfg    ConsolidationConfig
	logger *log.Logger
}

// CoordinatorOption configures the coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger. Defaults to log.Default().
func WithCoordinatorLogger(logger *log.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a coordinator over the given layers.
func NewCoordinator(stm *ShortTerm, ltm *LongTerm, cfg ConsolidationConfig, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		stm:    stm,
		ltm:    ltm,
		cfg:    cfg,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShortTerm exposes the underlying buffer.
func (c *Coordinator) ShortTerm() *ShortTerm {
	return c.stm
}

// LongTerm exposes the underlying durable store.
func (c *Coordinator) LongTerm() *LongTerm {
	return c.ltm
}

// RecordTurn appends a conversation turn to short-term memory and runs
// consolidation when the buffer has reached the threshold. System turns
// never trigger consolidation.
func (c *Coordinator) RecordTurn(ctx context.Context, role core.Role, content string, metadata map[string]string) {
	c.stm.Append(core.NewMessage(role, content, metadata))
	if role == core.RoleSystem {
		return
	}
	if c.stm.Len() >= c.cfg.Threshold {
		c.Consolidate(ctx)
	}
}

// AssembleContext builds the message sequence for model input: relevant
// long-term records (found by searching with the concatenated text of the
// most recent turns, filtered by the relevance floor) as one synthetic
// system message, followed by the full short-term history.
func (c *Coordinator) AssembleContext(ctx context.Context, includeRelevant bool) []core.Message {
	var out []core.Message

	if includeRelevant {
		recent := c.stm.Recent(3)
		if len(recent) > 0 {
			var parts []string
			for _, msg := range recent {
				parts = append(parts, msg.Content)
			}
			results := c.ltm.Search(ctx, strings.Join(parts, " "), SearchOptions{
				Limit:         3,
				MinImportance: c.cfg.RelevanceFloor,
			})
			if len(results) > 0 {
				var b strings.Builder
				b.WriteString("Relevant context from previous conversations:\n")
				for _, res := range results {
					b.WriteString("- " + res.Record.Content + "\n")
				}
				out = append(out, core.NewMessage(core.RoleSystem, b.String(), nil))
			}
		}
	}

	return append(out, c.stm.AsContext()...)
}

// Consolidate partitions the short-term buffer into chunks, scores each for
// importance, and stores qualifying chunks as conversation records. Failures
// on individual chunks are logged and skipped; consolidation never fails the
// enclosing call.
//
// Consolidation is not deduplicated against prior runs: re-consolidating an
// overlapping window produces a duplicate record. The trigger fires only
// once the buffer refills past the threshold, and eviction removes a chunk's
// source messages once the buffer advances past capacity.
func (c *Coordinator) Consolidate(ctx context.Context) {
	messages := c.stm.AsContext()
	chunks := chunkMessages(messages)
	stored := 0

	for _, chunk := range chunks {
		score := c.scoreChunk(chunk)
		if score <= c.cfg.PersistenceThreshold {
			continue
		}

		var lines []string
		for _, msg := range chunk {
			lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
		}

		_, err := c.ltm.Store(ctx, strings.Join(lines, "\n"), TypeConversation, score,
			extractTags(chunk), map[string]string{
				"message_count":   fmt.Sprintf("%d", len(chunk)),
				"consolidated_at": time.Now().UTC().Format(time.RFC3339),
			})
		if err != nil {
			c.logger.Printf("[MEMORY] Consolidation store failed, chunk skipped: %v", err)
			continue
		}
		stored++
	}

	c.logger.Printf("[MEMORY] Consolidated %d messages into %d records (%d chunks scored)",
		len(messages), stored, len(chunks))
}

// chunkMessages partitions messages with the two-rule split: close the
// current chunk after an assistant turn once it holds at least 2 messages,
// or once it reaches 5 messages, whichever comes first. A trailing partial
// chunk is kept.
func chunkMessages(messages []core.Message) [][]core.Message {
	var chunks [][]core.Message
	var current []core.Message

	for _, msg := range messages {
		current = append(current, msg)

		closeChunk := (msg.Role == core.RoleAssistant && len(current) >= 2) ||
			len(current) >= 5
		if closeChunk {
			chunks = append(chunks, current)
			current = nil
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// scoreChunk computes the importance score for a chunk: the base score plus
// additive bonuses for length, question cues, personal-disclosure cues, and
// message detail, capped at 1.0.
func (c *Coordinator) scoreChunk(chunk []core.Message) float64 {
	score := c.cfg.BaseScore

	if len(chunk) > 3 {
		score += c.cfg.LongChunkBonus
	}

	for _, msg := range chunk {
		if containsAny(strings.ToLower(msg.Content), questionCues) {
			score += c.cfg.QuestionBonus
			break
		}
	}

	for _, msg := range chunk {
		if containsAny(strings.ToLower(msg.Content), personalCues) {
			score += c.cfg.PersonalBonus
			break
		}
	}

	total := 0
	for _, msg := range chunk {
		total += len(msg.Content)
	}
	if len(chunk) > 0 && total/len(chunk) > 100 {
		score += c.cfg.DetailBonus
	}

	return core.Clamp01(score)
}

var questionCues = []string{"how", "what", "when", "where", "why", "can you", "help me"}

var personalCues = []string{"my name", "i am", "i like", "i prefer", "remember"}

// tagBuckets maps tag names to the keywords that select them.
var tagBuckets = []struct {
	tag      string
	keywords []string
}{
	{"personal", []string{"my name", "i am", "about me", "personal"}},
	{"preference", []string{"i like", "i prefer", "favorite", "don't like"}},
	{"question", []string{"how", "what", "when", "where", "why"}},
	{"help", []string{"help", "assist", "support", "problem"}},
	{"information", []string{"tell me", "explain", "describe", "information"}},
	{"task", []string{"do", "create", "make", "generate", "write"}},
}

// extractTags selects tags by keyword-bucket matching against the combined
// chunk text.
func extractTags(chunk []core.Message) []string {
	var parts []string
	for _, msg := range chunk {
		parts = append(parts, strings.ToLower(msg.Content))
	}
	text := strings.Join(parts, " ")

	var tags []string
	for _, bucket := range tagBuckets {
		if containsAny(text, bucket.keywords) {
			tags = append(tags, bucket.tag)
		}
	}
	return tags
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// StoreImportant stores content directly as a long-term record, bypassing
// consolidation. Used by explicit store_memory actions and by reflection.
func (c *Coordinator) StoreImportant(ctx context.Context, content, memType string, importance float64, tags []string) (Record, error) {
	return c.ltm.Store(ctx, content, memType, importance, tags, nil)
}

// SearchMemories searches long-term records by similarity.
func (c *Coordinator) SearchMemories(ctx context.Context, query string, limit int) []SearchResult {
	return c.ltm.Search(ctx, query, SearchOptions{Limit: limit})
}

// SetPreference upserts a preference and mirrors it into the short-term
// context map.
func (c *Coordinator) SetPreference(ctx context.Context, key, value string) error {
	if err := c.ltm.SetPreference(ctx, key, value); err != nil {
		return err
	}
	c.stm.SetContext("user_pref_"+key, value)
	return nil
}

// GetPreference looks up a preference.
func (c *Coordinator) GetPreference(ctx context.Context, key string) (string, bool, error) {
	return c.ltm.GetPreference(ctx, key)
}

// ClearShortTerm empties the session buffer. Long-term memory is never
// cleared by the core.
func (c *Coordinator) ClearShortTerm() {
	c.stm.Clear()
}

// MemorySummary combines both layers' summaries.
type MemorySummary struct {
	ShortTerm              Summary
	LongTerm               Stats
	ConsolidationThreshold int
}

// Summary reports the state of both memory layers.
func (c *Coordinator) Summary(ctx context.Context) MemorySummary {
	stats, err := c.ltm.Stats(ctx)
	if err != nil {
		c.logger.Printf("[MEMORY] Stats failed: %v", err)
	}
	return MemorySummary{
		ShortTerm:              c.stm.Summary(),
		LongTerm:               stats,
		ConsolidationThreshold: c.cfg.Threshold,
	}
}
