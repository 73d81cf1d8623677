package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pellucidlabs/sage/core"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	ltm, err := NewLongTerm(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ltm.Close() })
	return NewCoordinator(NewShortTerm(20), ltm, DefaultConsolidationConfig())
}

func TestChunkMessages(t *testing.T) {
	msg := func(role core.Role, content string) core.Message {
		return core.NewMessage(role, content, nil)
	}

	tests := []struct {
		name     string
		messages []core.Message
		want     []int // chunk sizes
	}{
		{
			name: "assistant closes chunk at two",
			messages: []core.Message{
				msg(core.RoleUser, "hello"),
				msg(core.RoleAssistant, "hi"),
				msg(core.RoleUser, "how are you"),
				msg(core.RoleAssistant, "fine"),
			},
			want: []int{2, 2},
		},
		{
			name: "leading assistant does not close alone",
			messages: []core.Message{
				msg(core.RoleAssistant, "welcome"),
				msg(core.RoleUser, "hello"),
				msg(core.RoleAssistant, "hi"),
			},
			want: []int{3},
		},
		{
			name: "five user turns force a split",
			messages: []core.Message{
				msg(core.RoleUser, "a"),
				msg(core.RoleUser, "b"),
				msg(core.RoleUser, "c"),
				msg(core.RoleUser, "d"),
				msg(core.RoleUser, "e"),
				msg(core.RoleUser, "f"),
			},
			want: []int{5, 1},
		},
		{
			name: "trailing partial kept",
			messages: []core.Message{
				msg(core.RoleUser, "hello"),
				msg(core.RoleAssistant, "hi"),
				msg(core.RoleUser, "one more thing"),
			},
			want: []int{2, 1},
		},
		{
			name:     "empty input",
			messages: nil,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunkMessages(tt.messages)
			require.Len(t, chunks, len(tt.want))
			for i, size := range tt.want {
				assert.Len(t, chunks[i], size)
			}
		})
	}
}

func TestScoreChunk(t *testing.T) {
	c := newTestCoordinator(t)
	msg := func(role core.Role, content string) core.Message {
		return core.NewMessage(role, content, nil)
	}

	tests := []struct {
		name  string
		chunk []core.Message
		want  float64
	}{
		{
			name: "base score only",
			chunk: []core.Message{
				msg(core.RoleUser, "hello"),
				msg(core.RoleAssistant, "hi"),
			},
			want: 0.5,
		},
		{
			name: "question cue",
			chunk: []core.Message{
				msg(core.RoleUser, "what time is it"),
				msg(core.RoleAssistant, "noon"),
			},
			want: 0.6,
		},
		{
			name: "personal cue",
			chunk: []core.Message{
				msg(core.RoleUser, "my name is Ada"),
				msg(core.RoleAssistant, "nice to meet you"),
			},
			want: 0.7,
		},
		{
			name: "long chunk bonus",
			chunk: []core.Message{
				msg(core.RoleUser, "a"),
				msg(core.RoleAssistant, "b"),
				msg(core.RoleUser, "c"),
				msg(core.RoleAssistant, "d"),
			},
			want: 0.6,
		},
		{
			name: "question cue counted once",
			chunk: []core.Message{
				msg(core.RoleUser, "what is this"),
				msg(core.RoleUser, "how does it work"),
			},
			want: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.scoreChunk(tt.chunk), 1e-9)
		})
	}
}

func TestScoreChunkDetailBonusAndCap(t *testing.T) {
	c := newTestCoordinator(t)

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	chunk := []core.Message{
		core.NewMessage(core.RoleUser, "my name is Ada, can you remember that? "+string(long), nil),
		core.NewMessage(core.RoleAssistant, string(long), nil),
		core.NewMessage(core.RoleUser, string(long), nil),
		core.NewMessage(core.RoleAssistant, string(long), nil),
	}

	// 0.5 base + 0.1 long + 0.1 question + 0.2 personal + 0.1 detail caps at 1.0.
	assert.InDelta(t, 1.0, c.scoreChunk(chunk), 1e-9)
}

func TestExtractTags(t *testing.T) {
	chunk := []core.Message{
		core.NewMessage(core.RoleUser, "my name is Ada and I like espresso", nil),
		core.NewMessage(core.RoleAssistant, "noted", nil),
	}

	tags := extractTags(chunk)
	assert.Contains(t, tags, "personal")
	assert.Contains(t, tags, "preference")
	assert.NotContains(t, tags, "question")
}

func TestRecordTurnTriggersConsolidation(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	// Nine turns stay below the threshold of ten.
	for i := 0; i < 9; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		c.RecordTurn(ctx, role, fmt.Sprintf("my name is Ada, message %d", i), nil)
	}

	stats, err := c.LongTerm().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRecords)

	c.RecordTurn(ctx, core.RoleAssistant, "noted, Ada", nil)

	stats, err = c.LongTerm().Stats(ctx)
	require.NoError(t, err)
	assert.Greater(t, stats.TotalRecords, 0)
	assert.Greater(t, stats.CountsByType[TypeConversation], 0)
}

func TestRecordTurnSystemNeverConsolidates(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		c.RecordTurn(ctx, core.RoleSystem, "remember this system note", nil)
	}

	stats, err := c.LongTerm().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRecords)
}

func TestConsolidateSkipsLowScoreChunks(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	// Two short turns with no cues score exactly 0.5 and are not persisted.
	c.RecordTurn(ctx, core.RoleUser, "hello", nil)
	c.RecordTurn(ctx, core.RoleAssistant, "hi", nil)
	c.Consolidate(ctx)

	stats, err := c.LongTerm().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRecords)
}

func TestAssembleContextWithoutRelevant(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	c.RecordTurn(ctx, core.RoleUser, "hello", nil)
	c.RecordTurn(ctx, core.RoleAssistant, "hi there", nil)

	msgs := c.AssembleContext(ctx, false)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
}

func TestAssembleContextEmptyBuffer(t *testing.T) {
	c := newTestCoordinator(t)
	assert.Empty(t, c.AssembleContext(context.Background(), true))
}

func TestStoreImportantAndSearchWithoutIndex(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	rec, err := c.StoreImportant(ctx, "user is allergic to peanuts", TypeFact, 0.9, []string{"personal"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Indexed)

	// No index or embedder attached: search fails closed.
	assert.Nil(t, c.SearchMemories(ctx, "allergies", 3))
}

func TestPreferencesMirrorIntoContext(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.SetPreference(ctx, "language", "en"))

	v, ok, err := c.GetPreference(ctx, "language")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "en", v)

	mirrored, ok := c.ShortTerm().Context("user_pref_language")
	require.True(t, ok)
	assert.Equal(t, "en", mirrored)
}

func TestCoordinatorSummary(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	c.RecordTurn(ctx, core.RoleUser, "hello", nil)
	_, err := c.StoreImportant(ctx, "fact", TypeFact, 0.8, nil)
	require.NoError(t, err)

	sum := c.Summary(ctx)
	assert.Equal(t, 1, sum.ShortTerm.MessageCount)
	assert.Equal(t, 1, sum.LongTerm.TotalRecords)
	assert.Equal(t, 10, sum.ConsolidationThreshold)
}
