package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pellucidlabs/sage/capability"
	"github.com/pellucidlabs/sage/memory"
)

func newTestAgent(t *testing.T, m *scriptedModel, caps ...capability.Capability) *Agent {
	t.Helper()
	reg := capability.NewRegistry()
	for _, c := range caps {
		require.NoError(t, reg.Register(c))
	}
	a, err := New(m, newTestCoordinator(t), reg, Options{MaxIterations: 5})
	require.NoError(t, err)
	return a
}

func calculatorCap() capability.Capability {
	return &capability.Func{
		CapName:        "calculator",
		CapDescription: "evaluates arithmetic",
		Fn: func(ctx context.Context, params map[string]any) (*capability.Result, error) {
			return &capability.Result{Success: true, Result: "4"}, nil
		},
	}
}

func TestChatCapabilityThenRespond(t *testing.T) {
	m := &scriptedModel{responses: []string{
		"ACTION_TYPE: use_capability\n" +
			"REASONING: needs math\n" +
			`DETAILS: {"tool_name": "calculator", "parameters": {"expression": "2+2"}}` + "\n" +
			"CONFIDENCE: 0.9",
		"ACTION_TYPE: respond\n" +
			"REASONING: have the result\n" +
			`DETAILS: {"message": "The answer is 4."}` + "\n" +
			"CONFIDENCE: 0.95",
	}}
	a := newTestAgent(t, m, calculatorCap())

	resp := a.Chat(context.Background(), "what is 2+2?", nil)

	assert.Equal(t, "The answer is 4.", resp)
	assert.Equal(t, 2, m.calls)
	// Second decision saw the capability result.
	assert.Contains(t, m.last[1].Content, "succeeded")
}

func TestChatBoundedByMaxIterations(t *testing.T) {
	// The model never produces a terminal action.
	m := &scriptedModel{responses: []string{
		"ACTION_TYPE: use_capability\n" +
			`DETAILS: {"tool_name": "calculator", "parameters": {}}` + "\n" +
			"CONFIDENCE: 0.9",
	}}
	a := newTestAgent(t, m, calculatorCap())

	resp := a.Chat(context.Background(), "loop forever", nil)

	assert.Equal(t, apologyResponse, resp)
	assert.Equal(t, 5, m.calls)
}

func TestChatModelErrorYieldsFallback(t *testing.T) {
	m := &scriptedModel{err: errors.New("api unavailable")}
	a := newTestAgent(t, m)

	resp := a.Chat(context.Background(), "hello", nil)

	assert.Equal(t, "I'm having trouble processing your request. Could you please rephrase it?", resp)
}

func TestChatRecordsBothTurns(t *testing.T) {
	m := &scriptedModel{responses: []string{
		"ACTION_TYPE: respond\n" +
			`DETAILS: {"message": "Hi! What can I do for you today?"}` + "\n" +
			"CONFIDENCE: 0.9",
	}}
	a := newTestAgent(t, m)

	a.Chat(context.Background(), "hello", nil)

	msgs := a.coordinator.ShortTerm().AsContext()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "Hi! What can I do for you today?", msgs[1].Content)
}

func TestReflectionStoresInteractionForPersonalCue(t *testing.T) {
	m := &scriptedModel{responses: []string{
		"ACTION_TYPE: respond\n" +
			`DETAILS: {"message": "Nice to meet you, Ada!"}` + "\n" +
			"CONFIDENCE: 0.9",
	}}
	a := newTestAgent(t, m)
	ctx := context.Background()

	a.Chat(ctx, "my name is Ada", nil)

	stats, err := a.coordinator.LongTerm().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CountsByType[memory.TypeInteraction])
}

func TestReflectionSkipsOrdinaryExchanges(t *testing.T) {
	m := &scriptedModel{responses: []string{
		"ACTION_TYPE: respond\n" +
			`DETAILS: {"message": "It is sunny out there today."}` + "\n" +
			"CONFIDENCE: 0.9",
	}}
	a := newTestAgent(t, m)
	ctx := context.Background()

	a.Chat(ctx, "nice weather today", nil)

	stats, err := a.coordinator.LongTerm().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CountsByType[memory.TypeInteraction])
}

func TestNewValidatesConfiguration(t *testing.T) {
	coord := newTestCoordinator(t)

	_, err := New(nil, coord, nil, Options{})
	assert.Error(t, err)

	_, err = New(&scriptedModel{}, nil, nil, Options{})
	assert.Error(t, err)

	_, err = New(&scriptedModel{}, coord, nil, Options{Persona: "pirate"})
	assert.ErrorIs(t, err, ErrUnknownPersona)
}

func TestSetPersona(t *testing.T) {
	a := newTestAgent(t, &scriptedModel{})

	require.NoError(t, a.SetPersona(PersonaResearch))
	assert.Equal(t, PersonaResearch, a.loop.Persona())

	assert.ErrorIs(t, a.SetPersona("pirate"), ErrUnknownPersona)
	assert.Equal(t, PersonaResearch, a.loop.Persona())
}

func TestClearMemoryScopes(t *testing.T) {
	m := &scriptedModel{responses: []string{
		"ACTION_TYPE: respond\n" +
			`DETAILS: {"message": "Hello! How can I help you?"}` + "\n" +
			"CONFIDENCE: 0.9",
	}}
	a := newTestAgent(t, m)
	ctx := context.Background()

	a.Chat(ctx, "hello", nil)
	require.NotZero(t, a.coordinator.ShortTerm().Len())

	require.NoError(t, a.ClearMemory("short_term"))
	assert.Zero(t, a.coordinator.ShortTerm().Len())

	assert.Error(t, a.ClearMemory("everything"))
}

func TestAgentStatus(t *testing.T) {
	a := newTestAgent(t, &scriptedModel{}, calculatorCap())

	st := a.Status(context.Background())
	assert.Equal(t, a.ID(), st.ID)
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, PersonaPersonal, st.Persona)
	assert.Equal(t, 5, st.MaxIterations)
	assert.Equal(t, []string{"calculator"}, st.Capabilities)
	assert.Equal(t, "scripted", st.Model.Name)
	assert.Equal(t, 10, st.Memory.ConsolidationThreshold)
}

func TestPreferenceRoundTrip(t *testing.T) {
	a := newTestAgent(t, &scriptedModel{})
	ctx := context.Background()

	require.NoError(t, a.StorePreference(ctx, "language", "en"))

	v, ok, err := a.GetPreference(ctx, "language")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "en", v)
}
