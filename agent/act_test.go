package agent

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pellucidlabs/sage/capability"
	"github.com/pellucidlabs/sage/core"
	"github.com/pellucidlabs/sage/memory"
)

func newTestCoordinator(t *testing.T) *memory.Coordinator {
	t.Helper()
	ltm, err := memory.NewLongTerm(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ltm.Close() })
	return memory.NewCoordinator(memory.NewShortTerm(20), ltm, memory.DefaultConsolidationConfig())
}

func newTestExecutor(t *testing.T, m *scriptedModel, caps ...capability.Capability) *ActionExecutor {
	t.Helper()
	reg := capability.NewRegistry()
	for _, c := range caps {
		require.NoError(t, reg.Register(c))
	}
	return NewActionExecutor(reg, newTestCoordinator(t), m, 10, nil)
}

func TestExecuteRespondVerbatim(t *testing.T) {
	e := newTestExecutor(t, &scriptedModel{})

	act := e.Execute(context.Background(), core.Decision{
		Type:    core.ActionRespond,
		Respond: &core.RespondDetails{Message: "This is a complete answer."},
	})

	assert.True(t, act.Success)
	assert.Equal(t, "This is a complete answer.", act.Result)
}

func TestExecuteRespondShortMessageSynthesizes(t *testing.T) {
	m := &scriptedModel{responses: []string{"Here is a fuller reply."}}
	e := newTestExecutor(t, m)

	act := e.Execute(context.Background(), core.Decision{
		Type:    core.ActionRespond,
		Respond: &core.RespondDetails{Message: "ok"},
	})

	assert.True(t, act.Success)
	assert.Equal(t, "Here is a fuller reply.", act.Result)
	assert.Equal(t, 1, m.calls)
}

func TestExecuteRespondSynthesisFailure(t *testing.T) {
	e := newTestExecutor(t, &scriptedModel{err: errors.New("api down")})

	act := e.Execute(context.Background(), core.Decision{
		Type:    core.ActionRespond,
		Respond: &core.RespondDetails{Message: ""},
	})

	assert.False(t, act.Success)
	assert.Equal(t, apologyResponse, act.Result)
}

func TestExecuteCapability(t *testing.T) {
	calc := &capability.Func{
		CapName:        "calculator",
		CapDescription: "evaluates arithmetic",
		Fn: func(ctx context.Context, params map[string]any) (*capability.Result, error) {
			return &capability.Result{Success: true, Result: "4"}, nil
		},
	}
	e := newTestExecutor(t, &scriptedModel{}, calc)

	act := e.Execute(context.Background(), core.Decision{
		Type: core.ActionUseCapability,
		UseCapability: &core.UseCapabilityDetails{
			Name:       "calculator",
			Parameters: map[string]any{"expression": "2+2"},
		},
	})

	assert.True(t, act.Success)
	assert.Equal(t, "4", act.Result)
	assert.Equal(t, "2+2", act.Parameters["expression"])
}

func TestExecuteUnknownCapabilityFails(t *testing.T) {
	e := newTestExecutor(t, &scriptedModel{})

	act := e.Execute(context.Background(), core.Decision{
		Type:          core.ActionUseCapability,
		UseCapability: &core.UseCapabilityDetails{Name: "teleport"},
	})

	assert.False(t, act.Success)
	assert.Equal(t, "Capability 'teleport' not found", act.Result)
}

func TestExecuteCapabilityReportedFailure(t *testing.T) {
	failing := &capability.Func{
		CapName: "flaky",
		Fn: func(ctx context.Context, params map[string]any) (*capability.Result, error) {
			return &capability.Result{Success: false, Error: "upstream timeout"}, nil
		},
	}
	e := newTestExecutor(t, &scriptedModel{}, failing)

	act := e.Execute(context.Background(), core.Decision{
		Type:          core.ActionUseCapability,
		UseCapability: &core.UseCapabilityDetails{Name: "flaky"},
	})

	assert.False(t, act.Success)
	assert.Contains(t, act.Result, "upstream timeout")
}

func TestExecuteRecoversFromCapabilityPanic(t *testing.T) {
	panicking := &capability.Func{
		CapName: "boom",
		Fn: func(ctx context.Context, params map[string]any) (*capability.Result, error) {
			panic("nil map write")
		},
	}
	e := newTestExecutor(t, &scriptedModel{}, panicking)

	act := e.Execute(context.Background(), core.Decision{
		Type:          core.ActionUseCapability,
		UseCapability: &core.UseCapabilityDetails{Name: "boom"},
	})

	assert.False(t, act.Success)
	assert.Contains(t, act.Result, "Action failed")
	assert.Contains(t, act.Result, "nil map write")
}

func TestExecuteStoreMemory(t *testing.T) {
	e := newTestExecutor(t, &scriptedModel{})

	act := e.Execute(context.Background(), core.Decision{
		Type: core.ActionStoreMemory,
		StoreMemory: &core.StoreMemoryDetails{
			Content:    "user is vegetarian",
			MemoryType: "user_info",
			Importance: 0.8,
		},
	})

	assert.True(t, act.Success)
	assert.Contains(t, act.Result, "Stored important information with ID: ")
}

func TestExecuteStoreMemoryWithoutContent(t *testing.T) {
	e := newTestExecutor(t, &scriptedModel{})

	act := e.Execute(context.Background(), core.Decision{
		Type:        core.ActionStoreMemory,
		StoreMemory: &core.StoreMemoryDetails{},
	})

	assert.False(t, act.Success)
	assert.Equal(t, "No content provided to store", act.Result)
}

func TestExecuteClarificationDefault(t *testing.T) {
	e := newTestExecutor(t, &scriptedModel{})

	act := e.Execute(context.Background(), core.Decision{
		Type: core.ActionAskClarification,
	})

	assert.True(t, act.Success)
	assert.Equal(t, "Could you please provide more details?", act.Result)
}

func TestExecuteUnknownTypeCoercedToRespond(t *testing.T) {
	m := &scriptedModel{responses: []string{"Synthesized fallback reply."}}
	e := newTestExecutor(t, m)

	act := e.Execute(context.Background(), core.Decision{Type: core.ActionType("mystery")})

	assert.Equal(t, core.ActionRespond, act.Type)
	assert.True(t, act.Success)
	assert.Equal(t, "Synthesized fallback reply.", act.Result)
}
