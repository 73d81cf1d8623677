package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pellucidlabs/sage/capability"
	"github.com/pellucidlabs/sage/core"
	"github.com/pellucidlabs/sage/memory"
	"github.com/pellucidlabs/sage/model"
)

const apologyResponse = "I apologize, but I couldn't process your request completely."

// ActionExecutor carries out a decision and records the outcome. Panics in
// capability code are recovered here and converted into failed actions so
// the control loop never sees them.
type ActionExecutor struct {
	registry         *capability.Registry
	coordinator      *memory.Coordinator
	model            model.Model
	minRespondLength int
	logger           *log.Logger
}

// NewActionExecutor wires the executor's collaborators. A nil logger
// defaults to log.Default().
func NewActionExecutor(reg *capability.Registry, coord *memory.Coordinator, m model.Model, minRespondLength int, logger *log.Logger) *ActionExecutor {
	if logger == nil {
		logger = log.Default()
	}
	return &ActionExecutor{
		registry:         reg,
		coordinator:      coord,
		model:            m,
		minRespondLength: minRespondLength,
		logger:           logger,
	}
}

// Execute performs the decided action and returns a record of what happened.
// It always returns a populated action, failed rather than absent on error.
func (e *ActionExecutor) Execute(ctx context.Context, dec core.Decision) (act core.Action) {
	start := time.Now()
	act = core.Action{
		Type:      dec.Type,
		Timestamp: start,
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[ACT] Recovered from panic during %s: %v", dec.Type, r)
			act.Success = false
			act.Result = fmt.Sprintf("Action failed: %v", r)
		}
		act.ExecutionTime = time.Since(start)
	}()

	switch dec.Type {
	case core.ActionUseCapability:
		e.executeCapability(ctx, dec, &act)
	case core.ActionStoreMemory:
		e.executeStoreMemory(ctx, dec, &act)
	case core.ActionAskClarification:
		msg := ""
		if dec.Clarify != nil {
			msg = dec.Clarify.Message
		}
		if msg == "" {
			msg = "Could you please provide more details?"
		}
		act.Success = true
		act.Result = msg
	default:
		// Respond, and anything coerced into it.
		act.Type = core.ActionRespond
		e.executeRespond(ctx, dec, &act)
	}
	return act
}

func (e *ActionExecutor) executeCapability(ctx context.Context, dec core.Decision, act *core.Action) {
	if dec.UseCapability == nil || dec.UseCapability.Name == "" {
		act.Success = false
		act.Result = "Capability '' not found"
		return
	}
	name := dec.UseCapability.Name
	act.Parameters = dec.UseCapability.Parameters

	c, ok := e.registry.Get(name)
	if !ok {
		e.logger.Printf("[ACT] Unknown capability requested: %s", name)
		act.Success = false
		act.Result = fmt.Sprintf("Capability '%s' not found", name)
		return
	}

	res, err := c.Invoke(ctx, dec.UseCapability.Parameters)
	if err != nil {
		act.Success = false
		act.Result = fmt.Sprintf("Capability '%s' failed: %v", name, err)
		return
	}
	if !res.Success {
		act.Success = false
		act.Result = fmt.Sprintf("Capability '%s' failed: %s", name, res.Error)
		return
	}
	act.Success = true
	act.Result = fmt.Sprintf("%v", res.Result)
}

func (e *ActionExecutor) executeStoreMemory(ctx context.Context, dec core.Decision, act *core.Action) {
	if dec.StoreMemory == nil || dec.StoreMemory.Content == "" {
		act.Success = false
		act.Result = "No content provided to store"
		return
	}
	rec, err := e.coordinator.StoreImportant(ctx, dec.StoreMemory.Content, dec.StoreMemory.MemoryType, dec.StoreMemory.Importance, nil)
	if err != nil {
		act.Success = false
		act.Result = fmt.Sprintf("Failed to store memory: %v", err)
		return
	}
	act.Success = true
	act.Result = fmt.Sprintf("Stored important information with ID: %s", rec.ID)
}

// executeRespond returns the decided message verbatim when it is substantial
// enough, otherwise asks the model to synthesize a reply over the assembled
// conversation context.
func (e *ActionExecutor) executeRespond(ctx context.Context, dec core.Decision, act *core.Action) {
	msg := ""
	if dec.Respond != nil {
		msg = dec.Respond.Message
	}
	if len(msg) >= e.minRespondLength {
		act.Success = true
		act.Result = msg
		return
	}

	history := e.coordinator.AssembleContext(ctx, true)
	out, err := e.model.Generate(ctx, history)
	if err != nil {
		e.logger.Printf("[ACT] Response synthesis failed: %v", err)
		act.Success = false
		act.Result = apologyResponse
		return
	}
	act.Success = true
	act.Result = out
}
