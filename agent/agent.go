// Package agent implements the conversational control loop: each user input
// is observed against memory, decided on by the model, acted on through the
// capability registry, and reflected back into memory. The Agent type is the
// public facade over the loop and the memory coordinator.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pellucidlabs/sage/capability"
	"github.com/pellucidlabs/sage/memory"
	"github.com/pellucidlabs/sage/model"
)

// ErrUnknownPersona is returned when a persona name is not one of the
// supported values.
var ErrUnknownPersona = errors.New("agent: unknown persona")

// Options configures a new agent. Zero values fall back to the defaults
// noted on each field.
type Options struct {
	Persona          string // default "personal"
	MaxIterations    int    // default 10
	MinRespondLength int    // default 10
	Logger           *log.Logger
}

// Agent is the top-level entry point. It owns a control loop, a capability
// registry, and a memory coordinator, and exposes session management on top.
type Agent struct {
	id        string
	createdAt time.Time

	loop        *Loop
	registry    *capability.Registry
	coordinator *memory.Coordinator
	model       model.Model
	logger      *log.Logger

	interactions atomic.Int64
}

// New builds an agent. Configuration problems surface here; Chat itself
// never returns an error.
func New(m model.Model, coord *memory.Coordinator, reg *capability.Registry, opts Options) (*Agent, error) {
	if m == nil {
		return nil, errors.New("agent: model is required")
	}
	if coord == nil {
		return nil, errors.New("agent: memory coordinator is required")
	}
	if reg == nil {
		reg = capability.NewRegistry()
	}

	if opts.Persona == "" {
		opts.Persona = PersonaPersonal
	}
	if !validPersona(opts.Persona) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, opts.Persona)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 10
	}
	if opts.MinRespondLength <= 0 {
		opts.MinRespondLength = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Agent{
		id:          uuid.New().String(),
		createdAt:   time.Now(),
		loop:        NewLoop(coord, reg, m, opts.Persona, opts.MaxIterations, opts.MinRespondLength, logger),
		registry:    reg,
		coordinator: coord,
		model:       m,
		logger:      logger,
	}, nil
}

// ID returns the agent's session identifier.
func (a *Agent) ID() string { return a.id }

// Chat processes one user message and returns the response text. It never
// panics: failures inside the loop degrade to scripted fallback responses.
func (a *Agent) Chat(ctx context.Context, message string, extra map[string]string) (resp string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("[AGENT] Recovered from panic in chat: %v", r)
			resp = apologyResponse
		}
	}()

	a.interactions.Add(1)
	meta := map[string]string{"agent_id": a.id}
	for k, v := range extra {
		meta[k] = v
	}
	return a.loop.ProcessUserInput(ctx, message, meta)
}

// RegisterCapability adds a capability to the agent's registry.
func (a *Agent) RegisterCapability(c capability.Capability) error {
	return a.registry.Register(c)
}

// Capabilities lists the registered capability names.
func (a *Agent) Capabilities() []string {
	return a.registry.Names()
}

// SetPersona switches the active persona.
func (a *Agent) SetPersona(persona string) error {
	if !validPersona(persona) {
		return fmt.Errorf("%w: %q", ErrUnknownPersona, persona)
	}
	a.loop.SetPersona(persona)
	return nil
}

// ClearMemory clears session state. Scope "short_term" or "all" clears the
// short-term buffer; long-term records are never deleted here.
func (a *Agent) ClearMemory(scope string) error {
	switch scope {
	case "short_term", "all":
		a.coordinator.ClearShortTerm()
		return nil
	default:
		return fmt.Errorf("agent: unknown memory scope %q", scope)
	}
}

// StorePreference persists a user preference and mirrors it into the
// session context.
func (a *Agent) StorePreference(ctx context.Context, key, value string) error {
	return a.coordinator.SetPreference(ctx, key, value)
}

// GetPreference looks up a stored preference. The boolean reports presence.
func (a *Agent) GetPreference(ctx context.Context, key string) (string, bool, error) {
	return a.coordinator.GetPreference(ctx, key)
}

// SearchMemories queries long-term memory by similarity.
func (a *Agent) SearchMemories(ctx context.Context, query string, limit int) []memory.SearchResult {
	return a.coordinator.SearchMemories(ctx, query, limit)
}

// Status is a point-in-time snapshot of the agent.
type Status struct {
	ID            string               `json:"id"`
	State         State                `json:"state"`
	Persona       string               `json:"persona"`
	Iteration     int                  `json:"iteration"`
	MaxIterations int                  `json:"max_iterations"`
	Capabilities  []string             `json:"capabilities"`
	Model         model.Info           `json:"model"`
	Memory        memory.MemorySummary `json:"memory"`
	Uptime        time.Duration        `json:"uptime"`
	Interactions  int64                `json:"interactions"`
}

// Status reports the agent's current state.
func (a *Agent) Status(ctx context.Context) Status {
	state, iter := a.loop.Snapshot()
	return Status{
		ID:            a.id,
		State:         state,
		Persona:       a.loop.Persona(),
		Iteration:     iter,
		MaxIterations: a.loop.maxIterations,
		Capabilities:  a.registry.Names(),
		Model:         a.model.Info(),
		Memory:        a.coordinator.Summary(ctx),
		Uptime:        time.Since(a.createdAt),
		Interactions:  a.interactions.Load(),
	}
}

func validPersona(p string) bool {
	switch p {
	case PersonaPersonal, PersonaResearch, PersonaTechnical:
		return true
	}
	return false
}
