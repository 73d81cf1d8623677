package agent

import (
	"context"
	"time"

	"github.com/pellucidlabs/sage/core"
	"github.com/pellucidlabs/sage/memory"
)

// Observation is the decision-time context assembled at the start of each
// process-user-input call. It is created fresh per call and never persisted.
// LastAction is the one piece of state the loop carries between iterations.
type Observation struct {
	UserInput    string
	History      []core.Message
	Capabilities []string
	Persona      string
	Memories     []memory.SearchResult
	SessionInfo  memory.Summary
	Extra        map[string]string
	LastAction   *core.Action
	Iteration    int
	Timestamp    time.Time
}

// observe records the user turn and assembles the observation from the
// memory coordinator snapshot. It never fails: collaborator lookups inside
// the coordinator fail closed.
func (l *Loop) observe(ctx context.Context, userInput string, extra map[string]string) *Observation {
	l.setState(StateObserving)

	l.coordinator.RecordTurn(ctx, core.RoleUser, userInput, extra)

	return &Observation{
		UserInput:    userInput,
		History:      l.coordinator.AssembleContext(ctx, true),
		Capabilities: l.registry.Names(),
		Persona:      l.persona,
		Memories:     l.coordinator.SearchMemories(ctx, userInput, 3),
		SessionInfo:  l.coordinator.ShortTerm().Summary(),
		Extra:        extra,
		Timestamp:    time.Now(),
	}
}
