package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/pellucidlabs/sage/capability"
	"github.com/pellucidlabs/sage/core"
	"github.com/pellucidlabs/sage/memory"
	"github.com/pellucidlabs/sage/model"
)

// State names the phase the control loop is currently in.
type State string

const (
	StateIdle       State = "idle"
	StateObserving  State = "observing"
	StateDeciding   State = "deciding"
	StateActing     State = "acting"
	StateReflecting State = "reflecting"
)

// reflectionCues mark user inputs worth persisting as interaction summaries.
var reflectionCues = []string{"my name", "i am", "i like", "i prefer", "remember", "important"}

// Loop runs the observe, decide, act, reflect cycle over a single user
// input. Each call is bounded by maxIterations so a model that never
// produces a terminal action cannot spin forever.
type Loop struct {
	coordinator *memory.Coordinator
	registry    *capability.Registry
	engine      *DecisionEngine
	executor    *ActionExecutor

	persona       string
	maxIterations int
	logger        *log.Logger

	mu        sync.Mutex
	state     State
	iteration int
}

// NewLoop wires the loop's collaborators.
func NewLoop(coord *memory.Coordinator, reg *capability.Registry, m model.Model, persona string, maxIterations, minRespondLength int, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		coordinator:   coord,
		registry:      reg,
		engine:        NewDecisionEngine(m, logger),
		executor:      NewActionExecutor(reg, coord, m, minRespondLength, logger),
		persona:       persona,
		maxIterations: maxIterations,
		logger:        logger,
		state:         StateIdle,
	}
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Snapshot returns the current state and iteration for status reporting.
func (l *Loop) Snapshot() (State, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.iteration
}

func (l *Loop) setIteration(i int) {
	l.mu.Lock()
	l.iteration = i
	l.mu.Unlock()
}

// SetPersona changes the persona used for subsequent decisions. Validation
// happens at the agent facade.
func (l *Loop) SetPersona(persona string) {
	l.mu.Lock()
	l.persona = persona
	l.mu.Unlock()
}

// Persona returns the active persona.
func (l *Loop) Persona() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.persona
}

// ProcessUserInput runs one full cycle for a user input and returns the
// final response text. Non-terminal actions feed their result back into the
// next iteration's observation; after maxIterations without a terminal
// action the scripted apology is returned.
func (l *Loop) ProcessUserInput(ctx context.Context, input string, extra map[string]string) string {
	obs := l.observe(ctx, input, extra)

	final := ""
	for i := 1; i <= l.maxIterations; i++ {
		l.setIteration(i)
		obs.Iteration = i

		l.setState(StateDeciding)
		dec, err := l.engine.Decide(ctx, obs)
		if err != nil {
			// Adapter failure: the fallback message is the response;
			// nothing to execute this iteration.
			final = dec.Respond.Message
			break
		}

		l.setState(StateActing)
		act := l.executor.Execute(ctx, dec)
		l.logger.Printf("[LOOP] iteration=%d action=%s success=%t", i, act.Type, act.Success)

		if dec.Type.Terminal() {
			final = act.Result
			break
		}
		obs.LastAction = &act
	}

	if final == "" {
		final = apologyResponse
	}

	l.reflect(ctx, input, final)
	l.setState(StateIdle)
	l.setIteration(0)
	return final
}

// reflect records the assistant turn and persists a summary of the exchange
// when the user input carries a personal cue.
func (l *Loop) reflect(ctx context.Context, input, response string) {
	l.setState(StateReflecting)

	l.coordinator.RecordTurn(ctx, core.RoleAssistant, response, nil)

	lower := strings.ToLower(input)
	for _, cue := range reflectionCues {
		if strings.Contains(lower, cue) {
			summary := fmt.Sprintf("User: %s\nAssistant: %s", input, response)
			if _, err := l.coordinator.StoreImportant(ctx, summary, memory.TypeInteraction, 0.7, []string{"user_interaction", l.Persona()}); err != nil {
				l.logger.Printf("[LOOP] Failed to store interaction summary: %v", err)
			}
			return
		}
	}
}
