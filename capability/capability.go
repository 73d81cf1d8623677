// Package capability defines the named-operation contract the agent can
// invoke through use_capability decisions, plus a registry mapping names to
// implementations.
package capability

import "context"

// Result is returned by every capability invocation. A capability reports
// its own failures through Success/Error rather than a Go error; an error
// return is reserved for infrastructure failures (timeouts, transport).
type Result struct {
	Success bool
	Result  any
	Error   string
}

// Capability is an external, named operation the agent may invoke. The agent
// core never implements capability logic itself; owning applications register
// implementations against the registry.
type Capability interface {
	// Name is the identifier the decision engine uses to select this
	// capability.
	Name() string

	// Description is surfaced to the model in the capability listing.
	Description() string

	// ParameterSchema returns the JSON Schema for Invoke's parameters.
	ParameterSchema() map[string]any

	// Invoke executes the capability with the supplied parameters.
	Invoke(ctx context.Context, params map[string]any) (*Result, error)
}

// Func adapts a plain function into a Capability. Useful for inline
// capabilities in examples and tests.
type Func struct {
	CapName        string
	CapDescription string
	Schema         map[string]any
	Fn             func(ctx context.Context, params map[string]any) (*Result, error)
}

func (f *Func) Name() string                    { return f.CapName }
func (f *Func) Description() string             { return f.CapDescription }
func (f *Func) ParameterSchema() map[string]any { return f.Schema }

func (f *Func) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	return f.Fn(ctx, params)
}
