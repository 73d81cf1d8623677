package core

import "time"

// Action records the outcome of executing one Decision. It is the only state
// the control loop carries forward between iterations: the last Action is
// attached to the next Observation so later decisions see prior results.
type Action struct {
	Type          ActionType
	Parameters    map[string]any
	Result        string
	Success       bool
	Timestamp     time.Time
	ExecutionTime time.Duration
}
