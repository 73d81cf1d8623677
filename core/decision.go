package core

import "time"

// ActionType enumerates the four actions the decision engine may choose.
type ActionType string

const (
	ActionRespond          ActionType = "respond"
	ActionUseCapability    ActionType = "use_capability"
	ActionStoreMemory      ActionType = "store_memory"
	ActionAskClarification ActionType = "ask_clarification"
)

// Valid reports whether t is one of the four enumerated action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionRespond, ActionUseCapability, ActionStoreMemory, ActionAskClarification:
		return true
	}
	return false
}

// Terminal reports whether an action of this type ends the decide/act loop.
func (t ActionType) Terminal() bool {
	return t == ActionRespond || t == ActionAskClarification
}

// RespondDetails carries the message for a direct response.
type RespondDetails struct {
	Message string
}

// UseCapabilityDetails names a registered capability and its parameters.
type UseCapabilityDetails struct {
	Name       string
	Parameters map[string]any
}

// StoreMemoryDetails carries content destined for long-term memory.
type StoreMemoryDetails struct {
	Content    string
	MemoryType string
	Importance float64
}

// ClarifyDetails carries the clarification question to put to the user.
type ClarifyDetails struct {
	Message string
}

// Decision is the structured outcome of one DECIDING step. Exactly one of the
// variant fields matching Type is populated; the others are nil. Fallback is
// set when the model output could not be parsed and the decision was coerced
// to a respond, preserving the raw text as the message.
type Decision struct {
	Type       ActionType
	Reasoning  string
	Confidence float64
	Timestamp  time.Time
	Fallback   bool

	Respond       *RespondDetails
	UseCapability *UseCapabilityDetails
	StoreMemory   *StoreMemoryDetails
	Clarify       *ClarifyDetails
}

// Clamp01 clamps v to the [0, 1] range used by confidence and importance
// scores.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
