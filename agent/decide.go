package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/pellucidlabs/sage/core"
	"github.com/pellucidlabs/sage/model"
)

// DecisionEngine turns an observation into a structured decision by querying
// the model adapter and parsing its labeled-line output. It never propagates
// a failure: malformed output falls back to the documented default decision,
// and adapter errors produce a scripted fallback.
type DecisionEngine struct {
	model  model.Model
	logger *log.Logger
}

// NewDecisionEngine creates the engine. A nil logger defaults to
// log.Default().
func NewDecisionEngine(m model.Model, logger *log.Logger) *DecisionEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &DecisionEngine{model: m, logger: logger}
}

// Decide queries the model and parses the result. On adapter failure the
// returned error is non-nil and the decision is the scripted fallback, so
// the caller can use its message directly without executing anything.
func (d *DecisionEngine) Decide(ctx context.Context, obs *Observation) (core.Decision, error) {
	messages := []core.Message{
		core.NewMessage(core.RoleSystem, decisionPrompt(obs.Persona, obs.Capabilities), nil),
		core.NewMessage(core.RoleUser, decisionInput(obs), nil),
	}

	raw, err := d.model.Generate(ctx, messages)
	if err != nil {
		d.logger.Printf("[DECIDE] Model error, using fallback decision: %v", err)
		return core.Decision{
			Type:       core.ActionRespond,
			Reasoning:  "Error in decision making process",
			Confidence: 0.3,
			Timestamp:  time.Now(),
			Fallback:   true,
			Respond: &core.RespondDetails{
				Message: "I'm having trouble processing your request. Could you please rephrase it?",
			},
		}, fmt.Errorf("decide: %w", err)
	}

	dec := parseDecision(raw)
	d.logger.Printf("[DECIDE] action=%s confidence=%.2f", dec.Type, dec.Confidence)
	return dec, nil
}

// decisionInput builds the user-side content for the decision request. The
// last action's result is included so later iterations see prior capability
// output.
func decisionInput(obs *Observation) string {
	if obs.LastAction == nil {
		return obs.UserInput
	}

	status := "succeeded"
	if !obs.LastAction.Success {
		status = "failed"
	}
	return fmt.Sprintf("%s\n\nPrevious action (%s) %s with result:\n%s",
		obs.UserInput, obs.LastAction.Type, status, obs.LastAction.Result)
}

// parseDecision scans the model output line by line for the four labeled
// lines. Missing or unknown lines keep the documented defaults; a final
// action type outside the four valid values is coerced to respond with the
// entire raw output as the message.
func parseDecision(raw string) core.Decision {
	actionType := string(core.ActionRespond)
	reasoning := "Default fallback decision"
	confidence := 0.5
	details := map[string]any{"message": "I need more information to help you."}

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		switch {
		case strings.HasPrefix(line, "ACTION_TYPE:"):
			actionType = strings.TrimSpace(strings.TrimPrefix(line, "ACTION_TYPE:"))
		case strings.HasPrefix(line, "REASONING:"):
			reasoning = strings.TrimSpace(strings.TrimPrefix(line, "REASONING:"))
		case strings.HasPrefix(line, "DETAILS:"):
			detailsStr := strings.TrimSpace(strings.TrimPrefix(line, "DETAILS:"))
			var parsed map[string]any
			if err := json.Unmarshal([]byte(detailsStr), &parsed); err == nil {
				details = parsed
			} else {
				details = map[string]any{"message": detailsStr}
			}
		case strings.HasPrefix(line, "CONFIDENCE:"):
			if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:")), 64); err == nil {
				confidence = core.Clamp01(v)
			}
		}
	}

	dec := core.Decision{
		Type:       core.ActionType(actionType),
		Reasoning:  reasoning,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}

	if !dec.Type.Valid() {
		dec.Type = core.ActionRespond
		dec.Fallback = true
		dec.Respond = &core.RespondDetails{Message: raw}
		return dec
	}

	switch dec.Type {
	case core.ActionRespond:
		dec.Respond = &core.RespondDetails{Message: detailString(details, "message")}
	case core.ActionUseCapability:
		name := detailString(details, "capability_name")
		if name == "" {
			name = detailString(details, "tool_name")
		}
		params, _ := details["parameters"].(map[string]any)
		dec.UseCapability = &core.UseCapabilityDetails{Name: name, Parameters: params}
	case core.ActionStoreMemory:
		importance := 0.7
		if v, ok := details["importance"].(float64); ok {
			importance = core.Clamp01(v)
		}
		memType := detailString(details, "memory_type")
		if memType == "" {
			memType = "user_info"
		}
		dec.StoreMemory = &core.StoreMemoryDetails{
			Content:    detailString(details, "content"),
			MemoryType: memType,
			Importance: importance,
		}
	case core.ActionAskClarification:
		dec.Clarify = &core.ClarifyDetails{Message: detailString(details, "message")}
	}
	return dec
}

// detailString extracts a string field from a details map, stringifying
// non-string values.
func detailString(details map[string]any, key string) string {
	v, ok := details[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
