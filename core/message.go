// Package core defines the value types shared across the agent: conversation
// messages and the per-iteration Decision and Action objects produced by the
// control loop.
package core

import "time"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation turn. Messages are immutable once appended
// to short-term memory.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
	Metadata  map[string]string
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string, metadata map[string]string) Message {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
