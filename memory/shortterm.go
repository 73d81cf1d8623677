package memory

import (
	"sort"
	"time"

	"github.com/pellucidlabs/sage/core"
)

// ShortTerm is the session-scoped buffer of recent conversation turns plus a
// small keyed context map. The buffer never exceeds its capacity: appending
// at capacity evicts the oldest message first. All operations are total; a
// ShortTerm has no error states.
//
// ShortTerm is not safe for concurrent use; one session is strictly
// sequential and owns its buffer.
type ShortTerm struct {
	capacity     int
	messages     []core.Message
	context      map[string]string
	sessionStart time.Time
}

// DefaultSTMCapacity bounds the buffer when no capacity is configured.
const DefaultSTMCapacity = 20

// NewShortTerm creates a buffer with the given capacity. Non-positive
// capacities fall back to the default.
func NewShortTerm(capacity int) *ShortTerm {
	if capacity <= 0 {
		capacity = DefaultSTMCapacity
	}
	return &ShortTerm{
		capacity:     capacity,
		messages:     make([]core.Message, 0, capacity),
		context:      make(map[string]string),
		sessionStart: time.Now(),
	}
}

// Append adds a message, evicting the oldest if the buffer is full.
func (s *ShortTerm) Append(msg core.Message) {
	if len(s.messages) >= s.capacity {
		copy(s.messages, s.messages[1:])
		s.messages = s.messages[:len(s.messages)-1]
	}
	s.messages = append(s.messages, msg)
}

// Recent returns the last n messages in arrival order. If n is non-positive
// or exceeds the buffer length, the whole buffer is returned.
func (s *ShortTerm) Recent(n int) []core.Message {
	if n <= 0 || n > len(s.messages) {
		n = len(s.messages)
	}
	out := make([]core.Message, n)
	copy(out, s.messages[len(s.messages)-n:])
	return out
}

// Len returns the number of buffered messages.
func (s *ShortTerm) Len() int {
	return len(s.messages)
}

// Capacity returns the configured maximum buffer size.
func (s *ShortTerm) Capacity() int {
	return s.capacity
}

// AsContext returns the full buffer as role/content messages suitable for
// model input.
func (s *ShortTerm) AsContext() []core.Message {
	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetContext stores a keyed context value.
func (s *ShortTerm) SetContext(key, value string) {
	s.context[key] = value
}

// Context returns the keyed context value, if present.
func (s *ShortTerm) Context(key string) (string, bool) {
	v, ok := s.context[key]
	return v, ok
}

// ContextKeys returns the stored context keys in sorted order.
func (s *ShortTerm) ContextKeys() []string {
	keys := make([]string, 0, len(s.context))
	for k := range s.context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear empties the buffer and the context map and restarts the session
// clock.
func (s *ShortTerm) Clear() {
	s.messages = s.messages[:0]
	s.context = make(map[string]string)
	s.sessionStart = time.Now()
}

// Summary describes the buffer state.
type Summary struct {
	MessageCount    int
	Capacity        int
	ContextKeys     []string
	SessionStart    time.Time
	SessionDuration time.Duration
}

// Summary returns message count, capacity, context keys, and session
// duration.
func (s *ShortTerm) Summary() Summary {
	return Summary{
		MessageCount:    len(s.messages),
		Capacity:        s.capacity,
		ContextKeys:     s.ContextKeys(),
		SessionStart:    s.sessionStart,
		SessionDuration: time.Since(s.sessionStart),
	}
}
