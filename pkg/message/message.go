package message

import (
	"fmt"
	"time"
)

// Role identifies who produced a message in a conversation session.
type Role int

const (
	RoleSystem Role = iota
	RoleUser
	RoleAssistant
)

// String returns the wire-level role name used by LLM backends
func (r Role) String() string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Source distinguishes ordinary messages from synthetic ones the engine
// injects, such as conversation summaries.
type Source int

const (
	SourceDefault Source = iota
	SourceSummary
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Message is a single role-tagged entry in a conversation session, in a
// neutral format shared by all LLM backends.
type Message struct {
	id        string
	role      Role
	content   string
	source    Source
	timestamp time.Time
}

// New creates a new message with the current timestamp
func New(role Role, content string) Message {
	return Message{
		id:        generateMessageID(),
		role:      role,
		content:   content,
		source:    SourceDefault,
		timestamp: time.Now(),
	}
}

// NewSystem creates a system-role message
func NewSystem(content string) Message {
	return New(RoleSystem, content)
}

// NewSummarySystem creates a synthetic system message carrying a
// conversation summary. The summary source lets callers tell it apart from
// a scenario-authored system prompt.
func NewSummarySystem(content string) Message {
	m := New(RoleSystem, content)
	m.source = SourceSummary
	return m
}

func (m Message) ID() string           { return m.id }
func (m Message) Role() Role           { return m.role }
func (m Message) Content() string      { return m.content }
func (m Message) Source() Source       { return m.source }
func (m Message) Timestamp() time.Time { return m.timestamp }

func (m Message) String() string {
	return fmt.Sprintf("Message(ID: %s, Role: %s, Content: %q, Source: %s, Timestamp: %s)",
		m.id, m.role, m.content, m.source, m.timestamp.Format(time.RFC3339))
}

var idCounter uint64

// generateMessageID generates a unique message ID
func generateMessageID() string {
	idCounter++
	return fmt.Sprintf("msg_%d_%d", time.Now().UnixNano(), idCounter)
}
