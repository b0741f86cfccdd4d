// Package session maintains the bounded, role-tagged conversation history
// each participant carries across turns. Sessions are owned exclusively by
// the Manager and keyed by participant name, so multi-run and test-isolated
// usage needs no global state.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/fpt/simforge/pkg/llm"
	pkgLogger "github.com/fpt/simforge/pkg/logger"
	"github.com/fpt/simforge/pkg/message"
)

var logger = pkgLogger.NewComponentLogger("session")

// DefaultMaxHistory bounds session length before summarization kicks in
const DefaultMaxHistory = 40

const summaryPrefix = "Summary of previous events: "

// Session is one participant's ordered conversation. At most one
// system-role message exists, always first.
type Session struct {
	participant string
	messages    []message.Message
}

// Participant returns the owning participant's name
func (s *Session) Participant() string {
	return s.participant
}

// Messages returns a copy of the session's messages in order
func (s *Session) Messages() []message.Message {
	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the session
func (s *Session) Len() int {
	return len(s.messages)
}

// Manager owns all conversation sessions for a run
type Manager struct {
	summarizer llm.Responder
	maxHistory int
	sessions   map[string]*Session
}

// NewManager creates a session manager. The summarizer is the backend used
// to condense over-length sessions; maxHistory <= 0 selects the default.
func NewManager(summarizer llm.Responder, maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		summarizer: summarizer,
		maxHistory: maxHistory,
		sessions:   make(map[string]*Session),
	}
}

// GetOrCreate returns the participant's session, creating it if absent.
// The system prompt seeds a new session, or is prepended to an existing one
// that has no system message yet; it is never duplicated.
func (m *Manager) GetOrCreate(participant, systemPrompt string) *Session {
	sess, ok := m.sessions[participant]
	if !ok {
		sess = &Session{participant: participant}
		m.sessions[participant] = sess
	}

	if systemPrompt != "" && !sess.hasSystemMessage() {
		sess.messages = append([]message.Message{message.NewSystem(systemPrompt)}, sess.messages...)
	}
	return sess
}

// Record appends a message to the participant's session
func (m *Manager) Record(participant string, role message.Role, content string) {
	sess := m.GetOrCreate(participant, "")
	sess.messages = append(sess.messages, message.New(role, content))
}

// MaybeSummarize condenses the participant's session when it has grown past
// the configured maximum: the leading system message is detached, the rest
// is summarized into prose by the summarizer backend, and the session is
// replaced by the system message followed by one synthetic summary message.
// A summarizer failure propagates; silently losing history would corrupt
// every later prompt, so the orchestrator decides how fatal it is.
func (m *Manager) MaybeSummarize(ctx context.Context, participant string) error {
	sess, ok := m.sessions[participant]
	if !ok || len(sess.messages) <= m.maxHistory {
		return nil
	}

	var systemMsg *message.Message
	rest := sess.messages
	if rest[0].Role() == message.RoleSystem {
		detached := rest[0]
		systemMsg = &detached
		rest = rest[1:]
	}

	logger.Info("Summarizing conversation history",
		"participant", participant, "messages", len(rest))

	summary, err := m.summarize(ctx, rest)
	if err != nil {
		return fmt.Errorf("failed to summarize history for %s: %w", participant, err)
	}

	replacement := make([]message.Message, 0, 2)
	if systemMsg != nil {
		replacement = append(replacement, *systemMsg)
	}
	replacement = append(replacement, message.NewSummarySystem(summaryPrefix+summary))
	sess.messages = replacement
	return nil
}

func (m *Manager) summarize(ctx context.Context, messages []message.Message) (string, error) {
	if m.summarizer == nil {
		return "", fmt.Errorf("no summarizer backend configured")
	}

	var transcript strings.Builder
	transcript.WriteString("Condense the following conversation into a concise prose summary. " +
		"Preserve decisions, commitments, and anything needed to continue the exchange.\n\n")
	for _, msg := range messages {
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role(), msg.Content())
	}

	response, err := m.summarizer.Respond(ctx, []message.Message{
		message.New(message.RoleUser, transcript.String()),
	}, nil)
	if err != nil {
		return "", err
	}
	if response.Content() == "" {
		return "", llm.ErrEmptyResponse
	}
	return response.Content(), nil
}

func (s *Session) hasSystemMessage() bool {
	return len(s.messages) > 0 && s.messages[0].Role() == message.RoleSystem
}
