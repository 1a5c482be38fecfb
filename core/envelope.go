package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentID identifies a participant of a conversation. The set is fixed at
// compile time; User denotes the original caller and is never dispatched to.
type AgentID string

const (
	User    AgentID = "User"
	Head    AgentID = "Head"
	Rag     AgentID = "Rag"
	Memory  AgentID = "Memory"
	Analyst AgentID = "Analyst"
	Mock    AgentID = "Mock"
)

// AgentIDs returns the fixed set of dispatchable agents.
func AgentIDs() []AgentID {
	return []AgentID{Head, Rag, Memory, Analyst, Mock}
}

// Valid reports whether id is a known participant.
func (id AgentID) Valid() bool {
	if id == User {
		return true
	}

	for _, known := range AgentIDs() {
		if id == known {
			return true
		}
	}

	return false
}

// IsAgent reports whether id names a dispatchable agent.
func (id AgentID) IsAgent() bool { return id != User && id.Valid() }

func (id AgentID) String() string { return string(id) }

// ParseAgentID resolves a participant name case-insensitively. Display
// names such as "HeadAgent" or "RAGAgent" are accepted as aliases.
func ParseAgentID(s string) (AgentID, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimSuffix(name, "agent")

	if name == "user" {
		return User, nil
	}

	for _, id := range AgentIDs() {
		if strings.ToLower(string(id)) == name {
			return id, nil
		}
	}

	return "", &ValidationError{Field: "agent_id", Value: s, Message: "unknown agent id"}
}

// NewID returns a new random identifier.
func NewID() string { return uuid.NewString() }

// Envelope is an immutable routed message. All fields are unexported; use
// the accessors. Envelopes are created once via NewEnvelope and never
// mutated afterwards.
type Envelope struct {
	id             string
	conversationID string
	sender         AgentID
	recipient      AgentID
	content        Content
	final          bool
	createdAt      time.Time
}

// EnvelopeOptions configures optional envelope attributes.
type EnvelopeOptions struct {
	// Final marks the envelope as the terminal answer of a user turn.
	Final bool
	// ID overrides the generated identifier.
	ID string
	// CreatedAt overrides the creation timestamp.
	CreatedAt time.Time
}

// NewEnvelope validates and constructs an Envelope. It fails with a
// *ValidationError if sender or recipient are not known participants, if the
// content is missing, or if a final envelope is not addressed to User.
func NewEnvelope(conversationID string, sender, recipient AgentID, content Content, optFns ...func(o *EnvelopeOptions)) (Envelope, error) {
	opts := EnvelopeOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if !sender.Valid() {
		return Envelope{}, &ValidationError{Field: "sender", Value: sender, Message: "unknown agent id"}
	}

	if !recipient.Valid() {
		return Envelope{}, &ValidationError{Field: "recipient", Value: recipient, Message: "unknown agent id"}
	}

	if content == nil {
		return Envelope{}, &ValidationError{Field: "content", Message: "content is required"}
	}

	if opts.Final && recipient != User {
		return Envelope{}, &ValidationError{Field: "final", Value: recipient, Message: "final envelopes must be addressed to User"}
	}

	if opts.ID == "" {
		opts.ID = NewID()
	}

	if opts.CreatedAt.IsZero() {
		opts.CreatedAt = time.Now().UTC()
	}

	return Envelope{
		id:             opts.ID,
		conversationID: conversationID,
		sender:         sender,
		recipient:      recipient,
		content:        cloneContent(content),
		final:          opts.Final,
		createdAt:      opts.CreatedAt,
	}, nil
}

// WithFinal marks the envelope as final.
func WithFinal(o *EnvelopeOptions) { o.Final = true }

// ID returns the envelope identifier.
func (e Envelope) ID() string { return e.id }

// ConversationID returns the owning conversation identifier.
func (e Envelope) ConversationID() string { return e.conversationID }

// Sender returns the producing participant.
func (e Envelope) Sender() AgentID { return e.sender }

// Recipient returns the addressed participant.
func (e Envelope) Recipient() AgentID { return e.recipient }

// Content returns a copy of the payload. Mutating it does not affect the
// envelope.
func (e Envelope) Content() Content { return cloneContent(e.content) }

// CreatedAt returns the creation timestamp (UTC).
func (e Envelope) CreatedAt() time.Time { return e.createdAt }

// IsFinal reports whether the envelope terminates a user turn.
func (e Envelope) IsFinal() bool { return e.final && e.recipient == User }

// IsZero reports whether the envelope was never constructed.
func (e Envelope) IsZero() bool { return e.id == "" }

// Text returns a readable rendering of the payload.
func (e Envelope) Text() string { return ContentText(e.content) }

func (e Envelope) String() string {
	return fmt.Sprintf("%s -> %s: %s", e.sender, e.recipient, e.Text())
}

// IsFinal reports whether env terminates a user turn.
func IsFinal(env Envelope) bool { return env.IsFinal() }

// MarshalJSON renders the envelope for logs and inspection.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID             string    `json:"id"`
		ConversationID string    `json:"conversation_id"`
		Sender         AgentID   `json:"sender"`
		Recipient      AgentID   `json:"recipient"`
		Kind           string    `json:"kind"`
		Content        Content   `json:"content"`
		Final          bool      `json:"final"`
		CreatedAt      time.Time `json:"created_at"`
	}{
		ID:             e.id,
		ConversationID: e.conversationID,
		Sender:         e.sender,
		Recipient:      e.recipient,
		Kind:           contentKind(e.content),
		Content:        e.content,
		Final:          e.final,
		CreatedAt:      e.createdAt,
	})
}
