// Package conversation implements the phased multi-agent design dialogue:
// requirements gathering, specialist analysis, code generation, and
// finalization over an in-memory session store.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"cadforge/pkg/agent"
	"cadforge/pkg/agent/llm"
	"cadforge/pkg/cadexec"
)

// Phase is a stage of the design conversation.
type Phase string

const (
	PhaseGathering  Phase = "gathering"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseDesigning  Phase = "designing"
	PhaseReviewing  Phase = "reviewing"
	PhaseFinalizing Phase = "finalizing"
	PhaseComplete   Phase = "complete"
)

// MessageKind classifies a conversation message.
type MessageKind string

const (
	KindUser       MessageKind = "user"
	KindAgent      MessageKind = "agent"
	KindQuestion   MessageKind = "question"
	KindSuggestion MessageKind = "suggestion"
	KindCode       MessageKind = "code"
	KindValidation MessageKind = "validation"
	KindSystem     MessageKind = "system"
)

// Role identifies the specialist agent behind a message.
type Role string

const (
	RoleCoordinator   Role = "coordinator"
	RoleRequirements  Role = "requirements"
	RoleDesigner      Role = "designer"
	RoleEngineer      Role = "engineer"
	RolePhysics       Role = "physics"
	RoleManufacturing Role = "manufacturing"
	RoleValidator     Role = "validator"
)

// RoleFromName maps an agent name from an LLM response to a Role,
// defaulting to the requirements agent.
func RoleFromName(name string) Role {
	switch Role(name) {
	case RoleCoordinator, RoleRequirements, RoleDesigner, RoleEngineer,
		RolePhysics, RoleManufacturing, RoleValidator:
		return Role(name)
	}
	return RoleRequirements
}

// Message is one entry in a session transcript. Messages are immutable
// once appended.
type Message struct {
	ID        string         `json:"id"`
	Kind      MessageKind    `json:"kind"`
	Role      Role           `json:"agent_role,omitempty"`
	Content   string         `json:"content"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Attachment is an image or sketch supplied as visual reference.
type Attachment struct {
	ID       string `json:"id"`
	Data     []byte `json:"-"`
	Mime     string `json:"mime_type"`
	Name     string `json:"name"`
	IsSketch bool   `json:"is_sketch"`
}

// Attachment limits: per-session count and per-attachment payload size.
const (
	MaxAttachments    = 10
	MaxAttachmentSize = 10 << 20 // 10 MB
)

// Session is one live design conversation.
type Session struct {
	// handlerMu serializes whole-turn processing so concurrent sends on
	// one session cannot interleave appends or race phase transitions.
	handlerMu sync.Mutex

	mu sync.Mutex

	ID            string
	PartID        string
	Phase         Phase
	Messages      []Message
	Requirements  *Requirements
	GeneratedCode string
	BoundingBox   *cadexec.BoundingBox
	Attachments   []Attachment
	ContextParts  []agent.ContextPart
	CreatedAt     time.Time
	UpdatedAt     time.Time

	lastTimestamp time.Time
}

func newSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.New().String(),
		Phase:        PhaseGathering,
		Requirements: NewRequirements(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AddMessage appends a message and bumps updated_at. Timestamps are kept
// strictly monotonic even when the clock does not advance between appends.
func (s *Session) AddMessage(kind MessageKind, role Role, content string, data map[string]any) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := time.Now().UTC()
	if !ts.After(s.lastTimestamp) {
		ts = s.lastTimestamp.Add(time.Microsecond)
	}
	s.lastTimestamp = ts

	msg := Message{
		ID:        uuid.New().String(),
		Kind:      kind,
		Role:      role,
		Content:   content,
		Data:      data,
		Timestamp: ts,
	}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = ts
	return msg
}

// LastUserMessage returns the content of the most recent user message.
func (s *Session) LastUserMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Kind == KindUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// MessageCount returns the transcript length.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Messages)
}

// Transcript returns a copy of the message list.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// CurrentPhase returns the phase under the session lock.
func (s *Session) CurrentPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Phase
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = p
	s.UpdatedAt = time.Now().UTC()
}

// RequirementsSnapshot returns a deep copy safe to read outside the lock,
// e.g. during the specialist fan-out.
func (s *Session) RequirementsSnapshot() *Requirements {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Requirements.clone()
}

// HasVisualReference reports whether the session carries any attachment.
func (s *Session) HasVisualReference() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Attachments) > 0
}

// Images returns the attachments as gateway image inputs.
func (s *Session) Images() []llm.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	images := make([]llm.Image, 0, len(s.Attachments))
	for _, att := range s.Attachments {
		images = append(images, llm.Image{Data: att.Data, Mime: att.Mime})
	}
	return images
}

// SetGeneratedCode stores the accepted script and its geometry.
func (s *Session) SetGeneratedCode(code string, bbox *cadexec.BoundingBox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GeneratedCode = code
	s.BoundingBox = bbox
	s.UpdatedAt = time.Now().UTC()
}

// Code returns the last accepted script, or empty.
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GeneratedCode
}
