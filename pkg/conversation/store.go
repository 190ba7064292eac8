package conversation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cadforge/pkg/agent"
	"cadforge/pkg/logx"
)

// Store keeps live sessions in memory and evicts them after a period of
// inactivity.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	logger   *logx.Logger
}

// NewStore creates a store evicting sessions idle longer than ttl. A
// non-positive ttl disables eviction.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
		logger:   logx.NewLogger("sessions"),
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

// CreateOptions seeds a new session.
type CreateOptions struct {
	PartID        string
	InitialPrompt string
	Attachments   []Attachment
	ContextParts  []agent.ContextPart
}

// Create registers a new session in the Gathering phase.
func (s *Store) Create(opts CreateOptions) *Session {
	session := newSession()
	session.PartID = opts.PartID
	session.ContextParts = opts.ContextParts

	for i, att := range opts.Attachments {
		if len(session.Attachments) >= MaxAttachments {
			break
		}
		if len(att.Data) > MaxAttachmentSize {
			s.logger.Warn("dropping oversized attachment %q (%d bytes)", att.Name, len(att.Data))
			continue
		}
		if att.ID == "" {
			att.ID = uuid.New().String()
		}
		if att.Name == "" {
			att.Name = fmt.Sprintf("Attachment %d", i+1)
		}
		session.Attachments = append(session.Attachments, att)
	}

	if opts.InitialPrompt != "" {
		session.Requirements.Description = opts.InitialPrompt
		session.AddMessage(KindUser, "", opts.InitialPrompt, nil)
	}
	if n := len(session.Attachments); n > 0 {
		session.AddMessage(KindSystem, "", fmt.Sprintf("%d attachment(s) added as reference", n), nil)
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Debug("session %s created", session.ID)
	return session
}

// Get returns the session with the given id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Delete removes a session. Returns false when it does not exist.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// AddAttachment appends a visual reference to an existing session and
// returns its id. Fails when the session is missing or the cap is reached.
func (s *Store) AddAttachment(sessionID string, att Attachment) (string, error) {
	session, ok := s.Get(sessionID)
	if !ok {
		return "", fmt.Errorf("session not found: %s", sessionID)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if len(session.Attachments) >= MaxAttachments {
		return "", fmt.Errorf("attachment limit reached (%d)", MaxAttachments)
	}
	if len(att.Data) > MaxAttachmentSize {
		return "", fmt.Errorf("attachment too large: %d bytes (max %d)", len(att.Data), MaxAttachmentSize)
	}
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	if att.Name == "" {
		att.Name = fmt.Sprintf("Attachment %d", len(session.Attachments)+1)
	}
	session.Attachments = append(session.Attachments, att)
	session.UpdatedAt = time.Now().UTC()
	return att.ID, nil
}

// Close stops the eviction goroutine.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweep() {
	interval := s.ttl / 10
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Store) evictExpired() {
	cutoff := time.Now().UTC().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		session.mu.Lock()
		expired := session.UpdatedAt.Before(cutoff)
		session.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			s.logger.Debug("session %s evicted after inactivity", id)
		}
	}
}
