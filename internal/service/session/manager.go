// Package session tracks agent sessions and the single CLI run slot.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Session correlates a dashboard conversation with a CLI invocation and an
// on-disk debug directory.
type Session struct {
	ID             string    `json:"session_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Continued      bool      `json:"is_continued"`
	CreatedAt      time.Time `json:"created_at"`
	LastActive     time.Time `json:"last_active"`

	dir string
}

// Dir returns the session's debug directory path.
func (s *Session) Dir() string {
	return s.dir
}

// Manager maps conversation keys to sessions and persists per-session
// debug state. All methods are safe for concurrent use, though in practice
// access is serialized behind the run guard.
type Manager struct {
	mu             sync.RWMutex
	byConversation map[string]*Session
	byID           map[string]*Session
	baseDir        string
}

// NewManager creates a manager writing session state under baseDir.
func NewManager(baseDir string) *Manager {
	return &Manager{
		byConversation: make(map[string]*Session),
		byID:           make(map[string]*Session),
		baseDir:        baseDir,
	}
}

// GetOrCreate returns the session for conversationKey, creating one when
// none exists. Reuse marks the session continued and bumps its last-active
// timestamp; an empty key always creates an untracked session.
func (m *Manager) GetOrCreate(conversationKey string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conversationKey != "" {
		if sess, ok := m.byConversation[conversationKey]; ok {
			sess.Continued = true
			sess.LastActive = time.Now().UTC()
			return sess
		}
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:             uuid.NewString(),
		ConversationID: conversationKey,
		CreatedAt:      now,
		LastActive:     now,
	}
	sess.dir = filepath.Join(m.baseDir, sess.ID)

	if conversationKey != "" {
		m.byConversation[conversationKey] = sess
	}
	m.byID[sess.ID] = sess
	return sess
}

// GetByID looks up a session by its session id.
func (m *Manager) GetByID(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.byID[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Clear removes the session tracked for conversationKey. Reports whether
// anything was removed.
func (m *Manager) Clear(conversationKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byConversation[conversationKey]
	if !ok {
		return false
	}
	delete(m.byConversation, conversationKey)
	delete(m.byID, sess.ID)
	return true
}

// ClearAll drops every tracked session and returns how many were removed.
// Safe to call repeatedly.
func (m *Manager) ClearAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.byID)
	m.byConversation = make(map[string]*Session)
	m.byID = make(map[string]*Session)
	return count
}

// Info is the listing shape for the debug endpoint.
type Info struct {
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActive     time.Time `json:"last_active"`
	Continued      bool      `json:"is_continued"`
}

// List returns every tracked session.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.byID))
	for _, sess := range m.byID {
		out = append(out, Info{
			SessionID:      sess.ID,
			ConversationID: sess.ConversationID,
			CreatedAt:      sess.CreatedAt,
			LastActive:     sess.LastActive,
			Continued:      sess.Continued,
		})
	}
	return out
}

// PersistContext writes the request context to the session's debug
// directory as indented JSON, overwriting any previous dump.
func (m *Manager) PersistContext(sess *Session, context any) (string, error) {
	if err := os.MkdirAll(sess.dir, 0o755); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.MarshalIndent(context, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}

	path := filepath.Join(sess.dir, "request_context.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write context file: %w", err)
	}
	return path, nil
}

// LoadContext reads back a persisted request context, or nil when none
// has been written yet.
func (m *Manager) LoadContext(sess *Session) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(sess.dir, "request_context.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read context file: %w", err)
	}

	var context map[string]any
	if err := json.Unmarshal(data, &context); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return context, nil
}
