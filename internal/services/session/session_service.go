package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/common"
	"github.com/ternarybob/studium/internal/models"
)

// Manager owns the process-wide session store: sessions are created
// lazily on first use and retained for the process lifetime, with history
// bounded to the most recent maxHistory exchanges. An optional soft cap
// evicts the longest-idle session when exceeded.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	maxHistory  int
	maxSessions int
	logger      arbor.ILogger
}

// entry pairs a session with the lock serializing its turns. inUse
// counts callers holding or waiting on the turn lock; guarded by the
// manager lock.
type entry struct {
	turnLock sync.Mutex
	inUse    int
	session  models.Session
}

// NewManager creates a session manager. maxHistory is the number of
// exchanges retained per session; maxSessions of 0 means unbounded.
func NewManager(maxHistory, maxSessions int, logger arbor.ILogger) *Manager {
	if maxHistory <= 0 {
		maxHistory = 5
	}
	return &Manager{
		sessions:    make(map[string]*entry),
		maxHistory:  maxHistory,
		maxSessions: maxSessions,
		logger:      logger,
	}
}

// Create allocates a new session and returns its id
func (m *Manager) Create() string {
	id := common.NewSessionID()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictIfFull()
	now := time.Now()
	m.sessions[id] = &entry{
		session: models.Session{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	m.logger.Debug().Str("session_id", id).Msg("Created session")
	return id
}

// Lock serializes turns for one session. It returns the unlock function,
// creating the session if the id is unknown (a client may replay an id
// after a restart).
func (m *Manager) Lock(id string) func() {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.evictIfFull()
		e = &entry{
			session: models.Session{
				ID:        id,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
		}
		m.sessions[id] = e
	}
	e.inUse++
	m.mu.Unlock()

	e.turnLock.Lock()
	return func() {
		e.turnLock.Unlock()
		m.mu.Lock()
		e.inUse--
		m.mu.Unlock()
	}
}

// History returns a copy of the session's messages in order, oldest first
func (m *Manager) History(id string) []models.ChatMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil
	}
	return append([]models.ChatMessage(nil), e.session.Messages...)
}

// AppendExchange commits one completed (user, assistant) exchange and
// trims history to the configured maximum.
func (m *Manager) AppendExchange(id, userMessage, assistantMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	e.session.Messages = append(e.session.Messages,
		models.ChatMessage{Role: "user", Content: userMessage},
		models.ChatMessage{Role: "assistant", Content: assistantMessage},
	)

	// Two messages per exchange.
	if max := m.maxHistory * 2; len(e.session.Messages) > max {
		e.session.Messages = e.session.Messages[len(e.session.Messages)-max:]
	}
	e.session.UpdatedAt = time.Now()

	return nil
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// evictIfFull drops the longest-idle session when the soft cap is hit.
// Sessions with a turn in flight are never evicted, so the cap can be
// exceeded while every session is busy. Caller must hold the write lock.
func (m *Manager) evictIfFull() {
	if m.maxSessions <= 0 || len(m.sessions) < m.maxSessions {
		return
	}

	oldestID := ""
	var oldestAt time.Time
	for id, e := range m.sessions {
		if e.inUse > 0 {
			continue
		}
		if oldestID == "" || e.session.UpdatedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = e.session.UpdatedAt
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
		m.logger.Debug().Str("session_id", oldestID).Msg("Evicted idle session")
	}
}
