package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/RoomWatch/internal/domain"
)

// SessionRepository хранит привязку соединение -> (комната, имя)
type SessionRepository interface {
	Add(session domain.Session)
	Remove(connID uuid.UUID)

	Get(connID uuid.UUID) (domain.Session, bool)
	GetByRoom(roomID string) []domain.Session
}

type sessionRepository struct {
	sessions map[uuid.UUID]domain.Session
	mu       sync.RWMutex
}

func NewSessionRepository() SessionRepository {
	return &sessionRepository{
		sessions: make(map[uuid.UUID]domain.Session),
	}
}

func (r *sessionRepository) Add(session domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ConnID] = session
}

func (r *sessionRepository) Remove(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, connID)
}

func (r *sessionRepository) Get(connID uuid.UUID) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[connID]

	return session, exists
}

func (r *sessionRepository) GetByRoom(roomID string) []domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []domain.Session

	for _, session := range r.sessions {
		if session.RoomID == roomID {
			sessions = append(sessions, session)
		}
	}

	return sessions
}
