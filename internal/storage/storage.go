package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/snapcard/internal/models"
)

// CardStore keeps card sessions in memory for the lifetime of the server
type CardStore struct {
	sessions map[string]*models.CardSession
	mu       sync.RWMutex
}

func New() *CardStore {
	return &CardStore{
		sessions: make(map[string]*models.CardSession),
	}
}

func (s *CardStore) Get(sessionID string) (*models.CardSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *CardStore) Set(sessionID string, session *models.CardSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

// List returns all sessions, newest first.
func (s *CardStore) List() []*models.CardSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.CardSession, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *CardStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
