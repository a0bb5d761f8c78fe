package session

import (
	"sync"

	"github.com/gofrs/uuid"
	"github.com/roomscan/roomscan/pkg/logs"
)

// Manager owns the live review sessions. Sessions exist only in memory -
// nothing outlives the process except what the reviewer exports.
type Manager struct {
	log      logs.Log
	detector Detector

	lock     sync.Mutex
	sessions map[string]*Session
}

func NewManager(log logs.Log, detector Detector) *Manager {
	return &Manager{
		log:      log,
		detector: detector,
		sessions: map[string]*Session{},
	}
}

func (m *Manager) NewSession() *Session {
	id := uuid.Must(uuid.NewV4()).String()
	s := NewSession(id, m.log, m.detector)
	m.lock.Lock()
	defer m.lock.Unlock()
	m.sessions[id] = s
	return s
}

// Get returns the session, or nil if it doesn't exist
func (m *Manager) Get(id string) *Session {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.sessions[id]
}

func (m *Manager) Delete(id string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.sessions)
}
