package device

import (
	"sync"
	"time"
)

// memoryRegistry holds sessions in a process-local map
type memoryRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an in-memory session registry
func NewRegistry() Registry {
	return &memoryRegistry{
		sessions: make(map[string]*Session),
	}
}

func (r *memoryRegistry) Put(session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Upstream-issued codes are assumed unique; guard locally anyway so a
	// collision surfaces instead of silently replacing a pending login.
	if _, ok := r.sessions[session.DeviceCode]; ok {
		return ErrSessionExists
	}

	copied := *session
	r.sessions[session.DeviceCode] = &copied
	return nil
}

func (r *memoryRegistry) Get(deviceCode string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[deviceCode]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

func (r *memoryRegistry) RaisePollInterval(deviceCode string, interval int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[deviceCode]
	if !ok {
		return ErrSessionNotFound
	}

	if interval > session.PollInterval {
		session.PollInterval = interval
	}
	return nil
}

func (r *memoryRegistry) Delete(deviceCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, deviceCode)
}

func (r *memoryRegistry) Sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for code, session := range r.sessions {
		if session.IsExpired(now) {
			delete(r.sessions, code)
		}
	}
}

func (r *memoryRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = make(map[string]*Session)
}
