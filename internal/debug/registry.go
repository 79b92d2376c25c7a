package debug

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks debug sessions by id and enforces the single-active-
// session rule: launching one session implicitly terminates the session
// that was active before it. Handlers receive the registry explicitly;
// there is no process-wide session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	active   *Session
	opts     Options
}

// NewRegistry creates an empty registry. Sessions it creates share opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Create registers a new session in the Uninitialized state.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.opts)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Active returns the currently active session, or nil.
func (r *Registry) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Launch starts the session's program and makes it the active session.
// Any previously active session is disconnected first.
func (r *Registry) Launch(s *Session, source, text string) error {
	if err := s.Launch(source, text); err != nil {
		return err
	}

	r.mu.Lock()
	prior := r.active
	r.active = s
	r.mu.Unlock()

	if prior != nil && prior != s {
		prior.Disconnect()
	}
	return nil
}

// Remove disconnects the session and drops it from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		if r.active == s {
			r.active = nil
		}
	}
	r.mu.Unlock()

	if ok {
		s.Disconnect()
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
