package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/askdocs/askdocs/internal/session"
)

// registry holds the live sessions served over HTTP. Sessions exist only
// in memory; a restart clears them.
type registry struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*session.Session
	maxMessages int
}

func newRegistry(maxMessages int) *registry {
	return &registry{
		sessions:    make(map[uuid.UUID]*session.Session),
		maxMessages: maxMessages,
	}
}

// create registers a new session and returns it.
func (r *registry) create() *session.Session {
	sess := session.New(r.maxMessages)
	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()
	return sess
}

// get looks up a session by ID.
func (r *registry) get(id uuid.UUID) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}
