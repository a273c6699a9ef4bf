package presence

import (
	"errors"
	"sync"
	"time"

	"callgate/internal/tenant"
)

var (
	// ErrInvalidTenant means the tenant id is unknown to the directory.
	ErrInvalidTenant = errors.New("presence: unknown tenant")
	// ErrUnknownExtension means the extension does not belong to the tenant.
	ErrUnknownExtension = errors.New("presence: unknown extension")
	// ErrNotFound means no session matched the lookup.
	ErrNotFound = errors.New("presence: not found")
)

// Session is a live binding between an agent client identity and a
// tenant/extension pair.
type Session struct {
	Identity    string    `json:"identity"`
	TenantID    string    `json:"tenant_id"`
	Extension   string    `json:"extension"`
	Available   bool      `json:"available"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Registry tracks currently-connected agent sessions in memory.
//
// Invariants:
// - at most one session per identity (register is last-write-wins)
// - a session's extension always exists in its tenant's extension set
// - iteration order is registration order, so selection is deterministic
//
// All state is ephemeral; a restart empties the registry.
type Registry struct {
	mu        sync.RWMutex
	directory *tenant.Directory
	sessions  map[string]*Session
	order     []string

	hub *Hub
	now func() time.Time
}

func NewRegistry(dir *tenant.Directory, hub *Hub) *Registry {
	return &Registry{
		directory: dir,
		sessions:  make(map[string]*Session),
		hub:       hub,
		now:       time.Now,
	}
}

// Register upserts a session for identity. A prior session under the same
// identity is replaced without notification; its registration slot in the
// iteration order is kept. Connection time and availability are reset.
func (r *Registry) Register(identity, tenantID, extension string) error {
	if identity == "" {
		return ErrNotFound
	}
	if _, ok := r.directory.Get(tenantID); !ok {
		return ErrInvalidTenant
	}
	if _, ok := r.directory.Extension(tenantID, extension); !ok {
		return ErrUnknownExtension
	}

	r.mu.Lock()
	s := &Session{
		Identity:    identity,
		TenantID:    tenantID,
		Extension:   extension,
		Available:   true,
		ConnectedAt: r.now(),
	}
	if _, exists := r.sessions[identity]; !exists {
		r.order = append(r.order, identity)
	}
	r.sessions[identity] = s
	snap := *s
	r.mu.Unlock()

	r.publish(EventRegistered, snap)
	return nil
}

// Unregister removes the session for identity. Absent identity is a no-op.
func (r *Registry) Unregister(identity string) {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	if ok {
		delete(r.sessions, identity)
		r.dropFromOrder(identity)
	}
	var snap Session
	if ok {
		snap = *s
	}
	r.mu.Unlock()

	if ok {
		r.publish(EventUnregistered, snap)
	}
}

// SetAvailability flips the availability flag on every session bound to
// tenantID/extension. Returns ErrInvalidTenant/ErrUnknownExtension when the
// pair is not in the directory, ErrNotFound when no session matched.
func (r *Registry) SetAvailability(tenantID, extension string, available bool) error {
	if _, ok := r.directory.Get(tenantID); !ok {
		return ErrInvalidTenant
	}
	if _, ok := r.directory.Extension(tenantID, extension); !ok {
		return ErrUnknownExtension
	}

	r.mu.Lock()
	var touched []Session
	for _, id := range r.order {
		s := r.sessions[id]
		if s.TenantID == tenantID && s.Extension == extension {
			s.Available = available
			touched = append(touched, *s)
		}
	}
	r.mu.Unlock()

	if len(touched) == 0 {
		return ErrNotFound
	}
	for _, s := range touched {
		r.publish(EventAvailability, s)
	}
	return nil
}

// FindAvailable picks an agent for a tenant and preferred extension.
//
// Two-pass selection in registration order:
//  1. an available session on exactly the preferred extension
//  2. any available session in the tenant
//
// The second pass is deliberate business policy: a caller asking for one
// department may reach another when that department is offline.
func (r *Registry) FindAvailable(tenantID, preferredExtension string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		s := r.sessions[id]
		if s.TenantID == tenantID && s.Extension == preferredExtension && s.Available {
			return s.Identity, true
		}
	}
	for _, id := range r.order {
		s := r.sessions[id]
		if s.TenantID == tenantID && s.Available {
			return s.Identity, true
		}
	}
	return "", false
}

// Get returns the session for identity.
func (r *Registry) Get(identity string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identity]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Snapshot returns all sessions in registration order.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.sessions[id])
	}
	return out
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CountByTenant returns active session counts keyed by tenant id.
func (r *Registry) CountByTenant() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, s := range r.sessions {
		out[s.TenantID]++
	}
	return out
}

// reapOlderThan removes sessions whose age strictly exceeds ttl and returns
// the evicted set. Sessions at exactly ttl survive; eviction is advisory
// cleanup and must never be premature.
func (r *Registry) reapOlderThan(ttl time.Duration) []Session {
	now := r.now()

	r.mu.Lock()
	var evicted []Session
	for _, id := range r.order {
		s := r.sessions[id]
		if now.Sub(s.ConnectedAt) > ttl {
			evicted = append(evicted, *s)
		}
	}
	for _, s := range evicted {
		delete(r.sessions, s.Identity)
		r.dropFromOrder(s.Identity)
	}
	r.mu.Unlock()

	for _, s := range evicted {
		r.publish(EventReaped, s)
	}
	return evicted
}

// dropFromOrder removes identity from the iteration order. Caller holds mu.
func (r *Registry) dropFromOrder(identity string) {
	for i, id := range r.order {
		if id == identity {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *Registry) publish(typ EventType, s Session) {
	if r.hub == nil {
		return
	}
	r.hub.Publish(Event{Type: typ, Session: s, At: r.now()})
}
