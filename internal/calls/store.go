package calls

import (
	"sync"
	"time"
)

// Sink receives records that reached a terminal status. Implementations
// must not block; the store calls Archive while serving requests.
type Sink interface {
	Archive(rec Record)
}

// Store tracks in-flight and completed calls in memory.
//
// Invariants:
// - at most one record per call id
// - terminal records are immutable
// - per call id, updates apply in arrival order and move monotonically
//   toward a terminal status
//
// State is ephemeral; the provider remains the system of record.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record

	sink Sink
	now  func() time.Time
}

func NewStore(sink Sink) *Store {
	return &Store{
		records: make(map[string]*Record),
		sink:    sink,
		now:     time.Now,
	}
}

// Begin creates a record in status incoming. A repeated begin for the same
// call id is a duplicate event, not an error, and leaves the record alone.
func (s *Store) Begin(callID, from, tenantID string) {
	if callID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[callID]; exists {
		return
	}
	s.records[callID] = &Record{
		CallID:    callID,
		TenantID:  tenantID,
		From:      from,
		Status:    StatusIncoming,
		StartedAt: s.now(),
	}
}

// HoldSlot marks the record as owning a concurrency slot. Only calls whose
// slot acquisition actually succeeded get marked; calls that were denied a
// slot, or never competed for one, must not be.
func (s *Store) HoldSlot(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[callID]; ok && !rec.Terminal() {
		rec.SlotHeld = true
	}
}

// ApplyStatus advances a record's lifecycle. It reports whether this update
// was the terminal transition of a slot-holding call, i.e. whether the
// caller must release the call's concurrency slot now. The flag is cleared
// under the store lock, so the report fires at most once per call even
// under concurrent duplicate terminal callbacks.
//
// Unknown call ids are a silent no-op: the provider may report status for
// calls this process never observed (e.g. after a restart). Updates against
// a terminal record are ignored. When the new status is terminal the end
// time and duration are recorded and the record is handed to the sink.
func (s *Store) ApplyStatus(callID string, status Status, durationSeconds int) bool {
	s.mu.Lock()
	rec, ok := s.records[callID]
	if !ok || rec.Terminal() {
		s.mu.Unlock()
		return false
	}
	rec.Status = status
	var archived Record
	release := false
	terminal := status.Terminal()
	if terminal {
		ended := s.now()
		rec.EndedAt = &ended
		rec.DurationSeconds = durationSeconds
		release = rec.SlotHeld
		rec.SlotHeld = false
		archived = *rec
	}
	s.mu.Unlock()

	if terminal && s.sink != nil {
		s.sink.Archive(archived)
	}
	return release
}

// Get returns a copy of the record for callID.
func (s *Store) Get(callID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[callID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of tracked calls.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
