package calls

import "time"

// Record tracks one call observed by this gateway.
//
// Multi-tenant invariant: TenantID is required on every record.
//
// Records are created by the first inbound event for a call id and mutated
// only by provider status callbacks. Once a terminal status is reached the
// record is frozen.
type Record struct {
	CallID   string `json:"call_id"`
	TenantID string `json:"tenant_id"`
	From     string `json:"from"`

	Status Status `json:"status"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// DurationSeconds is the provider-reported call duration, set when the
	// record reaches a terminal status.
	DurationSeconds int `json:"duration,omitempty"`

	// SlotHeld marks that this call owns a per-tenant concurrency slot.
	// Cleared by the terminal transition that triggers the release.
	SlotHeld bool `json:"-"`
}

// Terminal reports whether the record accepts no further status updates.
func (r Record) Terminal() bool { return r.Status.Terminal() }

// Status values follow the provider's wire vocabulary.
type Status string

const (
	StatusIncoming   Status = "incoming"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no-answer"
)

// Terminal reports whether s ends a call's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return true
	default:
		return false
	}
}

// ParseStatus maps a provider status string onto the known set.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusIncoming, StatusRinging, StatusInProgress,
		StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return Status(raw), true
	default:
		return "", false
	}
}
