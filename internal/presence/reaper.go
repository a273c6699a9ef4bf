package presence

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically evicts registry sessions older than a TTL.
//
// This is liveness cleanup, not a security control: a session may survive
// slightly past TTL (until the next tick), but is never removed before it.
type Reaper struct {
	Registry *Registry
	Interval time.Duration
	TTL      time.Duration
	Log      *slog.Logger
}

const (
	DefaultReapInterval = 30 * time.Minute
	DefaultSessionTTL   = 4 * time.Hour
)

// Run ticks until ctx is cancelled. Owned by process lifecycle: started at
// init, stopped at shutdown via context cancellation.
func (r *Reaper) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("session reaper started", "interval", interval.String(), "ttl", ttl.String())
	for {
		select {
		case <-ctx.Done():
			log.Info("session reaper stopped")
			return
		case <-ticker.C:
			evicted := r.Registry.reapOlderThan(ttl)
			for _, s := range evicted {
				log.Info("stale session reaped",
					"identity", s.Identity,
					"tenant_id", s.TenantID,
					"extension", s.Extension,
					"connected_at", s.ConnectedAt,
				)
			}
		}
	}
}

// Sweep runs one eviction pass immediately. Exposed for tests.
func (r *Reaper) Sweep() []Session {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return r.Registry.reapOlderThan(ttl)
}
