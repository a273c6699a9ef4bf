package cdr

import (
	"context"
	"database/sql"
	"log/slog"

	"callgate/internal/calls"
)

// Archiver copies terminal call records into Postgres for reporting.
//
// It is a write-only sink: the in-memory call store stays the source of
// truth while a call is live, and nothing is ever read back. Archiving is
// asynchronous so the call path never waits on the database.
//
// Assumes the table:
//
//	CREATE TABLE call_records (
//	  call_id          TEXT PRIMARY KEY,
//	  tenant_id        TEXT NOT NULL,
//	  from_number      TEXT NOT NULL,
//	  status           TEXT NOT NULL,
//	  started_at       TIMESTAMPTZ NOT NULL,
//	  ended_at         TIMESTAMPTZ,
//	  duration_seconds INT NOT NULL DEFAULT 0
//	);
type Archiver struct {
	db  *sql.DB
	log *slog.Logger
	ch  chan calls.Record
}

const queueDepth = 256

func NewArchiver(db *sql.DB, log *slog.Logger) *Archiver {
	if log == nil {
		log = slog.Default()
	}
	return &Archiver{
		db:  db,
		log: log,
		ch:  make(chan calls.Record, queueDepth),
	}
}

// Archive enqueues a record without blocking. When the queue is full the
// record is dropped with a log line; losing a CDR is preferable to stalling
// a status callback.
func (a *Archiver) Archive(rec calls.Record) {
	select {
	case a.ch <- rec:
	default:
		a.log.Warn("cdr queue full, dropping record", "call_id", rec.CallID, "tenant_id", rec.TenantID)
	}
}

// Run drains the queue until ctx is cancelled, then flushes whatever is
// still buffered.
func (a *Archiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return
		case rec := <-a.ch:
			a.insert(context.Background(), rec)
		}
	}
}

func (a *Archiver) drain() {
	for {
		select {
		case rec := <-a.ch:
			a.insert(context.Background(), rec)
		default:
			return
		}
	}
}

func (a *Archiver) insert(ctx context.Context, rec calls.Record) {
	const q = `
INSERT INTO call_records (call_id, tenant_id, from_number, status, started_at, ended_at, duration_seconds)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (call_id) DO NOTHING
`
	var ended sql.NullTime
	if rec.EndedAt != nil {
		ended = sql.NullTime{Time: *rec.EndedAt, Valid: true}
	}
	if _, err := a.db.ExecContext(ctx, q,
		rec.CallID,
		rec.TenantID,
		rec.From,
		string(rec.Status),
		rec.StartedAt,
		ended,
		rec.DurationSeconds,
	); err != nil {
		a.log.Error("cdr insert failed", "call_id", rec.CallID, "err", err)
	}
}
