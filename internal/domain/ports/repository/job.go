package repository

import (
	"context"

	"interpretation-broker/internal/domain/model"
)

// -----------------------------
// Job state
// -----------------------------

// JobStore is the typed facade over the shared key/value side-channel that
// holds per-job correlation state. Implementations provide atomic get/set/
// delete per key only; no read-modify-write transaction is assumed, so
// overlapping deliveries and polls for the same job may interleave (last
// write wins).
type JobStore interface {
	// SaveSession persists the job -> callback association and, when
	// present, the caller-supplied extra payload.
	SaveSession(ctx context.Context, s *model.JobSession) error
	// FindSession resolves a job id to its session record. Returns
	// domain.ErrUnknownJob when no association exists.
	FindSession(ctx context.Context, jobID string) (*model.JobSession, error)

	// SaveDelivery stores the raw payload and stop flag reported by the
	// super-backend, replacing any unconsumed previous delivery.
	SaveDelivery(ctx context.Context, d *model.Delivery) error
	// RawData returns the unconsumed raw payload for the job, with ok=false
	// when none is stored.
	RawData(ctx context.Context, jobID string) (data any, ok bool, err error)
	ClearRawData(ctx context.Context, jobID string) error

	// Stop reads the per-job stop flag, defaulting to true when never set.
	Stop(ctx context.Context, jobID string) (bool, error)

	SaveResult(ctx context.Context, jobID string, result any) error
	Result(ctx context.Context, jobID string) (result any, ok bool, err error)

	// Purge removes every key associated with the job.
	Purge(ctx context.Context, jobID string) error
}
