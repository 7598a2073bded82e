package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
	"github.com/calebmd/radpace/internal/service"
	"github.com/calebmd/radpace/internal/tracker"
)

// Sink adapts a Storage to the tracker's mutation stream. Writes are
// retried briefly; SQLite can report busy under WAL when a report query
// holds the database.
type Sink struct {
	storage service.Storage
	retry   service.RetryOptions
}

var _ tracker.MutationSink = (*Sink)(nil)

// NewSink creates a persistence sink over the given storage.
func NewSink(storage service.Storage) *Sink {
	return &Sink{
		storage: storage,
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
		},
	}
}

// ShiftStarted persists a newly created shift.
func (k *Sink) ShiftStarted(ctx context.Context, shift *model.Shift) error {
	return common.WithRetry(ctx, func() error {
		return k.storage.CreateShift(ctx, shift)
	}, k.retry)
}

// ShiftEnded records the shift's end time and status.
func (k *Sink) ShiftEnded(ctx context.Context, shift *model.Shift) error {
	if shift.EndTime == nil {
		return nil
	}
	return common.WithRetry(ctx, func() error {
		return k.storage.EndShift(ctx, shift.ID, *shift.EndTime)
	}, k.retry)
}

// StudyAdded persists a new study record and back-fills its database ID.
func (k *Sink) StudyAdded(ctx context.Context, record *model.StudyRecord) error {
	return common.WithRetry(ctx, func() error {
		return k.storage.SaveStudy(ctx, record)
	}, k.retry)
}

// StudyRemoved deletes the record removed by an undo.
func (k *Sink) StudyRemoved(ctx context.Context, record *model.StudyRecord) error {
	if record.ID == 0 {
		// The record never made it to the database; nothing to remove.
		slog.Warn("Undo of unpersisted study", "accession", record.AccessionNumber)
		return nil
	}
	return common.WithRetry(ctx, func() error {
		return k.storage.DeleteStudy(ctx, record.ID)
	}, k.retry)
}

// StudyReinserted persists the record restored by a redo. The record gets a
// fresh database ID; its position in the shift is preserved by end_time
// ordering.
func (k *Sink) StudyReinserted(ctx context.Context, record *model.StudyRecord) error {
	return common.WithRetry(ctx, func() error {
		return k.storage.SaveStudy(ctx, record)
	}, k.retry)
}
