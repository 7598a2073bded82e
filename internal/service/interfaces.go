// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/calebmd/radpace/internal/model"
)

// Storage defines the contract for the persistence collaborator. It receives
// the tracker's mutation stream (create shift, end shift, add/remove/reinsert
// study) and serves historical shifts for reports and pace references.
type Storage interface {
	// Shift operations
	CreateShift(ctx context.Context, shift *model.Shift) error
	EndShift(ctx context.Context, shiftID string, endTime time.Time) error
	GetShift(ctx context.Context, shiftID string) (*model.Shift, error)
	GetActiveShift(ctx context.Context) (*model.Shift, error)
	GetPreviousShift(ctx context.Context, before time.Time) (*model.Shift, error)
	ListShifts(ctx context.Context, limit int) ([]model.Shift, error)

	// Study operations
	SaveStudy(ctx context.Context, record *model.StudyRecord) error
	DeleteStudy(ctx context.Context, id int64) error
	GetStudies(ctx context.Context, shiftID string) ([]model.StudyRecord, error)
	UpdateStudyClassification(ctx context.Context, id int64, studyType string, rvu float64) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// CaptureSource abstracts the window-extraction collaborator. Extract blocks
// until new capture text is available or the context expires; it returns
// (nil, nil) when nothing new was observed this tick.
type CaptureSource interface {
	Extract(ctx context.Context) (*model.RawCapture, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
