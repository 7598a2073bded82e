// Package model defines the core domain models used throughout the application.
package model

import "time"

// StudyRecord represents a single classified study read during a shift.
// Records are immutable once created; undo removes a record wholesale and
// redo reinserts the same value. Only an explicit reclassification pass
// rewrites StudyType and RVU.
type StudyRecord struct {
	StartTime       time.Time
	EndTime         time.Time
	AccessionNumber string
	ProcedureText   string
	StudyType       string
	Modality        string
	BodyPart        string
	ShiftID         string
	ID              int64
	RVU             float64
}

// Duration returns the portion of the shift attributed to this study.
func (r *StudyRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// RawCapture is one unit of text extracted from the external reporting
// application. AccessionText may encode several accession numbers when
// multiple exams were signed together.
type RawCapture struct {
	CaptureTime   time.Time
	AccessionText string
	ProcedureText string
}
