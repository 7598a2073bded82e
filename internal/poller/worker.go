// Package poller runs the background capture loop that feeds the tracker.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/service"
	"github.com/calebmd/radpace/internal/tracker"
)

// Worker polls a capture source on a fixed interval and records what it
// finds. Extraction runs under an explicit timeout: a slow or hung source
// is "no new capture this tick", never a crash. The worker stops at the
// next tick boundary when its context is canceled.
type Worker struct {
	source   service.CaptureSource
	tracker  *tracker.Tracker
	interval time.Duration
	timeout  time.Duration
}

// Config holds worker settings.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultConfig returns the default polling settings.
func DefaultConfig() Config {
	return Config{
		Interval: 2 * time.Second,
		Timeout:  1500 * time.Millisecond,
	}
}

// NewWorker creates a worker feeding the given tracker from the source.
func NewWorker(source service.CaptureSource, tr *tracker.Tracker, config Config) *Worker {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.Timeout <= 0 || config.Timeout > config.Interval {
		config.Timeout = config.Interval * 3 / 4
	}
	return &Worker{
		source:   source,
		tracker:  tr,
		interval: config.Interval,
		timeout:  config.Timeout,
	}
}

// Run polls until the context is canceled. It always returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("Capture worker started",
		"interval", w.interval,
		"timeout", w.timeout)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Capture worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick performs one extraction attempt and records the result.
func (w *Worker) tick(ctx context.Context) {
	extractCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	cap, err := w.source.Extract(extractCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Debug("Extraction timed out; skipping tick")
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		common.LogError(err, "Extraction failed", nil)
		return
	}
	if cap == nil {
		return
	}

	added, err := w.tracker.AddStudy(ctx, *cap)
	switch {
	case err == nil:
		for _, record := range added {
			slog.Info("Study recorded",
				"accession", record.AccessionNumber,
				"study_type", record.StudyType,
				"rvu", record.RVU)
		}
	case errors.Is(err, common.ErrNoActiveShift):
		slog.Warn("Capture observed with no active shift; dropping",
			"accession_text", cap.AccessionText)
	case errors.Is(err, common.ErrStudyTooShort):
		slog.Debug("Capture rejected as polling noise", "error", err)
	case errors.Is(err, common.ErrMalformedAccession):
		slog.Warn("Skipping capture with unparseable accession text",
			"accession_text", cap.AccessionText,
			"error", err)
	default:
		common.LogError(err, "Failed to record capture", common.Fields{
			"accession_text": cap.AccessionText,
		})
	}
}
