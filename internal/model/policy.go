package model

import (
	"fmt"
	"time"
)

// DuplicatePolicy controls what happens when a capture repeats an
// accession number already recorded in the active shift.
type DuplicatePolicy string

// Duplicate policy constants.
const (
	// DuplicateDrop silently discards the repeated accession (default).
	DuplicateDrop DuplicatePolicy = "drop"
	// DuplicateAllow records the repeated accession as a new study.
	// The existing record is never merged into or overwritten.
	DuplicateAllow DuplicatePolicy = "allow"
)

// SplitPolicy controls how a multi-accession capture's duration is
// apportioned across the derived studies.
type SplitPolicy string

// Split policy constants.
const (
	// SplitEven divides the capture window evenly across accessions.
	SplitEven SplitPolicy = "even"
	// SplitTerminal attributes the whole window to the last accession.
	SplitTerminal SplitPolicy = "terminal"
)

// TrackingPolicy bundles the tunable behavior of the shift tracker.
// Values come from the configuration collaborator; zero values are
// replaced by defaults at load time.
type TrackingPolicy struct {
	// MinStudyDuration rejects captures whose inferred duration is below
	// this threshold, guarding against spurious re-triggers from polling.
	MinStudyDuration time.Duration
	// MaxIdleGap caps how much idle time may be attributed to a single
	// study when inferring its duration.
	MaxIdleGap time.Duration
	// PaceWindow bounds how stale a memoized pace value may be.
	PaceWindow time.Duration
	Duplicates DuplicatePolicy
	Split      SplitPolicy
}

// DefaultTrackingPolicy returns the policy used when configuration is absent.
func DefaultTrackingPolicy() TrackingPolicy {
	return TrackingPolicy{
		MinStudyDuration: 10 * time.Second,
		MaxIdleGap:       30 * time.Minute,
		PaceWindow:       5 * time.Second,
		Duplicates:       DuplicateDrop,
		Split:            SplitEven,
	}
}

// Validate checks the policy for values that would break tracking.
func (p *TrackingPolicy) Validate() error {
	if p.MinStudyDuration < 0 {
		return fmt.Errorf("min study duration must not be negative")
	}
	if p.MaxIdleGap <= 0 {
		return fmt.Errorf("max idle gap must be positive")
	}
	if p.MinStudyDuration >= p.MaxIdleGap {
		return fmt.Errorf("min study duration must be below the max idle gap")
	}
	if p.PaceWindow <= 0 {
		return fmt.Errorf("pace window must be positive")
	}
	switch p.Duplicates {
	case DuplicateDrop, DuplicateAllow:
	default:
		return fmt.Errorf("unknown duplicate policy %q", p.Duplicates)
	}
	switch p.Split {
	case SplitEven, SplitTerminal:
	default:
		return fmt.Errorf("unknown split policy %q", p.Split)
	}
	return nil
}
