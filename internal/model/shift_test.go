package model

import (
	"testing"
	"time"
)

func buildShift(start time.Time) *Shift {
	return &Shift{
		ID:        "shift-1",
		StartTime: start,
		Status:    ShiftActive,
		Studies: []StudyRecord{
			{AccessionNumber: "A1", EndTime: start.Add(10 * time.Minute), RVU: 1.75},
			{AccessionNumber: "A2", EndTime: start.Add(25 * time.Minute), RVU: 0.31},
			{AccessionNumber: "A3", EndTime: start.Add(40 * time.Minute), RVU: 3.0},
		},
	}
}

func TestShift_TotalRVU(t *testing.T) {
	start := time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)
	shift := buildShift(start)

	if got, want := shift.TotalRVU(), 5.06; got != want {
		t.Errorf("TotalRVU() = %v, want %v", got, want)
	}
	if got := shift.StudyCount(); got != 3 {
		t.Errorf("StudyCount() = %d, want 3", got)
	}
	if !shift.HasAccession("A2") {
		t.Error("HasAccession(A2) = false, want true")
	}
	if shift.HasAccession("A9") {
		t.Error("HasAccession(A9) = true, want false")
	}
}

func TestShift_RVUAt(t *testing.T) {
	start := time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)
	shift := buildShift(start)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"before first study", 5 * time.Minute, 0},
		{"exactly at first study end", 10 * time.Minute, 1.75},
		{"between studies", 30 * time.Minute, 2.06},
		{"past all studies", 2 * time.Hour, 5.06},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shift.RVUAt(tt.elapsed); got != tt.want {
				t.Errorf("RVUAt(%v) = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestShift_ElapsedCapsAtEnd(t *testing.T) {
	start := time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	shift := &Shift{ID: "shift-1", StartTime: start, EndTime: &end, Status: ShiftEnded}

	if got := shift.Elapsed(start.Add(12 * time.Hour)); got != 8*time.Hour {
		t.Errorf("Elapsed() past end = %v, want %v", got, 8*time.Hour)
	}
	if got := shift.Elapsed(start.Add(-time.Minute)); got != 0 {
		t.Errorf("Elapsed() before start = %v, want 0", got)
	}
}

func TestShift_CloneIsIndependent(t *testing.T) {
	start := time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)
	shift := buildShift(start)
	end := start.Add(time.Hour)
	shift.EndTime = &end

	clone := shift.Clone()
	clone.Studies[0].RVU = 99
	*clone.EndTime = end.Add(time.Hour)

	if shift.Studies[0].RVU != 1.75 {
		t.Error("mutating the clone's studies changed the original")
	}
	if !shift.EndTime.Equal(end) {
		t.Error("mutating the clone's end time changed the original")
	}

	var nilShift *Shift
	if nilShift.Clone() != nil {
		t.Error("Clone() of nil shift should be nil")
	}
}

func TestTrackingPolicy_Validate(t *testing.T) {
	valid := DefaultTrackingPolicy()
	if err := valid.Validate(); err != nil {
		t.Fatalf("default policy failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TrackingPolicy)
	}{
		{"negative min duration", func(p *TrackingPolicy) { p.MinStudyDuration = -time.Second }},
		{"zero idle gap", func(p *TrackingPolicy) { p.MaxIdleGap = 0 }},
		{"min duration above idle gap", func(p *TrackingPolicy) { p.MinStudyDuration = time.Hour }},
		{"zero pace window", func(p *TrackingPolicy) { p.PaceWindow = 0 }},
		{"unknown duplicate policy", func(p *TrackingPolicy) { p.Duplicates = "merge" }},
		{"unknown split policy", func(p *TrackingPolicy) { p.Split = "weighted" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultTrackingPolicy()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
