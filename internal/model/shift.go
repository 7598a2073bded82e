package model

import "time"

// ShiftStatus indicates where a shift is in its lifecycle.
type ShiftStatus string

// Shift status constants.
const (
	ShiftActive ShiftStatus = "ACTIVE"
	ShiftEnded  ShiftStatus = "ENDED"
)

// Shift represents one work shift and owns the ordered studies read during it.
// At most one shift is active at a time; the tracker enforces this.
type Shift struct {
	StartTime time.Time
	EndTime   *time.Time
	ID        string
	Status    ShiftStatus
	Studies   []StudyRecord
}

// TotalRVU sums the RVU of every study in the shift. The total is always
// derived from the records so it cannot drift from them.
func (s *Shift) TotalRVU() float64 {
	var total float64
	for i := range s.Studies {
		total += s.Studies[i].RVU
	}
	return total
}

// StudyCount returns the number of recorded studies.
func (s *Shift) StudyCount() int {
	return len(s.Studies)
}

// HasAccession reports whether an accession number is already recorded.
func (s *Shift) HasAccession(accession string) bool {
	for i := range s.Studies {
		if s.Studies[i].AccessionNumber == accession {
			return true
		}
	}
	return false
}

// Elapsed returns how much of the shift had passed at the given instant.
// For an ended shift the elapsed time is capped at the shift's end.
func (s *Shift) Elapsed(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil && s.EndTime.Before(now) {
		end = *s.EndTime
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return end.Sub(s.StartTime)
}

// RVUAt returns the RVU accumulated by the shift at the given offset from
// its start, counting every study whose end falls within the offset.
func (s *Shift) RVUAt(elapsed time.Duration) float64 {
	cutoff := s.StartTime.Add(elapsed)
	var total float64
	for i := range s.Studies {
		if !s.Studies[i].EndTime.After(cutoff) {
			total += s.Studies[i].RVU
		}
	}
	return total
}

// Clone returns a deep copy safe to hand to display code while the
// tracker keeps mutating the original.
func (s *Shift) Clone() *Shift {
	if s == nil {
		return nil
	}
	out := *s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	out.Studies = make([]StudyRecord, len(s.Studies))
	copy(out.Studies, s.Studies)
	return &out
}
