package tracker

import (
	"time"

	"github.com/calebmd/radpace/internal/model"
)

// paceKey identifies the inputs a memoized pace value was computed from.
type paceKey struct {
	referenceID string
	studyCount  int
}

// paceCache memoizes the pace computation for a bounded window. The metric
// is recomputed on every UI refresh tick otherwise; staleness within the
// window has no correctness implications.
type paceCache struct {
	computedAt time.Time
	key        paceKey
	value      float64
	valid      bool
}

func (c *paceCache) get(key paceKey, now time.Time, window time.Duration, compute func() float64) float64 {
	if c.valid && c.key == key && now.Sub(c.computedAt) < window {
		return c.value
	}
	c.value = compute()
	c.key = key
	c.computedAt = now
	c.valid = true
	return c.value
}

// invalidate forces the next get to recompute. Called whenever a study is
// added, undone, or redone.
func (c *paceCache) invalidate() {
	c.valid = false
}

// computePace returns how far ahead (positive) or behind (negative) the
// current shift's RVU accumulation is versus the reference shift at the
// same elapsed offset. A nil reference compares against zero, yielding the
// current total.
func computePace(current, reference *model.Shift, now time.Time) float64 {
	if current == nil {
		return 0
	}
	currentTotal := current.TotalRVU()
	if reference == nil {
		return currentTotal
	}
	return currentTotal - reference.RVUAt(current.Elapsed(now))
}
