// Package tracker implements the shift lifecycle state machine that owns
// all study tracking state.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calebmd/radpace/internal/capture"
	"github.com/calebmd/radpace/internal/classify"
	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
)

// RuleProvider supplies the current classification rule generation.
// Implementations swap generations atomically; a value returned by Current
// is immutable and safe to use for the remainder of one operation.
type RuleProvider interface {
	Current() *model.RuleSet
}

// MutationSink receives the tracker's mutation stream so the persistence
// collaborator can durably record it. StudyAdded may set the record's ID
// from the backing store. Sink failures are logged and never roll back
// in-memory state; the tracker remains the source of truth for the shift.
type MutationSink interface {
	ShiftStarted(ctx context.Context, shift *model.Shift) error
	ShiftEnded(ctx context.Context, shift *model.Shift) error
	StudyAdded(ctx context.Context, record *model.StudyRecord) error
	StudyRemoved(ctx context.Context, record *model.StudyRecord) error
	StudyReinserted(ctx context.Context, record *model.StudyRecord) error
}

// Tracker is the sole mutator of shift state. One mutex guards every read
// and write; display reads receive snapshots taken under the same mutex so
// they never observe a half-applied update.
type Tracker struct {
	clock        func() time.Time
	rules        RuleProvider
	sink         MutationSink
	shift        *model.Shift
	splitter     *capture.Splitter
	lastStudyEnd time.Time
	policy       model.TrackingPolicy
	undo         undoBuffer
	pace         paceCache
	mu           sync.Mutex
}

// New creates a tracker in the NoShift state. sink may be nil when no
// persistence collaborator is attached (tests, dry runs).
func New(rules RuleProvider, policy model.TrackingPolicy, sink MutationSink) *Tracker {
	return &Tracker{
		rules:    rules,
		policy:   policy,
		sink:     sink,
		splitter: capture.NewSplitter(policy.Split),
		clock:    time.Now,
	}
}

// StartShift begins a new shift. It fails with ErrShiftAlreadyActive when a
// shift is already running; the previous shift must be ended first.
func (t *Tracker) StartShift(ctx context.Context) (*model.Shift, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shift != nil && t.shift.Status == model.ShiftActive {
		return nil, fmt.Errorf("%w: started %s", common.ErrShiftAlreadyActive,
			t.shift.StartTime.Format(time.RFC3339))
	}

	now := t.clock()
	shift := &model.Shift{
		ID:        uuid.NewString(),
		StartTime: now,
		Status:    model.ShiftActive,
	}
	t.shift = shift
	t.lastStudyEnd = now
	t.undo.reset()
	t.pace.invalidate()

	t.emit("shift start", func(s MutationSink) error { return s.ShiftStarted(ctx, shift) })

	slog.Info("Shift started", "shift_id", shift.ID)
	return shift.Clone(), nil
}

// EndShift ends the active shift. Ending an already-ended shift is a no-op:
// the shift is returned with changed=false and no error, so callers can
// report it without treating it as a failure.
func (t *Tracker) EndShift(ctx context.Context) (shift *model.Shift, changed bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shift == nil {
		return nil, false, common.ErrNoActiveShift
	}
	if t.shift.Status == model.ShiftEnded {
		return t.shift.Clone(), false, nil
	}

	now := t.clock()
	t.shift.EndTime = &now
	t.shift.Status = model.ShiftEnded
	t.undo.reset()
	t.pace.invalidate()

	ended := t.shift
	t.emit("shift end", func(s MutationSink) error { return s.ShiftEnded(ctx, ended) })

	slog.Info("Shift ended",
		"shift_id", ended.ID,
		"studies", ended.StudyCount(),
		"total_rvu", ended.TotalRVU())
	return ended.Clone(), true, nil
}

// Resume seeds the tracker with a shift loaded from storage, restoring the
// NoShift/Active distinction across process restarts. The undo buffer does
// not survive a restart; it resets to undo-available.
func (t *Tracker) Resume(shift *model.Shift) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.shift = shift.Clone()
	t.lastStudyEnd = t.shift.StartTime
	if n := len(t.shift.Studies); n > 0 {
		t.lastStudyEnd = t.shift.Studies[n-1].EndTime
	}
	t.undo.reset()
	t.pace.invalidate()
}

// AddStudy records the studies described by one raw capture. The capture is
// split per accession, deduplicated against the active shift, filtered for
// spurious re-triggers, and each surviving accession is classified against
// the current rule generation. It fails with ErrNoActiveShift when no shift
// is running and leaves all state untouched on any failure.
//
// The returned slice holds the records appended, in order. An empty slice
// with a nil error means every accession was dropped as a duplicate.
func (t *Tracker) AddStudy(ctx context.Context, cap model.RawCapture) ([]model.StudyRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shift == nil || t.shift.Status != model.ShiftActive {
		return nil, common.ErrNoActiveShift
	}

	windowStart := t.windowStart(cap.CaptureTime)
	if window := cap.CaptureTime.Sub(windowStart); window < t.policy.MinStudyDuration {
		return nil, fmt.Errorf("%w: %s since last study", common.ErrStudyTooShort, window)
	}

	split, err := t.splitter.Split(cap, windowStart)
	if err != nil {
		return nil, err
	}

	rules := t.rules.Current()

	var added []model.StudyRecord
	for _, st := range split {
		if t.shift.HasAccession(st.AccessionNumber) && t.policy.Duplicates == model.DuplicateDrop {
			slog.Debug("Dropping duplicate accession",
				"accession", st.AccessionNumber,
				"shift_id", t.shift.ID)
			continue
		}

		result := classify.Classify(st.ProcedureText, rules)
		if !result.Matched() {
			slog.Warn("No rule matched procedure text; recording as Unknown",
				"accession", st.AccessionNumber,
				"procedure_text", st.ProcedureText,
				"rules_generation", rules.Generation())
		}

		record := model.StudyRecord{
			AccessionNumber: st.AccessionNumber,
			ProcedureText:   st.ProcedureText,
			StudyType:       result.StudyType,
			Modality:        result.Modality,
			BodyPart:        result.BodyPart,
			RVU:             result.RVU,
			StartTime:       st.StartTime,
			EndTime:         st.EndTime,
			ShiftID:         t.shift.ID,
		}
		t.emit("study add", func(s MutationSink) error { return s.StudyAdded(ctx, &record) })
		t.shift.Studies = append(t.shift.Studies, record)
		added = append(added, record)
	}

	if len(added) > 0 {
		t.lastStudyEnd = cap.CaptureTime
		t.undo.reset()
		t.pace.invalidate()
	}

	return added, nil
}

// windowStart returns the start of the duration window for a capture: the
// previous recorded study's end, bounded by the idle cap.
func (t *Tracker) windowStart(captureTime time.Time) time.Time {
	start := t.lastStudyEnd
	if gap := captureTime.Sub(start); gap > t.policy.MaxIdleGap {
		start = captureTime.Add(-t.policy.MaxIdleGap)
	}
	return start
}

// Undo removes the most recent study from the active shift and holds it for
// a possible redo. Only one removal can be pending; a second undo without an
// intervening redo or add fails with ErrNothingToUndo.
func (t *Tracker) Undo(ctx context.Context) (*model.StudyRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shift == nil || t.shift.Status != model.ShiftActive {
		return nil, common.ErrNoActiveShift
	}
	if !t.undo.canUndo() {
		return nil, fmt.Errorf("%w: a removal is already pending redo", common.ErrNothingToUndo)
	}
	n := len(t.shift.Studies)
	if n == 0 {
		return nil, fmt.Errorf("%w: shift has no studies", common.ErrNothingToUndo)
	}

	record := t.shift.Studies[n-1]
	t.shift.Studies = t.shift.Studies[:n-1]
	t.undo.hold(record, t.shift.ID)
	t.pace.invalidate()

	t.lastStudyEnd = t.shift.StartTime
	if n > 1 {
		t.lastStudyEnd = t.shift.Studies[n-2].EndTime
	}

	t.emit("study remove", func(s MutationSink) error { return s.StudyRemoved(ctx, &record) })

	slog.Info("Study removed",
		"accession", record.AccessionNumber,
		"study_type", record.StudyType,
		"rvu", record.RVU)
	return &record, nil
}

// Redo reinserts the study removed by the previous Undo at the end of the
// shift, where it was. It fails with ErrNothingToRedo when no removal is
// pending, including after any successful AddStudy cleared the buffer.
func (t *Tracker) Redo(ctx context.Context) (*model.StudyRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shift == nil || t.shift.Status != model.ShiftActive {
		return nil, common.ErrNoActiveShift
	}
	record, ok := t.undo.take()
	if !ok {
		return nil, common.ErrNothingToRedo
	}

	// The sink assigns a fresh database ID before the record rejoins the shift.
	t.emit("study reinsert", func(s MutationSink) error { return s.StudyReinserted(ctx, &record) })
	t.shift.Studies = append(t.shift.Studies, record)
	t.lastStudyEnd = record.EndTime
	t.pace.invalidate()

	slog.Info("Study reinserted",
		"accession", record.AccessionNumber,
		"study_type", record.StudyType,
		"rvu", record.RVU)
	return &record, nil
}

// Snapshot returns a deep copy of the current shift for display, or nil in
// the NoShift state. The copy is consistent: it is taken under the same
// mutex that guards mutation.
func (t *Tracker) Snapshot() *model.Shift {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shift.Clone()
}

// ActiveShift returns a snapshot of the active shift, or nil when no shift
// is running.
func (t *Tracker) ActiveShift() *model.Shift {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shift == nil || t.shift.Status != model.ShiftActive {
		return nil
	}
	return t.shift.Clone()
}

// Pace returns the current shift's RVU accumulation relative to the
// reference shift at the same elapsed offset, memoized for the configured
// window. reference may be nil, in which case the current total is returned.
func (t *Tracker) Pace(reference *model.Shift, now time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shift == nil {
		return 0
	}

	key := paceKey{studyCount: t.shift.StudyCount()}
	if reference != nil {
		key.referenceID = reference.ID
	}
	current := t.shift
	return t.pace.get(key, now, t.policy.PaceWindow, func() float64 {
		return computePace(current, reference, now)
	})
}

// emit delivers one mutation to the sink, logging failures. Persistence
// errors must not corrupt tracking state, so they are never propagated.
func (t *Tracker) emit(op string, fn func(MutationSink) error) {
	if t.sink == nil {
		return
	}
	if err := fn(t.sink); err != nil {
		common.LogError(err, "Failed to persist "+op, common.Fields{"shift_id": t.shift.ID})
	}
}
