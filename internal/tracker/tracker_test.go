package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticRules serves one fixed rule generation.
type staticRules struct {
	rs *model.RuleSet
}

func (s *staticRules) Current() *model.RuleSet { return s.rs }

// recordingSink captures the mutation stream for assertions.
type recordingSink struct {
	ops []string
}

func (r *recordingSink) ShiftStarted(_ context.Context, _ *model.Shift) error {
	r.ops = append(r.ops, "shift_started")
	return nil
}

func (r *recordingSink) ShiftEnded(_ context.Context, _ *model.Shift) error {
	r.ops = append(r.ops, "shift_ended")
	return nil
}

func (r *recordingSink) StudyAdded(_ context.Context, record *model.StudyRecord) error {
	r.ops = append(r.ops, "study_added:"+record.AccessionNumber)
	return nil
}

func (r *recordingSink) StudyRemoved(_ context.Context, record *model.StudyRecord) error {
	r.ops = append(r.ops, "study_removed:"+record.AccessionNumber)
	return nil
}

func (r *recordingSink) StudyReinserted(_ context.Context, record *model.StudyRecord) error {
	r.ops = append(r.ops, "study_reinserted:"+record.AccessionNumber)
	return nil
}

func testRules(t *testing.T) RuleProvider {
	t.Helper()
	rs, err := model.NewRuleSet(1, []model.ClassificationRule{
		{TypeName: "CT Head", Modality: "CT", BodyPart: "head", RequiredGroups: [][]string{{"ct"}, {"head"}}, RVU: 0.85},
		{TypeName: "XR Chest", Modality: "XR", BodyPart: "chest", RequiredGroups: [][]string{{"xr", "xray"}, {"chest"}}, RVU: 0.22},
	})
	require.NoError(t, err)
	return &staticRules{rs: rs}
}

// newTestTracker returns a tracker with a controllable clock.
func newTestTracker(t *testing.T, policy model.TrackingPolicy, sink MutationSink) (*Tracker, *time.Time) {
	t.Helper()
	now := time.Date(2024, 1, 17, 7, 0, 0, 0, time.UTC)
	tr := New(testRules(t), policy, sink)
	tr.clock = func() time.Time { return now }
	return tr, &now
}

func capAt(at time.Time, accession, text string) model.RawCapture {
	return model.RawCapture{AccessionText: accession, ProcedureText: text, CaptureTime: at}
}

func TestTracker_StartShift(t *testing.T) {
	tr, _ := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	shift, err := tr.StartShift(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, shift.ID)
	assert.Equal(t, model.ShiftActive, shift.Status)

	_, err = tr.StartShift(ctx)
	assert.ErrorIs(t, err, common.ErrShiftAlreadyActive)
}

func TestTracker_StartAfterEnd(t *testing.T) {
	tr, _ := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	first, err := tr.StartShift(ctx)
	require.NoError(t, err)
	_, changed, err := tr.EndShift(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	second, err := tr.StartShift(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestTracker_EndShift_Idempotent(t *testing.T) {
	tr, _ := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, _, err := tr.EndShift(ctx)
	assert.ErrorIs(t, err, common.ErrNoActiveShift)

	_, err = tr.StartShift(ctx)
	require.NoError(t, err)

	ended, changed, err := tr.EndShift(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.ShiftEnded, ended.Status)

	again, changed, err := tr.EndShift(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "ending an ended shift is a no-op")
	assert.Equal(t, ended.ID, again.ID)
}

func TestTracker_AddStudy_NoActiveShift(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)

	_, err := tr.AddStudy(context.Background(), capAt(*now, "12345", "CT HEAD"))
	assert.ErrorIs(t, err, common.ErrNoActiveShift)
	assert.Nil(t, tr.Snapshot(), "state must be unchanged")
}

func TestTracker_AddStudy_ClassifiesAndAppends(t *testing.T) {
	sink := &recordingSink{}
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), sink)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)

	added, err := tr.AddStudy(ctx, capAt(now.Add(15*time.Minute), "12345", "CT HEAD WITHOUT CONTRAST"))
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "CT Head", added[0].StudyType)
	assert.InDelta(t, 0.85, added[0].RVU, 0.0001)
	assert.Equal(t, "CT", added[0].Modality)

	shift := tr.Snapshot()
	require.Equal(t, 1, shift.StudyCount())
	assert.InDelta(t, 0.85, shift.TotalRVU(), 0.0001)
	assert.Equal(t, []string{"shift_started", "study_added:12345"}, sink.ops)
}

func TestTracker_AddStudy_UnknownStillRecorded(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)

	added, err := tr.AddStudy(ctx, capAt(now.Add(10*time.Minute), "777", "NM THYROID UPTAKE AND SCAN"))
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, model.StudyTypeUnknown, added[0].StudyType)
	assert.Zero(t, added[0].RVU)
	assert.Equal(t, 1, tr.Snapshot().StudyCount())
}

func TestTracker_AddStudy_DuplicateDropped(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)

	added, err := tr.AddStudy(ctx, capAt(now.Add(10*time.Minute), "12345", "CT HEAD"))
	require.NoError(t, err)
	require.Len(t, added, 1)

	added, err = tr.AddStudy(ctx, capAt(now.Add(20*time.Minute), "12345", "CT HEAD"))
	require.NoError(t, err)
	assert.Empty(t, added, "duplicate accession must be dropped")

	shift := tr.Snapshot()
	assert.Equal(t, 1, shift.StudyCount(), "exactly one record for the accession")
	assert.InDelta(t, 0.85, shift.TotalRVU(), 0.0001, "RVU never merged into the existing record")
}

func TestTracker_AddStudy_DuplicateAllowedByPolicy(t *testing.T) {
	policy := model.DefaultTrackingPolicy()
	policy.Duplicates = model.DuplicateAllow
	tr, now := newTestTracker(t, policy, nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)

	_, err = tr.AddStudy(ctx, capAt(now.Add(10*time.Minute), "12345", "CT HEAD"))
	require.NoError(t, err)
	added, err := tr.AddStudy(ctx, capAt(now.Add(20*time.Minute), "12345", "CT HEAD"))
	require.NoError(t, err)
	require.Len(t, added, 1)

	assert.Equal(t, 2, tr.Snapshot().StudyCount())
}

func TestTracker_AddStudy_MinimumDurationFilter(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)

	_, err = tr.AddStudy(ctx, capAt(now.Add(10*time.Minute), "1001", "CT HEAD"))
	require.NoError(t, err)

	// A re-trigger 2 seconds later is polling noise.
	_, err = tr.AddStudy(ctx, capAt(now.Add(10*time.Minute+2*time.Second), "1002", "XR CHEST"))
	assert.ErrorIs(t, err, common.ErrStudyTooShort)
	assert.Equal(t, 1, tr.Snapshot().StudyCount())
}

func TestTracker_AddStudy_IdleGapCapped(t *testing.T) {
	policy := model.DefaultTrackingPolicy()
	policy.MaxIdleGap = 30 * time.Minute
	tr, now := newTestTracker(t, policy, nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)

	// Three hours of idle time must not be attributed to one study.
	added, err := tr.AddStudy(ctx, capAt(now.Add(3*time.Hour), "1001", "CT HEAD"))
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, 30*time.Minute, added[0].Duration())
}

func TestTracker_AddStudy_MultiAccession(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)

	added, err := tr.AddStudy(ctx, capAt(now.Add(20*time.Minute), "1001, 1002",
		"CT HEAD WITHOUT CONTRAST\nXR CHEST PA AND LATERAL"))
	require.NoError(t, err)
	require.Len(t, added, 2)

	// Each accession is classified independently.
	assert.Equal(t, "CT Head", added[0].StudyType)
	assert.Equal(t, "XR Chest", added[1].StudyType)

	shift := tr.Snapshot()
	assert.Equal(t, 2, shift.StudyCount())
	assert.InDelta(t, 0.85+0.22, shift.TotalRVU(), 0.0001)
}

func TestTracker_AddStudy_MalformedAccession(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)

	_, err = tr.AddStudy(ctx, capAt(now.Add(10*time.Minute), "???", "CT HEAD"))
	assert.ErrorIs(t, err, common.ErrMalformedAccession)
	assert.Equal(t, 0, tr.Snapshot().StudyCount(), "no record created from a bad capture")
}

func TestTracker_UndoRedo_RoundTrip(t *testing.T) {
	sink := &recordingSink{}
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), sink)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)
	_, err = tr.AddStudy(ctx, capAt(now.Add(10*time.Minute), "1001", "CT HEAD"))
	require.NoError(t, err)
	_, err = tr.AddStudy(ctx, capAt(now.Add(20*time.Minute), "1002", "XR CHEST"))
	require.NoError(t, err)

	before := tr.Snapshot()

	removed, err := tr.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1002", removed.AccessionNumber)
	assert.Equal(t, 1, tr.Snapshot().StudyCount())

	restored, err := tr.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1002", restored.AccessionNumber)

	after := tr.Snapshot()
	assert.Equal(t, before, after, "undo then redo must restore the shift exactly")
	assert.Contains(t, sink.ops, "study_removed:1002")
	assert.Contains(t, sink.ops, "study_reinserted:1002")
}

func TestTracker_Undo_SingleLevel(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)
	_, err = tr.AddStudy(ctx, capAt(now.Add(10*time.Minute), "1001", "CT HEAD"))
	require.NoError(t, err)
	_, err = tr.AddStudy(ctx, capAt(now.Add(20*time.Minute), "1002", "XR CHEST"))
	require.NoError(t, err)

	_, err = tr.Undo(ctx)
	require.NoError(t, err)

	// The buffer holds one removal; a second undo must wait for redo or add.
	_, err = tr.Undo(ctx)
	assert.ErrorIs(t, err, common.ErrNothingToUndo)
}

func TestTracker_Undo_EmptyShift(t *testing.T) {
	tr, _ := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.Undo(ctx)
	assert.ErrorIs(t, err, common.ErrNoActiveShift)

	_, err = tr.StartShift(ctx)
	require.NoError(t, err)

	_, err = tr.Undo(ctx)
	assert.ErrorIs(t, err, common.ErrNothingToUndo)
}

func TestTracker_Redo_WithoutUndo(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)
	_, err = tr.AddStudy(ctx, capAt(now.Add(10*time.Minute), "1001", "CT HEAD"))
	require.NoError(t, err)

	_, err = tr.Redo(ctx)
	assert.ErrorIs(t, err, common.ErrNothingToRedo)
}

func TestTracker_AddStudy_ClearsRedo(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)
	_, err = tr.AddStudy(ctx, capAt(now.Add(10*time.Minute), "1001", "CT HEAD"))
	require.NoError(t, err)

	_, err = tr.Undo(ctx)
	require.NoError(t, err)

	_, err = tr.AddStudy(ctx, capAt(now.Add(25*time.Minute), "1002", "XR CHEST"))
	require.NoError(t, err)

	_, err = tr.Redo(ctx)
	assert.ErrorIs(t, err, common.ErrNothingToRedo,
		"a new study invalidates the pending redo")
}

func TestTracker_Resume(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	end := now.Add(10 * time.Minute)
	tr.Resume(&model.Shift{
		ID:        "restored",
		StartTime: *now,
		Status:    model.ShiftActive,
		Studies: []model.StudyRecord{
			{AccessionNumber: "1001", StudyType: "CT Head", RVU: 0.85, StartTime: *now, EndTime: end},
		},
	})

	shift := tr.ActiveShift()
	require.NotNil(t, shift)
	assert.Equal(t, "restored", shift.ID)
	assert.Equal(t, 1, shift.StudyCount())

	// The duplicate guard sees the restored studies.
	added, err := tr.AddStudy(ctx, capAt(now.Add(30*time.Minute), "1001", "CT HEAD"))
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestTracker_TotalRVUMatchesRecords(t *testing.T) {
	tr, now := newTestTracker(t, model.DefaultTrackingPolicy(), nil)
	ctx := context.Background()

	_, err := tr.StartShift(ctx)
	require.NoError(t, err)

	captures := []model.RawCapture{
		capAt(now.Add(10*time.Minute), "1001", "CT HEAD"),
		capAt(now.Add(20*time.Minute), "1002", "XR CHEST"),
		capAt(now.Add(30*time.Minute), "1003", "UNMATCHED PROCEDURE"),
	}
	for _, c := range captures {
		_, err = tr.AddStudy(ctx, c)
		require.NoError(t, err)
	}
	_, err = tr.Undo(ctx)
	require.NoError(t, err)
	_, err = tr.Redo(ctx)
	require.NoError(t, err)

	shift := tr.Snapshot()
	var sum float64
	for _, st := range shift.Studies {
		sum += st.RVU
	}
	assert.InDelta(t, sum, shift.TotalRVU(), 0.0001)
}
