package tracker

import "github.com/calebmd/radpace/internal/model"

// undoMode is the two-position toggle of the undo buffer.
type undoMode int

const (
	// modeUndo means the next valid correction is removing the tail study.
	modeUndo undoMode = iota
	// modeRedo means a removed study is held and may be reinserted.
	modeRedo
)

// undoBuffer holds at most one removed study. It is a single-slot toggle,
// not a stack: only the most recent capture can be reversed, and a deeper
// stack would change what redo means once new studies arrive.
type undoBuffer struct {
	entry   *model.StudyRecord
	shiftID string
	mode    undoMode
}

// reset clears any held entry and returns the buffer to undo-available.
// Called on every successful study addition so a stale redo can never
// reinsert a record that is no longer adjacent to the tail.
func (b *undoBuffer) reset() {
	b.entry = nil
	b.shiftID = ""
	b.mode = modeUndo
}

// hold stores a freshly removed record and flips the buffer to redo.
func (b *undoBuffer) hold(record model.StudyRecord, shiftID string) {
	r := record
	b.entry = &r
	b.shiftID = shiftID
	b.mode = modeRedo
}

// take consumes the held record, flipping back to undo-available.
func (b *undoBuffer) take() (model.StudyRecord, bool) {
	if b.mode != modeRedo || b.entry == nil {
		return model.StudyRecord{}, false
	}
	record := *b.entry
	b.reset()
	return record, true
}

// canUndo reports whether the buffer is in its undo-available position.
func (b *undoBuffer) canUndo() bool {
	return b.mode == modeUndo
}
