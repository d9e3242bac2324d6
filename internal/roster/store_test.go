package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2025, 3, 10, hour, min, sec, 0, time.UTC)
}

func sampleEntries() []Entry {
	return []Entry{
		{ID: "1", Name: "Asha Rao", RollNo: "R001", Grade: "5", Section: "A", Attendance: StatusUnset, TimeIn: NotRecorded, TimeOut: NotRecorded},
		{ID: "2", Name: "Ben Okafor", RollNo: "R002", Grade: "5", Section: "B", Attendance: StatusUnset, TimeIn: NotRecorded, TimeOut: NotRecorded},
		{ID: "3", Name: "Chi Tran", RollNo: "R003", Grade: "6", Section: "A", Attendance: StatusUnset, TimeIn: NotRecorded, TimeOut: NotRecorded},
	}
}

func newTestStore(rec Recorder) *Store {
	s := NewStore(DefaultSchedule(), ImportMerge, rec)
	s.Load(sampleEntries())
	return s
}

func findEntry(t *testing.T, s *Store, id string) Entry {
	t.Helper()
	for _, e := range s.Snapshot() {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("entry %s not found", id)
	return Entry{}
}

func TestCheckInBeforeThresholdIsPresent(t *testing.T) {
	s := newTestStore(nil)
	ok := s.CheckIn("1", at(8, 40, 0))
	require.True(t, ok)

	e := findEntry(t, s, "1")
	assert.Equal(t, StatusPresent, e.Attendance)
	assert.Equal(t, "8:40 AM", e.TimeIn)
	assert.True(t, e.IsCheckedIn)
	require.Len(t, e.History, 1)
	assert.Equal(t, StatusPresent, e.History[0].Status)
	assert.Equal(t, "3/10/2025", e.History[0].Date)
}

func TestCheckInExactlyAtThresholdIsPresent(t *testing.T) {
	// The late comparison is strictly greater: 08:45:00 on the dot is on time.
	s := newTestStore(nil)
	s.CheckIn("1", at(8, 45, 0))
	assert.Equal(t, StatusPresent, findEntry(t, s, "1").Attendance)
}

func TestCheckInAfterThresholdIsLate(t *testing.T) {
	s := newTestStore(nil)
	s.CheckIn("1", at(8, 45, 1))
	e := findEntry(t, s, "1")
	assert.Equal(t, StatusLate, e.Attendance)
	assert.True(t, e.IsCheckedIn)
}

func TestCheckInUnknownIDIsSilentNoOp(t *testing.T) {
	s := newTestStore(nil)
	ok := s.CheckIn("missing", at(9, 0, 0))
	assert.False(t, ok)
	for _, e := range s.Snapshot() {
		assert.Equal(t, StatusUnset, e.Attendance)
		assert.Empty(t, e.History)
	}
}

func TestSetStatusAbsentForcesNoCheckInTime(t *testing.T) {
	s := newTestStore(nil)
	s.SetStatus("2", StatusAbsent, at(9, 15, 0))
	e := findEntry(t, s, "2")
	assert.Equal(t, StatusAbsent, e.Attendance)
	assert.Equal(t, NotRecorded, e.TimeIn)
	assert.True(t, e.IsCheckedIn)
}

func TestSetStatusAppendsHistoryPerCall(t *testing.T) {
	// Re-edits are allowed and each one appends; nothing is deduplicated.
	s := newTestStore(nil)
	s.SetStatus("1", StatusPresent, at(8, 40, 0))
	s.SetStatus("1", StatusAbsent, at(9, 0, 0))
	s.SetStatus("1", StatusAbsent, at(9, 5, 0))

	e := findEntry(t, s, "1")
	assert.Equal(t, StatusAbsent, e.Attendance)
	require.Len(t, e.History, 3)
	assert.Equal(t, StatusPresent, e.History[0].Status)
	assert.Equal(t, "8:40 AM", e.History[0].TimeIn)
	assert.Equal(t, NotRecorded, e.History[2].TimeIn)
}

func TestSweepMarksUncheckedAbsentAfterStart(t *testing.T) {
	s := newTestStore(nil)
	s.CheckIn("1", at(8, 20, 0))

	swept := s.Sweep(at(8, 31, 0))
	assert.Equal(t, 2, swept)

	assert.Equal(t, StatusPresent, findEntry(t, s, "1").Attendance)
	for _, id := range []string{"2", "3"} {
		e := findEntry(t, s, id)
		assert.Equal(t, StatusAbsent, e.Attendance)
		assert.Equal(t, NotRecorded, e.TimeIn)
		assert.True(t, e.IsCheckedIn)
		assert.Len(t, e.History, 1)
	}
}

func TestSweepBeforeClassStartDoesNothing(t *testing.T) {
	s := newTestStore(nil)
	assert.Zero(t, s.Sweep(at(8, 29, 59)))
	assert.Equal(t, StatusUnset, findEntry(t, s, "2").Attendance)
}

func TestSweepTwiceIsIdempotent(t *testing.T) {
	s := newTestStore(nil)
	first := s.Sweep(at(8, 40, 0))
	second := s.Sweep(at(9, 40, 0))
	assert.Equal(t, 3, first)
	assert.Zero(t, second)
	for _, e := range s.Snapshot() {
		assert.Len(t, e.History, 1)
	}
}

func TestBulkSetStatusUsesSingleInstant(t *testing.T) {
	s := newTestStore(nil)
	now := at(9, 10, 0)
	updated := s.BulkSetStatus([]string{"1", "3", "ghost"}, StatusPresent, now)
	assert.Equal(t, 2, updated)

	for _, id := range []string{"1", "3"} {
		e := findEntry(t, s, id)
		assert.Equal(t, StatusPresent, e.Attendance)
		assert.Equal(t, "9:10 AM", e.TimeIn)
		require.Len(t, e.History, 1)
	}
	untouched := findEntry(t, s, "2")
	assert.Equal(t, StatusUnset, untouched.Attendance)
	assert.Empty(t, untouched.History)
}

func TestRecorderReceivesEveryTransition(t *testing.T) {
	var got []Transition
	s := newTestStore(func(tr Transition) { got = append(got, tr) })

	s.CheckIn("1", at(8, 40, 0))
	s.SetStatus("2", StatusAbsent, at(9, 0, 0))
	s.BulkSetStatus([]string{"3"}, StatusLate, at(9, 5, 0))

	require.Len(t, got, 3)
	assert.Equal(t, "1", got[0].StudentID)
	assert.Equal(t, StatusPresent, got[0].Status)
	assert.Equal(t, "2", got[1].StudentID)
	assert.Equal(t, NotRecorded, got[1].TimeIn)
	assert.Equal(t, StatusLate, got[2].Status)
}

func TestImportCSVMergeUpdatesByID(t *testing.T) {
	s := newTestStore(nil)
	s.CheckIn("1", at(8, 40, 0))

	csvText := "ID,Name,Roll No,Grade,Section,Attendance,Time In,Time Out\n" +
		"1,Asha R.,R001,5,A,Present,8:40 AM,-\n" +
		"9,Dev Nair,R009,7,C,Late,-,-\n"
	n := s.ImportCSV(csvText, at(10, 0, 0))
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, s.Len())

	e := findEntry(t, s, "1")
	assert.Equal(t, "Asha R.", e.Name)
	// Import restores identity only; attendance state is reset.
	assert.Equal(t, StatusUnset, e.Attendance)
	assert.False(t, e.IsCheckedIn)
	assert.Empty(t, e.History)

	added := findEntry(t, s, "9")
	assert.Equal(t, "7", added.Grade)
	assert.Equal(t, StatusUnset, added.Attendance)
}

func TestImportCSVReplaceDropsSnapshot(t *testing.T) {
	s := NewStore(DefaultSchedule(), ImportReplace, nil)
	s.Load(sampleEntries())

	csvText := "ID,Name,Roll No,Grade,Section,Attendance,Time In,Time Out\n" +
		"9,Dev Nair,R009,7,C,,-,-\n"
	n := s.ImportCSV(csvText, at(10, 0, 0))
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "9", s.Snapshot()[0].ID)
}

func TestImportCSVHeaderOnlyIsNoOp(t *testing.T) {
	s := newTestStore(nil)
	assert.Zero(t, s.ImportCSV("ID,Name,Roll No,Grade,Section,Attendance,Time In,Time Out\n", at(10, 0, 0)))
	assert.Zero(t, s.ImportCSV("", at(10, 0, 0)))
	assert.Equal(t, 3, s.Len())
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestStore(nil)
	s.CheckIn("1", at(8, 40, 0))

	snap := s.Snapshot()
	snap[0].History[0].Status = StatusAbsent
	snap[0].Attendance = StatusAbsent

	e := findEntry(t, s, "1")
	assert.Equal(t, StatusPresent, e.Attendance)
	assert.Equal(t, StatusPresent, e.History[0].Status)
}

func TestLoadReplacesSnapshotWholesale(t *testing.T) {
	s := newTestStore(nil)
	s.CheckIn("1", at(8, 40, 0))

	s.Load([]Entry{{ID: "42", Name: "New Kid", RollNo: "R042", Grade: "3", Section: "D", Attendance: StatusUnset, TimeIn: NotRecorded, TimeOut: NotRecorded}})
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "42", s.Snapshot()[0].ID)
}
