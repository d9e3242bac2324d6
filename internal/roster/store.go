package roster

import (
	"sync"
	"time"
)

// ImportMode selects how an imported CSV lands on the current snapshot.
type ImportMode string

const (
	// ImportReplace drops the current snapshot and keeps only the file.
	ImportReplace ImportMode = "replace"
	// ImportMerge updates existing entries by id and appends new ones.
	ImportMerge ImportMode = "merge"
)

// Recorder receives every applied transition, typically to publish it to
// the event-log queue. A nil recorder is allowed.
type Recorder func(Transition)

// Store owns the day's roster snapshot. All mutation goes through its
// methods under a single mutex, preserving the single-writer model the
// attendance rules assume.
type Store struct {
	mu         sync.Mutex
	entries    []Entry
	index      map[string]int
	schedule   Schedule
	importMode ImportMode
	recorder   Recorder
}

// NewStore creates an empty roster store.
func NewStore(schedule Schedule, mode ImportMode, rec Recorder) *Store {
	if mode != ImportReplace {
		mode = ImportMerge
	}
	return &Store{
		index:      make(map[string]int),
		schedule:   schedule,
		importMode: mode,
		recorder:   rec,
	}
}

// Schedule returns the configured schedule policy.
func (s *Store) Schedule() Schedule { return s.schedule }

// Load replaces the snapshot wholesale with mapped entries.
func (s *Store) Load(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(entries)
}

// LoadRaw maps loosely-typed upstream records and replaces the snapshot.
func (s *Store) LoadRaw(raw []RawStudent) {
	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		entries = append(entries, MapRaw(r, i))
	}
	s.Load(entries)
}

func (s *Store) replaceLocked(entries []Entry) {
	s.entries = make([]Entry, 0, len(entries))
	s.index = make(map[string]int, len(entries))
	for _, e := range entries {
		if _, dup := s.index[e.ID]; dup {
			continue
		}
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, e.clone())
	}
}

// Snapshot returns a deep copy of the current roster.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the roster size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CheckIn applies an automatic check-in for one student: Late when the
// clock is strictly past the late threshold, Present otherwise (a check-in
// exactly at the threshold is on time). Unknown ids are a silent no-op.
func (s *Store) CheckIn(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	status := StatusPresent
	if s.schedule.IsLate(now) {
		status = StatusLate
	}
	s.applyLocked(i, status, now.Format(timeLayout), now)
	return true
}

// SetStatus manually assigns a status. Absent forces the check-in time to
// the "-" sentinel. Repeated calls keep appending history; contradictory
// re-edits are allowed. Unknown ids are a silent no-op.
func (s *Store) SetStatus(id string, status Status, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	timeIn := now.Format(timeLayout)
	if status == StatusAbsent {
		timeIn = NotRecorded
	}
	s.applyLocked(i, status, timeIn, now)
	return true
}

// BulkSetStatus applies SetStatus to each id using the single moment the
// bulk operation was invoked. Returns how many entries were updated.
func (s *Store) BulkSetStatus(ids []string, status Status, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	timeIn := now.Format(timeLayout)
	if status == StatusAbsent {
		timeIn = NotRecorded
	}
	updated := 0
	for _, id := range ids {
		i, ok := s.index[id]
		if !ok {
			continue
		}
		s.applyLocked(i, status, timeIn, now)
		updated++
	}
	return updated
}

// Sweep marks every entry that has not checked in as Absent once the
// class start time has passed. The IsCheckedIn guard makes repeated
// sweeps idempotent: an already-swept entry is not touched again.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.schedule.ClassStarted(now) {
		return 0
	}
	swept := 0
	for i := range s.entries {
		e := &s.entries[i]
		if e.IsCheckedIn || e.TimeIn != NotRecorded {
			continue
		}
		s.applyLocked(i, StatusAbsent, NotRecorded, now)
		swept++
	}
	return swept
}

// applyLocked performs the shared transition bookkeeping: set the status,
// record the time, flag the entry checked in, append history, and emit.
func (s *Store) applyLocked(i int, status Status, timeIn string, now time.Time) {
	e := &s.entries[i]
	date := now.Format(dateLayout)
	e.Attendance = status
	e.TimeIn = timeIn
	e.IsCheckedIn = true
	e.History = append(e.History, HistoryRecord{Date: date, Status: status, TimeIn: timeIn})
	if s.recorder != nil {
		s.recorder(Transition{
			StudentID: e.ID,
			Status:    status,
			Date:      date,
			TimeIn:    timeIn,
			At:        now,
		})
	}
}

// ImportCSV parses CSV text and applies it per the configured import mode.
// Imported entries carry identity fields only: attendance is reset to the
// Unset placeholder and history is cleared (see ParseCSV). Returns the
// number of parsed rows.
func (s *Store) ImportCSV(text string, now time.Time) int {
	parsed := ParseCSV(text, now)
	if len(parsed) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.importMode == ImportReplace {
		s.replaceLocked(parsed)
		return len(parsed)
	}
	for _, e := range parsed {
		if i, ok := s.index[e.ID]; ok {
			s.entries[i] = e.clone()
			continue
		}
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, e.clone())
	}
	return len(parsed)
}

// ExportCSV serializes the current snapshot.
func (s *Store) ExportCSV() string {
	return WriteCSV(s.Snapshot())
}

// Stats computes the aggregate over the current snapshot.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeStats(s.entries)
}
