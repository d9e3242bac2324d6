package roster

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the attendance state of a roster entry.
type Status string

const (
	// StatusUnset is the initial display placeholder. It is never a valid
	// end state to persist; imports always reset entries back to it.
	StatusUnset   Status = "Unset"
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLate    Status = "Late"
)

// ParseStatus validates a user-supplied status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPresent, StatusAbsent, StatusLate:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// Sentinels substituted for missing or invalid input so display logic stays total.
const (
	NotApplicable = "N/A"
	NotRecorded   = "-"
	unknownName   = "Unknown"
)

// Display layouts matching the original attendance sheet.
const (
	clockLayout = "15:04:05"
	timeLayout  = "3:04 PM"
	dateLayout  = "1/2/2006"
)

var sectionOptions = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// NormalizeGrade maps anything outside "1".."12" to "N/A".
func NormalizeGrade(v string) string {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 12 {
		return strconv.Itoa(n)
	}
	return NotApplicable
}

// NormalizeSection uppercases and maps anything outside "A".."H" to "N/A".
func NormalizeSection(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	for _, s := range sectionOptions {
		if v == s {
			return s
		}
	}
	return NotApplicable
}

// HistoryRecord is one appended attendance transition. Records are kept in
// insertion order and never deduplicated or compacted.
type HistoryRecord struct {
	Date   string `json:"date"`
	Status Status `json:"status"`
	TimeIn string `json:"time_in"`
}

// Entry is a single student on the day's roster.
type Entry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	RollNo      string          `json:"roll_no"`
	Grade       string          `json:"grade"`
	Section     string          `json:"section"`
	Attendance  Status          `json:"attendance"`
	TimeIn      string          `json:"time_in"`
	TimeOut     string          `json:"time_out"`
	IsCheckedIn bool            `json:"is_checked_in"`
	History     []HistoryRecord `json:"history"`
}

// clone deep-copies an entry so snapshots cannot alias store state.
func (e Entry) clone() Entry {
	if len(e.History) > 0 {
		h := make([]HistoryRecord, len(e.History))
		copy(h, e.History)
		e.History = h
	}
	return e
}

// RawStudent is an upstream student record with loosely-typed fields.
// Different sources disagree on field names and numeric-vs-string ids,
// so it is kept dynamic and mapped defensively.
type RawStudent map[string]any

// MapRaw converts an upstream record into a roster entry. The mapping is
// total: every field has a defined fallback, and no input shape fails.
func MapRaw(raw RawStudent, index int) Entry {
	id := rawString(raw, "id")
	if id == "" {
		id = rawString(raw, "student_id")
	}
	if id == "" {
		id = strconv.Itoa(index)
	}

	name := rawString(raw, "first_name")
	if name != "" {
		if last := rawString(raw, "last_name"); last != "" {
			name = name + " " + last
		}
	} else if name = rawString(raw, "name"); name == "" {
		name = unknownName
	}

	rollNo := rawString(raw, "rollNo")
	if rollNo == "" {
		rollNo = rawString(raw, "student_registration_no")
	}
	if rollNo == "" {
		rollNo = rawString(raw, "roll_number")
	}
	if rollNo == "" {
		rollNo = NotApplicable
	}

	return Entry{
		ID:          id,
		Name:        name,
		RollNo:      rollNo,
		Grade:       NormalizeGrade(rawString(raw, "grade")),
		Section:     NormalizeSection(rawString(raw, "section")),
		Attendance:  StatusUnset,
		TimeIn:      NotRecorded,
		TimeOut:     NotRecorded,
		IsCheckedIn: false,
		History:     nil,
	}
}

// rawString extracts a field as a string regardless of its JSON type.
func rawString(raw RawStudent, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// Transition describes one applied attendance change, emitted for the
// asynchronous event log.
type Transition struct {
	StudentID string    `json:"student_id"`
	Status    Status    `json:"status"`
	Date      string    `json:"date"`
	TimeIn    string    `json:"time_in"`
	At        time.Time `json:"at"`
}
