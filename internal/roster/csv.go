package roster

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

// ExportFilename is the download name for exported rosters.
const ExportFilename = "student_attendance.csv"

// csvHeader is the fixed column order for both export and import.
var csvHeader = []string{"ID", "Name", "Roll No", "Grade", "Section", "Attendance", "Time In", "Time Out"}

// WriteCSV serializes entries with RFC 4180 quoting. The header row is
// always emitted, even for an empty roster.
func WriteCSV(entries []Entry) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(csvHeader)
	for _, e := range entries {
		_ = w.Write([]string{
			e.ID,
			e.Name,
			e.RollNo,
			e.Grade,
			e.Section,
			string(e.Attendance),
			e.TimeIn,
			e.TimeOut,
		})
	}
	w.Flush()
	return sb.String()
}

// ParseCSV parses uploaded CSV text into roster entries. The first
// non-blank line is treated as the header and skipped; with one line or
// less the import is a no-op. Parsing never fails: short rows are padded
// with sentinels, invalid grades and sections normalize to "N/A", and a
// missing id is synthesized from the import instant and line index.
// Attendance is always reset to the Unset placeholder — an import restores
// roster identity, never a prior attendance decision.
func ParseCSV(text string, now time.Time) []Entry {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil || len(records) <= 1 {
		// Malformed input degrades to a no-op rather than an error.
		return nil
	}

	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		fields := make([]string, 8)
		for j := range fields {
			if j < len(rec) {
				fields[j] = strings.TrimSpace(rec[j])
			}
		}
		if isBlankRow(fields) {
			continue
		}

		id := fields[0]
		if id == "" {
			id = stamp + "_" + strconv.Itoa(i+1)
		}
		name := fields[1]
		if name == "" {
			name = unknownName
		}
		rollNo := fields[2]
		if rollNo == "" {
			rollNo = NotApplicable
		}
		timeIn := fields[6]
		if timeIn == "" {
			timeIn = NotRecorded
		}
		timeOut := fields[7]
		if timeOut == "" {
			timeOut = NotRecorded
		}

		entries = append(entries, Entry{
			ID:          id,
			Name:        name,
			RollNo:      rollNo,
			Grade:       NormalizeGrade(fields[3]),
			Section:     NormalizeSection(fields[4]),
			Attendance:  StatusUnset,
			TimeIn:      timeIn,
			TimeOut:     timeOut,
			IsCheckedIn: false,
			History:     nil,
		})
	}
	return entries
}

func isBlankRow(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}
