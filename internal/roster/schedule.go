package roster

import "time"

// Schedule holds the three time-of-day thresholds used to classify
// check-ins. Values are HH:MM:SS strings compared lexicographically
// against the wall clock; there is no timezone or midnight handling.
type Schedule struct {
	Start         string
	LateThreshold string
	End           string
}

// DefaultSchedule matches the standard school day.
func DefaultSchedule() Schedule {
	return Schedule{
		Start:         "08:30:00",
		LateThreshold: "08:45:00",
		End:           "15:30:00",
	}
}

// Clock formats a wall-clock instant for threshold comparison.
func Clock(t time.Time) string {
	return t.Format(clockLayout)
}

// IsLate reports whether a check-in at t lands after the late threshold.
// Exactly at the threshold counts as on time.
func (s Schedule) IsLate(t time.Time) bool {
	return Clock(t) > s.LateThreshold
}

// ClassStarted reports whether t is past the start of class, which arms
// the automatic absence sweep.
func (s Schedule) ClassStarted(t time.Time) bool {
	return Clock(t) > s.Start
}
