package roster

import "math"

// Stats is the aggregate view over a roster snapshot. Percentages are
// rounded independently per category and may not sum to 100.
type Stats struct {
	PresentPct int `json:"present"`
	AbsentPct  int `json:"absent"`
	LatePct    int `json:"late"`
	Total      int `json:"total_students"`
}

// ComputeStats derives percentage counts over the snapshot. An empty
// roster yields all zeroes, never a division by zero.
func ComputeStats(entries []Entry) Stats {
	total := len(entries)
	if total == 0 {
		return Stats{}
	}
	var present, absent, late int
	for _, e := range entries {
		switch e.Attendance {
		case StatusPresent:
			present++
		case StatusAbsent:
			absent++
		case StatusLate:
			late++
		}
	}
	pct := func(n int) int {
		return int(math.Round(float64(n) / float64(total) * 100))
	}
	return Stats{
		PresentPct: pct(present),
		AbsentPct:  pct(absent),
		LatePct:    pct(late),
		Total:      total,
	}
}
