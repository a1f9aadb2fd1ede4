package domain

import "math"

// ReadingStats summarizes an owner's shelf against their reading goal.
type ReadingStats struct {
	WantToRead   int `json:"want_to_read"`
	Reading      int `json:"reading"`
	Completed    int `json:"completed"`
	Goal         int `json:"goal"`
	GoalProgress int `json:"goal_progress"` // percent, capped at 100
}

// ComputeReadingStats counts entries per status and the goal percentage.
func ComputeReadingStats(entries []*ShelfEntry, goal int) ReadingStats {
	stats := ReadingStats{Goal: goal}
	for _, e := range entries {
		switch e.Status {
		case StatusWantToRead:
			stats.WantToRead++
		case StatusReading:
			stats.Reading++
		case StatusCompleted:
			stats.Completed++
		}
	}
	if goal > 0 {
		pct := math.Round(float64(stats.Completed) / float64(goal) * 100)
		stats.GoalProgress = int(math.Min(100, pct))
	}
	return stats
}
