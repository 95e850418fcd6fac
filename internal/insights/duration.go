package insights

import (
	"math"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

const minutesPerDay = 24 * 60

// ComputeSleepDuration returns the minutes from start to end. Sessions whose end is
// not after their start are treated as crossing midnight, so the result is always in
// (0, 1440]. Equal times produce 1440; callers reject them as zero-duration sessions.
func ComputeSleepDuration(start, end records.ClockTime) int {
	raw := end.Minutes() - start.Minutes()
	if raw <= 0 {
		raw += minutesPerDay
	}
	return raw
}

// SleepFromSession builds a sleep record from a start/stop session measured in real
// time, dated by the start. It reports false when the session does not span at least
// one clock minute or lasts a full day or more, since neither fits the clock-time model.
func SleepFromSession(startedAt, endedAt time.Time, loc *time.Location) (records.Record, bool) {
	if !endedAt.After(startedAt) || endedAt.Sub(startedAt) >= hoursPerDay*time.Hour {
		return records.Record{}, false
	}
	if loc != nil {
		startedAt = startedAt.In(loc)
		endedAt = endedAt.In(loc)
	}
	start := records.ClockTimeOf(startedAt)
	end := records.ClockTimeOf(endedAt)
	if start == end {
		return records.Record{}, false
	}
	return records.Record{
		Kind:      records.KindSleep,
		Date:      records.DateOf(startedAt),
		StartTime: start,
		EndTime:   end,
		Duration:  ComputeSleepDuration(start, end),
	}, true
}

// HoursRounded converts minutes to whole hours, rounding half up.
func HoursRounded(minutes float64) int {
	return int(math.Round(minutes / 60))
}
