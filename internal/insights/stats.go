package insights

import (
	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

// FeedingStats aggregates feedings on the reference date and over all time.
type FeedingStats struct {
	TodayTotalOz    float64 `json:"todayTotal"`
	TodayCount      int     `json:"todayCount"`
	AllTimeTotalOz  float64 `json:"allTimeTotal"`
	AvgPerFeedingOz float64 `json:"avgPerFeeding"`
}

// DiaperStats counts diaper changes on the reference date. A "both" change counts
// toward pee and poo.
type DiaperStats struct {
	TodayTotal    int `json:"todayTotal"`
	TodayPeeCount int `json:"peeCount"`
	TodayPooCount int `json:"pooCount"`
}

// SleepStats aggregates sleep sessions dated on the reference date.
type SleepStats struct {
	TodayTotalMinutes int     `json:"todayTotal"`
	TodaySessionCount int     `json:"sessionCount"`
	AvgSessionMinutes float64 `json:"avgSession"`
}

// Stats bundles the per-kind aggregates for one reference date.
type Stats struct {
	Date    records.Date `json:"date"`
	Feeding FeedingStats `json:"feeding"`
	Diaper  DiaperStats  `json:"diaper"`
	Sleep   SleepStats   `json:"sleep"`
}

// ComputeStats aggregates all collections for the reference date. Only records whose
// date equals day exactly are counted as "today".
func ComputeStats(collections records.Collections, day records.Date) Stats {
	return Stats{
		Date:    day,
		Feeding: ComputeFeedingStats(collections.Feeding, day),
		Diaper:  ComputeDiaperStats(collections.Diaper, day),
		Sleep:   ComputeSleepStats(collections.Sleep, day),
	}
}

// ComputeFeedingStats sums feeding amounts for day and for the whole collection.
func ComputeFeedingStats(feedings []records.Record, day records.Date) FeedingStats {
	var stats FeedingStats
	for _, feeding := range feedings {
		stats.AllTimeTotalOz += feeding.Amount
		if feeding.Date == day {
			stats.TodayTotalOz += feeding.Amount
			stats.TodayCount++
		}
	}
	if stats.TodayCount > 0 {
		stats.AvgPerFeedingOz = stats.TodayTotalOz / float64(stats.TodayCount)
	}
	return stats
}

// ComputeDiaperStats counts pee and poo changes for day.
func ComputeDiaperStats(diapers []records.Record, day records.Date) DiaperStats {
	var stats DiaperStats
	for _, diaper := range records.OnDate(diapers, day) {
		stats.TodayTotal++
		if diaper.DiaperType().CountsPee() {
			stats.TodayPeeCount++
		}
		if diaper.DiaperType().CountsPoo() {
			stats.TodayPooCount++
		}
	}
	return stats
}

// ComputeSleepStats totals sleep minutes for day.
func ComputeSleepStats(sessions []records.Record, day records.Date) SleepStats {
	var stats SleepStats
	for _, session := range records.OnDate(sessions, day) {
		stats.TodayTotalMinutes += session.Duration
		stats.TodaySessionCount++
	}
	if stats.TodaySessionCount > 0 {
		stats.AvgSessionMinutes = float64(stats.TodayTotalMinutes) / float64(stats.TodaySessionCount)
	}
	return stats
}

// DiaperDailyAverage is the mean number of pee and poo changes per distinct day.
type DiaperDailyAverage struct {
	Days   int     `json:"days"`
	AvgPee float64 `json:"avgPee"`
	AvgPoo float64 `json:"avgPoo"`
}

// ComputeDiaperDailyAverage averages pee and poo counts over the days that have entries.
func ComputeDiaperDailyAverage(diapers []records.Record) DiaperDailyAverage {
	days := make(map[records.Date]struct{})
	pee, poo := 0, 0
	for _, diaper := range diapers {
		days[diaper.Date] = struct{}{}
		if diaper.DiaperType().CountsPee() {
			pee++
		}
		if diaper.DiaperType().CountsPoo() {
			poo++
		}
	}
	if len(days) == 0 {
		return DiaperDailyAverage{}
	}
	return DiaperDailyAverage{
		Days:   len(days),
		AvgPee: float64(pee) / float64(len(days)),
		AvgPoo: float64(poo) / float64(len(days)),
	}
}

// SleepDailyAverage is the mean minutes slept per distinct day.
type SleepDailyAverage struct {
	Days       int     `json:"days"`
	AvgMinutes float64 `json:"avgMinutes"`
}

// ComputeSleepDailyAverage averages total sleep over the days that have sessions.
func ComputeSleepDailyAverage(sessions []records.Record) SleepDailyAverage {
	days := make(map[records.Date]struct{})
	total := 0
	for _, session := range sessions {
		days[session.Date] = struct{}{}
		total += session.Duration
	}
	if len(days) == 0 {
		return SleepDailyAverage{}
	}
	return SleepDailyAverage{Days: len(days), AvgMinutes: float64(total) / float64(len(days))}
}

// DaysSinceFirstFeeding counts days from the earliest feeding to day, inclusive.
// It reports false when there are no feedings.
func DaysSinceFirstFeeding(feedings []records.Record, day records.Date) (int, bool) {
	if len(feedings) == 0 {
		return 0, false
	}
	first := records.SortChronological(feedings)[0]
	return DaysBetween(first.Date, day) + 1, true
}
