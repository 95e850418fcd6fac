// Package insights derives ages, durations, statistics and predictions from
// in-memory record collections. Every function is pure.
package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

const hoursPerDay = 24

// Age is a calendar-aware breakdown plus the flat day count since birth.
type Age struct {
	Years     int    `json:"years"`
	Months    int    `json:"months"`
	Days      int    `json:"days"`
	TotalDays int    `json:"totalDays"`
	Formatted string `json:"formatted"`
}

// ComputeAge returns the age on asOf of a baby born on birth.
// A birth date after asOf yields the zero age.
func ComputeAge(birth, asOf records.Date) Age {
	birthTime := birth.Time()
	asOfTime := asOf.Time()
	if birthTime.IsZero() || asOfTime.IsZero() || asOfTime.Before(birthTime) {
		return Age{Formatted: formatAge(0, 0, 0)}
	}

	years := asOfTime.Year() - birthTime.Year()
	months := int(asOfTime.Month()) - int(birthTime.Month())
	days := asOfTime.Day() - birthTime.Day()

	if days < 0 {
		months--
		// day 0 of asOf's month is the last day of the month before it
		previousMonthDays := time.Date(asOfTime.Year(), asOfTime.Month(), 0, 0, 0, 0, 0, time.UTC).Day()
		days = previousMonthDays - min(birthTime.Day(), previousMonthDays) + asOfTime.Day()
	}
	if months < 0 {
		years--
		months += 12
	}

	return Age{
		Years:     years,
		Months:    months,
		Days:      days,
		TotalDays: DaysBetween(birth, asOf),
		Formatted: formatAge(years, months, days),
	}
}

// AgeToday computes the age as of the current date in loc.
func AgeToday(birth records.Date, now time.Time, loc *time.Location) Age {
	return ComputeAge(birth, Today(now, loc))
}

// Today returns the calendar date of now in loc; nil loc keeps now's location.
func Today(now time.Time, loc *time.Location) records.Date {
	if loc != nil {
		now = now.In(loc)
	}
	return records.DateOf(now)
}

// DaysBetween returns the flat number of days from start to end; negative when end is earlier.
func DaysBetween(start, end records.Date) int {
	return int(end.Time().Sub(start.Time()).Hours() / hoursPerDay)
}

func formatAge(years, months, days int) string {
	parts := make([]string, 0, 3)
	if years > 0 {
		parts = append(parts, pluralize(years, "year"))
	}
	if months > 0 {
		parts = append(parts, pluralize(months, "month"))
	}
	if days > 0 || len(parts) == 0 {
		parts = append(parts, pluralize(days, "day"))
	}
	return strings.Join(parts, " ")
}

func pluralize(count int, unit string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, unit)
	}
	return fmt.Sprintf("%d %ss", count, unit)
}
