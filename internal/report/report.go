// Package report turns profiles, collections and aggregates into the view models
// served by the dashboard endpoint and printed by the CLI.
package report

import (
	"fmt"
	"math"
	"strconv"

	"github.com/MarcoPoloResearchLab/babytracker/internal/insights"
	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

// Profile is a baby profile with its computed age.
type Profile struct {
	records.BabyProfile
	Age insights.Age `json:"age"`
}

// NewProfile attaches the age as of day.
func NewProfile(profile records.BabyProfile, day records.Date) Profile {
	return Profile{BabyProfile: profile, Age: insights.ComputeAge(profile.BirthDate, day)}
}

// Summary holds the headline numbers of the dashboard.
type Summary struct {
	LatestWeight      *float64 `json:"latestWeight,omitempty"`
	TotalMilk         float64  `json:"totalMilk"`
	TodayFeedings     int      `json:"todayFeedings"`
	TodayDiapers      int      `json:"todayDiapers"`
	TodaySleepMinutes int      `json:"todaySleepMinutes"`
}

// Subtitles are the one-line captions shown under each section.
type Subtitles struct {
	Growth  string `json:"growth"`
	Milk    string `json:"milk,omitempty"`
	Feeding string `json:"feeding"`
	Diaper  string `json:"diaper"`
	Sleep   string `json:"sleep"`
}

// Dashboard is the complete view model for one owner and reference date.
type Dashboard struct {
	Date          records.Date                `json:"date"`
	Profile       Profile                     `json:"profile"`
	Summary       Summary                     `json:"summary"`
	Stats         insights.Stats              `json:"stats"`
	Today         Subtitles                   `json:"today"`
	Trends        Subtitles                   `json:"trends"`
	Prediction    *insights.FeedingPrediction `json:"prediction,omitempty"`
	Growth        insights.GrowthSummary      `json:"growth"`
	DiaperAverage insights.DiaperDailyAverage `json:"diaperAverage"`
	SleepAverage  insights.SleepDailyAverage  `json:"sleepAverage"`
}

// BuildDashboard recomputes every derived value from the collections.
func BuildDashboard(profile records.BabyProfile, collections records.Collections, day records.Date) Dashboard {
	stats := insights.ComputeStats(collections, day)
	dashboard := Dashboard{
		Date:          day,
		Profile:       NewProfile(profile, day),
		Stats:         stats,
		Today:         TodaySubtitles(collections, day),
		Trends:        TrendSubtitles(collections, day),
		Growth:        insights.SummarizeGrowth(collections.Growth),
		DiaperAverage: insights.ComputeDiaperDailyAverage(collections.Diaper),
		SleepAverage:  insights.ComputeSleepDailyAverage(collections.Sleep),
		Summary: Summary{
			TotalMilk:         stats.Feeding.AllTimeTotalOz,
			TodayFeedings:     stats.Feeding.TodayCount,
			TodayDiapers:      stats.Diaper.TodayTotal,
			TodaySleepMinutes: stats.Sleep.TodayTotalMinutes,
		},
	}
	if latest, ok := records.Latest(collections.Growth); ok {
		weight := latest.Weight
		dashboard.Summary.LatestWeight = &weight
	}
	if prediction, err := insights.PredictNextFeeding(collections.Feeding); err == nil {
		dashboard.Prediction = &prediction
	}
	return dashboard
}

// TodaySubtitles captions each section with the reference date's activity.
func TodaySubtitles(collections records.Collections, day records.Date) Subtitles {
	subtitles := Subtitles{Growth: "No growth data"}
	if latest, ok := records.Latest(collections.Growth); ok {
		subtitles.Growth = fmt.Sprintf("Latest: %skg", formatNumber(latest.Weight))
	}
	feeding := insights.ComputeFeedingStats(collections.Feeding, day)
	subtitles.Feeding = "Today: " + pluralize(feeding.TodayCount, "feeding")
	diaper := insights.ComputeDiaperStats(collections.Diaper, day)
	subtitles.Diaper = fmt.Sprintf("Today: %d pee, %d poo", diaper.TodayPeeCount, diaper.TodayPooCount)
	sleep := insights.ComputeSleepStats(collections.Sleep, day)
	subtitles.Sleep = fmt.Sprintf("Today: %dh sleep", insights.HoursRounded(float64(sleep.TodayTotalMinutes)))
	return subtitles
}

// TrendSubtitles captions each section with its long-running averages.
func TrendSubtitles(collections records.Collections, day records.Date) Subtitles {
	subtitles := Subtitles{
		Growth:  "No data",
		Milk:    "No feeding data",
		Feeding: "Need more data",
		Diaper:  "No diaper data",
		Sleep:   "No sleep data",
	}
	if latest, ok := records.Latest(collections.Growth); ok {
		subtitles.Growth = formatNumber(latest.Weight) + " kg"
	}
	if days, ok := insights.DaysSinceFirstFeeding(collections.Feeding, day); ok {
		subtitles.Milk = "Already drink for " + pluralize(days, "day")
	}
	if prediction, err := insights.PredictNextFeeding(collections.Feeding); err == nil {
		hours := insights.HoursRounded(prediction.AvgIntervalMinutes)
		subtitles.Feeding = fmt.Sprintf("Every %s - Next %s", pluralize(hours, "hour"), prediction.NextFeedingTime)
	}
	if average := insights.ComputeDiaperDailyAverage(collections.Diaper); average.Days > 0 {
		subtitles.Diaper = fmt.Sprintf("Average %d pee %d poo per day", int(math.Round(average.AvgPee)), int(math.Round(average.AvgPoo)))
	}
	if average := insights.ComputeSleepDailyAverage(collections.Sleep); average.Days > 0 {
		subtitles.Sleep = fmt.Sprintf("Avg %s sleep / day", pluralize(insights.HoursRounded(average.AvgMinutes), "hour"))
	}
	return subtitles
}

// Line renders one record as a single line of text.
func Line(record records.Record) string {
	switch record.Kind {
	case records.KindGrowth:
		line := fmt.Sprintf("%s  %skg", record.Date, formatNumber(record.Weight))
		if record.Height != nil {
			line += fmt.Sprintf(" %scm", formatNumber(*record.Height))
		}
		return line
	case records.KindFeeding:
		return fmt.Sprintf("%s %s  %soz %s", record.Date, record.Time, formatNumber(record.Amount), record.Type)
	case records.KindDiaper:
		return fmt.Sprintf("%s %s  %s", record.Date, record.Time, record.Type)
	case records.KindSleep:
		return fmt.Sprintf("%s %s-%s  %s", record.Date, record.StartTime, record.EndTime, FormatDuration(record.Duration))
	default:
		return string(record.Date)
	}
}

// FormatDuration renders minutes as "8h", "45m" or "1h 30m".
func FormatDuration(minutes int) string {
	hours, rest := minutes/60, minutes%60
	switch {
	case hours > 0 && rest > 0:
		return fmt.Sprintf("%dh %dm", hours, rest)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", rest)
	}
}

func pluralize(count int, unit string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, unit)
	}
	return fmt.Sprintf("%d %ss", count, unit)
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
