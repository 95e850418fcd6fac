package report

import (
	"testing"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

func sampleCollections() records.Collections {
	height := 55.0
	return records.Collections{
		Growth: []records.Record{
			{ID: "g1", Kind: records.KindGrowth, Date: "2024-01-01", Weight: 3.5},
			{ID: "g2", Kind: records.KindGrowth, Date: "2024-02-01", Weight: 4.2, Height: &height},
		},
		Feeding: []records.Record{
			{ID: "f1", Kind: records.KindFeeding, Date: "2024-02-01", Time: "08:00", Amount: 4, Type: "bottle"},
			{ID: "f2", Kind: records.KindFeeding, Date: "2024-02-01", Time: "11:00", Amount: 3, Type: "bottle"},
			{ID: "f3", Kind: records.KindFeeding, Date: "2024-02-01", Time: "14:00", Amount: 5, Type: "breast"},
		},
		Diaper: []records.Record{
			{ID: "d1", Kind: records.KindDiaper, Date: "2024-02-01", Time: "09:00", Type: "both"},
			{ID: "d2", Kind: records.KindDiaper, Date: "2024-02-01", Time: "10:00", Type: "pee"},
		},
		Sleep: []records.Record{
			{ID: "s1", Kind: records.KindSleep, Date: "2024-02-01", StartTime: "22:00", EndTime: "06:00", Duration: 480},
		},
	}
}

func TestBuildDashboard(t *testing.T) {
	profile := records.BabyProfile{Name: "Tommy", BirthDate: "2023-08-01"}
	dashboard := BuildDashboard(profile, sampleCollections(), "2024-02-01")

	if dashboard.Profile.Age.Formatted != "6 months" {
		t.Fatalf("unexpected age %q", dashboard.Profile.Age.Formatted)
	}
	if dashboard.Summary.LatestWeight == nil || *dashboard.Summary.LatestWeight != 4.2 {
		t.Fatalf("expected latest weight from the February entry, got %v", dashboard.Summary.LatestWeight)
	}
	if dashboard.Summary.TotalMilk != 12 || dashboard.Summary.TodayFeedings != 3 || dashboard.Summary.TodayDiapers != 2 {
		t.Fatalf("unexpected summary %+v", dashboard.Summary)
	}
	if dashboard.Prediction == nil || dashboard.Prediction.NextFeedingTime != "17:00" {
		t.Fatalf("unexpected prediction %+v", dashboard.Prediction)
	}
	if dashboard.Growth.Weight == nil || dashboard.Growth.Weight.Samples != 2 {
		t.Fatalf("unexpected growth summary %+v", dashboard.Growth)
	}
}

func TestBuildDashboardWithoutData(t *testing.T) {
	dashboard := BuildDashboard(records.BabyProfile{Name: "Baby", BirthDate: "2024-02-01"}, records.Collections{}, "2024-02-01")
	if dashboard.Summary.LatestWeight != nil || dashboard.Prediction != nil {
		t.Fatalf("expected empty dashboard, got %+v", dashboard)
	}
	if dashboard.Profile.Age.Formatted != "0 days" {
		t.Fatalf("unexpected age %q", dashboard.Profile.Age.Formatted)
	}
	want := Subtitles{Growth: "No data", Milk: "No feeding data", Feeding: "Need more data", Diaper: "No diaper data", Sleep: "No sleep data"}
	if dashboard.Trends != want {
		t.Fatalf("unexpected trends %+v", dashboard.Trends)
	}
}

func TestTodaySubtitles(t *testing.T) {
	subtitles := TodaySubtitles(sampleCollections(), "2024-02-01")
	want := Subtitles{
		Growth:  "Latest: 4.2kg",
		Feeding: "Today: 3 feedings",
		Diaper:  "Today: 2 pee, 1 poo",
		Sleep:   "Today: 8h sleep",
	}
	if subtitles != want {
		t.Fatalf("unexpected subtitles %+v", subtitles)
	}
}

func TestTrendSubtitles(t *testing.T) {
	subtitles := TrendSubtitles(sampleCollections(), "2024-02-05")
	want := Subtitles{
		Growth:  "4.2 kg",
		Milk:    "Already drink for 5 days",
		Feeding: "Every 3 hours - Next 17:00",
		Diaper:  "Average 2 pee 1 poo per day",
		Sleep:   "Avg 8 hours sleep / day",
	}
	if subtitles != want {
		t.Fatalf("unexpected trends %+v", subtitles)
	}
}

func TestLine(t *testing.T) {
	height := 55.5
	testCases := []struct {
		record records.Record
		want   string
	}{
		{record: records.Record{Kind: records.KindGrowth, Date: "2024-02-01", Weight: 4.2, Height: &height}, want: "2024-02-01  4.2kg 55.5cm"},
		{record: records.Record{Kind: records.KindFeeding, Date: "2024-02-01", Time: "08:00", Amount: 4, Type: "bottle"}, want: "2024-02-01 08:00  4oz bottle"},
		{record: records.Record{Kind: records.KindDiaper, Date: "2024-02-01", Time: "09:30", Type: "both"}, want: "2024-02-01 09:30  both"},
		{record: records.Record{Kind: records.KindSleep, Date: "2024-02-01", StartTime: "13:00", EndTime: "14:30", Duration: 90}, want: "2024-02-01 13:00-14:30  1h 30m"},
	}
	for _, testCase := range testCases {
		if got := Line(testCase.record); got != testCase.want {
			t.Fatalf("expected %q, got %q", testCase.want, got)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	for minutes, want := range map[int]string{45: "45m", 480: "8h", 90: "1h 30m", 0: "0m"} {
		if got := FormatDuration(minutes); got != want {
			t.Fatalf("expected %q for %d, got %q", want, minutes, got)
		}
	}
}
