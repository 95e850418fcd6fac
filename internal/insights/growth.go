package insights

import (
	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

// GrowthPoint is one chart sample in ascending date order.
type GrowthPoint struct {
	Date   records.Date `json:"date"`
	Weight float64      `json:"weight"`
	Height *float64     `json:"height,omitempty"`
}

// MeasureSummary describes one measured series.
type MeasureSummary struct {
	Samples int     `json:"samples"`
	First   float64 `json:"first"`
	Latest  float64 `json:"latest"`
	Gain    float64 `json:"gain"`
	Average float64 `json:"average"`
}

// GrowthSummary holds chart points and the weight and height series summaries.
type GrowthSummary struct {
	Points []GrowthPoint   `json:"points"`
	Weight *MeasureSummary `json:"weight,omitempty"`
	Height *MeasureSummary `json:"height,omitempty"`
}

// SummarizeGrowth orders entries by date and summarises weight and height. Height is
// summarised over the entries that carry one.
func SummarizeGrowth(entries []records.Record) GrowthSummary {
	sorted := records.SortChronological(entries)
	summary := GrowthSummary{Points: make([]GrowthPoint, 0, len(sorted))}

	weights := make([]float64, 0, len(sorted))
	heights := make([]float64, 0, len(sorted))
	for _, entry := range sorted {
		summary.Points = append(summary.Points, GrowthPoint{Date: entry.Date, Weight: entry.Weight, Height: entry.Height})
		if entry.Weight > 0 {
			weights = append(weights, entry.Weight)
		}
		if entry.Height != nil && *entry.Height > 0 {
			heights = append(heights, *entry.Height)
		}
	}

	summary.Weight = summarizeSeries(weights)
	summary.Height = summarizeSeries(heights)
	return summary
}

func summarizeSeries(values []float64) *MeasureSummary {
	if len(values) == 0 {
		return nil
	}
	total := 0.0
	for _, value := range values {
		total += value
	}
	first := values[0]
	latest := values[len(values)-1]
	return &MeasureSummary{
		Samples: len(values),
		First:   first,
		Latest:  latest,
		Gain:    latest - first,
		Average: total / float64(len(values)),
	}
}
