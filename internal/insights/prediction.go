package insights

import (
	"errors"
	"math"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

// ErrInsufficientData reports that fewer than two feedings exist.
var ErrInsufficientData = errors.New("insights: insufficient data")

// FeedingPrediction estimates when the next feeding is due.
type FeedingPrediction struct {
	AvgIntervalMinutes float64           `json:"avgIntervalMinutes"`
	LastFeeding        records.Record    `json:"lastFeeding"`
	NextFeedingTime    records.ClockTime `json:"nextFeedingTime"`
}

// PredictNextFeeding averages every consecutive interval across the full history and
// adds the mean to the last feeding. Seconds are truncated and the result is wrapped
// to a 24h clock; date rollover is not tracked.
func PredictNextFeeding(feedings []records.Record) (FeedingPrediction, error) {
	if len(feedings) < 2 {
		return FeedingPrediction{}, ErrInsufficientData
	}

	sorted := records.SortChronological(feedings)
	first := sorted[0].OccurredAt()
	last := sorted[len(sorted)-1]
	// consecutive intervals telescope to last minus first
	avgMinutes := last.OccurredAt().Sub(first).Minutes() / float64(len(sorted)-1)

	next := last.Time.Minutes() + int(math.Floor(avgMinutes))
	return FeedingPrediction{
		AvgIntervalMinutes: avgMinutes,
		LastFeeding:        last,
		NextFeedingTime:    records.ClockTimeFromMinutes(next),
	}, nil
}
