package records

import "time"

// FeedingType enumerates how a feeding was given.
type FeedingType string

const (
	FeedingBottle  FeedingType = "bottle"
	FeedingBreast  FeedingType = "breast"
	FeedingFormula FeedingType = "formula"
	FeedingSolid   FeedingType = "solid"
)

// DiaperType enumerates diaper change contents.
type DiaperType string

const (
	DiaperPee  DiaperType = "pee"
	DiaperPoo  DiaperType = "poo"
	DiaperBoth DiaperType = "both"
)

// CountsPee reports whether the change counts toward the pee tally.
func (t DiaperType) CountsPee() bool {
	return t == DiaperPee || t == DiaperBoth
}

// CountsPoo reports whether the change counts toward the poo tally.
func (t DiaperType) CountsPoo() bool {
	return t == DiaperPoo || t == DiaperBoth
}

// BabyProfile describes the baby tracked by one owner.
type BabyProfile struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	BirthDate Date      `json:"birthDate"`
	Photo     string    `json:"photo,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Record is a single tracked activity. Fields irrelevant to the kind stay zero
// and are omitted from JSON, so each kind serialises to its own shape.
type Record struct {
	ID   string `json:"id"`
	Kind Kind   `json:"-"`
	Date Date   `json:"date"`

	// growth
	Weight float64  `json:"weight,omitempty"`
	Height *float64 `json:"height,omitempty"`

	// feeding, diaper
	Time   ClockTime `json:"time,omitempty"`
	Amount float64   `json:"amount,omitempty"`
	Type   string    `json:"type,omitempty"`

	// sleep
	StartTime ClockTime `json:"startTime,omitempty"`
	EndTime   ClockTime `json:"endTime,omitempty"`
	Duration  int       `json:"duration,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// WallTime returns the wall-clock time that orders the record within its day:
// the start time for sleep, the event time for feeding and diaper, empty for growth.
func (r Record) WallTime() ClockTime {
	if r.Kind == KindSleep || r.StartTime != "" {
		return r.StartTime
	}
	return r.Time
}

// OccurredAt combines the date and wall-clock time into a UTC instant.
func (r Record) OccurredAt() time.Time {
	at := r.Date.Time()
	if minutes := r.WallTime().Minutes(); minutes > 0 {
		at = at.Add(time.Duration(minutes) * time.Minute)
	}
	return at
}

// DiaperType returns the record type as a DiaperType.
func (r Record) DiaperType() DiaperType {
	return DiaperType(r.Type)
}

// Collections groups the four record kinds of one owner.
type Collections struct {
	Growth  []Record
	Feeding []Record
	Diaper  []Record
	Sleep   []Record
}

// Of returns the collection for kind.
func (c Collections) Of(kind Kind) []Record {
	switch kind {
	case KindGrowth:
		return c.Growth
	case KindFeeding:
		return c.Feeding
	case KindDiaper:
		return c.Diaper
	case KindSleep:
		return c.Sleep
	default:
		return nil
	}
}

// With returns a copy of c with the collection for kind replaced.
func (c Collections) With(kind Kind, items []Record) Collections {
	switch kind {
	case KindGrowth:
		c.Growth = items
	case KindFeeding:
		c.Feeding = items
	case KindDiaper:
		c.Diaper = items
	case KindSleep:
		c.Sleep = items
	}
	return c
}
