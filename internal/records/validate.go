package records

import (
	"math"
	"strings"
)

// Validate normalises r for kind in place and reports the first invalid field.
// Sleep duration is left to the caller, which derives it from the clock times.
func Validate(kind Kind, r *Record) error {
	if _, err := ParseKind(kind.String()); err != nil {
		return invalid("kind", "unknown record kind")
	}
	r.Kind = kind

	date, err := ParseDate(r.Date.String())
	if err != nil {
		return invalid("date", "a valid date is required")
	}
	r.Date = date

	switch kind {
	case KindGrowth:
		return validateGrowth(r)
	case KindFeeding:
		return validateFeeding(r)
	case KindDiaper:
		return validateDiaper(r)
	default:
		return validateSleep(r)
	}
}

func validateGrowth(r *Record) error {
	if !positive(r.Weight) {
		return invalid("weight", "must be a positive number")
	}
	if r.Height != nil && !positive(*r.Height) {
		return invalid("height", "must be a positive number when present")
	}
	r.Time, r.Amount, r.Type = "", 0, ""
	r.StartTime, r.EndTime, r.Duration = "", "", 0
	return nil
}

func validateFeeding(r *Record) error {
	clock, err := ParseClockTime(r.Time.String())
	if err != nil {
		return invalid("time", "a valid time is required")
	}
	r.Time = clock
	if !positive(r.Amount) {
		return invalid("amount", "must be a positive number")
	}
	feedingType := FeedingType(strings.ToLower(strings.TrimSpace(r.Type)))
	switch feedingType {
	case "":
		feedingType = FeedingBottle
	case FeedingBottle, FeedingBreast, FeedingFormula, FeedingSolid:
	default:
		return invalid("type", "unknown feeding type")
	}
	r.Type = string(feedingType)
	r.Weight, r.Height = 0, nil
	r.StartTime, r.EndTime, r.Duration = "", "", 0
	return nil
}

func validateDiaper(r *Record) error {
	clock, err := ParseClockTime(r.Time.String())
	if err != nil {
		return invalid("time", "a valid time is required")
	}
	r.Time = clock
	diaperType := DiaperType(strings.ToLower(strings.TrimSpace(r.Type)))
	switch diaperType {
	case DiaperPee, DiaperPoo, DiaperBoth:
	default:
		return invalid("type", "must be pee, poo or both")
	}
	r.Type = string(diaperType)
	r.Weight, r.Height, r.Amount = 0, nil, 0
	r.StartTime, r.EndTime, r.Duration = "", "", 0
	return nil
}

func validateSleep(r *Record) error {
	start, err := ParseClockTime(r.StartTime.String())
	if err != nil {
		return invalid("startTime", "a valid start time is required")
	}
	end, err := ParseClockTime(r.EndTime.String())
	if err != nil {
		return invalid("endTime", "a valid end time is required")
	}
	if start == end {
		return invalid("endTime", "zero-duration sleep session")
	}
	r.StartTime, r.EndTime = start, end
	r.Weight, r.Height, r.Amount, r.Type, r.Time = 0, nil, 0, "", ""
	return nil
}

// ValidateProfile normalises p and rejects birth dates after today.
func ValidateProfile(p *BabyProfile, today Date) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return invalid("name", "is required")
	}
	birth, err := ParseDate(p.BirthDate.String())
	if err != nil {
		return invalid("birthDate", "a valid date is required")
	}
	if today.Valid() && today.Before(birth) {
		return invalid("birthDate", "cannot be in the future")
	}
	p.BirthDate = birth
	p.Photo = strings.TrimSpace(p.Photo)
	return nil
}

func positive(value float64) bool {
	return value > 0 && !math.IsInf(value, 0) && !math.IsNaN(value)
}
