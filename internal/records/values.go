package records

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	maxIdentifierLength = 190
	dateLayout          = "2006-01-02"
	clockLayout         = "15:04"
	minutesPerDay       = 24 * 60
)

var (
	// ErrInvalidOwnerID indicates that an owner identifier is empty or exceeds storage bounds.
	ErrInvalidOwnerID = errors.New("records: invalid owner id")
	// ErrInvalidDate indicates that a calendar date could not be parsed.
	ErrInvalidDate = errors.New("records: invalid date")
	// ErrInvalidClockTime indicates that a wall-clock time could not be parsed.
	ErrInvalidClockTime = errors.New("records: invalid clock time")
	// ErrInvalidKind indicates an unknown record kind.
	ErrInvalidKind = errors.New("records: invalid record kind")
)

// OwnerID identifies the household a profile and its collections belong to.
type OwnerID string

// NewOwnerID validates raw input and returns an OwnerID.
func NewOwnerID(rawInput string) (OwnerID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidOwnerID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidOwnerID, maxIdentifierLength)
	}
	if strings.ContainsAny(trimmed, `/\`) || trimmed == "." || trimmed == ".." {
		return "", fmt.Errorf("%w: contains path characters", ErrInvalidOwnerID)
	}
	return OwnerID(trimmed), nil
}

// String returns the underlying identifier.
func (id OwnerID) String() string {
	return string(id)
}

// Kind enumerates the tracked activity collections.
type Kind string

const (
	KindGrowth  Kind = "growth"
	KindFeeding Kind = "feeding"
	KindDiaper  Kind = "diaper"
	KindSleep   Kind = "sleep"
)

// Kinds lists every record kind in display order.
func Kinds() []Kind {
	return []Kind{KindGrowth, KindFeeding, KindDiaper, KindSleep}
}

// ParseKind validates raw input and returns a Kind.
func ParseKind(rawInput string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(rawInput))) {
	case KindGrowth:
		return KindGrowth, nil
	case KindFeeding:
		return KindFeeding, nil
	case KindDiaper:
		return KindDiaper, nil
	case KindSleep:
		return KindSleep, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, rawInput)
	}
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Date is a civil calendar date formatted as YYYY-MM-DD.
type Date string

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp and keeps the date part.
func ParseDate(rawInput string) (Date, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if parsed, err := time.Parse(dateLayout, trimmed); err == nil {
		return DateOf(parsed), nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return DateOf(parsed), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, rawInput)
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// Time returns midnight UTC of the date. The zero time is returned for malformed values.
func (d Date) Time() time.Time {
	parsed, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// Valid reports whether the date parses.
func (d Date) Valid() bool {
	_, err := time.Parse(dateLayout, string(d))
	return err == nil
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// String returns the YYYY-MM-DD representation.
func (d Date) String() string {
	return string(d)
}

// ClockTime is a 24h wall-clock time formatted as HH:MM.
type ClockTime string

// ParseClockTime accepts HH:MM or HH:MM:SS and truncates to minutes.
func ParseClockTime(rawInput string) (ClockTime, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidClockTime)
	}
	if parsed, err := time.Parse(clockLayout, trimmed); err == nil {
		return ClockTime(parsed.Format(clockLayout)), nil
	}
	if parsed, err := time.Parse("15:04:05", trimmed); err == nil {
		return ClockTime(parsed.Format(clockLayout)), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidClockTime, rawInput)
}

// ClockTimeOf returns the wall-clock time of t.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Format(clockLayout))
}

// ClockTimeFromMinutes wraps minutes onto a 24h clock.
func ClockTimeFromMinutes(minutes int) ClockTime {
	wrapped := ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return ClockTime(fmt.Sprintf("%02d:%02d", wrapped/60, wrapped%60))
}

// Minutes returns minutes since midnight, or -1 for malformed values.
func (c ClockTime) Minutes() int {
	parsed, err := time.Parse(clockLayout, string(c))
	if err != nil {
		return -1
	}
	return parsed.Hour()*60 + parsed.Minute()
}

// Valid reports whether the time parses.
func (c ClockTime) Valid() bool {
	return c.Minutes() >= 0
}

// String returns the HH:MM representation.
func (c ClockTime) String() string {
	return string(c)
}
