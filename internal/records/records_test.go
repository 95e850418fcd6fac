package records

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type sequenceIDs struct {
	next int
}

func (s *sequenceIDs) NewID() (string, error) {
	s.next++
	return fmt.Sprintf("id-%d", s.next), nil
}

type failingIDs struct{}

func (failingIDs) NewID() (string, error) {
	return "", errors.New("exhausted ids")
}

func TestUpsertWithMatchingEditingIDReplacesInPlace(t *testing.T) {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	items := []Record{
		{ID: "a", Kind: KindFeeding, Date: "2024-01-01", Time: "08:00", Amount: 3, CreatedAt: created},
		{ID: "b", Kind: KindFeeding, Date: "2024-01-01", Time: "11:00", Amount: 4, CreatedAt: created},
	}
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	updated, stored, err := Upsert(items, Record{Kind: KindFeeding, Date: "2024-01-01", Time: "08:30", Amount: 5}, "a", &sequenceIDs{}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated) != len(items) {
		t.Fatalf("expected length %d, got %d", len(items), len(updated))
	}
	if updated[0].ID != "a" || updated[0].Amount != 5 {
		t.Fatalf("expected record a replaced at index 0, got %#v", updated[0])
	}
	if !stored.CreatedAt.Equal(created) {
		t.Fatalf("expected creation time preserved, got %v", stored.CreatedAt)
	}
	if !stored.UpdatedAt.Equal(now) {
		t.Fatalf("expected update time refreshed, got %v", stored.UpdatedAt)
	}
	if items[0].Amount != 3 {
		t.Fatalf("input slice must not be modified")
	}
}

func TestUpsertWithoutMatchAppendsWithMintedID(t *testing.T) {
	items := []Record{{ID: "a", Kind: KindDiaper, Date: "2024-01-01", Time: "08:00", Type: "pee"}}
	for _, editingID := range []string{"", "missing"} {
		t.Run(fmt.Sprintf("editing=%q", editingID), func(t *testing.T) {
			updated, stored, err := Upsert(items, Record{Kind: KindDiaper, Date: "2024-01-01", Time: "09:00", Type: "poo"}, editingID, &sequenceIDs{}, time.Unix(10, 0))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(updated) != len(items)+1 {
				t.Fatalf("expected length to grow by one, got %d", len(updated))
			}
			if stored.ID != "id-1" {
				t.Fatalf("expected minted id, got %q", stored.ID)
			}
			if updated[len(updated)-1].ID != stored.ID {
				t.Fatalf("expected new record appended last")
			}
		})
	}
}

func TestUpsertReportsIDFailureWithoutChange(t *testing.T) {
	items := []Record{{ID: "a"}}
	updated, _, err := Upsert(items, Record{}, "", failingIDs{}, time.Unix(1, 0))
	if err == nil {
		t.Fatalf("expected id failure")
	}
	if len(updated) != 1 {
		t.Fatalf("expected collection unchanged, got %d", len(updated))
	}
}

func TestRemove(t *testing.T) {
	items := []Record{{ID: "a"}, {ID: "b"}}

	filtered, removed := Remove(items, "missing")
	if removed || len(filtered) != 2 {
		t.Fatalf("expected no-op removal, got removed=%v len=%d", removed, len(filtered))
	}

	filtered, removed = Remove(items, "a")
	if !removed || len(filtered) != 1 || filtered[0].ID != "b" {
		t.Fatalf("unexpected removal result: %v %#v", removed, filtered)
	}
}

func TestSortForDisplayOrdersNewestFirstWithoutMutating(t *testing.T) {
	items := []Record{
		{ID: "old", Kind: KindFeeding, Date: "2024-01-01", Time: "23:00"},
		{ID: "early", Kind: KindFeeding, Date: "2024-01-02", Time: "06:00"},
		{ID: "late", Kind: KindFeeding, Date: "2024-01-02", Time: "18:30"},
	}
	sorted := SortForDisplay(items)
	expected := []string{"late", "early", "old"}
	for index, id := range expected {
		if sorted[index].ID != id {
			t.Fatalf("expected %s at %d, got %s", id, index, sorted[index].ID)
		}
	}
	if items[0].ID != "old" {
		t.Fatalf("input order must be preserved")
	}
}

func TestLatestGrowthByDate(t *testing.T) {
	items := []Record{
		{ID: "jan", Kind: KindGrowth, Date: "2024-01-01", Weight: 3.5},
		{ID: "feb", Kind: KindGrowth, Date: "2024-02-01", Weight: 4.2},
	}
	latest, ok := Latest(items)
	if !ok || latest.ID != "feb" {
		t.Fatalf("expected feb entry, got %#v", latest)
	}
	if _, ok := Latest(nil); ok {
		t.Fatalf("expected no latest record for empty collection")
	}
}

func TestValidateSleepRejectsZeroDuration(t *testing.T) {
	record := Record{Date: "2024-01-01", StartTime: "22:00", EndTime: "22:00"}
	err := Validate(KindSleep, &record)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "endTime" {
		t.Fatalf("expected endTime field, got %v", err)
	}
}

func TestValidateRecords(t *testing.T) {
	negative := -1.0
	testCases := []struct {
		name      string
		kind      Kind
		record    Record
		wantField string
	}{
		{name: "growth-ok", kind: KindGrowth, record: Record{Date: "2024-01-01", Weight: 3.5}},
		{name: "growth-weight", kind: KindGrowth, record: Record{Date: "2024-01-01"}, wantField: "weight"},
		{name: "growth-height", kind: KindGrowth, record: Record{Date: "2024-01-01", Weight: 3, Height: &negative}, wantField: "height"},
		{name: "missing-date", kind: KindGrowth, record: Record{Weight: 3}, wantField: "date"},
		{name: "feeding-ok", kind: KindFeeding, record: Record{Date: "2024-01-01", Time: "08:00", Amount: 4}},
		{name: "feeding-amount", kind: KindFeeding, record: Record{Date: "2024-01-01", Time: "08:00"}, wantField: "amount"},
		{name: "feeding-type", kind: KindFeeding, record: Record{Date: "2024-01-01", Time: "08:00", Amount: 2, Type: "juice"}, wantField: "type"},
		{name: "diaper-type", kind: KindDiaper, record: Record{Date: "2024-01-01", Time: "08:00", Type: "other"}, wantField: "type"},
		{name: "diaper-time", kind: KindDiaper, record: Record{Date: "2024-01-01", Time: "25:00", Type: "pee"}, wantField: "time"},
		{name: "sleep-ok", kind: KindSleep, record: Record{Date: "2024-01-01", StartTime: "22:00", EndTime: "06:00"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			record := testCase.record
			err := Validate(testCase.kind, &record)
			if testCase.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if record.Kind != testCase.kind {
					t.Fatalf("expected kind to be set")
				}
				return
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if validationErr.Field != testCase.wantField {
				t.Fatalf("expected field %s, got %s", testCase.wantField, validationErr.Field)
			}
		})
	}
}

func TestValidateFeedingDefaultsToBottle(t *testing.T) {
	record := Record{Date: "2024-03-05T10:00:00Z", Time: "08:15:42", Amount: 4}
	if err := Validate(KindFeeding, &record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Type != string(FeedingBottle) {
		t.Fatalf("expected bottle default, got %q", record.Type)
	}
	if record.Date != "2024-03-05" || record.Time != "08:15" {
		t.Fatalf("expected normalised date and time, got %s %s", record.Date, record.Time)
	}
}

func TestValidateProfileRejectsFutureBirthDate(t *testing.T) {
	profile := BabyProfile{Name: " Tommy ", BirthDate: "2030-01-01"}
	if err := ValidateProfile(&profile, "2024-01-01"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	profile = BabyProfile{Name: " Tommy ", BirthDate: "2023-08-01"}
	if err := ValidateProfile(&profile, "2024-01-01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Name != "Tommy" {
		t.Fatalf("expected trimmed name, got %q", profile.Name)
	}
}

func TestNewOwnerIDRejectsPathCharacters(t *testing.T) {
	for _, raw := range []string{"", "  ", "../etc", "a/b", ".."} {
		if _, err := NewOwnerID(raw); !errors.Is(err, ErrInvalidOwnerID) {
			t.Fatalf("expected invalid owner id for %q, got %v", raw, err)
		}
	}
	owner, err := NewOwnerID(" 2 ")
	if err != nil || owner != "2" {
		t.Fatalf("expected trimmed owner id, got %q %v", owner, err)
	}
}

func TestClockTimeFromMinutesWraps(t *testing.T) {
	testCases := map[int]ClockTime{
		0:    "00:00",
		90:   "01:30",
		1440: "00:00",
		1500: "01:00",
		-30:  "23:30",
	}
	for minutes, want := range testCases {
		if got := ClockTimeFromMinutes(minutes); got != want {
			t.Fatalf("minutes %d: expected %s, got %s", minutes, want, got)
		}
	}
}
