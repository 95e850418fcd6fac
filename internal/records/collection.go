package records

import (
	"sort"
	"time"
)

// IndexOf returns the position of the record with id, or -1.
func IndexOf(items []Record, id string) int {
	if id == "" {
		return -1
	}
	for index := range items {
		if items[index].ID == id {
			return index
		}
	}
	return -1
}

// Upsert replaces the record named by editingID in place, keeping its position and
// creation time, or appends incoming under a freshly minted id when editingID does
// not match. The input slice is not modified.
func Upsert(items []Record, incoming Record, editingID string, ids IDProvider, now time.Time) ([]Record, Record, error) {
	updated := make([]Record, len(items), len(items)+1)
	copy(updated, items)

	if index := IndexOf(items, editingID); index >= 0 {
		incoming.ID = items[index].ID
		incoming.CreatedAt = items[index].CreatedAt
		if incoming.CreatedAt.IsZero() {
			incoming.CreatedAt = now
		}
		incoming.UpdatedAt = now
		updated[index] = incoming
		return updated, incoming, nil
	}

	id, err := ids.NewID()
	if err != nil {
		return items, Record{}, err
	}
	incoming.ID = id
	incoming.CreatedAt = now
	incoming.UpdatedAt = now
	return append(updated, incoming), incoming, nil
}

// Remove drops every record whose id matches. Removing an unknown id is a no-op.
func Remove(items []Record, id string) ([]Record, bool) {
	filtered := make([]Record, 0, len(items))
	removed := false
	for _, item := range items {
		if item.ID == id {
			removed = true
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, removed
}

// SortForDisplay returns a copy ordered newest first: date descending, then
// wall-clock time descending.
func SortForDisplay(items []Record) []Record {
	sorted := make([]Record, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[j].Date.Before(sorted[i].Date)
		}
		return sorted[i].WallTime().Minutes() > sorted[j].WallTime().Minutes()
	})
	return sorted
}

// SortChronological returns a copy ordered oldest first by date and wall-clock time.
func SortChronological(items []Record) []Record {
	sorted := make([]Record, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt().Before(sorted[j].OccurredAt())
	})
	return sorted
}

// Latest returns the first record in display order.
func Latest(items []Record) (Record, bool) {
	if len(items) == 0 {
		return Record{}, false
	}
	return SortForDisplay(items)[0], true
}

// OnDate returns the records whose date equals day exactly.
func OnDate(items []Record, day Date) []Record {
	matched := make([]Record, 0, len(items))
	for _, item := range items {
		if item.Date == day {
			matched = append(matched, item)
		}
	}
	return matched
}
