package users

import (
	"context"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

// Owner is a household known to the tracker. Each owner holds one profile and its collections.
type Owner struct {
	ID          records.OwnerID `json:"id"`
	DisplayName string          `json:"displayName"`
	CreatedAt   time.Time       `json:"createdAt"`
	LastSeenAt  time.Time       `json:"lastSeenAt"`
}

// Repository persists the owner directory. GetOwner returns records.ErrNotFound for unknown ids.
type Repository interface {
	ListOwners(ctx context.Context) ([]Owner, error)
	GetOwner(ctx context.Context, id records.OwnerID) (Owner, error)
	SaveOwner(ctx context.Context, owner Owner) (Owner, error)
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}
