package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"go.uber.org/zap"
)

// ErrInvalidOwner indicates the supplied owner identifier is unusable.
var ErrInvalidOwner = errors.New("users: invalid owner")

// ServiceConfig describes the dependencies required for owner resolution.
type ServiceConfig struct {
	Repository Repository
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service maintains the owner directory and registers owners on first access.
type Service struct {
	repository Repository
	now        func() time.Time
	logger     *zap.Logger
	cache      sync.Map
}

// NewService constructs the owner service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("users: repository required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repository: cfg.Repository,
		now:        clock,
		logger:     logger,
		cache:      sync.Map{},
	}, nil
}

// Resolve validates the raw owner id and registers the owner when it has not been seen before.
func (s *Service) Resolve(ctx context.Context, rawOwnerID string) (records.OwnerID, error) {
	ownerID, err := records.NewOwnerID(rawOwnerID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOwner, err)
	}
	if _, ok := s.cache.Load(ownerID); ok {
		return ownerID, nil
	}

	owner, err := s.repository.GetOwner(ctx, ownerID)
	switch {
	case errors.Is(err, records.ErrNotFound):
		timestamp := s.now().UTC()
		owner = Owner{ID: ownerID, DisplayName: ownerID.String(), CreatedAt: timestamp, LastSeenAt: timestamp}
		if _, err := s.repository.SaveOwner(ctx, owner); err != nil {
			return "", err
		}
		s.logger.Info("owner registered", zap.String("owner_id", ownerID.String()))
	case err != nil:
		return "", err
	default:
		owner.LastSeenAt = s.now().UTC()
		if _, err := s.repository.SaveOwner(ctx, owner); err != nil {
			s.logger.Warn("owner last seen update failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
		}
	}

	s.cache.Store(ownerID, struct{}{})
	return ownerID, nil
}

// Register creates an owner or renames an existing one.
func (s *Service) Register(ctx context.Context, rawOwnerID string, displayName string) (Owner, error) {
	ownerID, err := records.NewOwnerID(rawOwnerID)
	if err != nil {
		return Owner{}, fmt.Errorf("%w: %v", ErrInvalidOwner, err)
	}
	name := normalize(displayName)
	if name == "" {
		name = ownerID.String()
	}

	timestamp := s.now().UTC()
	owner, err := s.repository.GetOwner(ctx, ownerID)
	if errors.Is(err, records.ErrNotFound) {
		owner = Owner{ID: ownerID, CreatedAt: timestamp}
	} else if err != nil {
		return Owner{}, err
	}
	owner.DisplayName = name
	owner.LastSeenAt = timestamp

	saved, err := s.repository.SaveOwner(ctx, owner)
	if err != nil {
		return Owner{}, err
	}
	s.cache.Store(ownerID, struct{}{})
	return saved, nil
}

// List returns every owner ordered by registration time.
func (s *Service) List(ctx context.Context) ([]Owner, error) {
	owners, err := s.repository.ListOwners(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(owners, func(i, j int) bool {
		if !owners[i].CreatedAt.Equal(owners[j].CreatedAt) {
			return owners[i].CreatedAt.Before(owners[j].CreatedAt)
		}
		return owners[i].ID < owners[j].ID
	})
	return owners, nil
}

// Seed registers each owner id that does not exist yet.
func (s *Service) Seed(ctx context.Context, rawOwnerIDs ...string) error {
	for _, rawOwnerID := range rawOwnerIDs {
		if _, err := s.Resolve(ctx, rawOwnerID); err != nil {
			return err
		}
	}
	return nil
}
