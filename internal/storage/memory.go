package storage

import (
	"context"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/users"
)

// MemoryStore keeps every owner's state in process memory. It backs the
// single-browser mode and serves as the test double for the service layer.
type MemoryStore struct {
	options     Options
	mu          sync.RWMutex
	profiles    map[records.OwnerID]records.BabyProfile
	collections map[records.OwnerID]records.Collections
	owners      map[records.OwnerID]users.Owner
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(options Options) *MemoryStore {
	return &MemoryStore{
		options:     options.withDefaults(),
		profiles:    make(map[records.OwnerID]records.BabyProfile),
		collections: make(map[records.OwnerID]records.Collections),
		owners:      make(map[records.OwnerID]users.Owner),
	}
}

func (s *MemoryStore) GetProfile(_ context.Context, owner records.OwnerID) (records.BabyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[owner]
	if !ok {
		return records.BabyProfile{}, records.ErrNotFound
	}
	return profile, nil
}

func (s *MemoryStore) PutProfile(_ context.Context, owner records.OwnerID, profile records.BabyProfile) (records.BabyProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[owner] = stampProfile(s.profiles[owner], profile, s.options.now())
	return s.profiles[owner], nil
}

func (s *MemoryStore) ListRecords(_ context.Context, owner records.OwnerID, kind records.Kind) ([]records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.collections[owner].Of(kind)), nil
}

func (s *MemoryStore) CreateRecord(_ context.Context, owner records.OwnerID, record records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.collections[owner].Of(record.Kind)
	updated, created, err := records.Upsert(items, cloneRecord(record), "", s.options.IDProvider, s.options.now())
	if err != nil {
		return records.Record{}, records.NewStorageError("memory.create_record", err)
	}
	s.collections[owner] = s.collections[owner].With(record.Kind, updated)
	return cloneRecord(created), nil
}

func (s *MemoryStore) UpdateRecord(_ context.Context, owner records.OwnerID, record records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.collections[owner].Of(record.Kind)
	if records.IndexOf(items, record.ID) < 0 {
		return records.Record{}, records.NotFound(record.Kind, record.ID)
	}
	updated, saved, err := records.Upsert(items, cloneRecord(record), record.ID, s.options.IDProvider, s.options.now())
	if err != nil {
		return records.Record{}, records.NewStorageError("memory.update_record", err)
	}
	s.collections[owner] = s.collections[owner].With(record.Kind, updated)
	return cloneRecord(saved), nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, owner records.OwnerID, kind records.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining, removed := records.Remove(s.collections[owner].Of(kind), id)
	if !removed {
		return records.NotFound(kind, id)
	}
	s.collections[owner] = s.collections[owner].With(kind, remaining)
	return nil
}

func (s *MemoryStore) ListOwners(context.Context) ([]users.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]users.Owner, 0, len(s.owners))
	for _, owner := range s.owners {
		owners = append(owners, owner)
	}
	return owners, nil
}

func (s *MemoryStore) GetOwner(_ context.Context, id records.OwnerID) (users.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[id]
	if !ok {
		return users.Owner{}, records.ErrNotFound
	}
	return owner, nil
}

func (s *MemoryStore) SaveOwner(_ context.Context, owner users.Owner) (users.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[owner.ID] = owner
	return owner, nil
}

// stampProfile keeps the creation time of an existing profile and refreshes the update time.
func stampProfile(existing, incoming records.BabyProfile, now time.Time) records.BabyProfile {
	incoming.ID = existing.ID
	incoming.CreatedAt = existing.CreatedAt
	if incoming.CreatedAt.IsZero() {
		incoming.CreatedAt = now
	}
	incoming.UpdatedAt = now
	return incoming
}

func cloneRecords(items []records.Record) []records.Record {
	cloned := make([]records.Record, len(items))
	for i, item := range items {
		cloned[i] = cloneRecord(item)
	}
	return cloned
}

// cloneRecord detaches the optional fields so callers never share memory with the store.
func cloneRecord(record records.Record) records.Record {
	if record.Height != nil {
		height := *record.Height
		record.Height = &height
	}
	return record
}
