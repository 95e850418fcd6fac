package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/users"
)

const (
	profileFileName = "baby.json"
	ownersFileName  = "owners.json"
	filePermissions = 0o644
	dirPermissions  = 0o755
)

// FileStore keeps one indented JSON document per owner and record kind under a root directory.
type FileStore struct {
	options Options
	root    string
	mu      sync.Mutex
}

// NewFileStore prepares the root directory and returns the store.
func NewFileStore(root string, options Options) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: file store directory is required")
	}
	if err := os.MkdirAll(root, dirPermissions); err != nil {
		return nil, records.NewStorageError("file.init", err)
	}
	return &FileStore{options: options.withDefaults(), root: root}, nil
}

func (s *FileStore) GetProfile(_ context.Context, owner records.OwnerID) (records.BabyProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var profile records.BabyProfile
	found, err := readJSON(s.profilePath(owner), &profile)
	if err != nil {
		return records.BabyProfile{}, records.NewStorageError("file.get_profile", err)
	}
	if !found {
		return records.BabyProfile{}, records.ErrNotFound
	}
	return profile, nil
}

func (s *FileStore) PutProfile(_ context.Context, owner records.OwnerID, profile records.BabyProfile) (records.BabyProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var existing records.BabyProfile
	if _, err := readJSON(s.profilePath(owner), &existing); err != nil {
		return records.BabyProfile{}, records.NewStorageError("file.put_profile", err)
	}
	stamped := stampProfile(existing, profile, s.options.now())
	if err := writeJSON(s.profilePath(owner), stamped); err != nil {
		return records.BabyProfile{}, records.NewStorageError("file.put_profile", err)
	}
	return stamped, nil
}

func (s *FileStore) ListRecords(_ context.Context, owner records.OwnerID, kind records.Kind) ([]records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.readCollection(owner, kind)
	if err != nil {
		return nil, records.NewStorageError("file.list_records", err)
	}
	return items, nil
}

func (s *FileStore) CreateRecord(_ context.Context, owner records.OwnerID, record records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.readCollection(owner, record.Kind)
	if err != nil {
		return records.Record{}, records.NewStorageError("file.create_record", err)
	}
	updated, created, err := records.Upsert(items, record, "", s.options.IDProvider, s.options.now())
	if err != nil {
		return records.Record{}, records.NewStorageError("file.create_record", err)
	}
	if err := writeJSON(s.collectionPath(owner, record.Kind), updated); err != nil {
		return records.Record{}, records.NewStorageError("file.create_record", err)
	}
	return created, nil
}

func (s *FileStore) UpdateRecord(_ context.Context, owner records.OwnerID, record records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.readCollection(owner, record.Kind)
	if err != nil {
		return records.Record{}, records.NewStorageError("file.update_record", err)
	}
	if records.IndexOf(items, record.ID) < 0 {
		return records.Record{}, records.NotFound(record.Kind, record.ID)
	}
	updated, saved, err := records.Upsert(items, record, record.ID, s.options.IDProvider, s.options.now())
	if err != nil {
		return records.Record{}, records.NewStorageError("file.update_record", err)
	}
	if err := writeJSON(s.collectionPath(owner, record.Kind), updated); err != nil {
		return records.Record{}, records.NewStorageError("file.update_record", err)
	}
	return saved, nil
}

func (s *FileStore) DeleteRecord(_ context.Context, owner records.OwnerID, kind records.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.readCollection(owner, kind)
	if err != nil {
		return records.NewStorageError("file.delete_record", err)
	}
	remaining, removed := records.Remove(items, id)
	if !removed {
		return records.NotFound(kind, id)
	}
	if err := writeJSON(s.collectionPath(owner, kind), remaining); err != nil {
		return records.NewStorageError("file.delete_record", err)
	}
	return nil
}

func (s *FileStore) ListOwners(context.Context) ([]users.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners, err := s.readOwners()
	if err != nil {
		return nil, records.NewStorageError("file.list_owners", err)
	}
	return owners, nil
}

func (s *FileStore) GetOwner(_ context.Context, id records.OwnerID) (users.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners, err := s.readOwners()
	if err != nil {
		return users.Owner{}, records.NewStorageError("file.get_owner", err)
	}
	for _, owner := range owners {
		if owner.ID == id {
			return owner, nil
		}
	}
	return users.Owner{}, records.ErrNotFound
}

func (s *FileStore) SaveOwner(_ context.Context, owner users.Owner) (users.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners, err := s.readOwners()
	if err != nil {
		return users.Owner{}, records.NewStorageError("file.save_owner", err)
	}
	replaced := false
	for index := range owners {
		if owners[index].ID == owner.ID {
			owners[index] = owner
			replaced = true
		}
	}
	if !replaced {
		owners = append(owners, owner)
	}
	if err := writeJSON(filepath.Join(s.root, ownersFileName), owners); err != nil {
		return users.Owner{}, records.NewStorageError("file.save_owner", err)
	}
	return owner, nil
}

func (s *FileStore) profilePath(owner records.OwnerID) string {
	return filepath.Join(s.root, owner.String(), profileFileName)
}

func (s *FileStore) collectionPath(owner records.OwnerID, kind records.Kind) string {
	return filepath.Join(s.root, owner.String(), string(kind)+".json")
}

func (s *FileStore) readCollection(owner records.OwnerID, kind records.Kind) ([]records.Record, error) {
	items := []records.Record{}
	if _, err := readJSON(s.collectionPath(owner, kind), &items); err != nil {
		return nil, err
	}
	for index := range items {
		items[index].Kind = kind
	}
	return items, nil
}

func (s *FileStore) readOwners() ([]users.Owner, error) {
	owners := []users.Owner{}
	if _, err := readJSON(filepath.Join(s.root, ownersFileName), &owners); err != nil {
		return nil, err
	}
	return owners, nil
}

// readJSON decodes path into target. A missing file reports found=false and leaves target untouched.
func readJSON(path string, target any) (bool, error) {
	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// writeJSON replaces path atomically through a temporary file in the same directory.
func writeJSON(path string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return err
	}
	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tempPath := temp.Name()
	defer func() {
		_ = os.Remove(tempPath)
	}()
	if _, err := temp.Write(payload); err != nil {
		_ = temp.Close()
		return err
	}
	if err := temp.Sync(); err != nil {
		_ = temp.Close()
		return err
	}
	if err := temp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tempPath, filePermissions); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}
