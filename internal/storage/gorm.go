package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/users"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRow stores one baby profile per owner.
type ProfileRow struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;size:190;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;size:320;not null"`
	BirthDate string    `gorm:"column:birth_date;size:10;not null"`
	Photo     string    `gorm:"column:photo;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName exposes the table backing baby profiles.
func (ProfileRow) TableName() string {
	return "baby_profiles"
}

// EntryBase holds the columns shared by every record table.
type EntryBase struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;size:190;not null;index"`
	Date      string    `gorm:"column:date;size:32;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// GrowthRow stores a growth measurement.
type GrowthRow struct {
	EntryBase
	Weight float64  `gorm:"column:weight;not null"`
	Height *float64 `gorm:"column:height"`
}

// TableName exposes the table backing growth entries.
func (GrowthRow) TableName() string { return "growth_entries" }

func (r GrowthRow) record() records.Record {
	record := r.EntryBase.record(records.KindGrowth)
	record.Weight = r.Weight
	record.Height = r.Height
	return record
}

// FeedingRow stores a feeding.
type FeedingRow struct {
	EntryBase
	Time   string  `gorm:"column:time;size:5;not null"`
	Amount float64 `gorm:"column:amount;not null"`
	Type   string  `gorm:"column:type;size:16;not null"`
}

// TableName exposes the table backing feeding entries.
func (FeedingRow) TableName() string { return "feeding_entries" }

func (r FeedingRow) record() records.Record {
	record := r.EntryBase.record(records.KindFeeding)
	record.Time = records.ClockTime(r.Time)
	record.Amount = r.Amount
	record.Type = r.Type
	return record
}

// DiaperRow stores a diaper change.
type DiaperRow struct {
	EntryBase
	Time string `gorm:"column:time;size:5;not null"`
	Type string `gorm:"column:type;size:16;not null"`
}

// TableName exposes the table backing diaper entries.
func (DiaperRow) TableName() string { return "diaper_entries" }

func (r DiaperRow) record() records.Record {
	record := r.EntryBase.record(records.KindDiaper)
	record.Time = records.ClockTime(r.Time)
	record.Type = r.Type
	return record
}

// SleepRow stores a sleep session.
type SleepRow struct {
	EntryBase
	StartTime string `gorm:"column:start_time;size:5;not null"`
	EndTime   string `gorm:"column:end_time;size:5;not null"`
	Duration  int    `gorm:"column:duration;not null"`
}

// TableName exposes the table backing sleep entries.
func (SleepRow) TableName() string { return "sleep_entries" }

func (r SleepRow) record() records.Record {
	record := r.EntryBase.record(records.KindSleep)
	record.StartTime = records.ClockTime(r.StartTime)
	record.EndTime = records.ClockTime(r.EndTime)
	record.Duration = r.Duration
	return record
}

// OwnerRow stores an owner directory entry.
type OwnerRow struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null"`
	DisplayName string    `gorm:"column:display_name;size:320"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at"`
}

// TableName exposes the table backing the owner directory.
func (OwnerRow) TableName() string {
	return "owners"
}

// Models lists the row types the relational store needs migrated.
func Models() []any {
	return []any{&ProfileRow{}, &GrowthRow{}, &FeedingRow{}, &DiaperRow{}, &SleepRow{}, &OwnerRow{}}
}

func (b EntryBase) record(kind records.Kind) records.Record {
	return records.Record{
		ID:        strconv.FormatUint(uint64(b.ID), 10),
		Kind:      kind,
		Date:      records.Date(b.Date),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type entryRow interface {
	TableName() string
	record() records.Record
}

// GormStore persists records in SQLite or PostgreSQL through gorm. Record ids are the
// autoincrement keys rendered as decimal strings.
type GormStore struct {
	db      *gorm.DB
	options Options
}

// NewGormStore wraps a migrated database handle.
func NewGormStore(db *gorm.DB, options Options) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("storage: database handle is required")
	}
	return &GormStore{db: db, options: options.withDefaults()}, nil
}

func (s *GormStore) GetProfile(ctx context.Context, owner records.OwnerID) (records.BabyProfile, error) {
	var row ProfileRow
	err := s.db.WithContext(ctx).Where("user_id = ?", owner.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return records.BabyProfile{}, records.ErrNotFound
	}
	if err != nil {
		return records.BabyProfile{}, records.NewStorageError("gorm.get_profile", err)
	}
	return profileFromRow(row), nil
}

func (s *GormStore) PutProfile(ctx context.Context, owner records.OwnerID, profile records.BabyProfile) (records.BabyProfile, error) {
	now := s.options.now()
	var row ProfileRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookupErr := tx.Where("user_id = ?", owner.String()).Take(&row).Error
		if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return lookupErr
		}
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			row = ProfileRow{UserID: owner.String(), CreatedAt: now}
		}
		row.Name = profile.Name
		row.BirthDate = profile.BirthDate.String()
		row.Photo = profile.Photo
		row.UpdatedAt = now
		return tx.Save(&row).Error
	})
	if err != nil {
		return records.BabyProfile{}, records.NewStorageError("gorm.put_profile", err)
	}
	return profileFromRow(row), nil
}

func (s *GormStore) ListRecords(ctx context.Context, owner records.OwnerID, kind records.Kind) ([]records.Record, error) {
	db := s.db.WithContext(ctx)
	var (
		items []records.Record
		err   error
	)
	switch kind {
	case records.KindGrowth:
		items, err = listEntries[GrowthRow](db, owner)
	case records.KindFeeding:
		items, err = listEntries[FeedingRow](db, owner)
	case records.KindDiaper:
		items, err = listEntries[DiaperRow](db, owner)
	case records.KindSleep:
		items, err = listEntries[SleepRow](db, owner)
	default:
		return nil, fmt.Errorf("%w: %q", records.ErrInvalidKind, kind)
	}
	if err != nil {
		return nil, records.NewStorageError("gorm.list_records", err)
	}
	return items, nil
}

func (s *GormStore) CreateRecord(ctx context.Context, owner records.OwnerID, record records.Record) (records.Record, error) {
	now := s.options.now()
	base := EntryBase{UserID: owner.String(), Date: record.Date.String(), CreatedAt: now, UpdatedAt: now}
	row, err := rowFor(base, record)
	if err != nil {
		return records.Record{}, err
	}
	created, err := saveEntry(s.db.WithContext(ctx), row)
	if err != nil {
		return records.Record{}, records.NewStorageError("gorm.create_record", err)
	}
	return created, nil
}

func (s *GormStore) UpdateRecord(ctx context.Context, owner records.OwnerID, record records.Record) (records.Record, error) {
	table := tableFor(record.Kind)
	if table == "" {
		return records.Record{}, fmt.Errorf("%w: %q", records.ErrInvalidKind, record.Kind)
	}
	id, ok := parseRowID(record.ID)
	if !ok {
		return records.Record{}, records.NotFound(record.Kind, record.ID)
	}

	var saved records.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing EntryBase
		lookupErr := tx.Table(table).
			Where("id = ? AND user_id = ?", id, owner.String()).
			Take(&existing).Error
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return records.NotFound(record.Kind, record.ID)
		}
		if lookupErr != nil {
			return lookupErr
		}
		existing.Date = record.Date.String()
		existing.UpdatedAt = s.options.now()
		row, err := rowFor(existing, record)
		if err != nil {
			return err
		}
		saved, err = saveEntry(tx, row)
		return err
	})
	if err != nil {
		return records.Record{}, records.NewStorageError("gorm.update_record", err)
	}
	return saved, nil
}

func (s *GormStore) DeleteRecord(ctx context.Context, owner records.OwnerID, kind records.Kind, id string) error {
	rowID, ok := parseRowID(id)
	if !ok {
		return records.NotFound(kind, id)
	}
	table := tableFor(kind)
	if table == "" {
		return fmt.Errorf("%w: %q", records.ErrInvalidKind, kind)
	}
	result := s.db.WithContext(ctx).
		Table(table).
		Where("id = ? AND user_id = ?", rowID, owner.String()).
		Delete(&EntryBase{})
	if result.Error != nil {
		return records.NewStorageError("gorm.delete_record", result.Error)
	}
	if result.RowsAffected == 0 {
		return records.NotFound(kind, id)
	}
	return nil
}

func (s *GormStore) ListOwners(ctx context.Context) ([]users.Owner, error) {
	var rows []OwnerRow
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, records.NewStorageError("gorm.list_owners", err)
	}
	owners := make([]users.Owner, 0, len(rows))
	for _, row := range rows {
		owners = append(owners, ownerFromRow(row))
	}
	return owners, nil
}

func (s *GormStore) GetOwner(ctx context.Context, id records.OwnerID) (users.Owner, error) {
	var row OwnerRow
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return users.Owner{}, records.ErrNotFound
	}
	if err != nil {
		return users.Owner{}, records.NewStorageError("gorm.get_owner", err)
	}
	return ownerFromRow(row), nil
}

func (s *GormStore) SaveOwner(ctx context.Context, owner users.Owner) (users.Owner, error) {
	row := OwnerRow{
		ID:          owner.ID.String(),
		DisplayName: owner.DisplayName,
		CreatedAt:   owner.CreatedAt,
		LastSeenAt:  owner.LastSeenAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "last_seen_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return users.Owner{}, records.NewStorageError("gorm.save_owner", err)
	}
	return owner, nil
}

func listEntries[T entryRow](db *gorm.DB, owner records.OwnerID) ([]records.Record, error) {
	var rows []T
	if err := db.Where("user_id = ?", owner.String()).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]records.Record, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.record())
	}
	return items, nil
}

func saveEntry(db *gorm.DB, row entryRow) (records.Record, error) {
	var err error
	switch typed := row.(type) {
	case GrowthRow:
		err = db.Save(&typed).Error
		row = typed
	case FeedingRow:
		err = db.Save(&typed).Error
		row = typed
	case DiaperRow:
		err = db.Save(&typed).Error
		row = typed
	case SleepRow:
		err = db.Save(&typed).Error
		row = typed
	default:
		err = fmt.Errorf("unsupported row %T", row)
	}
	if err != nil {
		return records.Record{}, err
	}
	return row.record(), nil
}

func rowFor(base EntryBase, record records.Record) (entryRow, error) {
	switch record.Kind {
	case records.KindGrowth:
		return GrowthRow{EntryBase: base, Weight: record.Weight, Height: record.Height}, nil
	case records.KindFeeding:
		return FeedingRow{EntryBase: base, Time: record.Time.String(), Amount: record.Amount, Type: record.Type}, nil
	case records.KindDiaper:
		return DiaperRow{EntryBase: base, Time: record.Time.String(), Type: record.Type}, nil
	case records.KindSleep:
		return SleepRow{EntryBase: base, StartTime: record.StartTime.String(), EndTime: record.EndTime.String(), Duration: record.Duration}, nil
	default:
		return nil, fmt.Errorf("%w: %q", records.ErrInvalidKind, record.Kind)
	}
}

func tableFor(kind records.Kind) string {
	switch kind {
	case records.KindGrowth:
		return GrowthRow{}.TableName()
	case records.KindFeeding:
		return FeedingRow{}.TableName()
	case records.KindDiaper:
		return DiaperRow{}.TableName()
	case records.KindSleep:
		return SleepRow{}.TableName()
	default:
		return ""
	}
}

func parseRowID(id string) (uint, bool) {
	parsed, err := strconv.ParseUint(id, 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

func profileFromRow(row ProfileRow) records.BabyProfile {
	return records.BabyProfile{
		ID:        strconv.FormatUint(uint64(row.ID), 10),
		Name:      row.Name,
		BirthDate: records.Date(row.BirthDate),
		Photo:     row.Photo,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func ownerFromRow(row OwnerRow) users.Owner {
	return users.Owner{
		ID:          records.OwnerID(row.ID),
		DisplayName: row.DisplayName,
		CreatedAt:   row.CreatedAt,
		LastSeenAt:  row.LastSeenAt,
	}
}
