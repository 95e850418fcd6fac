package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/insights"
	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationTruncateTimestampDates = "2024-03-01_truncate_timestamp_dates"
	migrationRecomputeSleepDuration = "2024-03-02_recompute_sleep_duration"
	dateLength                      = 10
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationTruncateTimestampDates, apply: truncateTimestampDates},
		{name: migrationRecomputeSleepDuration, apply: recomputeSleepDuration},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// truncateTimestampDates reduces ISO timestamps stored in date columns to their calendar date.
func truncateTimestampDates(db *gorm.DB) error {
	tables := []string{
		storage.GrowthRow{}.TableName(),
		storage.FeedingRow{}.TableName(),
		storage.DiaperRow{}.TableName(),
		storage.SleepRow{}.TableName(),
	}
	for _, table := range tables {
		err := db.Table(table).
			Where("LENGTH(date) > ?", dateLength).
			Update("date", gorm.Expr("SUBSTR(date, 1, ?)", dateLength)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// recomputeSleepDuration rewrites durations that disagree with the session's clock times.
func recomputeSleepDuration(db *gorm.DB) error {
	var rows []storage.SleepRow
	if err := db.Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		start := records.ClockTime(row.StartTime)
		end := records.ClockTime(row.EndTime)
		if !start.Valid() || !end.Valid() {
			continue
		}
		duration := insights.ComputeSleepDuration(start, end)
		if duration == row.Duration {
			continue
		}
		err := db.Model(&storage.SleepRow{}).
			Where("id = ?", row.ID).
			Update("duration", duration).Error
		if err != nil {
			return err
		}
	}
	return nil
}
