// Package tracker orchestrates record storage, validation and the derived views
// for one household at a time.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/insights"
	"github.com/MarcoPoloResearchLab/babytracker/internal/photos"
	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/report"
	"go.uber.org/zap"
)

const defaultBabyName = "Baby"

var (
	errMissingStore = errors.New("record store is required")
	errInvalidSleep = &records.ValidationError{Field: "endedAt", Reason: "sleep session must end after it starts and last less than a day"}
	noOpLogger      = zap.NewNop()
)

// ServiceError carries a dotted code naming the operation and failure reason.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew         = "tracker.service.new"
	opGetProfile         = "tracker.get_profile"
	opUpdateProfile      = "tracker.update_profile"
	opUploadPhoto        = "tracker.upload_photo"
	opListRecords        = "tracker.list_records"
	opCreateRecord       = "tracker.create_record"
	opUpdateRecord       = "tracker.update_record"
	opDeleteRecord       = "tracker.delete_record"
	opRecordSleepSession = "tracker.record_sleep_session"
	opStats              = "tracker.stats"
	opDashboard          = "tracker.dashboard"
	reasonValidation     = "validation_failed"
	reasonNotFound       = "not_found"
	reasonInvalidPhoto   = "invalid_photo"
	reasonStorage        = "storage_failed"
	reasonPhotoStorage   = "photo_storage_failed"
	reasonMissingStore   = "missing_store"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// ServiceConfig describes the dependencies of the tracker service.
type ServiceConfig struct {
	Store           records.Store
	Photos          photos.Store
	Clock           func() time.Time
	Location        *time.Location
	DefaultBabyName string
	Logger          *zap.Logger
	Metrics         MetricsRecorder
}

// Service validates input, mutates the store and recomputes derived views.
type Service struct {
	store           records.Store
	photos          photos.Store
	clock           func() time.Time
	location        *time.Location
	defaultBabyName string
	logger          *zap.Logger
	metrics         MetricsRecorder
}

// NewService constructs the tracker service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, reasonMissingStore, errMissingStore)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	photoStore := cfg.Photos
	if photoStore == nil {
		photoStore = photos.Inline{}
	}
	name := cfg.DefaultBabyName
	if name == "" {
		name = defaultBabyName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		store:           cfg.Store,
		photos:          photoStore,
		clock:           clock,
		location:        location,
		defaultBabyName: name,
		logger:          logger,
		metrics:         cfg.Metrics,
	}, nil
}

// Now reads the service clock in the configured time zone.
func (s *Service) Now() time.Time {
	return s.clock().In(s.location)
}

// Today returns the current calendar date in the configured time zone.
func (s *Service) Today() records.Date {
	return insights.Today(s.Now(), nil)
}

// GetProfile returns the owner's profile, creating the default profile on first access.
func (s *Service) GetProfile(ctx context.Context, owner records.OwnerID) (profile report.Profile, err error) {
	defer s.observe(ctx, opGetProfile, time.Now(), &err)

	stored, err := s.loadProfile(ctx, owner)
	if err != nil {
		return report.Profile{}, s.fail(opGetProfile, err, zap.String("owner_id", owner.String()))
	}
	return report.NewProfile(stored, s.Today()), nil
}

// UpdateProfile replaces the name and birth date. An empty photo keeps the stored one;
// a data URL is routed through the photo store.
func (s *Service) UpdateProfile(ctx context.Context, owner records.OwnerID, input records.BabyProfile) (profile report.Profile, err error) {
	defer s.observe(ctx, opUpdateProfile, time.Now(), &err)
	fields := []zap.Field{zap.String("owner_id", owner.String())}

	today := s.Today()
	if err := records.ValidateProfile(&input, today); err != nil {
		return report.Profile{}, s.fail(opUpdateProfile, err, fields...)
	}
	existing, err := s.loadProfile(ctx, owner)
	if err != nil {
		return report.Profile{}, s.fail(opUpdateProfile, err, fields...)
	}
	switch {
	case input.Photo == "":
		input.Photo = existing.Photo
	case isDataURL(input.Photo):
		reference, err := s.storePhoto(ctx, owner, input.Photo)
		if err != nil {
			return report.Profile{}, s.fail(opUpdateProfile, err, fields...)
		}
		input.Photo = reference
	}

	saved, err := s.store.PutProfile(ctx, owner, input)
	if err != nil {
		return report.Profile{}, s.fail(opUpdateProfile, err, fields...)
	}
	return report.NewProfile(saved, today), nil
}

// UploadPhoto stores a data URL image and points the profile at it.
func (s *Service) UploadPhoto(ctx context.Context, owner records.OwnerID, dataURL string) (profile report.Profile, err error) {
	defer s.observe(ctx, opUploadPhoto, time.Now(), &err)
	fields := []zap.Field{zap.String("owner_id", owner.String())}

	existing, err := s.loadProfile(ctx, owner)
	if err != nil {
		return report.Profile{}, s.fail(opUploadPhoto, err, fields...)
	}
	reference, err := s.storePhoto(ctx, owner, dataURL)
	if err != nil {
		return report.Profile{}, s.fail(opUploadPhoto, err, fields...)
	}
	existing.Photo = reference
	saved, err := s.store.PutProfile(ctx, owner, existing)
	if err != nil {
		return report.Profile{}, s.fail(opUploadPhoto, err, fields...)
	}
	return report.NewProfile(saved, s.Today()), nil
}

// ListRecords returns the owner's records of kind, newest first.
func (s *Service) ListRecords(ctx context.Context, owner records.OwnerID, kind records.Kind) (items []records.Record, err error) {
	defer s.observe(ctx, opListRecords, time.Now(), &err)

	stored, err := s.store.ListRecords(ctx, owner, kind)
	if err != nil {
		return nil, s.fail(opListRecords, err, zap.String("owner_id", owner.String()), zap.String("kind", kind.String()))
	}
	return records.SortForDisplay(stored), nil
}

// CreateRecord validates input and appends it under a fresh id.
func (s *Service) CreateRecord(ctx context.Context, owner records.OwnerID, kind records.Kind, input records.Record) (created records.Record, err error) {
	defer s.observe(ctx, opCreateRecord, time.Now(), &err)
	fields := []zap.Field{zap.String("owner_id", owner.String()), zap.String("kind", kind.String())}

	if err := prepareRecord(kind, &input); err != nil {
		return records.Record{}, s.fail(opCreateRecord, err, fields...)
	}
	input.ID = ""
	created, err = s.store.CreateRecord(ctx, owner, input)
	if err != nil {
		return records.Record{}, s.fail(opCreateRecord, err, fields...)
	}
	return created, nil
}

// UpdateRecord validates input and replaces the record named by id.
func (s *Service) UpdateRecord(ctx context.Context, owner records.OwnerID, kind records.Kind, id string, input records.Record) (updated records.Record, err error) {
	defer s.observe(ctx, opUpdateRecord, time.Now(), &err)
	fields := []zap.Field{zap.String("owner_id", owner.String()), zap.String("kind", kind.String()), zap.String("record_id", id)}

	if err := prepareRecord(kind, &input); err != nil {
		return records.Record{}, s.fail(opUpdateRecord, err, fields...)
	}
	input.ID = id
	updated, err = s.store.UpdateRecord(ctx, owner, input)
	if err != nil {
		return records.Record{}, s.fail(opUpdateRecord, err, fields...)
	}
	return updated, nil
}

// Save edits the record named by editingID when it exists and creates a new record otherwise.
func (s *Service) Save(ctx context.Context, owner records.OwnerID, kind records.Kind, input records.Record, editingID string) (records.Record, error) {
	if editingID == "" {
		return s.CreateRecord(ctx, owner, kind, input)
	}
	saved, err := s.UpdateRecord(ctx, owner, kind, editingID, input)
	if errors.Is(err, records.ErrNotFound) {
		return s.CreateRecord(ctx, owner, kind, input)
	}
	return saved, err
}

// DeleteRecord removes the record named by id.
func (s *Service) DeleteRecord(ctx context.Context, owner records.OwnerID, kind records.Kind, id string) (err error) {
	defer s.observe(ctx, opDeleteRecord, time.Now(), &err)

	if err := s.store.DeleteRecord(ctx, owner, kind, id); err != nil {
		return s.fail(opDeleteRecord, err, zap.String("owner_id", owner.String()), zap.String("kind", kind.String()), zap.String("record_id", id))
	}
	return nil
}

// RecordSleepSession stores a sleep record measured by a start/stop toggle.
func (s *Service) RecordSleepSession(ctx context.Context, owner records.OwnerID, startedAt, endedAt time.Time) (created records.Record, err error) {
	defer s.observe(ctx, opRecordSleepSession, time.Now(), &err)
	fields := []zap.Field{zap.String("owner_id", owner.String())}

	session, ok := insights.SleepFromSession(startedAt, endedAt, s.location)
	if !ok {
		return records.Record{}, s.fail(opRecordSleepSession, errInvalidSleep, fields...)
	}
	created, err = s.store.CreateRecord(ctx, owner, session)
	if err != nil {
		return records.Record{}, s.fail(opRecordSleepSession, err, fields...)
	}
	return created, nil
}

// Stats aggregates the owner's collections for day; an empty day means today.
func (s *Service) Stats(ctx context.Context, owner records.OwnerID, day records.Date) (stats insights.Stats, err error) {
	defer s.observe(ctx, opStats, time.Now(), &err)

	collections, err := records.LoadCollections(ctx, s.store, owner)
	if err != nil {
		return insights.Stats{}, s.fail(opStats, err, zap.String("owner_id", owner.String()))
	}
	return insights.ComputeStats(collections, s.dayOrToday(day)), nil
}

// Dashboard builds the complete view model for day; an empty day means today.
func (s *Service) Dashboard(ctx context.Context, owner records.OwnerID, day records.Date) (dashboard report.Dashboard, err error) {
	defer s.observe(ctx, opDashboard, time.Now(), &err)
	fields := []zap.Field{zap.String("owner_id", owner.String())}

	profile, err := s.loadProfile(ctx, owner)
	if err != nil {
		return report.Dashboard{}, s.fail(opDashboard, err, fields...)
	}
	collections, err := records.LoadCollections(ctx, s.store, owner)
	if err != nil {
		return report.Dashboard{}, s.fail(opDashboard, err, fields...)
	}
	return report.BuildDashboard(profile, collections, s.dayOrToday(day)), nil
}

func (s *Service) loadProfile(ctx context.Context, owner records.OwnerID) (records.BabyProfile, error) {
	profile, err := s.store.GetProfile(ctx, owner)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, records.ErrNotFound) {
		return records.BabyProfile{}, err
	}
	created, err := s.store.PutProfile(ctx, owner, records.BabyProfile{Name: s.defaultBabyName, BirthDate: s.Today()})
	if err != nil {
		return records.BabyProfile{}, err
	}
	s.logger.Info("default profile created", zap.String("owner_id", owner.String()))
	return created, nil
}

func (s *Service) storePhoto(ctx context.Context, owner records.OwnerID, dataURL string) (string, error) {
	image, err := photos.DecodeDataURL(dataURL)
	if err != nil {
		return "", &photoError{err: err}
	}
	reference, err := s.photos.Put(ctx, photos.KeyFor(owner, image, s.clock()), image)
	if err != nil {
		return "", &photoStorageError{err: err}
	}
	return reference, nil
}

func (s *Service) dayOrToday(day records.Date) records.Date {
	if day == "" {
		return s.Today()
	}
	return day
}

// fail logs err and wraps it in a ServiceError coded by operation and failure class.
func (s *Service) fail(operation string, err error, fields ...zap.Field) error {
	reason := classify(err)
	switch reason {
	case reasonValidation, reasonNotFound, reasonInvalidPhoto:
		s.logger.Debug("tracker request rejected", append([]zap.Field{zap.String("operation", operation), zap.String("reason", reason), zap.Error(err)}, fields...)...)
	default:
		s.logError(operation, reason, err, fields...)
	}
	return newServiceError(operation, reason, err)
}

func (s *Service) observe(ctx context.Context, operation string, started time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(ctx, operation, err == nil || *err == nil, time.Since(started))
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("tracker service error", attrs...)
}

func classify(err error) string {
	var invalidPhoto *photoError
	var photoStorage *photoStorageError
	switch {
	case errors.As(err, &invalidPhoto):
		return reasonInvalidPhoto
	case errors.As(err, &photoStorage):
		return reasonPhotoStorage
	case errors.Is(err, records.ErrValidation):
		return reasonValidation
	case errors.Is(err, records.ErrNotFound):
		return reasonNotFound
	default:
		return reasonStorage
	}
}

// prepareRecord validates input for kind and derives the stored sleep duration.
func prepareRecord(kind records.Kind, input *records.Record) error {
	if err := records.Validate(kind, input); err != nil {
		return err
	}
	if kind == records.KindSleep {
		input.Duration = insights.ComputeSleepDuration(input.StartTime, input.EndTime)
	}
	return nil
}

func isDataURL(value string) bool {
	return strings.HasPrefix(value, "data:")
}
