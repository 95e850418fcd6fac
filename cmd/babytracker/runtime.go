package main

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/babytracker/internal/config"
	"github.com/MarcoPoloResearchLab/babytracker/internal/database"
	"github.com/MarcoPoloResearchLab/babytracker/internal/logging"
	"github.com/MarcoPoloResearchLab/babytracker/internal/photos"
	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
	"github.com/MarcoPoloResearchLab/babytracker/internal/storage"
	"github.com/MarcoPoloResearchLab/babytracker/internal/tracker"
	"github.com/MarcoPoloResearchLab/babytracker/internal/users"
	"go.uber.org/zap"
)

// runtime holds the services shared by every subcommand.
type runtime struct {
	config  config.AppConfig
	logger  *zap.Logger
	owner   records.OwnerID
	backend storage.Backend
	photos  photos.Store
	users   *users.Service
	tracker *tracker.Service
	closers []func() error
}

func (a *cli) openRuntime(ctx context.Context, metrics tracker.MetricsRecorder) (*runtime, error) {
	appConfig, err := config.Load(a.viper)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return nil, err
	}
	rt := &runtime{config: appConfig, logger: logger}

	backend, closeBackend, err := buildStore(appConfig, logger)
	if err != nil {
		return nil, err
	}
	rt.backend = backend
	if closeBackend != nil {
		rt.closers = append(rt.closers, closeBackend)
	}

	photoStore, err := photos.Open(ctx, appConfig.Photos)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.photos = photoStore

	rt.users, err = users.NewService(users.ServiceConfig{Repository: backend, Logger: logger})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.owner, err = rt.users.Resolve(ctx, appConfig.DefaultOwner)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("resolve default owner: %w", err)
	}
	if err := rt.users.Seed(ctx, appConfig.SeedOwners...); err != nil {
		rt.Close()
		return nil, fmt.Errorf("seed owners: %w", err)
	}

	rt.tracker, err = tracker.NewService(tracker.ServiceConfig{
		Store:           backend,
		Photos:          photoStore,
		Location:        appConfig.Location,
		DefaultBabyName: appConfig.DefaultBabyName,
		Logger:          logger,
		Metrics:         metrics,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases the backend and flushes the logger.
func (rt *runtime) Close() {
	for index := len(rt.closers) - 1; index >= 0; index-- {
		if err := rt.closers[index](); err != nil {
			rt.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}

// buildStore selects the record backend named by storage.driver. The returned
// closer is nil for backends without resources.
func buildStore(appConfig config.AppConfig, logger *zap.Logger) (storage.Backend, func() error, error) {
	switch appConfig.StorageDriver {
	case storage.DriverMemory:
		return storage.NewMemoryStore(storage.Options{}), nil, nil
	case storage.DriverFile:
		store, err := storage.NewFileStore(appConfig.FileDir, storage.Options{})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case storage.DriverSQLite, storage.DriverPostgres:
		db, err := database.Open(database.Config{
			Driver:   appConfig.StorageDriver,
			Path:     appConfig.DatabasePath,
			DSN:      appConfig.DatabaseDSN,
			LogLevel: appConfig.LogLevel,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewGormStore(db, storage.Options{})
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return store, sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", appConfig.StorageDriver)
	}
}
