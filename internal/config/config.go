package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/photos"
	"github.com/MarcoPoloResearchLab/babytracker/internal/storage"
	"github.com/spf13/viper"
)

const (
	envPrefix              = "BABYTRACKER"
	defaultHTTPAddress     = "0.0.0.0:3000"
	defaultStorageDriver   = "sqlite"
	defaultFileDir         = "data"
	defaultDatabasePath    = "babytracker.db"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultIssuer          = "babytracker"
	defaultAudience        = "babytracker-api"
	defaultTokenTTLMinutes = 24 * 60
	defaultOwner           = "default"
	defaultBabyName        = "Baby"
	defaultPhotoDriver     = "inline"
	defaultPhotoDir        = "photos"
)

// AppConfig captures runtime configuration for the API server and CLI.
type AppConfig struct {
	HTTPAddress     string
	StorageDriver   storage.Driver
	FileDir         string
	DatabasePath    string
	DatabaseDSN     string
	LogLevel        string
	LogFormat       string
	SigningSecret   string
	TokenIssuer     string
	TokenAudience   string
	TokenTTL        time.Duration
	DefaultOwner    string
	SeedOwners      []string
	DefaultBabyName string
	Location        *time.Location
	Photos          photos.Config
	MetricsEnabled  bool
}

// AuthEnabled reports whether requests must carry an owner token.
func (c AppConfig) AuthEnabled() bool {
	return strings.TrimSpace(c.SigningSecret) != ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("storage.driver", defaultStorageDriver)
	configViper.SetDefault("storage.file_dir", defaultFileDir)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("auth.signing_secret", "")
	configViper.SetDefault("auth.issuer", defaultIssuer)
	configViper.SetDefault("auth.audience", defaultAudience)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("owners.default", defaultOwner)
	configViper.SetDefault("owners.seed", []string{})
	configViper.SetDefault("profile.default_name", defaultBabyName)
	configViper.SetDefault("tracker.timezone", "")
	configViper.SetDefault("photos.driver", defaultPhotoDriver)
	configViper.SetDefault("photos.dir", defaultPhotoDir)
	configViper.SetDefault("photos.public_base_url", "")
	configViper.SetDefault("photos.s3.bucket", "")
	configViper.SetDefault("photos.s3.region", "")
	configViper.SetDefault("photos.s3.endpoint", "")
	configViper.SetDefault("photos.s3.path_style", false)
	configViper.SetDefault("metrics.enabled", true)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	location, err := loadLocation(configViper.GetString("tracker.timezone"))
	if err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		StorageDriver:   storage.Driver(strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver")))),
		FileDir:         configViper.GetString("storage.file_dir"),
		DatabasePath:    configViper.GetString("database.path"),
		DatabaseDSN:     configViper.GetString("database.dsn"),
		LogLevel:        configViper.GetString("log.level"),
		LogFormat:       configViper.GetString("log.format"),
		SigningSecret:   configViper.GetString("auth.signing_secret"),
		TokenIssuer:     configViper.GetString("auth.issuer"),
		TokenAudience:   configViper.GetString("auth.audience"),
		TokenTTL:        time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		DefaultOwner:    strings.TrimSpace(configViper.GetString("owners.default")),
		SeedOwners:      configViper.GetStringSlice("owners.seed"),
		DefaultBabyName: strings.TrimSpace(configViper.GetString("profile.default_name")),
		Location:        location,
		Photos: photos.Config{
			Driver:        photos.Driver(strings.ToLower(strings.TrimSpace(configViper.GetString("photos.driver")))),
			Dir:           configViper.GetString("photos.dir"),
			PublicBaseURL: configViper.GetString("photos.public_base_url"),
			S3: photos.S3Config{
				Bucket:    configViper.GetString("photos.s3.bucket"),
				Region:    configViper.GetString("photos.s3.region"),
				Endpoint:  configViper.GetString("photos.s3.endpoint"),
				PathStyle: configViper.GetBool("photos.s3.path_style"),
			},
		},
		MetricsEnabled: configViper.GetBool("metrics.enabled"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.StorageDriver {
	case storage.DriverMemory:
	case storage.DriverFile:
		if strings.TrimSpace(c.FileDir) == "" {
			return fmt.Errorf("storage.file_dir is required for the file driver")
		}
	case storage.DriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case storage.DriverPostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, file, sqlite, postgres; got %q", c.StorageDriver)
	}
	if c.DefaultOwner == "" {
		return fmt.Errorf("owners.default is required")
	}
	if c.AuthEnabled() {
		if strings.TrimSpace(c.TokenIssuer) == "" || strings.TrimSpace(c.TokenAudience) == "" {
			return fmt.Errorf("auth.issuer and auth.audience are required when auth is enabled")
		}
		if c.TokenTTL <= 0 {
			return fmt.Errorf("auth.token_ttl_minutes must be positive")
		}
	}
	switch c.Photos.Driver {
	case photos.DriverInline, photos.DriverFilesystem:
	case photos.DriverS3:
		if strings.TrimSpace(c.Photos.S3.Bucket) == "" {
			return fmt.Errorf("photos.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("photos.driver must be one of inline, fs, s3; got %q", c.Photos.Driver)
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("tracker.timezone: %w", err)
	}
	return location, nil
}
