// Package photos decodes profile photo uploads and stores them inline, on the
// local filesystem or in an S3-compatible bucket.
package photos

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

// Driver identifies a photo backend.
type Driver string

const (
	DriverInline     Driver = "inline"
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// MaxImageBytes bounds a decoded upload.
const MaxImageBytes = 5 << 20

var (
	// ErrInvalidDataURL indicates the upload is not a base64 image data URL.
	ErrInvalidDataURL = errors.New("photos: invalid data url")
	// ErrTooLarge indicates the decoded image exceeds MaxImageBytes.
	ErrTooLarge = errors.New("photos: image too large")
)

// Image is a decoded upload.
type Image struct {
	ContentType string
	Data        []byte
}

// Extension returns the file extension for the image content type.
func (i Image) Extension() string {
	switch i.ContentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	if extensions, _ := mime.ExtensionsByType(i.ContentType); len(extensions) > 0 {
		return extensions[0]
	}
	if _, subtype, ok := strings.Cut(i.ContentType, "/"); ok && subtype != "" {
		return "." + subtype
	}
	return ".bin"
}

// DataURL renders the image as a base64 data URL.
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.ContentType, base64.StdEncoding.EncodeToString(i.Data))
}

// DecodeDataURL parses "data:<mime>;base64,<payload>" into an Image.
func DecodeDataURL(raw string) (Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimSpace(raw), ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	mediaType, found := strings.CutPrefix(meta, "data:")
	if !found {
		return Image{}, fmt.Errorf("%w: missing data scheme", ErrInvalidDataURL)
	}
	contentType, encoding, _ := strings.Cut(mediaType, ";")
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if encoding != "base64" {
		return Image{}, fmt.Errorf("%w: payload must be base64", ErrInvalidDataURL)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return Image{}, fmt.Errorf("%w: unsupported content type %q", ErrInvalidDataURL, contentType)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return Image{}, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", ErrInvalidDataURL)
	}
	if len(data) > MaxImageBytes {
		return Image{}, ErrTooLarge
	}
	return Image{ContentType: contentType, Data: data}, nil
}

// Store persists an image under key and returns the reference kept on the profile.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, image Image) (string, error)
}

// KeyFor builds the object key for an owner's profile photo.
func KeyFor(owner records.OwnerID, image Image, now time.Time) string {
	return fmt.Sprintf("%s/profile-%d%s", owner, now.UnixNano(), image.Extension())
}

// Config selects and configures a photo backend.
type Config struct {
	Driver        Driver
	Dir           string
	PublicBaseURL string
	S3            S3Config
}

// Open selects a Store implementation from cfg. An empty driver means inline.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverInline:
		return Inline{}, nil
	case DriverFilesystem:
		return NewFilesystem(cfg.Dir, cfg.PublicBaseURL)
	case DriverS3:
		s3Config := cfg.S3
		if s3Config.PublicBaseURL == "" {
			s3Config.PublicBaseURL = cfg.PublicBaseURL
		}
		return NewS3(ctx, s3Config)
	default:
		return nil, fmt.Errorf("unknown photo driver %s", cfg.Driver)
	}
}

// Inline keeps the image as a data URL on the profile itself.
type Inline struct{}

func (Inline) Driver() Driver { return DriverInline }

func (Inline) Put(_ context.Context, _ string, image Image) (string, error) {
	return image.DataURL(), nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
