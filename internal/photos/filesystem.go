package photos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPublicPath is the route the HTTP server mounts filesystem photos under.
const DefaultPublicPath = "/photos"

// Filesystem writes images below a root directory.
type Filesystem struct {
	root    string
	baseURL string
}

// NewFilesystem returns a filesystem-backed store rooted at root, creating it if needed.
func NewFilesystem(root, publicBaseURL string) (*Filesystem, error) {
	if root == "" {
		root = "./photos"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	if publicBaseURL == "" {
		publicBaseURL = DefaultPublicPath
	}
	return &Filesystem{root: root, baseURL: publicBaseURL}, nil
}

// Root returns the directory images are written to.
func (s *Filesystem) Root() string { return s.root }

func (s *Filesystem) Driver() Driver { return DriverFilesystem }

func (s *Filesystem) Put(_ context.Context, key string, image Image) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, image.Data, 0o644); err != nil {
		return "", err
	}
	return joinURL(s.baseURL, clean), nil
}

// sanitizeKey ensures key doesn't escape root and forbids path traversal and absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}
