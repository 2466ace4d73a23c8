package platform

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Local is a Platform backed by the local filesystem. Handles are file:// URLs
// and downloads are written into a directory.
type Local struct {
	mu        sync.Mutex
	exportDir string
	handles   map[string]string // handle ID -> absolute path
}

// NewLocal creates a local platform writing downloads into exportDir
func NewLocal(exportDir string) *Local {
	if exportDir == "" {
		exportDir = "."
	}
	return &Local{
		exportDir: exportDir,
		handles:   make(map[string]string),
	}
}

// CreateHandle issues a file:// handle for a source with a path on disk
func (l *Local) CreateHandle(src Source) (Handle, error) {
	if src.Path == "" {
		return Handle{}, fmt.Errorf("source %q has no local path", src.Name)
	}
	abs, err := filepath.Abs(src.Path)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to resolve %s: %w", src.Path, err)
	}

	id := uuid.NewString()
	l.mu.Lock()
	l.handles[id] = abs
	l.mu.Unlock()

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return Handle{ID: id, URL: u.String()}, nil
}

// Resolve returns the path behind a handle
func (l *Local) Resolve(h Handle) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	path, ok := l.handles[h.ID]
	if !ok {
		return "", ErrUnknownHandle
	}
	return path, nil
}

// RevokeHandle forgets a handle
func (l *Local) RevokeHandle(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handles, h.ID)
}

// Live returns the number of handles that have not been revoked
func (l *Local) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

// Download writes data to exportDir/name
func (l *Local) Download(name string, data []byte) (string, error) {
	if err := os.MkdirAll(l.exportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	dest := filepath.Join(l.exportDir, filepath.Base(name))
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}

	log.Printf("[PLATFORM] Saved %s (%d bytes)", dest, len(data))
	return dest, nil
}
