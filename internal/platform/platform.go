// Package platform abstracts the host facilities the workbench depends on:
// playable handles for loaded files and saving downloaded artifacts.
package platform

import "errors"

// ErrUnknownHandle is returned when a handle was never issued or was already revoked
var ErrUnknownHandle = errors.New("unknown handle")

// Handle is a playable reference to a loaded file, comparable to an object URL
type Handle struct {
	ID  string
	URL string
}

// IsZero reports whether the handle is empty
func (h Handle) IsZero() bool {
	return h.ID == ""
}

// Source describes a file the platform can issue a handle for
type Source struct {
	Name string
	Path string
}

// Platform is the host adapter used by intake, playback and export
type Platform interface {
	// CreateHandle issues a playable handle for the source
	CreateHandle(src Source) (Handle, error)

	// Resolve returns the local path behind a live handle
	Resolve(h Handle) (string, error)

	// RevokeHandle releases a handle; revoking twice is a no-op
	RevokeHandle(h Handle)

	// Download stores an artifact under the given file name and returns where it went
	Download(name string, data []byte) (string, error)
}
