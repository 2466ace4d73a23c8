// Package intake holds the ordered set of audio files loaded into a page.
package intake

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/audion-app/audion/internal/platform"
)

// PendingFile is a file offered to the intake by a drop or the file picker
type PendingFile struct {
	Name      string
	SizeBytes int64
	MimeType  string

	// Path on disk, or Data for files that only exist in memory
	Path string
	Data []byte
}

// UploadedFile is a file accepted by the intake
type UploadedFile struct {
	Name      string
	SizeBytes int64
	MimeType  string
	Path      string
	Handle    platform.Handle

	data []byte
}

// Open returns the file contents
func (f UploadedFile) Open() (io.ReadCloser, error) {
	if f.data != nil {
		return io.NopCloser(bytes.NewReader(f.data)), nil
	}
	if f.Path == "" {
		return nil, fmt.Errorf("file %q has no contents", f.Name)
	}
	return os.Open(f.Path)
}

// IsAudio reports whether a MIME type is accepted by the intake
func IsAudio(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "audio/")
}

// ChangeCallback is called when the held files change
type ChangeCallback func()

// Intake holds accepted files in arrival order
type Intake struct {
	mu       sync.RWMutex
	name     string
	items    []UploadedFile
	platform platform.Platform
	onChange ChangeCallback
}

// New creates an empty intake. The name only appears in log lines ("test", "ref", ...).
func New(name string, p platform.Platform) *Intake {
	return &Intake{
		name:     name,
		items:    make([]UploadedFile, 0),
		platform: p,
	}
}

// SetOnChange sets a callback to be called when the held files change
func (in *Intake) SetOnChange(callback ChangeCallback) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.onChange = callback
}

// notifyChange calls the onChange callback if set (must be called without lock held)
func (in *Intake) notifyChange() {
	in.mu.RLock()
	callback := in.onChange
	in.mu.RUnlock()
	if callback != nil {
		callback()
	}
}

// accept converts the audio entries of pending into uploaded files, in order
func (in *Intake) accept(pending []PendingFile, limit int) []UploadedFile {
	accepted := make([]UploadedFile, 0, len(pending))
	for _, p := range pending {
		if limit > 0 && len(accepted) == limit {
			break
		}
		if !IsAudio(p.MimeType) {
			continue
		}

		f := UploadedFile{
			Name:      p.Name,
			SizeBytes: p.SizeBytes,
			MimeType:  p.MimeType,
			Path:      p.Path,
			data:      p.Data,
		}
		if f.SizeBytes == 0 && p.Data != nil {
			f.SizeBytes = int64(len(p.Data))
		}

		if in.platform != nil {
			h, err := in.platform.CreateHandle(platform.Source{Name: p.Name, Path: p.Path})
			if err != nil {
				log.Printf("[INTAKE] Warning: no playable handle for %s: %v", p.Name, err)
			} else {
				f.Handle = h
			}
		}

		log.Printf("[INTAKE] %s: accepted %s (%s, %s)", in.name, f.Name, f.MimeType, humanize.Bytes(uint64(f.SizeBytes)))
		accepted = append(accepted, f)
	}
	return accepted
}

// Add appends the audio entries of pending, preserving arrival order.
// Non-audio entries are dropped silently. Returns the accepted files.
func (in *Intake) Add(pending []PendingFile) []UploadedFile {
	accepted := in.accept(pending, 0)
	if len(accepted) == 0 {
		return accepted
	}

	in.mu.Lock()
	in.items = append(in.items, accepted...)
	in.mu.Unlock()

	in.notifyChange()
	return accepted
}

// Replace swaps the held files for the first audio entry of pending.
// When pending holds no audio, the intake is left unchanged and false is returned.
func (in *Intake) Replace(pending []PendingFile) (UploadedFile, bool) {
	accepted := in.accept(pending, 1)
	if len(accepted) == 0 {
		return UploadedFile{}, false
	}

	in.mu.Lock()
	old := in.items
	in.items = accepted
	in.mu.Unlock()

	in.revoke(old...)
	in.notifyChange()
	return accepted[0], true
}

// Remove removes the file at index. Remaining files keep their relative order.
func (in *Intake) Remove(index int) bool {
	in.mu.Lock()

	if index < 0 || index >= len(in.items) {
		in.mu.Unlock()
		return false
	}

	removed := in.items[index]
	items := make([]UploadedFile, 0, len(in.items)-1)
	items = append(items, in.items[:index]...)
	items = append(items, in.items[index+1:]...)
	in.items = items

	in.mu.Unlock()

	in.revoke(removed)
	log.Printf("[INTAKE] %s: removed %s", in.name, removed.Name)
	in.notifyChange()
	return true
}

// Clear drops all held files
func (in *Intake) Clear() {
	in.mu.Lock()
	old := in.items
	in.items = make([]UploadedFile, 0)
	in.mu.Unlock()

	in.revoke(old...)
	if len(old) > 0 {
		in.notifyChange()
	}
}

func (in *Intake) revoke(files ...UploadedFile) {
	if in.platform == nil {
		return
	}
	for _, f := range files {
		if !f.Handle.IsZero() {
			in.platform.RevokeHandle(f.Handle)
		}
	}
}

// Files returns a copy of the held files in order
func (in *Intake) Files() []UploadedFile {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make([]UploadedFile, len(in.items))
	copy(out, in.items)
	return out
}

// Get returns the file at index
func (in *Intake) Get(index int) (UploadedFile, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	if index < 0 || index >= len(in.items) {
		return UploadedFile{}, false
	}
	return in.items[index], true
}

// Len returns the number of held files
func (in *Intake) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.items)
}

// Name returns the intake's name
func (in *Intake) Name() string {
	return in.name
}
