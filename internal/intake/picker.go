package intake

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extensionTypes is the fallback when content sniffing is inconclusive
var extensionTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".m4a":  "audio/x-m4a",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".wma":  "audio/x-ms-wma",
	".alac": "audio/x-m4a",
	".opus": "audio/opus",
}

// DetectMimeType sniffs a file's MIME type from its contents, falling back to its extension
func DetectMimeType(path string) string {
	if m, err := mimetype.DetectFile(path); err == nil {
		if s := m.String(); s != "" && !strings.HasPrefix(s, "application/octet-stream") && !strings.HasPrefix(s, "text/plain") {
			return s
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Picker turns command-line paths into pending files, the way a file input would.
// Directories are walked recursively; hidden entries are skipped.
type Picker struct{}

// NewPicker creates a picker
func NewPicker() *Picker {
	return &Picker{}
}

// Pick returns one PendingFile per regular file under paths, in argument order
// and lexical order within directories. MIME types are sniffed, not validated.
func (p *Picker) Pick(ctx context.Context, paths []string) ([]PendingFile, error) {
	var out []PendingFile
	for _, root := range paths {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		info, err := os.Stat(root)
		if err != nil {
			return out, fmt.Errorf("failed to stat %s: %w", root, err)
		}

		if !info.IsDir() {
			out = append(out, pendingFromInfo(root, info))
			continue
		}

		files, err := p.walk(ctx, root)
		if err != nil {
			return out, err
		}
		out = append(out, files...)
	}
	return out, nil
}

func (p *Picker) walk(ctx context.Context, root string) ([]PendingFile, error) {
	var out []PendingFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("[INTAKE] Skipping %s: %v", path, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, pendingFromInfo(path, info))
		return nil
	})
	if err != nil {
		return out, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func pendingFromInfo(path string, info fs.FileInfo) PendingFile {
	return PendingFile{
		Name:      filepath.Base(path),
		SizeBytes: info.Size(),
		MimeType:  DetectMimeType(path),
		Path:      path,
	}
}
