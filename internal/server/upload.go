package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/audion-app/audion/internal/intake"
)

// maxFilesPerRequest bounds the body of a match request
const maxFilesPerRequest = 32

// allowedFormat reports whether filename carries one of the allowed extensions
func allowedFormat(filename string, formats []string) bool {
	if filename == "" {
		return false
	}
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	ext := strings.ToLower(filename[i+1:])
	return slices.ContainsFunc(formats, func(f string) bool {
		return strings.EqualFold(strings.TrimPrefix(f, "."), ext)
	})
}

// saveUploads writes each upload into dir and describes it as an intake file.
// A non-empty prefix names files "<prefix>_<i>_<name>" so duplicates cannot collide.
func saveUploads(dir, prefix string, headers []*multipart.FileHeader) ([]intake.UploadedFile, error) {
	files := make([]intake.UploadedFile, 0, len(headers))
	for i, h := range headers {
		name := filepath.Base(h.Filename)
		diskName := name
		if prefix != "" {
			diskName = fmt.Sprintf("%s_%d_%s", prefix, i, name)
		}
		path := filepath.Join(dir, diskName)

		size, err := saveUpload(h, path)
		if err != nil {
			return nil, err
		}

		mimeType := h.Header.Get("Content-Type")
		if !intake.IsAudio(mimeType) {
			mimeType = intake.DetectMimeType(path)
		}

		files = append(files, intake.UploadedFile{
			Name:      name,
			SizeBytes: size,
			MimeType:  mimeType,
			Path:      path,
		})
	}
	return files, nil
}

func saveUpload(h *multipart.FileHeader, path string) (int64, error) {
	src, err := h.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open upload %s: %w", h.Filename, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save upload %s: %w", h.Filename, err)
	}
	return n, nil
}
