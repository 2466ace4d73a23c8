package server

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/audion-app/audion/internal/coordinator"
)

// refFilesAlias is accepted in place of reference_files
const refFilesAlias = "ref_files"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to " + s.cfg.AppName,
		"version": s.cfg.AppVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"app_name": s.cfg.AppName,
		"version":  s.cfg.AppVersion,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app_name":          s.cfg.AppName,
		"version":           s.cfg.AppVersion,
		"debug":             s.cfg.Debug,
		"supported_formats": s.cfg.Upload.AllowedFormats,
		"max_file_size_mb":  s.cfg.Upload.MaxFileSizeMB,
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"supported_formats": s.cfg.Upload.AllowedFormats,
		"max_file_size_mb":  s.cfg.Upload.MaxFileSizeMB,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.serveSingle(w, r, coordinator.KindAnalyze)
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	s.serveSingle(w, r, coordinator.KindFeatures)
}

// serveSingle handles the endpoints that take one audio_file
func (s *Server) serveSingle(w http.ResponseWriter, r *http.Request, kind coordinator.Kind) {
	form, ok := s.parseForm(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	headers := form.File[coordinator.FieldAudioFile]
	if len(headers) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "Field required: "+coordinator.FieldAudioFile)
		return
	}
	if !s.validate(w, headers[:1]) {
		return
	}

	dir, err := os.MkdirTemp(s.cfg.Upload.TempDir, "audion-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}
	defer os.RemoveAll(dir)

	files, err := saveUploads(dir, "", headers[:1])
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	s.respond(w, r, coordinator.Request{Kind: kind, Files: files})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseForm(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	tests := form.File[coordinator.FieldTestFiles]
	refs := form.File[coordinator.FieldReferenceFiles]
	if len(refs) == 0 {
		refs = form.File[refFilesAlias]
	}
	if len(tests) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "Field required: "+coordinator.FieldTestFiles)
		return
	}
	if len(refs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "Field required: "+coordinator.FieldReferenceFiles)
		return
	}
	if !s.validate(w, tests) || !s.validate(w, refs) {
		return
	}

	dir, err := os.MkdirTemp(s.cfg.Upload.TempDir, "audion-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}
	defer os.RemoveAll(dir)

	testFiles, err := saveUploads(dir, "test", tests)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}
	refFiles, err := saveUploads(dir, "ref", refs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	s.respond(w, r, coordinator.Request{Kind: coordinator.KindMatch, Files: testFiles, References: refFiles})
}

// respond runs req through the backend and writes the result in the wire shape of its kind
func (s *Server) respond(w http.ResponseWriter, r *http.Request, req coordinator.Request) {
	res, err := s.backend.Analyze(r.Context(), req)
	if err != nil {
		log.Printf("[HTTP] %s %s failed: %v", RequestID(r.Context()), req.Kind, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	switch req.Kind {
	case coordinator.KindAnalyze:
		writeJSON(w, http.StatusOK, res.Analysis)
	case coordinator.KindMatch:
		writeJSON(w, http.StatusOK, res.Matches)
	case coordinator.KindFeatures:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(res.Features)
	}
}

// parseForm reads the multipart body, bounded by the upload limits
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request too large (max %d MB per file)", s.cfg.Upload.MaxFileSizeMB))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid multipart form: %v", err))
		return nil, false
	}
	return r.MultipartForm, true
}

// validate checks every upload's extension and size, writing the error response on failure
func (s *Server) validate(w http.ResponseWriter, headers []*multipart.FileHeader) bool {
	for _, h := range headers {
		if !allowedFormat(h.Filename, s.cfg.Upload.AllowedFormats) {
			writeError(w, http.StatusBadRequest, "Invalid file format: "+h.Filename)
			return false
		}
		if h.Size > s.maxFileBytes() {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: %s (max %d MB)", h.Filename, s.cfg.Upload.MaxFileSizeMB))
			return false
		}
	}
	return true
}

func (s *Server) maxFileBytes() int64 {
	return int64(s.cfg.Upload.MaxFileSizeMB) << 20
}

func (s *Server) maxBodyBytes() int64 {
	return s.maxFileBytes()*maxFilesPerRequest + 1<<20
}
