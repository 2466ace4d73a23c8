package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/audion-app/audion/internal/intake"
	"github.com/audion-app/audion/internal/types"
)

// Multipart field names used by the analysis service
const (
	FieldAudioFile      = "audio_file"
	FieldTestFiles      = "test_files"
	FieldReferenceFiles = "reference_files"
)

// HTTPBackend sends requests to an analysis service over HTTP
type HTTPBackend struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBackend creates a backend for the service at baseURL
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze posts the request's files as multipart/form-data and decodes the response
func (b *HTTPBackend) Analyze(ctx context.Context, req Request) (*Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	var path string
	switch req.Kind {
	case KindAnalyze, KindFeatures:
		path = "/audio/" + string(req.Kind)
		if err := writeFile(writer, FieldAudioFile, req.Files[0]); err != nil {
			return nil, err
		}
	case KindMatch:
		path = "/audio/match"
		for _, f := range req.Files {
			if err := writeFile(writer, FieldTestFiles, f); err != nil {
				return nil, err
			}
		}
		for _, f := range req.References {
			if err := writeFile(writer, FieldReferenceFiles, f); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported request kind %q", req.Kind)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Detail != "" {
			return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, apiErr.Detail)
		}
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	result := &Result{}
	switch req.Kind {
	case KindAnalyze:
		var analysis types.AnalysisResult
		if err := json.Unmarshal(body, &analysis); err != nil {
			return nil, fmt.Errorf("failed to parse analysis: %w", err)
		}
		result.Analysis = &analysis
	case KindMatch:
		if err := json.Unmarshal(body, &result.Matches); err != nil {
			return nil, fmt.Errorf("failed to parse matches: %w", err)
		}
	case KindFeatures:
		if !json.Valid(body) {
			return nil, fmt.Errorf("failed to parse features: invalid JSON")
		}
		result.Features = json.RawMessage(body)
	}
	return result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeFile adds one file part, carrying its MIME type in the part header
func writeFile(w *multipart.Writer, field string, f intake.UploadedFile) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", f.MimeType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part for %s: %w", f.Name, err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Name, err)
	}
	return nil
}
