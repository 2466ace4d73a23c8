package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/audion-app/audion/internal/types"
)

func TestHTTPBackendAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/analyze" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		files := r.MultipartForm.File[FieldAudioFile]
		if len(files) != 1 || files[0].Filename != "kick.wav" {
			t.Errorf("Expected one audio_file named kick.wav, got %v", files)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if ct := files[0].Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("Expected part content type audio/wav, got %s", ct)
		}
		json.NewEncoder(w).Encode(types.AnalysisResult{
			Filename:       files[0].Filename,
			SampleRate:     44100,
			Classification: types.Classification{Type: types.ClassMusic, Confidence: 0.9},
		})
	}))
	defer srv.Close()

	c := New(NewHTTPBackend(srv.URL+"/", time.Second))
	res, err := c.Submit(context.Background(), Request{Kind: KindAnalyze, Files: uploaded("kick.wav")})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Analysis.Filename != "kick.wav" || res.Analysis.SampleRate != 44100 {
		t.Errorf("Unexpected analysis %+v", res.Analysis)
	}
}

func TestHTTPBackendMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/match" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tests := r.MultipartForm.File[FieldTestFiles]
		refs := r.MultipartForm.File[FieldReferenceFiles]
		if len(tests) != 2 || len(refs) != 1 {
			t.Errorf("Expected 2 test files and 1 reference, got %d/%d", len(tests), len(refs))
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		out := make([]types.MatchResult, len(tests))
		for i, f := range tests {
			out[i] = types.MatchResult{TestFile: f.Filename, MatchedReferenceFile: refs[0].Filename, Confidence: 0.8}
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c := New(NewHTTPBackend(srv.URL, time.Second))
	res, err := c.Submit(context.Background(), Request{
		Kind:       KindMatch,
		Files:      uploaded("kick.wav", "hat.wav"),
		References: uploaded("snare.wav"),
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(res.Matches) != 2 || res.Matches[1].TestFile != "hat.wav" || res.Matches[1].MatchedReferenceFile != "snare.wav" {
		t.Errorf("Unexpected matches %+v", res.Matches)
	}
}

func TestHTTPBackendRejectsForeignMatches(t *testing.T) {
	tests := []struct {
		name  string
		reply []types.MatchResult
	}{
		{"unknown test and reference", []types.MatchResult{{TestFile: "other.wav", MatchedReferenceFile: "nowhere.wav"}}},
		{"unknown reference", []types.MatchResult{{TestFile: "kick.wav", MatchedReferenceFile: "nowhere.wav"}}},
		{"unknown test file", []types.MatchResult{{TestFile: "other.wav", MatchedReferenceFile: "snare.wav"}}},
		{"out of order", []types.MatchResult{
			{TestFile: "hat.wav", MatchedReferenceFile: "snare.wav"},
			{TestFile: "kick.wav", MatchedReferenceFile: "snare.wav"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tt.reply)
			}))
			defer srv.Close()

			files := uploaded("kick.wav")
			if len(tt.reply) == 2 {
				files = uploaded("kick.wav", "hat.wav")
			}

			c := New(NewHTTPBackend(srv.URL, time.Second))
			res, err := c.Submit(context.Background(), Request{Kind: KindMatch, Files: files, References: uploaded("snare.wav")})
			if !errors.Is(err, ErrRequestFailed) {
				t.Errorf("Expected ErrRequestFailed, got %v (%+v)", err, res)
			}
			if c.InFlight() {
				t.Error("Expected in-flight flag cleared")
			}
		})
	}
}

func TestHTTPBackendErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Invalid file format: kick.ogg"}`))
	}))
	defer srv.Close()

	c := New(NewHTTPBackend(srv.URL, time.Second))
	_, err := c.Submit(context.Background(), Request{Kind: KindAnalyze, Files: uploaded("kick.ogg")})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("Expected ErrRequestFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid file format: kick.ogg") {
		t.Errorf("Expected backend detail in error, got %v", err)
	}
	if c.InFlight() {
		t.Error("Expected in-flight flag cleared")
	}
}

func TestHTTPBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(NewHTTPBackend(url, time.Second)).Submit(context.Background(), Request{Kind: KindAnalyze, Files: uploaded("kick.wav")})
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Expected ErrRequestFailed, got %v", err)
	}
}
