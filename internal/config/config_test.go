package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.GetPath() != filepath.Join(dir, "config.json") {
		t.Errorf("Unexpected config path %s", m.GetPath())
	}
	if _, err := os.Stat(m.GetPath()); err != nil {
		t.Fatalf("Expected config.json to be created: %v", err)
	}

	cfg := m.Get()
	if cfg.Upload.MaxFileSizeMB != 50 {
		t.Errorf("Expected default max file size 50, got %d", cfg.Upload.MaxFileSizeMB)
	}
	if len(cfg.Upload.AllowedFormats) != 4 {
		t.Errorf("Expected 4 default formats, got %v", cfg.Upload.AllowedFormats)
	}
}

func TestLoadSaveRoundtrip(t *testing.T) {
	dir := t.TempDir()

	m := NewManager(dir)
	cfg := m.Get()
	cfg.Server.Port = 9100
	cfg.Backend.URL = "http://localhost:9100"
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	m2 := NewManager(dir)
	if err := m2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m2.Get().Server.Port != 9100 {
		t.Errorf("Expected port 9100, got %d", m2.Get().Server.Port)
	}
	if m2.Get().Backend.URL != "http://localhost:9100" {
		t.Errorf("Expected backend URL to survive roundtrip, got %q", m2.Get().Backend.URL)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := NewManager(dir).Load(); err == nil {
		t.Error("Expected error for corrupt config file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"AUDION_PORT":                  "8100",
		"AUDION_ALLOWED_AUDIO_FORMATS": "wav, ogg ,",
		"AUDION_BACKEND_URL":           "http://backend:8000",
		"AUDION_DEBUG":                 "false",
		"AUDION_MOCK_SEED":             "42",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Server.Port != 8100 {
		t.Errorf("Expected port 8100, got %d", cfg.Server.Port)
	}
	if len(cfg.Upload.AllowedFormats) != 2 || cfg.Upload.AllowedFormats[1] != "ogg" {
		t.Errorf("Unexpected formats: %v", cfg.Upload.AllowedFormats)
	}
	if cfg.Backend.URL != "http://backend:8000" {
		t.Errorf("Unexpected backend URL: %q", cfg.Backend.URL)
	}
	if cfg.Debug {
		t.Error("Expected debug to be disabled")
	}
	if cfg.Mock.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.Mock.Seed)
	}
}

func TestApplyEnvInvalidNumber(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "AUDION_PORT" {
			return "eighty", true
		}
		return "", false
	}

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg, lookup); err == nil {
		t.Error("Expected error for non-numeric port")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Port should keep its default on error, got %d", cfg.Server.Port)
	}
}

func TestLoadDotEnvSkipsMissing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Expected missing .env to be skipped, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("AUDION_TEST_DOTENV_VALUE=hello\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("AUDION_TEST_DOTENV_VALUE") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if v := os.Getenv("AUDION_TEST_DOTENV_VALUE"); v != "hello" {
		t.Errorf("Expected hello, got %q", v)
	}
}
