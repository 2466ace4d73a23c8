// Package config handles audion configuration file management.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix for environment overrides (AUDION_PORT, AUDION_BACKEND_URL, ...)
const EnvPrefix = "AUDION_"

// Config represents the audion configuration
type Config struct {
	AppName    string `json:"appName"`
	AppVersion string `json:"appVersion"`
	Debug      bool   `json:"debug"`

	// Server settings for the mock backend daemon
	Server ServerConfig `json:"server"`

	// Upload limits enforced by the daemon
	Upload UploadConfig `json:"upload"`

	// Backend settings used by the client
	Backend BackendConfig `json:"backend"`

	// Mock generator settings
	Mock MockConfig `json:"mock"`

	// Playback settings
	Playback PlaybackConfig `json:"playback"`

	// ExportDir is where downloaded reports are written
	ExportDir string `json:"exportDir"`
}

// ServerConfig contains daemon listener settings
type ServerConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UploadConfig contains upload validation settings
type UploadConfig struct {
	// MaxFileSizeMB is the largest accepted upload per file
	MaxFileSizeMB int `json:"maxFileSizeMB"`

	// AllowedFormats are accepted file extensions without the dot
	AllowedFormats []string `json:"allowedFormats"`

	// TempDir holds uploads while a request is processed (default: OS temp dir)
	TempDir string `json:"tempDir"`
}

// BackendConfig selects the analysis backend used by the client
type BackendConfig struct {
	// URL of the backend daemon; empty selects the in-process mock
	URL string `json:"url"`

	// TimeoutSeconds bounds a single backend request
	TimeoutSeconds int `json:"timeoutSeconds"`
}

// MockConfig controls the simulated backend
type MockConfig struct {
	AnalyzeDelayMs int `json:"analyzeDelayMs"`
	MatchDelayMs   int `json:"matchDelayMs"`

	// Seed for the result generator; 0 seeds from the clock
	Seed uint64 `json:"seed"`
}

// PlaybackConfig contains audio output settings
type PlaybackConfig struct {
	// SampleRate for audio output (default: 44100)
	SampleRate int `json:"sampleRate"`

	// Volume level 0.0 - 1.0 (default: 1.0)
	DefaultVolume float64 `json:"defaultVolume"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		AppName:    "Audion API",
		AppVersion: "1.0.0",
		Debug:      true,
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Upload: UploadConfig{
			MaxFileSizeMB:  50,
			AllowedFormats: []string{"wav", "mp3", "flac", "m4a"},
		},
		Backend: BackendConfig{
			TimeoutSeconds: 60,
		},
		Mock: MockConfig{
			AnalyzeDelayMs: 2500,
			MatchDelayMs:   3000,
		},
		Playback: PlaybackConfig{
			SampleRate:    44100,
			DefaultVolume: 1.0,
		},
		ExportDir: ".",
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	configDir  string
	configPath string
	config     *Config
}

// NewManager creates a new configuration manager
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk, then applies .env and environment overrides.
// A missing config file is created with defaults.
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = DefaultConfig()
		if err := m.Save(); err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(m.configPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		config := DefaultConfig()
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		m.config = config
	}

	if err := LoadDotEnv(filepath.Join(m.configDir, ".env"), ".env"); err != nil {
		return err
	}
	return ApplyEnv(m.config, os.LookupEnv)
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path
func (m *Manager) GetPath() string {
	return m.configPath
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg fields from AUDION_* variables
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = splitList(v)
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	str("APP_NAME", &cfg.AppName)
	str("APP_VERSION", &cfg.AppVersion)
	str("HOST", &cfg.Server.Host)
	num("PORT", &cfg.Server.Port)
	list("ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)
	num("MAX_FILE_SIZE", &cfg.Upload.MaxFileSizeMB)
	list("ALLOWED_AUDIO_FORMATS", &cfg.Upload.AllowedFormats)
	str("TEMP_DIR", &cfg.Upload.TempDir)
	str("BACKEND_URL", &cfg.Backend.URL)
	num("BACKEND_TIMEOUT", &cfg.Backend.TimeoutSeconds)
	num("MOCK_ANALYZE_DELAY_MS", &cfg.Mock.AnalyzeDelayMs)
	num("MOCK_MATCH_DELAY_MS", &cfg.Mock.MatchDelayMs)
	num("SAMPLE_RATE", &cfg.Playback.SampleRate)
	str("EXPORT_DIR", &cfg.ExportDir)

	if v, ok := lookup(EnvPrefix + "DEBUG"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sDEBUG: %w", EnvPrefix, err))
		} else {
			cfg.Debug = b
		}
	}
	if v, ok := lookup(EnvPrefix + "MOCK_SEED"); ok {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sMOCK_SEED: %w", EnvPrefix, err))
		} else {
			cfg.Mock.Seed = seed
		}
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
