// Package main is the entry point for the audion client.
// audion is an interactive shell for selecting, playing and analyzing audio files
// against the analysis backend, or an in-process mock of it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/audion-app/audion/internal/analysis"
	"github.com/audion-app/audion/internal/audio"
	"github.com/audion-app/audion/internal/config"
	"github.com/audion-app/audion/internal/coordinator"
	"github.com/audion-app/audion/internal/media"
	"github.com/audion-app/audion/internal/platform"
	"github.com/audion-app/audion/internal/playback"
	"github.com/audion-app/audion/internal/shell"
)

// Version is set at build time via ldflags
var Version = "dev"

// Flags holds command-line options
type Flags struct {
	ConfigDir  string
	BackendURL string
	Page       string
	Script     string
	Exec       string
	NoAudio    bool
	Verbose    bool
}

func main() {
	flags := parseFlags()

	if flags.Verbose {
		log.Printf("audion version %s starting...", Version)
	} else {
		log.SetOutput(io.Discard)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigDir, "config", "", "Configuration directory (default: ~/.config/audion)")
	flag.StringVar(&f.BackendURL, "backend", "", "Analysis backend URL (default: config, or the in-process mock)")
	flag.StringVar(&f.Page, "page", string(shell.ModeAnalyze), "Starting page: analyze or match")
	flag.StringVar(&f.Script, "script", "", "Run commands from a file (- for stdin) instead of the interactive shell")
	flag.StringVar(&f.Exec, "exec", "", "Run semicolon-separated commands and exit")
	flag.BoolVar(&f.NoAudio, "no-audio", false, "Disable audio playback")
	flag.BoolVar(&f.Verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	if f.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		f.ConfigDir = filepath.Join(homeDir, ".config", "audion")
	}

	return f
}

func run(ctx context.Context, flags *Flags) error {
	mode, err := shell.ParseMode(flags.Page)
	if err != nil {
		return err
	}

	configMgr := config.NewManager(flags.ConfigDir)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Printf("[CONFIG] Loaded %s", configMgr.GetPath())
	cfg := configMgr.Get()
	if flags.BackendURL != "" {
		cfg.Backend.URL = flags.BackendURL
	}

	var engine playback.Engine
	if !flags.NoAudio {
		player, err := audio.NewPlayer(cfg.Playback.SampleRate, cfg.Playback.DefaultVolume)
		if err != nil {
			log.Printf("[AUDIO] Playback unavailable: %v", err)
		} else {
			defer player.Close()
			engine = player
		}
	}

	// The session is closed by the page's playback controller
	var mediaSession media.Session
	if engine != nil {
		mediaSession, err = media.NewSession()
		if err != nil {
			log.Printf("[MEDIA] Warning: failed to initialize media session: %v", err)
			log.Printf("[MEDIA] Continuing without OS media integration")
			mediaSession = media.NewNoOpSession()
		}
	}

	page := shell.NewPage(shell.Options{
		Mode:     mode,
		Platform: platform.NewLocal(cfg.ExportDir),
		Backend:  newBackend(cfg),
		Engine:   engine,
		Session:  mediaSession,
		Out:      os.Stdout,
	})
	defer page.Close()

	switch {
	case flags.Exec != "":
		return shell.RunScript(ctx, page, strings.NewReader(strings.ReplaceAll(flags.Exec, ";", "\n")))
	case flags.Script == "-":
		return shell.RunScript(ctx, page, os.Stdin)
	case flags.Script != "":
		f, err := os.Open(flags.Script)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		return shell.RunScript(ctx, page, f)
	}
	return shell.Run(ctx, page)
}

// newBackend talks to the configured daemon, or simulates one in process
func newBackend(cfg *config.Config) coordinator.Backend {
	if cfg.Backend.URL != "" {
		log.Printf("[COORD] Using backend at %s", cfg.Backend.URL)
		return coordinator.NewHTTPBackend(cfg.Backend.URL, time.Duration(cfg.Backend.TimeoutSeconds)*time.Second)
	}

	opts := []coordinator.MockOption{
		coordinator.WithDelays(
			time.Duration(cfg.Mock.AnalyzeDelayMs)*time.Millisecond,
			time.Duration(cfg.Mock.MatchDelayMs)*time.Millisecond,
		),
	}
	if prober := audio.NewFFprobe(); prober != nil {
		opts = append(opts, coordinator.WithProber(prober))
	}
	log.Printf("[COORD] Using in-process mock backend")
	return coordinator.NewMockBackend(analysis.NewGenerator(cfg.Mock.Seed), opts...)
}
