// Package main is the entry point for audiond.
// audiond is the mock analysis backend: it accepts multipart uploads over HTTP
// and answers with generated analysis, match and visualization results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/audion-app/audion/internal/analysis"
	"github.com/audion-app/audion/internal/audio"
	"github.com/audion-app/audion/internal/config"
	"github.com/audion-app/audion/internal/coordinator"
	"github.com/audion-app/audion/internal/server"
)

// Version is set at build time via ldflags
var Version = "dev"

// Flags holds command-line options
type Flags struct {
	ConfigDir string
	Host      string
	Port      int
	Verbose   bool
}

func main() {
	flags := parseFlags()

	if flags.Verbose {
		log.Printf("audiond version %s starting...", Version)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigDir, "config", "", "Configuration directory (default: ~/.config/audion)")
	flag.StringVar(&f.Host, "host", "", "Listen host (overrides config)")
	flag.IntVar(&f.Port, "port", 0, "Listen port (overrides config)")
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
	configMgr := config.NewManager(flags.ConfigDir)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Printf("[CONFIG] Loaded %s", configMgr.GetPath())

	cfg := configMgr.Get()
	if flags.Host != "" {
		cfg.Server.Host = flags.Host
	}
	if flags.Port != 0 {
		cfg.Server.Port = flags.Port
	}

	opts := []coordinator.MockOption{
		coordinator.WithDelays(
			time.Duration(cfg.Mock.AnalyzeDelayMs)*time.Millisecond,
			time.Duration(cfg.Mock.MatchDelayMs)*time.Millisecond,
		),
	}
	if prober := audio.NewFFprobe(); prober != nil {
		opts = append(opts, coordinator.WithProber(prober))
	} else {
		log.Printf("[ANALYSIS] ffprobe not found, non-WAV uploads get default properties")
	}
	backend := coordinator.NewMockBackend(analysis.NewGenerator(cfg.Mock.Seed), opts...)

	log.Printf("Starting %s %s on %s", cfg.AppName, cfg.AppVersion, cfg.Server.Addr())
	if err := server.New(cfg, backend).Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
