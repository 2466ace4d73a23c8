// Package shell is the interactive client: one page session at a time, driven by typed commands.
package shell

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/audion-app/audion/internal/coordinator"
	"github.com/audion-app/audion/internal/intake"
	"github.com/audion-app/audion/internal/media"
	"github.com/audion-app/audion/internal/platform"
	"github.com/audion-app/audion/internal/playback"
	"github.com/audion-app/audion/internal/report"
)

// Mode selects the page
type Mode string

const (
	ModeAnalyze Mode = "analyze"
	ModeMatch   Mode = "match"
)

// ParseMode validates a page name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAnalyze, ModeMatch:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown page %q (want analyze or match)", s)
}

// Options configures a Page
type Options struct {
	Mode     Mode
	Platform platform.Platform
	Backend  coordinator.Backend

	// Engine plays bound files; nil disables playback
	Engine playback.Engine

	// Session mirrors playback to the OS; nil for none
	Session media.Session

	Out io.Writer
}

// Page is one page session. Everything a page shows lives here and is
// discarded by Reset.
type Page struct {
	mu sync.Mutex

	mode      Mode
	out       io.Writer
	platform  platform.Platform
	picker    *intake.Picker
	tests     *intake.Intake // the single slot on the analyze page
	refs      *intake.Intake
	player    *playback.Controller
	coord     *coordinator.Coordinator
	presenter *report.Presenter

	// generation increments on Reset; completions from older generations are dropped
	generation uint64
	done       chan completion
	pending    sync.WaitGroup
	closed     chan struct{}
}

// NewPage creates a page session
func NewPage(opts Options) *Page {
	if opts.Mode == "" {
		opts.Mode = ModeAnalyze
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	p := &Page{
		mode:      opts.Mode,
		out:       opts.Out,
		platform:  opts.Platform,
		picker:    intake.NewPicker(),
		tests:     intake.New("test", opts.Platform),
		refs:      intake.New("ref", opts.Platform),
		coord:     coordinator.New(opts.Backend),
		presenter: report.NewPresenter(),
		done:      make(chan completion),
		closed:    make(chan struct{}),
	}

	if opts.Engine != nil {
		p.player = playback.NewController(opts.Engine, opts.Platform, opts.Session)
		p.player.SetOnStateChange(func(state playback.State) {
			if state == playback.StatePaused {
				log.Printf("[PLAYBACK] Paused")
			}
		})
	}

	go p.receive()
	return p
}

// Mode returns the current page
func (p *Page) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetOutput redirects command output
func (p *Page) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = w
}

// Reset discards files, playback and results and starts a fresh session of mode.
// An outstanding request still completes but its result is dropped.
func (p *Page) Reset(mode Mode) {
	if p.player != nil {
		p.player.Unbind()
	}
	p.tests.Clear()
	p.refs.Clear()
	p.presenter.Clear()

	p.mu.Lock()
	p.generation++
	p.mode = mode
	p.mu.Unlock()

	log.Printf("[SHELL] Started %s page", mode)
}

// Wait blocks until every started request has been applied
func (p *Page) Wait() {
	p.pending.Wait()
}

// Close releases playback and stops receiving completions
func (p *Page) Close() error {
	p.Wait()
	close(p.closed)
	p.tests.Clear()
	p.refs.Clear()
	if p.player != nil {
		return p.player.Close()
	}
	return nil
}

// start submits req in the background, tagged with the current generation
func (p *Page) start(ctx context.Context, req coordinator.Request) error {
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()

	results := make(chan coordinator.Completion, 1)
	if err := p.coord.Start(ctx, req, results); err != nil {
		return err
	}

	p.pending.Add(1)
	go func() {
		c := <-results
		select {
		case p.done <- completion{generation: gen, Completion: c}:
		case <-p.closed:
			p.pending.Done()
		}
	}()
	return nil
}

// completion is a coordinator completion tagged with the session that started it
type completion struct {
	generation uint64
	coordinator.Completion
}

// receive applies completions one at a time
func (p *Page) receive() {
	for {
		select {
		case c := <-p.done:
			p.apply(c)
			p.pending.Done()
		case <-p.closed:
			return
		}
	}
}

func (p *Page) apply(c completion) {
	p.mu.Lock()
	current := p.generation
	out := p.out
	p.mu.Unlock()

	if c.generation != current {
		log.Printf("[SHELL] Dropping %s result from a previous session", c.Request.Kind)
		return
	}

	if c.Err != nil {
		fmt.Fprintf(out, "%s failed: %v\n", c.Request.Kind, c.Err)
		return
	}

	switch c.Request.Kind {
	case coordinator.KindAnalyze:
		p.presenter.SetAnalysis(*c.Result.Analysis)
		fmt.Fprintf(out, "Analysis of %s complete.\n\n", c.Result.Analysis.Filename)
		p.presenter.Render(out, report.ViewAll)
	case coordinator.KindMatch:
		p.presenter.SetMatches(c.Result.Matches)
		fmt.Fprintf(out, "Matched %d test file(s).\n\n", len(c.Result.Matches))
		p.presenter.Render(out, report.ViewMatches)
	case coordinator.KindFeatures:
		printFeatures(out, c.Result.Features)
	}
}
