package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/audion-app/audion/internal/analysis"
	"github.com/audion-app/audion/internal/coordinator"
	"github.com/audion-app/audion/internal/intake"
	"github.com/audion-app/audion/internal/playback"
	"github.com/audion-app/audion/internal/report"
	"github.com/audion-app/audion/internal/types"
)

// Execute runs one command line. It returns false when the session should end.
func (p *Page) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	p.mu.Lock()
	out := p.out
	mode := p.mode
	p.mu.Unlock()

	var err error
	switch cmd {
	case "add":
		err = p.cmdAdd(ctx, out, mode, args)
	case "remove", "rm":
		err = p.cmdRemove(out, mode, args)
	case "list", "ls":
		p.cmdList(out, mode)
	case "play", "toggle":
		err = p.cmdPlay(out, mode, args)
	case "stop":
		err = p.cmdStop(out)
	case "analyze":
		err = p.cmdAnalyze(ctx, out, mode)
	case "match":
		err = p.cmdMatch(ctx, out, mode)
	case "features":
		err = p.cmdFeatures(ctx, out, mode, args)
	case "show":
		err = p.cmdShow(out, mode, args)
	case "export":
		err = p.cmdExport(out, mode)
	case "status":
		p.cmdStatus(out)
	case "wait":
		p.Wait()
	case "reset":
		p.Reset(mode)
		fmt.Fprintf(out, "Started a new %s session\n", mode)
	case "page":
		err = p.cmdPage(out, args)
	case "help", "?":
		printHelp(out, mode)
	case "exit", "quit":
		return false
	default:
		err = fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}

	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
	return true
}

// target picks the intake an add/remove/play command refers to
func (p *Page) target(mode Mode, args []string) (*intake.Intake, []string) {
	if mode == ModeMatch && len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "ref", "refs", "reference":
			return p.refs, args[1:]
		case "test", "tests":
			return p.tests, args[1:]
		}
	}
	return p.tests, args
}

func (p *Page) cmdAdd(ctx context.Context, out io.Writer, mode Mode, args []string) error {
	in, paths := p.target(mode, args)
	if len(paths) == 0 {
		return errors.New("usage: add [test|ref] <path>...")
	}

	pending, err := p.picker.Pick(ctx, paths)
	if err != nil {
		return err
	}

	if mode == ModeAnalyze {
		f, ok := p.tests.Replace(pending)
		if !ok {
			return fmt.Errorf("no audio file among %d selected", len(pending))
		}
		fmt.Fprintf(out, "Selected %s (%s)\n", f.Name, humanize.Bytes(uint64(f.SizeBytes)))
		p.bind(out, f)
		return nil
	}

	accepted := in.Add(pending)
	fmt.Fprintf(out, "Added %d %s file(s)", len(accepted), in.Name())
	if dropped := len(pending) - len(accepted); dropped > 0 {
		fmt.Fprintf(out, ", ignored %d non-audio", dropped)
	}
	fmt.Fprintln(out)
	return nil
}

func (p *Page) cmdRemove(out io.Writer, mode Mode, args []string) error {
	in, rest := p.target(mode, args)
	if len(rest) != 1 {
		return errors.New("usage: remove [test|ref] <n>")
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil {
		return fmt.Errorf("invalid position %q", rest[0])
	}

	f, ok := in.Get(n - 1)
	if !ok {
		return fmt.Errorf("no %s file at position %d", in.Name(), n)
	}
	if p.player != nil {
		if b, bound := p.player.Bound(); bound && b.Handle == f.Handle {
			p.player.Unbind()
		}
	}
	in.Remove(n - 1)
	fmt.Fprintf(out, "Removed %s\n", f.Name)
	return nil
}

func (p *Page) cmdList(out io.Writer, mode Mode) {
	var bound playback.Binding
	if p.player != nil {
		bound, _ = p.player.Bound()
	}

	lists := []*intake.Intake{p.tests}
	if mode == ModeMatch {
		lists = append(lists, p.refs)
	}

	for _, in := range lists {
		files := in.Files()
		title := "Selected file"
		if mode == ModeMatch {
			title = strings.ToUpper(in.Name()[:1]) + in.Name()[1:] + " files"
		}
		fmt.Fprintf(out, "%s (%d)\n", title, len(files))
		for i, f := range files {
			marker := " "
			if !f.Handle.IsZero() && f.Handle == bound.Handle {
				marker = ">"
			}
			fmt.Fprintf(out, "%s %-3d %-40s %6.1f MB  %s\n", marker, i+1, f.Name, types.SizeMB(f.SizeBytes, 1), f.MimeType)
		}
	}
}

func (p *Page) cmdPlay(out io.Writer, mode Mode, args []string) error {
	if p.player == nil {
		return errors.New("playback is unavailable")
	}

	in, rest := p.target(mode, args)
	if len(rest) == 1 {
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid position %q", rest[0])
		}
		f, ok := in.Get(n - 1)
		if !ok {
			return fmt.Errorf("no %s file at position %d", in.Name(), n)
		}
		if b, bound := p.player.Bound(); !bound || b.Handle != f.Handle {
			p.bind(out, f)
		}
	} else if _, bound := p.player.Bound(); !bound {
		if f, ok := in.Get(0); ok {
			p.bind(out, f)
		}
	}

	state, err := p.player.Toggle()
	if errors.Is(err, playback.ErrNothingBound) {
		return errors.New("select an audio file first")
	}
	if err != nil {
		return err
	}

	b, _ := p.player.Bound()
	if state == playback.StatePlaying {
		fmt.Fprintf(out, "Playing %s\n", b.Name)
	} else {
		fmt.Fprintf(out, "Paused %s at %s\n", b.Name, p.player.Position().Round(100*time.Millisecond))
	}
	return nil
}

func (p *Page) cmdStop(out io.Writer) error {
	if p.player == nil {
		return errors.New("playback is unavailable")
	}
	if err := p.player.Stop(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Stopped")
	return nil
}

// bind makes f the file the player controls
func (p *Page) bind(out io.Writer, f intake.UploadedFile) {
	if p.player == nil || f.Handle.IsZero() {
		return
	}
	if err := p.player.Bind(playback.Binding{Name: f.Name, MimeType: f.MimeType, Handle: f.Handle}); err != nil {
		fmt.Fprintf(out, "Warning: %s cannot be played: %v\n", f.Name, err)
	}
}

func (p *Page) cmdAnalyze(ctx context.Context, out io.Writer, mode Mode) error {
	if mode != ModeAnalyze {
		return errors.New("analyze is only available on the analyze page (try 'match')")
	}
	files := p.tests.Files()
	if err := p.submit(ctx, coordinator.Request{Kind: coordinator.KindAnalyze, Files: files}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Analyzing %s...\n", files[0].Name)
	return nil
}

func (p *Page) cmdMatch(ctx context.Context, out io.Writer, mode Mode) error {
	if mode != ModeMatch {
		return errors.New("match is only available on the match page (try 'page match')")
	}
	tests, refs := p.tests.Files(), p.refs.Files()
	if err := p.submit(ctx, coordinator.Request{Kind: coordinator.KindMatch, Files: tests, References: refs}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Matching %d test file(s) against %d reference(s)...\n", len(tests), len(refs))
	return nil
}

func (p *Page) cmdFeatures(ctx context.Context, out io.Writer, mode Mode, args []string) error {
	in, rest := p.target(mode, args)
	index := 0
	if len(rest) == 1 {
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid position %q", rest[0])
		}
		index = n - 1
	}

	var files []intake.UploadedFile
	if f, ok := in.Get(index); ok {
		files = append(files, f)
	}
	if err := p.submit(ctx, coordinator.Request{Kind: coordinator.KindFeatures, Files: files}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Computing visualization for %s...\n", files[0].Name)
	return nil
}

// submit maps coordinator refusals to user-facing errors
func (p *Page) submit(ctx context.Context, req coordinator.Request) error {
	err := p.start(ctx, req)
	switch {
	case errors.Is(err, coordinator.ErrInputRejected):
		if req.Kind == coordinator.KindMatch {
			return errors.New("add at least one test file and one reference file first")
		}
		return errors.New("select an audio file first")
	case errors.Is(err, coordinator.ErrBusy):
		return errors.New("a request is already running, wait for it to finish")
	}
	return err
}

func (p *Page) cmdShow(out io.Writer, mode Mode, args []string) error {
	view := report.ViewAll
	if mode == ModeMatch {
		view = report.ViewMatches
	}
	if len(args) > 0 {
		view = strings.ToLower(args[0])
	}

	err := p.presenter.Render(out, view)
	if errors.Is(err, report.ErrNoResult) {
		return fmt.Errorf("no results yet, run '%s' first", mode)
	}
	return err
}

func (p *Page) cmdExport(out io.Writer, mode Mode) error {
	if mode != ModeAnalyze {
		return errors.New("only analysis results can be exported")
	}
	location, ok, err := p.presenter.Export(p.platform)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Nothing to export yet")
		return nil
	}
	fmt.Fprintf(out, "Report saved to %s\n", location)
	return nil
}

func (p *Page) cmdStatus(out io.Writer) {
	p.mu.Lock()
	mode := p.mode
	p.mu.Unlock()

	fmt.Fprintf(out, "Page:       %s\n", mode)
	if mode == ModeMatch {
		fmt.Fprintf(out, "Files:      %d test, %d reference\n", p.tests.Len(), p.refs.Len())
	} else {
		fmt.Fprintf(out, "Files:      %d\n", p.tests.Len())
	}

	if p.player == nil {
		fmt.Fprintf(out, "Playback:   unavailable\n")
	} else if b, ok := p.player.Bound(); ok {
		fmt.Fprintf(out, "Playback:   %s (%s)\n", p.player.State(), b.Name)
	} else {
		fmt.Fprintf(out, "Playback:   %s\n", p.player.State())
	}

	request := "idle"
	if p.coord.InFlight() {
		request = "in flight"
	}
	fmt.Fprintf(out, "Request:    %s\n", request)

	result := "none"
	if a, ok := p.presenter.Analysis(); ok {
		result = "analysis of " + a.Filename
	} else if m := p.presenter.Matches(); len(m) > 0 {
		result = fmt.Sprintf("%d match result(s)", len(m))
	}
	fmt.Fprintf(out, "Result:     %s\n", result)
}

func (p *Page) cmdPage(out io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: page <analyze|match>")
	}
	mode, err := ParseMode(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	p.Reset(mode)
	fmt.Fprintf(out, "Switched to the %s page\n", mode)
	return nil
}

func printFeatures(out io.Writer, data json.RawMessage) {
	var f analysis.Features
	if err := json.Unmarshal(data, &f); err != nil {
		fmt.Fprintf(out, "Received %s of visualization data\n", humanize.Bytes(uint64(len(data))))
		return
	}

	source := "decoded"
	if f.Simulated {
		source = "simulated"
	}
	fmt.Fprintf(out, "Visualization of %s (%s)\n", f.Filename, source)
	fmt.Fprintf(out, "  %-10s %d buckets, peak %.3f, mean %.3f\n", "Waveform", len(f.Waveform), f.Stats.Peak, f.Stats.Mean)
	fmt.Fprintf(out, "  %-10s %d bands\n", "Spectrum", len(f.Spectrum))
	fmt.Fprintf(out, "  %s\n", sparkline(f.Spectrum, 64))
}

// sparkline draws byte-scaled levels in width columns
func sparkline(levels []int, width int) string {
	if len(levels) == 0 {
		return ""
	}
	glyphs := []rune(" .:-=+*#%@")
	var b strings.Builder
	for i := 0; i < width; i++ {
		start := i * len(levels) / width
		end := (i + 1) * len(levels) / width
		if end <= start {
			end = start + 1
		}
		peak := 0
		for _, v := range levels[start:min(end, len(levels))] {
			peak = max(peak, v)
		}
		b.WriteRune(glyphs[min(peak*len(glyphs)/256, len(glyphs)-1)])
	}
	return b.String()
}

func printHelp(out io.Writer, mode Mode) {
	fmt.Fprintf(out, "Commands (%s page):\n", mode)
	if mode == ModeMatch {
		fmt.Fprintf(out, "  add [test|ref] <path>...  Add audio files or directories\n")
		fmt.Fprintf(out, "  remove [test|ref] <n>     Remove a file by position\n")
		fmt.Fprintf(out, "  play [test|ref] [n]       Play or pause a file\n")
		fmt.Fprintf(out, "  match                     Match test files against references\n")
		fmt.Fprintf(out, "  features [test|ref] [n]   Visualize a file\n")
		fmt.Fprintf(out, "  show                      Show the match table\n")
	} else {
		fmt.Fprintf(out, "  add <path>                Select the file to analyze\n")
		fmt.Fprintf(out, "  remove 1                  Clear the selection\n")
		fmt.Fprintf(out, "  play | toggle             Play or pause the selected file\n")
		fmt.Fprintf(out, "  analyze                   Analyze the selected file\n")
		fmt.Fprintf(out, "  features                  Visualize the selected file\n")
		fmt.Fprintf(out, "  show [view]               Show results (%s)\n", strings.Join(append([]string{report.ViewAll}, report.Views...), ", "))
		fmt.Fprintf(out, "  export                    Save the analysis report as JSON\n")
	}
	fmt.Fprintf(out, "  list                      List loaded files\n")
	fmt.Fprintf(out, "  stop                      Stop playback\n")
	fmt.Fprintf(out, "  status                    Show the session state\n")
	fmt.Fprintf(out, "  wait                      Wait for the running request\n")
	fmt.Fprintf(out, "  reset                     Start a fresh session of this page\n")
	fmt.Fprintf(out, "  page <analyze|match>      Switch page\n")
	fmt.Fprintf(out, "  help                      Show this help\n")
	fmt.Fprintf(out, "  exit                      Leave the shell\n")
}
