package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/audion-app/audion/internal/report"
)

// Run reads commands interactively until exit, EOF, interrupt or ctx cancellation
func Run(ctx context.Context, p *Page) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Printf("Warning: Could not get home directory: %v\n", err)
		homeDir = "."
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt(p.Mode()),
		HistoryFile:     filepath.Join(homeDir, ".audion_history"),
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	p.SetOutput(rl.Stdout())
	defer p.SetOutput(os.Stdout)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			rl.Close()
		case <-stop:
		}
	}()

	fmt.Fprintf(rl.Stdout(), "audion shell, %s page. Type 'help' for commands.\n", p.Mode())
	for {
		input, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				fmt.Fprintln(rl.Stdout(), "Exiting audion shell...")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		if !p.Execute(ctx, input) {
			return nil
		}
		rl.SetPrompt(prompt(p.Mode()))
	}
}

// RunScript executes commands from r one per line, waiting for each request
// to be applied before the next line runs.
func RunScript(ctx context.Context, p *Page, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quit := !p.Execute(ctx, line)
		p.Wait()
		if quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

func prompt(mode Mode) string {
	return fmt.Sprintf("audion[%s]> ", mode)
}

func completer() *readline.PrefixCompleter {
	side := func(children ...readline.PrefixCompleterInterface) []readline.PrefixCompleterInterface {
		return []readline.PrefixCompleterInterface{
			readline.PcItem("test", children...),
			readline.PcItem("ref", children...),
		}
	}
	files := readline.PcItemDynamic(listFiles)

	views := []readline.PrefixCompleterInterface{readline.PcItem("all"), readline.PcItem("matches")}
	for _, v := range report.Views {
		views = append(views, readline.PcItem(v))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("add", append(side(files), files)...),
		readline.PcItem("remove", side()...),
		readline.PcItem("list"),
		readline.PcItem("play", side()...),
		readline.PcItem("toggle"),
		readline.PcItem("stop"),
		readline.PcItem("analyze"),
		readline.PcItem("match"),
		readline.PcItem("features", side()...),
		readline.PcItem("show", views...),
		readline.PcItem("export"),
		readline.PcItem("status"),
		readline.PcItem("wait"),
		readline.PcItem("reset"),
		readline.PcItem("page", readline.PcItem(string(ModeAnalyze)), readline.PcItem(string(ModeMatch))),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// listFiles completes paths relative to the directory being typed
func listFiles(line string) []string {
	fields := strings.Fields(line)
	partial := ""
	if len(fields) > 1 && !strings.HasSuffix(line, " ") {
		partial = fields[len(fields)-1]
	}

	dir := filepath.Dir(partial)
	if partial == "" || strings.HasSuffix(partial, string(filepath.Separator)) {
		dir = partial
	}
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := e.Name()
		if dir != "." || strings.HasPrefix(partial, "./") {
			name = filepath.Join(dir, name)
		}
		if e.IsDir() {
			name += string(filepath.Separator)
		}
		names = append(names, name)
	}
	return names
}
