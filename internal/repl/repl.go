package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/manash/designgen/internal/display"
	"github.com/manash/designgen/internal/export"
	"github.com/manash/designgen/internal/provider"
	"github.com/manash/designgen/internal/session"
)

const defaultBusyAfter = 2 * time.Second

type REPL struct {
	in       io.Reader
	out      io.Writer
	err      io.Writer
	backend  provider.Backend
	manager  *session.Manager
	printer  *display.Printer
	exporter *export.Exporter
	commands map[string]Command
	busy     *notice
	running  bool
}

type Config struct {
	In       io.Reader
	Out      io.Writer
	Err      io.Writer
	Backend  provider.Backend
	Manager  *session.Manager
	Exporter *export.Exporter
	// BusyAfter is how long a request may run before a "still working"
	// notice is printed. Zero uses the default; negative disables it.
	BusyAfter time.Duration
}

func New(cfg *Config) *REPL {
	// Preview notifications arrive from the polling goroutine, so all
	// output goes through one lock.
	var mu sync.Mutex
	out := &lockedWriter{mu: &mu, w: cfg.Out}
	errOut := &lockedWriter{mu: &mu, w: cfg.Err}

	printer := display.NewWithTerminal(out, cfg.Out)

	busyAfter := cfg.BusyAfter
	if busyAfter == 0 {
		busyAfter = defaultBusyAfter
	}

	exporter := cfg.Exporter
	if exporter == nil {
		exporter = export.New()
	}

	r := &REPL{
		in:       cfg.In,
		out:      out,
		err:      errOut,
		backend:  cfg.Backend,
		manager:  cfg.Manager,
		printer:  printer,
		exporter: exporter,
		commands: make(map[string]Command),
		busy:     &notice{out: out, delay: busyAfter},
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	defer r.busy.Stop()

	r.loadTheme(ctx)
	r.printWelcome(ctx)

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

// NotifyPreview reports a settled preview. It is safe to call from any
// goroutine.
func (r *REPL) NotifyPreview(p session.Preview) {
	switch p.State {
	case session.PreviewReady:
		fmt.Fprintf(r.out, "\nPreview ready for design %d: %s\n", p.DesignID, p.URL)
	case session.PreviewFailed:
		fmt.Fprintf(r.out, "\nPreview unavailable for design %d: %v\n", p.DesignID, p.Err)
	}
}

// withBusyNotice runs fn, printing a notice if it is still running after
// the configured delay.
func (r *REPL) withBusyNotice(msg string, fn func() error) error {
	r.busy.Start(msg)
	defer r.busy.Stop()
	return fn()
}

func (r *REPL) loadTheme(ctx context.Context) {
	theme, err := r.manager.Store().Theme(ctx)
	if err != nil {
		fmt.Fprintf(r.err, "Warning: failed to read theme: %v\n", err)
		return
	}
	r.printer.SetTheme(theme)
}

func (r *REPL) printWelcome(ctx context.Context) {
	fmt.Fprintln(r.out, r.printer.Heading("designgen interactive mode"))
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")

	store := r.manager.Store()
	visited, err := store.HasVisited(ctx)
	if err != nil {
		fmt.Fprintf(r.err, "Warning: %v\n", err)
	}
	if !visited {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, "First time here? Describe a piece of furniture to get started:")
		fmt.Fprintln(r.out, r.printer.Muted(`  generate "a modern wooden dining table"`))
		fmt.Fprintln(r.out, r.printer.Muted("  then try: evaluate 4, iterate make it taller, material oak, save"))
		if err := store.MarkVisited(ctx); err != nil {
			fmt.Fprintf(r.err, "Warning: %v\n", err)
		}
	}
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	if d := r.manager.Current(); d != nil {
		fmt.Fprintf(r.out, "designgen [%s #%d]> ", d.Type, max(d.Iteration, 1))
		return
	}
	fmt.Fprint(r.out, "designgen> ")
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// notice prints a message once if it is not stopped within delay. The timer
// belongs to the REPL and is stopped when the call returns and on exit.
type notice struct {
	out   io.Writer
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   int // bumped by Start and Stop; a timer only prints for its own gen
}

func (n *notice) Start(msg string) {
	if n.delay < 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.timer = time.AfterFunc(n.delay, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.gen == gen {
			fmt.Fprintln(n.out, msg)
			n.gen++
		}
	})
}

// Stop cancels a pending notice. Once Stop returns the notice will not print.
func (n *notice) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
