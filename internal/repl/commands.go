package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/manash/designgen/internal/export"
	"github.com/manash/designgen/internal/session"
	"github.com/manash/designgen/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func commandList() []Command {
	return []Command{
		&GenerateCommand{},
		&EvaluateCommand{},
		&IterateCommand{},
		&MaterialCommand{},
		&UndoCommand{},
		&ShowCommand{},
		&JSONCommand{},
		&PreviewCommand{},
		&SaveCommand{},
		&SavedCommand{},
		&LoadCommand{},
		&DeleteCommand{},
		&ExportCommand{},
		&AssetsCommand{},
		&HistoryCommand{},
		&ThemeCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range commandList() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// GenerateCommand creates a new design from a prompt
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate a new design from a prompt" }
func (c *GenerateCommand) Usage() string       { return "generate <prompt>" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	prompt := strings.Join(args, " ")
	if err := models.ValidatePrompt(prompt); err != nil {
		return err
	}

	fmt.Fprintln(r.out, "Generating design...")

	var design *models.Design
	err := r.withBusyNotice("Still working on your design...", func() error {
		var err error
		design, err = r.manager.Generate(ctx, prompt)
		return err
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Fprintln(r.out)
	r.printer.Design(design)
	printPreviewState(r, r.manager.Preview())
	return nil
}

// EvaluateCommand rates the current design
type EvaluateCommand struct{}

func (c *EvaluateCommand) Name() string        { return "evaluate" }
func (c *EvaluateCommand) Aliases() []string   { return []string{"rate", "e"} }
func (c *EvaluateCommand) Description() string { return "Rate the current design from 1 to 5" }
func (c *EvaluateCommand) Usage() string       { return "evaluate <1-5> [feedback]" }

func (c *EvaluateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	rating, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", models.ErrInvalidRating, args[0])
	}
	feedback := strings.Join(args[1:], " ")

	var resp *models.EvaluateResponse
	err = r.withBusyNotice("Still evaluating...", func() error {
		var err error
		resp, err = r.manager.Evaluate(ctx, rating, feedback)
		return err
	})
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	fmt.Fprintln(r.out, resp.Feedback)
	if next := resp.NextIteration; next != nil {
		fmt.Fprintf(r.out, "Suggested next iteration (#%d):\n", next.Iteration)
		for _, imp := range next.Improvements {
			fmt.Fprintf(r.out, "  - %s\n", imp)
		}
		fmt.Fprintln(r.out, r.printer.Muted("Run 'iterate' to apply it."))
	}
	return nil
}

// IterateCommand refines the current design
type IterateCommand struct{}

func (c *IterateCommand) Name() string        { return "iterate" }
func (c *IterateCommand) Aliases() []string   { return []string{"it", "refine"} }
func (c *IterateCommand) Description() string { return "Refine the current design" }
func (c *IterateCommand) Usage() string       { return "iterate [feedback]" }

func (c *IterateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if !r.manager.HasDesign() {
		return fmt.Errorf("%w (generate or load one first)", session.ErrNoDesign)
	}

	feedback := strings.Join(args, " ")
	fmt.Fprintln(r.out, "Refining design...")

	var design *models.Design
	err := r.withBusyNotice("Still refining...", func() error {
		var err error
		design, err = r.manager.Iterate(ctx, feedback)
		return err
	})
	if err != nil {
		return fmt.Errorf("iteration failed: %w", err)
	}

	fmt.Fprintln(r.out)
	r.printer.Design(design)
	return nil
}

// MaterialCommand changes the material of the current design
type MaterialCommand struct{}

func (c *MaterialCommand) Name() string        { return "material" }
func (c *MaterialCommand) Aliases() []string   { return []string{"mat"} }
func (c *MaterialCommand) Description() string { return "Change the material of the current design" }
func (c *MaterialCommand) Usage() string       { return "material <name>" }

func (c *MaterialCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	design, err := r.manager.SetMaterial(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Material set to %s\n", design.Material)
	return nil
}

// UndoCommand returns to the previous design
type UndoCommand struct{}

func (c *UndoCommand) Name() string        { return "undo" }
func (c *UndoCommand) Aliases() []string   { return []string{"u", "back"} }
func (c *UndoCommand) Description() string { return "Return to the design this one was derived from" }
func (c *UndoCommand) Usage() string       { return "undo" }

func (c *UndoCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	design, err := r.manager.Undo(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, "Reverted to previous design:")
	r.printer.Design(design)
	return nil
}

// ShowCommand prints the current design
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"s"} }
func (c *ShowCommand) Description() string { return "Show the current design" }
func (c *ShowCommand) Usage() string       { return "show" }

func (c *ShowCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.printer.Design(r.manager.Current())
	return nil
}

// JSONCommand prints the current design as JSON
type JSONCommand struct{}

func (c *JSONCommand) Name() string        { return "json" }
func (c *JSONCommand) Aliases() []string   { return []string{"raw"} }
func (c *JSONCommand) Description() string { return "Print the current design as JSON" }
func (c *JSONCommand) Usage() string       { return "json" }

func (c *JSONCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	design := r.manager.Current()
	if design == nil {
		return session.ErrNoDesign
	}
	return r.printer.JSON(design)
}

// PreviewCommand shows the 3D preview state
type PreviewCommand struct{}

func (c *PreviewCommand) Name() string        { return "preview" }
func (c *PreviewCommand) Aliases() []string   { return []string{"p"} }
func (c *PreviewCommand) Description() string { return "Show the 3D preview status" }
func (c *PreviewCommand) Usage() string       { return "preview [wait]" }

func (c *PreviewCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if !r.manager.HasDesign() {
		return session.ErrNoDesign
	}

	preview := r.manager.Preview()
	if len(args) > 0 && strings.EqualFold(args[0], "wait") && preview.State == session.PreviewPending {
		fmt.Fprintln(r.out, "Waiting for preview...")
		preview = r.manager.WaitPreview(ctx)
	}

	printPreviewState(r, preview)
	return nil
}

func printPreviewState(r *REPL, p session.Preview) {
	switch p.State {
	case session.PreviewPending:
		fmt.Fprintln(r.out, r.printer.Muted("Preview is rendering in the background."))
	case session.PreviewReady:
		fmt.Fprintf(r.out, "Preview: %s\n", p.URL)
	case session.PreviewFailed:
		fmt.Fprintf(r.out, "Preview unavailable: %v\n", p.Err)
	default:
		fmt.Fprintln(r.out, r.printer.Muted("No preview for this design."))
	}
}

// SaveCommand keeps the current design
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"keep"} }
func (c *SaveCommand) Description() string { return "Save the current design" }
func (c *SaveCommand) Usage() string       { return "save" }

func (c *SaveCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	saved, err := r.manager.Save(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Saved design %s\n", saved.ID)
	return nil
}

// SavedCommand lists saved designs
type SavedCommand struct{}

func (c *SavedCommand) Name() string        { return "saved" }
func (c *SavedCommand) Aliases() []string   { return []string{"list", "ls"} }
func (c *SavedCommand) Description() string { return "List saved designs" }
func (c *SavedCommand) Usage() string       { return "saved" }

func (c *SavedCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	saved, err := r.manager.Store().SavedDesigns(ctx)
	if err != nil {
		return err
	}

	r.printer.SavedList(saved)
	return nil
}

// LoadCommand makes a saved design current
type LoadCommand struct{}

func (c *LoadCommand) Name() string        { return "load" }
func (c *LoadCommand) Aliases() []string   { return []string{"open"} }
func (c *LoadCommand) Description() string { return "Load a saved design" }
func (c *LoadCommand) Usage() string       { return "load <id|#>" }

func (c *LoadCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	saved, err := r.manager.Load(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Loaded design saved %s\n", session.FormatTimestamp(saved.Timestamp))
	r.printer.Design(saved.Spec)
	return nil
}

// DeleteCommand removes a saved design
type DeleteCommand struct{}

func (c *DeleteCommand) Name() string        { return "delete" }
func (c *DeleteCommand) Aliases() []string   { return []string{"rm"} }
func (c *DeleteCommand) Description() string { return "Delete a saved design" }
func (c *DeleteCommand) Usage() string       { return "delete <id|#>" }

func (c *DeleteCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	if err := r.manager.Store().DeleteSaved(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Deleted saved design %s\n", args[0])
	return nil
}

// ExportCommand writes the current design to a file
type ExportCommand struct{}

func (c *ExportCommand) Name() string        { return "export" }
func (c *ExportCommand) Aliases() []string   { return []string{"x"} }
func (c *ExportCommand) Description() string { return "Write the current design to a JSON or YAML file" }
func (c *ExportCommand) Usage() string       { return "export [filename.json|filename.yaml]" }

func (c *ExportCommand) Execute(_ context.Context, r *REPL, args []string) error {
	design := r.manager.Current()
	if design == nil {
		return session.ErrNoDesign
	}

	if len(args) == 0 {
		path, err := r.exporter.SaveInDir(design, ".", export.FormatJSON)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Exported to %s\n", path)
		return nil
	}

	if err := r.exporter.Save(design, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Exported to %s\n", args[0])
	return nil
}

// AssetsCommand lists the backend's sample assets
type AssetsCommand struct{}

func (c *AssetsCommand) Name() string        { return "assets" }
func (c *AssetsCommand) Aliases() []string   { return nil }
func (c *AssetsCommand) Description() string { return "List sample assets from the backend" }
func (c *AssetsCommand) Usage() string       { return "assets" }

func (c *AssetsCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	assets, err := r.backend.Assets(ctx)
	if err != nil {
		return err
	}

	r.printer.Assets(assets)
	return nil
}

// HistoryCommand shows designs from this and earlier sessions
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h"} }
func (c *HistoryCommand) Description() string { return "Show recent designs" }
func (c *HistoryCommand) Usage() string       { return "history [limit]" }

func (c *HistoryCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		limit = n
	}

	entries, err := r.manager.History(ctx, limit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No history yet")
		return nil
	}

	fmt.Fprintln(r.out, "Recent designs:")
	for _, e := range entries {
		fmt.Fprintf(r.out, "  [%d] %s %-8s %-6s %s\n",
			e.ID, session.FormatTimestamp(e.Timestamp), e.Operation, e.Design.Type, truncate(e.Design.Prompt, 40))
	}
	return nil
}

// ThemeCommand shows or changes the color theme
type ThemeCommand struct{}

func (c *ThemeCommand) Name() string        { return "theme" }
func (c *ThemeCommand) Aliases() []string   { return nil }
func (c *ThemeCommand) Description() string { return "Show or set the color theme" }
func (c *ThemeCommand) Usage() string       { return "theme [dark|light]" }

func (c *ThemeCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	store := r.manager.Store()

	if len(args) == 0 {
		theme, err := store.Theme(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Theme: %s\n", theme)
		return nil
	}

	theme, err := store.SetTheme(ctx, args[0])
	if err != nil {
		return err
	}
	r.printer.SetTheme(theme)
	fmt.Fprintf(r.out, "Theme set to %s\n", theme)
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range commandList() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-24s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "                          Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
