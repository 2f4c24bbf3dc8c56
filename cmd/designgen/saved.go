package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/manash/designgen/internal/display"
	"github.com/manash/designgen/internal/export"
	"github.com/manash/designgen/internal/session"
)

func newSavedCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved designs",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withStore(app, runSavedList)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved designs",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withStore(app, runSavedList)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id|#>",
		Short: "Show a saved design",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(app, func(ctx context.Context, app *App, store *session.Store) error {
				saved, err := store.GetSaved(ctx, args[0])
				if err != nil {
					return err
				}
				printer, err := themedPrinter(ctx, app, store)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Saved %s (%s)\n\n", session.FormatTimestamp(saved.Timestamp), saved.ID)
				printer.Design(saved.Spec)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "delete <id|#>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved design",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(app, func(ctx context.Context, app *App, store *session.Store) error {
				if err := store.DeleteSaved(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Deleted saved design %s\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export <id|#> [path]",
		Short: "Write a saved design to a .json or .yaml file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(app, func(ctx context.Context, app *App, store *session.Store) error {
				saved, err := store.GetSaved(ctx, args[0])
				if err != nil {
					return err
				}

				exporter := export.New()
				if len(args) == 1 {
					path, err := exporter.SaveInDir(saved.Spec, ".", export.FormatJSON)
					if err != nil {
						return err
					}
					fmt.Fprintf(app.Out, "Exported to %s\n", path)
					return nil
				}

				exporter.AllowAbsolute = filepath.IsAbs(args[1])
				if err := exporter.Save(saved.Spec, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Exported to %s\n", args[1])
				return nil
			})
		},
	})

	return cmd
}

func runSavedList(ctx context.Context, app *App, store *session.Store) error {
	saved, err := store.SavedDesigns(ctx)
	if err != nil {
		return err
	}
	printer, err := themedPrinter(ctx, app, store)
	if err != nil {
		return err
	}
	printer.SavedList(saved)
	return nil
}

func newThemeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "theme [dark|light]",
		Short: "Show or set the color theme",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(app, func(ctx context.Context, app *App, store *session.Store) error {
				if len(args) == 0 {
					theme, err := store.Theme(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(app.Out, "Theme: %s\n", theme)
					return nil
				}

				theme, err := store.SetTheme(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Theme set to %s\n", theme)
				return nil
			})
		},
	}
}

// withStore opens the configured store for the duration of fn.
func withStore(app *App, fn func(ctx context.Context, app *App, store *session.Store) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(app)
	if err != nil {
		return err
	}
	store, err := openStore(app, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, app, store)
}

func themedPrinter(ctx context.Context, app *App, store *session.Store) (*display.Printer, error) {
	theme, err := store.Theme(ctx)
	if err != nil {
		return nil, err
	}
	printer := display.New(app.Out)
	printer.SetTheme(theme)
	return printer, nil
}
