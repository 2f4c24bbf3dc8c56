package main

import (
	"github.com/spf13/cobra"

	"github.com/manash/designgen/internal/repl"
	"github.com/manash/designgen/internal/session"
)

func newREPLCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "repl",
		Aliases: []string{"interactive", "i"},
		Short:   "Start interactive design mode",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runREPL(app)
		},
	}
}

func runREPL(app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(app)
	if err != nil {
		return err
	}
	backend, err := app.NewBackend(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(app, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var r *repl.REPL
	manager := session.NewManager(store, backend, session.Options{
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
		PreviewBase:     previewBase(cfg),
		OnPreview:       func(p session.Preview) { r.NotifyPreview(p) },
	})
	defer manager.Close()

	r = repl.New(&repl.Config{
		In:      app.In,
		Out:     app.Out,
		Err:     app.Err,
		Backend: backend,
		Manager: manager,
	})
	return r.Run(ctx)
}
