package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manash/designgen/internal/config"
	"github.com/manash/designgen/internal/display"
	"github.com/manash/designgen/internal/export"
	"github.com/manash/designgen/internal/poll"
	"github.com/manash/designgen/internal/provider"
	"github.com/manash/designgen/internal/security"
	"github.com/manash/designgen/pkg/models"
)

var (
	flagWait   bool
	flagSave   bool
	flagJSON   bool
	flagOutput string
)

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&flagWait, "wait", "w", false, "wait for the 3D preview to finish rendering")
	cmd.Flags().BoolVarP(&flagSave, "save", "s", false, "add the design to the saved list")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "print the design as JSON")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the design to a .json or .yaml file")
}

func newGenerateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate <prompt>",
		Aliases: []string{"gen"},
		Short:   "Generate a design from a prompt",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runGenerate(app, args)
		},
	}
	addGenerateFlags(cmd)
	return cmd
}

func runGenerate(app *App, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	prompt := strings.Join(args, " ")
	if err := models.ValidatePrompt(prompt); err != nil {
		return err
	}

	cfg, err := loadConfig(app)
	if err != nil {
		return err
	}
	backend, err := app.NewBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}

	if !flagJSON {
		fmt.Fprintln(app.Out, "Generating design...")
	}
	generated, err := backend.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	design := generated.Design

	printer := display.New(app.Out)
	if flagJSON {
		if err := printer.JSON(design); err != nil {
			return err
		}
	} else {
		printer.Design(design)
	}

	if flagOutput != "" {
		if err := export.New().Save(design, flagOutput); err != nil {
			return err
		}
		fmt.Fprintf(app.Err, "Saved: %s\n", flagOutput)
	}

	if flagSave {
		store, err := openStore(app, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		saved, err := store.SaveDesign(ctx, design)
		if err != nil {
			return fmt.Errorf("failed to save design: %w", err)
		}
		fmt.Fprintf(app.Err, "Saved design %s\n", saved.ID)
	}

	switch {
	case generated.PreviewURL != "":
		fmt.Fprintf(app.Err, "Preview: %s\n", resolvePreview(cfg, generated.PreviewURL))
	case flagWait && design.ID != 0:
		return waitPreview(ctx, app, cfg, backend, design.ID)
	}
	return nil
}

// waitPreview polls the backend until the preview for designID settles.
func waitPreview(ctx context.Context, app *App, cfg *config.Config, backend provider.Backend, designID int64) error {
	fmt.Fprintln(app.Err, "Waiting for preview...")

	p := poll.New(func(ctx context.Context) (*models.StatusResponse, error) {
		return backend.Status(ctx, designID)
	})
	p.Interval = cfg.PollInterval
	p.MaxAttempts = cfg.MaxPollAttempts

	status, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("preview for design %d: %w", designID, err)
	}

	fmt.Fprintf(app.Err, "Preview: %s\n", resolvePreview(cfg, status.PreviewURL))
	return nil
}

func resolvePreview(cfg *config.Config, ref string) string {
	base := previewBase(cfg)
	if base == "" {
		return ref
	}
	resolved, err := security.ResolveURL(base, ref)
	if err != nil {
		return ref
	}
	return resolved
}

func newEvaluateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "evaluate <design-id> <rating> [feedback]",
		Aliases: []string{"rate"},
		Short:   "Rate a design from 1 to 5",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runEvaluate(app, args)
		},
	}
}

func runEvaluate(app *App, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	designID, err := parseDesignID(args[0])
	if err != nil {
		return err
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", models.ErrInvalidRating, args[1])
	}

	req := &models.EvaluateRequest{
		DesignID: designID,
		Rating:   rating,
		Feedback: strings.Join(args[2:], " "),
	}
	if err := req.Validate(); err != nil {
		return err
	}

	backend, err := backendFromConfig(app)
	if err != nil {
		return err
	}

	resp, err := backend.Evaluate(ctx, req)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	fmt.Fprintln(app.Out, resp.Feedback)
	if resp.NextIteration != nil {
		fmt.Fprintln(app.Out)
		fmt.Fprintln(app.Out, "Suggested next iteration:")
		display.New(app.Out).Design(resp.NextIteration)
	}
	return nil
}

func newIterateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iterate <design-id> [feedback]",
		Short: "Refine a design",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runIterate(app, args)
		},
	}
	cmd.Flags().BoolVar(&flagJSON, "json", false, "print the design as JSON")
	return cmd
}

func runIterate(app *App, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	designID, err := parseDesignID(args[0])
	if err != nil {
		return err
	}
	req := &models.IterateRequest{
		DesignID: designID,
		Feedback: strings.Join(args[1:], " "),
	}

	backend, err := backendFromConfig(app)
	if err != nil {
		return err
	}

	design, err := backend.Iterate(ctx, req)
	if err != nil {
		return fmt.Errorf("iteration failed: %w", err)
	}

	printer := display.New(app.Out)
	if flagJSON {
		return printer.JSON(design)
	}
	printer.Design(design)
	return nil
}

func newAssetsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List the backend's sample assets",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			backend, err := backendFromConfig(app)
			if err != nil {
				return err
			}
			assets, err := backend.Assets(ctx)
			if err != nil {
				return err
			}
			display.New(app.Out).Assets(assets)
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <design-id>",
		Short: "Check the preview status of a design",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runStatus(app, args)
		},
	}
}

func runStatus(app *App, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	designID, err := parseDesignID(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(app)
	if err != nil {
		return err
	}
	backend, err := app.NewBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}

	status, err := backend.Status(ctx, designID)
	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return fmt.Errorf("no preview job for design %d", designID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Status: %s\n", status.Status)
	switch status.Status {
	case models.JobCompleted:
		fmt.Fprintf(app.Out, "Preview: %s\n", resolvePreview(cfg, status.PreviewURL))
	case models.JobFailed:
		fmt.Fprintf(app.Out, "Error: %s\n", status.Error)
	}
	return nil
}

func backendFromConfig(app *App) (provider.Backend, error) {
	cfg, err := loadConfig(app)
	if err != nil {
		return nil, err
	}
	backend, err := app.NewBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	return backend, nil
}

func parseDesignID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid design id %q", s)
	}
	return id, nil
}
