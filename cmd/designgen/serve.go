package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/manash/designgen/internal/fixture"
	"github.com/manash/designgen/internal/preview"
	"github.com/manash/designgen/internal/server"
)

var (
	flagHost      string
	flagPort      string
	flagLogFormat string
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mock design backend",
		Long: `Run the mock design backend.

Every prompt is answered with a canned design for its furniture category
after an artificial delay. Previews become ready after DESIGNGEN_PREVIEW_DELAY.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(app)
		},
	}

	cmd.Flags().StringVar(&flagHost, "host", "", "listen host (defaults to DESIGNGEN_HOST)")
	cmd.Flags().StringVarP(&flagPort, "port", "p", "", "listen port (defaults to DESIGNGEN_PORT)")
	cmd.Flags().StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")

	return cmd
}

func runServe(app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(app)
	if err != nil {
		return err
	}
	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort != "" {
		cfg.Port = flagPort
	}

	logger, err := newLogger(app, flagLogFormat, cfg.Verbose)
	if err != nil {
		return err
	}

	selector, err := newSelector(cfg)
	if err != nil {
		return err
	}
	previews := preview.NewTracker(preview.Options{
		ReadyAfter: cfg.PreviewDelay,
		FailRate:   cfg.PreviewFailRate,
	})

	srv := server.New(selector, previews, server.Options{
		Latency:   fixture.Latency{Min: cfg.LatencyMin, Max: cfg.LatencyMax},
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Logger:    logger,
	})

	logger.Info("mock backend configured",
		"latency_min", cfg.LatencyMin,
		"latency_max", cfg.LatencyMax,
		"preview_delay", cfg.PreviewDelay,
		"rate_limit", cfg.RateLimit,
	)
	return srv.ListenAndServe(ctx, cfg.Addr())
}

func newLogger(app *App, format string, verbose bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(app.Err, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(app.Err, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}
}
