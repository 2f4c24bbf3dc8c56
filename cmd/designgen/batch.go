package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/manash/designgen/internal/batch"
	"github.com/manash/designgen/internal/export"
)

var (
	flagOutputDir   string
	flagFormat      string
	flagParallel    int
	flagStopOnError bool
	flagDelay       time.Duration
)

func newBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Generate designs for every prompt in a file",
		Long: `Generate designs for every prompt in a file and export each one.

Supported input formats:
  .txt         one prompt per line, # starts a comment
  .json        [{"prompt": "...", "material": "...", "name": "..."}]
  .yaml/.yml   the same fields as a YAML list`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBatch(app, args[0])
		},
	}

	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "d", ".", "directory for exported designs")
	cmd.Flags().StringVarP(&flagFormat, "format", "f", "json", "export format (json, yaml)")
	cmd.Flags().IntVarP(&flagParallel, "parallel", "p", 1, "number of concurrent requests")
	cmd.Flags().BoolVar(&flagStopOnError, "stop-on-error", false, "stop at the first failed prompt")
	cmd.Flags().DurationVar(&flagDelay, "delay", 0, "delay between sequential requests")

	return cmd
}

func runBatch(app *App, path string) error {
	ctx, cancel := signalContext()
	defer cancel()

	format, err := export.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	if flagParallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", flagParallel)
	}

	items, err := batch.ParseFile(path)
	if err != nil {
		return err
	}

	backend, err := backendFromConfig(app)
	if err != nil {
		return err
	}

	exporter := export.New()
	exporter.AllowAbsolute = filepath.IsAbs(flagOutputDir)

	fmt.Fprintf(app.Out, "Processing %d prompt(s)...\n", len(items))

	processor := batch.NewProcessor(backend, exporter, app.Out, app.Err)
	results, err := processor.Process(ctx, items, &batch.Options{
		OutputDir:   flagOutputDir,
		Format:      format,
		Parallel:    flagParallel,
		StopOnError: flagStopOnError,
		Delay:       flagDelay,
	})
	processor.PrintSummary(results)
	return err
}
