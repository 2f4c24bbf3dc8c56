package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/manash/designgen/internal/config"
	"github.com/manash/designgen/internal/fixture"
	"github.com/manash/designgen/internal/preview"
	"github.com/manash/designgen/internal/provider"
	"github.com/manash/designgen/internal/provider/httpapi"
	"github.com/manash/designgen/internal/provider/local"
	"github.com/manash/designgen/internal/session"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagAPIURL  string
	flagOffline bool
	flagVerbose bool
	flagDB      string
)

type App struct {
	Out        io.Writer
	Err        io.Writer
	In         io.Reader
	GetEnv     func(string) string
	NewBackend func(cfg *config.Config) (provider.Backend, error)
	OpenStore  func(path string) (*session.Store, error)
}

func DefaultApp() *App {
	return &App{
		Out:        os.Stdout,
		Err:        os.Stderr,
		In:         os.Stdin,
		GetEnv:     os.Getenv,
		NewBackend: newBackend,
		OpenStore:  session.NewStore,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "designgen [prompt]",
		Short: "Generate furniture designs from text prompts",
		Long: `designgen generates parametric furniture designs from text prompts.

It ships a mock design backend (designgen serve) and a client for it. With
--offline the client serves designs in-process and needs no server.

Examples:
  designgen serve
  designgen "a modern wooden dining table"
  designgen generate --wait --save "a tall floor lamp"
  designgen batch prompts.yaml -d designs/ -p 4
  designgen                                  # interactive mode`,
		Args:          cobra.ArbitraryArgs,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runREPL(app)
			}
			return runGenerate(app, args)
		},
	}
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	cmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "design backend URL (defaults to DESIGNGEN_API_URL)")
	cmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "serve designs in-process instead of calling the backend")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log HTTP requests and responses")
	cmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (defaults to ~/.designgen/designs.db)")
	addGenerateFlags(cmd)

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newGenerateCmd(app))
	cmd.AddCommand(newEvaluateCmd(app))
	cmd.AddCommand(newIterateCmd(app))
	cmd.AddCommand(newAssetsCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newBatchCmd(app))
	cmd.AddCommand(newSavedCmd(app))
	cmd.AddCommand(newThemeCmd(app))
	cmd.AddCommand(newREPLCmd(app))

	return cmd
}

// loadConfig reads the environment and applies persistent flags on top.
func loadConfig(app *App) (*config.Config, error) {
	cfg, err := config.Load(app.GetEnv)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if flagAPIURL != "" {
		cfg.APIURL = flagAPIURL
	}
	if flagOffline {
		cfg.Offline = true
	}
	if flagVerbose {
		cfg.Verbose = true
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	return cfg, nil
}

func newBackend(cfg *config.Config) (provider.Backend, error) {
	if cfg.Offline {
		selector, err := newSelector(cfg)
		if err != nil {
			return nil, err
		}
		previews := preview.NewTracker(preview.Options{
			ReadyAfter: cfg.PreviewDelay,
			FailRate:   cfg.PreviewFailRate,
		})
		return local.New(selector, previews, fixture.Latency{Min: cfg.LatencyMin, Max: cfg.LatencyMax}), nil
	}

	return httpapi.New(&provider.Config{
		BaseURL: cfg.APIURL,
		Verbose: cfg.Verbose,
	})
}

func newSelector(cfg *config.Config) (*fixture.Selector, error) {
	catalog, err := fixture.DefaultCatalog()
	if cfg.FixturesFile != "" {
		catalog, err = fixture.LoadCatalog(cfg.FixturesFile)
	}
	if err != nil {
		return nil, err
	}
	return fixture.NewSelector(catalog, nil, nil), nil
}

func openStore(app *App, cfg *config.Config) (*session.Store, error) {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	store, err := app.OpenStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// previewBase is the base for relative preview URLs, empty when offline.
func previewBase(cfg *config.Config) string {
	if cfg.Offline {
		return ""
	}
	return cfg.APIURL
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
