package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kpath-io/kpath-search/internal/catalog"
	"github.com/kpath-io/kpath-search/internal/config"
	"github.com/kpath-io/kpath-search/internal/embedding"
	"github.com/kpath-io/kpath-search/internal/httpserver"
	"github.com/kpath-io/kpath-search/internal/lifecycle"
	"github.com/kpath-io/kpath-search/internal/logging"
	"github.com/kpath-io/kpath-search/internal/rank"
	"github.com/kpath-io/kpath-search/internal/search"
)

var (
	cfgFile string
	devLog  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kpathd",
		Short: "kpathd serves the discovery/search API over the service catalog",
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file whose keys override KPATH_* environment variables")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev", false, "use development (console) logging instead of JSON")

	rootCmd.AddCommand(newServeCmd(), newRebuildCmd(), newEnvCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfigFile applies a YAML config file's keys as environment
// variables so internal/config's self-registering registry (which
// reads os.Getenv directly) picks them up without a second config path.
func loadConfigFile() error {
	if cfgFile == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	for _, decl := range config.VarDescriptions() {
		key := decl.Name
		if !v.IsSet(key) {
			continue
		}
		if err := os.Setenv(key, v.GetString(key)); err != nil {
			return fmt.Errorf("apply config key %s: %w", key, err)
		}
	}
	return nil
}

// buildComponents wires the catalog manager, embedder, lifecycle
// manager, ranker and query planner from the current environment
// (§5 component wiring).
func buildComponents(ctx context.Context) (*catalog.Manager, *lifecycle.Manager, *search.Planner, *rank.Ranker, error) {
	cmgr, err := catalog.NewManager(catalog.Config{
		Driver:             catalog.DriverPostgres,
		DSN:                config.DatabaseURL.Get(),
		EnableVectorMirror: config.VectorMirrorEnabled.Get(),
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect catalog: %w", err)
	}
	if err := cmgr.Initialize(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("migrate catalog: %w", err)
	}

	reader := catalog.NewReader(cmgr)

	var mirror *catalog.MirrorWriter
	if config.VectorMirrorEnabled.Get() {
		mirror = catalog.NewMirrorWriter(cmgr)
	}

	log := logging.FromContext(ctx)
	embedder := embedding.Select(log, config.EmbeddingModelName.Get(), config.EmbeddingDimension.Get())

	lc := lifecycle.NewManager(config.ArtifactDir.Get(), embedder, reader, mirror, log)
	if err := lc.Startup(ctx); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("lifecycle startup: %w", err)
	}

	ranker := rank.New(reader)
	planner := search.NewPlanner(lc, reader, embedder, ranker)

	return cmgr, lc, planner, ranker, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfigFile(); err != nil {
				return err
			}
			log, err := logging.New(devLog)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			ctx := logging.IntoContext(cmd.Context(), log)

			cmgr, lc, planner, ranker, err := buildComponents(ctx)
			if err != nil {
				return err
			}
			reader := catalog.NewReader(cmgr)

			base := &httpserver.Base{
				Reader:    reader,
				Manager:   cmgr,
				Lifecycle: lc,
				Planner:   planner,
				Ranker:    ranker,
				Log:       log,
			}

			srv := &http.Server{
				Addr:         config.ListenAddr.Get(),
				Handler:      httpserver.NewRouter(base),
				ReadTimeout:  config.RequestDeadline.Get(),
				WriteTimeout: config.RequestDeadline.Get(),
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				log.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "force a full rebuild of both vector indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfigFile(); err != nil {
				return err
			}
			log, err := logging.New(devLog)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			ctx := logging.IntoContext(cmd.Context(), log)

			_, lc, _, _, err := buildComponents(ctx)
			if err != nil {
				return err
			}
			return lc.Rebuild(ctx)
		},
	}
}

func newEnvCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "env",
		Short: "print every registered KPATH_* environment variable",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "json":
				fmt.Println(config.ExportJSON(""))
			default:
				fmt.Println(config.ExportMarkdown(""))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown or json")
	return cmd
}
