package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tingold/orb-pointpack/internal/api"
	"github.com/tingold/orb-pointpack/internal/logger"
	"github.com/tingold/orb-pointpack/layer"
)

var (
	shutdownTimeout time.Duration
	serveCmd        = &cobra.Command{
		Use:   "serve",
		Short: "serve packages of the catalog layers over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
)

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Time allowed for in-flight requests on shutdown.")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	log := logger.Get("main")

	catalog, err := layer.NewCatalog(cfg.Catalog.Dir)
	if err != nil {
		return err
	}

	names, err := catalog.Names()
	if err != nil {
		return err
	}
	log.Info().
		Str("dir", catalog.Dir()).
		Int("layers", len(names)).
		Bool("compress", cfg.Package.Compress).
		Msg("Catalog opened")

	server := api.NewServer(cfg, catalog, logger.Get("api"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	return server.Shutdown(shutdownTimeout)
}
