package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/shopflow/internal/app"
	"github.com/dmehra2102/shopflow/internal/config"
	"github.com/dmehra2102/shopflow/pkg/logging"
	"github.com/dmehra2102/shopflow/pkg/shutdown"
	"github.com/dmehra2102/shopflow/pkg/tracing"
)

func main() {
	var cfgPath string
	cmd := &cobra.Command{
		Use:          "storefront",
		Short:        "Serve the storefront catalog, cart and order API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfgPath)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", os.Getenv(config.PathEnv), "YAML config file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(ctx)
	defer cancel()

	tp, err := tracing.Init(ctx, "storefront", cfg.OTelEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		return err
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("storefront init failed", "err", err)
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close failed", "err", err)
		}
	}()

	log.Info("storefront starting", "backend", cfg.StorageBackend, "namespace", cfg.StoreNamespace)
	if err := a.Run(ctx); err != nil {
		log.Error("storefront stopped with error", "err", err)
		return err
	}
	log.Info("storefront shutdown complete")
	return nil
}
