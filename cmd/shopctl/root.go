package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/shopflow/internal/app"
	"github.com/dmehra2102/shopflow/internal/config"
	"github.com/dmehra2102/shopflow/pkg/logging"
)

type rootOpts struct {
	configPath string
	backend    string
	latency    float64
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	cmd := &cobra.Command{
		Use:          "shopctl",
		Short:        "Inspect and edit storefront data in the configured store",
		SilenceUsage: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv(config.PathEnv), "YAML config file")
	pf.StringVar(&opts.backend, "backend", config.BackendSQLite, "storage backend: memory, sqlite, redis or postgres")
	pf.Float64Var(&opts.latency, "latency", 0, "simulated latency scale")
	pf.StringVar(&opts.logLevel, "log-level", "error", "log level")

	cmd.AddCommand(
		newProductsCmd(opts),
		newCartCmd(opts),
		newOrdersCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

// open builds the app against the configured store. The backend flag wins
// when given; otherwise sqlite replaces the memory default, which would not
// outlive the command.
func (o *rootOpts) open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("backend") || cfg.StorageBackend == config.BackendMemory {
		cfg.StorageBackend = o.backend
	}
	cfg.LatencyScale = o.latency
	cfg.KafkaAddr = ""
	cfg.CartEventsChannel = ""
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, logging.NewWithWriter(cmd.ErrOrStderr(), o.logLevel))
}

// withApp runs fn against a freshly opened app and closes it afterwards.
func (o *rootOpts) withApp(fn func(ctx context.Context, a *app.App, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := o.open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, cmd.OutOrStdout())
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
