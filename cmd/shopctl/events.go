package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/shopflow/internal/config"
	orderkafka "github.com/dmehra2102/shopflow/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/shopflow/pkg/idempotency"
	"github.com/dmehra2102/shopflow/pkg/logging"
)

func newEventsCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "events", Short: "Follow the order event topic"}

	var group string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print order events as the relay publishes them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.KafkaAddr == "" {
				return fmt.Errorf("KAFKA_ADDR is not set")
			}
			out := cmd.OutOrStdout()
			reader := orderkafka.NewReader(strings.Split(cfg.KafkaAddr, ","), cfg.OutboxTopic, group)
			c := orderkafka.NewConsumer(
				logging.NewWithWriter(cmd.ErrOrStderr(), opts.logLevel),
				reader,
				idempotency.NewMemoryStore(time.Hour),
				func(_ context.Context, m orderkafka.Message) error {
					_, err := fmt.Fprintf(out, "%s\torder=%s\tid=%s\t%s\n", m.Type, m.OrderID, m.EventID, m.Payload)
					return err
				},
			)
			return c.Run(cmd.Context())
		},
	}
	tail.Flags().StringVar(&group, "group", "shopctl", "consumer group id")

	cmd.AddCommand(tail)
	return cmd
}
