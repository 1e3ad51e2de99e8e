package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/shopflow/internal/app"
	"github.com/dmehra2102/shopflow/internal/order/domain"
)

func newOrdersCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "orders", Short: "Inspect placed orders"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			orders, err := a.Orders.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tITEMS\tTOTAL\tCREATED")
			for _, o := range orders {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", o.ID, o.Status, len(o.Items), o.Total.StringFixed(2), o.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		}),
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one order as JSON",
		Args:  cobra.ExactArgs(1),
	}
	get.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := parseOrderID(args[0])
		if err != nil {
			return err
		}
		return opts.withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			o, err := a.Orders.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(out, o)
		})(cmd, args)
	}

	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set an order's status, e.g. Shipped",
		Args:  cobra.ExactArgs(2),
	}
	status.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := parseOrderID(args[0])
		if err != nil {
			return err
		}
		return opts.withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			o, err := a.Orders.UpdateStatus(ctx, id, domain.Status(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "order %d is now %s\n", o.ID, o.Status)
			return nil
		})(cmd, args)
	}

	cmd.AddCommand(list, get, status)
	return cmd
}

func parseOrderID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("order id %q: %w", s, err)
	}
	return id, nil
}
