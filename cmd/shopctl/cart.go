package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/shopflow/internal/app"
)

func newCartCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "cart", Short: "Show or edit the cart"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print cart lines and the price summary",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			sum, err := a.Cart.Summary(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tQTY\tPRICE\tLINE")
			for _, it := range sum.Items {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", it.ProductID, it.Title, it.Quantity, it.Price.StringFixed(2), it.LineTotal().StringFixed(2))
			}
			fmt.Fprintf(tw, "\nitems\t%d\n", sum.Count)
			fmt.Fprintf(tw, "subtotal\t%s\n", sum.Pricing.Subtotal.StringFixed(2))
			fmt.Fprintf(tw, "tax\t%s\n", sum.Pricing.Tax.StringFixed(2))
			fmt.Fprintf(tw, "shipping\t%s\n", sum.Pricing.Shipping.StringFixed(2))
			fmt.Fprintf(tw, "total\t%s\n", sum.Pricing.Total.StringFixed(2))
			return tw.Flush()
		}),
	}

	add := &cobra.Command{
		Use:   "add <productId> [quantity]",
		Short: "Add a product, accumulating onto an existing line",
		Args:  cobra.RangeArgs(1, 2),
	}
	add.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("product id %q: %w", args[0], err)
		}
		qty := 1
		if len(args) == 2 {
			if qty, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("quantity %q: %w", args[1], err)
			}
		}
		return opts.withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			if err := a.Cart.Add(ctx, id, qty); err != nil {
				return err
			}
			n, err := a.Cart.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cart now holds %d item(s)\n", n)
			return nil
		})(cmd, args)
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			if err := a.Cart.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "cart cleared")
			return nil
		}),
	}

	cmd.AddCommand(show, add, clearCmd)
	return cmd
}
