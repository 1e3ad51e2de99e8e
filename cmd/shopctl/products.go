package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/shopflow/internal/app"
	catalogapp "github.com/dmehra2102/shopflow/internal/catalog/application"
	"github.com/dmehra2102/shopflow/internal/catalog/domain"
)

func newProductsCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "products", Short: "Browse the catalog"}

	var (
		category string
		sort     string
		inStock  bool
		rating   float64
	)
	criteria := func() domain.Criteria {
		c := domain.DefaultCriteria()
		c.Sort = domain.SortKey(sort)
		c.InStock = inStock
		c.MinRating = rating
		return c
	}
	addFilters := func(c *cobra.Command) {
		c.Flags().StringVar(&sort, "sort", string(domain.SortFeatured), "featured, price-low, price-high, rating or newest")
		c.Flags().BoolVar(&inStock, "in-stock", false, "only products in stock")
		c.Flags().Float64Var(&rating, "min-rating", 0, "minimum rating")
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally within one category",
		Args:  cobra.NoArgs,
	}
	list.Flags().StringVar(&category, "category", "", "category slug, e.g. home-decor")
	addFilters(list)
	list.RunE = opts.withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
		res, err := a.Catalog.Browse(ctx, catalogapp.Scope{Category: category}, criteria())
		if err != nil {
			return err
		}
		return printProducts(out, res)
	})

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles, descriptions and categories",
		Args:  cobra.MinimumNArgs(1),
	}
	addFilters(search)
	search.RunE = func(cmd *cobra.Command, args []string) error {
		q := strings.Join(args, " ")
		return opts.withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
			res, err := a.Catalog.Browse(ctx, catalogapp.Scope{Query: q}, criteria())
			if err != nil {
				return err
			}
			return printProducts(out, res)
		})(cmd, args)
	}

	cmd.AddCommand(list, search)
	return cmd
}

func printProducts(out io.Writer, res catalogapp.BrowseResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tRATING\tSTOCK")
	for _, p := range res.Products {
		stock := "yes"
		if !p.InStock {
			stock = "no"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%s\n", p.ID, p.Title, p.Category, p.Price.StringFixed(2), p.Rating, stock)
	}
	fmt.Fprintf(tw, "\n%d product(s)\n", res.Total)
	return tw.Flush()
}
