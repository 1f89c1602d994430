package main

import (
	"github.com/spf13/cobra"

	"github.com/gitagen/gitagen/internal/log"
	"github.com/gitagen/gitagen/internal/output"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cache",
		Short:   "Inspect and maintain the repository cache",
		GroupID: GroupUtility,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all cached data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				if err := a.cache.Clear(); err != nil {
					return err
				}
				log.FromContext(ctx).Printf("Cache cleared\n")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Remove expired rows now and compact the database",
		Long: `Apply the retention policy immediately: rows older than cache.max_age
are removed, then the oldest rows beyond cache.max_rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			return withApp(ctx, func(a *app) error {
				res, err := a.cache.Sweep(ctx)
				if err != nil {
					return err
				}
				if out.JSON() {
					return out.PrintJSON(res)
				}
				out.Printf("Scanned %d rows: %d expired, %d evicted\n", res.Scanned, res.Expired, res.Evicted)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show the number of cached rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			return withApp(ctx, func(a *app) error {
				n, err := a.cache.Len()
				if err != nil {
					return err
				}
				if out.JSON() {
					return out.PrintJSON(map[string]int{"rows": n})
				}
				out.Printf("%d rows\n", n)
				return nil
			})
		},
	})

	return cmd
}
