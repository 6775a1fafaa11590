package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Vheissu/abn-checker/internal/cache"
	"github.com/Vheissu/abn-checker/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the lookup cache",
}

// -- cache prune --

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cache entries older than the cache duration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Cache.Driver == config.DriverNone {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache disabled, nothing to prune.")
			return nil
		}

		st, err := initStore(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := cache.New(st, cfg.Lookup.CacheDuration()).Prune(ctx)
		if err != nil {
			return eris.Wrap(err, "cache prune")
		}

		zap.L().Info("cache pruned", zap.Int("removed", n))
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale entries.\n", n)
		return nil
	},
}

// -- cache migrate --

var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create cache tables for database backends",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		if st == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache disabled, nothing to migrate.")
			return nil
		}
		defer st.Close() //nolint:errcheck

		fmt.Fprintf(cmd.OutOrStdout(), "Cache backend %q ready.\n", cfg.Cache.Driver)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd, cacheMigrateCmd)
	rootCmd.AddCommand(cacheCmd)
}
