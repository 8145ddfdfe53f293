package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refetch every collection into the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		res := b.source.FetchAll(ctx)

		out := cmd.OutOrStdout()
		for _, k := range content.Kinds() {
			if n, ok := res.Counts[k]; ok {
				fmt.Fprintf(out, "  %-13s %d\n", k.Label(), n)
			}
		}
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  [warn] %v\n", e)
		}

		// Auto-prune old items after a sync
		if n, err := b.db.Prune(cfg.RetentionDuration()); err != nil {
			logger.Warn("pruning after sync", zap.Error(err))
		} else if n > 0 {
			logger.Info("pruned items", zap.Int64("count", n))
		}

		if len(res.Errors) == len(content.Kinds()) {
			return fmt.Errorf("sync failed: %w", res.Err())
		}
		return nil
	},
}
