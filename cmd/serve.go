package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/feed"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the portfolio site and its admin area",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagAddr != "" {
			cfg.Server.Addr = flagAddr
		}

		metrics := web.NewMetrics()
		b, err := openBackend(feed.WithObserver(metrics))
		if err != nil {
			return err
		}
		defer b.Close()

		srv, err := web.New(cfg, b.source, b.client, logger.Named("web"), metrics)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("starting", zap.String("api", cfg.API.BaseURL), zap.String("version", version))
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address; overrides server.addr")
}
