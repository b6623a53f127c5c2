package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/zenpipeline/archview/internal/metrics"
	"github.com/zenpipeline/archview/internal/server"
	"github.com/zenpipeline/archview/pkg/layout"
	redisstore "github.com/zenpipeline/archview/pkg/store/redis"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the interactive graph viewer with live layout over websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		var cache server.SnapshotCache
		if cfg.RedisAddr != "" {
			rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
			if err := rdb.Ping(cmd.Context()).Err(); err != nil {
				logger.Warn("redis unreachable, caching disabled", "addr", cfg.RedisAddr, "error", err)
			} else {
				cache = redisstore.NewCache(rdb, redisstore.DefaultTTL)
			}
		}

		metrics.Register(nil)

		addr := cfg.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.NewServer(apiClient, cache, layout.Options{Width: cfg.Width, Height: cfg.Height}, addr, logger)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(ctx)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default ARCHVIEW_ADDR)")
}
