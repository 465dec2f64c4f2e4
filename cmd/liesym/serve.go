package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/njchilds90/liesym/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, cacheDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses over HTTP",
		Long: `serve exposes POST /v1/analyze, POST /v1/validate, GET /v1/models,
GET /health and GET /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.ServerAddr = addr
			}
			if cacheDir != "" {
				a.cfg.CacheDir = cacheDir
			}
			c, err := a.openCache()
			if err != nil {
				return err
			}
			if c != nil {
				defer c.Close()
			}
			gin.SetMode(gin.ReleaseMode)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(a.cfg, c, a.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "report cache directory")
	return cmd
}
