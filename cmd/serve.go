package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/precache/internal/gateway"
	"github.com/huangsam/precache/internal/network"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// serveCmd runs the offline gateway.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web app through the offline cache.",
	Long: `Start an HTTP gateway in front of the origin. Every request is answered from
the cache when possible and from the origin otherwise.

At startup the gateway installs and activates the current version unless
--skip-update is set. A failed startup update is logged and the gateway keeps
serving whatever buckets are already stored.

Admin routes:
  POST /_precache/update   - install then activate the current version
  GET  /_precache/status   - cache and history statistics
  GET  /_precache/buckets  - stored buckets

Examples:
  # Serve on :8080 with a persistent SQLite cache
  precache serve --origin https://app.example.com

  # Serve a different port without touching the cache at startup
  precache serve --origin https://app.example.com --listen :9000 --skip-update`,
	PreRunE: originSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger, err := gateway.NewLogger(viper.GetBool("debug"))
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		h := gateway.NewHandler(cfg, cacheManager, network.NewHTTPFetcher(cfg.FetchTimeout), logger)
		if !viper.GetBool("skip-update") {
			startupUpdate(ctx, h, logger)
		}
		return gateway.ListenAndServe(ctx, cfg.ListenAddr, gateway.Routes(h), logger)
	},
}

// startupUpdate installs and activates the current version before serving.
func startupUpdate(ctx context.Context, h *gateway.Handler, logger *zap.Logger) {
	result, err := h.Update(ctx)
	if err != nil {
		logger.Warn("startup update failed; serving stored buckets", zap.Error(err))
		return
	}
	logger.Info("startup update complete",
		zap.String("version", result.Version),
		zap.Int("entries", result.Entries),
		zap.Strings("deleted", result.Deleted),
	)
}
