package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bom-analyzer/internal/api"
	"github.com/sells-group/bom-analyzer/internal/metrics"
	"github.com/sells-group/bom-analyzer/internal/summary"
)

var (
	servePort    int
	serveFixture string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		m := metrics.New()
		var opts []api.Option
		if cfg.Anthropic.Key != "" {
			opts = append(opts, api.WithSummarizer(summary.NewFromConfig(cfg.Anthropic)))
		}
		if serveFixture != "" || cfg.Validate("live") == nil {
			fetcher, err := newFetcher(serveFixture, m)
			if err != nil {
				return err
			}
			opts = append(opts, api.WithFetcher(fetcher))
		} else {
			zap.L().Warn("no supplier credentials; requests must carry inline offers")
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.New(cfg, m, opts...).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveFixture, "fixture", "", "serve offers from a fixture file instead of live suppliers")
	rootCmd.AddCommand(serveCmd)
}
