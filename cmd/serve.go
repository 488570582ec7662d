package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/webcheck/internal/api"
	"github.com/khanhnv2901/webcheck/internal/metrics"
	"github.com/khanhnv2901/webcheck/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan dashboard and its JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cliConfig

		var m *metrics.Metrics
		if cfg.Metrics {
			m = metrics.New()
		}

		svc, resolver := newScanService(cfg.Lookup, logger, m)
		server := api.NewServer(api.Config{
			Scanner:     svc,
			Health:      &healthAPIService{resolver: resolver},
			Assets:      web.Assets(),
			Metrics:     m,
			AuthToken:   cfg.Server.AuthToken,
			Logger:      logger,
			CORSOrigins: cfg.Server.CORSOrigins,
			RateLimit:   cfg.Server.RateLimit,
			RateBurst:   cfg.Server.RateBurst,

			TrustedProxies: cfg.Server.TrustedProxies,
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      cfg.Lookup.Timeout + 10*time.Second,
			IdleTimeout:       120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("%s webcheck listening on http://%s\n", colorInfo("→"), cfg.Server.Addr)
			if cfg.Metrics {
				fmt.Printf("%s Prometheus metrics at /metrics\n", colorInfo("→"))
			}
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			logger.Info("server_started",
				zap.String("addr", cfg.Server.Addr),
				zap.Strings("nameservers", resolver.Servers()),
				zap.Duration("lookup_timeout", cfg.Lookup.Timeout),
				zap.Bool("auth", cfg.Server.AuthToken != ""),
			)
			serverErrors <- httpServer.ListenAndServe()
		}()

		// Channel to listen for interrupt signals
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&cliConfig.Server.Addr, "addr", cliConfig.Server.Addr, "Address for the web server")
	flags.StringVar(&cliConfig.Server.AuthToken, "auth-token", "", "Optional shared secret for API requests")
	flags.StringSliceVar(&cliConfig.Server.CORSOrigins, "cors-origins", cliConfig.Server.CORSOrigins, "Allowed CORS origins (empty = allow all)")
	flags.StringSliceVar(&cliConfig.Server.TrustedProxies, "trusted-proxies", cliConfig.Server.TrustedProxies, "Proxy addresses or CIDRs whose X-Forwarded-For is trusted")
	flags.IntVar(&cliConfig.Server.RateLimit, "rate-limit", cliConfig.Server.RateLimit, "Rate limit per IP (requests/second, 0 = disabled)")
	flags.IntVar(&cliConfig.Server.RateBurst, "rate-burst", cliConfig.Server.RateBurst, "Rate limit burst size")
	flags.DurationVar(&cliConfig.Server.ShutdownTimeout, "shutdown-timeout", cliConfig.Server.ShutdownTimeout, "Graceful shutdown timeout")
	flags.BoolVar(&cliConfig.Metrics, "metrics", false, "Expose Prometheus metrics at /metrics")
}
