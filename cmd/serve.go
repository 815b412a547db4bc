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

	"github.com/sells-group/location-builder/internal/api"
	"github.com/sells-group/location-builder/internal/location"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the location search API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := openDataset(ctx)
		if err != nil {
			return err
		}
		defer ds.Close()

		svc := location.NewService(ds.Store, serviceOptions(cfg.Search))
		defer svc.Close()

		go sweepSessions(ctx, svc, sweepInterval(svc.Options().SessionTTL))

		router := api.NewRouter(api.NewHandler(svc), api.RouterConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RateLimit:      cfg.Server.RateLimit,
			RateBurst:      cfg.Server.RateBurst,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// sweepInterval checks for idle sessions a few times per TTL, at most once a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	d := ttl / 4
	if d <= 0 || d > time.Minute {
		d = time.Minute
	}
	return d
}

func sweepSessions(ctx context.Context, svc *location.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.Sweep(); n > 0 {
				zap.L().Info("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Annotations = map[string]string{configModeKey: "serve"}
	rootCmd.AddCommand(serveCmd)
}
