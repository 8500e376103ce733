package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wolfman30/medspa-booking-assistant/internal/demo"
)

func demoBackendCMD() *cobra.Command {
	var addr string
	var replyAudio bool
	var backend = &cobra.Command{
		Use:   "demo-backend",
		Short: "Run the in-memory demo backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()
			if addr == "" {
				addr = cfg.DemoAddr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			srv := &http.Server{
				Addr: addr,
				Handler: demo.New(&demo.Config{
					Logger:             logger,
					Store:              demo.NewStore(nil),
					AdminAuthSecret:    cfg.AdminJWTSecret,
					CORSAllowedOrigins: cfg.CORSAllowedOrigins,
					ReplyAudio:         replyAudio,
					MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				}),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("demo backend listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down demo backend...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logger.Info("demo backend stopped")
			return nil
		},
	}
	backend.Flags().StringVar(&addr, "addr", "", "listen address (default DEMO_ADDR)")
	backend.Flags().BoolVar(&replyAudio, "reply-audio", false, "attach audio_base64 to replies")
	return backend
}
