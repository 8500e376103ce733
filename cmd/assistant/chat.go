package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/medspa-booking-assistant/internal/app/bootstrap"
	"github.com/wolfman30/medspa-booking-assistant/internal/assistant"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

func chatCMD() *cobra.Command {
	var chat = &cobra.Command{
		Use:   "chat",
		Short: "Talk to the booking assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var reg *prometheus.Registry
			if cfg.MetricsAddr != "" {
				reg = prometheus.NewRegistry()
			}

			out := cmd.OutOrStdout()
			r := newREPL(cmd.InOrStdin(), out)
			rt, err := bootstrap.BuildAssistant(ctx, cfg, logger, registerer(reg),
				assistant.WithNoticeHandler(r.notice),
			)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Close(); err != nil {
					logger.Warn("failed to close session backend", "error", err)
				}
			}()
			r.attach(rt.Orchestrator)

			runCtx, cancel := context.WithCancel(ctx)
			g, gctx := errgroup.WithContext(runCtx)
			if reg != nil {
				g.Go(func() error {
					return serveMetrics(gctx, cfg.MetricsAddr, reg, logger)
				})
			}
			g.Go(func() error {
				defer cancel()
				err := r.run(gctx)
				rt.Orchestrator.Wait()
				return err
			})
			return g.Wait()
		},
	}
	return chat
}

// registerer avoids handing a typed nil to the builder.
func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", addr)
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
