package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	transporthttp "github.com/rhuss/laph/pkg/transport/http"
)

var servePort int

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush, err := setupTracing(cfg.Observability.Tracing)
	if err != nil {
		return err
	}
	defer flush()

	s, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	eng, err := s.engine(cfg)
	if err != nil {
		return err
	}

	authn, limiter, err := buildAuth(cfg.Auth)
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(fmt.Sprintf(":%d", port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithAuth(authn, limiter),
	}
	if m := cfg.Observability.Metrics; m.Enabled {
		opts = append(opts, transporthttp.WithMetricsPath(m.Path))
	} else {
		opts = append(opts, transporthttp.WithMetricsPath(""))
	}
	if s.store != nil {
		opts = append(opts, transporthttp.WithReadiness(s.store.HealthCheck))
	}
	server := transporthttp.NewServer(eng, eng, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})
	if cfg.Prompts.Watch && cfg.Prompts.Dir != "" {
		g.Go(func() error {
			return s.prompts.Watch(gctx, func(err error) {
				if err != nil {
					slog.Warn("reloading prompts failed", "dir", cfg.Prompts.Dir, "error", err)
					return
				}
				slog.Info("prompts reloaded", "dir", cfg.Prompts.Dir)
			})
		})
	}
	return g.Wait()
}
