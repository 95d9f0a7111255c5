package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	experimentmetrics "optimize/internal/experiment/metrics"
	experimentmiddleware "optimize/internal/experiment/middleware"
	"optimize/internal/experiment/registry"
	"optimize/internal/platform/config"
	"optimize/internal/platform/httpserver"
	"optimize/internal/platform/logger"
	platformmetrics "optimize/internal/platform/metrics"
	httptransport "optimize/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Experiment logic lives in internal/experiment.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	// The registry is filled before any request is served and never written again.
	reg := registry.New()
	if cfg.ExperimentsFile != "" {
		if err := reg.LoadFile(cfg.ExperimentsFile); err != nil {
			return err
		}
	}
	for exp := range reg.All() {
		log.Info("experiment declared",
			"experiment", exp.Key,
			"experiment_id", exp.ID,
			"variations", exp.Variations.Len(),
		)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	expMetrics := experimentmetrics.New(promReg)
	expMetrics.SetDeclared(reg.Len())

	experiments := experimentmiddleware.New(reg, log,
		experimentmiddleware.WithMetrics(expMetrics),
		experimentmiddleware.WithCodec(cfg.Cookies.Codec()),
		experimentmiddleware.WithSecureCookies(cfg.Cookies.Secure),
		experimentmiddleware.WithWakeUp(cfg.WakeUp),
		experimentmiddleware.WithSkipBots(cfg.SkipBots),
	)
	router := httptransport.NewRouter(httptransport.Deps{
		Registry:    reg,
		Experiments: experiments,
		HTTPMetrics: platformmetrics.New(promReg),
		Metrics:     platformmetrics.Handler(promReg),
		Logger:      log,
	})
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting optimize", "addr", cfg.Addr, "experiments", reg.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
