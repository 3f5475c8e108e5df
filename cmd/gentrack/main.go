// Command gentrack runs the uptime monitor: the probe scheduler, the
// JSON API and the embedded dashboard, backed by Postgres.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gentrack/gentrack/internal/api"
	"github.com/gentrack/gentrack/internal/buildinfo"
	"github.com/gentrack/gentrack/internal/config"
	"github.com/gentrack/gentrack/internal/metrics"
	"github.com/gentrack/gentrack/internal/monitor"
	"github.com/gentrack/gentrack/internal/probe"
	"github.com/gentrack/gentrack/internal/service"
	"github.com/gentrack/gentrack/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load and validate environment config
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Open the database and apply the schema
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()
	if err := db.PingContext(initCtx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := store.InitSchema(initCtx, db); err != nil {
		return err
	}
	st := store.New(db)

	// 3. Wire the monitor and control plane
	mt := metrics.New()
	runner := monitor.NewRunner(st, probe.New(), mt)
	cp := service.NewControlPlane(st, runner, cfg.DefaultIntervalSeconds, cfg.DefaultTimeoutSeconds)

	// 4. Apply the seed file, when configured
	if cfg.TargetsFile != "" {
		seeds, err := config.LoadSeedFile(cfg.TargetsFile)
		if err != nil {
			return err
		}
		added, err := cp.SeedTargets(initCtx, seeds)
		if err != nil {
			return err
		}
		log.Printf("[seed] %d alvo(s) registrados de %s", added, cfg.TargetsFile)
	}

	// 5. Start the scheduler
	scheduler := monitor.NewScheduler(st, runner, mt, cfg.PollInterval)
	scheduler.Start()
	defer scheduler.Stop()

	// 6. Start the API server
	srv := api.NewServer(cfg.ListenAddress, cfg.Port, cp, mt, int64(cfg.APIMaxBodyBytes))
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("[main] GenTrack %s ouvindo em %s", buildinfo.Version, srv.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 7. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.Printf("[main] sinal %s recebido, encerrando...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] erro ao encerrar servidor: %v", err)
	}
	return nil
}
