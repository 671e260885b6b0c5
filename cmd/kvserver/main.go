// Command kvserver runs the single-threaded key/value networking core.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	_ "go.uber.org/automaxprocs"

	"github.com/adred-codev/kvcore/internal/config"
	"github.com/adred-codev/kvcore/internal/logging"
	"github.com/adred-codev/kvcore/internal/memwatch"
	"github.com/adred-codev/kvcore/internal/metrics"
	"github.com/adred-codev/kvcore/internal/ratelimit"
	"github.com/adred-codev/kvcore/internal/server"
)

const acceptLimiterSweepInterval = 5 * time.Minute
const acceptLimiterEntryTTL = 10 * time.Minute

func main() {
	bootLogger := logging.New(logging.Options{Level: "info", Format: "json"})

	cfg, err := config.Load(&bootLogger)
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	cfg.LogConfig(logger)

	// automaxprocs (imported for its side effect above) has already sized
	// GOMAXPROCS to the container's CPU limit; the reactor itself is
	// single-threaded by design, so it pins its own goroutine to an OS
	// thread rather than benefiting from extra procs.
	logger.Info().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Msg("process tuning applied")

	promReg := prometheus.NewRegistry()
	metricsSrv := metrics.Serve(cfg.MetricsAddr, promReg)
	defer metricsSrv.Close()

	var limiter *ratelimit.AcceptLimiter
	if cfg.ConnRateLimitEnabled {
		limiter = ratelimit.New(ratelimit.Config{
			IPBurst:      cfg.ConnRateLimitBurst,
			IPPerSec:     cfg.ConnRateLimitPerSec,
			GlobalBurst:  cfg.ConnRateLimitBurst * 4,
			GlobalPerSec: cfg.ConnRateLimitPerSec * 4,
		})

		// The limiter's per-IP bucket map only shrinks here; Allow only ever
		// grows it. This is the one goroutine besides the reactor and the
		// metrics HTTP server, and it never touches client state.
		stopLimiterSweep := make(chan struct{})
		defer close(stopLimiterSweep)
		go func() {
			ticker := time.NewTicker(acceptLimiterSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					limiter.Sweep(acceptLimiterEntryTTL)
				case <-stopLimiterSweep:
					return
				}
			}
		}()
	}

	srv := server.New(cfg, logger, promReg, limiter, nil)
	if cfg.MemPressureCapDisableEnabled {
		srv.WriteCapPolicy = memwatch.Policy(server.DefaultWriteCapPerEvent, cfg.MemPressureThresholdPercent)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := srv.Run(ctx); err != nil {
			logger.Fatal().Err(err).Msg("reactor exited")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	cancel()
}
