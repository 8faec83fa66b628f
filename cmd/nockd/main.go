package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight"

	"github.com/23skdu/longbow-nock/internal/config"
	"github.com/23skdu/longbow-nock/internal/flightsrv"
	"github.com/23skdu/longbow-nock/internal/logger"
	"github.com/23skdu/longbow-nock/internal/monitoring"
)

var (
	listenAddr = flag.String("listen", ":3000", "Flight (gRPC) listen address")
	healthAddr = flag.String("health", ":8080", "Health/metrics HTTP address (empty = off)")
	seed       = flag.Int64("seed", 0, "Default sampler seed for requests without one (0 = time-based)")
	logLevel   = flag.String("log-level", "INFO", "Log level")
	logFormat  = flag.String("log-format", "console", "Log format: console or json")
)

func main() {
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)

	cfg := config.DefaultServe()
	cfg.ListenAddr = *listenAddr
	cfg.HealthAddr = *healthAddr
	cfg.Seed = *seed
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	svc := flightsrv.NewService(cfg.Seed)

	var monitor *monitoring.Monitor
	if cfg.HealthAddr != "" {
		monitor = monitoring.NewMonitor()
		svc.Health = monitor
		go func() {
			if err := monitor.Start(cfg.HealthAddr); err != nil {
				log.Printf("Health monitor error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var srv flight.Server
	errChan := make(chan error, 1)
	go func() {
		errChan <- flightsrv.Serve(svc, cfg.ListenAddr, func(s flight.Server) {
			srv = s
		})
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received %v, shutting down", sig)
		if srv != nil {
			srv.Shutdown()
		}
		if monitor != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			monitor.Stop(ctx)
		}
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Flight service failed: %v", err)
		}
	}
}
