package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-nock/internal/config"
	"github.com/23skdu/longbow-nock/internal/dump"
	"github.com/23skdu/longbow-nock/internal/harness"
	"github.com/23skdu/longbow-nock/internal/logger"
)

var (
	casesPath   = flag.String("cases", "", "JSON case file (empty = built-in canonical cases)")
	trials      = flag.Int("trials", 1000, "Draws per case")
	seed        = flag.Int64("seed", 42, "Sampler seed, restarted per case")
	outPath     = flag.String("out", "results.json", "Path to write results")
	format      = flag.String("format", "json", "Output format: json or arrow")
	metricsAddr = flag.String("metrics", "", "Address to serve Prometheus metrics during the run (empty = off)")
	logLevel    = flag.String("log-level", "INFO", "Log level")
	logFormat   = flag.String("log-format", "console", "Log format: console or json")
)

func main() {
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)

	cfg := config.DefaultRun()
	cfg.Trials = *trials
	cfg.Sampling.Seed = *seed
	cfg.CasesPath = *casesPath
	cfg.OutputPath = *outPath
	cfg.MetricsAddr = *metricsAddr

	f, err := config.ParseFormat(*format)
	if err != nil {
		log.Fatalf("Invalid format: %v", err)
	}
	cfg.Format = f

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Printf("Metrics serving on %s/metrics", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	cases := harness.Canonical()
	if cfg.CasesPath != "" {
		cases, err = harness.LoadCases(cfg.CasesPath)
		if err != nil {
			log.Fatalf("Failed to load cases: %v", err)
		}
	}

	runner, err := harness.NewRunner(cfg.Trials, cfg.Sampling.Seed)
	if err != nil {
		log.Fatalf("Failed to create runner: %v", err)
	}

	results, err := runner.Run(cases)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	switch cfg.Format {
	case config.FormatArrow:
		err = dump.WriteArrow(cfg.OutputPath, results)
	default:
		err = dump.WriteJSON(cfg.OutputPath, results)
	}
	if err != nil {
		log.Fatalf("Failed to write results: %v", err)
	}
	log.Printf("Wrote %d case results to %s", len(results), cfg.OutputPath)
}
