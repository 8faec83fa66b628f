// Package config holds the run-level settings shared by the command line
// tools: how many trials to run, over which cases, and where results go.
package config

import (
	"fmt"

	"github.com/23skdu/longbow-nock/internal/sampler"
)

type OutputFormat int

const (
	FormatJSON OutputFormat = iota
	FormatArrow
)

func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "arrow":
		return FormatArrow, nil
	}
	return 0, fmt.Errorf("unknown output format %q (want json or arrow)", s)
}

func (f OutputFormat) String() string {
	if f == FormatArrow {
		return "arrow"
	}
	return "json"
}

// RunConfig drives a trial run: every case is drawn Trials times and the
// resulting count distributions are written to OutputPath.
type RunConfig struct {
	Sampling sampler.Config

	// Trials is the number of draws per case.
	Trials int

	// CaseSeed seeds randomized case generation, distinct from the
	// sampler's own rng.
	CaseSeed int64

	// CasesPath is an optional JSON case file; empty means the built-in
	// canonical cases.
	CasesPath  string
	OutputPath string
	Format     OutputFormat

	// MetricsAddr exposes /metrics while a run is in progress. Empty
	// disables the listener.
	MetricsAddr string
}

func (c *RunConfig) Validate() error {
	if err := c.Sampling.Validate(); err != nil {
		return fmt.Errorf("invalid sampling config: %w", err)
	}
	if c.Trials <= 0 {
		return fmt.Errorf("invalid trials: %d (must be positive)", c.Trials)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path must not be empty")
	}
	return nil
}

// ServeConfig drives the Flight sampling daemon.
type ServeConfig struct {
	// ListenAddr is the Flight (gRPC) endpoint.
	ListenAddr string

	// HealthAddr is the HTTP endpoint for /health, /status and /metrics.
	// Empty disables the monitor.
	HealthAddr string

	// Seed applies to samplers built for requests that do not carry their
	// own. 0 = time-based.
	Seed int64
}

func (c *ServeConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	return nil
}

func DefaultRun() RunConfig {
	return RunConfig{
		Sampling:   sampler.DefaultConfig(),
		Trials:     1000,
		CaseSeed:   42,
		OutputPath: "results.json",
		Format:     FormatJSON,
	}
}

func DefaultServe() ServeConfig {
	return ServeConfig{
		ListenAddr: ":3000",
		HealthAddr: ":8080",
	}
}
