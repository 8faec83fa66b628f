package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-nock/internal/logger"
)

// HealthStatus is the payload served on /status.
type HealthStatus struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    time.Duration `json:"uptime"`
	System    SystemInfo    `json:"system"`
	Sampling  SamplingInfo  `json:"sampling"`
	Alerts    []Alert       `json:"alerts"`
}

type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	NumCPU       int    `json:"num_cpu"`
	MemoryMB     int    `json:"memory_mb"`
	MemoryUsedMB int    `json:"memory_used_mb"`
}

// SamplingInfo aggregates what the daemon has drawn so far.
type SamplingInfo struct {
	RunsServed     int       `json:"runs_served"`
	DrawsTotal     int64     `json:"draws_total"`
	Fallbacks      int64     `json:"fallbacks_total"`
	Exhaustions    int64     `json:"exhaustions_total"`
	DrawsPerSecond float64   `json:"draws_per_second"`
	LastRun        time.Time `json:"last_run"`
}

type Alert struct {
	Level     string    `json:"level"` // info, warning, error
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Monitor serves /health, /status and /metrics for the sampling daemon and
// keeps a bounded alert ring.
type Monitor struct {
	startTime time.Time
	server    *http.Server
	log       *logger.Logger

	mu          sync.RWMutex
	alerts      []Alert
	runsServed  int
	drawsTotal  int64
	fallbacks   int64
	exhaustions int64
	lastRun     time.Time
	lastRate    float64
}

func NewMonitor() *Monitor {
	return &Monitor{
		startTime: time.Now(),
		log:       logger.Log.With("monitoring"),
	}
}

// Start serves until the listener fails or Stop is called.
func (m *Monitor) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/healthz", m.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", m.handleStatus)
	mux.HandleFunc("/admin/alerts", m.handleAlerts)

	m.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	m.log.Info("health monitor starting", "addr", addr)
	return m.server.ListenAndServe()
}

func (m *Monitor) Stop(ctx context.Context) error {
	if m.server != nil {
		return m.server.Shutdown(ctx)
	}
	return nil
}

// ObserveRun records one served sampling run. High fallback shares and any
// trial exhaustion raise alerts.
func (m *Monitor) ObserveRun(caseName string, draws, fallbacks, exhaustions int, elapsed time.Duration) {
	m.mu.Lock()
	m.runsServed++
	m.drawsTotal += int64(draws)
	m.fallbacks += int64(fallbacks)
	m.exhaustions += int64(exhaustions)
	m.lastRun = time.Now()
	if elapsed > 0 {
		m.lastRate = float64(draws) / elapsed.Seconds()
	}
	m.mu.Unlock()

	if exhaustions > 0 {
		m.AddAlert("error", "sampler",
			fmt.Sprintf("case %s: %d trials exhausted the retry budget", caseName, exhaustions))
	}
	if draws > 0 && float64(fallbacks)/float64(draws) > 0.9 {
		m.AddAlert("warning", "sampler",
			fmt.Sprintf("case %s: repetition fallback on %d of %d draws", caseName, fallbacks, draws))
	}
}

func (m *Monitor) AddAlert(level, component, message string) {
	m.mu.Lock()
	m.alerts = append(m.alerts, Alert{
		Level:     level,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	})
	if len(m.alerts) > 100 {
		m.alerts = m.alerts[1:]
	}
	m.mu.Unlock()

	m.log.Warn("alert", "level", level, "component", component, "message", message)
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := m.status()
	if status.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]string{
		"status":    status.Status,
		"timestamp": status.Timestamp.Format(time.RFC3339),
	})
}

func (m *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.status())
}

func (m *Monitor) handleAlerts(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	alerts := make([]Alert, len(m.alerts))
	copy(alerts, m.alerts)
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

func (m *Monitor) status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := "healthy"
	for _, a := range m.alerts {
		if a.Level == "error" {
			status = "degraded"
			break
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Uptime:    time.Since(m.startTime),
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			OS:           runtime.GOOS,
			Arch:         runtime.GOARCH,
			NumCPU:       runtime.NumCPU(),
			MemoryMB:     int(ms.Sys / 1024 / 1024),
			MemoryUsedMB: int(ms.Alloc / 1024 / 1024),
		},
		Sampling: SamplingInfo{
			RunsServed:     m.runsServed,
			DrawsTotal:     m.drawsTotal,
			Fallbacks:      m.fallbacks,
			Exhaustions:    m.exhaustions,
			DrawsPerSecond: m.lastRate,
			LastRun:        m.lastRun,
		},
		Alerts: m.alerts,
	}
}
