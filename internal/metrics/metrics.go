package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DrawsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nock_draws_total",
		Help: "Total number of accepted token draws",
	}, []string{"op"})

	DrawDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "nock_draw_duration_seconds",
		Help: "Duration of single sampling calls",
	})

	CandidateSetSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nock_candidate_set_size",
		Help:    "Size of the truncated candidate set per nucleus draw",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})

	RepetitionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nock_repetition_fallbacks_total",
		Help: "Draws replaced by a full-distribution draw after the repetition threshold was hit",
	})

	EOSRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nock_eos_rejections_total",
		Help: "Draws rejected because they hit the suppressed eos token",
	})

	RetryTrials = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nock_retry_trials",
		Help:    "Number of redraws needed before a non-eos token was accepted",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	TrialExhaustion = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nock_trial_exhaustion_total",
		Help: "Sampling calls that ran out of retries while eos dominated",
	})

	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nock_validation_errors_total",
		Help: "Total number of rejected configs or requests",
	}, []string{"operation"})

	CaseTrials = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nock_case_trials",
		Help:    "Trials executed per harness case",
		Buckets: []float64{100, 500, 1000, 5000, 10000, 50000},
	}, []string{"case"})

	FlightRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nock_flight_requests_total",
		Help: "Flight sampling requests by outcome",
	}, []string{"outcome"})
)

func RecordDraw(op string, duration time.Duration) {
	DrawsTotal.WithLabelValues(op).Inc()
	DrawDuration.Observe(duration.Seconds())
}

func RecordCandidateSet(size int) {
	CandidateSetSize.Observe(float64(size))
}

// RecordRetry records one completed eos-guarded call: how many redraws it
// took and whether the budget ran out.
func RecordRetry(trials int, exhausted bool) {
	RetryTrials.Observe(float64(trials))
	if trials > 0 {
		EOSRejections.Add(float64(trials))
	}
	if exhausted {
		TrialExhaustion.Inc()
	}
}

func RecordValidationError(operation string) {
	ValidationErrors.WithLabelValues(operation).Inc()
}

func RecordCase(name string, trials int) {
	CaseTrials.WithLabelValues(name).Observe(float64(trials))
}

func RecordFlightRequest(outcome string) {
	FlightRequests.WithLabelValues(outcome).Inc()
}
