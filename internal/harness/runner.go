package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/23skdu/longbow-nock/internal/logger"
	"github.com/23skdu/longbow-nock/internal/metrics"
	"github.com/23skdu/longbow-nock/internal/sampler"
)

// Result is the outcome of running one case for a number of trials. The
// JSON shape matches the reference harness output, so result files from
// different implementations compare directly.
type Result struct {
	Case         string `json:"test_case"`
	Parameters   Case   `json:"parameters"`
	Samples      []int  `json:"samples"`
	Distribution []int  `json:"distribution"`
	TotalSamples int    `json:"total_samples"`

	// Exhaustions counts trials that failed with the retry budget spent.
	// Those trials contribute to neither Samples nor Distribution.
	Exhaustions int `json:"exhaustions,omitempty"`
}

// keptSamples caps how many raw draws are persisted per case; the full
// run only survives as the count distribution.
const keptSamples = 100

// Runner executes repeated eos-guarded draws per case.
type Runner struct {
	Trials int

	// Seed for each case's sampler. Per-case samplers restart from the
	// same seed so runs are reproducible case by case.
	Seed int64

	log *logger.Logger
}

func NewRunner(trials int, seed int64) (*Runner, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("invalid trials: %d (must be positive)", trials)
	}
	return &Runner{
		Trials: trials,
		Seed:   seed,
		log:    logger.Log.With("harness"),
	}, nil
}

// RunCase draws Trials tokens for a single case and accumulates the count
// distribution over the case's vocabulary.
func (r *Runner) RunCase(c Case) (Result, error) {
	if err := c.Validate(); err != nil {
		metrics.RecordValidationError("run_case")
		return Result{}, err
	}

	s, err := sampler.New(c.SamplingConfig(r.Seed))
	if err != nil {
		metrics.RecordValidationError("run_case")
		return Result{}, err
	}

	res := Result{
		Case:         c.Name,
		Parameters:   c,
		Distribution: make([]int, len(c.Scores)),
	}

	start := time.Now()
	for i := 0; i < r.Trials; i++ {
		drawStart := time.Now()
		id, stats, err := s.NextStats(c.Scores, c.History, c.EOSID)
		metrics.RecordCandidateSet(stats.Candidates)
		metrics.RecordRetry(stats.Trials, err != nil)
		if stats.FellBack {
			metrics.RepetitionFallbacks.Inc()
		}
		if err != nil {
			var mte *sampler.MaxTrialsError
			if errors.As(err, &mte) {
				// The case keeps eos dominant while suppressing it;
				// record the exhaustion and keep drawing.
				res.Exhaustions++
				continue
			}
			return Result{}, fmt.Errorf("case %s trial %d: %w", c.Name, i, err)
		}
		metrics.RecordDraw("next", time.Since(drawStart))

		res.Distribution[id]++
		res.TotalSamples++
		if len(res.Samples) < keptSamples {
			res.Samples = append(res.Samples, id)
		}
	}

	metrics.RecordCase(c.Name, r.Trials)
	r.log.Info("case complete",
		"case", c.Name,
		"trials", r.Trials,
		"accepted", res.TotalSamples,
		"exhaustions", res.Exhaustions,
		"elapsed", time.Since(start))
	return res, nil
}

// Run executes every case in order.
func (r *Runner) Run(cases []Case) ([]Result, error) {
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		res, err := r.RunCase(c)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
