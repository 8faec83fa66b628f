// Package sampler picks the next token of an autoregressive speech-token
// decoder. It composes nucleus (top-p/top-k) truncation, a repetition-aware
// fallback to the full distribution, and a bounded retry loop that keeps
// redrawing while EOS suppression is requested.
package sampler

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// maxTrials bounds the EOS retry loop. Fixed, not configuration.
const maxTrials = 100

type Config struct {
	// TopP keeps the smallest prefix of probability-sorted tokens whose
	// cumulative probability stays below this threshold. Must be in (0, 1].
	TopP float64

	// TopK caps the candidate set size. Must be >= 1.
	TopK int

	// WinSize is the history lookback window for repetition detection.
	WinSize int

	// TauR is the repetition fraction that triggers the full-distribution
	// fallback. Must be in [0, 1].
	TauR float64

	// IgnoreEOS makes Next redraw instead of returning the EOS token.
	IgnoreEOS bool

	// Seed for the sampler's rng. 0 = time-based.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		TopP:      0.8,
		TopK:      25,
		WinSize:   10,
		TauR:      0.1,
		IgnoreEOS: true,
	}
}

func (c Config) Validate() error {
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("invalid top_p: %v (must be in (0, 1])", c.TopP)
	}
	if c.TopK < 1 {
		return fmt.Errorf("invalid top_k: %d (must be >= 1)", c.TopK)
	}
	if c.WinSize < 1 {
		return fmt.Errorf("invalid win_size: %d (must be >= 1)", c.WinSize)
	}
	if c.TauR < 0 || c.TauR > 1 {
		return fmt.Errorf("invalid tau_r: %v (must be in [0, 1])", c.TauR)
	}
	return nil
}

// MaxTrialsError reports that Next exhausted its retry budget while every
// draw kept landing on the EOS token.
type MaxTrialsError struct {
	MaxTrials int
}

func (e *MaxTrialsError) Error() string {
	return fmt.Sprintf("sampling reached max_trials %d and still got eos while ignore_eos is set, check your input", e.MaxTrials)
}

// Candidate is one entry of the truncated distribution built by Candidates.
// Prob is the token's probability under the full softmax, not renormalized.
type Candidate struct {
	ID   int
	Prob float64
}

// Sampler draws tokens from score vectors. Each Sampler owns its rng, so a
// single instance must not be shared across goroutines; create one per
// decoding stream instead.
type Sampler struct {
	cfg Config
	rng *rand.Rand
}

func New(cfg Config) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Sampler{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (s *Sampler) Config() Config {
	return s.cfg
}

// Candidates returns the top-p/top-k truncated distribution for scores,
// sorted by descending probability with ties broken by ascending token id.
// The truncation test runs before a token is admitted, so the
// highest-probability token is always kept and the result is never empty.
func (s *Sampler) Candidates(scores []float32) ([]Candidate, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("empty score vector")
	}

	probs := softmax(scores)
	order := sortIndicesDesc(probs)

	candidates := make([]Candidate, 0, s.cfg.TopK)
	cumProb := 0.0
	for _, idx := range order {
		if cumProb >= s.cfg.TopP || len(candidates) >= s.cfg.TopK {
			break
		}
		cumProb += probs[idx]
		candidates = append(candidates, Candidate{ID: idx, Prob: probs[idx]})
	}

	if len(candidates) == 0 {
		// Unreachable: cumProb starts at 0 < TopP and TopK >= 1, so the
		// first sorted token is always admitted.
		return nil, fmt.Errorf("internal: empty candidate set for %d scores", len(scores))
	}
	return candidates, nil
}

// Nucleus draws one token from the truncated distribution, weighting by the
// candidates' original (not renormalized) probabilities.
func (s *Sampler) Nucleus(scores []float32) (int, error) {
	candidates, err := s.Candidates(scores)
	if err != nil {
		return 0, err
	}

	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = c.Prob
	}
	return candidates[s.draw(weights)].ID, nil
}

// Random draws one token from the full, untruncated distribution.
func (s *Sampler) Random(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, fmt.Errorf("empty score vector")
	}
	return s.draw(softmax(scores)), nil
}

// DrawStats describes what happened inside one accepted draw. It exists for
// the callers that export metrics; the sampler itself stays side-effect free.
type DrawStats struct {
	// Candidates is the truncated set size of the last nucleus draw.
	Candidates int

	// FellBack is set when the repetition guard replaced the nucleus
	// result with a full-distribution draw.
	FellBack bool

	// Trials is the number of rejected eos draws before acceptance.
	Trials int
}

// Sample is the repetition-aware draw: a nucleus draw, replaced by a
// full-distribution draw when the result already fills tau_r of the last
// win_size history entries.
func (s *Sampler) Sample(scores []float32, history []int) (int, error) {
	id, _, err := s.sampleDetail(scores, history)
	return id, err
}

func (s *Sampler) sampleDetail(scores []float32, history []int) (int, DrawStats, error) {
	var stats DrawStats

	candidates, err := s.Candidates(scores)
	if err != nil {
		return 0, stats, err
	}
	stats.Candidates = len(candidates)

	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = c.Prob
	}
	id := candidates[s.draw(weights)].ID

	start := len(history) - s.cfg.WinSize
	if start < 0 {
		start = 0
	}
	repCount := 0
	for _, tok := range history[start:] {
		if tok == id {
			repCount++
		}
	}

	// Integer count against a real threshold, no rounding.
	if float64(repCount) >= float64(s.cfg.WinSize)*s.cfg.TauR {
		stats.FellBack = true
		id, err = s.Random(scores)
		if err != nil {
			return 0, stats, err
		}
	}
	return id, stats, nil
}

// Next produces the accepted token for one decoding step. With IgnoreEOS set
// it redraws whenever the candidate equals eosID, failing with MaxTrialsError
// once the retry budget runs out. History is never modified; the caller
// appends the returned id after acceptance.
func (s *Sampler) Next(scores []float32, history []int, eosID int) (int, error) {
	id, _, err := s.NextStats(scores, history, eosID)
	return id, err
}

// NextStats is Next plus per-call draw statistics.
func (s *Sampler) NextStats(scores []float32, history []int, eosID int) (int, DrawStats, error) {
	var stats DrawStats
	for trial := 0; ; {
		id, last, err := s.sampleDetail(scores, history)
		if err != nil {
			return 0, stats, err
		}
		stats.Candidates = last.Candidates
		stats.FellBack = last.FellBack
		if !s.cfg.IgnoreEOS || id != eosID {
			return id, stats, nil
		}
		trial++
		stats.Trials = trial
		if trial > maxTrials {
			return 0, stats, &MaxTrialsError{MaxTrials: maxTrials}
		}
	}
}

// draw performs one categorical draw over nonnegative weights. A zero weight
// is never selected.
func (s *Sampler) draw(weights []float64) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}

	r := s.rng.Float64() * sum
	acc := 0.0
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if r < acc {
			return i
		}
		last = i
	}
	// Rounding pushed r past the final bucket.
	return last
}

// softmax converts scores into probabilities, subtracting the max for
// numerical stability. A degenerate vector (all mass underflows) becomes the
// uniform distribution.
func softmax(scores []float32) []float64 {
	maxVal := float64(scores[0])
	for _, v := range scores[1:] {
		if float64(v) > maxVal {
			maxVal = float64(v)
		}
	}

	probs := make([]float64, len(scores))
	sum := 0.0
	for i, v := range scores {
		probs[i] = math.Exp(float64(v) - maxVal)
		sum += probs[i]
	}

	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	} else {
		uniform := 1.0 / float64(len(probs))
		for i := range probs {
			probs[i] = uniform
		}
	}
	return probs
}

// sortIndicesDesc orders token ids by descending probability, ties by
// ascending id. The tie-break keeps equal-probability tokens in their
// original relative order.
func sortIndicesDesc(probs []float64) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		if probs[idx[a]] != probs[idx[b]] {
			return probs[idx[a]] > probs[idx[b]]
		}
		return idx[a] < idx[b]
	})
	return idx
}
