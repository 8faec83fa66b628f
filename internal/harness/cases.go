// Package harness generates sampling test vectors and runs repeated-draw
// trials over them, producing the per-token count distributions that the
// comparison tooling consumes.
package harness

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/23skdu/longbow-nock/internal/sampler"
)

// Case is one sampling scenario. The JSON field names match the reference
// harness so case files can be exchanged with other implementations;
// speech_token_size carries the eos id.
type Case struct {
	Name      string    `json:"name"`
	Scores    []float32 `json:"weighted_scores"`
	History   []int     `json:"decoded_tokens"`
	EOSID     int       `json:"speech_token_size"`
	TopP      float64   `json:"top_p"`
	TopK      int       `json:"top_k"`
	WinSize   int       `json:"win_size"`
	TauR      float64   `json:"tau_r"`
	IgnoreEOS bool      `json:"ignore_eos"`
}

// SamplingConfig builds the sampler config for this case. The seed is the
// runner's, not part of the exchanged case data.
func (c *Case) SamplingConfig(seed int64) sampler.Config {
	return sampler.Config{
		TopP:      c.TopP,
		TopK:      c.TopK,
		WinSize:   c.WinSize,
		TauR:      c.TauR,
		IgnoreEOS: c.IgnoreEOS,
		Seed:      seed,
	}
}

func (c *Case) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("case has no name")
	}
	if len(c.Scores) == 0 {
		return fmt.Errorf("case %s: empty score vector", c.Name)
	}
	if c.EOSID < 0 || c.EOSID >= len(c.Scores) {
		return fmt.Errorf("case %s: eos id %d outside vocabulary of %d", c.Name, c.EOSID, len(c.Scores))
	}
	for _, tok := range c.History {
		if tok < 0 || tok >= len(c.Scores) {
			return fmt.Errorf("case %s: history token %d outside vocabulary of %d", c.Name, tok, len(c.Scores))
		}
	}
	return c.SamplingConfig(1).Validate()
}

// Canonical returns the fixed scenarios every implementation is compared
// on: a small mixed vocabulary, a larger spread-out one, a history that
// saturates the repetition window, and a three-token edge case whose
// nucleus set collapses to a single candidate.
func Canonical() []Case {
	cases := []Case{
		{
			Name:      "basic_case",
			Scores:    []float32{1.2, 3.4, 0.5, 5.6, 2.1, 4.0, 1.8, 0.9, 2.7, 3.3},
			History:   []int{1, 5, 2, 8, 1, 3, 7, 1, 4, 9, 6, 1, 0, 2, 5},
			EOSID:     9,
			TopP:      0.8,
			TopK:      25,
			WinSize:   10,
			TauR:      0.1,
			IgnoreEOS: true,
		},
		{
			Name:      "large_vocab",
			Scores:    gaussianScores(50, 2.0, 1742),
			History:   randomHistory(20, 50, 1743),
			EOSID:     49,
			TopP:      0.9,
			TopK:      40,
			WinSize:   15,
			TauR:      0.2,
			IgnoreEOS: false,
		},
		{
			Name:      "high_repetition",
			Scores:    gaussianScores(20, 1.0, 1744),
			History:   []int{5, 3, 5, 7, 5, 1, 5, 9, 5, 2, 5, 8, 5, 4, 5},
			EOSID:     19,
			TopP:      0.7,
			TopK:      15,
			WinSize:   8,
			TauR:      0.15,
			IgnoreEOS: true,
		},
		{
			Name:      "small_vocab",
			Scores:    []float32{2.0, -1.0, 3.5},
			History:   []int{0, 1, 0, 2, 0},
			EOSID:     2,
			TopP:      0.6,
			TopK:      3,
			WinSize:   5,
			TauR:      0.1,
			IgnoreEOS: false,
		},
	}
	return cases
}

// Random generates n seeded scenarios over vocabSize tokens, for fuzzing
// beyond the canonical set.
func Random(n, vocabSize int, seed int64) []Case {
	rng := rand.New(rand.NewSource(seed))
	cases := make([]Case, 0, n)
	for i := 0; i < n; i++ {
		histLen := 5 + rng.Intn(30)
		history := make([]int, histLen)
		for j := range history {
			history[j] = rng.Intn(vocabSize)
		}
		scores := make([]float32, vocabSize)
		for j := range scores {
			scores[j] = float32(rng.NormFloat64() * 2)
		}
		cases = append(cases, Case{
			Name:      fmt.Sprintf("random_%03d", i),
			Scores:    scores,
			History:   history,
			EOSID:     vocabSize - 1,
			TopP:      0.5 + rng.Float64()*0.5,
			TopK:      1 + rng.Intn(vocabSize),
			WinSize:   1 + rng.Intn(20),
			TauR:      rng.Float64(),
			IgnoreEOS: rng.Intn(2) == 0,
		})
	}
	return cases
}

// LoadCases reads a JSON case file as written by WriteCases or by the
// reference harness.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse case file: %w", err)
	}
	for i := range cases {
		if err := cases[i].Validate(); err != nil {
			return nil, err
		}
	}
	return cases, nil
}

func WriteCases(path string, cases []Case) error {
	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cases: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write case file: %w", err)
	}
	return nil
}

func gaussianScores(n int, scale float64, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	scores := make([]float32, n)
	for i := range scores {
		scores[i] = float32(rng.NormFloat64() * scale)
	}
	return scores
}

func randomHistory(n, vocabSize int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	history := make([]int, n)
	for i := range history {
		history[i] = rng.Intn(vocabSize)
	}
	return history
}
