// Package compare checks two trial runs of the same cases against each
// other: sample range, candidate support, total-variation distance, and a
// Pearson chi-square goodness-of-fit test between the count distributions.
// It is how a run of this sampler is validated against a run of the
// reference implementation.
package compare

import (
	"fmt"
	"math"

	"github.com/23skdu/longbow-nock/internal/harness"
)

// Options tune the acceptance thresholds.
type Options struct {
	// MaxTVDistance is the largest acceptable total-variation distance
	// between the two normalized distributions.
	MaxTVDistance float64

	// Alpha is the chi-square significance level. Only 0.01 and 0.05 are
	// supported.
	Alpha float64

	// MinExpected drops bins whose expected count is below this value
	// from the chi-square statistic.
	MinExpected float64
}

func DefaultOptions() Options {
	return Options{
		MaxTVDistance: 0.1,
		Alpha:         0.01,
		MinExpected:   5,
	}
}

// CaseReport is the verdict for one case.
type CaseReport struct {
	Case       string
	TVDistance float64
	ChiSquare  float64
	Critical   float64
	DoF        int
	Pass       bool
	Notes      []string
}

// Report aggregates per-case verdicts.
type Report struct {
	Cases []CaseReport
}

func (r *Report) Pass() bool {
	for _, c := range r.Cases {
		if !c.Pass {
			return false
		}
	}
	return len(r.Cases) > 0
}

// Runs compares results case by case, matching on case name. A case present
// in only one run fails the report.
func Runs(a, b []harness.Result, opts Options) (*Report, error) {
	if opts.Alpha != 0.01 && opts.Alpha != 0.05 {
		return nil, fmt.Errorf("unsupported alpha %v (want 0.01 or 0.05)", opts.Alpha)
	}

	byName := make(map[string]harness.Result, len(b))
	for _, res := range b {
		byName[res.Case] = res
	}

	report := &Report{}
	seen := make(map[string]bool, len(a))
	for _, left := range a {
		seen[left.Case] = true
		right, ok := byName[left.Case]
		if !ok {
			report.Cases = append(report.Cases, CaseReport{
				Case:  left.Case,
				Notes: []string{"case missing from second run"},
			})
			continue
		}
		report.Cases = append(report.Cases, compareCase(left, right, opts))
	}
	for _, right := range b {
		if !seen[right.Case] {
			report.Cases = append(report.Cases, CaseReport{
				Case:  right.Case,
				Notes: []string{"case missing from first run"},
			})
		}
	}
	return report, nil
}

func compareCase(a, b harness.Result, opts Options) CaseReport {
	rep := CaseReport{Case: a.Case}

	if len(a.Distribution) != len(b.Distribution) {
		rep.Notes = append(rep.Notes,
			fmt.Sprintf("distribution lengths differ: %d vs %d", len(a.Distribution), len(b.Distribution)))
		return rep
	}
	if a.TotalSamples == 0 || b.TotalSamples == 0 {
		rep.Notes = append(rep.Notes, "empty run")
		return rep
	}

	rep.TVDistance = tvDistance(a.Distribution, a.TotalSamples, b.Distribution, b.TotalSamples)

	chi2, dof := chiSquare(a, b, opts.MinExpected)
	rep.ChiSquare = chi2
	rep.DoF = dof
	rep.Critical = chiSquareCritical(dof, opts.Alpha)

	rep.Pass = rep.TVDistance <= opts.MaxTVDistance
	if dof > 0 && chi2 > rep.Critical {
		rep.Pass = false
		rep.Notes = append(rep.Notes,
			fmt.Sprintf("chi-square %.2f exceeds critical %.2f at dof %d", chi2, rep.Critical, dof))
	}
	if rep.TVDistance > opts.MaxTVDistance {
		rep.Notes = append(rep.Notes,
			fmt.Sprintf("total variation distance %.4f exceeds %.4f", rep.TVDistance, opts.MaxTVDistance))
	}
	return rep
}

func tvDistance(a []int, na int, b []int, nb int) float64 {
	d := 0.0
	for i := range a {
		d += math.Abs(float64(a[i])/float64(na) - float64(b[i])/float64(nb))
	}
	return d / 2
}

// chiSquare tests b's counts against expectations derived from a's
// proportions. Bins below minExpected are pooled out, as the reference
// comparison does.
func chiSquare(a, b harness.Result, minExpected float64) (float64, int) {
	chi2 := 0.0
	bins := 0
	for i := range a.Distribution {
		expected := float64(a.Distribution[i]) / float64(a.TotalSamples) * float64(b.TotalSamples)
		if expected < minExpected {
			continue
		}
		observed := float64(b.Distribution[i])
		chi2 += (observed - expected) * (observed - expected) / expected
		bins++
	}
	if bins < 2 {
		return chi2, 0
	}
	return chi2, bins - 1
}

// chiSquareCritical approximates the upper critical value via the
// Wilson-Hilferty cube transform, which is within a percent of the exact
// value for the degrees of freedom seen here.
func chiSquareCritical(dof int, alpha float64) float64 {
	if dof <= 0 {
		return 0
	}
	z := 2.3263 // alpha = 0.01
	if alpha == 0.05 {
		z = 1.6449
	}
	k := float64(dof)
	t := 1 - 2/(9*k) + z*math.Sqrt(2/(9*k))
	return k * t * t * t
}
