package compare

import (
	"testing"

	"github.com/23skdu/longbow-nock/internal/harness"
)

func result(name string, dist []int) harness.Result {
	total := 0
	for _, c := range dist {
		total += c
	}
	return harness.Result{Case: name, Distribution: dist, TotalSamples: total}
}

func TestIdenticalRunsPass(t *testing.T) {
	a := []harness.Result{result("basic", []int{500, 300, 200})}
	b := []harness.Result{result("basic", []int{500, 300, 200})}

	report, err := Runs(a, b, DefaultOptions())
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if !report.Pass() {
		t.Errorf("identical runs failed: %+v", report.Cases)
	}
	if report.Cases[0].TVDistance != 0 {
		t.Errorf("tv distance %v, want 0", report.Cases[0].TVDistance)
	}
}

func TestCloseRunsPass(t *testing.T) {
	// Sampling noise of the size two honest 1000-draw runs produce.
	a := []harness.Result{result("basic", []int{510, 290, 200})}
	b := []harness.Result{result("basic", []int{495, 306, 199})}

	report, err := Runs(a, b, DefaultOptions())
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if !report.Pass() {
		t.Errorf("close runs failed: %+v", report.Cases)
	}
}

func TestDivergentRunsFail(t *testing.T) {
	a := []harness.Result{result("basic", []int{900, 50, 50})}
	b := []harness.Result{result("basic", []int{100, 450, 450})}

	report, err := Runs(a, b, DefaultOptions())
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if report.Pass() {
		t.Error("divergent runs passed")
	}
	if report.Cases[0].TVDistance < 0.5 {
		t.Errorf("tv distance %v, want large", report.Cases[0].TVDistance)
	}
}

func TestLengthMismatchFails(t *testing.T) {
	a := []harness.Result{result("basic", []int{500, 500})}
	b := []harness.Result{result("basic", []int{500, 400, 100})}

	report, err := Runs(a, b, DefaultOptions())
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if report.Pass() {
		t.Error("mismatched vocabularies passed")
	}
}

func TestMissingCaseFails(t *testing.T) {
	a := []harness.Result{
		result("basic", []int{500, 500}),
		result("extra", []int{1000}),
	}
	b := []harness.Result{result("basic", []int{500, 500})}

	report, err := Runs(a, b, DefaultOptions())
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if report.Pass() {
		t.Error("run with a missing case passed")
	}
	if len(report.Cases) != 2 {
		t.Errorf("got %d case reports, want 2", len(report.Cases))
	}
}

func TestEmptyReportFails(t *testing.T) {
	report, err := Runs(nil, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if report.Pass() {
		t.Error("empty report passed")
	}
}

func TestUnsupportedAlpha(t *testing.T) {
	opts := DefaultOptions()
	opts.Alpha = 0.2
	if _, err := Runs(nil, nil, opts); err == nil {
		t.Error("unsupported alpha accepted")
	}
}

func TestChiSquareCritical(t *testing.T) {
	// Exact values: chi2(0.99, 10) = 23.21, chi2(0.95, 10) = 18.31.
	got := chiSquareCritical(10, 0.01)
	if got < 22.5 || got > 24.0 {
		t.Errorf("critical(10, 0.01) = %v, want ~23.2", got)
	}
	got = chiSquareCritical(10, 0.05)
	if got < 17.8 || got > 18.8 {
		t.Errorf("critical(10, 0.05) = %v, want ~18.3", got)
	}
}
