package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/23skdu/longbow-nock/internal/compare"
	"github.com/23skdu/longbow-nock/internal/dump"
	"github.com/23skdu/longbow-nock/internal/harness"
)

var (
	pathA = flag.String("a", "", "First result file (json or arrow)")
	pathB = flag.String("b", "", "Second result file (json or arrow)")
	maxTV = flag.Float64("tv", 0.1, "Maximum acceptable total-variation distance")
	alpha = flag.Float64("alpha", 0.01, "Chi-square significance level (0.01 or 0.05)")
)

func load(path string) ([]harness.Result, error) {
	if strings.HasSuffix(path, ".arrow") {
		return dump.ReadArrow(path)
	}
	return dump.ReadJSON(path)
}

func main() {
	flag.Parse()

	if *pathA == "" || *pathB == "" {
		fmt.Println("Error: both -a and -b result files are required")
		flag.Usage()
		os.Exit(1)
	}

	a, err := load(*pathA)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *pathA, err)
	}
	b, err := load(*pathB)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *pathB, err)
	}

	opts := compare.DefaultOptions()
	opts.MaxTVDistance = *maxTV
	opts.Alpha = *alpha

	report, err := compare.Runs(a, b, opts)
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	for _, c := range report.Cases {
		verdict := "PASS"
		if !c.Pass {
			verdict = "FAIL"
		}
		fmt.Printf("%-20s %s  tv=%.4f chi2=%.2f (crit %.2f, dof %d)\n",
			c.Case, verdict, c.TVDistance, c.ChiSquare, c.Critical, c.DoF)
		for _, note := range c.Notes {
			fmt.Printf("%-20s      %s\n", "", note)
		}
	}

	if !report.Pass() {
		os.Exit(1)
	}
	fmt.Printf("All %d cases match\n", len(report.Cases))
}
