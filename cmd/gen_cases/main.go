package main

import (
	"flag"
	"log"

	"github.com/23skdu/longbow-nock/internal/harness"
)

var (
	outPath   = flag.String("out", "cases.json", "Path to write the case file")
	randomN   = flag.Int("random", 0, "Number of extra randomized cases to append")
	vocabSize = flag.Int("vocab", 50, "Vocabulary size for randomized cases")
	seed      = flag.Int64("seed", 42, "Seed for randomized case generation")
)

func main() {
	flag.Parse()

	cases := harness.Canonical()
	if *randomN > 0 {
		cases = append(cases, harness.Random(*randomN, *vocabSize, *seed)...)
	}

	if err := harness.WriteCases(*outPath, cases); err != nil {
		log.Fatalf("Failed to write cases: %v", err)
	}
	log.Printf("Wrote %d cases to %s", len(cases), *outPath)
}
