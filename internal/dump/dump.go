// Package dump persists trial results. JSON is the interchange format the
// comparison tooling and the reference harness share; Arrow IPC is the
// columnar form used when distributions get large or move over Flight.
package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-nock/internal/harness"
)

// WriteJSON writes results with the same layout as the reference harness.
func WriteJSON(path string, results []harness.Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func ReadJSON(path string) ([]harness.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var results []harness.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return results, nil
}

// DistributionSchema is the columnar layout of dumped distributions: one
// row per (case, token) pair.
var DistributionSchema = arrow.NewSchema([]arrow.Field{
	{Name: "case", Type: arrow.BinaryTypes.String},
	{Name: "token", Type: arrow.PrimitiveTypes.Int32},
	{Name: "count", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// DistributionRecord builds one record batch holding every case's count
// distribution. The caller releases the record.
func DistributionRecord(results []harness.Result) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, DistributionSchema)
	defer b.Release()

	caseB := b.Field(0).(*array.StringBuilder)
	tokenB := b.Field(1).(*array.Int32Builder)
	countB := b.Field(2).(*array.Int64Builder)

	for _, res := range results {
		for token, count := range res.Distribution {
			caseB.Append(res.Case)
			tokenB.Append(int32(token))
			countB.Append(int64(count))
		}
	}
	return b.NewRecord()
}

// WriteArrow dumps the distributions as an Arrow IPC file.
func WriteArrow(path string, results []harness.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create arrow file: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(DistributionSchema), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return fmt.Errorf("failed to create arrow writer: %w", err)
	}

	rec := DistributionRecord(results)
	defer rec.Release()

	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close arrow writer: %w", err)
	}
	return nil
}

// ReadArrow restores per-case distributions from an Arrow IPC file. Only
// the case name and counts survive the columnar round trip; parameters and
// raw samples live in the JSON form.
func ReadArrow(path string) ([]harness.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	defer r.Close()

	byCase := make(map[string]*harness.Result)
	var order []string

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		if rec.NumCols() != 3 {
			return nil, fmt.Errorf("not a distribution file: %d columns, want 3", rec.NumCols())
		}
		names, ok := rec.Column(0).(*array.String)
		if !ok {
			return nil, fmt.Errorf("unexpected case column type %T", rec.Column(0))
		}
		tokens, ok := rec.Column(1).(*array.Int32)
		if !ok {
			return nil, fmt.Errorf("unexpected token column type %T", rec.Column(1))
		}
		counts, ok := rec.Column(2).(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("unexpected count column type %T", rec.Column(2))
		}

		for row := 0; row < int(rec.NumRows()); row++ {
			name := names.Value(row)
			res, ok := byCase[name]
			if !ok {
				res = &harness.Result{Case: name}
				byCase[name] = res
				order = append(order, name)
			}
			token := int(tokens.Value(row))
			for len(res.Distribution) <= token {
				res.Distribution = append(res.Distribution, 0)
			}
			res.Distribution[token] = int(counts.Value(row))
			res.TotalSamples += int(counts.Value(row))
		}
	}

	results := make([]harness.Result, 0, len(order))
	for _, name := range order {
		results = append(results, *byCase[name])
	}
	return results, nil
}
