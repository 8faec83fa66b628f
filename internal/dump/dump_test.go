package dump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-nock/internal/harness"
)

func sampleResults() []harness.Result {
	return []harness.Result{
		{
			Case:         "alpha",
			Parameters:   harness.Canonical()[3],
			Samples:      []int{2, 0, 2, 2, 1},
			Distribution: []int{120, 30, 850},
			TotalSamples: 1000,
		},
		{
			Case:         "beta",
			Distribution: []int{500, 250, 250, 0},
			TotalSamples: 1000,
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	want := sampleResults()

	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("read %d results, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Case != want[i].Case || got[i].TotalSamples != want[i].TotalSamples {
			t.Errorf("result %d mismatch: %+v vs %+v", i, got[i], want[i])
		}
		for j := range want[i].Distribution {
			if got[i].Distribution[j] != want[i].Distribution[j] {
				t.Errorf("result %d token %d: %d vs %d", i, j, got[i].Distribution[j], want[i].Distribution[j])
			}
		}
	}
}

func TestArrowRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.arrow")
	want := sampleResults()

	if err := WriteArrow(path, want); err != nil {
		t.Fatalf("WriteArrow failed: %v", err)
	}
	got, err := ReadArrow(path)
	if err != nil {
		t.Fatalf("ReadArrow failed: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("read %d results, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Case != want[i].Case {
			t.Errorf("result %d: case %q, want %q", i, got[i].Case, want[i].Case)
		}
		if len(got[i].Distribution) != len(want[i].Distribution) {
			t.Fatalf("result %d: distribution length %d, want %d", i, len(got[i].Distribution), len(want[i].Distribution))
		}
		sum := 0
		for j := range want[i].Distribution {
			if got[i].Distribution[j] != want[i].Distribution[j] {
				t.Errorf("result %d token %d: %d vs %d", i, j, got[i].Distribution[j], want[i].Distribution[j])
			}
			sum += got[i].Distribution[j]
		}
		if got[i].TotalSamples != sum {
			t.Errorf("result %d: total %d, want recomputed %d", i, got[i].TotalSamples, sum)
		}
	}
}

func writeArrowFile(t *testing.T, path string, schema *arrow.Schema, fill func(*array.RecordBuilder)) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	fill(b)
	rec := b.NewRecord()
	defer rec.Release()

	if err := w.Write(rec); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
}

func TestReadArrowRejectsForeignSchema(t *testing.T) {
	// compare_runs feeds ReadArrow arbitrary files, so a schema mismatch
	// must come back as an error rather than a panic.
	path := filepath.Join(t.TempDir(), "foreign.arrow")
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, nil)
	writeArrowFile(t, path, schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.Float64Builder).AppendValues([]float64{1.5, 2.5}, nil)
	})

	if _, err := ReadArrow(path); err == nil {
		t.Fatal("single-column file accepted")
	}
}

func TestReadArrowRejectsWrongColumnType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrongtype.arrow")
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "case", Type: arrow.BinaryTypes.String},
		{Name: "token", Type: arrow.PrimitiveTypes.Int64},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	writeArrowFile(t, path, schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.StringBuilder).Append("alpha")
		b.Field(1).(*array.Int64Builder).Append(0)
		b.Field(2).(*array.Int64Builder).Append(10)
	})

	if _, err := ReadArrow(path); err == nil {
		t.Fatal("int64 token column accepted")
	}
}

func TestDistributionRecordShape(t *testing.T) {
	rec := DistributionRecord(sampleResults())
	defer rec.Release()

	wantRows := int64(3 + 4)
	if rec.NumRows() != wantRows {
		t.Errorf("record has %d rows, want %d", rec.NumRows(), wantRows)
	}
	if rec.NumCols() != 3 {
		t.Errorf("record has %d columns, want 3", rec.NumCols())
	}
}
