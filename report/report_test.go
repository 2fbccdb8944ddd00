package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/weiihann/benchunit/bench"
	"github.com/weiihann/benchunit/harness"
)

func params(s, i string) bench.Binding {
	return bench.Binding{
		{Name: "stringValue", Value: s},
		{Name: "intValue", Value: i},
	}
}

func sampleResults() []harness.Result {
	return []harness.Result{
		{
			Unit:          "test.SampleBenchmark",
			Operation:     "stringBuilder",
			Params:        bench.Binding{},
			Scope:         "benchmark",
			Fork:          1,
			Threads:       1,
			Invocations:   2,
			Instances:     1,
			Output:        "10",
			Deterministic: true,
			ElapsedNs:     1500,
		},
		{
			Unit:          "test.SampleParamBenchmark",
			Operation:     "stringBuilder",
			Params:        params("A", "1"),
			Scope:         "benchmark",
			Fork:          1,
			Threads:       2,
			Invocations:   2,
			Instances:     1,
			Output:        "10A1",
			Deterministic: true,
			ElapsedNs:     2_500_000,
		},
	}
}

func TestGenerateMatchingOutputs(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, sampleResults()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "all match") {
		t.Error("expected 'all match' for consistent outputs")
	}
	if !strings.Contains(output, "(stringValue)") || !strings.Contains(output, "(intValue)") {
		t.Error("expected parameter columns")
	}
	if !strings.Contains(output, "| test.SampleBenchmark.stringBuilder | N/A | N/A | 1 |") {
		t.Errorf("expected N/A for unbound params, got:\n%s", output)
	}
	if !strings.Contains(output, "10A1") {
		t.Error("expected 10A1 in output")
	}
	if !strings.Contains(output, "| 4 | 2.50ms | ok |") {
		t.Errorf("expected calls, elapsed and status, got:\n%s", output)
	}
}

func TestGenerateMismatchedOutputs(t *testing.T) {
	results := []harness.Result{
		{Unit: "u", Operation: "op", Fork: 1, Output: "a", Deterministic: true},
		{Unit: "u", Operation: "op", Fork: 2, Output: "b", Deterministic: true},
	}

	var buf bytes.Buffer
	if err := Generate(&buf, results); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "MISMATCH") {
		t.Error("expected MISMATCH for differing forks")
	}
	if !strings.Contains(output, "u.op: a / b") {
		t.Errorf("expected mismatch details, got:\n%s", output)
	}
}

func TestGenerateFailedStatus(t *testing.T) {
	results := []harness.Result{
		{Unit: "u", Operation: "op", Output: "1", Error: "boom"},
	}

	var buf bytes.Buffer
	if err := Generate(&buf, results); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.Contains(buf.String(), "FAIL: boom") {
		t.Errorf("expected failure status, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "| - |") {
		t.Error("expected in-process fork marker")
	}
}

func TestGenerateEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, nil); err == nil {
		t.Error("expected error for empty results")
	}
	if err := GenerateTable(&buf, nil); err == nil {
		t.Error("expected error for empty results")
	}
}

func TestGenerateTable(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateTable(&buf, sampleResults()); err != nil {
		t.Fatalf("GenerateTable failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Benchmark", "(stringValue)", "10A1", "test.SampleBenchmark.stringBuilder"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in table, got:\n%s", want, output)
		}
	}
}

func TestGenerateJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateJSON(&buf, sampleResults()); err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}

	var parsed []harness.Result
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if len(parsed) != 2 {
		t.Fatalf("expected 2 results, got %d", len(parsed))
	}
	if parsed[1].Output != "10A1" {
		t.Errorf("output = %q, want 10A1", parsed[1].Output)
	}
}

func TestGenerateCSV(t *testing.T) {
	for _, tt := range []struct {
		format string
		comma  rune
	}{
		{"csv", ','},
		{"scsv", ';'},
	} {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, tt.format, sampleResults()); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			r := csv.NewReader(&buf)
			r.Comma = tt.comma

			records, err := r.ReadAll()
			if err != nil {
				t.Fatalf("invalid csv: %v", err)
			}

			if len(records) != 3 {
				t.Fatalf("records = %d, want 3", len(records))
			}
			if records[0][1] != "Param: stringValue" {
				t.Errorf("header[1] = %q", records[0][1])
			}
			if records[2][1] != "A" || records[2][2] != "1" {
				t.Errorf("param cells = %q, %q", records[2][1], records[2][2])
			}
			if records[1][1] != "" {
				t.Errorf("unbound param cell = %q, want empty", records[1][1])
			}
		})
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "htmll", sampleResults()); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDefaultFormat(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := DefaultFormat(f); got != "markdown" {
		t.Errorf("DefaultFormat(file) = %q, want markdown", got)
	}
}

func TestFormatNs(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0ns"},
		{999, "999ns"},
		{1500, "1.50us"},
		{2_500_000, "2.50ms"},
		{1_500_000_000, "1.50s"},
	}

	for _, tt := range tests {
		got := formatNs(tt.input)
		if got != tt.want {
			t.Errorf("formatNs(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
