// Package report formats verification results.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/weiihann/benchunit/bench"
	"github.com/weiihann/benchunit/harness"
)

// Formats lists every supported report format.
var Formats = []string{"markdown", "table", "json", "csv", "scsv"}

// DefaultFormat picks a terminal table when f is a terminal and markdown
// otherwise.
func DefaultFormat(f *os.File) string {
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "table"
	}

	return "markdown"
}

// Write renders results in the named format.
func Write(w io.Writer, format string, results []harness.Result) error {
	switch strings.ToLower(format) {
	case "markdown", "":
		return Generate(w, results)
	case "table":
		return GenerateTable(w, results)
	case "json":
		return GenerateJSON(w, results)
	case "csv":
		return GenerateCSV(w, ',', results)
	case "scsv":
		return GenerateCSV(w, ';', results)
	default:
		return fmt.Errorf("report format %q is not supported, use one of %s",
			format, strings.Join(Formats, ", "))
	}
}

// Generate writes a markdown table for the given results.
func Generate(w io.Writer, results []harness.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	mismatches := checkOutputs(results)
	params := paramNames(results)

	// Header.
	fmt.Fprintln(w, "## Verification Results")
	fmt.Fprintln(w)

	// Cross-fork consistency.
	if len(mismatches) == 0 {
		fmt.Fprintln(w, "Outputs across forks: **all match**")
	} else {
		fmt.Fprintln(w, "Outputs across forks: **MISMATCH**")

		for _, m := range mismatches {
			fmt.Fprintf(w, "  - %s: %s\n", m.id, strings.Join(m.outputs, " / "))
		}
	}

	fmt.Fprintln(w)

	// Table header.
	header := []string{"Benchmark"}
	for _, p := range params {
		header = append(header, "("+p+")")
	}
	header = append(header, "Fork", "Scope", "Output", "Calls", "Elapsed", "Status")

	fmt.Fprintln(w, "| "+strings.Join(header, " | ")+" |")

	sep := make([]string, len(header))
	for i, h := range header {
		sep[i] = strings.Repeat("-", len(h)+2)
	}
	fmt.Fprintln(w, "|"+strings.Join(sep, "|")+"|")

	for _, r := range rows(results, params) {
		fmt.Fprintln(w, "| "+strings.Join(r, " | ")+" |")
	}

	return nil
}

// GenerateTable writes a bordered terminal table.
func GenerateTable(w io.Writer, results []harness.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	params := paramNames(results)

	header := []string{"Benchmark"}
	for _, p := range params {
		header = append(header, "("+p+")")
	}
	header = append(header, "Fork", "Scope", "Output", "Calls", "Elapsed", "Status")

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	failStyle := cellStyle.Foreground(lipgloss.Color("9"))

	body := rows(results, params)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(header...).
		Rows(body...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(results) && results[row].Failed():
				return failStyle
			default:
				return cellStyle
			}
		})

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}

	if mismatches := checkOutputs(results); len(mismatches) > 0 {
		fmt.Fprintln(w, "Outputs across forks: MISMATCH")

		for _, m := range mismatches {
			fmt.Fprintf(w, "  - %s: %s\n", m.id, strings.Join(m.outputs, " / "))
		}
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []harness.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

// GenerateCSV writes one record per result using the given delimiter.
func GenerateCSV(w io.Writer, delimiter rune, results []harness.Result) error {
	params := paramNames(results)

	cw := csv.NewWriter(w)
	cw.Comma = delimiter

	header := []string{"Benchmark"}
	for _, p := range params {
		header = append(header, "Param: "+p)
	}
	header = append(header,
		"Fork", "Scope", "Threads", "Invocations", "Instances",
		"Output", "Deterministic", "Elapsed (ns)", "Error",
	)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		record := []string{r.Unit + "." + r.Operation}
		for _, p := range params {
			record = append(record, r.Params.String(p))
		}
		record = append(record,
			strconv.Itoa(r.Fork),
			r.Scope,
			strconv.Itoa(r.Threads),
			strconv.Itoa(r.Invocations),
			strconv.Itoa(r.Instances),
			r.Output,
			strconv.FormatBool(r.Deterministic),
			strconv.FormatInt(r.ElapsedNs, 10),
			r.Error,
		)

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record %s: %w", r.ID(), err)
		}
	}

	cw.Flush()

	return cw.Error()
}

func rows(results []harness.Result, params []string) [][]string {
	out := make([][]string, 0, len(results))

	for _, r := range results {
		row := []string{r.Unit + "." + r.Operation}
		for _, p := range params {
			v, ok := r.Params.Lookup(p)
			if !ok {
				v = "N/A"
			}
			row = append(row, v)
		}

		row = append(row,
			formatFork(r.Fork),
			r.Scope,
			r.Output,
			strconv.Itoa(r.Threads*r.Invocations),
			formatNs(r.ElapsedNs),
			status(r),
		)

		out = append(out, row)
	}

	return out
}

type mismatch struct {
	id      string
	outputs []string
}

// checkOutputs returns every point whose forks disagree on the output.
func checkOutputs(results []harness.Result) []mismatch {
	var (
		order   []string
		outputs = make(map[string][]string)
	)

	for _, r := range results {
		id := bench.PointID(r.Unit, r.Operation, r.Params)
		if _, ok := outputs[id]; !ok {
			order = append(order, id)
		}

		outputs[id] = append(outputs[id], r.Output)
	}

	var out []mismatch

	for _, id := range order {
		outs := outputs[id]
		for _, o := range outs[1:] {
			if o != outs[0] {
				out = append(out, mismatch{id: id, outputs: outs})

				break
			}
		}
	}

	return out
}

func paramNames(results []harness.Result) []string {
	var names []string

	seen := make(map[string]bool)

	for _, r := range results {
		for _, a := range r.Params {
			if !seen[a.Name] {
				seen[a.Name] = true
				names = append(names, a.Name)
			}
		}
	}

	return names
}

func status(r harness.Result) string {
	if !r.Failed() {
		return "ok"
	}

	if r.Error != "" {
		return "FAIL: " + r.Error
	}

	return "FAIL"
}

func formatFork(fork int) string {
	if fork == 0 {
		return "-"
	}

	return strconv.Itoa(fork)
}

func formatNs(ns int64) string {
	d := time.Duration(ns)

	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", ns)
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fus", float64(ns)/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(ns)/1e6)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
