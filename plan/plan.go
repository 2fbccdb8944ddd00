// Package plan expands registered benchmark units into a deterministic
// JSONL run plan. Each line names one point of the measurement matrix:
// a unit, one of its operations and a full parameter binding.
package plan

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"regexp"

	"github.com/weiihann/benchunit/bench"
)

// Entry is a single point in the plan.
type Entry struct {
	Unit      string        `json:"unit"`
	Operation string        `json:"operation"`
	Params    bench.Binding `json:"params"`
	Forks     int           `json:"forks,omitempty"`
}

// ID returns the point id, e.g. "u.op | a=1".
func (e Entry) ID() string {
	return bench.PointID(e.Unit, e.Operation, e.Params)
}

// Summary contains statistics about the generated plan.
type Summary struct {
	Units      int
	Operations int
	Bindings   int
	Entries    int
}

// Config controls plan generation.
type Config struct {
	Include []*regexp.Regexp
	Exclude []*regexp.Regexp
	// Params overrides declared parameter domains for every unit that
	// declares the parameter.
	Params map[string][]string
	// Forks overrides each unit's declared fork count when positive.
	Forks int
}

// Generator produces plans from a registry.
type Generator struct {
	reg *bench.Registry
	cfg Config
}

// NewGenerator creates a Generator over reg.
func NewGenerator(reg *bench.Registry, cfg Config) *Generator {
	return &Generator{reg: reg, cfg: cfg}
}

// Build returns every selected point in order: units in registration
// order, then bindings in cross-product order, then operations.
func (g *Generator) Build() ([]Entry, Summary, error) {
	var (
		entries []Entry
		summary Summary
	)

	for _, sel := range g.reg.Select(g.cfg.Include, g.cfg.Exclude) {
		u := sel.Unit

		bindings, err := bench.Expand(u, bench.FilterOverrides(u, g.cfg.Params))
		if err != nil {
			return nil, summary, fmt.Errorf("expand %s: %w", u.Name(), err)
		}

		forks := g.forks(u)

		for _, b := range bindings {
			for _, op := range sel.Operations {
				entries = append(entries, Entry{
					Unit:      u.Name(),
					Operation: op,
					Params:    b,
					Forks:     forks,
				})
			}
		}

		summary.Units++
		summary.Operations += len(sel.Operations)
		summary.Bindings += len(bindings)
	}

	summary.Entries = len(entries)

	return entries, summary, nil
}

// Generate writes the plan to w as JSONL and returns a Summary.
func (g *Generator) Generate(w io.Writer) (Summary, error) {
	entries, summary, err := g.Build()
	if err != nil {
		return summary, err
	}

	if err := Write(w, entries); err != nil {
		return summary, err
	}

	return summary, nil
}

func (g *Generator) forks(u bench.Unit) int {
	if g.cfg.Forks > 0 {
		return g.cfg.Forks
	}

	if n, ok := u.Forks(); ok {
		return n
	}

	return 1
}

// Write encodes entries as JSONL.
func Write(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode %s: %w", e.ID(), err)
		}
	}

	return nil
}

// Read decodes a JSONL plan.
func Read(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++

		if len(scanner.Bytes()) == 0 {
			continue
		}

		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("line %d: decode entry: %w", line, err)
		}

		entries = append(entries, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	return entries, nil
}

// Group is a set of entries that share a unit and binding, run together
// in one fork.
type Group struct {
	Unit    string
	Params  bench.Binding
	Forks   int
	Entries []Entry
}

// Groups splits entries into configurations, preserving order.
func Groups(entries []Entry) []Group {
	var groups []Group

	for _, e := range entries {
		n := len(groups)
		if n > 0 && groups[n-1].Unit == e.Unit && groups[n-1].Params.Equal(e.Params) {
			groups[n-1].Entries = append(groups[n-1].Entries, e)

			continue
		}

		groups = append(groups, Group{
			Unit:    e.Unit,
			Params:  e.Params,
			Forks:   max(e.Forks, 1),
			Entries: []Entry{e},
		})
	}

	return groups
}
