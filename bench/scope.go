package bench

import (
	"fmt"
	"strings"
)

// Scope describes how the harness may share a unit instance across
// concurrent measurement threads.
type Scope int

const (
	// ScopeUnset marks a unit that has not declared its scope yet.
	ScopeUnset Scope = iota
	// ScopeThread gives every measurement thread its own instance.
	ScopeThread
	// ScopeBenchmark shares one instance across all threads of a run.
	ScopeBenchmark
	// ScopeGroup shares one instance within a thread group. Groups hold a
	// single thread in this harness, so it behaves like ScopeThread.
	ScopeGroup
)

func (s Scope) String() string {
	switch s {
	case ScopeThread:
		return "thread"
	case ScopeBenchmark:
		return "benchmark"
	case ScopeGroup:
		return "group"
	default:
		return "unset"
	}
}

// Shared reports whether one instance serves every thread of a point.
func (s Scope) Shared() bool {
	return s == ScopeBenchmark
}

func (s Scope) valid() bool {
	return s == ScopeThread || s == ScopeBenchmark || s == ScopeGroup
}

// ParseScope converts a scope name back to a Scope.
func ParseScope(name string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "thread":
		return ScopeThread, nil
	case "benchmark":
		return ScopeBenchmark, nil
	case "group":
		return ScopeGroup, nil
	default:
		return ScopeUnset, fmt.Errorf("unknown scope %q", name)
	}
}
