// Package samples holds the sample benchmark units shipped with benchunit.
package samples

import (
	"strconv"
	"strings"

	"github.com/weiihann/benchunit/bench"
)

const (
	// SampleName is the unit with no parameters.
	SampleName = "test.SampleBenchmark"
	// ParamSampleName is the unit parameterized over stringValue and
	// intValue.
	ParamSampleName = "test.SampleParamBenchmark"

	// Operation is the single operation both units declare.
	Operation = "stringBuilder"
)

// StringBuilder is the state of the sample units.
type StringBuilder struct {
	StringValue string
	IntValue    int
	withParams  bool
}

// Build appends 10, then the bound string, then the bound int.
func (s *StringBuilder) Build() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(10))

	if s.withParams {
		sb.WriteString(s.StringValue)
		sb.WriteString(strconv.Itoa(s.IntValue))
	}

	return sb.String()
}

// NewSample declares the unit with no parameters.
func NewSample() (*bench.Suite[*StringBuilder], error) {
	s := bench.NewSuite(SampleName, func() *StringBuilder {
		return &StringBuilder{}
	})
	s.DeclareStateScope(bench.ScopeBenchmark)

	if err := s.DeclareOperation(Operation, build); err != nil {
		return nil, err
	}

	return s, nil
}

// NewParamSample declares the unit measured over stringValue ∈ {A, B} and
// intValue ∈ {1, 2} in a single fork.
func NewParamSample() (*bench.Suite[*StringBuilder], error) {
	s := bench.NewSuite(ParamSampleName, func() *StringBuilder {
		return &StringBuilder{withParams: true}
	})
	s.DeclareStateScope(bench.ScopeBenchmark)

	if err := s.DeclareForkCount(1); err != nil {
		return nil, err
	}
	if err := s.DeclareParameter("stringValue", "A", "B"); err != nil {
		return nil, err
	}
	if err := s.DeclareParameter("intValue", "1", "2"); err != nil {
		return nil, err
	}

	s.OnBind(func(sb *StringBuilder, b bench.Binding) error {
		n, err := b.Int("intValue")
		if err != nil {
			return err
		}

		sb.StringValue = b.String("stringValue")
		sb.IntValue = n

		return nil
	})

	if err := s.DeclareOperation(Operation, build); err != nil {
		return nil, err
	}

	return s, nil
}

func build(s *StringBuilder) any {
	return s.Build()
}

// Register adds every sample unit to r.
func Register(r *bench.Registry) error {
	sample, err := NewSample()
	if err != nil {
		return err
	}

	if err := r.Register(sample); err != nil {
		return err
	}

	param, err := NewParamSample()
	if err != nil {
		return err
	}

	return r.Register(param)
}
