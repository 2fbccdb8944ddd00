// Package bench defines the benchmark unit contract: a named piece of
// measurable work, the parameter space it is measured over, how its
// instances may be shared, and how many isolated forks it asks for.
//
// Units are registered explicitly in a Registry rather than discovered by
// annotation. A harness expands each unit's parameters into bindings,
// instantiates the unit per binding and invokes its operations.
package bench

import (
	"errors"
	"fmt"
	"strings"
)

// Unit is the harness-facing view of a benchmark unit.
type Unit interface {
	Name() string
	Scope() Scope
	Params() []Param
	// Forks returns the declared fork count and whether one was declared.
	Forks() (int, bool)
	Operations() []string
	Validate() error
	Instantiate(b Binding) (Instance, error)
}

// Instance is a unit bound to one point of its parameter space.
type Instance interface {
	// RunOperation executes the named operation exactly once.
	RunOperation(name string) (any, error)
	// Close runs the unit's teardown, if any.
	Close() error
}

type operation[T any] struct {
	name string
	fn   func(T) any
}

// Suite declares a benchmark unit whose state is a value of type T.
// Declarations are not safe for concurrent use; declare everything before
// registering the suite.
type Suite[T any] struct {
	name     string
	factory  func() T
	bind     func(T, Binding) error
	setup    func(T) error
	teardown func(T) error

	scope  Scope
	params []Param
	forks  int
	ops    []operation[T]

	errs []error
}

var _ Unit = (*Suite[struct{}])(nil)

// NewSuite starts a unit declaration. factory must return a fresh state
// value on every call.
func NewSuite[T any](name string, factory func() T) *Suite[T] {
	return &Suite[T]{
		name:    name,
		factory: factory,
	}
}

// DeclareStateScope fixes the unit's sharing granularity. A conflicting
// redeclaration is reported by Validate.
func (s *Suite[T]) DeclareStateScope(scope Scope) {
	switch {
	case !scope.valid():
		s.errs = append(s.errs, configErr(s.name, "scope", "%d is not a scope", int(scope)))
	case s.scope != ScopeUnset && s.scope != scope:
		s.errs = append(s.errs, configErr(s.name, "scope",
			"already declared as %s, cannot change to %s", s.scope, scope))
	default:
		s.scope = scope
	}
}

// DeclareParameter registers one axis of the measurement matrix. An empty
// value list registers nothing.
func (s *Suite[T]) DeclareParameter(name string, values ...string) error {
	if strings.TrimSpace(name) == "" {
		return configErr(s.name, "param name", "'%s' must not be blank", name)
	}

	if len(values) == 0 {
		return configErr(s.name, "param "+name, "at least one value is required")
	}

	for _, p := range s.params {
		if p.Name == name {
			return configErr(s.name, "param "+name, "declared twice")
		}
	}

	s.params = append(s.params, Param{
		Name:   name,
		Values: append([]string(nil), values...),
	})

	return nil
}

// DeclareForkCount advises the harness to run every configuration in n
// isolated processes.
func (s *Suite[T]) DeclareForkCount(n int) error {
	if n < 1 {
		return configErr(s.name, "forks", "'%d' expected a positive integer", n)
	}

	s.forks = n

	return nil
}

// DeclareOperation adds a measurable operation. The returned value only
// keeps the work observable; it is never checked for correctness.
func (s *Suite[T]) DeclareOperation(name string, fn func(T) any) error {
	if strings.TrimSpace(name) == "" {
		return configErr(s.name, "operation name", "'%s' must not be blank", name)
	}

	if fn == nil {
		return configErr(s.name, "operation "+name, "function is nil")
	}

	for _, op := range s.ops {
		if op.name == name {
			return configErr(s.name, "operation "+name, "declared twice")
		}
	}

	s.ops = append(s.ops, operation[T]{name: name, fn: fn})

	return nil
}

// OnBind sets the function that copies a binding into fresh state.
func (s *Suite[T]) OnBind(fn func(T, Binding) error) { s.bind = fn }

// OnSetup sets a hook run after binding and before any operation.
func (s *Suite[T]) OnSetup(fn func(T) error) { s.setup = fn }

// OnTearDown sets a hook run when the instance is discarded.
func (s *Suite[T]) OnTearDown(fn func(T) error) { s.teardown = fn }

func (s *Suite[T]) Name() string { return s.name }

func (s *Suite[T]) Scope() Scope { return s.scope }

func (s *Suite[T]) Forks() (int, bool) { return s.forks, s.forks > 0 }

// Params returns a copy of the declared parameters.
func (s *Suite[T]) Params() []Param {
	out := make([]Param, len(s.params))
	for i, p := range s.params {
		out[i] = Param{Name: p.Name, Values: append([]string(nil), p.Values...)}
	}

	return out
}

func (s *Suite[T]) Operations() []string {
	names := make([]string, len(s.ops))
	for i, op := range s.ops {
		names[i] = op.name
	}

	return names
}

// Validate reports every problem with the declaration at once.
func (s *Suite[T]) Validate() error {
	errs := append([]error(nil), s.errs...)

	if strings.TrimSpace(s.name) == "" {
		errs = append(errs, configErr(s.name, "name", "must not be blank"))
	}
	if s.factory == nil {
		errs = append(errs, configErr(s.name, "factory", "must not be nil"))
	}
	if s.scope == ScopeUnset {
		errs = append(errs, configErr(s.name, "scope", "must be declared"))
	}
	if len(s.ops) == 0 {
		errs = append(errs, configErr(s.name, "", "no operations declared"))
	}
	if len(s.params) > 0 && s.bind == nil {
		errs = append(errs, configErr(s.name, "params", "declared without a bind function"))
	}

	return errors.Join(errs...)
}

// Instantiate creates fresh state, binds every declared parameter and runs
// setup.
func (s *Suite[T]) Instantiate(b Binding) (Instance, error) {
	if err := s.checkBinding(b); err != nil {
		return nil, err
	}

	state := s.factory()

	if s.bind != nil {
		if err := s.bind(state, b); err != nil {
			return nil, fmt.Errorf("bind %s: %w", PointID(s.name, "*", b), err)
		}
	}

	if s.setup != nil {
		if err := s.setup(state); err != nil {
			return nil, fmt.Errorf("setup %s: %w", s.name, err)
		}
	}

	return &instance[T]{suite: s, state: state}, nil
}

func (s *Suite[T]) checkBinding(b Binding) error {
	if len(b) != len(s.params) {
		return fmt.Errorf("%w: %s declares %d parameters, got %d",
			ErrBinding, s.name, len(s.params), len(b))
	}

	for i, p := range s.params {
		if b[i].Name != p.Name {
			return fmt.Errorf("%w: %s expects %s at position %d, got %s",
				ErrBinding, s.name, p.Name, i, b[i].Name)
		}
	}

	return nil
}

type instance[T any] struct {
	suite *Suite[T]
	state T
}

func (in *instance[T]) RunOperation(name string) (any, error) {
	for _, op := range in.suite.ops {
		if op.name == name {
			return op.fn(in.state), nil
		}
	}

	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownOperation, in.suite.name, name)
}

func (in *instance[T]) Close() error {
	if in.suite.teardown == nil {
		return nil
	}

	if err := in.suite.teardown(in.state); err != nil {
		return fmt.Errorf("teardown %s: %w", in.suite.name, err)
	}

	return nil
}
