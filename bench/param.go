package bench

import (
	"fmt"
	"strconv"
	"strings"
)

// Param is one axis of the measurement matrix: a name and the literal
// values the harness enumerates for it.
type Param struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Assignment binds a single parameter to one of its values.
type Assignment struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Binding is one point of the cross product, in declaration order.
type Binding []Assignment

// Lookup returns the value bound to name.
func (b Binding) Lookup(name string) (string, bool) {
	for _, a := range b {
		if a.Name == name {
			return a.Value, true
		}
	}

	return "", false
}

// String returns the value bound to name, or "" when unbound.
func (b Binding) String(name string) string {
	v, _ := b.Lookup(name)

	return v
}

// Int parses the value bound to name as a base-10 integer.
func (b Binding) Int(name string) (int, error) {
	v, ok := b.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not bound", ErrBinding, name)
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrBinding, name, v)
	}

	return n, nil
}

// Bool parses the value bound to name with strconv.ParseBool.
func (b Binding) Bool(name string) (bool, error) {
	v, ok := b.Lookup(name)
	if !ok {
		return false, fmt.Errorf("%w: %s is not bound", ErrBinding, name)
	}

	x, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrBinding, name, v)
	}

	return x, nil
}

// Float parses the value bound to name as a 64-bit float.
func (b Binding) Float(name string) (float64, error) {
	v, ok := b.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not bound", ErrBinding, name)
	}

	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrBinding, name, v)
	}

	return x, nil
}

// Map copies the binding into a map.
func (b Binding) Map() map[string]string {
	m := make(map[string]string, len(b))
	for _, a := range b {
		m[a.Name] = a.Value
	}

	return m
}

// Format renders the binding as "k=v, k=v".
func (b Binding) Format() string {
	parts := make([]string, len(b))
	for i, a := range b {
		parts[i] = a.Name + "=" + a.Value
	}

	return strings.Join(parts, ", ")
}

// Equal reports whether both bindings assign the same values in the same
// order.
func (b Binding) Equal(other Binding) bool {
	if len(b) != len(other) {
		return false
	}

	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}

	return true
}

// PointID names one point of the matrix, e.g.
// "test.Sample.build | stringValue=A, intValue=1".
func PointID(unit, operation string, b Binding) string {
	id := unit + "." + operation
	if len(b) == 0 {
		return id
	}

	return id + " | " + b.Format()
}
