package bench

// Expand returns every binding in the cross product of u's parameter
// domains. overrides replaces the declared domain of a parameter; naming an
// undeclared parameter or giving it no values is a ConfigurationError.
// The last declared parameter varies fastest. A unit without parameters
// yields a single empty binding.
func Expand(u Unit, overrides map[string][]string) ([]Binding, error) {
	params := u.Params()

	for name, values := range overrides {
		found := false

		for i := range params {
			if params[i].Name != name {
				continue
			}

			found = true

			if len(values) == 0 {
				return nil, configErr(u.Name(), "param "+name, "override has no values")
			}

			params[i].Values = append([]string(nil), values...)
		}

		if !found {
			return nil, configErr(u.Name(), "param "+name, "not declared by this unit")
		}
	}

	for _, p := range params {
		if len(p.Values) == 0 {
			return nil, configErr(u.Name(), "param "+p.Name, "at least one value is required")
		}
	}

	total := 1
	for _, p := range params {
		total *= len(p.Values)
	}

	out := make([]Binding, 0, total)
	idx := make([]int, len(params))

	for {
		b := make(Binding, len(params))
		for i, p := range params {
			b[i] = Assignment{Name: p.Name, Value: p.Values[idx[i]]}
		}

		out = append(out, b)

		// Odometer step, rightmost digit first.
		i := len(params) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(params[i].Values) {
				break
			}

			idx[i] = 0
		}

		if i < 0 {
			return out, nil
		}
	}
}

// FilterOverrides keeps the overrides that name a parameter declared by u.
// Run-wide overrides apply to every unit that declares the parameter.
func FilterOverrides(u Unit, overrides map[string][]string) map[string][]string {
	if len(overrides) == 0 {
		return nil
	}

	out := make(map[string][]string)

	for _, p := range u.Params() {
		if values, ok := overrides[p.Name]; ok {
			out[p.Name] = values
		}
	}

	return out
}
