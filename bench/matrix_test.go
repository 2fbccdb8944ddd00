package bench_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/benchunit/bench"
)

func twoAxisSuite(t *testing.T) *bench.Suite[*counter] {
	t.Helper()

	s := bench.NewSuite("grid", func() *counter { return &counter{} })
	s.DeclareStateScope(bench.ScopeBenchmark)
	require.NoError(t, s.DeclareParameter("s", "A", "B"))
	require.NoError(t, s.DeclareParameter("i", "1", "2"))
	s.OnBind(func(*counter, bench.Binding) error { return nil })
	require.NoError(t, s.DeclareOperation("op", func(*counter) any { return nil }))

	return s
}

func TestExpandCrossProduct(t *testing.T) {
	bindings, err := bench.Expand(twoAxisSuite(t), nil)
	require.NoError(t, err)

	var got []string
	for _, b := range bindings {
		got = append(got, b.Format())
	}

	assert.Equal(t, []string{
		"s=A, i=1",
		"s=A, i=2",
		"s=B, i=1",
		"s=B, i=2",
	}, got)
}

func TestExpandNoParams(t *testing.T) {
	s := bench.NewSuite("plain", func() *counter { return &counter{} })
	s.DeclareStateScope(bench.ScopeBenchmark)
	require.NoError(t, s.DeclareOperation("op", func(*counter) any { return nil }))

	bindings, err := bench.Expand(s, nil)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Empty(t, bindings[0])
}

func TestExpandOverrides(t *testing.T) {
	s := twoAxisSuite(t)

	bindings, err := bench.Expand(s, map[string][]string{"i": {"7"}})
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, "s=A, i=7", bindings[0].Format())
	assert.Equal(t, "s=B, i=7", bindings[1].Format())

	// Overrides must not leak into the declaration.
	assert.Equal(t, []string{"1", "2"}, s.Params()[1].Values)

	_, err = bench.Expand(s, map[string][]string{"i": {}})
	assert.ErrorIs(t, err, bench.ErrConfiguration)

	_, err = bench.Expand(s, map[string][]string{"unknown": {"1"}})
	assert.ErrorIs(t, err, bench.ErrConfiguration)
}

func TestFilterOverrides(t *testing.T) {
	s := twoAxisSuite(t)

	got := bench.FilterOverrides(s, map[string][]string{
		"i":     {"3"},
		"other": {"x"},
	})
	assert.Equal(t, map[string][]string{"i": {"3"}}, got)
	assert.Nil(t, bench.FilterOverrides(s, nil))
}

func TestPointID(t *testing.T) {
	assert.Equal(t, "u.op", bench.PointID("u", "op", nil))
	assert.Equal(t, "u.op | a=1, b=x", bench.PointID("u", "op", bench.Binding{
		{Name: "a", Value: "1"},
		{Name: "b", Value: "x"},
	}))
}

func TestBindingAccessors(t *testing.T) {
	b := bench.Binding{
		{Name: "n", Value: "12"},
		{Name: "f", Value: "1.5"},
		{Name: "ok", Value: "true"},
		{Name: "s", Value: "text"},
	}

	n, err := b.Int("n")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	f, err := b.Float("f")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f, 1e-9)

	ok, err := b.Bool("ok")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "text", b.String("s"))
	assert.Equal(t, "", b.String("missing"))

	_, err = b.Int("s")
	assert.ErrorIs(t, err, bench.ErrBinding)
	_, err = b.Int("missing")
	assert.ErrorIs(t, err, bench.ErrBinding)

	assert.Equal(t, map[string]string{"n": "12", "f": "1.5", "ok": "true", "s": "text"}, b.Map())
	assert.True(t, b.Equal(append(bench.Binding(nil), b...)))
	assert.False(t, b.Equal(b[:1]))
}

func TestScopeParse(t *testing.T) {
	for _, s := range []bench.Scope{bench.ScopeThread, bench.ScopeBenchmark, bench.ScopeGroup} {
		got, err := bench.ParseScope(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := bench.ParseScope("process")
	assert.Error(t, err)
	assert.True(t, bench.ScopeBenchmark.Shared())
	assert.False(t, bench.ScopeThread.Shared())
}

func TestBlackhole(t *testing.T) {
	var bh bench.Blackhole

	bh.Consume("x")
	bh.Consume(1)
	assert.Equal(t, uint64(2), bh.Count())
	bh.Flush()
	assert.Equal(t, uint64(2), bh.Count())
}
