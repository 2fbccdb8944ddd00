package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/benchunit/config"
	"github.com/weiihann/benchunit/harness"
	"github.com/weiihann/benchunit/plan"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListUnits(t *testing.T) {
	reg, err := registry()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, listUnits(&buf, reg, false))

	out := buf.String()
	assert.Contains(t, out, "test.SampleBenchmark")
	assert.Contains(t, out, "stringValue={A,B}")
	assert.Contains(t, out, "intValue={1,2}")
	assert.Contains(t, out, "default")

	buf.Reset()
	require.NoError(t, listUnits(&buf, reg, true))

	var infos []unitInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "benchmark", infos[1].Scope)
	assert.Equal(t, 1, infos[1].Forks)
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"stringValue=A,B", "intValue=3", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"stringValue": {"A", "B"},
		"intValue":    {"3"},
		"empty":       nil,
	}, got)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
}

func TestRunVerificationInProcess(t *testing.T) {
	reg, err := registry()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.InProcess = true
	cfg.ReportFormat = "json"
	cfg.Threads = 2

	var buf bytes.Buffer
	require.NoError(t, runVerification(context.Background(), discardLogger(), reg, cfg, &buf))

	var results []harness.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 5)

	var outputs []string
	for _, r := range results {
		assert.NotEmpty(t, r.RunID)
		assert.Equal(t, results[0].RunID, r.RunID)
		outputs = append(outputs, r.Output)
	}

	assert.Equal(t, []string{"10", "10A1", "10A2", "10B1", "10B2"}, outputs)
}

func TestRunVerificationOverrides(t *testing.T) {
	reg, err := registry()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.InProcess = true
	cfg.Include = []string{"Param"}
	cfg.Params = map[string][]string{"intValue": {"7"}}
	cfg.ReportFile = filepath.Join(t.TempDir(), "report.md")

	var buf bytes.Buffer
	require.NoError(t, runVerification(context.Background(), discardLogger(), reg, cfg, &buf))
	assert.Empty(t, buf.String(), "report goes to the file")

	data, err := os.ReadFile(cfg.ReportFile)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "10A7")
	assert.Contains(t, out, "10B7")
	assert.NotContains(t, out, "10A1")
	assert.NotContains(t, out, "test.SampleBenchmark.stringBuilder |")
}

func TestRunVerificationErrors(t *testing.T) {
	reg, err := registry()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.InProcess = true
	cfg.Include = []string{"NoSuchBenchmark"}

	err = runVerification(context.Background(), discardLogger(), reg, cfg, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no benchmark matched")

	cfg = config.Default()
	cfg.Threads = 0

	err = runVerification(context.Background(), discardLogger(), reg, cfg, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	cfg = config.Default()
	cfg.InProcess = true
	cfg.Params = map[string][]string{"intValue": {"x"}}

	err = runVerification(context.Background(), discardLogger(), reg, cfg, io.Discard)
	assert.Error(t, err)
}

func TestRunFork(t *testing.T) {
	reg, err := registry()
	require.NoError(t, err)

	entries, _, err := plan.NewGenerator(reg, plan.Config{}).Build()
	require.NoError(t, err)

	var in bytes.Buffer
	require.NoError(t, plan.Write(&in, entries))

	var out bytes.Buffer
	require.NoError(t, runFork(context.Background(), discardLogger(), reg, &in, &out, 3, 1, 2))

	var results []harness.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 5)
	assert.Equal(t, 3, results[0].Fork)
	assert.Equal(t, "10B2", results[4].Output)
}

func TestRunForkBadInput(t *testing.T) {
	reg, err := registry()
	require.NoError(t, err)

	err = runFork(context.Background(), discardLogger(), reg,
		strings.NewReader("garbage\n"), io.Discard, 1, 1, 1)
	assert.Error(t, err)
}

func TestRootCommandList(t *testing.T) {
	level := new(slog.LevelVar)
	root := newRootCmd(discardLogger(), level)

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"list", "--verbose"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "test.SampleParamBenchmark")
	assert.Equal(t, slog.LevelDebug, level.Level())
}
