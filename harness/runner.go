package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// RunConfig holds parameters for a single fork execution.
type RunConfig struct {
	PlanPath string
	Fork     int
	Timeout  time.Duration
}

// Runner launches forks of the benchunit binary.
type Runner struct {
	Name       string
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Logger     *slog.Logger
}

// NewRunner creates a Runner. extraArgs select the fork command and its
// flags; env is appended to the inherited environment.
func NewRunner(
	name, binaryPath string,
	extraArgs, env []string,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		Name:       name,
		BinaryPath: binaryPath,
		ExtraArgs:  extraArgs,
		Env:        env,
		Logger:     logger.With(slog.String("runner", name)),
	}
}

// Run executes one fork over the plan at cfg.PlanPath and returns its
// parsed results.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) ([]Result, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(r.ExtraArgs)+2)
	args = append(args, r.ExtraArgs...)
	args = append(args, "--fork-index", strconv.Itoa(cfg.Fork))

	cmd := exec.CommandContext(ctx, r.BinaryPath, args...)

	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	planFile, err := os.Open(cfg.PlanPath)
	if err != nil {
		return nil, fmt.Errorf("open plan %s: %w", cfg.PlanPath, err)
	}
	defer planFile.Close()

	cmd.Stdin = planFile

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger := r.Logger.With(slog.Int("fork", cfg.Fork))
	logger.Debug("starting fork",
		slog.String("binary", r.BinaryPath),
		slog.String("plan", cfg.PlanPath),
	)

	wallStart := time.Now()

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf(
			"fork %d of %s failed: %w\nstderr: %s",
			cfg.Fork, r.Name, err, stderr.String(),
		)
	}

	logger.Debug("fork finished",
		slog.Duration("wall_time", time.Since(wallStart)),
	)

	results, err := parseResults(cfg.Fork, &stdout)
	if err != nil {
		return nil, fmt.Errorf(
			"parse fork %d output: %w\nstdout: %s",
			cfg.Fork, err, stdout.String(),
		)
	}

	return results, nil
}

func parseResults(fork int, r io.Reader) ([]Result, error) {
	var results []Result
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	for i := range results {
		if results[i].Fork == 0 {
			results[i].Fork = fork
		}
	}

	return results, nil
}

// WriteResults encodes results the way a fork reports them on stdout.
func WriteResults(w io.Writer, results []Result) error {
	if results == nil {
		results = []Result{}
	}

	return json.NewEncoder(w).Encode(results)
}
