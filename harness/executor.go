package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiihann/benchunit/bench"
	"github.com/weiihann/benchunit/plan"
)

var (
	// ErrNondeterministic marks a point that gave different outputs for the
	// same binding.
	ErrNondeterministic = errors.New("operation is not deterministic")

	// ErrVerification is returned by Verify when any point failed.
	ErrVerification = errors.New("verification failed")
)

// Executor runs plan entries in the current process.
type Executor struct {
	Registry    *bench.Registry
	Threads     int
	Invocations int
	Logger      *slog.Logger
}

// NewExecutor creates an Executor. threads and invocations below 1 are
// raised to 1.
func NewExecutor(
	reg *bench.Registry,
	threads, invocations int,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		Registry:    reg,
		Threads:     max(threads, 1),
		Invocations: max(invocations, 1),
		Logger:      logger,
	}
}

// Execute runs every entry once per thread, Invocations times each. fork
// is recorded on the results; 0 means in-process. Errors returned here are
// harness failures; per-point problems are reported on the results.
func (e *Executor) Execute(
	ctx context.Context,
	entries []plan.Entry,
	fork int,
) ([]Result, error) {
	results := make([]Result, 0, len(entries))

	for _, group := range plan.Groups(entries) {
		u, err := e.Registry.Lookup(group.Unit)
		if err != nil {
			return results, err
		}

		for _, entry := range group.Entries {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			res, err := e.runPoint(u, entry)
			if err != nil {
				return results, fmt.Errorf("run %s: %w", entry.ID(), err)
			}

			res.Fork = fork
			results = append(results, res)

			e.Logger.DebugContext(ctx, "point verified",
				slog.String("point", res.ID()),
				slog.Int("fork", fork),
				slog.String("output", res.Output),
				slog.Bool("deterministic", res.Deterministic),
			)
		}
	}

	return results, nil
}

// runPoint creates instances per the unit's scope, invokes the operation
// on every thread and checks that all outputs agree.
func (e *Executor) runPoint(
	u bench.Unit,
	entry plan.Entry,
) (Result, error) {
	res := Result{
		Unit:        entry.Unit,
		Operation:   entry.Operation,
		Params:      entry.Params,
		Scope:       u.Scope().String(),
		Threads:     e.Threads,
		Invocations: e.Invocations,
	}

	instances, err := e.instances(u, entry.Params)
	if err != nil {
		return res, err
	}

	res.Instances = len(instances)

	outputs := make([][]string, e.Threads)
	start := time.Now()

	var g errgroup.Group

	for t := 0; t < e.Threads; t++ {
		in := instances[0]
		if !u.Scope().Shared() {
			in = instances[t]
		}

		g.Go(func() error {
			out, err := e.invoke(in, entry.Operation)
			outputs[t] = out

			return err
		})
	}

	runErr := g.Wait()
	res.ElapsedNs = time.Since(start).Nanoseconds()

	var closeErrs []error
	for _, in := range instances {
		if err := in.Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}

	if errors.Is(runErr, bench.ErrUnknownOperation) {
		return res, runErr
	}

	if err := errors.Join(append([]error{runErr}, closeErrs...)...); err != nil {
		res.Error = err.Error()
	}

	res.Output, res.Deterministic = agree(outputs)
	if !res.Deterministic && res.Error == "" {
		res.Error = fmt.Sprintf("%v: outputs %v", ErrNondeterministic, outputs)
	}

	return res, nil
}

func (e *Executor) instances(u bench.Unit, b bench.Binding) ([]bench.Instance, error) {
	n := e.Threads
	if u.Scope().Shared() {
		n = 1
	}

	out := make([]bench.Instance, 0, n)

	for i := 0; i < n; i++ {
		in, err := u.Instantiate(b)
		if err != nil {
			for _, created := range out {
				_ = created.Close()
			}

			return nil, err
		}

		out = append(out, in)
	}

	return out, nil
}

// Shared instances are invoked concurrently; ScopeBenchmark units must be
// safe for that.
func (e *Executor) invoke(in bench.Instance, op string) (outputs []string, err error) {
	var bh bench.Blackhole
	defer bh.Flush()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation %s panicked: %v", op, r)
		}
	}()

	outputs = make([]string, 0, e.Invocations)

	for i := 0; i < e.Invocations; i++ {
		v, err := in.RunOperation(op)
		if err != nil {
			return outputs, err
		}

		bh.Consume(v)
		outputs = append(outputs, fmt.Sprint(v))
	}

	return outputs, nil
}

// agree returns the common output when every invocation on every thread
// rendered the same text.
func agree(outputs [][]string) (string, bool) {
	var (
		first string
		seen  bool
	)

	for _, thread := range outputs {
		for _, out := range thread {
			if !seen {
				first, seen = out, true

				continue
			}

			if out != first {
				return first, false
			}
		}
	}

	return first, seen
}

// Verify returns ErrVerification joined with every failing point when any
// result failed.
func Verify(results []Result) error {
	var errs []error

	for _, r := range results {
		if r.Failed() {
			errs = append(errs, fmt.Errorf("%s (fork %d): %s", r.ID(), r.Fork, r.Error))
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrVerification, errors.Join(errs...))
}
