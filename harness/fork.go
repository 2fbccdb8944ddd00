package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiihann/benchunit/plan"
)

// Forker runs every configuration of a plan in isolated forks. Each
// configuration (one unit and one binding) gets its own plan file and is
// executed Forks times, each time in a fresh process.
type Forker struct {
	Runner   *Runner
	Parallel int
	Timeout  time.Duration
	Logger   *slog.Logger
}

// NewForker creates a Forker that keeps at most parallel forks running.
func NewForker(
	runner *Runner,
	parallel int,
	timeout time.Duration,
	logger *slog.Logger,
) *Forker {
	return &Forker{
		Runner:   runner,
		Parallel: max(parallel, 1),
		Timeout:  timeout,
		Logger:   logger,
	}
}

type forkTask struct {
	planPath string
	fork     int
	id       string
}

// Run executes all groups and returns results in plan order, fork by fork.
func (f *Forker) Run(ctx context.Context, groups []plan.Group) ([]Result, error) {
	dir, err := os.MkdirTemp("", "benchunit-plan-*")
	if err != nil {
		return nil, fmt.Errorf("create plan dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var tasks []forkTask

	for i, group := range groups {
		path := filepath.Join(dir, fmt.Sprintf("group-%04d.jsonl", i))
		if err := writePlan(path, group.Entries); err != nil {
			return nil, err
		}

		id := group.Entries[0].ID()
		for fork := 1; fork <= group.Forks; fork++ {
			tasks = append(tasks, forkTask{planPath: path, fork: fork, id: id})
		}
	}

	out := make([][]Result, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Parallel)

	for i, task := range tasks {
		g.Go(func() error {
			f.Logger.InfoContext(gctx, "running fork",
				slog.String("point", task.id),
				slog.Int("fork", task.fork),
			)

			results, err := f.Runner.Run(gctx, RunConfig{
				PlanPath: task.planPath,
				Fork:     task.fork,
				Timeout:  f.Timeout,
			})
			if err != nil {
				return err
			}

			out[i] = results

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []Result
	for _, r := range out {
		results = append(results, r...)
	}

	return results, nil
}

func writePlan(path string, entries []plan.Entry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plan %s: %w", path, err)
	}

	if err := plan.Write(file, entries); err != nil {
		file.Close()

		return fmt.Errorf("write plan %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close plan %s: %w", path, err)
	}

	return nil
}
