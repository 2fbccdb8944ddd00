// Package main provides the CLI entry point for benchunit, a tool that
// lists registered benchmark units and verifies their contract across the
// full parameter matrix.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/weiihann/benchunit/bench"
	"github.com/weiihann/benchunit/config"
	"github.com/weiihann/benchunit/harness"
	"github.com/weiihann/benchunit/plan"
	"github.com/weiihann/benchunit/report"
	"github.com/weiihann/benchunit/samples"
)

func main() {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// registry returns the table of every unit this binary knows about.
func registry() (*bench.Registry, error) {
	reg := bench.NewRegistry()
	if err := samples.Register(reg); err != nil {
		return nil, fmt.Errorf("register samples: %w", err)
	}

	return reg, nil
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "benchunit",
		Short: "Benchmark unit registry and contract verifier",
		Long: `Benchunit lists registered benchmark units and verifies them: every point
of each unit's parameter matrix is instantiated under the declared state scope,
run in the declared number of isolated forks, and checked for deterministic output.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(newListCmd())
	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newForkCmd(logger))

	return root
}

func newListCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered benchmark units",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}

			return listUnits(cmd.OutOrStdout(), reg, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Output units as JSON instead of a table")

	return cmd
}

type unitInfo struct {
	Name       string        `json:"name"`
	Scope      string        `json:"scope"`
	Forks      int           `json:"forks,omitempty"`
	Params     []bench.Param `json:"params"`
	Operations []string      `json:"operations"`
}

func listUnits(w io.Writer, reg *bench.Registry, outputJSON bool) error {
	units := reg.Units()

	infos := make([]unitInfo, 0, len(units))
	for _, u := range units {
		forks, _ := u.Forks()
		infos = append(infos, unitInfo{
			Name:       u.Name(),
			Scope:      u.Scope().String(),
			Forks:      forks,
			Params:     u.Params(),
			Operations: u.Operations(),
		})
	}

	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(infos)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tSCOPE\tFORKS\tPARAMS\tOPERATIONS")

	for _, info := range infos {
		forks := "default"
		if info.Forks > 0 {
			forks = fmt.Sprint(info.Forks)
		}

		params := make([]string, len(info.Params))
		for i, p := range info.Params {
			params[i] = p.Name + "={" + strings.Join(p.Values, ",") + "}"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			info.Name, info.Scope, forks,
			orDash(strings.Join(params, " ")),
			strings.Join(info.Operations, ","),
		)
	}

	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		configPath  string
		include     []string
		exclude     []string
		params      []string
		forks       int
		threads     int
		invocations int
		parallel    int
		inProcess   bool
		format      string
		output      string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Verify benchmark units across their parameter matrix",
		Long: `Expand every selected unit into its parameter cross product, run each
point in isolated forks (or in-process), and report the outputs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error

				cfg, err = config.Load(configPath)
				if err != nil {
					return err
				}
			}

			flags := cmd.Flags()
			if flags.Changed("include") {
				cfg.Include = include
			}
			if flags.Changed("exclude") {
				cfg.Exclude = exclude
			}
			if flags.Changed("param") {
				overrides, err := parseParams(params)
				if err != nil {
					return err
				}

				if cfg.Params == nil {
					cfg.Params = make(map[string][]string)
				}
				for name, values := range overrides {
					cfg.Params[name] = values
				}
			}
			if flags.Changed("forks") {
				cfg.Forks = forks
			}
			if flags.Changed("threads") {
				cfg.Threads = threads
			}
			if flags.Changed("invocations") {
				cfg.Invocations = invocations
			}
			if flags.Changed("parallel") {
				cfg.Parallel = parallel
			}
			if flags.Changed("in-process") {
				cfg.InProcess = inProcess
			}
			if flags.Changed("format") {
				cfg.ReportFormat = format
			}
			if flags.Changed("output") {
				cfg.ReportFile = output
			}
			if flags.Changed("timeout") {
				cfg.Timeout = timeout
			}

			reg, err := registry()
			if err != nil {
				return err
			}

			return runVerification(cmd.Context(), logger, reg, cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "",
		"Path to a YAML run configuration")
	flags.StringArrayVar(&include, "include", nil,
		"Regex over unit.operation to include (repeatable)")
	flags.StringArrayVar(&exclude, "exclude", nil,
		"Regex over unit.operation to exclude (repeatable)")
	flags.StringArrayVarP(&params, "param", "p", nil,
		"Override a parameter domain, e.g. stringValue=A,B (repeatable)")
	flags.IntVar(&forks, "forks", 0,
		"Forks per configuration (0 = unit default)")
	flags.IntVar(&threads, "threads", 1,
		"Worker threads per point")
	flags.IntVar(&invocations, "invocations", 2,
		"Operation invocations per thread")
	flags.IntVar(&parallel, "parallel", 1,
		"Forks allowed to run at the same time")
	flags.BoolVar(&inProcess, "in-process", false,
		"Run every point in this process instead of forking")
	flags.StringVarP(&format, "format", "f", "",
		"Report format: "+strings.Join(report.Formats, ", "))
	flags.StringVarP(&output, "output", "o", "",
		"Write the report to a file instead of stdout")
	flags.DurationVar(&timeout, "timeout", 10*time.Minute,
		"Timeout for a single fork")

	return cmd
}

// parseParams turns ["a=1,2", "b=x"] into {"a": ["1","2"], "b": ["x"]}.
func parseParams(raw []string) (map[string][]string, error) {
	out := make(map[string][]string, len(raw))

	for _, p := range raw {
		name, values, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, expected name=v1,v2", p)
		}

		name = strings.TrimSpace(name)
		if values == "" {
			out[name] = nil

			continue
		}

		out[name] = strings.Split(values, ",")
	}

	return out, nil
}

func runVerification(
	ctx context.Context,
	logger *slog.Logger,
	reg *bench.Registry,
	cfg config.Config,
	stdout io.Writer,
) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID[:8]))

	logger.InfoContext(ctx, "starting verification",
		slog.Any("include", cfg.Include),
		slog.Any("exclude", cfg.Exclude),
		slog.Int("forks", cfg.Forks),
		slog.Int("threads", cfg.Threads),
		slog.Int("invocations", cfg.Invocations),
		slog.Bool("in_process", cfg.InProcess),
	)

	// Step 1: Build the plan.
	include, err := cfg.IncludePatterns()
	if err != nil {
		return err
	}

	exclude, err := cfg.ExcludePatterns()
	if err != nil {
		return err
	}

	entries, summary, err := plan.NewGenerator(reg, plan.Config{
		Include: include,
		Exclude: exclude,
		Params:  cfg.Params,
		Forks:   cfg.Forks,
	}).Build()
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	if len(entries) == 0 {
		return fmt.Errorf("no benchmark matched the include/exclude patterns")
	}

	logger.InfoContext(ctx, "plan built",
		slog.Int("units", summary.Units),
		slog.Int("bindings", summary.Bindings),
		slog.Int("points", summary.Entries),
	)

	// Step 2: Run in-process or in forks.
	var results []harness.Result

	if cfg.InProcess {
		exec := harness.NewExecutor(reg, cfg.Threads, cfg.Invocations, logger)

		results, err = exec.Execute(ctx, entries, 0)
		if err != nil {
			return fmt.Errorf("execute: %w", err)
		}
	} else {
		cmdCfg, err := harness.SelfCommand(cfg.Threads, cfg.Invocations)
		if err != nil {
			return err
		}

		runner := harness.NewRunner(
			"benchunit", cmdCfg.Binary, cmdCfg.ExtraArgs, cmdCfg.Env, logger,
		)
		forker := harness.NewForker(runner, cfg.Parallel, cfg.Timeout, logger)

		results, err = forker.Run(ctx, plan.Groups(entries))
		if err != nil {
			return fmt.Errorf("run forks: %w", err)
		}
	}

	for i := range results {
		results[i].RunID = runID
	}

	// Step 3: Generate report.
	w := stdout
	format := cfg.ReportFormat

	if cfg.ReportFile != "" {
		file, err := os.Create(cfg.ReportFile)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer file.Close()

		w = file
		if format == "" {
			format = "markdown"
		}
	} else if format == "" {
		format = defaultFormat(stdout)
	}

	if err := report.Write(w, format, results); err != nil {
		return fmt.Errorf("generate %s report: %w", format, err)
	}

	if err := harness.Verify(results); err != nil {
		return err
	}

	logger.InfoContext(ctx, "verification complete",
		slog.Int("results", len(results)),
	)

	return nil
}

func defaultFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok {
		return report.DefaultFormat(f)
	}

	return "markdown"
}

func newForkCmd(logger *slog.Logger) *cobra.Command {
	var (
		forkIndex   int
		threads     int
		invocations int
	)

	cmd := &cobra.Command{
		Use:    "fork",
		Short:  "Run a plan read from stdin and print JSON results (internal)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}

			return runFork(cmd.Context(), logger, reg, cmd.InOrStdin(), cmd.OutOrStdout(),
				forkIndex, threads, invocations)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&forkIndex, "fork-index", 1, "Index of this fork")
	flags.IntVar(&threads, "threads", 1, "Worker threads per point")
	flags.IntVar(&invocations, "invocations", 2, "Operation invocations per thread")

	return cmd
}

func runFork(
	ctx context.Context,
	logger *slog.Logger,
	reg *bench.Registry,
	stdin io.Reader,
	stdout io.Writer,
	forkIndex, threads, invocations int,
) error {
	entries, err := plan.Read(stdin)
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}

	logger = logger.With(slog.Int("fork", forkIndex))
	exec := harness.NewExecutor(reg, threads, invocations, logger)

	results, err := exec.Execute(ctx, entries, forkIndex)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	return harness.WriteResults(stdout, results)
}
