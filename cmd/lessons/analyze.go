package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/lessons/internal/pipeline"
	"github.com/fyrsmithlabs/lessons/internal/scanner"
)

var analyzeJSON bool

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the run result as JSON")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dir]",
	Short: "Run a full analysis pass",
	Long: `Analyze every lesson document in a directory (default lessons.dir).

Each run appends one snapshot per analysis kind to the history stores under
data.dir and writes categorization, quality and impact reports.

Examples:
  # Analyze the configured directory
  lessons analyze

  # Analyze another directory and print JSON
  lessons analyze docs/retros --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-run the analysis whenever lessons change",
	Long: `Run an analysis pass, then watch the lessons directory and re-run on
every change. Bursts of file events are debounced (watch.debounce) and runs
are spaced at least watch.min_interval apart.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var errRunFailed = errors.New("analysis run failed")

func lessonsDir(e *env, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return e.cfg.Lessons.Dir
}

func newPipeline(e *env) (*pipeline.Pipeline, error) {
	return pipeline.New(e.cfg,
		pipeline.WithLogger(e.logger),
		pipeline.WithTelemetry(e.tel),
		pipeline.WithRules(e.tables),
	)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := newPipeline(e)
	if err != nil {
		return err
	}
	defer p.Close()

	result := p.Run(ctx, lessonsDir(e, args))
	if err := printResult(cmd, result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", errRunFailed, result.Error)
	}
	return nil
}

func printResult(cmd *cobra.Command, result pipeline.Result) error {
	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(result))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := newPipeline(e)
	if err != nil {
		return err
	}
	defer p.Close()

	dir := lessonsDir(e, args)
	w, err := p.Scanner().NewWatcher(dir,
		scanner.WithDebounce(e.cfg.Watch.Debounce.Duration()),
		scanner.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	limiter := rate.NewLimiter(rate.Every(e.cfg.Watch.MinInterval.Duration()), 1)
	run := func() {
		_ = printResult(cmd, p.Run(ctx, dir))
		if err := e.tel.ForceFlush(ctx); err != nil {
			e.logger.Warn(ctx, "failed to flush telemetry", zap.Error(err))
		}
	}

	run()
	limiter.Allow()
	cmd.PrintErrf("watching %s (ctrl-c to stop)\n", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes():
			if !ok {
				return nil
			}
			e.logger.Debug(ctx, "lessons changed", zap.Strings("paths", change.Paths))
			if err := limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			run()
		}
	}
}
