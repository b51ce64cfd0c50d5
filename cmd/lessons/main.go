// Package main implements the lessons CLI: analysis runs over a lessons
// directory, lesson validation, templates and history queries.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lessons/internal/config"
	"github.com/fyrsmithlabs/lessons/internal/extraction"
	"github.com/fyrsmithlabs/lessons/internal/logging"
	"github.com/fyrsmithlabs/lessons/internal/rules"
	"github.com/fyrsmithlabs/lessons/internal/scanner"
	"github.com/fyrsmithlabs/lessons/internal/telemetry"
)

var (
	// configPath is the --config flag; empty loads ./lessons.yaml if present.
	configPath string
	logLevel   string

	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lessons",
	Short: "Analyze lessons-learned documents",
	Long: `lessons scans a directory of markdown lessons-learned documents,
extracts metadata, validates them against a schema, scores quality and
impact, categorizes them, records history snapshots and writes reports.

Configuration is read from ./lessons.yaml (or --config) and LESSONS_*
environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./lessons.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
	rootCmd.SetVersionTemplate(versionString() + "\n")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func versionString() string {
	return fmt.Sprintf("lessons %s (commit %s, built %s)", version, gitCommit, buildDate)
}

// env is the per-command runtime: configuration, logger, telemetry and the
// rule tables every component shares.
type env struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
	tables *rules.Tables
}

// newTelemetry is replaced in tests to observe the instance setup builds.
var newTelemetry = telemetry.New

// setup loads configuration and builds the shared runtime. The returned
// cleanup flushes logs and shuts telemetry down.
func setup(ctx context.Context) (*env, func(), error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, nil, err
	}

	telCfg := telemetry.NewDefaultConfig()
	if err := cfg.Section("telemetry", telCfg); err != nil {
		return nil, nil, err
	}
	tel, err := newTelemetry(ctx, telCfg)
	if err != nil {
		return nil, nil, err
	}

	// Providers are already exporting; release them if setup fails past here.
	fail := func(err error) (*env, func(), error) {
		_ = tel.Shutdown(context.Background())
		return nil, nil, err
	}

	logCfg := logging.NewDefaultConfig()
	if err := cfg.Section("logging", logCfg); err != nil {
		return fail(err)
	}
	if logLevel != "" {
		level, err := logging.LevelFromString(logLevel)
		if err != nil {
			return fail(err)
		}
		logCfg.Level = level
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fail(fmt.Errorf("failed to create logger: %w", err))
	}
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", h.Reason))
	}

	tables := rules.Default()
	if path := cfg.RulesPath(); path != "" {
		tables, err = rules.LoadFile(path)
		if err != nil {
			_ = logger.Sync()
			return fail(err)
		}
	}

	cleanup := func() {
		// Shutdown applies telemetry.shutdown.timeout.
		shutdownCtx := context.Background()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "telemetry shutdown failed", zap.Error(err))
		}
		_ = logger.Sync()
	}

	return &env{cfg: cfg, logger: logger, tel: tel, tables: tables}, cleanup, nil
}

// extractor builds an extractor honoring lessons.date_fallback.
func (e *env) extractor() (*extraction.Extractor, error) {
	fallback, err := extraction.ParseDateFallback(e.cfg.Lessons.DateFallback)
	if err != nil {
		return nil, err
	}
	return extraction.NewExtractor(e.tables, extraction.WithDateFallback(fallback)), nil
}

func (e *env) newScanner() *scanner.Scanner {
	return scanner.New(scanner.Options{
		Extension:        e.cfg.Lessons.Extension,
		IgnoreFile:       e.cfg.Lessons.IgnoreFile,
		DefaultIgnore:    e.cfg.Lessons.IgnorePatterns,
		MaxDocumentBytes: e.cfg.Lessons.MaxDocumentBytes,
	})
}
