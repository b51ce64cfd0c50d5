package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/lessons/internal/config"
	"github.com/fyrsmithlabs/lessons/internal/history"
	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/logging"
	"github.com/fyrsmithlabs/lessons/internal/scanner"
	"github.com/fyrsmithlabs/lessons/internal/telemetry"
)

const criticalLesson = `# Fix DB pool exhaustion

Date: 2024-01-15
Project: .agent-os
A critical production incident hit the deployment of the order service.

## Context
The database connection pool was exhausted under peak load.

## Action Taken
We raised the pool size and added saturation alerts.

## Results
Latency returned to normal within ten minutes.

## Key Insights
We learned that pool limits must track replica counts.

## Recommendations
Teams should alert on pool saturation before it hits the limit.
`

const shortLesson = `# Flaky tests

Date: 2024-02-01
Unit tests failed intermittently during development.
`

var fixedNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

type fixture struct {
	lessonsDir string
	cfg        *config.Config
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()

	lessonsDir := filepath.Join(root, "lessons")
	require.NoError(t, os.MkdirAll(lessonsDir, 0750))
	writeLesson(t, lessonsDir, "db-pool.md", criticalLesson)
	writeLesson(t, lessonsDir, "flaky-tests.md", shortLesson)
	writeLesson(t, lessonsDir, "notes.txt", "not a lesson")

	cfg := config.Default()
	cfg.Lessons.Dir = lessonsDir
	cfg.Data.Dir = filepath.Join(root, ".lessons")
	return fixture{lessonsDir: lessonsDir, cfg: cfg}
}

func writeLesson(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestPipeline(t *testing.T, cfg *config.Config, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestRun(t *testing.T) {
	fx := newFixture(t)
	p := newTestPipeline(t, fx.cfg)

	result := p.Run(context.Background(), fx.lessonsDir)

	require.True(t, result.Success, result.Error)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.DocumentsFound)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Valid)
	assert.Equal(t, 1, result.Invalid)

	require.Len(t, result.Analyses, 2)
	assert.Equal(t, "Fix DB pool exhaustion", result.Analyses[0].Record.Title)
	assert.Equal(t, "Flaky tests", result.Analyses[1].Record.Title)

	// json + markdown for each of the three kinds
	assert.Len(t, result.ReportPaths, 6)
	for _, path := range result.ReportPaths {
		assert.FileExists(t, path)
	}
	assert.FileExists(t, fx.cfg.SchemaPath())
	for _, kind := range lesson.Kinds() {
		assert.FileExists(t, filepath.Join(fx.cfg.Data.Dir, history.FileFor(kind)))
	}
}

func TestRun_AppendsSnapshotPerRun(t *testing.T) {
	fx := newFixture(t)
	p := newTestPipeline(t, fx.cfg)
	ctx := context.Background()

	first := p.Run(ctx, fx.lessonsDir)
	second := p.Run(ctx, fx.lessonsDir)
	require.True(t, first.Success, first.Error)
	require.True(t, second.Success, second.Error)
	assert.NotEqual(t, first.RunID, second.RunID)

	logger := logging.NewNop()
	quality := history.Load[history.QualityData](ctx, filepath.Join(fx.cfg.Data.Dir, history.QualityFile), logger)
	impact := history.Load[history.ImpactData](ctx, filepath.Join(fx.cfg.Data.Dir, history.ImpactFile), logger)
	categories := history.Load[history.CategorizationData](ctx, filepath.Join(fx.cfg.Data.Dir, history.CategorizationFile), logger)

	require.Equal(t, 2, quality.Len())
	require.Equal(t, 2, impact.Len())
	require.Equal(t, 2, categories.Len())
	assert.Len(t, quality.ValidationHistory, 2)

	// Unchanged input scores identically.
	assert.Equal(t, quality.QualityHistory[0].PerLesson, quality.QualityHistory[1].PerLesson)
	assert.Equal(t, impact.ImpactHistory[0].PerLesson, impact.ImpactHistory[1].PerLesson)
	assert.Equal(t, categories.CategorizationHistory[0].PerLesson, categories.CategorizationHistory[1].PerLesson)
	assert.NotEqual(t, quality.QualityHistory[0].ID, quality.QualityHistory[1].ID)
	assert.Equal(t, first.RunID, quality.QualityHistory[0].RunID)
	assert.Equal(t, second.RunID, quality.QualityHistory[1].RunID)
}

func TestRun_DocumentFailure(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Lessons.MaxDocumentBytes = int64(len(shortLesson))
	logger := logging.NewTestLogger()
	p := newTestPipeline(t, fx.cfg, WithLogger(logger.Logger))

	result := p.Run(context.Background(), fx.lessonsDir)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.DocumentsFound)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, filepath.Join(fx.lessonsDir, "db-pool.md"), result.Failures[0].Path)
	assert.ErrorIs(t, result.Failures[0], scanner.ErrDocumentTooLarge)

	logger.AssertLogged(t, zapcore.WarnLevel, "failed to process lesson")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().documentsTotal.WithLabelValues(resultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().documentsTotal.WithLabelValues(resultSuccess)))
}

func TestRun_InaccessibleDirectory(t *testing.T) {
	fx := newFixture(t)
	notADir := writeLesson(t, t.TempDir(), "file.md", shortLesson)
	logger := logging.NewTestLogger()
	p := newTestPipeline(t, fx.cfg, WithLogger(logger.Logger))

	result := p.Run(context.Background(), notADir)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "failed to discover lessons")
	assert.Zero(t, result.Processed)
	assert.NoFileExists(t, filepath.Join(fx.cfg.Data.Dir, history.QualityFile))
	logger.AssertLogged(t, zapcore.ErrorLevel, "pipeline run failed")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().runsTotal.WithLabelValues(resultFailure)))
}

func TestRun_MissingDirectory(t *testing.T) {
	fx := newFixture(t)
	p := newTestPipeline(t, fx.cfg)

	result := p.Run(context.Background(), filepath.Join(fx.lessonsDir, "absent"))

	require.True(t, result.Success, result.Error)
	assert.Zero(t, result.DocumentsFound)
	assert.Empty(t, result.Analyses)

	data := history.Load[history.ImpactData](context.Background(),
		filepath.Join(fx.cfg.Data.Dir, history.ImpactFile), nil)
	require.Equal(t, 1, data.Len())
	assert.Zero(t, data.ImpactHistory[0].TotalLessons)
}

func TestRun_Cancelled(t *testing.T) {
	fx := newFixture(t)
	p := newTestPipeline(t, fx.cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := p.Run(ctx, fx.lessonsDir)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "run cancelled")
	assert.NoFileExists(t, filepath.Join(fx.cfg.Data.Dir, history.QualityFile))
}

func TestRun_Telemetry(t *testing.T) {
	fx := newFixture(t)
	tt := telemetry.NewTestTelemetry()
	p := newTestPipeline(t, fx.cfg, WithTelemetry(tt.Telemetry))

	result := p.Run(context.Background(), fx.lessonsDir)
	require.True(t, result.Success, result.Error)

	tt.AssertSpanExists(t, "pipeline.Run")
	tt.AssertSpanExists(t, "pipeline.analyzeDocument")
	tt.AssertSpanAttribute(t, "pipeline.Run", "lessons.found", int64(2))
	tt.AssertSpanAttribute(t, "pipeline.Run", "run.success", true)

	assert.Equal(t, 2, tt.SpansNamed("pipeline.analyzeDocument"))

	ctx := context.Background()
	names, err := tt.MetricNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "lessons.pipeline.documents")
	assert.Contains(t, names, "lessons.pipeline.runs")

	docs, err := tt.Int64Sum(ctx, "lessons.pipeline.documents")
	require.NoError(t, err)
	assert.Equal(t, int64(2), docs)
}

func TestRun_LogsRunID(t *testing.T) {
	fx := newFixture(t)
	logger := logging.NewTestLogger()
	p := newTestPipeline(t, fx.cfg, WithLogger(logger.Logger))

	result := p.Run(context.Background(), fx.lessonsDir)
	require.True(t, result.Success, result.Error)

	logger.AssertLogged(t, zapcore.InfoLevel, "pipeline run completed")
	logger.AssertField(t, "pipeline run completed", "run.id", result.RunID)
}

func TestRun_MetricsTextfile(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "metrics", "lessons.prom")
	p := newTestPipeline(t, fx.cfg)

	result := p.Run(context.Background(), fx.lessonsDir)
	require.True(t, result.Success, result.Error)

	raw, err := os.ReadFile(fx.cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "lessons_pipeline_runs_total")
	assert.Contains(t, string(raw), "lessons_pipeline_documents_total")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().lessons.WithLabelValues("valid")))
}

func TestRun_SQLiteIndex(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.History.SQLitePath = filepath.Join(fx.cfg.Data.Dir, "history.db")
	p := newTestPipeline(t, fx.cfg)

	result := p.Run(context.Background(), fx.lessonsDir)
	require.True(t, result.Success, result.Error)
	require.NoError(t, p.Close())

	idx, err := history.OpenSQLiteIndex(fx.cfg.History.SQLitePath)
	require.NoError(t, err)
	defer idx.Close()

	rows, err := idx.Snapshots(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, result.RunID, row.RunID)
		assert.Equal(t, 2, row.TotalLessons)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Lessons.Workers = 0

	_, err := New(cfg)
	assert.Error(t, err)
}

// blockedPath returns a path whose parent is a regular file, so creating it
// fails with ENOTDIR.
func blockedPath(t *testing.T, name string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	return filepath.Join(file, name)
}

func TestRun_ReportWriteFailureKeepsRunSuccessful(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Reports.Dir = blockedPath(t, "reports")
	logger := logging.NewTestLogger()
	p := newTestPipeline(t, fx.cfg, WithLogger(logger.Logger))

	result := p.Run(context.Background(), fx.lessonsDir)

	require.True(t, result.Success, result.Error)
	assert.Empty(t, result.ReportPaths)
	assert.Equal(t, 2, result.Processed)
	logger.AssertLogged(t, zapcore.WarnLevel, "failed to write report")
	assert.Len(t, logger.FilterMessage("failed to write report").All(), len(lesson.Kinds()))

	for _, kind := range lesson.Kinds() {
		assert.FileExists(t, filepath.Join(fx.cfg.Data.Dir, history.FileFor(kind)),
			"history is still recorded when reports cannot be written")
	}
}

func TestRun_DataDirUnwritable(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Data.Dir = blockedPath(t, ".lessons")
	p := newTestPipeline(t, fx.cfg)

	result := p.Run(context.Background(), fx.lessonsDir)

	require.True(t, result.Success, result.Error)
	assert.Empty(t, result.ReportPaths)
	assert.Equal(t, 1, result.Valid)
	for _, kind := range lesson.Kinds() {
		assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().storeFailures.WithLabelValues(string(kind))))
	}
}
