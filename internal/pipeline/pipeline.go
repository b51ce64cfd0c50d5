package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/lessons/internal/analysis"
	"github.com/fyrsmithlabs/lessons/internal/config"
	"github.com/fyrsmithlabs/lessons/internal/extraction"
	"github.com/fyrsmithlabs/lessons/internal/history"
	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/logging"
	"github.com/fyrsmithlabs/lessons/internal/report"
	"github.com/fyrsmithlabs/lessons/internal/rules"
	"github.com/fyrsmithlabs/lessons/internal/scanner"
	"github.com/fyrsmithlabs/lessons/internal/schema"
	"github.com/fyrsmithlabs/lessons/internal/telemetry"
)

// ErrAnalysisPanic wraps a panic recovered while analyzing a document.
var ErrAnalysisPanic = errors.New("panic during analysis")

// DocumentError is a per-document failure. The document is left out of the
// batch; the run continues.
type DocumentError struct {
	Path string
	Err  error
}

func (e DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e DocumentError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error as a message.
func (e DocumentError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{e.Path, e.Err.Error()})
}

// Result summarises one run. A run fails only when the source directory
// cannot be listed or the context is cancelled; document and persistence
// failures are reported through Failures and the log.
type Result struct {
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"`
	RunID          string          `json:"runId"`
	DocumentsFound int             `json:"documentsFound"`
	Processed      int             `json:"processed"`
	Failed         int             `json:"failed"`
	Valid          int             `json:"valid"`
	Invalid        int             `json:"invalid"`
	ReportPaths    []string        `json:"reportPaths,omitempty"`
	Failures       []DocumentError `json:"failures,omitempty"`
	Duration       time.Duration   `json:"durationNs"`

	// Analyses is the batch in discovery order.
	Analyses []lesson.Analysis `json:"-"`
}

// Pipeline runs discovery, analysis, history and reporting over a lessons
// directory. A Pipeline may run repeatedly but not concurrently with itself:
// history stores have a single writer.
type Pipeline struct {
	cfg       *config.Config
	tables    *rules.Tables
	scanner   *scanner.Scanner
	extractor *extraction.Extractor
	logger    *logging.Logger
	tel       *telemetry.Telemetry
	tracer    trace.Tracer
	metrics   *Metrics
	index     *history.SQLiteIndex
	ownsIndex bool
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTelemetry sets the telemetry used for spans and OTEL metrics.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(p *Pipeline) { p.tel = t }
}

// WithRules replaces the built-in rule tables.
func WithRules(t *rules.Tables) Option {
	return func(p *Pipeline) { p.tables = t }
}

// WithClock overrides the clock used for dates, snapshots and reports.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithIndex mirrors snapshots into idx. The caller keeps ownership.
func WithIndex(idx *history.SQLiteIndex) Option {
	return func(p *Pipeline) { p.index = idx }
}

// New creates a pipeline from cfg. When history.sqlite_path is set and no
// index is supplied, the index is opened here and closed by Close.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	if p.tables == nil {
		p.tables = rules.Default()
	}

	fallback, err := extraction.ParseDateFallback(cfg.Lessons.DateFallback)
	if err != nil {
		return nil, err
	}
	p.extractor = extraction.NewExtractor(p.tables,
		extraction.WithDateFallback(fallback),
		extraction.WithClock(p.now),
	)
	p.scanner = scanner.New(scanner.Options{
		Extension:        cfg.Lessons.Extension,
		IgnoreFile:       cfg.Lessons.IgnoreFile,
		DefaultIgnore:    cfg.Lessons.IgnorePatterns,
		MaxDocumentBytes: cfg.Lessons.MaxDocumentBytes,
	})
	p.tracer = p.tel.Tracer(instrumentationName)
	if p.metrics == nil {
		p.metrics = NewMetrics(nil, p.tel.Meter(instrumentationName), p.logger)
	}

	if p.index == nil && cfg.History.SQLitePath != "" {
		idx, err := history.OpenSQLiteIndex(cfg.History.SQLitePath)
		if err != nil {
			return nil, err
		}
		p.index = idx
		p.ownsIndex = true
	}

	return p, nil
}

// Metrics returns the metrics sink.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Scanner returns the document scanner.
func (p *Pipeline) Scanner() *scanner.Scanner {
	return p.scanner
}

// Close releases the history index if the pipeline opened it.
func (p *Pipeline) Close() error {
	if p.ownsIndex && p.index != nil {
		return p.index.Close()
	}
	return nil
}

// Run processes every lesson document in dir once.
func (p *Pipeline) Run(ctx context.Context, dir string) Result {
	started := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithLogger(ctx, p.logger)

	ctx, span := p.tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("lessons.dir", dir),
			attribute.String("run.id", runID),
		),
	)
	defer span.End()

	p.logger.Info(ctx, "pipeline run started", zap.String("dir", dir))

	result := p.run(ctx, dir, runID)
	result.RunID = runID
	result.Duration = time.Since(started)

	span.SetAttributes(
		attribute.Int("lessons.found", result.DocumentsFound),
		attribute.Int("lessons.processed", result.Processed),
		attribute.Int("lessons.failed", result.Failed),
		attribute.Bool("run.success", result.Success),
	)
	if result.Success {
		span.SetStatus(codes.Ok, "")
		p.logger.Info(ctx, "pipeline run completed",
			zap.Int("found", result.DocumentsFound),
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Int("valid", result.Valid),
			zap.Int("invalid", result.Invalid),
			zap.Duration("duration", result.Duration),
		)
	} else {
		span.SetStatus(codes.Error, result.Error)
		p.logger.Error(ctx, "pipeline run failed", zap.String("error", result.Error))
	}

	p.metrics.RecordRun(ctx, result, p.now())
	p.exportMetrics(ctx)
	return result
}

func (p *Pipeline) run(ctx context.Context, dir, runID string) Result {
	paths, err := p.scanner.Discover(dir)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to discover lessons: %v", err)}
	}
	result := Result{DocumentsFound: len(paths)}
	if len(paths) == 0 {
		p.logger.Warn(ctx, "no lesson documents found", zap.String("dir", dir))
	}

	analyzer := analysis.NewAnalyzer(p.extractor, p.loadSchema(ctx))
	batch, failures := p.analyzeAll(ctx, analyzer, paths)
	if err := ctx.Err(); err != nil {
		result.Error = fmt.Sprintf("run cancelled: %v", err)
		return result
	}

	result.Analyses = batch
	result.Failures = failures
	result.Processed = len(batch)
	result.Failed = len(failures)
	for _, a := range batch {
		if a.Validation.Valid {
			result.Valid++
		} else {
			result.Invalid++
		}
	}

	now := p.now()
	p.persist(ctx, runID, now, batch)
	result.ReportPaths = p.writeReports(ctx, runID, batch)
	result.Success = true
	return result
}

func (p *Pipeline) loadSchema(ctx context.Context) *schema.Schema {
	fallback := schema.ForRules(p.tables)
	s, _ := schema.LoadOrCreate(ctx, p.cfg.SchemaPath(), fallback, p.logger)
	if s == nil {
		return fallback
	}
	return s
}

type outcome struct {
	analysis lesson.Analysis
	err      error
	done     bool
}

// analyzeAll fans documents out to a bounded pool. Results are written by
// index, so the batch keeps discovery order.
func (p *Pipeline) analyzeAll(ctx context.Context, analyzer *analysis.Analyzer, paths []string) ([]lesson.Analysis, []DocumentError) {
	outcomes := make([]outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Lessons.Workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = p.analyzeOne(gctx, analyzer, path)
			return nil
		})
	}
	_ = g.Wait()

	batch := make([]lesson.Analysis, 0, len(paths))
	var failures []DocumentError
	for i, o := range outcomes {
		switch {
		case !o.done:
		case o.err != nil:
			failures = append(failures, DocumentError{Path: paths[i], Err: o.err})
		default:
			batch = append(batch, o.analysis)
		}
	}
	return batch, failures
}

func (p *Pipeline) analyzeOne(ctx context.Context, analyzer *analysis.Analyzer, path string) (out outcome) {
	ctx = logging.WithDocumentPath(ctx, path)
	ctx, span := p.tracer.Start(ctx, "pipeline.analyzeDocument",
		trace.WithAttributes(attribute.String("document.path", path)))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("%w: %v", ErrAnalysisPanic, r), done: true}
		}
		if out.err != nil {
			span.RecordError(out.err)
			span.SetStatus(codes.Error, out.err.Error())
			p.logger.Warn(ctx, "failed to process lesson", zap.Error(out.err))
		}
		span.End()
		p.metrics.RecordDocument(ctx, out.err == nil, time.Since(start))
	}()

	doc, err := p.scanner.Read(path)
	if err != nil {
		return outcome{err: err, done: true}
	}
	a := analyzer.Analyze(doc)

	span.SetAttributes(
		attribute.Int("lesson.quality_score", a.QualityScore),
		attribute.Int("lesson.impact_score", a.ImpactScore),
		attribute.Bool("lesson.valid", a.Validation.Valid),
	)
	p.logger.Debug(ctx, "lesson analyzed",
		zap.String("title", a.Record.Title),
		zap.Int("quality", a.QualityScore),
		zap.Int("impact", a.ImpactScore),
		zap.Strings("categories", a.Record.Categories),
	)
	return outcome{analysis: a, done: true}
}

// persist appends one snapshot per analysis kind. Store failures are logged
// and counted but never fail the run.
func (p *Pipeline) persist(ctx context.Context, runID string, now time.Time, batch []lesson.Analysis) {
	opts := []history.SnapshotOption{
		history.WithRunID(runID),
		history.WithRulesVersion(p.tables.Version),
	}

	for _, kind := range lesson.Kinds() {
		snap := history.NewSnapshot(kind, batch, now, opts...)
		path := filepath.Join(p.cfg.Data.Dir, history.FileFor(kind))

		var err error
		switch kind {
		case lesson.KindCategorization:
			err = appendSnapshot[history.CategorizationData](ctx, path, snap, now, p.logger)
		case lesson.KindQuality:
			err = appendSnapshot[history.QualityData](ctx, path, snap, now, p.logger)
		case lesson.KindImpact:
			err = appendSnapshot[history.ImpactData](ctx, path, snap, now, p.logger)
		}
		if err != nil {
			p.metrics.RecordStoreFailure(kind)
		}

		if p.index != nil {
			if err := p.index.Record(ctx, snap); err != nil {
				p.logger.Warn(ctx, "failed to index snapshot",
					zap.String("kind", string(kind)), zap.Error(err))
			}
		}
		p.metrics.RecordSnapshot(kind, snap)
	}
}

func appendSnapshot[T any, P interface {
	*T
	history.Data
}](ctx context.Context, path string, snap history.Snapshot, now time.Time, logger *logging.Logger) error {
	data := history.Load[T, P](ctx, path, logger)
	data.Append(snap, now)
	return history.Save(ctx, path, data, logger)
}

func (p *Pipeline) writeReports(ctx context.Context, runID string, batch []lesson.Analysis) []string {
	reports := report.GenerateAll(batch, report.Options{
		TopN:  p.cfg.Reports.TopN,
		RunID: runID,
		Now:   p.now,
	})

	dir := p.cfg.ReportsDir()
	var paths []string
	for _, r := range reports {
		written, err := report.Write(dir, r, p.cfg.Reports.Formats)
		paths = append(paths, written...)
		if err != nil {
			p.logger.Warn(ctx, "failed to write report",
				zap.String("kind", string(r.Kind)), zap.String("dir", dir), zap.Error(err))
		}
	}
	return paths
}

func (p *Pipeline) exportMetrics(ctx context.Context) {
	path := p.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	err := os.MkdirAll(filepath.Dir(path), 0750)
	if err == nil {
		err = p.metrics.WriteTextfile(path)
	}
	if err != nil {
		p.logger.Warn(ctx, "failed to write metrics textfile",
			zap.String("path", path), zap.Error(err))
	}
}
