package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/logging"
)

var t0 = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func testBatch() []lesson.Analysis {
	return []lesson.Analysis{
		{
			Record: lesson.Record{
				Path: "a.md", Title: "A",
				Phase: lesson.PhaseDeployment, Priority: lesson.PriorityCritical,
				Categories: []string{"devops", "critical"},
			},
			Validation:    lesson.NewValidationResult(nil),
			QualityScore:  90,
			ImpactScore:   100,
			ImpactMetrics: map[string]int{"technical": 25, "process": 25, "project": 0, "quality": 0, "adoption": 0},
		},
		{
			Record: lesson.Record{
				Path: "b.md", Title: "B",
				Phase: lesson.PhaseGeneral, Priority: lesson.PriorityLow,
				Categories: []string{"devops"},
			},
			Validation:    lesson.NewValidationResult([]string{"Missing required field: date"}),
			QualityScore:  40,
			ImpactScore:   60,
			ImpactMetrics: map[string]int{"technical": 0, "process": 25, "project": 0, "quality": 0, "adoption": 0},
		},
	}
}

func TestNewSnapshot(t *testing.T) {
	batch := testBatch()

	tests := []struct {
		kind  lesson.Kind
		stats map[string]float64
	}{
		{lesson.KindQuality, map[string]float64{
			StatAverageScore: 65, StatMinScore: 40, StatMaxScore: 90,
			StatValid: 1, StatInvalid: 1,
		}},
		{lesson.KindImpact, map[string]float64{
			StatAverageScore: 80, StatMinScore: 60, StatMaxScore: 100,
			"dimension.technical": 12.5, "dimension.process": 25,
			"dimension.project": 0, "dimension.quality": 0, "dimension.adoption": 0,
		}},
		{lesson.KindCategorization, map[string]float64{
			StatAverageScore: 1.5, StatMinScore: 1, StatMaxScore: 2,
			StatUniqueCategories: 2, StatAverageCategories: 1.5,
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			s := NewSnapshot(tt.kind, batch, t0, WithRunID("run-1"), WithRulesVersion("v1"))

			assert.NotEmpty(t, s.ID)
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, t0, s.Timestamp)
			assert.Equal(t, "run-1", s.RunID)
			assert.Equal(t, "v1", s.RulesVersion)
			assert.Equal(t, 2, s.TotalLessons)
			assert.Equal(t, tt.stats, s.AggregateStats)
			require.Len(t, s.PerLesson, 2)
			assert.Equal(t, "a.md", s.PerLesson[0].Path)
		})
	}
}

func TestNewSnapshot_EmptyBatch(t *testing.T) {
	s := NewSnapshot(lesson.KindQuality, nil, t0)

	assert.Equal(t, 0, s.TotalLessons)
	assert.Empty(t, s.AggregateStats)
	assert.NotNil(t, s.PerLesson)
}

func TestNewSnapshot_DistinctIDs(t *testing.T) {
	a := NewSnapshot(lesson.KindImpact, testBatch(), t0)
	b := NewSnapshot(lesson.KindImpact, testBatch(), t0)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestLoad_MissingFileSkeleton(t *testing.T) {
	path := filepath.Join(t.TempDir(), QualityFile)

	data := Load[QualityData](context.Background(), path, logging.NewNop())

	require.NotNil(t, data)
	assert.Empty(t, data.QualityHistory)
	assert.NotNil(t, data.QualityHistory)
	assert.Nil(t, data.LastUpdated)

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"qualityHistory":[],"validationHistory":[],"lastUpdated":null}`, string(raw))
}

func TestLoad_CorruptFile(t *testing.T) {
	tl := logging.NewTestLogger()
	path := filepath.Join(t.TempDir(), ImpactFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"impactHistory": [`), 0600))

	data := Load[ImpactData](context.Background(), path, tl.Logger)

	assert.Equal(t, 0, data.Len())
	assert.NotNil(t, data.ImpactMetrics)
	tl.AssertLogged(t, zapcore.WarnLevel, "failed to parse history store")
}

func TestAppendSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := logging.NewNop()

	paths := map[lesson.Kind]string{}
	for _, kind := range lesson.Kinds() {
		paths[kind] = filepath.Join(dir, "nested", FileFor(kind))
	}

	for run := 0; run < 2; run++ {
		now := t0.Add(time.Duration(run) * time.Hour)
		batch := testBatch()

		cat := Load[CategorizationData](ctx, paths[lesson.KindCategorization], logger)
		cat.Append(NewSnapshot(lesson.KindCategorization, batch, now), now)
		require.NoError(t, Save(ctx, paths[lesson.KindCategorization], cat, logger))

		q := Load[QualityData](ctx, paths[lesson.KindQuality], logger)
		q.Append(NewSnapshot(lesson.KindQuality, batch, now), now)
		require.NoError(t, Save(ctx, paths[lesson.KindQuality], q, logger))

		imp := Load[ImpactData](ctx, paths[lesson.KindImpact], logger)
		imp.Append(NewSnapshot(lesson.KindImpact, batch, now), now)
		require.NoError(t, Save(ctx, paths[lesson.KindImpact], imp, logger))
	}

	cat := Load[CategorizationData](ctx, paths[lesson.KindCategorization], logger)
	require.Len(t, cat.CategorizationHistory, 2)
	assert.NotEqual(t, cat.CategorizationHistory[0].ID, cat.CategorizationHistory[1].ID)
	assert.Equal(t, map[string]int{"devops": 2, "critical": 1}, cat.Categories)
	require.NotNil(t, cat.LastUpdated)
	assert.Equal(t, t0.Add(time.Hour), *cat.LastUpdated)

	q := Load[QualityData](ctx, paths[lesson.KindQuality], logger)
	require.Len(t, q.QualityHistory, 2)
	require.Len(t, q.ValidationHistory, 2)
	v := q.ValidationHistory[1]
	assert.Equal(t, q.QualityHistory[1].ID, v.SnapshotID)
	assert.Equal(t, 1, v.Valid)
	assert.Equal(t, 1, v.Invalid)
	assert.Equal(t, map[string][]string{"b.md": {"Missing required field: date"}}, v.Errors)

	imp := Load[ImpactData](ctx, paths[lesson.KindImpact], logger)
	require.Len(t, imp.ImpactHistory, 2)
	assert.InDelta(t, 12.5, imp.ImpactMetrics["technical"], 0.001)
	assert.InDelta(t, 25, imp.ImpactMetrics["process"], 0.001)
}

func TestAppend_PreservesEarlierEntries(t *testing.T) {
	data := &QualityData{}
	first := NewSnapshot(lesson.KindQuality, testBatch(), t0)
	data.Append(first, t0)

	before, err := json.Marshal(data.QualityHistory[0])
	require.NoError(t, err)

	data.Append(NewSnapshot(lesson.KindQuality, nil, t0.Add(time.Minute)), t0.Add(time.Minute))

	after, err := json.Marshal(data.QualityHistory[0])
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, 2, data.Len())
}

func TestSave_Failure(t *testing.T) {
	tl := logging.NewTestLogger()
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	err := Save(context.Background(), filepath.Join(blocker, QualityFile), &QualityData{}, tl.Logger)

	assert.Error(t, err)
	tl.AssertLogged(t, zapcore.WarnLevel, "failed to save history store")
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ImpactFile)

	require.NoError(t, Save(context.Background(), path, &ImpactData{}, logging.NewNop()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ImpactFile, entries[0].Name())
}
