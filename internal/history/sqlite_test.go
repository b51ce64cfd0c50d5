package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

func TestSQLiteIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	first := NewSnapshot(lesson.KindQuality, testBatch(), t0, WithRunID("r1"))
	second := NewSnapshot(lesson.KindQuality, testBatch()[:1], t0.Add(time.Second/2), WithRunID("r2"))
	impact := NewSnapshot(lesson.KindImpact, testBatch(), t0)

	for _, s := range []Snapshot{first, second, impact} {
		require.NoError(t, idx.Record(ctx, s))
	}

	rows, err := idx.Snapshots(ctx, lesson.KindQuality, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID, "newest first")
	assert.Equal(t, "r2", rows[0].RunID)
	assert.Equal(t, 1, rows[0].TotalLessons)
	assert.InDelta(t, 90, rows[0].AverageScore, 0.001)
	assert.Equal(t, t0.Add(time.Second/2), rows[0].Timestamp)

	all, err := idx.Snapshots(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	trend, err := idx.LessonTrend(ctx, lesson.KindQuality, "b.md")
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, first.ID, trend[0].SnapshotID)
	assert.Equal(t, 40, trend[0].Score)
	assert.False(t, trend[0].Valid)

	trend, err = idx.LessonTrend(ctx, lesson.KindQuality, "a.md")
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.True(t, trend[0].Timestamp.Before(trend[1].Timestamp))
	assert.True(t, trend[1].Valid)
}

func TestSQLiteIndex_DuplicateSnapshotRejected(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	s := NewSnapshot(lesson.KindImpact, testBatch(), t0)
	require.NoError(t, idx.Record(ctx, s))
	assert.Error(t, idx.Record(ctx, s))

	rows, err := idx.Snapshots(ctx, lesson.KindImpact, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
