package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/logging"
)

// Store file names under the data directory.
const (
	CategorizationFile = "categorization-history.json"
	QualityFile        = "quality-history.json"
	ImpactFile         = "impact-history.json"
)

// FileFor returns the store file name of an analysis kind.
func FileFor(kind lesson.Kind) string {
	switch kind {
	case lesson.KindQuality:
		return QualityFile
	case lesson.KindImpact:
		return ImpactFile
	default:
		return CategorizationFile
	}
}

// Data is implemented by the pointer types of the three store files.
type Data interface {
	// Append pushes s and refreshes the last-updated time. Earlier entries
	// are never touched.
	Append(s Snapshot, now time.Time)

	// Len returns the number of stored snapshots.
	Len() int

	normalize()
}

// CategorizationData is the categorization store file.
type CategorizationData struct {
	// Categories holds lessons per category as of the latest snapshot.
	Categories            map[string]int `json:"categories"`
	CategorizationHistory []Snapshot     `json:"categorizationHistory"`
	LastUpdated           *time.Time     `json:"lastUpdated"`
}

// Append implements Data.
func (d *CategorizationData) Append(s Snapshot, now time.Time) {
	d.normalize()
	d.CategorizationHistory = append(d.CategorizationHistory, s)

	counts := map[string]int{}
	for _, l := range s.PerLesson {
		for _, c := range l.Categories {
			counts[c]++
		}
	}
	d.Categories = counts

	t := now.UTC()
	d.LastUpdated = &t
}

// Len implements Data.
func (d *CategorizationData) Len() int { return len(d.CategorizationHistory) }

func (d *CategorizationData) normalize() {
	if d.Categories == nil {
		d.Categories = map[string]int{}
	}
	if d.CategorizationHistory == nil {
		d.CategorizationHistory = []Snapshot{}
	}
}

// QualityData is the quality store file.
type QualityData struct {
	QualityHistory    []Snapshot           `json:"qualityHistory"`
	ValidationHistory []ValidationSnapshot `json:"validationHistory"`
	LastUpdated       *time.Time           `json:"lastUpdated"`
}

// ValidationSnapshot records the validation outcome of one run.
type ValidationSnapshot struct {
	SnapshotID string              `json:"snapshotId"`
	Timestamp  time.Time           `json:"timestamp"`
	Valid      int                 `json:"valid"`
	Invalid    int                 `json:"invalid"`
	Errors     map[string][]string `json:"errors"`
}

// Append implements Data. The validation entry is derived from the
// snapshot's per-lesson summaries.
func (d *QualityData) Append(s Snapshot, now time.Time) {
	d.normalize()
	d.QualityHistory = append(d.QualityHistory, s)

	v := ValidationSnapshot{
		SnapshotID: s.ID,
		Timestamp:  s.Timestamp,
		Errors:     map[string][]string{},
	}
	for _, l := range s.PerLesson {
		if l.Valid {
			v.Valid++
			continue
		}
		v.Invalid++
		v.Errors[l.Path] = l.Errors
	}
	d.ValidationHistory = append(d.ValidationHistory, v)

	t := now.UTC()
	d.LastUpdated = &t
}

// Len implements Data.
func (d *QualityData) Len() int { return len(d.QualityHistory) }

func (d *QualityData) normalize() {
	if d.QualityHistory == nil {
		d.QualityHistory = []Snapshot{}
	}
	if d.ValidationHistory == nil {
		d.ValidationHistory = []ValidationSnapshot{}
	}
}

// ImpactData is the impact store file. ImpactMetrics holds the mean per
// dimension as of the latest snapshot.
type ImpactData struct {
	ImpactHistory []Snapshot         `json:"impactHistory"`
	ImpactMetrics map[string]float64 `json:"impactMetrics"`
	LastUpdated   *time.Time         `json:"lastUpdated"`
}

// Append implements Data.
func (d *ImpactData) Append(s Snapshot, now time.Time) {
	d.normalize()
	d.ImpactHistory = append(d.ImpactHistory, s)

	metrics := make(map[string]float64, len(lesson.Dimensions()))
	for _, dim := range lesson.Dimensions() {
		metrics[dim] = s.AggregateStats[DimensionStat(dim)]
	}
	d.ImpactMetrics = metrics

	t := now.UTC()
	d.LastUpdated = &t
}

// Len implements Data.
func (d *ImpactData) Len() int { return len(d.ImpactHistory) }

func (d *ImpactData) normalize() {
	if d.ImpactHistory == nil {
		d.ImpactHistory = []Snapshot{}
	}
	if d.ImpactMetrics == nil {
		d.ImpactMetrics = map[string]float64{}
	}
}

// Load reads a store file. A missing file yields the empty skeleton; an
// unreadable or unparsable file is logged and also yields the skeleton, so
// a damaged store never stops a run.
func Load[T any, P interface {
	*T
	Data
}](ctx context.Context, path string, logger *logging.Logger) P {
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	empty := func() P {
		data := P(new(T))
		data.normalize()
		return data
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "failed to read history store, starting empty",
				zap.String("path", path), zap.Error(err))
		}
		return empty()
	}

	data := P(new(T))
	if err := json.Unmarshal(raw, data); err != nil {
		logger.Warn(ctx, "failed to parse history store, starting empty",
			zap.String("path", path), zap.Error(err))
		return empty()
	}
	data.normalize()
	return data
}

// Save writes the store to path through a temporary file and rename, so a
// crash mid-write leaves the previous file intact. Failures are logged as
// warnings and returned; callers may carry on with the in-memory data.
func Save[P Data](ctx context.Context, path string, data P, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	if err := writeJSON(path, data); err != nil {
		logger.Warn(ctx, "failed to save history store",
			zap.String("path", path), zap.Error(err))
		return err
	}

	logger.Debug(ctx, "history store saved",
		zap.String("path", path), zap.Int("snapshots", data.Len()))
	return nil
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close history: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}
