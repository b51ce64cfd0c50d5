package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/lessons/internal/history"
	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

var (
	historyKind   string
	historyLimit  int
	historyLesson string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&historyKind, "kind", "k", "", "analysis kind (categorization, quality, impact)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum snapshots to list")
	historyCmd.Flags().StringVar(&historyLesson, "lesson", "", "show the score trend of one lesson (requires history.sqlite_path)")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded snapshots",
	Long: `List history snapshots, newest first. Snapshots are read from the
SQLite index when history.sqlite_path is set, otherwise from the JSON stores
under data.dir.

Examples:
  # Last 20 snapshots of every kind
  lessons history

  # Quality trend of one lesson
  lessons history -k quality --lesson docs/lessons/db-pool.md`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func parseKind(s string) (lesson.Kind, error) {
	if s == "" {
		return "", nil
	}
	for _, k := range lesson.Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q (want categorization, quality or impact)", s)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	kind, err := parseKind(historyKind)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if e.cfg.History.SQLitePath == "" {
		if historyLesson != "" {
			return fmt.Errorf("--lesson requires history.sqlite_path")
		}
		fmt.Fprintln(out, renderSnapshots(storeSnapshots(ctx, e, kind, historyLimit)))
		return nil
	}

	idx, err := history.OpenSQLiteIndex(e.cfg.History.SQLitePath)
	if err != nil {
		return err
	}
	defer idx.Close()

	if historyLesson != "" {
		if kind == "" {
			kind = lesson.KindQuality
		}
		points, err := idx.LessonTrend(ctx, kind, historyLesson)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderTrend(historyLesson, kind, points))
		return nil
	}

	rows, err := idx.Snapshots(ctx, kind, historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderSnapshots(rows))
	return nil
}

// storeSnapshots reads snapshots from the JSON history stores, newest first.
func storeSnapshots(ctx context.Context, e *env, kind lesson.Kind, limit int) []history.SnapshotRow {
	var snaps []history.Snapshot
	for _, k := range lesson.Kinds() {
		if kind != "" && k != kind {
			continue
		}
		path := filepath.Join(e.cfg.Data.Dir, history.FileFor(k))
		switch k {
		case lesson.KindCategorization:
			snaps = append(snaps, history.Load[history.CategorizationData](ctx, path, e.logger).CategorizationHistory...)
		case lesson.KindQuality:
			snaps = append(snaps, history.Load[history.QualityData](ctx, path, e.logger).QualityHistory...)
		case lesson.KindImpact:
			snaps = append(snaps, history.Load[history.ImpactData](ctx, path, e.logger).ImpactHistory...)
		}
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp.After(snaps[j].Timestamp)
	})
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}

	rows := make([]history.SnapshotRow, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, history.SnapshotRow{
			ID:           s.ID,
			Kind:         s.Kind,
			Timestamp:    s.Timestamp,
			RunID:        s.RunID,
			RulesVersion: s.RulesVersion,
			TotalLessons: s.TotalLessons,
			AverageScore: s.AggregateStats[history.StatAverageScore],
		})
	}
	return rows
}
