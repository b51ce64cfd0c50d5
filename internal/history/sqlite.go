package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

// timestampLayout sorts lexicographically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteIndex mirrors snapshots into a SQLite database. Like the JSON
// stores it only ever inserts.
type SQLiteIndex struct {
	db *sql.DB
}

// SnapshotRow is one indexed snapshot.
type SnapshotRow struct {
	ID           string
	Kind         lesson.Kind
	Timestamp    time.Time
	RunID        string
	RulesVersion string
	TotalLessons int
	AverageScore float64
}

// ScorePoint is the score of one lesson in one snapshot.
type ScorePoint struct {
	SnapshotID string
	Timestamp  time.Time
	Score      int
	Valid      bool
}

// OpenSQLiteIndex opens or creates the index database at path.
func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history index: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	idx := &SQLiteIndex{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history index: %w", err)
	}
	return idx, nil
}

func (s *SQLiteIndex) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			timestamp     TEXT NOT NULL,
			run_id        TEXT NOT NULL DEFAULT '',
			rules_version TEXT NOT NULL DEFAULT '',
			total_lessons INTEGER NOT NULL,
			average_score REAL NOT NULL DEFAULT 0,
			payload       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS snapshots_kind_ts ON snapshots(kind, timestamp)`,
		`CREATE TABLE IF NOT EXISTS lesson_scores (
			snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
			path        TEXT NOT NULL,
			title       TEXT NOT NULL,
			score       INTEGER NOT NULL,
			valid       INTEGER NOT NULL,
			PRIMARY KEY (snapshot_id, path)
		)`,
		`CREATE INDEX IF NOT EXISTS lesson_scores_path ON lesson_scores(path)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts a snapshot and its per-lesson scores in one transaction.
func (s *SQLiteIndex) Record(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, kind, timestamp, run_id, rules_version, total_lessons, average_score, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, string(snap.Kind), snap.Timestamp.UTC().Format(timestampLayout),
		snap.RunID, snap.RulesVersion, snap.TotalLessons,
		snap.AggregateStats[StatAverageScore], string(payload),
	); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, l := range snap.PerLesson {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lesson_scores (snapshot_id, path, title, score, valid) VALUES (?, ?, ?, ?, ?)`,
			snap.ID, l.Path, l.Title, l.Score, l.Valid,
		); err != nil {
			return fmt.Errorf("failed to insert lesson score: %w", err)
		}
	}

	return tx.Commit()
}

// Snapshots returns the most recent snapshots of a kind, newest first. An
// empty kind matches every kind.
func (s *SQLiteIndex) Snapshots(ctx context.Context, kind lesson.Kind, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := `SELECT id, kind, timestamp, run_id, rules_version, total_lessons, average_score FROM snapshots`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY timestamp DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var (
			row  SnapshotRow
			k    string
			when string
		)
		if err := rows.Scan(&row.ID, &k, &when, &row.RunID, &row.RulesVersion, &row.TotalLessons, &row.AverageScore); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		row.Kind = lesson.Kind(k)
		row.Timestamp, err = time.Parse(timestampLayout, when)
		if err != nil {
			return nil, fmt.Errorf("invalid snapshot timestamp %q: %w", when, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LessonTrend returns the scores of one lesson across snapshots of a kind,
// oldest first.
func (s *SQLiteIndex) LessonTrend(ctx context.Context, kind lesson.Kind, path string) ([]ScorePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.timestamp, l.score, l.valid
		 FROM lesson_scores l JOIN snapshots s ON s.id = l.snapshot_id
		 WHERE s.kind = ? AND l.path = ?
		 ORDER BY s.timestamp`,
		string(kind), path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson trend: %w", err)
	}
	defer rows.Close()

	var out []ScorePoint
	for rows.Next() {
		var (
			p    ScorePoint
			when string
		)
		if err := rows.Scan(&p.SnapshotID, &when, &p.Score, &p.Valid); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		p.Timestamp, err = time.Parse(timestampLayout, when)
		if err != nil {
			return nil, fmt.Errorf("invalid snapshot timestamp %q: %w", when, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
