package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chmdznr/rclone-mirror/pkg/models"
	_ "github.com/mattn/go-sqlite3"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// New opens the run history database at path, creating it if needed
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.initialize(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// initialize creates the necessary tables if they don't exist
func (db *DB) initialize() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			direction TEXT NOT NULL,
			source TEXT NOT NULL,
			destination TEXT NOT NULL,
			dry_run BOOLEAN NOT NULL DEFAULT 0,
			exit_code INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
		CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
	`)
	return err
}

// StartRun inserts a run and sets its ID
func (db *DB) StartRun(run *models.Run) error {
	res, err := db.Exec(`
		INSERT INTO runs (started_at, direction, source, destination, dry_run, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.StartedAt.UTC(),
		run.Direction,
		run.Source,
		run.Destination,
		run.DryRun,
		run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	run.ID, err = res.LastInsertId()
	return err
}

// FinishRun stores the outcome of a run
func (db *DB) FinishRun(run *models.Run) error {
	res, err := db.Exec(`
		UPDATE runs
		SET finished_at = ?, exit_code = ?, status = ?
		WHERE id = ?
	`, run.FinishedAt.UTC(), run.ExitCode, run.Status, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", run.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %d not found", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (db *DB) ListRuns(limit int) ([]models.Run, error) {
	rows, err := db.Query(`
		SELECT id, started_at, finished_at, direction, source, destination, dry_run, exit_code, status
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var finishedAt sql.NullTime
		err = rows.Scan(
			&run.ID,
			&run.StartedAt,
			&finishedAt,
			&run.Direction,
			&run.Source,
			&run.Destination,
			&run.DryRun,
			&run.ExitCode,
			&run.Status,
		)
		if err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetStats returns statistics about recorded runs
func (db *DB) GetStats() (*models.Stats, error) {
	var stats models.Stats
	err := db.QueryRow(`
		SELECT
			COUNT(*) as total_runs,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) as completed_runs,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed_runs,
			COUNT(CASE WHEN status = 'running' THEN 1 END) as running_runs
		FROM runs
	`).Scan(
		&stats.TotalRuns,
		&stats.CompletedRuns,
		&stats.FailedRuns,
		&stats.RunningRuns,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	var lastSuccess sql.NullTime
	err = db.QueryRow(`
		SELECT finished_at FROM runs
		WHERE status = 'completed'
		ORDER BY finished_at DESC
		LIMIT 1
	`).Scan(&lastSuccess)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("failed to get last success: %w", err)
	case lastSuccess.Valid:
		stats.LastSuccess = lastSuccess.Time
	}

	return &stats, nil
}

// Prune removes all but the newest keep runs
func (db *DB) Prune(keep int) (int64, error) {
	res, err := db.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}
