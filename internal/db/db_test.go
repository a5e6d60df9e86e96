package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmdznr/rclone-mirror/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func record(t *testing.T, db *DB, started time.Time, direction, status string, exitCode int) *models.Run {
	t.Helper()
	run := &models.Run{
		StartedAt:   started,
		Direction:   direction,
		Source:      "/home/user/Sync",
		Destination: "remote:Sync",
		Status:      models.RunStatusRunning,
	}
	require.NoError(t, db.StartRun(run))
	require.NotZero(t, run.ID)

	if status != models.RunStatusRunning {
		run.FinishedAt = started.Add(90 * time.Second)
		run.Status = status
		run.ExitCode = exitCode
		require.NoError(t, db.FinishRun(run))
	}
	return run
}

func TestRunLifecycle(t *testing.T) {
	db := newTestDB(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run := record(t, db, started, "local -> remote", models.RunStatusFailed, 23)

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 90*time.Second, got.Duration())
	assert.Equal(t, "local -> remote", got.Direction)
	assert.Equal(t, "/home/user/Sync", got.Source)
	assert.Equal(t, "remote:Sync", got.Destination)
	assert.Equal(t, 23, got.ExitCode)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.False(t, got.DryRun)
}

func TestFinishUnknownRun(t *testing.T) {
	db := newTestDB(t)

	err := db.FinishRun(&models.Run{ID: 42, FinishedAt: time.Now(), Status: models.RunStatusCompleted})
	assert.EqualError(t, err, "run 42 not found")
}

func TestListRunsOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := record(t, db, base, "local -> remote", models.RunStatusCompleted, 0)
	second := record(t, db, base.Add(time.Hour), "remote -> local", models.RunStatusCompleted, 0)
	third := record(t, db, base.Add(2*time.Hour), "local -> remote", models.RunStatusRunning, 0)

	runs, err := db.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, third.ID, runs[0].ID)
	assert.Equal(t, second.ID, runs[1].ID)
	assert.True(t, runs[0].FinishedAt.IsZero())

	runs, err = db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, first.ID, runs[2].ID)
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRuns)
	assert.True(t, stats.LastSuccess.IsZero())

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	record(t, db, base, "local -> remote", models.RunStatusCompleted, 0)
	record(t, db, base.Add(time.Hour), "remote -> local", models.RunStatusCompleted, 0)
	record(t, db, base.Add(2*time.Hour), "local -> remote", models.RunStatusFailed, 1)
	record(t, db, base.Add(3*time.Hour), "local -> remote", models.RunStatusRunning, 0)

	stats, err = db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalRuns)
	assert.Equal(t, int64(2), stats.CompletedRuns)
	assert.Equal(t, int64(1), stats.FailedRuns)
	assert.Equal(t, int64(1), stats.RunningRuns)
	assert.True(t, base.Add(time.Hour+90*time.Second).Equal(stats.LastSuccess))
}

func TestPrune(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		record(t, db, base.Add(time.Duration(i)*time.Hour), "local -> remote", models.RunStatusCompleted, 0)
	}

	removed, err := db.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, base.Add(4*time.Hour).Equal(runs[0].StartedAt))
}

func TestNewKeepsCause(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "state")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	_, err := New(filepath.Join(blocker, "history.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create history directory")

	var pathErr *os.PathError
	assert.ErrorAs(t, err, &pathErr)
}
