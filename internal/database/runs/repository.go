// Package runs provides database operations for migration run history.
//
// # Usage
//
//	repo := runs.NewRepository(db)
//	run, err := repo.StartRun("team", false)
//	...
//	err = repo.CompleteRun(run.RunID, counts, "")
package runs

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/cms-migrator/internal/entities"
)

// StaleAfter is how long a running run may go without an update before it is
// treated as interrupted.
const StaleAfter = 30 * time.Minute

// Counts are the per-run totals reported by the pipeline.
type Counts struct {
	Read      int
	Skipped   int
	Succeeded int
	Failed    int
}

// Repository handles all migration run database operations.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new runs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// StartRun records a new running run for job and returns it.
func (r *Repository) StartRun(job string, dryRun bool) (*entities.MigrationRun, error) {
	now := r.now()
	run := &entities.MigrationRun{
		RunID:     uuid.NewString(),
		Job:       job,
		Status:    entities.RunStatusRunning,
		DryRun:    dryRun,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.Create(run).Error; err != nil {
		return nil, errors.Wrapf(err, "start run for %s", job)
	}
	return run, nil
}

// UpdateRun stores intermediate counts of an ongoing run.
func (r *Repository) UpdateRun(runID string, counts Counts) error {
	return r.db.Model(&entities.MigrationRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{
			"read":       counts.Read,
			"skipped":    counts.Skipped,
			"succeeded":  counts.Succeeded,
			"failed":     counts.Failed,
			"updated_at": r.now(),
		}).Error
}

// CompleteRun marks a run completed, or failed when errorMsg is set.
func (r *Repository) CompleteRun(runID string, counts Counts, errorMsg string) error {
	now := r.now()
	status := entities.RunStatusCompleted
	if errorMsg != "" {
		status = entities.RunStatusFailed
	}

	updates := map[string]any{
		"status":       status,
		"read":         counts.Read,
		"skipped":      counts.Skipped,
		"succeeded":    counts.Succeeded,
		"failed":       counts.Failed,
		"updated_at":   now,
		"completed_at": now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	return r.db.Model(&entities.MigrationRun{}).
		Where("run_id = ?", runID).
		Updates(updates).Error
}

// IsJobRunning checks if a run of job is currently in progress.
// A run not updated within StaleAfter is marked failed and ignored.
func (r *Repository) IsJobRunning(job string) (bool, error) {
	var run entities.MigrationRun
	err := r.db.Where("job = ? AND status = ?", job, entities.RunStatusRunning).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if run.UpdatedAt.Before(r.now().Add(-StaleAfter)) {
		_ = r.CompleteRun(run.RunID, Counts{
			Read:      run.Read,
			Skipped:   run.Skipped,
			Succeeded: run.Succeeded,
			Failed:    run.Failed,
		}, "run was interrupted")
		return false, nil
	}

	return true, nil
}

// GetRun returns one run by its run id.
func (r *Repository) GetRun(runID string) (*entities.MigrationRun, error) {
	var run entities.MigrationRun
	if err := r.db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first. job filters when set.
func (r *Repository) ListRuns(job string, limit int) ([]entities.MigrationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.Order("started_at DESC").Order("id DESC").Limit(limit)
	if job != "" {
		query = query.Where("job = ?", job)
	}

	var result []entities.MigrationRun
	err := query.Find(&result).Error
	return result, err
}
