// Package items records which source items already have a destination
// document, so re-runs can skip them instead of creating duplicates.
package items

import (
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/cms-migrator/internal/entities"
)

// Repository handles migrated item database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new items repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// IsMigrated reports whether job already created a document for sourceID.
func (r *Repository) IsMigrated(job, sourceID string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.MigratedItem{}).
		Where("job = ? AND source_id = ?", job, sourceID).
		Count(&count).Error
	return count > 0, err
}

// RecordMigrated stores or refreshes the destination id for a source item.
func (r *Repository) RecordMigrated(item entities.MigratedItem) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"destination_id", "slug", "run_id", "updated_at"}),
	}).Create(&item).Error
	if err != nil {
		return errors.Wrapf(err, "record %s/%s", item.Job, item.SourceID)
	}
	return nil
}

// Get returns the ledger entry for one source item.
func (r *Repository) Get(job, sourceID string) (*entities.MigratedItem, error) {
	var item entities.MigratedItem
	err := r.db.Where("job = ? AND source_id = ?", job, sourceID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CountByJob returns how many items each job has migrated.
func (r *Repository) CountByJob() (map[string]int64, error) {
	var rows []struct {
		Job   string
		Count int64
	}
	err := r.db.Model(&entities.MigratedItem{}).
		Select("job, COUNT(*) AS count").
		Group("job").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Job] = row.Count
	}
	return counts, nil
}

// DeleteByJob forgets every item of job, e.g. after its documents were cleared.
func (r *Repository) DeleteByJob(job string) (int64, error) {
	result := r.db.Where("job = ?", job).Delete(&entities.MigratedItem{})
	return result.RowsAffected, result.Error
}
