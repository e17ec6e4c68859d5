package entities

import (
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// MigrationRun records one execution of a job.
type MigrationRun struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RunID       string     `gorm:"size:36;uniqueIndex" json:"run_id"`
	Job         string     `gorm:"size:100;index" json:"job"`
	Status      RunStatus  `gorm:"size:20;index" json:"status"`
	Read        int        `json:"read"`
	Skipped     int        `json:"skipped"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	DryRun      bool       `json:"dry_run"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (MigrationRun) TableName() string {
	return "migration_runs"
}

// MigratedItem maps a source item to the destination document created for it.
type MigratedItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Job           string    `gorm:"size:100;uniqueIndex:idx_migrated_job_source" json:"job"`
	SourceID      string    `gorm:"size:100;uniqueIndex:idx_migrated_job_source" json:"source_id"`
	DestinationID string    `gorm:"size:200" json:"destination_id"`
	Slug          string    `gorm:"size:200" json:"slug"`
	RunID         string    `gorm:"size:36" json:"run_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (MigratedItem) TableName() string {
	return "migrated_items"
}
