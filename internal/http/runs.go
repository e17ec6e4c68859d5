package http

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/logging"
	"github.com/mrlokans/cms-migrator/internal/scheduler"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// RunStore provides read access to migration run history.
type RunStore interface {
	ListRuns(job string, limit int) ([]entities.MigrationRun, error)
	GetRun(runID string) (*entities.MigrationRun, error)
}

// MigrationTrigger starts migrations on demand and reports scheduler state.
type MigrationTrigger interface {
	SchedulerState
	RunNow() error
	LastRun() *scheduler.LastRun
	GetNextRunTime() *time.Time
	Schedule() string
}

type SchedulerStatus struct {
	Enabled     bool               `json:"enabled"`
	Migrating   bool               `json:"migrating"`
	Schedule    string             `json:"schedule,omitempty"`
	Description string             `json:"description,omitempty"`
	NextRun     *time.Time         `json:"next_run,omitempty"`
	LastRun     *scheduler.LastRun `json:"last_run,omitempty"`
}

type RunsResponse struct {
	Runs      []entities.MigrationRun `json:"runs"`
	Scheduler *SchedulerStatus        `json:"scheduler,omitempty"`
}

// RunsController exposes run history and the manual trigger.
type RunsController struct {
	store   RunStore
	trigger MigrationTrigger
	logger  *zap.SugaredLogger
}

// NewRunsController creates a controller. Either dependency may be nil: a nil
// store disables history, a nil trigger disables POST /api/runs.
func NewRunsController(store RunStore, trigger MigrationTrigger, logger *zap.SugaredLogger) *RunsController {
	return &RunsController{
		store:   store,
		trigger: trigger,
		logger:  logging.OrNop(logger),
	}
}

// List handles GET /api/runs?job=<name>&limit=<n>
func (rc *RunsController) List(c *gin.Context) {
	limit, ok := parseLimit(c, "limit", defaultRunsLimit, maxRunsLimit)
	if !ok {
		return
	}

	response := RunsResponse{Runs: []entities.MigrationRun{}, Scheduler: rc.status()}
	if rc.store != nil {
		runs, err := rc.store.ListRuns(c.Query("job"), limit)
		if err != nil {
			respondInternalError(c, rc.logger, err, "list runs")
			return
		}
		response.Runs = runs
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/runs/:id
func (rc *RunsController) Get(c *gin.Context) {
	if rc.store == nil {
		respondNotFound(c, "run")
		return
	}

	run, err := rc.store.GetRun(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "run")
			return
		}
		respondInternalError(c, rc.logger, err, "get run")
		return
	}

	c.JSON(http.StatusOK, run)
}

// Trigger handles POST /api/runs
func (rc *RunsController) Trigger(c *gin.Context) {
	if rc.trigger == nil {
		respondError(c, http.StatusServiceUnavailable, "scheduler_disabled", "migrations cannot be triggered: scheduler is not configured")
		return
	}

	if err := rc.trigger.RunNow(); err != nil {
		if errors.Is(err, scheduler.ErrBusy) {
			respondError(c, http.StatusConflict, "busy", err.Error())
			return
		}
		respondInternalError(c, rc.logger, err, "trigger migration")
		return
	}

	rc.logger.Infow("manual migration triggered", "remote", c.ClientIP())
	respondAccepted(c, "migration started", rc.status())
}

func (rc *RunsController) status() *SchedulerStatus {
	if rc.trigger == nil {
		return nil
	}
	schedule := rc.trigger.Schedule()
	return &SchedulerStatus{
		Enabled:     rc.trigger.IsRunning(),
		Migrating:   rc.trigger.IsSyncing(),
		Schedule:    schedule,
		Description: scheduler.GetCronDescription(schedule),
		NextRun:     rc.trigger.GetNextRunTime(),
		LastRun:     rc.trigger.LastRun(),
	}
}
