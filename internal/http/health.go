package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/cms-migrator/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// SchedulerState is the read-only view of the migration scheduler.
type SchedulerState interface {
	IsRunning() bool
	IsSyncing() bool
}

type HealthController struct {
	db        *database.Database
	scheduler SchedulerState
	version   string
}

func NewHealthController(db *database.Database, version string) *HealthController {
	return &HealthController{
		db:      db,
		version: version,
	}
}

// SetScheduler adds the scheduler state to health checks (optional).
func (h *HealthController) SetScheduler(s SchedulerState) {
	h.scheduler = s
}

func (h *HealthController) Status(c *gin.Context) {
	ledger, ledgerOK := h.ledgerCheck()
	health := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks: map[string]string{
			"ledger":    ledger,
			"scheduler": h.schedulerCheck(),
		},
	}

	statusCode := http.StatusOK
	if !ledgerOK {
		health.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

// A missing ledger is a valid setup, an unreachable one is not.
func (h *HealthController) ledgerCheck() (string, bool) {
	if h.db == nil {
		return "not configured", true
	}
	if err := h.db.Ping(); err != nil {
		return "error: " + err.Error(), false
	}
	return "ok", true
}

// The scheduler never makes the service unhealthy: manual runs still work
// while it is stopped.
func (h *HealthController) schedulerCheck() string {
	switch {
	case h.scheduler == nil:
		return "not configured"
	case !h.scheduler.IsRunning():
		return "stopped"
	case h.scheduler.IsSyncing():
		return "migrating"
	default:
		return "idle"
	}
}
