package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/cms-migrator/internal/database"
	"github.com/mrlokans/cms-migrator/internal/logging"
)

// RouterConfig contains all dependencies needed to create the status router.
type RouterConfig struct {
	// Database is the migration ledger; nil when LEDGER_PATH is empty.
	Database *database.Database
	Runs     RunStore

	// Scheduler backs the manual trigger and scheduler status.
	Scheduler MigrationTrigger

	Version string
	Logger  *zap.SugaredLogger
}

// NewRouter creates the status server router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := logging.OrNop(cfg.Logger)

	router := gin.New()
	router.Use(requestLogger(logger))
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	if cfg.Scheduler != nil {
		health.SetScheduler(cfg.Scheduler)
	}
	runsController := NewRunsController(cfg.Runs, cfg.Scheduler, logger)

	router.GET("/health", health.Status)

	api := router.Group("/api")
	{
		api.GET("/runs", runsController.List)
		api.GET("/runs/:id", runsController.Get)
		api.POST("/runs", runsController.Trigger)
	}

	return router
}

func requestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debugw("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}
