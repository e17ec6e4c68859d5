package config

import "time"

const (
	DefaultWebflowBaseURL   = "https://api.webflow.com/v2"
	DefaultSanityAPIVersion = "2024-01-01"

	// DefaultPageSize is the largest page the Webflow items endpoint returns
	DefaultPageSize = 100

	DefaultBatchSize  = 10
	DefaultWriteDelay = 150 * time.Millisecond

	DefaultMappingFile = "./migration.yaml"

	// DefaultLedgerPath is where migration runs and migrated item ids are recorded
	DefaultLedgerPath = "./cms-migrator.db"
)
