// Package database provides the migration ledger: a local sqlite file that
// records which runs happened and which source items already have a
// destination document.
//
// # Architecture
//
//	database/
//	├── database.go   # Connection setup and migrations
//	├── runs/         # Run history and the single-run guard
//	└── items/        # Source item to destination document mapping
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./cms-migrator.db")
//
//	runsRepo := runs.NewRepository(db.DB)
//	itemsRepo := items.NewRepository(db.DB)
//
// # Interface Implementations
//
//   - runs.Repository: implements importers.RunRecorder
//   - items.Repository: implements importers.ItemLedger
//
// The ledger is optional. With LEDGER_PATH empty the pipeline runs without
// history, exactly as a one-off migration script would.
package database
