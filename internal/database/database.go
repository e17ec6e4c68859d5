package database

import (
	"github.com/cockroachdb/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/cms-migrator/internal/entities"
)

type Database struct {
	DB   *gorm.DB
	path string
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	err = db.AutoMigrate(
		&entities.MigrationRun{},
		&entities.MigratedItem{},
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return &Database{DB: db, path: dbPath}, nil
}

// Path returns the sqlite file the ledger lives in.
func (d *Database) Path() string {
	return d.path
}

// Ping checks the underlying connection.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
