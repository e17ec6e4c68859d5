package items

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/cms-migrator/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_items_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.MigratedItem{})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return NewRepository(db), cleanup
}

func TestRepository_RecordAndLookup(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	migrated, err := repo.IsMigrated("team", "emp-1")
	require.NoError(t, err)
	assert.False(t, migrated)

	err = repo.RecordMigrated(entities.MigratedItem{Job: "team", SourceID: "emp-1", DestinationID: "doc-1", Slug: "jo-lee", RunID: "run-1"})
	require.NoError(t, err)

	migrated, err = repo.IsMigrated("team", "emp-1")
	require.NoError(t, err)
	assert.True(t, migrated)

	migrated, err = repo.IsMigrated("projects", "emp-1")
	require.NoError(t, err)
	assert.False(t, migrated, "items are scoped by job")
}

func TestRepository_RecordMigrated_Upserts(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.RecordMigrated(entities.MigratedItem{Job: "team", SourceID: "emp-1", DestinationID: "doc-1", RunID: "run-1"}))
	require.NoError(t, repo.RecordMigrated(entities.MigratedItem{Job: "team", SourceID: "emp-1", DestinationID: "doc-2", RunID: "run-2"}))

	item, err := repo.Get("team", "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-2", item.DestinationID)
	assert.Equal(t, "run-2", item.RunID)

	counts, err := repo.CountByJob()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"team": 1}, counts)
}

func TestRepository_DeleteByJob(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.RecordMigrated(entities.MigratedItem{Job: "team", SourceID: id, DestinationID: "d-" + id}))
	}
	require.NoError(t, repo.RecordMigrated(entities.MigratedItem{Job: "projects", SourceID: "p", DestinationID: "d-p"}))

	deleted, err := repo.DeleteByJob("team")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	counts, err := repo.CountByJob()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"projects": 1}, counts)
}
