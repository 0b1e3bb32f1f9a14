package waitlist

import (
	"context"
	"testing"

	"github.com/akeren/clariolane-waitlist/internal/models"
	apperrors "github.com/akeren/clariolane-waitlist/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.ModelRegistry...))
	return db
}

func countEntries(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.WaitlistEntry{}).Count(&n).Error)
	return n
}

func TestInsertEntry_Inserted(t *testing.T) {
	db := newTestDB(t)
	repo := NewWaitlistRepository(db)

	outcome := repo.InsertEntry(context.Background(), "user@example.com")

	require.Equal(t, OutcomeInserted, outcome.Kind)
	require.NotNil(t, outcome.Entry)
	assert.NotEmpty(t, outcome.Entry.ID)
	assert.False(t, outcome.Entry.CreatedAt.IsZero())
	assert.NoError(t, outcome.Err)
	assert.Equal(t, int64(1), countEntries(t, db))
}

func TestInsertEntry_DuplicateLeavesOneRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewWaitlistRepository(db)

	first := repo.InsertEntry(context.Background(), "user@example.com")
	second := repo.InsertEntry(context.Background(), "user@example.com")

	assert.Equal(t, OutcomeInserted, first.Kind)
	assert.Equal(t, OutcomeAlreadyExists, second.Kind)
	assert.Nil(t, second.Entry)
	assert.NoError(t, second.Err)
	assert.Equal(t, int64(1), countEntries(t, db))
}

func TestInsertEntry_DistinctEmails(t *testing.T) {
	db := newTestDB(t)
	repo := NewWaitlistRepository(db)

	a := repo.InsertEntry(context.Background(), "a@example.com")
	b := repo.InsertEntry(context.Background(), "b@example.com")

	assert.Equal(t, OutcomeInserted, a.Kind)
	assert.Equal(t, OutcomeInserted, b.Kind)
	assert.NotEqual(t, a.Entry.ID, b.Entry.ID)
	assert.Equal(t, int64(2), countEntries(t, db))
}

func TestInsertEntry_StoreUnavailable(t *testing.T) {
	db := newTestDB(t)
	repo := NewWaitlistRepository(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	outcome := repo.InsertEntry(context.Background(), "user@example.com")

	assert.Equal(t, OutcomeFailed, outcome.Kind)
	require.Error(t, outcome.Err)
	assert.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(outcome.Err))
}
