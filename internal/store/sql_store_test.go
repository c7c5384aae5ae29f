package store

import (
	"path/filepath"
	"testing"
	"time"

	"unity-upload-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bans.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	s, err := NewSQLStore(db)
	require.NoError(t, err)
	return s
}

func TestSQLStore_SaveReplacesCollection(t *testing.T) {
	s := newTestSQLStore(t)

	first := []models.BanRecord{
		{PlayerID: "a", Reason: "cheating", ExpiresAt: testExpiry},
		{PlayerID: "b", Reason: "spam", ExpiresAt: testExpiry.Add(time.Minute)},
	}
	require.NoError(t, s.Save(first))

	got, err := s.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].PlayerID)
	assert.True(t, testExpiry.Equal(got[0].ExpiresAt))

	require.NoError(t, s.Save([]models.BanRecord{{PlayerID: "c", Reason: "griefing", ExpiresAt: testExpiry}}))

	got, err = s.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].PlayerID)
	assert.Equal(t, "griefing", got[0].Reason)
}

func TestSQLStore_SaveEmpty(t *testing.T) {
	s := newTestSQLStore(t)

	require.NoError(t, s.Save([]models.BanRecord{{PlayerID: "a", Reason: "r", ExpiresAt: testExpiry}}))
	require.NoError(t, s.Save(nil))

	got, err := s.Load()
	assert.NoError(t, err)
	assert.Empty(t, got)
}
