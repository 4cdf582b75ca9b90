package utils

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/storage"
)

func TestPurgeDeletedAttachments(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:purge?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.File{}))

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	mk := func(stored string, deleted bool, updated time.Time) models.File {
		_, err := store.Save(ctx, stored, strings.NewReader("b"))
		require.NoError(t, err)
		f := models.File{OriginalName: "f", StoredName: stored, Size: 1, UploadedBy: 1, IsDeleted: deleted}
		require.NoError(t, db.Create(&f).Error)
		require.NoError(t, db.Model(&f).UpdateColumn("updated_at", updated).Error)
		return f
	}
	expired := mk("expired.bin", true, old)
	recent := mk("recent.bin", true, time.Now())
	active := mk("active.bin", false, old)

	n, err := PurgeDeletedAttachments(ctx, db, store, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	exists := func(name string) bool {
		ok, err := store.Exists(ctx, name)
		require.NoError(t, err)
		return ok
	}
	assert.False(t, exists(expired.StoredName))
	assert.True(t, exists(recent.StoredName))
	assert.True(t, exists(active.StoredName))

	var reloaded models.File
	require.NoError(t, db.First(&reloaded, expired.ID).Error)
	assert.True(t, reloaded.IsDeleted)
	assert.NotNil(t, reloaded.PurgedAt)

	n, err = PurgeDeletedAttachments(ctx, db, store, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "already purged files are skipped")
}

func TestStartAttachmentPurgeSchedule(t *testing.T) {
	c, err := StartAttachmentPurge(nil, nil, "", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = StartAttachmentPurge(nil, nil, "not a cron spec", time.Hour)
	assert.Error(t, err)

	c, err = StartAttachmentPurge(nil, nil, "@every 1h", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, c)
	<-c.Stop().Done()
}
