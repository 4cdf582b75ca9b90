package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/storage"
)

const purgeBatchSize = 100

// PurgeDeletedAttachments removes the bytes of files logically deleted before
// cutoff. Records are kept and stamped with PurgedAt so they are skipped next time.
func PurgeDeletedAttachments(ctx context.Context, db *gorm.DB, store storage.Store, cutoff time.Time) (int, error) {
	var items []models.File
	err := db.WithContext(ctx).
		Where("is_deleted = ? AND purged_at IS NULL AND updated_at <= ?", true, cutoff).
		Order("id").
		Limit(purgeBatchSize).
		Find(&items).Error
	if err != nil {
		return 0, fmt.Errorf("query purgeable files: %w", err)
	}

	purged := 0
	for _, it := range items {
		if err := store.Remove(ctx, it.StoredName); err != nil {
			Sugar.Warnf("purge remove bytes failed file_id=%d stored_name=%s err=%v", it.ID, it.StoredName, err)
			continue
		}
		now := time.Now()
		if err := db.WithContext(ctx).Model(&models.File{}).Where("id = ?", it.ID).
			UpdateColumn("purged_at", now).Error; err != nil {
			Sugar.Warnf("purge stamp failed file_id=%d err=%v", it.ID, err)
			continue
		}
		purged++
	}
	return purged, nil
}

// StartAttachmentPurge runs PurgeDeletedAttachments on a cron schedule.
// An empty spec disables the purge and returns a nil scheduler.
func StartAttachmentPurge(db *gorm.DB, store storage.Store, spec string, retention time.Duration) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := PurgeDeletedAttachments(ctx, db, store, time.Now().Add(-retention))
		if err != nil {
			Sugar.Errorf("attachment purge failed: %v", err)
			return
		}
		if n > 0 {
			Sugar.Infof("attachment purge removed bytes of %d files", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
