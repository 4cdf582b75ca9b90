package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/storage"
	"github.com/cppla/threadbbs/utils"
)

// AttachmentState is the lifecycle state of a file record.
type AttachmentState int

const (
	// Active: bytes present and not logically deleted.
	Active AttachmentState = iota + 1
	// LogicallyDeleted: isDeleted is set; bytes may or may not remain.
	LogicallyDeleted
	// OrphanOnDiskMissing: not deleted, but the bytes are gone. Never stored;
	// the next read turns it into LogicallyDeleted.
	OrphanOnDiskMissing
)

func (s AttachmentState) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case LogicallyDeleted:
		return "LOGICALLY_DELETED"
	case OrphanOnDiskMissing:
		return "ORPHAN_ON_DISK_MISSING"
	default:
		return "UNKNOWN"
	}
}

// AttachmentManager ties file records to their bytes in the store.
type AttachmentManager struct {
	db        *gorm.DB
	store     storage.Store
	onDeleted []func(ctx context.Context, file *models.File)
}

// NewAttachmentManager creates an AttachmentManager.
func NewAttachmentManager(db *gorm.DB, store storage.Store) *AttachmentManager {
	return &AttachmentManager{db: db, store: store}
}

// OnDeleted registers fn to run after a file record flips to logically deleted,
// whether by an explicit request or by self-heal on read.
func (m *AttachmentManager) OnDeleted(fn func(ctx context.Context, file *models.File)) {
	m.onDeleted = append(m.onDeleted, fn)
}

// State reports the lifecycle state of file without changing it.
func (m *AttachmentManager) State(ctx context.Context, file *models.File) (AttachmentState, error) {
	if file.IsDeleted {
		return LogicallyDeleted, nil
	}
	ok, err := m.store.Exists(ctx, file.StoredName)
	if err != nil {
		return 0, err
	}
	if !ok {
		return OrphanOnDiskMissing, nil
	}
	return Active, nil
}

// RequestDelete marks file as logically deleted and persists the flag.
// Calling it on an already deleted file is a no-op.
func (m *AttachmentManager) RequestDelete(ctx context.Context, file *models.File) error {
	if file.IsDeleted {
		return nil
	}
	err := m.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ?", file.ID).
		Update("is_deleted", true).Error
	if err != nil {
		return fmt.Errorf("soft delete file %d: %w", file.ID, err)
	}
	file.IsDeleted = true
	for _, fn := range m.onDeleted {
		fn(ctx, file)
	}
	return nil
}

// OpenReadStream returns a reader over file's bytes, or nil when there is none.
//
// Missing bytes are taken as an out-of-band removal: the record is moved to
// LogicallyDeleted and (nil, nil) is returned. The record is left untouched
// while a stream is open.
func (m *AttachmentManager) OpenReadStream(ctx context.Context, file *models.File) (io.ReadCloser, error) {
	ok, err := m.store.Exists(ctx, file.StoredName)
	if err != nil {
		return nil, fmt.Errorf("check bytes of file %d: %w", file.ID, err)
	}
	if ok {
		rc, err := m.store.Open(ctx, file.StoredName)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, storage.ErrNotExist) {
			return nil, fmt.Errorf("open bytes of file %d: %w", file.ID, err)
		}
		// removed between the check and the open
	}

	if !file.IsDeleted {
		utils.Sugar.Warnf("attachment bytes missing, marking deleted file_id=%d stored_name=%s", file.ID, file.StoredName)
	}
	if err := m.RequestDelete(ctx, file); err != nil {
		return nil, err
	}
	return nil, nil
}

// DownloadStatus is the outcome of ResolveDownload.
type DownloadStatus int

const (
	DownloadOK DownloadStatus = iota + 1
	DownloadNotFound
)

// Download is a resolved download. Stream is set only for DownloadOK and
// must be closed by the caller.
type Download struct {
	Status       DownloadStatus
	Stream       io.ReadCloser
	DownloadName string
	Size         int64
}

// ResolveDownload finds the file stored as storedName with display name
// originalName and opens its bytes.
func (m *AttachmentManager) ResolveDownload(ctx context.Context, storedName, originalName string) (*Download, error) {
	var file models.File
	err := m.db.WithContext(ctx).
		Where("stored_name = ? AND original_name = ?", storedName, originalName).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Download{Status: DownloadNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find file %s: %w", storedName, err)
	}

	stream, err := m.OpenReadStream(ctx, &file)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return &Download{Status: DownloadNotFound}, nil
	}
	return &Download{
		Status:       DownloadOK,
		Stream:       stream,
		DownloadName: file.OriginalName,
		Size:         file.Size,
	}, nil
}

// ByID loads a file record.
func (m *AttachmentManager) ByID(ctx context.Context, id uint) (*models.File, error) {
	var file models.File
	err := m.db.WithContext(ctx).First(&file, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}
