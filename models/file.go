package models

import "time"

// File records an uploaded attachment. The bytes live in the byte store under StoredName;
// IsDeleted is the logical-deletion flag and never removes the row.
type File struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	OriginalName string     `gorm:"size:255;not null;index:idx_files_names" json:"original_name"`
	StoredName   string     `gorm:"size:255;not null;uniqueIndex;index:idx_files_names" json:"stored_name"`
	Size         int64      `gorm:"not null" json:"size"`
	UploadedBy   uint       `gorm:"index;not null" json:"uploaded_by"`
	PostID       *uint      `gorm:"index" json:"post_id,omitempty"`
	IsDeleted    bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	PurgedAt     *time.Time `json:"-"` // set once the retention purge removed the bytes
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
