package models

import "time"

// Post represents a forum post created by a user.
// Deleting a post leaves its comments and its file record in place.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	NumID        int64     `gorm:"uniqueIndex;not null" json:"num_id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	AttachmentID *uint     `gorm:"index" json:"attachment_id,omitempty"`
	Views        int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	User         User      `json:"author"`
	Attachment   *File     `gorm:"foreignKey:AttachmentID" json:"attachment,omitempty"`
}
