package models

import "time"

// UploadedFile records files stored in the upload directory. The gallery
// endpoint lists these records newest first.
type UploadedFile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	FilePath    string    `gorm:"size:1024;not null" json:"-"`   // filesystem path
	URL         string    `gorm:"size:1024;not null" json:"url"` // public URL like /uploads/...
	Size        int64     `gorm:"not null" json:"size"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
