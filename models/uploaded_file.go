package models

import "time"

// UploadedFile is the audit record for an asset stored by the upload
// pipeline. The file on disk is authoritative; rows whose files have
// disappeared are reaped by the background sweeper.
type UploadedFile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	StorageName string    `gorm:"size:64;uniqueIndex;not null" json:"storage_name"`
	FilePath    string    `gorm:"size:1024;not null" json:"-"` // absolute filesystem path
	URL         string    `gorm:"size:1024;not null" json:"url"`
	Format      string    `gorm:"size:8" json:"format"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
