package entity

import "time"

// Document is the persisted record of one ingested tender artifact.
type Document struct {
	DocID        string `gorm:"type:varchar(128);primaryKey"`
	Path         string
	DeclaredType string `gorm:"type:varchar(32)"`
	DetectedType string `gorm:"type:varchar(32)"`
	SHA256       string `gorm:"type:varchar(64);index"`
	SizeBytes    int64
	PageCount    int
	OCRUsed      bool
	CreatedAt    time.Time
}
