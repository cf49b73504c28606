package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Comparison is the persisted record of one multi-document comparison
// run, keyed by the order-independent hash over its participating docIds.
type Comparison struct {
	ComparisonID  string `gorm:"type:varchar(64);primaryKey"`
	DocIDs        datatypes.JSON
	AnalysisLevel string `gorm:"type:varchar(32)"`
	Matrix        datatypes.JSON
	CreatedAt     time.Time
}
