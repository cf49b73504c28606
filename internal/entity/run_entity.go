package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Run is the queryable relational projection of one finished pipeline
// run, written by the analysis controller once Orchestrator.Run
// returns. The full AnalysisArtifact (stage-by-stage detail) lives in
// the artifact store on disk and is the source of truth;
// Orchestrator.GetStatus does not read this row.
type Run struct {
	RunID         string `gorm:"type:varchar(128);primaryKey"`
	DocID         string `gorm:"type:varchar(128);index"`
	AnalysisLevel string `gorm:"type:varchar(32)"`
	Stage         string `gorm:"type:varchar(32)"`
	OverallStatus string `gorm:"type:varchar(32)"`
	Artifact      datatypes.JSON
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
