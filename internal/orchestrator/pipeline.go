// Package orchestrator drives a document through the deterministic
// extraction → classification → {validation, risk, RUC} stage
// sequence, persists per-stage artifacts, and exposes status to a
// polling caller (C10). Comparison is not a stage of this sequence;
// the comparison controller runs it over finished artifacts.
package orchestrator

import (
	"context"

	"tenderanalysis/internal/domain"
)

const (
	StageExtract  = "extract"
	StageClassify = "classify"
	StageValidate = "validate"
	StageRisk     = "risk"
	StageRUC      = "ruc"
)

// Ordered is the deterministic stage sequence run for every document.
var Ordered = []string{StageExtract, StageClassify, StageValidate, StageRisk, StageRUC}

// State is the mutable working state threaded through one run. Each
// stage reads the fields it depends on and writes the fields it owns;
// no stage mutates another stage's output field.
type State struct {
	RunID string
	Doc   *domain.Document
	Level domain.AnalysisLevel

	Text       string
	Fragments  []domain.Fragment
	Assignment *domain.SectionAssignment
	Validation *domain.ValidationRecord
	Risk       *domain.RiskAssessment
	RUC        *domain.RUCRecord
}

// Stage is one pipeline step. Run must be safe to cancel cooperatively:
// long inner loops must check ctx.Err() between units of work (e.g.
// per-fragment) rather than only at entry.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *State) error
}
