// Package report assembles the JSON-serializable view external
// renderers consume (C11). It holds no formatting opinions of its own:
// HTML/PDF rendering, pagination, and styling are explicitly out of
// scope and left to callers of Bundle.
package report

import (
	"encoding/json"
	"fmt"
	"sort"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/orchestrator"
)

// Bundle is the format-agnostic report payload. MarshalJSON produces the
// wire shape; callers that need HTML/PDF feed this into their own
// renderer.
type Bundle struct {
	Kind      string         `json:"kind"` // "analysis" or "comparison"
	Analysis  *AnalysisView  `json:"analysis,omitempty"`
	Comparison *ComparisonView `json:"comparison,omitempty"`
}

// AnalysisView is the per-document report shape.
type AnalysisView struct {
	RunID           string                `json:"runId"`
	DocID           string                `json:"docId"`
	AnalysisLevel   domain.AnalysisLevel  `json:"analysisLevel"`
	OverallStatus   domain.OverallStatus  `json:"overallStatus"`
	Stages          map[string]StageView  `json:"stages"`
	KeyFindings     []string              `json:"keyFindings"`
	Recommendations []string              `json:"recommendations"`
	Validation      *domain.ValidationRecord `json:"validation,omitempty"`
	Risk            *domain.RiskAssessment   `json:"risk,omitempty"`
	RUC             *domain.RUCRecord        `json:"ruc,omitempty"`
}

// StageView is the status-only summary of one stage, omitting its raw
// Data payload since that is already surfaced via the typed fields above.
type StageView struct {
	Status string   `json:"status"`
	Errors []string `json:"errors,omitempty"`
}

// ComparisonView is the multi-document report shape.
type ComparisonView struct {
	ComparisonID  string                           `json:"comparisonId"`
	DocIDs        []string                         `json:"docIds"`
	AnalysisLevel domain.AnalysisLevel             `json:"analysisLevel"`
	Numeric       map[string]*domain.NumericDimension     `json:"numeric"`
	Categorical   map[string]*domain.CategoricalDimension `json:"categorical"`
	Sections      map[string]*domain.SectionDimension     `json:"sections"`
	Summary       []string                         `json:"summary"`
}

// Assemble builds the report view for one completed (or partially
// completed) pipeline run.
func Assemble(artifact *domain.AnalysisArtifact) (*Bundle, error) {
	if artifact == nil {
		return nil, fmt.Errorf("report: nil artifact")
	}

	view := &AnalysisView{
		RunID:           artifact.RunID,
		DocID:           artifact.DocID,
		AnalysisLevel:   artifact.AnalysisLevel,
		OverallStatus:   artifact.OverallStatus,
		Stages:          make(map[string]StageView, len(artifact.StageResults)),
		KeyFindings:     artifact.KeyFindings,
		Recommendations: artifact.Recommendations,
	}

	for name, res := range artifact.StageResults {
		if res == nil {
			continue
		}
		view.Stages[name] = StageView{Status: string(res.Status), Errors: res.Errors}
		if res.Status != domain.StageSuccess {
			continue
		}
		switch name {
		case orchestrator.StageValidate:
			if v, ok := res.Data.(*domain.ValidationRecord); ok {
				view.Validation = v
			}
		case orchestrator.StageRisk:
			if r, ok := res.Data.(*domain.RiskAssessment); ok {
				view.Risk = r
			}
		case orchestrator.StageRUC:
			if ruc, ok := res.Data.(*domain.RUCRecord); ok {
				view.RUC = ruc
			}
		}
	}

	return &Bundle{Kind: "analysis", Analysis: view}, nil
}

// AssembleComparison builds the report view for a multi-document
// comparison.
func AssembleComparison(cmp *domain.Comparison) (*Bundle, error) {
	if cmp == nil {
		return nil, fmt.Errorf("report: nil comparison")
	}

	view := &ComparisonView{
		ComparisonID:  cmp.ComparisonID,
		DocIDs:        cmp.DocIDs,
		AnalysisLevel: cmp.AnalysisLevel,
		Numeric:       cmp.Matrix.Numeric,
		Categorical:   cmp.Matrix.Categorical,
		Sections:      cmp.Matrix.Sections,
		Summary:       summarize(cmp),
	}

	return &Bundle{Kind: "comparison", Comparison: view}, nil
}

// summarize produces a short human-readable digest of the ranking and
// mode outcomes, matching the style of keyFindings in the orchestrator:
// a fixed list of sentence templates, never free-form generation.
func summarize(cmp *domain.Comparison) []string {
	var lines []string

	if dim, ok := cmp.Matrix.Numeric["overallScore"]; ok && len(dim.Rank) > 0 {
		docIDs := make([]string, 0, len(dim.Rank))
		for docID := range dim.Rank {
			docIDs = append(docIDs, docID)
		}
		sort.Slice(docIDs, func(i, j int) bool { return dim.Rank[docIDs[i]] < dim.Rank[docIDs[j]] })
		lines = append(lines, fmt.Sprintf("Mejor puntaje: %s (%.1f/100)", docIDs[0], dim.PerDoc[docIDs[0]]))
	}

	if dim, ok := cmp.Matrix.Categorical["riskLevel"]; ok && dim.Mode != "" {
		lines = append(lines, fmt.Sprintf("Nivel de riesgo más común: %s", dim.Mode))
	}

	if dim, ok := cmp.Matrix.Categorical["complianceLevel"]; ok && dim.Mode != "" {
		lines = append(lines, fmt.Sprintf("Nivel de cumplimiento más común: %s", dim.Mode))
	}

	return lines
}

// ToJSON marshals a Bundle with stable indentation for external
// renderers and debugging output.
func ToJSON(bundle *Bundle) ([]byte, error) {
	return json.MarshalIndent(bundle, "", "  ")
}
