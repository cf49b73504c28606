package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/orchestrator"
)

func TestAssemble_PopulatesTypedStageViews(t *testing.T) {
	artifact := &domain.AnalysisArtifact{
		RunID:         "run-1",
		DocID:         "doc-1",
		AnalysisLevel: domain.AnalysisLevelBasic,
		OverallStatus: domain.OverallSuccess,
		KeyFindings:   []string{"Validación: APROBADO (90.0/100)"},
		StageResults: map[string]*domain.StageResult{
			orchestrator.StageValidate: {Status: domain.StageSuccess, Data: &domain.ValidationRecord{DocID: "doc-1", OverallScore: 90}},
			orchestrator.StageRisk:     {Status: domain.StageSuccess, Data: &domain.RiskAssessment{DocID: "doc-1", OverallLevel: domain.RiskLow}},
			orchestrator.StageRUC:      {Status: domain.StageFailed, Errors: []string{"timeout"}},
		},
	}

	bundle, err := Assemble(artifact)
	require.NoError(t, err)
	assert.Equal(t, "analysis", bundle.Kind)
	require.NotNil(t, bundle.Analysis.Validation)
	assert.Equal(t, 90.0, bundle.Analysis.Validation.OverallScore)
	require.NotNil(t, bundle.Analysis.Risk)
	assert.Nil(t, bundle.Analysis.RUC, "failed stage must not surface a typed payload")
	assert.Equal(t, "failed", bundle.Analysis.Stages[orchestrator.StageRUC].Status)
}

func TestAssemble_NilArtifactErrors(t *testing.T) {
	_, err := Assemble(nil)
	assert.Error(t, err)
}

func TestAssembleComparison_SummarizesRankingAndModes(t *testing.T) {
	cmp := &domain.Comparison{
		ComparisonID:  "abc",
		DocIDs:        []string{"doc-1", "doc-2"},
		AnalysisLevel: domain.AnalysisLevelBasic,
		Matrix: domain.DiffMatrix{
			Numeric: map[string]*domain.NumericDimension{
				"overallScore": {
					Name:   "overallScore",
					PerDoc: map[string]float64{"doc-1": 95, "doc-2": 70},
					Rank:   map[string]int{"doc-1": 1, "doc-2": 2},
				},
			},
			Categorical: map[string]*domain.CategoricalDimension{
				"riskLevel": {Name: "riskLevel", Mode: string(domain.RiskLow)},
			},
		},
	}

	bundle, err := AssembleComparison(cmp)
	require.NoError(t, err)
	assert.Equal(t, "comparison", bundle.Kind)
	require.Len(t, bundle.Comparison.Summary, 2)
	assert.Contains(t, bundle.Comparison.Summary[0], "doc-1")
}

func TestToJSON_ProducesValidIndentedPayload(t *testing.T) {
	bundle, err := Assemble(&domain.AnalysisArtifact{RunID: "r", DocID: "d", StageResults: map[string]*domain.StageResult{}})
	require.NoError(t, err)
	data, err := ToJSON(bundle)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"runId\": \"r\"")
}
