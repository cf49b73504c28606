package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/orchestrator"
)

func artifactWith(docID string, score float64, riskLevel domain.RiskLevel) *domain.AnalysisArtifact {
	return &domain.AnalysisArtifact{
		DocID:         docID,
		AnalysisLevel: domain.AnalysisLevelBasic,
		StageResults: map[string]*domain.StageResult{
			orchestrator.StageValidate: {
				Status: domain.StageSuccess,
				Data: &domain.ValidationRecord{
					DocID:        docID,
					OverallScore: score,
					Compliance:   domain.ComplianceResult{Level: domain.ComplianceHigh},
				},
			},
			orchestrator.StageRisk: {
				Status: domain.StageSuccess,
				Data:   &domain.RiskAssessment{DocID: docID, OverallLevel: riskLevel},
			},
		},
	}
}

func TestCompare_NumericRankingAndTieBreak(t *testing.T) {
	a := artifactWith("doc-b", 80, domain.RiskLow)
	b := artifactWith("doc-a", 80, domain.RiskMedium)

	cmp, err := New().Compare([]*domain.AnalysisArtifact{a, b})
	require.NoError(t, err)

	dim := cmp.Matrix.Numeric["overallScore"]
	require.NotNil(t, dim)
	assert.Equal(t, 80.0, dim.Mean)
	// tie on score: lower docId ("doc-a") ranks first
	assert.Equal(t, 1, dim.Rank["doc-a"])
	assert.Equal(t, 2, dim.Rank["doc-b"])
}

func TestCompare_MissingStageMarksUnavailableWithoutAborting(t *testing.T) {
	complete := artifactWith("doc-1", 90, domain.RiskLow)
	incomplete := &domain.AnalysisArtifact{DocID: "doc-2", StageResults: map[string]*domain.StageResult{}}

	cmp, err := New().Compare([]*domain.AnalysisArtifact{complete, incomplete})
	require.NoError(t, err)

	dim := cmp.Matrix.Numeric["overallScore"]
	assert.True(t, dim.Available["doc-1"])
	assert.False(t, dim.Available["doc-2"])
	_, hasDoc2 := dim.PerDoc["doc-2"]
	assert.False(t, hasDoc2)
}

func TestCompare_ComparisonIDIsOrderIndependent(t *testing.T) {
	a := artifactWith("doc-1", 50, domain.RiskLow)
	b := artifactWith("doc-2", 60, domain.RiskLow)

	cmp1, err := New().Compare([]*domain.AnalysisArtifact{a, b})
	require.NoError(t, err)
	cmp2, err := New().Compare([]*domain.AnalysisArtifact{b, a})
	require.NoError(t, err)

	assert.Equal(t, cmp1.ComparisonID, cmp2.ComparisonID)
}

func TestCompare_CategoricalMode(t *testing.T) {
	a := artifactWith("doc-1", 50, domain.RiskHigh)
	b := artifactWith("doc-2", 60, domain.RiskHigh)
	c := artifactWith("doc-3", 70, domain.RiskLow)

	cmp, err := New().Compare([]*domain.AnalysisArtifact{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, string(domain.RiskHigh), cmp.Matrix.Categorical["riskLevel"].Mode)
}
