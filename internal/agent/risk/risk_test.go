package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/indicators"
)

// stubEmbedder returns a constant vector for every category seed text,
// so tests control semantic similarity purely through the fragment
// vectors they supply directly.
type stubEmbedder struct{}

func (stubEmbedder) Name() string   { return "stub" }
func (stubEmbedder) Dimension() int { return 2 }
func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0, 1}
	}
	return out, nil
}

func TestAssess_DetectsIndicatorsAndScores(t *testing.T) {
	doc := &domain.Document{DocID: "doc-1"}
	fragments := []domain.Fragment{
		{FragID: "f1", Text: "existe un riesgo tecnico por tecnologia no probada en el diseño", Vector: []float32{0, 1}},
		{FragID: "f2", Text: "presupuesto insuficiente genera sobrecosto", Vector: []float32{0, 1}},
	}

	agent := New(indicators.Default(), stubEmbedder{})
	assessment, err := agent.Assess(context.Background(), doc, fragments)
	require.NoError(t, err)
	require.NotNil(t, assessment.CategoryRisks[string(indicators.Technical)])
	assert.NotEmpty(t, assessment.CategoryRisks[string(indicators.Technical)].IndicatorsDetected)
	assert.Greater(t, assessment.TotalScore, 0.0)
}

func TestBucketLevel_Thresholds(t *testing.T) {
	assert.Equal(t, domain.RiskLow, bucketLevel(10))
	assert.Equal(t, domain.RiskMedium, bucketLevel(30))
	assert.Equal(t, domain.RiskHigh, bucketLevel(60))
	assert.Equal(t, domain.RiskVeryHigh, bucketLevel(90))
}

func TestAssess_NoIndicatorsYieldsLowRisk(t *testing.T) {
	doc := &domain.Document{DocID: "doc-2"}
	fragments := []domain.Fragment{{FragID: "f1", Text: "texto neutro sin indicadores relevantes", Vector: []float32{1, 0}}}

	agent := New(indicators.Default(), stubEmbedder{})
	assessment, err := agent.Assess(context.Background(), doc, fragments)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, assessment.OverallLevel)
}
