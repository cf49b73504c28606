package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/taxonomy"
)

// stubEmbedder returns {sum of the text's code points, 1, 0, 0} for each
// text, so vectors (and cosine similarity) are deterministic in tests.
type stubEmbedder struct{}

func (stubEmbedder) Name() string      { return "stub" }
func (stubEmbedder) Dimension() int    { return 4 }
func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		var h float32
		for _, c := range t {
			h += float32(c)
		}
		out[i] = []float32{h, 1, 0, 0}
	}
	return out, nil
}

func TestClassify_AssignsFragmentsToSections(t *testing.T) {
	doc := &domain.Document{DocID: "doc-1", DeclaredType: domain.DocTypeRFP, DetectedType: domain.DocTypeRFP}
	text := "La convocatoria y licitacion del presente proceso de contratacion establece el objeto del contrato. " +
		"El objeto del presente pliego es la construccion de una via. " +
		"Garantia de fiel cumplimiento del contrato por diez por ciento."

	agent := New(taxonomy.Default(), stubEmbedder{}, nil)
	fragments, assignment, err := agent.Classify(context.Background(), doc, text)
	require.NoError(t, err)
	require.NotEmpty(t, fragments)
	assert.Equal(t, doc.DocID, assignment.DocID)
	for _, f := range fragments {
		assert.NotEmpty(t, f.AssignedSection)
	}
}

func TestClassify_EmptyTextFails(t *testing.T) {
	doc := &domain.Document{DocID: "doc-1"}
	agent := New(taxonomy.Default(), stubEmbedder{}, nil)
	_, _, err := agent.Classify(context.Background(), doc, "")
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestSoftmaxAssign_LowConfidenceFallsToUnclassified(t *testing.T) {
	// Nine near-equal scores, as with the full taxonomy: each softmax
	// share is about 1/9, below MinConfidence.
	scores := map[string]float64{
		"A": 0.01, "B": 0.011, "C": 0.009, "D": 0.01, "E": 0.01,
		"F": 0.01, "G": 0.01, "H": 0.01, "I": 0.01,
	}
	section, confidence := softmaxAssign(scores)
	assert.Equal(t, domain.UnclassifiedSection, section)
	assert.Less(t, confidence, MinConfidence)
}

func TestSoftmaxAssign_ClearWinnerIsAssigned(t *testing.T) {
	scores := map[string]float64{"A": 0.95, "B": 0.01, "C": 0.01}
	section, confidence := softmaxAssign(scores)
	assert.Equal(t, "A", section)
	assert.GreaterOrEqual(t, confidence, MinConfidence)
}

func TestKeywordPreScore(t *testing.T) {
	score := keywordPreScore("el objeto del contrato es la construccion", []string{"objeto", "alcance"})
	assert.InDelta(t, 0.5, score, 1e-9)
}
