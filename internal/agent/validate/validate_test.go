package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/taxonomy"
)

func fullAssignment(docID string) *domain.SectionAssignment {
	sections := make(map[string]*domain.SectionStats)
	for _, key := range taxonomy.All {
		sections[string(key)] = &domain.SectionStats{SectionKey: string(key), FragIDs: []string{"f1"}}
	}
	return &domain.SectionAssignment{DocID: docID, Sections: sections, KeyRequirements: map[string][]string{}}
}

func TestValidate_HighScoreYieldsAprobado(t *testing.T) {
	doc := &domain.Document{DocID: "doc-1", DetectedType: domain.DocTypeRFP}
	text := `pliego de condiciones anexo i formulario de oferta especificacion tecnica norma inen
	garantia de fiel cumplimiento ley organica presupuesto referencial forma de pago
	plazo de ejecucion cronograma fecha limite de entrega 15 dias 30 dias 45 dias ` +
		generateFiller(3500)

	agent := New(taxonomy.Default())
	record, err := agent.Validate(doc, text, fullAssignment(doc.DocID))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, record.OverallScore, 50.0)
	assert.Equal(t, domain.ValidationAprobado, record.Level)
	assert.Equal(t, 9, record.Structural.FoundSections)
	assert.True(t, record.Structural.AdequateLength)
}

func TestValidate_MissingEverythingYieldsRechazado(t *testing.T) {
	doc := &domain.Document{DocID: "doc-2", DetectedType: domain.DocTypeRFP}
	assignment := &domain.SectionAssignment{DocID: doc.DocID, Sections: map[string]*domain.SectionStats{}, KeyRequirements: map[string][]string{}}

	agent := New(taxonomy.Default())
	record, err := agent.Validate(doc, "texto muy corto sin nada relevante", assignment)
	require.NoError(t, err)
	assert.Equal(t, domain.ValidationRechazado, record.Level)
	assert.Equal(t, 0, record.Structural.FoundSections)
	assert.NotEmpty(t, record.Recommendations)
}

func TestComplianceLevel_Buckets(t *testing.T) {
	assert.Equal(t, domain.ComplianceHigh, complianceLevel(85))
	assert.Equal(t, domain.ComplianceMedium, complianceLevel(60))
	assert.Equal(t, domain.ComplianceLow, complianceLevel(10))
}

func generateFiller(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
