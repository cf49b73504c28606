// Package risk implements the risk agent (C7): indicator-pattern
// scoring blended with semantic proximity across 5 fixed, weighted
// risk categories.
package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/indicators"
	"tenderanalysis/internal/orchestrator"
	"tenderanalysis/pkg/embedding"
)

var mitigationTemplates = map[indicators.RiskCategory][]string{
	indicators.Technical:   {"Solicitar aclaración de especificaciones técnicas ambiguas.", "Exigir evidencia de tecnología probada en proyectos similares."},
	indicators.Economic:    {"Revisar el presupuesto referencial contra precios de mercado actuales.", "Solicitar desglose detallado de costos no contemplados."},
	indicators.Legal:       {"Verificar vigencia y alcance de todos los permisos requeridos.", "Revisar cláusulas ambiguas con asesoría legal."},
	indicators.Operational: {"Validar la viabilidad del cronograma con el equipo de obra.", "Confirmar disponibilidad de recursos y personal clave."},
	indicators.Supplier:    {"Solicitar referencias verificables del proveedor.", "Evaluar planes de contingencia ante proveedor único."},
}

var legalMonetaryKeywords = []string{"multa", "penalidad", "garantia", "incumplimiento", "usd", "$"}

// Agent scores the 5 fixed risk categories from indicator patterns and
// semantic proximity to category seed vectors.
type Agent struct {
	Bank     *indicators.Bank
	Embedder embedding.Provider

	seedMu   sync.Mutex
	seedVecs map[indicators.RiskCategory][]float32
}

func New(bank *indicators.Bank, embedder embedding.Provider) *Agent {
	return &Agent{Bank: bank, Embedder: embedder}
}

func (a *Agent) Name() string { return orchestrator.StageRisk }

func (a *Agent) Run(ctx context.Context, state *orchestrator.State) error {
	if len(state.Fragments) == 0 {
		return fmt.Errorf("risk: fragments required")
	}
	assessment, err := a.Assess(ctx, state.Doc, state.Fragments)
	if err != nil {
		return err
	}
	state.Risk = assessment
	return nil
}

func (a *Agent) Assess(ctx context.Context, doc *domain.Document, fragments []domain.Fragment) (*domain.RiskAssessment, error) {
	seeds, err := a.seedVectors(ctx)
	if err != nil {
		return nil, err
	}

	categoryRisks := make(map[string]*domain.CategoryRisk, len(a.Bank.Categories()))
	var weightedSum, weightSum float64

	for _, cat := range a.Bank.Categories() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cr := a.scoreCategory(cat, fragments, seeds[cat.Category])
		categoryRisks[string(cat.Category)] = cr
		weightedSum += cr.Weight * cr.Score
		weightSum += cr.Weight
	}

	total := 0.0
	if weightSum > 0 {
		total = weightedSum / weightSum
	}

	matrix := domain.RiskMatrix{}
	var critical []string
	var mitigations []string
	for name, cr := range categoryRisks {
		switch cr.Level {
		case domain.RiskLow:
			matrix.Low = append(matrix.Low, name)
		case domain.RiskMedium:
			matrix.Medium = append(matrix.Medium, name)
		default:
			matrix.High = append(matrix.High, name)
		}
		if isHighOrAbove(cr.Level) && topFragmentHasLegalOrMonetary(cr) {
			critical = append(critical, name)
		}
		mitigations = append(mitigations, filteredMitigations(indicators.RiskCategory(name), cr)...)
	}
	sort.Strings(matrix.Low)
	sort.Strings(matrix.Medium)
	sort.Strings(matrix.High)
	sort.Strings(critical)

	return &domain.RiskAssessment{
		DocID:         doc.DocID,
		CategoryRisks: categoryRisks,
		TotalScore:    total,
		OverallLevel:  bucketLevel(total),
		CriticalRisks: critical,
		Mitigations:   mitigations,
		Matrix:        matrix,
	}, nil
}

func (a *Agent) scoreCategory(cat indicators.CategoryBank, fragments []domain.Fragment, seed []float32) *domain.CategoryRisk {
	var indicatorScore float64
	var detected []string
	var mentions []string

	for term, severity := range cat.Indicators {
		occurrences := 0
		for _, f := range fragments {
			occurrences += strings.Count(strings.ToLower(f.Text), term)
		}
		if occurrences > 0 {
			indicatorScore += float64(severity) * math.Log(1+float64(occurrences))
			detected = append(detected, term)
			mentions = append(mentions, term)
		}
	}
	sort.Strings(detected)
	sort.Strings(mentions)

	semanticRisks := topSimilarFragments(fragments, seed, 5)
	var semSum float64
	for _, sr := range semanticRisks {
		semSum += sr.Similarity
	}
	semanticScore := 0.0
	if len(semanticRisks) > 0 {
		semanticScore = semSum / float64(len(semanticRisks))
	}

	score := math.Min(100, 10*indicatorScore+60*semanticScore)

	return &domain.CategoryRisk{
		Category:           string(cat.Category),
		Score:              score,
		Level:              bucketLevel(score),
		IndicatorsDetected: detected,
		Mentions:           mentions,
		SemanticRisks:      semanticRisks,
		Weight:             cat.Weight,
	}
}

func topSimilarFragments(fragments []domain.Fragment, seed []float32, k int) []domain.SemanticRisk {
	if len(seed) == 0 {
		return nil
	}
	type scored struct {
		frag domain.Fragment
		sim  float64
	}
	scoredFrags := make([]scored, 0, len(fragments))
	for _, f := range fragments {
		scoredFrags = append(scoredFrags, scored{f, cosineSimilarity(f.Vector, seed)})
	}
	sort.Slice(scoredFrags, func(i, j int) bool { return scoredFrags[i].sim > scoredFrags[j].sim })
	if len(scoredFrags) > k {
		scoredFrags = scoredFrags[:k]
	}
	out := make([]domain.SemanticRisk, len(scoredFrags))
	for i, s := range scoredFrags {
		excerpt := s.frag.Text
		if len(excerpt) > 160 {
			excerpt = excerpt[:160]
		}
		out[i] = domain.SemanticRisk{FragID: s.frag.FragID, Similarity: s.sim, Excerpt: excerpt}
	}
	return out
}

func bucketLevel(score float64) domain.RiskLevel {
	switch {
	case score < 25:
		return domain.RiskLow
	case score < 50:
		return domain.RiskMedium
	case score < 75:
		return domain.RiskHigh
	default:
		return domain.RiskVeryHigh
	}
}

func isHighOrAbove(level domain.RiskLevel) bool {
	return level == domain.RiskHigh || level == domain.RiskVeryHigh
}

func topFragmentHasLegalOrMonetary(cr *domain.CategoryRisk) bool {
	if len(cr.SemanticRisks) == 0 {
		return false
	}
	excerpt := strings.ToLower(cr.SemanticRisks[0].Excerpt)
	for _, kw := range legalMonetaryKeywords {
		if strings.Contains(excerpt, kw) {
			return true
		}
	}
	return false
}

func filteredMitigations(category indicators.RiskCategory, cr *domain.CategoryRisk) []string {
	if len(cr.IndicatorsDetected) == 0 {
		return nil
	}
	templates := mitigationTemplates[category]
	if len(cr.IndicatorsDetected) < len(templates) {
		return templates[:len(cr.IndicatorsDetected)]
	}
	return templates
}

func (a *Agent) seedVectors(ctx context.Context) (map[indicators.RiskCategory][]float32, error) {
	a.seedMu.Lock()
	defer a.seedMu.Unlock()
	if a.seedVecs != nil {
		return a.seedVecs, nil
	}

	cats := a.Bank.Categories()
	seedTexts := make([]string, len(cats))
	for i, c := range cats {
		terms := make([]string, 0, len(c.Indicators))
		for term := range c.Indicators {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		seedTexts[i] = strings.Join(terms, " ")
	}
	vectors, err := a.Embedder.Embed(ctx, seedTexts)
	if err != nil {
		return nil, fmt.Errorf("risk: embed category seeds: %w", err)
	}

	out := make(map[indicators.RiskCategory][]float32, len(cats))
	for i, c := range cats {
		out[c.Category] = vectors[i]
	}
	a.seedVecs = out
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
