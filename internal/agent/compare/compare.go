// Package compare implements the comparison agent (C9): it aligns N
// independently analyzed documents of the same analysis level along
// shared dimensions and produces a differential matrix.
package compare

import (
	"math"
	"sort"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/orchestrator"
	"tenderanalysis/internal/taxonomy"
)

// Agent aligns N analysis artifacts into a Comparison.
type Agent struct{}

func New() *Agent { return &Agent{} }

func (a *Agent) Name() string { return "compare" }

// Compare builds a Comparison over artifacts, which must all share the
// same analysisLevel. Artifacts are ordered; ranking ties break by
// earlier docId, per spec.
func (a *Agent) Compare(artifacts []*domain.AnalysisArtifact) (*domain.Comparison, error) {
	docIDs := make([]string, len(artifacts))
	for i, art := range artifacts {
		docIDs[i] = art.DocID
	}

	var level domain.AnalysisLevel
	if len(artifacts) > 0 {
		level = artifacts[0].AnalysisLevel
	}

	matrix := domain.DiffMatrix{
		Numeric:     make(map[string]*domain.NumericDimension),
		Categorical: make(map[string]*domain.CategoricalDimension),
		Sections:    make(map[string]*domain.SectionDimension),
	}

	matrix.Numeric["overallScore"] = numericDimension("overallScore", artifacts, func(art *domain.AnalysisArtifact) (float64, bool) {
		v, ok := validationOf(art)
		if !ok {
			return 0, false
		}
		return v.OverallScore, true
	})

	matrix.Categorical["complianceLevel"] = categoricalDimension("complianceLevel", artifacts, func(art *domain.AnalysisArtifact) (string, bool) {
		v, ok := validationOf(art)
		if !ok {
			return "", false
		}
		return string(v.Compliance.Level), true
	})

	matrix.Categorical["riskLevel"] = categoricalDimension("riskLevel", artifacts, func(art *domain.AnalysisArtifact) (string, bool) {
		r, ok := riskOf(art)
		if !ok {
			return "", false
		}
		return string(r.OverallLevel), true
	})

	for _, key := range taxonomy.All {
		matrix.Sections[string(key)] = sectionDimension(string(key), artifacts)
	}

	perDoc := make(map[string]*domain.AnalysisArtifact, len(artifacts))
	for _, art := range artifacts {
		perDoc[art.DocID] = art
	}

	return &domain.Comparison{
		ComparisonID:  domain.ComparisonID(docIDs),
		DocIDs:        docIDs,
		AnalysisLevel: level,
		PerDoc:        perDoc,
		Matrix:        matrix,
	}, nil
}

func validationOf(art *domain.AnalysisArtifact) (*domain.ValidationRecord, bool) {
	res, ok := art.StageResults[orchestrator.StageValidate]
	if !ok || res == nil || res.Status != domain.StageSuccess {
		return nil, false
	}
	v, ok := res.Data.(*domain.ValidationRecord)
	return v, ok
}

func riskOf(art *domain.AnalysisArtifact) (*domain.RiskAssessment, bool) {
	res, ok := art.StageResults[orchestrator.StageRisk]
	if !ok || res == nil || res.Status != domain.StageSuccess {
		return nil, false
	}
	r, ok := res.Data.(*domain.RiskAssessment)
	return r, ok
}

func assignmentOf(art *domain.AnalysisArtifact) (*domain.SectionAssignment, bool) {
	res, ok := art.StageResults[orchestrator.StageClassify]
	if !ok || res == nil || res.Status != domain.StageSuccess {
		return nil, false
	}
	s, ok := res.Data.(*domain.SectionAssignment)
	return s, ok
}

func numericDimension(name string, artifacts []*domain.AnalysisArtifact, extract func(*domain.AnalysisArtifact) (float64, bool)) *domain.NumericDimension {
	d := &domain.NumericDimension{
		Name:      name,
		PerDoc:    make(map[string]float64),
		Rank:      make(map[string]int),
		Available: make(map[string]bool),
	}
	type pair struct {
		docID string
		value float64
	}
	var values []pair
	for _, art := range artifacts {
		v, ok := extract(art)
		d.Available[art.DocID] = ok
		if !ok {
			continue
		}
		d.PerDoc[art.DocID] = v
		values = append(values, pair{art.DocID, v})
	}
	if len(values) == 0 {
		return d
	}

	sort.Slice(values, func(i, j int) bool {
		if values[i].value != values[j].value {
			return values[i].value > values[j].value
		}
		return values[i].docID < values[j].docID
	})
	for i, p := range values {
		d.Rank[p.docID] = i + 1
	}

	min, max, sum := values[0].value, values[0].value, 0.0
	for _, p := range values {
		if p.value < min {
			min = p.value
		}
		if p.value > max {
			max = p.value
		}
		sum += p.value
	}
	d.Min, d.Max, d.Mean = min, max, sum/float64(len(values))
	return d
}

func categoricalDimension(name string, artifacts []*domain.AnalysisArtifact, extract func(*domain.AnalysisArtifact) (string, bool)) *domain.CategoricalDimension {
	d := &domain.CategoricalDimension{
		Name:      name,
		PerDoc:    make(map[string]string),
		Available: make(map[string]bool),
	}
	counts := make(map[string]int)
	for _, art := range artifacts {
		v, ok := extract(art)
		d.Available[art.DocID] = ok
		if !ok {
			continue
		}
		d.PerDoc[art.DocID] = v
		counts[v]++
	}
	var mode string
	best := -1
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > best {
			best = counts[k]
			mode = k
		}
	}
	d.Mode = mode
	return d
}

func sectionDimension(sectionKey string, artifacts []*domain.AnalysisArtifact) *domain.SectionDimension {
	d := &domain.SectionDimension{
		Name:             sectionKey,
		SimilarityMatrix: make(map[string]map[string]float64),
		KeywordPresence:  make(map[string]map[string]bool),
		Available:        make(map[string]bool),
	}

	centroids := make(map[string][]float32)
	for _, art := range artifacts {
		assignment, ok := assignmentOf(art)
		d.Available[art.DocID] = ok && assignment != nil && assignment.Sections[sectionKey] != nil
		if !d.Available[art.DocID] {
			continue
		}
		stats := assignment.Sections[sectionKey]
		centroids[art.DocID] = stats.CentroidVector
		presence := make(map[string]bool)
		for _, kw := range stats.TopKeywords {
			presence[kw] = true
		}
		d.KeywordPresence[art.DocID] = presence
	}

	for docA, vecA := range centroids {
		row := make(map[string]float64, len(centroids))
		for docB, vecB := range centroids {
			row[docB] = cosineSimilarity(vecA, vecB)
		}
		d.SimilarityMatrix[docA] = row
	}
	return d
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
