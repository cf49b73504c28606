// Package classify implements the classification agent (C5): it
// chunks extracted text, embeds each fragment, assigns it to one of
// the 9 closed taxonomy sections by a keyword+semantic blend, and
// extracts key requirements per section via section-specific regexes.
package classify

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/orchestrator"
	"tenderanalysis/internal/taxonomy"
	"tenderanalysis/pkg/chunker"
	"tenderanalysis/pkg/embedding"
	"tenderanalysis/pkg/vectorstore"
)

var _ orchestrator.Stage = (*Agent)(nil)

const (
	// Alpha weights keyword score against semantic score in the
	// combined per-section score.
	Alpha = 0.4
	// Tau is the softmax temperature over the 9 section scores.
	Tau = 0.5
	// MinConfidence below which a fragment falls to "unclassified".
	MinConfidence = 0.25
)

// Agent assigns document fragments to the closed taxonomy.
type Agent struct {
	Taxonomy *taxonomy.Table
	Embedder embedding.Provider
	Store    vectorstore.Store
	Window   int
	Overlap  int

	seedMu   sync.Mutex
	seedVecs map[taxonomy.SectionKey][]float32
}

func New(tbl *taxonomy.Table, embedder embedding.Provider, store vectorstore.Store) *Agent {
	return &Agent{Taxonomy: tbl, Embedder: embedder, Store: store, Window: 1000, Overlap: 200}
}

func (a *Agent) Name() string { return orchestrator.StageClassify }

// Run implements orchestrator.Stage.
func (a *Agent) Run(ctx context.Context, state *orchestrator.State) error {
	fragments, assignment, err := a.Classify(ctx, state.Doc, state.Text)
	if err != nil {
		return err
	}
	state.Fragments = fragments
	state.Assignment = assignment
	return nil
}

// Classify chunks text, embeds fragments, assigns each to a taxonomy
// section, and returns the fragment set plus the aggregated assignment.
func (a *Agent) Classify(ctx context.Context, doc *domain.Document, text string) ([]domain.Fragment, *domain.SectionAssignment, error) {
	windows := chunker.Split(text, a.Window, a.Overlap)
	if len(windows) == 0 {
		return nil, nil, domain.ErrEmptyDocument
	}

	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = w.Text
	}
	vectors, err := a.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("classify: embed fragments: %w", err)
	}

	seeds, err := a.seedVectors(ctx)
	if err != nil {
		return nil, nil, err
	}

	fragments := make([]domain.Fragment, len(windows))
	assignment := &domain.SectionAssignment{
		DocID:           doc.DocID,
		Sections:        make(map[string]*domain.SectionStats),
		KeyRequirements: make(map[string][]string),
	}

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		frag := domain.Fragment{
			FragID:  fmt.Sprintf("%s:%d", doc.DocID, i),
			DocID:   doc.DocID,
			Ordinal: i,
			Text:    w.Text,
			Span:    domain.CharSpan{Start: w.Start, End: w.End},
			Vector:  vectors[i],
		}

		scores := a.scoreSections(frag.Text, frag.Vector, seeds)
		section, confidence := softmaxAssign(scores)
		frag.AssignedSection = section
		frag.AssignmentConfidence = confidence
		fragments[i] = frag

		stats, ok := assignment.Sections[section]
		if !ok {
			stats = &domain.SectionStats{SectionKey: section}
			assignment.Sections[section] = stats
		}
		stats.FragIDs = append(stats.FragIDs, frag.FragID)
		stats.AggregateChars += len(frag.Text)
	}

	for key, stats := range assignment.Sections {
		stats.Confidence = meanConfidence(fragments, key)
		stats.TopKeywords = topKeywords(a.Taxonomy.Get(taxonomy.SectionKey(key)), fragments, key)
		stats.CentroidVector = centroidVector(fragments, key)
	}

	if err := a.extractKeyRequirements(fragments, assignment); err != nil {
		return nil, nil, err
	}

	if a.Store != nil {
		items := make([]vectorstore.Item, len(fragments))
		for i, f := range fragments {
			items[i] = vectorstore.Item{
				ID:     f.FragID,
				Text:   f.Text,
				Vector: f.Vector,
				Metadata: map[string]any{
					"docId":   f.DocID,
					"section": f.AssignedSection,
				},
			}
		}
		if err := a.Store.Upsert(ctx, "fragments", items); err != nil {
			return nil, nil, fmt.Errorf("classify: persist fragments: %w", err)
		}
	}

	return fragments, assignment, nil
}

// seedVectors embeds each section's keyword seed corpus into a single
// centroid vector, computed once and cached for the agent's lifetime.
func (a *Agent) seedVectors(ctx context.Context) (map[taxonomy.SectionKey][]float32, error) {
	a.seedMu.Lock()
	defer a.seedMu.Unlock()
	if a.seedVecs != nil {
		return a.seedVecs, nil
	}

	sections := a.Taxonomy.Sections()
	seedTexts := make([]string, len(sections))
	for i, s := range sections {
		seedTexts[i] = strings.Join(s.Keywords, " ")
	}
	vectors, err := a.Embedder.Embed(ctx, seedTexts)
	if err != nil {
		return nil, fmt.Errorf("classify: embed section seeds: %w", err)
	}

	out := make(map[taxonomy.SectionKey][]float32, len(sections))
	for i, s := range sections {
		out[s.Key] = vectors[i]
	}
	a.seedVecs = out
	return out, nil
}

// scoreSections returns the combined score for every closed section.
func (a *Agent) scoreSections(text string, vector []float32, seeds map[taxonomy.SectionKey][]float32) map[string]float64 {
	lower := strings.ToLower(text)
	scores := make(map[string]float64, len(taxonomy.All))
	for _, key := range taxonomy.All {
		section := a.Taxonomy.Get(key)
		if section == nil {
			continue
		}
		keywordScore := keywordPreScore(lower, section.Keywords)
		semanticScore := cosineSimilarity(vector, seeds[key])
		scores[string(key)] = Alpha*keywordScore + (1-Alpha)*semanticScore
	}
	return scores
}

// keywordPreScore is the normalized count of taxonomy keywords present
// in text (fraction of the section's keywords that occur at least once).
func keywordPreScore(lowerText string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lowerText, strings.ToLower(kw)) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// softmaxAssign picks the argmax section and its softmax confidence
// over all section scores with temperature Tau. Falls back to
// "unclassified" when the max confidence is below MinConfidence.
func softmaxAssign(scores map[string]float64) (string, float64) {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic iteration order

	var maxScore = math.Inf(-1)
	for _, k := range keys {
		if scores[k] > maxScore {
			maxScore = scores[k]
		}
	}

	var sumExp float64
	exps := make(map[string]float64, len(keys))
	for _, k := range keys {
		e := math.Exp((scores[k] - maxScore) / Tau)
		exps[k] = e
		sumExp += e
	}

	bestKey := keys[0]
	bestExp := -1.0
	for _, k := range keys {
		p := exps[k] / sumExp
		if p > bestExp {
			bestExp = p
			bestKey = k
		}
	}

	if bestExp < MinConfidence {
		return domain.UnclassifiedSection, bestExp
	}
	return bestKey, bestExp
}

func centroidVector(fragments []domain.Fragment, section string) []float32 {
	var sum []float64
	var n int
	for _, f := range fragments {
		if f.AssignedSection != section || len(f.Vector) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(f.Vector))
		}
		for i, v := range f.Vector {
			sum[i] += float64(v)
		}
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]float32, len(sum))
	for i, v := range sum {
		out[i] = float32(v / float64(n))
	}
	return out
}

func meanConfidence(fragments []domain.Fragment, section string) float64 {
	var sum float64
	var n int
	for _, f := range fragments {
		if f.AssignedSection == section {
			sum += f.AssignmentConfidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func topKeywords(section *taxonomy.Section, fragments []domain.Fragment, sectionKey string) []string {
	if section == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, f := range fragments {
		if f.AssignedSection != sectionKey {
			continue
		}
		lower := strings.ToLower(f.Text)
		for _, kw := range section.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				counts[kw]++
			}
		}
	}
	type kv struct {
		kw    string
		count int
	}
	var ranked []kv
	for k, c := range counts {
		ranked = append(ranked, kv{k, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].kw < ranked[j].kw
	})
	var top []string
	for i := 0; i < len(ranked) && i < 3; i++ {
		top = append(top, ranked[i].kw)
	}
	return top
}

func (a *Agent) extractKeyRequirements(fragments []domain.Fragment, assignment *domain.SectionAssignment) error {
	seen := make(map[string]map[string]bool)
	for _, f := range fragments {
		if f.AssignedSection == domain.UnclassifiedSection {
			continue
		}
		section := a.Taxonomy.Get(taxonomy.SectionKey(f.AssignedSection))
		if section == nil {
			continue
		}
		matchers, err := section.RequirementMatchers()
		if err != nil {
			return err
		}
		dedup, ok := seen[f.AssignedSection]
		if !ok {
			dedup = make(map[string]bool)
			seen[f.AssignedSection] = dedup
		}
		for _, re := range matchers {
			for _, m := range re.FindAllString(f.Text, -1) {
				norm := strings.Join(strings.Fields(strings.ToLower(m)), " ")
				if dedup[norm] {
					continue
				}
				dedup[norm] = true
				assignment.KeyRequirements[f.AssignedSection] = append(assignment.KeyRequirements[f.AssignedSection], m)
			}
		}
	}
	return nil
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
