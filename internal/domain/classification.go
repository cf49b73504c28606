package domain

// UnclassifiedSection is the synthetic 10th slot absorbing confidence
// mass that no real taxonomy section claimed.
const UnclassifiedSection = "unclassified"

// SectionStats aggregates classification results for one taxonomy
// section within a single document.
type SectionStats struct {
	SectionKey     string
	FragIDs        []string
	AggregateChars int
	TopKeywords    []string
	Confidence     float64
	// CentroidVector is the mean of the assigned fragments' vectors,
	// used by the comparison agent's section similarity matrix.
	CentroidVector []float32
}

// SectionAssignment is the per-document classification result: a mapping
// from sectionKey to its aggregate stats, plus the key requirements
// extracted per section via section-specific regex patterns.
type SectionAssignment struct {
	DocID           string
	Sections        map[string]*SectionStats
	KeyRequirements map[string][]string
}
