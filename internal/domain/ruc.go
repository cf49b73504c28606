package domain

// RUCBucket is the coarse quality verdict for a contractor-ID finding.
type RUCBucket string

const (
	RUCExcelente RUCBucket = "EXCELENTE"
	RUCBueno     RUCBucket = "BUENO"
	RUCDeficient RUCBucket = "DEFICIENTE"
)

// RUCEntry is a single contractor-ID candidate found in a document.
type RUCEntry struct {
	Raw                string
	Normalized         string
	ChecksumValid      bool
	Verified           bool
	Activity           string
	CompatibilityScore float64
}

// RUCRecord is the extraction + validation outcome for all contractor
// IDs found in a document.
type RUCRecord struct {
	DocID string
	Found []RUCEntry
	Score float64
	Bucket RUCBucket
}
