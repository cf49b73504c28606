package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DocType is the declared or detected type of a tender artifact.
type DocType string

const (
	DocTypeRFP        DocType = "RFP"
	DocTypeProposal   DocType = "PROPOSAL"
	DocTypeContract   DocType = "CONTRACT"
	DocTypeSpecs      DocType = "SPECIFICATION"
	DocTypeUnknown    DocType = "UNKNOWN"
)

// AnalysisLevel controls how deep a run goes.
type AnalysisLevel string

const (
	AnalysisLevelBasic         AnalysisLevel = "basic"
	AnalysisLevelComprehensive AnalysisLevel = "comprehensive"
)

// Document is an ingested tender artifact, created once and never mutated.
type Document struct {
	DocID        string
	Path         string
	DeclaredType DocType
	DetectedType DocType
	Metadata     DocumentMetadata
	CreatedAt    time.Time
}

// DocumentMetadata carries extraction-time facts about the source artifact.
type DocumentMetadata struct {
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	SHA256           string
	PageCount        int
	TableCount       int
	OCRUsed          bool
}

// Fingerprint computes the stable docId: SHA-256 of the declared type
// prefixed to the canonicalized text. Two ingests of byte-identical
// content with the same declared type always produce the same docId.
func Fingerprint(declaredType DocType, text string) string {
	canon := canonicalizeText(text)
	h := sha256.New()
	h.Write([]byte(string(declaredType)))
	h.Write([]byte{0})
	h.Write([]byte(canon))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalizeText normalizes whitespace so that trivial re-encoding of
// the same content does not change the fingerprint.
func canonicalizeText(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}
