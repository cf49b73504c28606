// Package ruc implements the RUC (Ecuadorian contractor-ID) validator
// agent (C8): extraction, checksum verification, optional external
// activity verification, and a blended quality score.
package ruc

import (
	"context"
	"math"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/orchestrator"
)

var candidatePattern = regexp.MustCompile(`\b\d{2}[\s\-]?\d{3}[\s\-]?\d{3}[\s\-]?\d{4}[\s\-]?\d{1}\b`)

var checksumWeights = []int{4, 3, 2, 7, 6, 5, 4, 3, 2}

// verifierRateLimit caps calls to the RUC issuer-registry adapter, since
// a single document can carry many candidate RUCs and the registry is
// an external system with its own quota.
const verifierRateLimit = 5 // requests per second

// VerificationAdapter optionally confirms a candidate RUC is active and
// returns its registered economic activity. Its absence never fails a
// record: an unconfigured adapter simply yields Verified=false.
type VerificationAdapter interface {
	Verify(ctx context.Context, normalized string) (active bool, activity string, err error)
}

// Agent extracts and scores contractor IDs found in document text.
type Agent struct {
	Verifier     VerificationAdapter
	DeclaredWork string
	limiter      *rate.Limiter
}

func New(verifier VerificationAdapter) *Agent {
	return &Agent{Verifier: verifier, limiter: rate.NewLimiter(rate.Limit(verifierRateLimit), verifierRateLimit)}
}

func (a *Agent) Name() string { return orchestrator.StageRUC }

func (a *Agent) Run(ctx context.Context, state *orchestrator.State) error {
	record, err := a.Validate(ctx, state.Doc, state.Text)
	if err != nil {
		return err
	}
	state.RUC = record
	return nil
}

func (a *Agent) Validate(ctx context.Context, doc *domain.Document, text string) (*domain.RUCRecord, error) {
	raws := dedupeCandidates(candidatePattern.FindAllString(text, -1))

	entries := make([]domain.RUCEntry, 0, len(raws))
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		normalized := normalizeDigits(raw)
		if len(normalized) != 13 {
			continue
		}
		entry := domain.RUCEntry{Raw: raw, Normalized: normalized}
		entry.ChecksumValid = checksumValid(normalized) && suffixValid(normalized)

		if a.Verifier != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			active, activity, err := a.Verifier.Verify(ctx, normalized)
			if err == nil {
				entry.Verified = active
				entry.Activity = activity
			}
		}
		entry.CompatibilityScore = compatibilityScore(entry.Activity, a.DeclaredWork)
		entries = append(entries, entry)
	}

	score := overallScore(entries)
	return &domain.RUCRecord{
		DocID: doc.DocID,
		Found: entries,
		Score: score,
		Bucket: bucketFor(score),
	}, nil
}

func dedupeCandidates(raws []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range raws {
		norm := normalizeDigits(r)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, r)
	}
	return out
}

func normalizeDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// checksumValid applies a modulus-11 weighted checksum over the first
// 9 digits (checksumWeights), checked against digit 10.
func checksumValid(normalized string) bool {
	if len(normalized) < 11 {
		return false
	}
	var sum int
	for i, w := range checksumWeights {
		d := int(normalized[i] - '0')
		sum += d * w
	}
	remainder := sum % 11
	check := 11 - remainder
	if check == 11 {
		check = 0
	}
	if check == 10 {
		return false
	}
	expected := int(normalized[9] - '0')
	return check == expected
}

// suffixValid checks the 3-digit establishment code (positions 11-13)
// against the sector-specific rule keyed by the taxpayer category at
// position 3 (sectorSuffixRules): natural-person (0-5) and
// public-sector (6) RUCs must use establishment "001"; private
// companies (9) may register more than one establishment and accept
// any non-zero code.
func suffixValid(normalized string) bool {
	suffix := normalized[10:13]
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	if expected := requiredSuffix(normalized[2]); expected != "" {
		return suffix == expected
	}
	return suffix != "000"
}

func compatibilityScore(activity, declaredWork string) float64 {
	if activity == "" || declaredWork == "" {
		return 0
	}
	if strings.Contains(strings.ToLower(activity), strings.ToLower(declaredWork)) {
		return 1
	}
	return 0
}

func overallScore(entries []domain.RUCEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		formatScore := 0.0
		if e.ChecksumValid {
			formatScore = 1
		}
		verifiedScore := 0.0
		if e.Verified {
			verifiedScore = 1
		}
		sum += 100 * (0.4*formatScore + 0.3*verifiedScore + 0.3*e.CompatibilityScore)
	}
	return math.Round(sum/float64(len(entries))*100) / 100
}

func bucketFor(score float64) domain.RUCBucket {
	switch {
	case score >= 80:
		return domain.RUCExcelente
	case score >= 60:
		return domain.RUCBueno
	default:
		return domain.RUCDeficient
	}
}
