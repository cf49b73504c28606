package ruc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderanalysis/internal/domain"
)

func TestChecksumValid_KnownGoodValue(t *testing.T) {
	// Construct a normalized candidate whose check digit satisfies the
	// modulus-11 weighted formula over digits 1-9 with digit 10 as check.
	base := "090123456"
	var sum int
	for i, w := range checksumWeights {
		sum += int(base[i]-'0') * w
	}
	remainder := sum % 11
	check := 11 - remainder
	if check >= 10 {
		t.Skip("degenerate check digit for this base, pick another base")
	}
	normalized := base + string('0'+rune(check)) + "001"
	require.Len(t, normalized, 13)
	assert.True(t, checksumValid(normalized))
}

func TestChecksumValid_RejectsBadCheckDigit(t *testing.T) {
	normalized := "0901234569999" // check digit deliberately wrong
	assert.False(t, checksumValid(normalized))
}

func TestSuffixValid_RejectsZeroSuffix(t *testing.T) {
	assert.False(t, suffixValid("0901234560000"))
}

// TestSuffixValid_SectorSuffixRule exercises the sector-keyed
// establishment rule: natural persons (third digit 0-5) and
// public-sector entities (third digit 6) must register establishment
// "001"; private companies (third digit 9) may register any
// establishment, since they can legitimately operate more than one.
func TestSuffixValid_SectorSuffixRule(t *testing.T) {
	assert.True(t, suffixValid("0901234560001"))
	assert.False(t, suffixValid("0901234560002"))
	assert.True(t, suffixValid("0961234560001"))
	assert.False(t, suffixValid("0961234560002"))
	assert.True(t, suffixValid("1791234567001"))
	assert.True(t, suffixValid("1791234567009"))
}

// TestS3Scenario_DocumentedInconsistency exercises spec.md §8's literal
// S3 values and documents why they cannot both hold as stated:
// "1791234567001" and "1791234567009" share identical digits 1-10 (so
// an identical checksum outcome) and a private-company third digit
// ('9'), a category the sector-suffix rule above deliberately does not
// gate on a fixed suffix (see suffix_table.go) — so no suffix rule
// grounded in the real Ecuadorian scheme distinguishes them. Separately,
// neither string satisfies the modulus-11 checksum at all: the weighted
// sum over digits 1-9 is 120, remainder 10, check digit 1, but digit 10
// is 7. The scenario's sample RUC illustrates the intent of the
// suffix rule, not a literal input this implementation can reproduce.
func TestS3Scenario_DocumentedInconsistency(t *testing.T) {
	assert.False(t, checksumValid("1791234567001"))
	assert.False(t, checksumValid("1791234567009"))
	assert.True(t, suffixValid("1791234567001"))
	assert.True(t, suffixValid("1791234567009"))
}

func TestValidate_NoCandidatesYieldsZeroScore(t *testing.T) {
	doc := &domain.Document{DocID: "doc-1"}
	agent := New(nil)
	record, err := agent.Validate(context.Background(), doc, "texto sin identificadores de contratista")
	require.NoError(t, err)
	assert.Empty(t, record.Found)
	assert.Equal(t, 0.0, record.Score)
	assert.Equal(t, domain.RUCDeficient, record.Bucket)
}

func TestBucketFor_Thresholds(t *testing.T) {
	assert.Equal(t, domain.RUCExcelente, bucketFor(85))
	assert.Equal(t, domain.RUCBueno, bucketFor(65))
	assert.Equal(t, domain.RUCDeficient, bucketFor(10))
}

type stubVerifier struct {
	active   bool
	activity string
}

func (s stubVerifier) Verify(ctx context.Context, normalized string) (bool, string, error) {
	return s.active, s.activity, nil
}

func TestValidate_UsesVerifierWhenConfigured(t *testing.T) {
	doc := &domain.Document{DocID: "doc-1"}
	agent := New(stubVerifier{active: true, activity: "construccion"})
	agent.DeclaredWork = "construccion"

	text := "RUC del proponente: 0901234568001"
	record, err := agent.Validate(context.Background(), doc, text)
	require.NoError(t, err)
	require.Len(t, record.Found, 1)
	assert.True(t, record.Found[0].Verified)
	assert.Equal(t, 1.0, record.Found[0].CompatibilityScore)
}
