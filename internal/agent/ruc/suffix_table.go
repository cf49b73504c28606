package ruc

// sectorSuffixRules is a small, illustrative sector-suffix table
// standing in for the authoritative SRI registry, which is out of
// scope to source here. Keyed on the third digit of the normalized
// RUC, which the Ecuadorian scheme uses to distinguish taxpayer
// categories: '0'-'5' are natural persons and '6' is a public-sector
// entity, both of which register their tax number against a single
// default establishment and so must use suffix "001". Private
// companies (third digit '9') may operate multiple establishments and
// are not constrained to one fixed suffix.
var sectorSuffixRules = map[byte]string{
	'0': "001",
	'1': "001",
	'2': "001",
	'3': "001",
	'4': "001",
	'5': "001",
	'6': "001",
}

// requiredSuffix returns the fixed establishment code a taxpayer
// category must use, or "" when any non-zero code is accepted.
func requiredSuffix(thirdDigit byte) string {
	return sectorSuffixRules[thirdDigit]
}
