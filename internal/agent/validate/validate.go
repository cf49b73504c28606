// Package validate implements the validation agent (C6): three
// independent sub-validators (structural, compliance, dates) combined
// into a weighted overall score and verdict.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/orchestrator"
	"tenderanalysis/internal/rules"
	"tenderanalysis/internal/taxonomy"
)

const (
	structuralWeight = 0.40
	complianceWeight = 0.40
	datesWeight      = 0.20
)

// minCharsByType is the adequate-length floor looked up by detected
// document type.
var minCharsByType = map[domain.DocType]int{
	domain.DocTypeRFP:      3000,
	domain.DocTypeProposal: 2000,
	domain.DocTypeContract: 2500,
	domain.DocTypeSpecs:    1500,
}

var (
	absoluteDate = regexp.MustCompile(`\b\d{1,2}\s+de\s+(?:enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)\s+(?:de\s+)?\d{4}\b|\b\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}\b`)
	relativeDate = regexp.MustCompile(`(?i)\b\d+\s*(?:dias|d[ií]as|meses|a[ñn]os)\s+(?:calendario|h[aá]biles)?\s*(?:desde|posterior|despu[eé]s)\b`)
	deadlineVerb = regexp.MustCompile(`(?i)\b(?:fecha\s+l[ií]mite|plazo\s+(?:m[aá]ximo|de\s+entrega)|vencimiento|hasta\s+el\s+d[ií]a)\b`)
)

var remediation = map[string]string{
	"section_missing": "Incluir la sección %s según la taxonomía del pliego.",
	"rule_missing":    "Subsanar el requisito '%s'.",
	"dates_missing":   "Incorporar fechas límite explícitas y un cronograma coherente.",
}

// Agent scores structural completeness, rule compliance, and date
// coherence, then reduces them to a single verdict.
type Agent struct {
	Taxonomy *taxonomy.Table
}

func New(tbl *taxonomy.Table) *Agent {
	return &Agent{Taxonomy: tbl}
}

func (a *Agent) Name() string { return orchestrator.StageValidate }

func (a *Agent) Run(ctx context.Context, state *orchestrator.State) error {
	if state.Assignment == nil {
		return fmt.Errorf("validate: classification result required")
	}
	record, err := a.Validate(state.Doc, state.Text, state.Assignment)
	if err != nil {
		return err
	}
	state.Validation = record
	return nil
}

func (a *Agent) Validate(doc *domain.Document, text string, assignment *domain.SectionAssignment) (*domain.ValidationRecord, error) {
	structural := a.structural(doc, text, assignment)
	compliance := a.compliance(doc, text)
	dates := datesCheck(text)

	overall := structuralWeight*structural.CompletionPct +
		complianceWeight*compliance.OverallPct +
		datesWeight*datesScore(dates)

	record := &domain.ValidationRecord{
		DocID:        doc.DocID,
		OverallScore: overall,
		Level:        verdictLevel(overall),
		Structural:   structural,
		Compliance:   compliance,
		Dates:        dates,
	}
	record.Recommendations = recommendations(structural, compliance, dates)
	record.Summary = summary(record)
	return record, nil
}

func (a *Agent) structural(doc *domain.Document, text string, assignment *domain.SectionAssignment) domain.StructuralResult {
	required := len(taxonomy.All)
	var found int
	var missing []string
	for _, key := range taxonomy.All {
		stats, ok := assignment.Sections[string(key)]
		if ok && stats != nil && len(stats.FragIDs) > 0 {
			found++
		} else {
			missing = append(missing, string(key))
		}
	}

	minChars := minCharsByType[doc.DetectedType]
	if minChars == 0 {
		minChars = 2000
	}

	return domain.StructuralResult{
		RequiredSections: required,
		FoundSections:    found,
		Missing:          missing,
		CompletionPct:    100 * float64(found) / float64(required),
		HasDates:         absoluteDate.MatchString(text) || relativeDate.MatchString(text),
		AdequateLength:   len(text) >= minChars,
	}
}

func (a *Agent) compliance(doc *domain.Document, text string) domain.ComplianceResult {
	set := rules.ForDocType(doc.DetectedType)
	passedByCat, checkedByCat, found, missing := set.Check(text)

	byCategory := make(map[string]*domain.CategoryCompliance)
	var totalChecked, totalPassed int
	for cat, checked := range checkedByCat {
		passed := passedByCat[cat]
		totalChecked += checked
		totalPassed += passed
		pct := 0.0
		if checked > 0 {
			pct = 100 * float64(passed) / float64(checked)
		}
		byCategory[string(cat)] = &domain.CategoryCompliance{Pct: pct}
	}
	for _, name := range found {
		cat := categoryOf(set, name)
		if c, ok := byCategory[string(cat)]; ok {
			c.Found = append(c.Found, name)
		}
	}
	for _, name := range missing {
		cat := categoryOf(set, name)
		if c, ok := byCategory[string(cat)]; ok {
			c.Missing = append(c.Missing, name)
		}
	}

	overallPct := 0.0
	if totalChecked > 0 {
		overallPct = 100 * float64(totalPassed) / float64(totalChecked)
	}

	return domain.ComplianceResult{
		RulesChecked: totalChecked,
		RulesPassed:  totalPassed,
		ByCategory:   byCategory,
		OverallPct:   overallPct,
		Level:        complianceLevel(overallPct),
	}
}

func categoryOf(set rules.Set, ruleName string) rules.Category {
	for _, r := range set {
		if r.Name == ruleName {
			return r.Category
		}
	}
	return ""
}

func complianceLevel(pct float64) domain.ComplianceLevel {
	switch {
	case pct >= 80:
		return domain.ComplianceHigh
	case pct >= 50:
		return domain.ComplianceMedium
	default:
		return domain.ComplianceLow
	}
}

func datesCheck(text string) domain.DatesResult {
	absMatches := absoluteDate.FindAllString(text, -1)
	relMatches := relativeDate.FindAllString(text, -1)
	deadlineMatches := deadlineVerb.FindAllString(text, -1)

	distinct := map[string]bool{}
	for _, m := range append(append([]string{}, absMatches...), relMatches...) {
		distinct[strings.ToLower(strings.TrimSpace(m))] = true
	}

	var issues []string
	now := time.Now()
	for _, m := range absMatches {
		if parsed, ok := parseSpanishDate(m); ok && parsed.Before(now.AddDate(-1, 0, 0)) {
			issues = append(issues, fmt.Sprintf("fecha posiblemente vencida: %s", m))
		}
	}

	samples := absMatches
	if len(samples) > 5 {
		samples = samples[:5]
	}

	return domain.DatesResult{
		Count:     len(distinct),
		Deadlines: len(deadlineMatches),
		Samples:   samples,
		Issues:    issues,
	}
}

// datesScore maps the dates sub-check to a 0-100 contribution: full
// credit requires at least 3 distinct dates and at least 1 deadline
// marker, matching the "adequate dates" rule in spec.
func datesScore(d domain.DatesResult) float64 {
	adequate := d.Count >= 3 && d.Deadlines >= 1
	score := 0.0
	if adequate {
		score = 100
	} else {
		// partial credit proportional to progress toward the thresholds
		countFrac := float64(d.Count) / 3
		if countFrac > 1 {
			countFrac = 1
		}
		deadlineFrac := 0.0
		if d.Deadlines >= 1 {
			deadlineFrac = 1
		}
		score = 50 * countFrac + 50*deadlineFrac
	}
	if len(d.Issues) > 0 {
		score -= 10 * float64(len(d.Issues))
		if score < 0 {
			score = 0
		}
	}
	return score
}

func parseSpanishDate(s string) (time.Time, bool) {
	for _, layout := range []string{"02/01/2006", "2/1/2006", "02-01-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func verdictLevel(score float64) domain.ValidationLevel {
	switch {
	case score >= 80:
		return domain.ValidationAprobado
	case score >= 50:
		return domain.ValidationAprobadoConObsrv
	default:
		return domain.ValidationRechazado
	}
}

func recommendations(s domain.StructuralResult, c domain.ComplianceResult, d domain.DatesResult) []string {
	var recs []string
	for _, m := range s.Missing {
		recs = append(recs, fmt.Sprintf(remediation["section_missing"], m))
	}
	var missingRules []string
	for _, cat := range c.ByCategory {
		missingRules = append(missingRules, cat.Missing...)
	}
	sort.Strings(missingRules)
	for _, m := range missingRules {
		recs = append(recs, fmt.Sprintf(remediation["rule_missing"], m))
	}
	if d.Count < 3 || d.Deadlines < 1 {
		recs = append(recs, remediation["dates_missing"])
	}
	return recs
}

func summary(r *domain.ValidationRecord) string {
	return fmt.Sprintf("%s: score %.1f, %d/%d secciones, %.0f%% cumplimiento",
		r.Level, r.OverallScore, r.Structural.FoundSections, r.Structural.RequiredSections, r.Compliance.OverallPct)
}
