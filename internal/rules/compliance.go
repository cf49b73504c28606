// Package rules holds the fixed compliance rule sets used by the
// validation agent (C6), grounded on the original Python
// ComplianceValidationAgent.COMPLIANCE_RULES categories, keyed by
// document type since RFP and PROPOSAL documents check different
// rule subsets.
package rules

import (
	"regexp"

	"tenderanalysis/internal/domain"
)

// Category names one of the 5 fixed compliance rule categories.
type Category string

const (
	DocumentosObligatorios Category = "DOCUMENTOS_OBLIGATORIOS"
	RequisitosTecnicos     Category = "REQUISITOS_TECNICOS"
	RequisitosLegales      Category = "REQUISITOS_LEGALES"
	RequisitosEconomicos   Category = "REQUISITOS_ECONOMICOS"
	PlazosYCronogramas     Category = "PLAZOS_Y_CRONOGRAMAS"
)

// Rule is a single compliance predicate: a regex that must match
// somewhere in the document text for the rule to pass.
type Rule struct {
	Name     string
	Category Category
	Pattern  *regexp.Regexp
}

// Set is the ordered list of rules checked for one document type.
type Set []Rule

// Check evaluates every rule against text, returning which rules
// passed, keyed by category for the per-category pct computation C6
// needs.
func (s Set) Check(text string) (passed, checked map[Category]int, foundByRule, missingByRule []string) {
	passed = map[Category]int{}
	checked = map[Category]int{}
	for _, r := range s {
		checked[r.Category]++
		if r.Pattern.MatchString(text) {
			passed[r.Category]++
			foundByRule = append(foundByRule, r.Name)
		} else {
			missingByRule = append(missingByRule, r.Name)
		}
	}
	return
}

// ForDocType returns the rule set applicable to a declared document
// type. RFP and PROPOSAL documents get different rule subsets, as the
// original Python agent does.
func ForDocType(t domain.DocType) Set {
	switch t {
	case domain.DocTypeProposal:
		return proposalRules
	default:
		return rfpRules
	}
}

var rfpRules = Set{
	{Name: "requiere_pliego_firmado", Category: DocumentosObligatorios, Pattern: regexp.MustCompile(`(?i)pliego\s+de\s+condiciones`)},
	{Name: "requiere_anexos", Category: DocumentosObligatorios, Pattern: regexp.MustCompile(`(?i)anexo\s+[ivx\d]+`)},
	{Name: "requiere_formulario_oferta", Category: DocumentosObligatorios, Pattern: regexp.MustCompile(`(?i)formulario\s+de\s+oferta`)},

	{Name: "especificaciones_tecnicas_presentes", Category: RequisitosTecnicos, Pattern: regexp.MustCompile(`(?i)especificaci[oó]n(?:es)?\s+t[eé]cnica`)},
	{Name: "normas_tecnicas_citadas", Category: RequisitosTecnicos, Pattern: regexp.MustCompile(`(?i)norma\s+(?:tecnica|inen|iso)\s*[\d\-]*`)},

	{Name: "garantia_fiel_cumplimiento", Category: RequisitosLegales, Pattern: regexp.MustCompile(`(?i)garant[ií]a\s+de\s+fiel\s+cumplimiento`)},
	{Name: "base_legal_citada", Category: RequisitosLegales, Pattern: regexp.MustCompile(`(?i)ley\s+org[aá]nica|c[oó]digo\s+civil|reglamento`)},

	{Name: "presupuesto_referencial_presente", Category: RequisitosEconomicos, Pattern: regexp.MustCompile(`(?i)presupuesto\s+referencial`)},
	{Name: "forma_de_pago_definida", Category: RequisitosEconomicos, Pattern: regexp.MustCompile(`(?i)forma\s+de\s+pago`)},

	{Name: "plazo_ejecucion_definido", Category: PlazosYCronogramas, Pattern: regexp.MustCompile(`(?i)plazo\s+de\s+ejecuci[oó]n`)},
	{Name: "cronograma_presente", Category: PlazosYCronogramas, Pattern: regexp.MustCompile(`(?i)cronograma`)},
}

var proposalRules = Set{
	{Name: "requiere_declaracion_jurada", Category: DocumentosObligatorios, Pattern: regexp.MustCompile(`(?i)declaraci[oó]n\s+jurada`)},
	{Name: "requiere_experiencia_declarada", Category: DocumentosObligatorios, Pattern: regexp.MustCompile(`(?i)experiencia\s+(?:minima|del\s+proponente)`)},

	{Name: "propuesta_tecnica_presente", Category: RequisitosTecnicos, Pattern: regexp.MustCompile(`(?i)propuesta\s+t[eé]cnica`)},
	{Name: "metodologia_descrita", Category: RequisitosTecnicos, Pattern: regexp.MustCompile(`(?i)metodolog[ií]a\s+(?:de\s+trabajo|propuesta)`)},

	{Name: "representante_legal_identificado", Category: RequisitosLegales, Pattern: regexp.MustCompile(`(?i)representante\s+legal`)},
	{Name: "ruc_declarado", Category: RequisitosLegales, Pattern: regexp.MustCompile(`(?i)\bruc\b`)},

	{Name: "propuesta_economica_presente", Category: RequisitosEconomicos, Pattern: regexp.MustCompile(`(?i)propuesta\s+econ[oó]mica`)},
	{Name: "desglose_de_precios", Category: RequisitosEconomicos, Pattern: regexp.MustCompile(`(?i)desglose\s+de\s+precios|presupuesto\s+detallado`)},

	{Name: "plazo_de_entrega_ofrecido", Category: PlazosYCronogramas, Pattern: regexp.MustCompile(`(?i)plazo\s+de\s+entrega`)},
}
