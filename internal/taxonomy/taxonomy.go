// Package taxonomy loads the fixed 9-section classification table used
// by the classification, validation, and risk agents. The table is
// read once at startup; changing it at runtime requires a restart.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// SectionKey names one of the 9 closed taxonomy sections.
type SectionKey string

const (
	Convocatoria          SectionKey = "CONVOCATORIA"
	Objeto                SectionKey = "OBJETO"
	CondicionesGenerales  SectionKey = "CONDICIONES_GENERALES"
	RequisitosTecnicos    SectionKey = "REQUISITOS_TECNICOS"
	CondicionesEconomicas SectionKey = "CONDICIONES_ECONOMICAS"
	Garantias             SectionKey = "GARANTIAS"
	Plazos                SectionKey = "PLAZOS"
	Formularios           SectionKey = "FORMULARIOS"
	Experiencia           SectionKey = "EXPERIENCIA"
)

// All lists the 9 closed section keys in a stable order.
var All = []SectionKey{
	Convocatoria, Objeto, CondicionesGenerales, RequisitosTecnicos,
	CondicionesEconomicas, Garantias, Plazos, Formularios, Experiencia,
}

// Section is one row of the taxonomy table.
type Section struct {
	Key                 SectionKey `json:"key"`
	Keywords            []string   `json:"keywords"`
	Priority            int        `json:"priority"`
	Description         string     `json:"description"`
	RequirementPatterns []string   `json:"requirementPatterns"`

	compiledPatterns []*regexp.Regexp
}

// RequirementMatchers returns the compiled requirement-extraction
// regexes for this section, compiling them lazily on first use.
func (s *Section) RequirementMatchers() ([]*regexp.Regexp, error) {
	if s.compiledPatterns != nil {
		return s.compiledPatterns, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(s.RequirementPatterns))
	for _, p := range s.RequirementPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("taxonomy: section %s: invalid pattern %q: %w", s.Key, p, err)
		}
		compiled = append(compiled, re)
	}
	s.compiledPatterns = compiled
	return compiled, nil
}

// Table is the loaded taxonomy, keyed by section.
type Table struct {
	sections map[SectionKey]*Section
	ordered  []*Section
}

// Load reads the taxonomy table from a JSON file at path. If path does
// not exist, Load falls back to the built-in Default table so a fresh
// checkout can run without provisioning config/taxonomy.json first.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read %s: %w", path, err)
	}

	var rows []Section
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("taxonomy: parse %s: %w", path, err)
	}
	return newTable(rows), nil
}

func newTable(rows []Section) *Table {
	t := &Table{sections: make(map[SectionKey]*Section, len(rows))}
	for i := range rows {
		row := rows[i]
		t.sections[row.Key] = &row
		t.ordered = append(t.ordered, &row)
	}
	return t
}

// Get returns the section row for key, or nil if key is not one of the
// 9 closed sections.
func (t *Table) Get(key SectionKey) *Section {
	return t.sections[key]
}

// Sections returns all rows in table-load order.
func (t *Table) Sections() []*Section {
	return t.ordered
}

// Default returns the built-in taxonomy, grounded on the original
// validator's required-label sets for RFP and PROPOSAL document types.
func Default() *Table {
	return newTable([]Section{
		{
			Key:         Convocatoria,
			Keywords:    []string{"convocatoria", "licitacion", "invitacion", "proceso de contratacion", "concurso"},
			Priority:    1,
			Description: "Tender announcement and process identification",
			RequirementPatterns: []string{
				`(?i)fecha\s+l[ií]mite\s+de\s+(?:presentaci[oó]n|entrega)`,
				`(?i)n[uú]mero\s+de\s+(?:proceso|licitaci[oó]n)\s*[:\-]?\s*\S+`,
			},
		},
		{
			Key:         Objeto,
			Keywords:    []string{"objeto", "alcance", "descripcion del proyecto", "finalidad"},
			Priority:    1,
			Description: "Contract object and scope statement",
			RequirementPatterns: []string{
				`(?i)el\s+objeto\s+(?:del\s+presente|de\s+la)\s+[a-z]+\s+es\s+[^.]+\.`,
			},
		},
		{
			Key:         CondicionesGenerales,
			Keywords:    []string{"condiciones generales", "bases generales", "normativa aplicable", "disposiciones generales"},
			Priority:    2,
			Description: "General conditions governing the process",
			RequirementPatterns: []string{
				`(?i)(?:se\s+regir[aá]|sujeto)\s+a\s+(?:lo\s+dispuesto\s+en\s+)?[^.]+\.`,
			},
		},
		{
			Key:         RequisitosTecnicos,
			Keywords:    []string{"requisitos tecnicos", "especificaciones tecnicas", "caracteristicas tecnicas", "norma tecnica"},
			Priority:    1,
			Description: "Technical requirements and specifications",
			RequirementPatterns: []string{
				`(?i)deber[aá]\s+cumplir\s+con\s+[^.]+\.`,
				`(?i)especificaci[oó]n\s+t[eé]cnica\s+n[uú]mero\s*[:\-]?\s*\S+`,
			},
		},
		{
			Key:         CondicionesEconomicas,
			Keywords:    []string{"condiciones economicas", "presupuesto referencial", "precio", "forma de pago", "anticipo"},
			Priority:    1,
			Description: "Economic terms, budget, and payment conditions",
			RequirementPatterns: []string{
				`(?i)presupuesto\s+referencial\s*[:\-]?\s*(?:usd|\$)?\s*[\d.,]+`,
				`(?i)anticipo\s+de\s+hasta\s+(?:el\s+)?\d+\s*%`,
			},
		},
		{
			Key:         Garantias,
			Keywords:    []string{"garantia", "fiel cumplimiento", "buen uso del anticipo", "poliza"},
			Priority:    1,
			Description: "Performance and advance-payment guarantees",
			RequirementPatterns: []string{
				`(?i)garant[ií]a\s+de\s+fiel\s+cumplimiento\s+(?:del\s+contrato\s+)?(?:por|equivalente\s+a)?\s*\d+\s*%`,
			},
		},
		{
			Key:         Plazos,
			Keywords:    []string{"plazo", "cronograma", "fecha de entrega", "vigencia"},
			Priority:    1,
			Description: "Deadlines, schedules, and validity periods",
			RequirementPatterns: []string{
				`(?i)plazo\s+de\s+ejecuci[oó]n\s*[:\-]?\s*\d+\s*(?:dias|d[ií]as|meses)`,
			},
		},
		{
			Key:         Formularios,
			Keywords:    []string{"formulario", "anexo", "modelo de oferta", "declaracion jurada"},
			Priority:    2,
			Description: "Required forms, annexes, and sworn declarations",
			RequirementPatterns: []string{
				`(?i)formulario\s+n[uú]mero\s*[:\-]?\s*\S+`,
			},
		},
		{
			Key:         Experiencia,
			Keywords:    []string{"experiencia", "proyectos similares", "experiencia minima", "trayectoria"},
			Priority:    2,
			Description: "Contractor or proponent experience requirements",
			RequirementPatterns: []string{
				`(?i)experiencia\s+m[ií]nima\s+de\s+\d+\s*a[ñn]os`,
			},
		},
	})
}
