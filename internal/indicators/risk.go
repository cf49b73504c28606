// Package indicators holds the fixed 5-category risk indicator bank
// used by the risk agent (C7): weighted categories, each with a term →
// severity table grounded on the original Python RISK_TAXONOMY.
package indicators

// RiskCategory names one of the 5 fixed risk categories.
type RiskCategory string

const (
	Technical   RiskCategory = "technical"
	Economic    RiskCategory = "economic"
	Legal       RiskCategory = "legal"
	Operational RiskCategory = "operational"
	Supplier    RiskCategory = "supplier"
)

// CategoryBank is one risk category's weight and indicator terms.
type CategoryBank struct {
	Category   RiskCategory
	Weight     float64
	Indicators map[string]int // phrase -> severity in [1,3]
}

// Bank is the complete, fixed 5-category risk indicator bank. Weights
// sum to 1.0 and are constants; neither this nor Default changes at
// runtime.
type Bank struct {
	categories []CategoryBank
}

func (b *Bank) Categories() []CategoryBank {
	return b.categories
}

// Default returns the built-in risk bank, weights and indicator
// vocabulary taken directly from the original Python
// RiskAnalyzerAgent.RISK_TAXONOMY.
func Default() *Bank {
	return &Bank{categories: []CategoryBank{
		{
			Category: Technical,
			Weight:   0.30,
			Indicators: map[string]int{
				"riesgo tecnico":             1,
				"complejidad tecnica":        2,
				"tecnologia no probada":      3,
				"falta de especificaciones":  2,
				"requisitos ambiguos":        2,
				"incompatibilidad tecnica":   3,
				"capacidad tecnica limitada": 2,
				"diseño incompleto":          2,
				"normativa tecnica obsoleta": 1,
				"integracion compleja":       2,
			},
		},
		{
			Category: Economic,
			Weight:   0.25,
			Indicators: map[string]int{
				"riesgo economico":          1,
				"presupuesto insuficiente":  3,
				"sobrecosto":                3,
				"fluctuacion de precios":    2,
				"financiamiento incierto":   2,
				"flujo de caja limitado":    2,
				"penalidad economica":       1,
				"garantia economica baja":   2,
				"anticipo insuficiente":     2,
				"costos no contemplados":    3,
			},
		},
		{
			Category: Legal,
			Weight:   0.20,
			Indicators: map[string]int{
				"riesgo legal":              1,
				"incumplimiento contractual": 3,
				"clausula ambigua":          2,
				"litigio pendiente":         3,
				"normativa no aplicable":    2,
				"responsabilidad solidaria": 2,
				"garantia legal insuficiente": 2,
				"falta de permisos":         3,
				"conflicto de interes":      2,
				"multa contractual":         1,
			},
		},
		{
			Category: Operational,
			Weight:   0.15,
			Indicators: map[string]int{
				"riesgo operativo":          1,
				"plazo ajustado":            2,
				"recursos insuficientes":    2,
				"falta de personal":         2,
				"cronograma inviable":       3,
				"logistica compleja":        2,
				"acceso restringido al sitio": 2,
				"interrupcion del servicio": 2,
				"capacidad operativa limitada": 2,
				"dependencia de terceros":   1,
			},
		},
		{
			Category: Supplier,
			Weight:   0.10,
			Indicators: map[string]int{
				"riesgo de proveedor":       1,
				"proveedor unico":           3,
				"historial deficiente":      2,
				"capacidad financiera debil": 2,
				"experiencia insuficiente":  2,
				"incumplimiento previo":     3,
				"dependencia de subcontrato": 2,
				"referencias negativas":     2,
				"rotacion de personal clave": 1,
				"capacidad de produccion limitada": 2,
			},
		},
	}}
}
