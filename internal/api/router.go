package api

import "github.com/gofiber/fiber/v2"

// Controllers bundles the adapters registered against the API group.
type Controllers struct {
	Analysis   *AnalysisController
	Comparison *ComparisonController
	Report     *ReportController
}

// RegisterRoutes wires every controller's routes under the given
// router, mirroring the flat per-domain registration the server sets
// up for each API group.
func RegisterRoutes(router fiber.Router, c Controllers) {
	c.Analysis.RegisterRoutes(router)
	c.Comparison.RegisterRoutes(router)
	c.Report.RegisterRoutes(router)
}
