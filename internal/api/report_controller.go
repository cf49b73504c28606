package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/dto"
	"tenderanalysis/internal/orchestrator"
	"tenderanalysis/internal/pkg/serverutils"
	"tenderanalysis/internal/report"
)

// ReportController implements POST /reports/{id}, the format-agnostic
// rendering entry point (C11). Only format=json is implemented: html
// and pdf are rejected with a clear error rather than silently
// downgraded, since rendering them is explicitly out of scope.
type ReportController struct {
	Orchestrator *orchestrator.Orchestrator
	Comparisons  *orchestrator.ComparisonStore
}

func NewReportController(o *orchestrator.Orchestrator, comparisons *orchestrator.ComparisonStore) *ReportController {
	return &ReportController{Orchestrator: o, Comparisons: comparisons}
}

func (c *ReportController) RegisterRoutes(router fiber.Router) {
	router.Post("/reports/:id", c.Render)
}

func (c *ReportController) Render(ctx *fiber.Ctx) error {
	var req dto.ReportRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.Format != "json" {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("report format %q is not implemented, only json", req.Format))
	}

	id := ctx.Params("id")

	var bundle *report.Bundle
	switch req.ReportType {
	case "comparison":
		cmp, err := c.Comparisons.Load(id)
		if err != nil {
			return fmt.Errorf("report: load comparison: %w", err)
		}
		if cmp == nil {
			return fiber.NewError(fiber.StatusNotFound, "comparison not found: "+id)
		}
		bundle, err = report.AssembleComparison(cmp)
		if err != nil {
			return fmt.Errorf("report: assemble comparison: %w", err)
		}
	default:
		level := domain.AnalysisLevel(req.AnalysisLevel)
		if level == "" {
			level = domain.AnalysisLevelBasic
		}
		runID := domain.RunID(id, level)
		artifact, err := c.Orchestrator.GetArtifact(runID)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "analysis not found: "+runID)
		}
		bundle, err = report.Assemble(artifact)
		if err != nil {
			return fmt.Errorf("report: assemble analysis: %w", err)
		}
	}

	return ctx.JSON(serverutils.SuccessResponse("report rendered", bundle))
}
