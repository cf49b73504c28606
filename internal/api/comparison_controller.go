package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"tenderanalysis/internal/agent/compare"
	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/dto"
	"tenderanalysis/internal/entity"
	"tenderanalysis/internal/orchestrator"
	"tenderanalysis/internal/pkg/logger"
	"tenderanalysis/internal/pkg/serverutils"
	"tenderanalysis/internal/report"
	"tenderanalysis/internal/repository/unitofwork"
)

// ComparisonController implements POST /comparison/upload-multiple and
// GET /comparison/{comparisonId}. It runs the N analyses that feed a
// comparison concurrently, then hands their artifacts to the compare
// agent once every run has returned without error. A run whose
// classify or later stage failed still takes part; the compare agent
// marks that document unavailable on the dimensions it lacks.
type ComparisonController struct {
	Orchestrator *orchestrator.Orchestrator
	Compare      *compare.Agent
	Store        *orchestrator.ComparisonStore
	UOWFactory   unitofwork.RepositoryFactory
	DataRoot     string
	Log          logger.ILogger

	mu     sync.Mutex
	status map[string]string // comparisonId -> "processing" | "done" | "failed"
}

func NewComparisonController(o *orchestrator.Orchestrator, cmp *compare.Agent, store *orchestrator.ComparisonStore, uowFactory unitofwork.RepositoryFactory, dataRoot string, log logger.ILogger) *ComparisonController {
	return &ComparisonController{
		Orchestrator: o,
		Compare:      cmp,
		Store:        store,
		UOWFactory:   uowFactory,
		DataRoot:     dataRoot,
		Log:          log,
		status:       make(map[string]string),
	}
}

func (c *ComparisonController) RegisterRoutes(router fiber.Router) {
	group := router.Group("/comparison")
	group.Post("/upload-multiple", c.UploadMultiple)
	group.Get("/:comparisonId", c.Show)
}

func (c *ComparisonController) UploadMultiple(ctx *fiber.Ctx) error {
	var req dto.UploadComparisonRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form body: "+err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required")
	}
	headers := form.File["files"]
	if len(headers) < 2 {
		return fiber.NewError(fiber.StatusBadRequest, "at least two files are required for a comparison")
	}

	level := domain.AnalysisLevel(req.AnalysisLevel)
	if level == "" {
		level = domain.AnalysisLevelBasic
	}
	declaredType := domain.DocType(req.DocType)
	if declaredType == "" {
		declaredType = domain.DocTypeUnknown
	}

	uploadDir := filepath.Join(c.DataRoot, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return fmt.Errorf("comparison upload: create upload dir: %w", err)
	}

	runIDs := make([]string, 0, len(headers))
	docIDs := make([]string, 0, len(headers))
	paths := make([]string, 0, len(headers))
	texts := make([]string, 0, len(headers))
	detectedTypes := make([]domain.DocType, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not open uploaded file "+fh.Filename)
		}
		raw, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read uploaded file "+fh.Filename)
		}
		if len(raw) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, domain.ErrEmptyDocument.Error())
		}

		sum := sha256.Sum256(raw)
		tmpPath := filepath.Join(uploadDir, hex.EncodeToString(sum[:])+filepath.Ext(fh.Filename))
		if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
			return fmt.Errorf("comparison upload: write destination: %w", err)
		}

		docID, text, detectedType, err := c.Orchestrator.Fingerprint(ctx.UserContext(), tmpPath, declaredType)
		if err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("comparison upload: extract %s: %w", fh.Filename, err)
		}
		dstPath := filepath.Join(uploadDir, docID+filepath.Ext(fh.Filename))
		if dstPath != tmpPath {
			if err := os.Rename(tmpPath, dstPath); err != nil {
				return fmt.Errorf("comparison upload: rename to canonical path: %w", err)
			}
		}

		docIDs = append(docIDs, docID)
		runIDs = append(runIDs, domain.RunID(docID, level))
		paths = append(paths, dstPath)
		texts = append(texts, text)
		detectedTypes = append(detectedTypes, detectedType)
	}

	comparisonID := domain.ComparisonID(docIDs)
	c.mu.Lock()
	c.status[comparisonID] = "processing"
	c.mu.Unlock()

	go c.runInBackground(comparisonID, runIDs, docIDs, paths, texts, detectedTypes, declaredType, level, req.ForceRebuild)

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("comparison accepted", dto.UploadComparisonResponse{
		ComparisonID: comparisonID,
		Status:       "processing",
	}))
}

func (c *ComparisonController) runInBackground(comparisonID string, runIDs, docIDs, paths, texts []string, detectedTypes []domain.DocType, declaredType domain.DocType, level domain.AnalysisLevel, forceRebuild bool) {
	bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	artifacts := make([]*domain.AnalysisArtifact, len(runIDs))
	g, gctx := errgroup.WithContext(bgCtx)
	for i := range runIDs {
		i := i
		g.Go(func() error {
			artifact, err := c.Orchestrator.Run(gctx, runIDs[i], orchestrator.RunOptions{
				DocID:            docIDs[i],
				DocPath:          paths[i],
				DeclaredType:     declaredType,
				Level:            level,
				ForceRebuild:     forceRebuild,
				PreExtractedText: texts[i],
				PreDetectedType:  detectedTypes[i],
			})
			if err != nil {
				return err
			}
			artifacts[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.setStatus(comparisonID, "failed")
		if c.Log != nil {
			c.Log.Error("api.comparison", "analysis run failed", map[string]interface{}{"comparisonId": comparisonID, "error": err.Error()})
		}
		return
	}

	cmp, err := c.Compare.Compare(artifacts)
	if err != nil {
		c.setStatus(comparisonID, "failed")
		if c.Log != nil {
			c.Log.Error("api.comparison", "compare failed", map[string]interface{}{"comparisonId": comparisonID, "error": err.Error()})
		}
		return
	}

	if err := c.Store.Save(cmp); err != nil && c.Log != nil {
		c.Log.Error("api.comparison", "persist comparison failed", map[string]interface{}{"comparisonId": comparisonID, "error": err.Error()})
	}
	c.persistComparison(bgCtx, cmp)
	c.setStatus(comparisonID, "done")
}

func (c *ComparisonController) persistComparison(ctx context.Context, cmp *domain.Comparison) {
	if c.UOWFactory == nil {
		return
	}
	docIDs, err := json.Marshal(cmp.DocIDs)
	if err != nil {
		return
	}
	matrix, err := json.Marshal(cmp.Matrix)
	if err != nil {
		if c.Log != nil {
			c.Log.Warn("api.comparison", "marshal matrix for persistence failed", map[string]interface{}{"comparisonId": cmp.ComparisonID, "error": err.Error()})
		}
		return
	}
	uow := c.UOWFactory.NewUnitOfWork(ctx)
	err = uow.ComparisonRepository().Create(ctx, &entity.Comparison{
		ComparisonID:  cmp.ComparisonID,
		DocIDs:        datatypes.JSON(docIDs),
		AnalysisLevel: string(cmp.AnalysisLevel),
		Matrix:        datatypes.JSON(matrix),
		CreatedAt:     time.Now(),
	})
	if err != nil && c.Log != nil {
		c.Log.Warn("api.comparison", "persist comparison row failed", map[string]interface{}{"comparisonId": cmp.ComparisonID, "error": err.Error()})
	}
}

func (c *ComparisonController) setStatus(comparisonID, status string) {
	c.mu.Lock()
	c.status[comparisonID] = status
	c.mu.Unlock()
}

func (c *ComparisonController) Show(ctx *fiber.Ctx) error {
	comparisonID := ctx.Params("comparisonId")

	c.mu.Lock()
	status, known := c.status[comparisonID]
	c.mu.Unlock()

	if known && status == "processing" {
		return ctx.JSON(serverutils.SuccessResponse("processing", dto.AnalysisStatusResponse{Status: "processing"}))
	}
	if known && status == "failed" {
		return fiber.NewError(fiber.StatusInternalServerError, "comparison failed")
	}

	cmp, err := c.Store.Load(comparisonID)
	if err != nil {
		return fmt.Errorf("comparison show: load: %w", err)
	}
	if cmp == nil {
		return fiber.NewError(fiber.StatusNotFound, "comparison not found: "+comparisonID)
	}

	bundle, err := report.AssembleComparison(cmp)
	if err != nil {
		return fmt.Errorf("comparison show: assemble report: %w", err)
	}
	return ctx.JSON(serverutils.SuccessResponse("comparison complete", bundle))
}
