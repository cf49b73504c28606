// Package api wires Fiber HTTP handlers to the orchestrator, the
// compare agent, and the report assembler. Controllers stay thin: they
// parse/validate the request, save the upload, and delegate; all
// domain logic lives in internal/orchestrator, internal/agent, and
// internal/report.
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
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"gorm.io/datatypes"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/dto"
	"tenderanalysis/internal/entity"
	"tenderanalysis/internal/orchestrator"
	"tenderanalysis/internal/pkg/logger"
	"tenderanalysis/internal/pkg/serverutils"
	"tenderanalysis/internal/report"
	"tenderanalysis/internal/repository/unitofwork"
	internalWS "tenderanalysis/internal/websocket"
)

// AnalysisController implements POST /analysis/upload and
// GET /analysis/{docId}.
type AnalysisController struct {
	Orchestrator *orchestrator.Orchestrator
	UOWFactory   unitofwork.RepositoryFactory
	Hub          *internalWS.Hub
	DataRoot     string
	Log          logger.ILogger
}

func NewAnalysisController(o *orchestrator.Orchestrator, uowFactory unitofwork.RepositoryFactory, hub *internalWS.Hub, dataRoot string, log logger.ILogger) *AnalysisController {
	return &AnalysisController{Orchestrator: o, UOWFactory: uowFactory, Hub: hub, DataRoot: dataRoot, Log: log}
}

func (c *AnalysisController) RegisterRoutes(router fiber.Router) {
	group := router.Group("/analysis")
	group.Post("/upload", c.Upload)
	group.Get("/:docId", c.Show)
	group.Get("/:docId/ws", c.Progress)
}

// Progress upgrades to a websocket and streams StageEvents for the
// run as an alternative to polling Show. Answers 501 when the
// controller was built without a hub, and 426 when the request is not
// a websocket upgrade.
func (c *AnalysisController) Progress(ctx *fiber.Ctx) error {
	if c.Hub == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "progress streaming is not enabled on this deployment")
	}
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	docID := ctx.Params("docId")
	level := domain.AnalysisLevel(ctx.Query("analysisLevel", string(domain.AnalysisLevelBasic)))
	runID := domain.RunID(docID, level)

	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(c.Hub, conn, runID)
	})(ctx)
}

// Upload saves the posted artifact, extracts it synchronously to
// derive its content-addressed docId (the SHA-256 of the declared
// type prefixed to the canonicalized text), and kicks the remaining
// pipeline stages off in the background, reusing the already-extracted
// text so the document is never parsed twice. It answers with
// {runId, docId, status: "processing"} once extraction settles, so the
// caller polls Show for completion of classification onward.
func (c *AnalysisController) Upload(ctx *fiber.Ctx) error {
	var req dto.UploadAnalysisRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form body: "+err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not open uploaded file")
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not read uploaded file")
	}
	if len(raw) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, domain.ErrEmptyDocument.Error())
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
		return fmt.Errorf("analysis upload: create upload dir: %w", err)
	}
	sum := sha256.Sum256(raw)
	tmpPath := filepath.Join(uploadDir, hex.EncodeToString(sum[:])+filepath.Ext(fileHeader.Filename))
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("analysis upload: write destination: %w", err)
	}

	docID, text, detectedType, err := c.Orchestrator.Fingerprint(ctx.UserContext(), tmpPath, declaredType)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("analysis upload: extract: %w", err)
	}
	runID := domain.RunID(docID, level)

	dstPath := filepath.Join(uploadDir, docID+filepath.Ext(fileHeader.Filename))
	if dstPath != tmpPath {
		if err := os.Rename(tmpPath, dstPath); err != nil {
			return fmt.Errorf("analysis upload: rename to canonical path: %w", err)
		}
	}

	c.persistDocument(ctx.UserContext(), docID, dstPath, declaredType, raw)

	go c.runInBackground(runID, docID, dstPath, declaredType, detectedType, text, level, req.ForceRebuild)

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("analysis accepted", dto.UploadAnalysisResponse{
		RunID:  runID,
		DocID:  docID,
		Status: "processing",
	}))
}

func (c *AnalysisController) runInBackground(runID, docID, path string, declaredType, detectedType domain.DocType, text string, level domain.AnalysisLevel, forceRebuild bool) {
	bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	artifact, err := c.Orchestrator.Run(bgCtx, runID, orchestrator.RunOptions{
		DocID:            docID,
		DocPath:          path,
		DeclaredType:     declaredType,
		Level:            level,
		ForceRebuild:     forceRebuild,
		PreExtractedText: text,
		PreDetectedType:  detectedType,
	})
	if err != nil && c.Log != nil {
		c.Log.Error("api.analysis", "run failed", map[string]interface{}{"runId": runID, "error": err.Error()})
	}
	if artifact != nil {
		c.persistRun(bgCtx, docID, level, artifact)
	}
}

// persistDocument records the ingested artifact's metadata, ignoring
// the call entirely when no database is configured (disk-only mode).
func (c *AnalysisController) persistDocument(ctx context.Context, docID, path string, declaredType domain.DocType, raw []byte) {
	if c.UOWFactory == nil {
		return
	}
	sum := sha256.Sum256(raw)
	uow := c.UOWFactory.NewUnitOfWork(ctx)
	err := uow.DocumentRepository().Create(ctx, &entity.Document{
		DocID:        docID,
		Path:         path,
		DeclaredType: string(declaredType),
		SHA256:       hex.EncodeToString(sum[:]),
		SizeBytes:    int64(len(raw)),
		CreatedAt:    time.Now(),
	})
	if err != nil && c.Log != nil {
		c.Log.Warn("api.analysis", "persist document failed", map[string]interface{}{"docId": docID, "error": err.Error()})
	}
}

// persistRun upserts the fast-status-polling projection row; a failure
// here never affects the artifact the caller sees since GetStatus and
// Show both read from the orchestrator, not from this row.
func (c *AnalysisController) persistRun(ctx context.Context, docID string, level domain.AnalysisLevel, artifact *domain.AnalysisArtifact) {
	if c.UOWFactory == nil {
		return
	}
	blob, err := json.Marshal(artifact)
	if err != nil {
		if c.Log != nil {
			c.Log.Warn("api.analysis", "marshal artifact for persistence failed", map[string]interface{}{"runId": artifact.RunID, "error": err.Error()})
		}
		return
	}
	uow := c.UOWFactory.NewUnitOfWork(ctx)
	run := &entity.Run{
		RunID:         artifact.RunID,
		DocID:         docID,
		AnalysisLevel: string(level),
		Stage:         string(orchestrator.RunDone),
		OverallStatus: string(artifact.OverallStatus),
		Artifact:      datatypes.JSON(blob),
		UpdatedAt:     time.Now(),
	}
	if err := uow.RunRepository().Upsert(ctx, run); err != nil && c.Log != nil {
		c.Log.Warn("api.analysis", "persist run failed", map[string]interface{}{"runId": artifact.RunID, "error": err.Error()})
	}
}

// Show answers GET /analysis/{docId}?analysisLevel=basic with the
// run's current progress, or the full assembled report once it has
// finished.
func (c *AnalysisController) Show(ctx *fiber.Ctx) error {
	docID := ctx.Params("docId")
	level := domain.AnalysisLevel(ctx.Query("analysisLevel", string(domain.AnalysisLevelBasic)))
	runID := domain.RunID(docID, level)

	status, err := c.Orchestrator.GetStatus(runID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "run not found: "+runID)
	}

	if status.Stage != orchestrator.RunDone && status.Stage != orchestrator.RunFailed {
		return ctx.JSON(serverutils.SuccessResponse("processing", dto.AnalysisStatusResponse{
			Status:   string(status.Stage),
			Progress: status.Progress,
		}))
	}

	artifact, err := c.Orchestrator.GetArtifact(runID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "artifact not found: "+runID)
	}
	bundle, err := report.Assemble(artifact)
	if err != nil {
		return fmt.Errorf("analysis show: assemble report: %w", err)
	}
	return ctx.JSON(serverutils.SuccessResponse("analysis complete", bundle))
}
