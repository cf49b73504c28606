package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/pkg/logger"
)

// tracer emits one span per stage transition (extraction, classify,
// validate, risk, RUC); it exports through whatever global
// TracerProvider internal/tracer.Init installed, and is a harmless
// no-op recorder when tracing is disabled.
var tracer = otel.Tracer("tenderanalysis/orchestrator")

// Run states, per the IDLE → EXTRACTING → CHUNKING → CLASSIFYING →
// {VALIDATING, RISK, RUC} → AGGREGATING → DONE state machine. CHUNKING
// is folded into the classify stage's implementation, not a distinct
// Stage, since chunking has no independent failure mode worth
// persisting on its own. RISK and RUC have no RunState of their own:
// the three concurrent stages are reported together as VALIDATING.
type RunState string

const (
	RunIdle        RunState = "IDLE"
	RunExtracting  RunState = "EXTRACTING"
	RunClassifying RunState = "CLASSIFYING"
	RunValidating  RunState = "VALIDATING"
	RunAggregating RunState = "AGGREGATING"
	RunDone        RunState = "DONE"
	RunFailed      RunState = "FAILED"
)

// Extractor abstracts the document-extraction stage so the
// orchestrator does not depend on pkg/extractor directly.
type Extractor interface {
	Extract(ctx context.Context, path string, declaredType domain.DocType) (text string, detectedType domain.DocType, err error)
}

// StatusSnapshot is the getStatus(runId) response shape.
type StatusSnapshot struct {
	RunID         string
	Stage         RunState
	Progress      float64
	OverallStatus domain.OverallStatus
	ArtifactRefs  []string
}

type runBookkeeping struct {
	mu       sync.Mutex
	state    RunState
	progress float64
	cancel   context.CancelFunc
}

// Orchestrator drives one or more runs through the fixed stage
// sequence, persists per-stage artifacts, and answers status polls.
// Single-writer-per-runId: Run must not be called twice concurrently
// for the same runId.
type Orchestrator struct {
	Extractor  Extractor
	Classify   Stage
	Validate   Stage
	Risk       Stage
	RUC        Stage
	Store      *ArtifactStore
	Log        logger.ILogger
	// Events is an optional progress-notification sink; nil disables
	// publication without changing run behavior.
	Events       EventBus
	PoolSize     int
	StageTimeout time.Duration

	mu        sync.Mutex
	runs      map[string]*runBookkeeping
	artifacts map[string]*domain.AnalysisArtifact
	status    *statusCache
}

func New(extractor Extractor, classify, validate, risk, ruc Stage, store *ArtifactStore, log logger.ILogger) *Orchestrator {
	poolSize := runtime.NumCPU()
	if poolSize > 3 {
		poolSize = 3
	}
	if poolSize < 1 {
		poolSize = 1
	}
	return &Orchestrator{
		Extractor:    extractor,
		Classify:     classify,
		Validate:     validate,
		Risk:         risk,
		RUC:          ruc,
		Store:        store,
		Log:          log,
		PoolSize:     poolSize,
		StageTimeout: 30 * time.Second,
		runs:         make(map[string]*runBookkeeping),
		artifacts:    make(map[string]*domain.AnalysisArtifact),
		status:       newStatusCache(),
	}
}

// RunOptions configures a single pipeline invocation.
type RunOptions struct {
	// DocID is the content-addressed fingerprint the caller derived via
	// Fingerprint before invoking Run (needed up front since the
	// caller must echo docId in its immediate upload response, ahead
	// of the run this struct kicks off).
	DocID        string
	DocPath      string
	DeclaredType domain.DocType
	Level        domain.AnalysisLevel
	ForceRebuild bool

	// PreExtractedText/PreDetectedType let a caller that already ran
	// extraction to compute DocID skip a second, redundant extraction
	// of the same document.
	PreExtractedText string
	PreDetectedType  domain.DocType
}

// Fingerprint extracts the document at path and derives its
// content-addressed docId: the SHA-256 of the declared type prefixed
// to the canonicalized extracted text (domain.Fingerprint). Callers
// that need docId before they can respond to an inbound request (the
// upload handlers) call this first, then pass its text/detectedType
// back into Run via RunOptions.PreExtractedText/PreDetectedType so
// extraction never runs twice for the same document.
func (o *Orchestrator) Fingerprint(ctx context.Context, path string, declaredType domain.DocType) (docID, text string, detectedType domain.DocType, err error) {
	text, detectedType, err = o.Extractor.Extract(ctx, path, declaredType)
	if err != nil {
		return "", "", "", err
	}
	return domain.Fingerprint(declaredType, text), text, detectedType, nil
}

// Run executes the full pipeline for one document and returns its
// artifact once the run has ended; GetStatus reports progress meanwhile.
// It blocks the caller's goroutine, so callers that want async
// behavior should invoke Run in their own goroutine (the HTTP layer
// does this; the CLI adapter calls it synchronously).
func (o *Orchestrator) Run(ctx context.Context, runID string, opts RunOptions) (*domain.AnalysisArtifact, error) {
	if !opts.ForceRebuild {
		if cached := o.cachedArtifact(runID); cached != nil && cached.OverallStatus == domain.OverallSuccess {
			return cached, nil
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	book := &runBookkeeping{state: RunIdle, cancel: cancel}
	o.mu.Lock()
	o.runs[runID] = book
	o.mu.Unlock()

	artifact := &domain.AnalysisArtifact{
		RunID:         runID,
		AnalysisLevel: opts.Level,
		StageResults:  make(map[string]*domain.StageResult),
		CreatedAt:     time.Now(),
	}

	setState := func(s RunState) {
		book.mu.Lock()
		book.state = s
		book.mu.Unlock()
		o.status.put(runID, &StatusSnapshot{RunID: runID, Stage: s, Progress: stageProgress(s), OverallStatus: artifact.OverallStatus})
		o.publishStage(runID, s)
	}

	setState(RunExtracting)
	text, detectedType := opts.PreExtractedText, opts.PreDetectedType
	if text == "" {
		extractCtx, extractSpan := tracer.Start(runCtx, "stage.extract",
			trace.WithAttributes(attribute.String("runId", runID)))
		var err error
		text, detectedType, err = o.Extractor.Extract(extractCtx, opts.DocPath, opts.DeclaredType)
		if err != nil {
			extractSpan.SetStatus(codes.Error, err.Error())
			extractSpan.End()
			artifact.OverallStatus = domain.OverallFailed
			o.recordArtifact(runID, artifact)
			setState(RunFailed)
			return artifact, fmt.Errorf("orchestrator: extraction: %w", err)
		}
		extractSpan.End()
	}

	docID := opts.DocID
	if docID == "" {
		docID = domain.Fingerprint(opts.DeclaredType, text)
	}
	doc := &domain.Document{
		DocID:        docID,
		Path:         opts.DocPath,
		DeclaredType: opts.DeclaredType,
		DetectedType: detectedType,
		CreatedAt:    time.Now(),
	}
	artifact.DocID = doc.DocID

	state := &State{RunID: runID, Doc: doc, Level: opts.Level, Text: text}

	setState(RunClassifying)
	if err := o.runStage(runCtx, o.Classify, state, artifact); err != nil {
		artifact.OverallStatus = domain.OverallFailed
		o.recordArtifact(runID, artifact)
		o.persist(artifact)
		setState(RunFailed)
		return artifact, nil
	}

	setState(RunValidating)
	o.runParallelStages(runCtx, state, artifact)

	setState(RunAggregating)
	artifact.OverallStatus = aggregateStatus(artifact)
	artifact.KeyFindings = keyFindings(artifact)
	artifact.Recommendations = recommendations(artifact)

	setState(RunDone)
	o.recordArtifact(runID, artifact)
	o.persist(artifact)
	return artifact, nil
}

// runStage executes a single stage within its configured timeout,
// recording success/failure into the artifact atomically.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, state *State, artifact *domain.AnalysisArtifact) error {
	spanCtx, span := tracer.Start(ctx, "stage."+stage.Name(),
		trace.WithAttributes(attribute.String("runId", artifact.RunID)))
	defer span.End()

	started := time.Now()
	stageCtx, cancel := context.WithTimeout(spanCtx, o.timeoutFor(stage.Name()))
	defer cancel()

	err := stage.Run(stageCtx, state)
	result := &domain.StageResult{StartedAt: started, EndedAt: time.Now()}

	switch {
	case err == nil:
		result.Status = domain.StageSuccess
		result.Data = dataFor(stage.Name(), state)
	case stageCtx.Err() != nil:
		result.Status = domain.StageFailed
		result.Errors = []string{domain.ErrStageTimeout.Error()}
	default:
		result.Status = domain.StageFailed
		result.Errors = []string{err.Error()}
	}
	span.SetAttributes(attribute.String("status", string(result.Status)))

	o.mu.Lock()
	artifact.StageResults[stage.Name()] = result
	o.persist(artifact)
	o.mu.Unlock()

	if result.Status != domain.StageSuccess {
		span.SetStatus(codes.Error, string(result.Status))
		if o.Log != nil {
			o.Log.Warn("orchestrator", "stage failed", map[string]interface{}{"stage": stage.Name(), "runId": artifact.RunID})
		}
		return err
	}
	return nil
}

// runParallelStages runs VALIDATING, RISK, and RUC concurrently on a
// bounded worker pool, per spec's concurrency rules: each runs
// independently of the others' success or failure.
func (o *Orchestrator) runParallelStages(ctx context.Context, state *State, artifact *domain.AnalysisArtifact) {
	sem := make(chan struct{}, o.PoolSize)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	stages := []Stage{o.Validate, o.Risk, o.RUC}
	for _, stage := range stages {
		stage := stage
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			mu.Lock()
			localState := *state // shallow copy: each stage reads shared fields, writes its own
			mu.Unlock()
			_ = o.runStage(gctx, stage, &localState, artifact)
			mu.Lock()
			mergeBack(state, &localState, stage.Name())
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

// mergeBack copies the one field a given stage owns from a
// goroutine-local state copy back into the shared state.
func mergeBack(dst, src *State, stageName string) {
	switch stageName {
	case StageValidate:
		dst.Validation = src.Validation
	case StageRisk:
		dst.Risk = src.Risk
	case StageRUC:
		dst.RUC = src.RUC
	}
}

func dataFor(stageName string, state *State) any {
	switch stageName {
	case StageClassify:
		return state.Assignment
	case StageValidate:
		return state.Validation
	case StageRisk:
		return state.Risk
	case StageRUC:
		return state.RUC
	default:
		return nil
	}
}

func (o *Orchestrator) timeoutFor(stageName string) time.Duration {
	if o.StageTimeout > 0 {
		return o.StageTimeout
	}
	return 30 * time.Second
}

func aggregateStatus(artifact *domain.AnalysisArtifact) domain.OverallStatus {
	classify, ok := artifact.StageResults[StageClassify]
	if !ok || classify.Status != domain.StageSuccess {
		return domain.OverallFailed
	}
	allSucceeded := true
	anySucceeded := false
	for _, name := range []string{StageValidate, StageRisk, StageRUC} {
		res, ok := artifact.StageResults[name]
		if ok && res.Status == domain.StageSuccess {
			anySucceeded = true
		} else {
			allSucceeded = false
		}
	}
	if allSucceeded {
		return domain.OverallSuccess
	}
	if anySucceeded {
		return domain.OverallPartialSuccess
	}
	return domain.OverallFailed
}

// keyFindings and recommendations are synthesized from a rule table
// keyed on (stageName, severity, category), matching spec's
// no-free-form-generation requirement.
func keyFindings(artifact *domain.AnalysisArtifact) []string {
	var findings []string
	if v, ok := artifact.StageResults[StageValidate]; ok && v.Status == domain.StageSuccess {
		if rec, ok := v.Data.(*domain.ValidationRecord); ok {
			findings = append(findings, fmt.Sprintf("Validación: %s (%.1f/100)", rec.Level, rec.OverallScore))
		}
	}
	if r, ok := artifact.StageResults[StageRisk]; ok && r.Status == domain.StageSuccess {
		if risk, ok := r.Data.(*domain.RiskAssessment); ok {
			findings = append(findings, fmt.Sprintf("Riesgo global: %s (%.1f/100)", risk.OverallLevel, risk.TotalScore))
			for _, c := range risk.CriticalRisks {
				findings = append(findings, fmt.Sprintf("Riesgo crítico detectado en categoría %s", c))
			}
		}
	}
	if ruc, ok := artifact.StageResults[StageRUC]; ok && ruc.Status == domain.StageSuccess {
		if rec, ok := ruc.Data.(*domain.RUCRecord); ok {
			findings = append(findings, fmt.Sprintf("RUC: %d identificadores encontrados, calidad %s", len(rec.Found), rec.Bucket))
		}
	}
	return findings
}

func recommendations(artifact *domain.AnalysisArtifact) []string {
	var recs []string
	if v, ok := artifact.StageResults[StageValidate]; ok && v.Status == domain.StageSuccess {
		if rec, ok := v.Data.(*domain.ValidationRecord); ok {
			recs = append(recs, rec.Recommendations...)
		}
	}
	if r, ok := artifact.StageResults[StageRisk]; ok && r.Status == domain.StageSuccess {
		if risk, ok := r.Data.(*domain.RiskAssessment); ok {
			recs = append(recs, risk.Mitigations...)
		}
	}
	return recs
}

func (o *Orchestrator) recordArtifact(runID string, artifact *domain.AnalysisArtifact) {
	o.mu.Lock()
	o.artifacts[runID] = artifact
	o.mu.Unlock()
}

func (o *Orchestrator) cachedArtifact(runID string) *domain.AnalysisArtifact {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.artifacts[runID]
}

// GetArtifact returns a run's artifact, preferring the in-memory copy
// (which carries stage Data as typed domain structs) and falling back
// to the on-disk store (where Data decodes generically) for runs from a
// prior process.
func (o *Orchestrator) GetArtifact(runID string) (*domain.AnalysisArtifact, error) {
	if cached := o.cachedArtifact(runID); cached != nil {
		return cached, nil
	}
	if o.Store == nil {
		return nil, fmt.Errorf("orchestrator: unknown run %s", runID)
	}
	artifact, err := o.Store.Load(runID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, fmt.Errorf("orchestrator: unknown run %s", runID)
	}
	return artifact, nil
}

func (o *Orchestrator) persist(artifact *domain.AnalysisArtifact) {
	if o.Store == nil {
		return
	}
	if err := o.Store.Save(artifact); err != nil && o.Log != nil {
		o.Log.Error("orchestrator", "failed to persist artifact", map[string]interface{}{"runId": artifact.RunID, "error": err.Error()})
	}
}

// GetStatus answers a polling caller with the run's current stage,
// approximate progress, and overall status.
func (o *Orchestrator) GetStatus(runID string) (*StatusSnapshot, error) {
	if snap, ok := o.status.get(runID); ok {
		return snap, nil
	}

	o.mu.Lock()
	book, ok := o.runs[runID]
	artifact := o.artifacts[runID]
	o.mu.Unlock()

	if !ok && artifact == nil {
		if o.Store != nil {
			loaded, err := o.Store.Load(runID)
			if err != nil {
				return nil, err
			}
			if loaded != nil {
				return &StatusSnapshot{RunID: runID, Stage: RunDone, Progress: 1, OverallStatus: loaded.OverallStatus}, nil
			}
		}
		return nil, fmt.Errorf("orchestrator: unknown run %s", runID)
	}

	snapshot := &StatusSnapshot{RunID: runID}
	if book != nil {
		book.mu.Lock()
		snapshot.Stage = book.state
		snapshot.Progress = stageProgress(book.state)
		book.mu.Unlock()
	}
	if artifact != nil {
		snapshot.OverallStatus = artifact.OverallStatus
		for name := range artifact.StageResults {
			snapshot.ArtifactRefs = append(snapshot.ArtifactRefs, name)
		}
	}
	return snapshot, nil
}

func stageProgress(state RunState) float64 {
	order := []RunState{RunIdle, RunExtracting, RunClassifying, RunValidating, RunAggregating, RunDone}
	for i, s := range order {
		if s == state {
			return float64(i) / float64(len(order)-1)
		}
	}
	return 0
}

// Cancel cooperatively cancels an in-progress run.
func (o *Orchestrator) Cancel(runID string) {
	o.mu.Lock()
	book, ok := o.runs[runID]
	o.mu.Unlock()
	if ok && book.cancel != nil {
		book.cancel()
	}
}
