package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderanalysis/internal/domain"
)

type fakeExtractor struct {
	text         string
	detectedType domain.DocType
	err          error
}

func (f *fakeExtractor) Extract(ctx context.Context, path string, declaredType domain.DocType) (string, domain.DocType, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.text, f.detectedType, nil
}

// fakeStage lets each test script a stage's outcome without pulling in
// the real classify/validate/risk/ruc agents.
type fakeStage struct {
	name    string
	err     error
	delay   time.Duration
	apply   func(*State)
}

func (s *fakeStage) Name() string { return s.name }

func (s *fakeStage) Run(ctx context.Context, state *State) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	if s.apply != nil {
		s.apply(state)
	}
	return nil
}

func newTestOrchestrator(classify, validate, risk, ruc Stage, extractor Extractor) *Orchestrator {
	return New(extractor, classify, validate, risk, ruc, nil, nil)
}

func TestRun_AllStagesSucceed_OverallSuccess(t *testing.T) {
	classify := &fakeStage{name: StageClassify, apply: func(s *State) {
		s.Assignment = &domain.SectionAssignment{DocID: s.RunID}
	}}
	validate := &fakeStage{name: StageValidate, apply: func(s *State) {
		s.Validation = &domain.ValidationRecord{DocID: s.RunID, OverallScore: 90, Level: domain.ValidationAprobado}
	}}
	risk := &fakeStage{name: StageRisk, apply: func(s *State) {
		s.Risk = &domain.RiskAssessment{DocID: s.RunID, OverallLevel: domain.RiskLow}
	}}
	ruc := &fakeStage{name: StageRUC, apply: func(s *State) {
		s.RUC = &domain.RUCRecord{DocID: s.RunID, Bucket: domain.RUCExcelente}
	}}

	o := newTestOrchestrator(classify, validate, risk, ruc, &fakeExtractor{text: "contenido del pliego"})
	artifact, err := o.Run(context.Background(), "run-1", RunOptions{Level: domain.AnalysisLevelBasic})
	require.NoError(t, err)
	assert.Equal(t, domain.OverallSuccess, artifact.OverallStatus)
	assert.Equal(t, domain.StageSuccess, artifact.StageResults[StageValidate].Status)
	assert.Equal(t, domain.StageSuccess, artifact.StageResults[StageRisk].Status)
	assert.Equal(t, domain.StageSuccess, artifact.StageResults[StageRUC].Status)
	assert.NotEmpty(t, artifact.KeyFindings)
}

func TestRun_ClassifyFails_OverallFailed(t *testing.T) {
	classify := &fakeStage{name: StageClassify, err: errors.New("boom")}
	validate := &fakeStage{name: StageValidate}
	risk := &fakeStage{name: StageRisk}
	ruc := &fakeStage{name: StageRUC}

	o := newTestOrchestrator(classify, validate, risk, ruc, &fakeExtractor{text: "texto"})
	artifact, err := o.Run(context.Background(), "run-2", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.OverallFailed, artifact.OverallStatus)
	_, ranValidate := artifact.StageResults[StageValidate]
	assert.False(t, ranValidate, "parallel stages must not run once classify fails")
}

func TestRun_ExtractionFailure_ReturnsError(t *testing.T) {
	classify := &fakeStage{name: StageClassify}
	o := newTestOrchestrator(classify, &fakeStage{name: StageValidate}, &fakeStage{name: StageRisk}, &fakeStage{name: StageRUC}, &fakeExtractor{err: errors.New("cannot read file")})
	artifact, err := o.Run(context.Background(), "run-3", RunOptions{})
	require.Error(t, err)
	assert.Equal(t, domain.OverallFailed, artifact.OverallStatus)
}

func TestRun_OneParallelStageFails_PartialSuccess(t *testing.T) {
	classify := &fakeStage{name: StageClassify, apply: func(s *State) { s.Assignment = &domain.SectionAssignment{DocID: s.RunID} }}
	validate := &fakeStage{name: StageValidate, apply: func(s *State) { s.Validation = &domain.ValidationRecord{DocID: s.RunID} }}
	risk := &fakeStage{name: StageRisk, err: errors.New("embedding service unavailable")}
	ruc := &fakeStage{name: StageRUC, apply: func(s *State) { s.RUC = &domain.RUCRecord{DocID: s.RunID} }}

	o := newTestOrchestrator(classify, validate, risk, ruc, &fakeExtractor{text: "texto"})
	artifact, err := o.Run(context.Background(), "run-4", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.OverallPartialSuccess, artifact.OverallStatus)
	assert.Equal(t, domain.StageFailed, artifact.StageResults[StageRisk].Status)
}

func TestRun_AllParallelStagesFail_OverallFailed(t *testing.T) {
	classify := &fakeStage{name: StageClassify, apply: func(s *State) { s.Assignment = &domain.SectionAssignment{DocID: s.RunID} }}
	validate := &fakeStage{name: StageValidate, err: errors.New("x")}
	risk := &fakeStage{name: StageRisk, err: errors.New("y")}
	ruc := &fakeStage{name: StageRUC, err: errors.New("z")}

	o := newTestOrchestrator(classify, validate, risk, ruc, &fakeExtractor{text: "texto"})
	artifact, err := o.Run(context.Background(), "run-5", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.OverallFailed, artifact.OverallStatus)
}

func TestRun_CachedSuccessfulArtifactIsReusedWithoutForceRebuild(t *testing.T) {
	var extractCalls int
	extractor := &fakeExtractor{text: "texto"}
	classify := &fakeStage{name: StageClassify, apply: func(s *State) { s.Assignment = &domain.SectionAssignment{DocID: s.RunID} }}
	validate := &fakeStage{name: StageValidate, apply: func(s *State) { s.Validation = &domain.ValidationRecord{DocID: s.RunID} }}
	risk := &fakeStage{name: StageRisk, apply: func(s *State) { s.Risk = &domain.RiskAssessment{DocID: s.RunID} }}
	ruc := &fakeStage{name: StageRUC, apply: func(s *State) { s.RUC = &domain.RUCRecord{DocID: s.RunID} }}

	o := newTestOrchestrator(classify, validate, risk, ruc, extractor)
	first, err := o.Run(context.Background(), "run-6", RunOptions{})
	require.NoError(t, err)
	extractCalls++

	second, err := o.Run(context.Background(), "run-6", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.OverallSuccess, second.OverallStatus)
	assert.Same(t, first, second)
}

func TestGetStatus_UnknownRunReturnsError(t *testing.T) {
	o := newTestOrchestrator(&fakeStage{name: StageClassify}, &fakeStage{name: StageValidate}, &fakeStage{name: StageRisk}, &fakeStage{name: StageRUC}, &fakeExtractor{text: "x"})
	_, err := o.GetStatus("does-not-exist")
	assert.Error(t, err)
}

func TestCancel_StopsRunBeforeParallelStagesFinish(t *testing.T) {
	classify := &fakeStage{name: StageClassify, apply: func(s *State) { s.Assignment = &domain.SectionAssignment{DocID: s.RunID} }}
	validate := &fakeStage{name: StageValidate, delay: 2 * time.Second}
	risk := &fakeStage{name: StageRisk, delay: 2 * time.Second}
	ruc := &fakeStage{name: StageRUC, delay: 2 * time.Second}

	o := newTestOrchestrator(classify, validate, risk, ruc, &fakeExtractor{text: "texto"})
	o.StageTimeout = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	artifact, err := o.Run(ctx, "run-7", RunOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, domain.OverallSuccess, artifact.OverallStatus)
}

func TestAggregateStatus_Buckets(t *testing.T) {
	base := func() *domain.AnalysisArtifact {
		return &domain.AnalysisArtifact{StageResults: map[string]*domain.StageResult{
			StageClassify: {Status: domain.StageSuccess},
		}}
	}

	allOK := base()
	allOK.StageResults[StageValidate] = &domain.StageResult{Status: domain.StageSuccess}
	allOK.StageResults[StageRisk] = &domain.StageResult{Status: domain.StageSuccess}
	allOK.StageResults[StageRUC] = &domain.StageResult{Status: domain.StageSuccess}
	assert.Equal(t, domain.OverallSuccess, aggregateStatus(allOK))

	mixed := base()
	mixed.StageResults[StageValidate] = &domain.StageResult{Status: domain.StageSuccess}
	mixed.StageResults[StageRisk] = &domain.StageResult{Status: domain.StageFailed}
	mixed.StageResults[StageRUC] = &domain.StageResult{Status: domain.StageFailed}
	assert.Equal(t, domain.OverallPartialSuccess, aggregateStatus(mixed))

	allFailed := base()
	allFailed.StageResults[StageValidate] = &domain.StageResult{Status: domain.StageFailed}
	allFailed.StageResults[StageRisk] = &domain.StageResult{Status: domain.StageFailed}
	allFailed.StageResults[StageRUC] = &domain.StageResult{Status: domain.StageFailed}
	assert.Equal(t, domain.OverallFailed, aggregateStatus(allFailed))

	classifyFailed := &domain.AnalysisArtifact{StageResults: map[string]*domain.StageResult{
		StageClassify: {Status: domain.StageFailed},
	}}
	assert.Equal(t, domain.OverallFailed, aggregateStatus(classifyFailed))
}
