package orchestrator

import (
	"time"

	"tenderanalysis/pkg/events"
)

// EventBus is the narrow publish surface the orchestrator depends on
// for run-progress notifications. It is optional: a nil bus on
// Orchestrator simply skips publication, so the state machine behaves
// identically with or without a live subscriber.
type EventBus interface {
	Publish(event events.Event) error
}

// StageEvent reports one run's stage transition with its stage and
// progress, which is enough for a subscriber (the websocket hub, an
// external NATS consumer) to render a progress update. publishStage
// leaves OverallStatus empty, and the event carries no artifact refs;
// GetStatus reports both.
type StageEvent struct {
	RunID         string
	Stage         RunState
	Progress      float64
	OverallStatus string
	OccurredAt    time.Time
}

func (e StageEvent) EventType() string { return "run.stage_changed" }

func (e StageEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"runId":         e.RunID,
		"stage":         string(e.Stage),
		"progress":      e.Progress,
		"overallStatus": e.OverallStatus,
	}
}

func (e StageEvent) Timestamp() time.Time { return e.OccurredAt }

// MultiEventBus fans one StageEvent out to several sinks (the
// websocket hub for live UI push, an external NATS publisher for
// out-of-process consumers), matching this stack's fallback-chain
// style elsewhere by degrading gracefully: one sink's error never
// blocks delivery to the others.
type MultiEventBus []EventBus

func (m MultiEventBus) Publish(event events.Event) error {
	var firstErr error
	for _, bus := range m {
		if bus == nil {
			continue
		}
		if err := bus.Publish(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// publishStage is a best-effort notification: a publish failure never
// fails or slows the run, since polling GetStatus remains authoritative.
func (o *Orchestrator) publishStage(runID string, stage RunState) {
	if o.Events == nil {
		return
	}
	_ = o.Events.Publish(StageEvent{
		RunID:      runID,
		Stage:      stage,
		Progress:   stageProgress(stage),
		OccurredAt: time.Now(),
	})
}
