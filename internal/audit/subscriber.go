// Package audit consumes the durable NATS event stream and writes one
// structured log line per run.stage_changed event, giving an
// out-of-process, replayable trail of every run's progress independent
// of the in-memory orchestrator state the polling and websocket paths
// read from.
package audit

import (
	"context"
	"fmt"

	"tenderanalysis/internal/pkg/logger"
	"tenderanalysis/pkg/events"
	pktNats "tenderanalysis/pkg/nats"
)

// Logger listens to the ANALYSIS stream's durable "audit-worker"
// consumer and logs every event it sees. It never mutates run state;
// a subscriber outage only means a gap in the audit trail, never a
// stalled or incorrect run.
type Logger struct {
	subscriber *pktNats.Subscriber
	log        logger.ILogger
}

func NewLogger(sub *pktNats.Subscriber, log logger.ILogger) *Logger {
	return &Logger{subscriber: sub, log: log}
}

// Start registers the durable consumer. Safe to call once per process;
// NATS makes redelivery-after-crash the consumer's problem, not ours.
func (l *Logger) Start() error {
	return l.subscriber.Subscribe("analysis.>", "audit-worker", l.handleEvent)
}

func (l *Logger) handleEvent(_ context.Context, event events.Event) error {
	payload := event.Payload()
	l.log.Info("audit", fmt.Sprintf("run event: %s", event.EventType()), map[string]interface{}{
		"runId":         payload["runId"],
		"stage":         payload["stage"],
		"progress":      payload["progress"],
		"overallStatus": payload["overallStatus"],
	})
	return nil
}
