package saga

import (
	"context"

	"go.uber.org/zap"
)

// AlertChannel receives manual-intervention alerts for human follow-up.
// Silent failure here is the one condition the saga must never allow, so
// implementations log locally if delivery fails.
type AlertChannel interface {
	ManualInterventionRequired(ctx context.Context, alert ManualInterventionAlert)
}

type zapAlertChannel struct {
	logger *zap.Logger
}

func NewZapAlertChannel(logger *zap.Logger) AlertChannel {
	return &zapAlertChannel{logger: logger.Named("saga-alerts")}
}

func (c *zapAlertChannel) ManualInterventionRequired(_ context.Context, alert ManualInterventionAlert) {
	c.logger.Error("subscription saga needs manual intervention",
		zap.String("sagaID", alert.SagaID),
		zap.String("operation", string(alert.Operation)),
		zap.String("triggeringError", alert.TriggeringError),
		zap.Strings("compensationFailures", alert.Failures),
	)
}

type zapProgressSink struct {
	logger *zap.Logger
}

func NewZapProgressSink(logger *zap.Logger) ProgressSink {
	return &zapProgressSink{logger: logger.Named("saga-progress")}
}

func (s *zapProgressSink) Publish(event ProgressEvent) {
	s.logger.Info("saga step transition",
		zap.String("sagaID", event.SagaID),
		zap.String("step", string(event.StepID)),
		zap.String("status", string(event.Status)),
		zap.String("message", event.Message),
	)
}
