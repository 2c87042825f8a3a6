package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
	"github.com/ispadmin-io/ispadmin/services/subscription/gateway"
	"github.com/sony/sonyflake"
	"go.uber.org/zap"
)

// Orchestrator runs the provisioning saga: it classifies the requested
// change, executes the operation's step table strictly in order, and on a
// critical failure hands the completed steps to the compensation pass.
//
// At most one saga per subscription id may be in flight at a time; that
// invariant is upheld by the caller, not enforced here.
type Orchestrator struct {
	logger *zap.Logger
	store  Store
	gw     gateway.Client
	sink   ProgressSink
	alerts AlertChannel
	sf     *sonyflake.Sonyflake
}

func New(logger *zap.Logger, store Store, gw gateway.Client, sink ProgressSink, alerts AlertChannel) *Orchestrator {
	return &Orchestrator{
		logger: logger.Named("saga"),
		store:  store,
		gw:     gw,
		sink:   sink,
		alerts: alerts,
		sf:     sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

// execution is the orchestrator-local state of one saga run. Steps write
// the artifacts they produce here so later steps, and the rollback bag,
// can pick them up.
type execution struct {
	sagaID   string
	kind     OperationKind
	req      entities.ChangeRequest
	existing *model.Subscription
	bag      *RollbackBag
	steps    []*TransactionStep

	subscription *model.Subscription
	netConfig    *model.NetworkConfig
	assignment   *model.AddressAssignment
	pkg          *model.ServicePackage
	node         *model.Node
	password     string
}

type Result struct {
	SagaID        string
	Operation     OperationKind
	Subscription  *model.Subscription
	NetworkConfig *model.NetworkConfig
	Assignment    *model.AddressAssignment
	Steps         []*TransactionStep
}

// Provision executes the saga for the requested target state. existing is
// nil for first-time provisioning. The returned Result carries the step
// records even when the run failed; the error is nil only when every step
// completed.
func (o *Orchestrator) Provision(ctx context.Context, existing *model.Subscription, req entities.ChangeRequest) (*Result, error) {
	kind := Classify(existing, req, OperationKind(req.OperationHint))

	ex := &execution{
		sagaID:   uuid.New().String(),
		kind:     kind,
		req:      req,
		existing: existing,
	}
	ex.bag = &RollbackBag{SagaID: ex.sagaID}
	if existing != nil {
		current := *existing
		ex.subscription = &current
	}

	steps, err := o.stepTable(kind)
	if err != nil {
		return nil, err
	}

	o.logger.Info("starting subscription saga",
		zap.String("sagaID", ex.sagaID),
		zap.String("operation", string(kind)),
		zap.Uint("customerID", req.CustomerID))

	return o.run(ctx, ex, steps)
}

func (o *Orchestrator) run(ctx context.Context, ex *execution, steps []Step) (*Result, error) {
	// User cancellation only suppresses progress reporting; an in-flight
	// step still completes and, on failure, still compensates.
	callCtx := context.WithoutCancel(ctx)

	var completed []Step
	for _, step := range steps {
		rec := &TransactionStep{ID: step.ID, Description: step.Description, Status: StepStatusPending}
		ex.steps = append(ex.steps, rec)

		o.transition(ctx, ex, rec, StepStatusRunning, "")

		err := step.Run(callCtx, ex)
		if err == nil {
			o.transition(ctx, ex, rec, StepStatusCompleted, "")
			completed = append(completed, step)
			continue
		}

		o.transition(ctx, ex, rec, StepStatusFailed, err.Error())
		SagaStepFailuresCount.WithLabelValues(string(step.ID)).Inc()

		var verr *ValidationError
		if errors.As(err, &verr) {
			SagaRunsCount.WithLabelValues(string(ex.kind), "validation_failed").Inc()
			return o.result(ex), verr
		}

		if step.Critical || gateway.IsGatewayError(err) {
			outcome := o.Rollback(callCtx, ex, completed, err)
			if outcome.Recovered() {
				SagaRunsCount.WithLabelValues(string(ex.kind), "rolled_back").Inc()
			} else {
				SagaRunsCount.WithLabelValues(string(ex.kind), "manual_intervention").Inc()
			}
			return o.result(ex), &CriticalStepError{StepID: step.ID, Err: err, Outcome: outcome}
		}

		SagaRunsCount.WithLabelValues(string(ex.kind), "failed").Inc()
		return o.result(ex), &NonCriticalStepError{StepID: step.ID, Err: err}
	}

	SagaRunsCount.WithLabelValues(string(ex.kind), "completed").Inc()
	o.logger.Info("subscription saga completed",
		zap.String("sagaID", ex.sagaID),
		zap.String("operation", string(ex.kind)))
	return o.result(ex), nil
}

// Rollback replays the completed steps in reverse order, invoking each
// step's compensating action. A failing compensation never aborts the
// loop; every failure is accumulated and, if any remain at the end, the
// admin alert channel fires.
func (o *Orchestrator) Rollback(ctx context.Context, ex *execution, completed []Step, cause error) RollbackOutcome {
	outcome := RollbackOutcome{SagaID: ex.sagaID}

	o.logger.Warn("rolling back subscription saga",
		zap.String("sagaID", ex.sagaID),
		zap.String("operation", string(ex.kind)),
		zap.Int("completedSteps", len(completed)),
		zap.Error(cause))

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}

		if err := step.Compensate(ctx, ex.bag); err != nil {
			o.logger.Error("compensation failed",
				zap.String("sagaID", ex.sagaID),
				zap.String("step", string(step.ID)),
				zap.Error(err))
			CompensationFailuresCount.WithLabelValues(string(step.ID)).Inc()
			outcome.Failures = append(outcome.Failures, CompensationFailure{StepID: step.ID, Err: err})
			continue
		}

		o.logger.Info("compensated step",
			zap.String("sagaID", ex.sagaID),
			zap.String("step", string(step.ID)))
	}

	if !outcome.Recovered() {
		ManualInterventionsCount.WithLabelValues(string(ex.kind)).Inc()

		failures := make([]string, 0, len(outcome.Failures))
		for _, f := range outcome.Failures {
			failures = append(failures, f.Error())
		}
		o.alerts.ManualInterventionRequired(ctx, ManualInterventionAlert{
			SagaID:          ex.sagaID,
			Operation:       ex.kind,
			TriggeringError: cause.Error(),
			Bag:             ex.bag,
			Failures:        failures,
		})
	}

	return outcome
}

func (o *Orchestrator) transition(ctx context.Context, ex *execution, rec *TransactionStep, status StepStatus, message string) {
	rec.Status = status
	rec.Message = message

	// a canceled caller stops receiving events, nothing more
	if ctx.Err() != nil {
		return
	}
	o.sink.Publish(ProgressEvent{
		SagaID:    ex.sagaID,
		StepID:    rec.ID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func (o *Orchestrator) result(ex *execution) *Result {
	return &Result{
		SagaID:        ex.sagaID,
		Operation:     ex.kind,
		Subscription:  ex.subscription,
		NetworkConfig: ex.netConfig,
		Assignment:    ex.assignment,
		Steps:         ex.steps,
	}
}

func (o *Orchestrator) stepTable(kind OperationKind) ([]Step, error) {
	switch kind {
	case Operation_CreateNew:
		return o.createSteps(), nil
	case Operation_ChangePlan:
		return o.planChangeSteps(), nil
	case Operation_ChangeNode:
		return o.nodeChangeSteps(), nil
	case Operation_ChangeZone:
		// a zone change is a node change with zone-aware validation first
		return append(o.zoneValidationSteps(), o.nodeChangeSteps()...), nil
	case Operation_ChangeAddress:
		return o.addressChangeSteps(), nil
	}
	return nil, fmt.Errorf("unknown operation kind %q", kind)
}

func (o *Orchestrator) nextAuthUsername() (string, error) {
	id, err := o.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("next sonyflake id: %w", err)
	}
	return fmt.Sprintf("sub%d", id), nil
}
