package saga

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var SagaRunsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ispadmin",
	Subsystem: "subscription_saga",
	Name:      "runs_total",
	Help:      "Count of subscription saga runs by operation and result",
}, []string{"operation", "result"})

var SagaStepFailuresCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ispadmin",
	Subsystem: "subscription_saga",
	Name:      "step_failures_total",
	Help:      "Count of failed saga steps",
}, []string{"step"})

var CompensationFailuresCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ispadmin",
	Subsystem: "subscription_saga",
	Name:      "compensation_failures_total",
	Help:      "Count of failed compensating actions",
}, []string{"step"})

var ManualInterventionsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ispadmin",
	Subsystem: "subscription_saga",
	Name:      "manual_interventions_total",
	Help:      "Count of saga runs escalated to manual intervention",
}, []string{"operation"})
