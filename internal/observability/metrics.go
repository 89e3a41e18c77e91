package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters exposed on /metrics next to the HTTP middleware collectors.
// Label values are drawn from small fixed sets.
var (
	// TrialDecisions counts trial gate outcomes by reason ("allowed" when the
	// gate lets the request through).
	TrialDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_trial_decisions_total",
			Help: "Trial gate decisions by reason.",
		},
		[]string{"reason"},
	)

	// Generations counts quest generation attempts by owner kind
	// (user|trial) and outcome (created|denied|generation_failed|persist_failed|replayed).
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_generations_total",
			Help: "Quest generation requests by owner kind and outcome.",
		},
		[]string{"owner", "outcome"},
	)

	// TasksCompleted counts tasks marked completed by users.
	TasksCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quest_tasks_completed_total",
			Help: "Quest tasks completed by users.",
		},
	)
)

func init() {
	prometheus.MustRegister(TrialDecisions, Generations, TasksCompleted)
}
