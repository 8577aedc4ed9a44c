package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts submission attempts by outcome (created, validation_failed, ...).
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfpo_approval_submissions_total",
		Help: "Approval submissions by outcome",
	}, []string{"outcome"})

	ActionDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfpo_approval_action_decisions_total",
		Help: "Completed approval actions by decision",
	}, []string{"decision"})

	// ActionRejectionsTotal counts completion attempts rejected before any state change.
	ActionRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfpo_approval_action_rejections_total",
		Help: "Approval action completions rejected by reason",
	}, []string{"reason"})

	InstancesCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfpo_approval_instances_completed_total",
		Help: "Approval instances reaching a terminal status",
	}, []string{"status"})

	ReconcileCorrectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfpo_approval_reconcile_corrections_total",
		Help: "Instances whose stored status was corrected by reconciliation",
	})

	CatalogCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfpo_catalog_cache_results_total",
		Help: "Catalog cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfpo_notification_failures_total",
		Help: "Notifications that could not be published",
	})
)
