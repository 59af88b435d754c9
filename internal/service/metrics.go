package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// materializationsTotal counts materializer outcomes by label (created, existing, raced, rest_day, refreshed).
	materializationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adherence_materializations_total",
		Help: "Calendar materializations by plan kind and outcome",
	}, []string{"kind", "outcome"})

	// overridesTotal counts whole-list session replacements.
	overridesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adherence_overrides_total",
		Help: "Calendar overrides applied by plan kind",
	}, []string{"kind"})

	// trackingUpsertsTotal counts ledger writes by whether they inserted or updated.
	trackingUpsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adherence_tracking_upserts_total",
		Help: "Tracking ledger upserts by plan kind and operation",
	}, []string{"kind", "op"})

	// trendSyntheticPoints counts trend points filled by the fallback strategy.
	trendSyntheticPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adherence_trend_synthetic_points_total",
		Help: "Trend points substituted with synthetic values, by metric",
	}, []string{"metric"})
)
