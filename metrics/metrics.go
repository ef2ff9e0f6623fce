package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	ReadingsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aircanary_readings_ingested_total",
			Help: "Total number of sensor readings stored",
		},
	)

	ReadingsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aircanary_readings_rejected_total",
			Help: "Total number of sensor readings rejected by validation",
		},
	)

	// Evaluator metrics
	AlertsTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aircanary_alerts_triggered_total",
			Help: "Total number of alerts created per pollutant",
		},
		[]string{"pollutant"},
	)

	AlertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aircanary_alerts_suppressed_total",
			Help: "Total number of exceedances suppressed by the cooldown window",
		},
		[]string{"pollutant"},
	)

	EvaluateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aircanary_evaluate_duration_seconds",
			Help:    "Threshold evaluation latency per reading",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Dispatcher metrics
	NotificationsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aircanary_notifications_sent_total",
			Help: "Total number of notification emails delivered",
		},
	)

	NotificationsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aircanary_notifications_failed_total",
			Help: "Total number of notification attempts that failed",
		},
	)

	NotificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aircanary_notifications_dropped_total",
			Help: "Total number of notification intents dropped because the queue was full",
		},
	)

	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aircanary_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
