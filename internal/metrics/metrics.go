// Package metrics defines the Prometheus collectors of the bot and the
// listener that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voicebot"

// BroadcastDeliveriesTotal counts broadcast delivery attempts.
// Label:
//   - result: "sent", "failed" or "skipped"
var BroadcastDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_deliveries_total",
		Help:      "Broadcast delivery attempts by result.",
	},
	[]string{"result"},
)

// BroadcastRunsInFlight tracks broadcasts currently fanning out.
var BroadcastRunsInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broadcast_runs_in_flight",
		Help:      "Number of broadcasts currently running.",
	},
)

// BroadcastDuration measures a whole broadcast run.
var BroadcastDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "broadcast_duration_seconds",
		Help:      "Duration of a broadcast run over the full recipient list.",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
	},
)

// AdminActionsTotal counts admin panel commands and conversation steps.
// Labels:
//   - action: command section or pending step name (e.g. "credits", "credit_amount")
//   - outcome: "ok", "reprompt", "fail" or "cancelled"
var AdminActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_actions_total",
		Help:      "Admin panel commands and replies by outcome.",
	},
	[]string{"action", "outcome"},
)

// ValidityExpiredTotal counts validity windows cleared by the expiry sweeper.
var ValidityExpiredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validity_expired_total",
		Help:      "Validity windows cleared by the expiry sweeper.",
	},
)

// TelegramSendsTotal counts asynchronous Bot API calls made by the reply
// dispatcher.
// Labels:
//   - action: dispatcher action (e.g. "send.text", "send.document")
//   - result: "ok" or "fail"
var TelegramSendsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "telegram_sends_total",
		Help:      "Outbound Bot API calls by action and result.",
	},
	[]string{"action", "result"},
)

// HandlerPanicsTotal counts recovered handler panics.
// Label:
//   - handler: handler name as logged (e.g. "admin", "callback.admin", "session")
var HandlerPanicsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_panics_total",
		Help:      "Recovered handler panics by handler.",
	},
	[]string{"handler"},
)

// ObservePanic records one recovered panic of handler.
func ObservePanic(handler string) {
	HandlerPanicsTotal.WithLabelValues(handler).Inc()
}

// ObserveSend records the outcome of one outbound Bot API call.
func ObserveSend(action string, _ int, err error) {
	result := "ok"
	if err != nil {
		result = "fail"
	}
	TelegramSendsTotal.WithLabelValues(action, result).Inc()
}
