package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tokend/logx"
)

type OpRejectedReason string

var (
	OpInvalidSignature OpRejectedReason = "invalid_signature"
	OpInvalidAmount    OpRejectedReason = "invalid_amount"
	OpNotOwner         OpRejectedReason = "not_owner"
	OpStaleRequest     OpRejectedReason = "stale_request"
	OpReplayedRequest  OpRejectedReason = "replayed_request"
	OpRateLimited      OpRejectedReason = "rate_limited"
	OpRefused          OpRejectedReason = "refused"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds prometheus.Gauge
	requestCount      *prometheus.CounterVec
	opOutcomeCount    *prometheus.CounterVec
	rejectedOpCount   *prometheus.CounterVec
	panicCount        prometheus.Counter
	eventSubscribers  prometheus.Gauge
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokend_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node start",
			},
		),
		requestCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokend_rpc_request_count",
				Help: "The total number of authenticated RPC requests per method",
			},
			[]string{"method"},
		),
		opOutcomeCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokend_op_outcome_count",
				Help: "The total number of ledger operations by outcome (ok or rejected)",
			},
			[]string{"outcome"},
		),
		rejectedOpCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokend_rejected_op_count",
				Help: "The total number of rejected operations by reason",
			},
			[]string{"reason"},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tokend_panic_count",
				Help: "The total number of recovered panics in background goroutines",
			},
		),
		eventSubscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokend_event_subscribers",
				Help: "The current number of ledger event subscribers",
			},
		),
	}
}

var nodeMetrics *nodePromMetrics

// InitMetrics registers the node metrics. Recording functions are no-ops until
// it has been called, so library consumers and tests need no setup.
func InitMetrics() {
	nodeMetrics = newNodePromMetrics()
	nodeMetrics.nodeUpUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func RecordRequest(method string) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.requestCount.With(prometheus.Labels{"method": method}).Inc()
}

func RecordOpOutcome(ok bool) {
	if nodeMetrics == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "rejected"
	}
	nodeMetrics.opOutcomeCount.With(prometheus.Labels{"outcome": outcome}).Inc()
}

func RecordRejectedOp(reason OpRejectedReason) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.rejectedOpCount.With(prometheus.Labels{"reason": string(reason)}).Inc()
}

func IncreasePanicCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.panicCount.Inc()
}

func SetEventSubscribers(count int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.eventSubscribers.Set(float64(count))
}
