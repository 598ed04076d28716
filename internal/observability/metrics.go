package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	ledgerOperationCount  *prometheus.CounterVec
	betSettlementCounter  *prometheus.CounterVec
	promotionTransitions  *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	notificationCounter   *prometheus.CounterVec
	eventPublishCounter   *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		ledgerOperationCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Financial operations recorded, by kind",
		}, []string{"kind"})

		betSettlementCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bet_settlements_total",
			Help: "Bets settled, by outcome",
		}, []string{"outcome"})

		promotionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promotion_transitions_total",
			Help: "Promotion status changes, by new status",
		}, []string{"status"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		notificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Outbound notifications, by kind and delivery result",
		}, []string{"kind", "result"})

		eventPublishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Domain event publish outcomes",
		}, []string{"result"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			ledgerOperationCount,
			betSettlementCounter,
			promotionTransitions,
			idempotencyCounter,
			notificationCounter,
			eventPublishCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementLedgerOperation(kind string) {
	if ledgerOperationCount == nil {
		return
	}
	ledgerOperationCount.WithLabelValues(kind).Inc()
}

func IncrementBetSettlement(outcome string) {
	if betSettlementCounter == nil {
		return
	}
	betSettlementCounter.WithLabelValues(outcome).Inc()
}

func IncrementPromotionTransition(status string) {
	if promotionTransitions == nil {
		return
	}
	promotionTransitions.WithLabelValues(status).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementNotification(kind, result string) {
	if notificationCounter == nil {
		return
	}
	notificationCounter.WithLabelValues(kind, result).Inc()
}

func IncrementEventPublish(result string) {
	if eventPublishCounter == nil {
		return
	}
	eventPublishCounter.WithLabelValues(result).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
