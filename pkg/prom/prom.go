package prom

import (
	"sync"

	xhttp "github.com/khatape/khata-ledger/pkg/http"
	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemLedger   = "ledger"
	SystemPayments = "payments"
	SystemNotifier = "notifier"
	SystemQueue    = "queue"
)

const (
	MetricTransactionsRecorded = "transactions_recorded_total"
	MetricBalanceDrift         = "balance_drift_total"
	MetricCacheUpdateFailures  = "cache_update_failures_total"
	MetricPendingResolutions   = "pending_resolutions_total"
	MetricNotificationsSent    = "notifications_total"
	MetricNotificationDuration = "notification_duration_seconds"
	MetricReconcileJobs        = "reconcile_jobs_total"
	MetricReconcileJobDuration = "reconcile_job_duration_seconds"
	MetricQueueDepth           = "queue_depth"
)

// Queue depth states reported by the reconciler.
const (
	QueueStateTotal      = "total"
	QueueStatePending    = "pending"
	QueueStateDeadLetter = "dead_letter"
	QueueStateBacklog    = "backlog"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "khata"
var registerer prometheus.Registerer = prometheus.DefaultRegisterer

var MetricSystemEnabled = false

var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionGaugeVec = make(map[string]*prometheus.GaugeVec)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

// Create registers every ledger metric and turns recording on.
func Create(host string, env string, nameSpace string) error {
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	if nameSpace != "" {
		namespace = nameSpace
	}

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounterVec(SystemLedger, MetricTransactionsRecorded, []string{"type"}))
	hasError(createCounterVec(SystemLedger, MetricBalanceDrift, []string{"source"}))
	hasError(createCounterVec(SystemLedger, MetricCacheUpdateFailures, []string{"op"}))
	hasError(createCounterVec(SystemPayments, MetricPendingResolutions, []string{"status"}))
	hasError(createCounterVec(SystemNotifier, MetricNotificationsSent, []string{"result"}))
	hasError(createHistogramVec(SystemNotifier, MetricNotificationDuration, []string{"result"}))
	hasError(createCounterVec(SystemQueue, MetricReconcileJobs, []string{"result"}))
	hasError(createHistogramVec(SystemQueue, MetricReconcileJobDuration, []string{"result"}))
	hasError(createGaugeVec(SystemQueue, MetricQueueDepth, []string{"state"}))

	MetricSystemEnabled = err == nil
	return err
}

// SetRegisterer swaps the registry metrics are registered with. Call it before Create.
func SetRegisterer(r prometheus.Registerer) {
	registerer = r
}

func ListenAndServer(addr string, url string) {
	s := xhttp.CreateServer()
	s.GET(url, fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	logger.Info("[metrics-server] listening...", "addr", addr, "url", url)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Error("[metrics-server] http listen error", "error", err)
	}
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	MetricCollectionCounterVec[subsystem+name] = c
	return registerer.Register(c)
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	}, labels)
	MetricCollectionHistogramVec[subsystem+name] = h
	return registerer.Register(h)
}

func createGaugeVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	MetricCollectionGaugeVec[subsystem+name] = g
	return registerer.Register(g)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func SetGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Set(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func IncTransactionRecorded(txType string) {
	IncCounterVec(SystemLedger, MetricTransactionsRecorded, txType)
}

func IncBalanceDrift(source string) {
	IncCounterVec(SystemLedger, MetricBalanceDrift, source)
}

func IncCacheUpdateFailure(op string) {
	IncCounterVec(SystemLedger, MetricCacheUpdateFailures, op)
}

func IncPendingResolution(status string) {
	IncCounterVec(SystemPayments, MetricPendingResolutions, status)
}

func ObserveNotification(result string, seconds float64) {
	IncCounterVec(SystemNotifier, MetricNotificationsSent, result)
	AddHistogramVec(SystemNotifier, MetricNotificationDuration, seconds, result)
}

func ObserveReconcileJob(result string, seconds float64) {
	IncCounterVec(SystemQueue, MetricReconcileJobs, result)
	AddHistogramVec(SystemQueue, MetricReconcileJobDuration, seconds, result)
}

func SetQueueDepth(state string, depth int64) {
	SetGaugeVec(SystemQueue, MetricQueueDepth, float64(depth), state)
}
