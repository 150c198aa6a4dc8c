// Package metrics provides Prometheus metrics for the rank predictor service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Pipeline metrics
	analysesTotal       prometheus.Counter
	predictionsTotal    *prometheus.CounterVec
	predictionErrors    *prometheus.CounterVec
	predictedRank       prometheus.Histogram
	predictionConf      prometheus.Histogram
	predictionLatency   prometheus.Histogram
	collegeLookups      prometheus.Counter
	eligibleColleges    prometheus.Histogram
	predictionsRecorded prometheus.Counter

	// Model metrics
	modelTrainings      *prometheus.CounterVec
	modelTrainDuration  prometheus.Histogram
	modelHoldoutMAE     prometheus.Gauge
	modelFeatureCount   prometheus.Gauge
	modelTrainingRows   prometheus.Gauge
	modelLastTrainedSec prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository metrics
	repositoryQueryLatency *prometheus.HistogramVec
	repositoryErrors       *prometheus.CounterVec

	// Batch report metrics
	queueCapacity    prometheus.Gauge
	queueSize        prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueRejected    prometheus.Counter
	workerCount      prometheus.Gauge
	jobsProcessed    *prometheus.CounterVec
	jobLatency       prometheus.Histogram
	jobsPerSecond    prometheus.Gauge
	errorByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rankpred",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often system gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string { return m.metricPrefix + n }

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.analysesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("analyses_total"),
		Help: "Total number of performance analyses served",
	})
	m.predictionsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("predictions_total"),
		Help: "Total number of rank predictions by model family",
	}, []string{"family"})
	m.predictionErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("prediction_errors_total"),
		Help: "Total number of failed pipeline calls by error kind",
	}, []string{"kind"})
	m.predictedRank = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("predicted_rank"),
		Help:    "Distribution of predicted ranks",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
	m.predictionConf = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("prediction_confidence"),
		Help:    "Distribution of prediction confidence",
		Buckets: prometheus.LinearBuckets(0.5, 0.05, 10),
	})
	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("prediction_latency_milliseconds"),
		Help:    "Latency of feature extraction plus model inference in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.collegeLookups = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("college_lookups_total"),
		Help: "Total number of eligible-college lookups",
	})
	m.eligibleColleges = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("eligible_colleges"),
		Help:    "Number of eligible colleges per lookup",
		Buckets: prometheus.LinearBuckets(0, 1, 10),
	})
	m.predictionsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("predictions_recorded_total"),
		Help: "Total number of prediction records persisted",
	})

	m.modelTrainings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "model", ConstLabels: labels,
		Name: m.name("trainings_total"),
		Help: "Total number of model trainings by outcome",
	}, []string{"outcome"})
	m.modelTrainDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "model", ConstLabels: labels,
		Name:    m.name("training_duration_seconds"),
		Help:    "Duration of model trainings in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})
	m.modelHoldoutMAE = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "model", ConstLabels: labels,
		Name: m.name("holdout_mae"),
		Help: "Holdout mean absolute error of the serving model",
	})
	m.modelFeatureCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "model", ConstLabels: labels,
		Name: m.name("features"),
		Help: "Number of features the serving model was trained on",
	})
	m.modelTrainingRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "model", ConstLabels: labels,
		Name: m.name("training_rows"),
		Help: "Number of rows the serving model was trained on",
	})
	m.modelLastTrainedSec = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "model", ConstLabels: labels,
		Name: m.name("last_trained_unix_seconds"),
		Help: "Unix time the serving model was trained",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: labels,
		Name: m.name("requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: labels,
		Name:    m.name("request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.repositoryQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "repository", ConstLabels: labels,
		Name:    m.name("query_latency_milliseconds"),
		Help:    "Repository query latency in milliseconds by operation",
		Buckets: m.histogramBuckets,
	}, []string{"op"})
	m.repositoryErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "repository", ConstLabels: labels,
		Name: m.name("errors_total"),
		Help: "Total number of repository errors by operation",
	}, []string{"op"})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "batch", ConstLabels: labels,
		Name: m.name("queue_capacity"),
		Help: "Capacity of the report job queue",
	})
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "batch", ConstLabels: labels,
		Name: m.name("queue_size"),
		Help: "Current number of queued report jobs",
	})
	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "batch", ConstLabels: labels,
		Name: m.name("queue_enqueued_total"),
		Help: "Total number of report jobs accepted by the queue",
	})
	m.queueRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "batch", ConstLabels: labels,
		Name: m.name("queue_rejected_total"),
		Help: "Total number of report jobs rejected by the queue",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "batch", ConstLabels: labels,
		Name: m.name("workers"),
		Help: "Number of report workers",
	})
	m.jobsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "batch", ConstLabels: labels,
		Name: m.name("jobs_total"),
		Help: "Total number of report jobs by outcome",
	}, []string{"outcome"})
	m.jobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "batch", ConstLabels: labels,
		Name:    m.name("job_latency_milliseconds"),
		Help:    "Report job latency in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.jobsPerSecond = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "batch", ConstLabels: labels,
		Name: m.name("jobs_per_second"),
		Help: "Report jobs completed per second over the last refresh window",
	})
	m.errorByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_component_total"),
		Help: "Total number of errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: m.name("memory_usage_bytes"),
		Help: "System memory usage in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: m.name("goroutine_count"),
		Help: "Number of goroutines",
	})
}

// RecordAnalysis increments the analyses counter.
func RecordAnalysis() {
	globalManager.analysesTotal.Inc()
}

// RecordPrediction records a served prediction.
func RecordPrediction(family string, rank int, confidence, latencyMs float64) {
	globalManager.predictionsTotal.WithLabelValues(family).Inc()
	globalManager.predictedRank.Observe(float64(rank))
	globalManager.predictionConf.Observe(confidence)
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordPredictionError increments the error counter for kind.
func RecordPredictionError(kind string) {
	globalManager.predictionErrors.WithLabelValues(kind).Inc()
}

// RecordCollegeLookup records one eligibility lookup and its result size.
func RecordCollegeLookup(eligible int) {
	globalManager.collegeLookups.Inc()
	globalManager.eligibleColleges.Observe(float64(eligible))
}

// RecordPredictionPersisted increments the persisted predictions counter.
func RecordPredictionPersisted() {
	globalManager.predictionsRecorded.Inc()
}

// RecordTraining records a training run.
func RecordTraining(outcome string, duration time.Duration) {
	globalManager.modelTrainings.WithLabelValues(outcome).Inc()
	globalManager.modelTrainDuration.Observe(duration.Seconds())
}

// UpdateServingModel publishes the gauges describing the serving model.
func UpdateServingModel(holdoutMAE float64, features, rows int, trainedAt time.Time) {
	globalManager.modelHoldoutMAE.Set(holdoutMAE)
	globalManager.modelFeatureCount.Set(float64(features))
	globalManager.modelTrainingRows.Set(float64(rows))
	globalManager.modelLastTrainedSec.Set(float64(trainedAt.Unix()))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryQuery records the latency of a repository operation.
func RecordRepositoryQuery(op string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordRepositoryError increments the repository error counter for op.
func RecordRepositoryError(op string) {
	globalManager.repositoryErrors.WithLabelValues(op).Inc()
}

// UpdateQueueCapacity sets the report queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current report queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueue increments the accepted jobs counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueReject increments the rejected jobs counter.
func RecordQueueReject() {
	globalManager.queueRejected.Inc()
}

// UpdateWorkerCount sets the number of report workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordJob records a finished report job.
func RecordJob(outcome string, latencyMs float64) {
	globalManager.jobsProcessed.WithLabelValues(outcome).Inc()
	globalManager.jobLatency.Observe(latencyMs)
}

// UpdateJobsPerSecond sets the report throughput gauge.
func UpdateJobsPerSecond(rate float64) {
	globalManager.jobsPerSecond.Set(rate)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RefreshInterval reports the sampling interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
