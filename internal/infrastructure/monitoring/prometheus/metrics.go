package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the gateway and worker export.  All methods
// are safe on a nil receiver so components can run without metrics.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPInFlight        GaugeVec

	// Rhino Compute
	EvaluationsTotal   CounterVec
	EvaluationDuration HistogramVec

	// Cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// Simulations
	SimulationRunsTotal CounterVec
	SimulationDuration  HistogramVec
	ArtifactsArchived   CounterVec

	// Jobs
	JobsPublishedTotal CounterVec
	JobsProcessedTotal CounterVec
	JobsDeadLettered   CounterVec
	WorkerActive       GaugeVec

	// Infrastructure
	DBQueryDuration   HistogramVec
	ComponentHealth   GaugeVec
	ErrorsTotal       CounterVec
}

var (
	HTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	EvaluationDurationBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300}
	DBDurationBuckets         = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "HTTP requests served", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request latency", HTTPDurationBuckets, "method", "route")
	m.HTTPInFlight = collector.RegisterGauge("http_in_flight_requests", "HTTP requests being served", "method")

	m.EvaluationsTotal = collector.RegisterCounter("compute_evaluations_total", "Grasshopper evaluations by outcome", "definition", "outcome")
	m.EvaluationDuration = collector.RegisterHistogram("compute_evaluation_duration_seconds", "Grasshopper evaluation latency", EvaluationDurationBuckets, "definition")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	m.SimulationRunsTotal = collector.RegisterCounter("simulation_runs_total", "Simulation runs by kind and result", "kind", "mode", "result")
	m.SimulationDuration = collector.RegisterHistogram("simulation_duration_seconds", "Simulation run latency", EvaluationDurationBuckets, "kind")
	m.ArtifactsArchived = collector.RegisterCounter("artifacts_archived_total", "Heatmaps copied to object storage", "result")

	m.JobsPublishedTotal = collector.RegisterCounter("jobs_published_total", "Messages published to kafka", "topic", "result")
	m.JobsProcessedTotal = collector.RegisterCounter("jobs_processed_total", "Simulation jobs handled by workers", "result")
	m.JobsDeadLettered = collector.RegisterCounter("jobs_dead_lettered_total", "Messages routed to a dead-letter topic", "topic")
	m.WorkerActive = collector.RegisterGauge("worker_active_jobs", "Jobs currently executing", "worker")

	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query latency", DBDurationBuckets, "operation")
	m.ComponentHealth = collector.RegisterGauge("component_up", "Dependency health (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest counts one served request.  route is the chi route
// pattern, never the raw path, to keep cardinality bounded.
func (m *AppMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveEvaluation implements rhino.Recorder.
func (m *AppMetrics) ObserveEvaluation(definition, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(definition, outcome).Inc()
	m.EvaluationDuration.WithLabelValues(definition).Observe(d.Seconds())
}

// RecordCacheAccess implements rhino.CacheRecorder.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func (m *AppMetrics) RecordSimulation(kind, mode string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.SimulationRunsTotal.WithLabelValues(kind, mode, outcome(success)).Inc()
	m.SimulationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *AppMetrics) RecordArchive(err error) {
	if m == nil {
		return
	}
	m.ArtifactsArchived.WithLabelValues(outcome(err == nil)).Inc()
}

func (m *AppMetrics) RecordPublish(topic string, err error) {
	if m == nil {
		return
	}
	m.JobsPublishedTotal.WithLabelValues(topic, outcome(err == nil)).Inc()
}

// RecordJob counts a finished job; result is success, error, skipped or dlq.
func (m *AppMetrics) RecordJob(result string) {
	if m == nil {
		return
	}
	m.JobsProcessedTotal.WithLabelValues(result).Inc()
}

func (m *AppMetrics) RecordDeadLetter(topic string) {
	if m == nil {
		return
	}
	m.JobsDeadLettered.WithLabelValues(topic).Inc()
}

// TrackJob marks a job active on worker until the returned func is called.
func (m *AppMetrics) TrackJob(worker string) func() {
	if m == nil {
		return func() {}
	}
	g := m.WorkerActive.WithLabelValues(worker)
	g.Inc()
	return g.Dec
}

func (m *AppMetrics) RecordDBQuery(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues("postgres", "query_error").Inc()
	}
}

func (m *AppMetrics) SetComponentHealth(component string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.ComponentHealth.WithLabelValues(component).Set(v)
}

func (m *AppMetrics) RecordError(component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
