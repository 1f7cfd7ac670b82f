package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors for the HTTP surface and the
// escalation scan.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	requestErrors *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec

	scans              prometheus.Counter
	scanDuration       prometheus.Histogram
	ticketsScanned     prometheus.Counter
	ticketFailures     *prometheus.CounterVec
	rulesFired         *prometheus.CounterVec
	actionFailures     *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	breachedTickets    prometheus.Gauge
	atRiskTickets      prometheus.Gauge
	lastScanCompletion prometheus.Gauge
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escalation",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"path", "method", "status"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escalation",
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "HTTP errors by route, method and error code",
		}, []string{"path", "method", "code"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "escalation",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escalation",
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Completed escalation scans",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "escalation",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of escalation scans",
			Buckets:   prometheus.DefBuckets,
		}),
		ticketsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escalation",
			Subsystem: "scan",
			Name:      "tickets_total",
			Help:      "Tickets evaluated by the scan",
		}),
		ticketFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escalation",
			Subsystem: "scan",
			Name:      "ticket_failures_total",
			Help:      "Tickets skipped during a scan, labeled by error code",
		}, []string{"code"}),
		rulesFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escalation",
			Subsystem: "rules",
			Name:      "fired_total",
			Help:      "Escalation rule matches",
		}, []string{"rule"}),
		actionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escalation",
			Subsystem: "rules",
			Name:      "action_failures_total",
			Help:      "Escalation actions that failed, labeled by action and error code",
		}, []string{"action", "code"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escalation",
			Subsystem: "notifications",
			Name:      "dispatched_total",
			Help:      "Notification dispatch outcomes",
		}, []string{"type", "result"}),
		breachedTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "escalation",
			Subsystem: "sla",
			Name:      "breached_tickets",
			Help:      "Open tickets past their SLA deadline at the last scan",
		}),
		atRiskTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "escalation",
			Subsystem: "sla",
			Name:      "at_risk_tickets",
			Help:      "Open tickets inside the at-risk window at the last scan",
		}),
		lastScanCompletion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "escalation",
			Subsystem: "scan",
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time of the last completed scan",
		}),
	}
	reg.MustRegister(
		m.requests, m.requestErrors, m.requestTime,
		m.scans, m.scanDuration, m.ticketsScanned, m.ticketFailures,
		m.rulesFired, m.actionFailures, m.notifications,
		m.breachedTickets, m.atRiskTickets, m.lastScanCompletion,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestTime.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(path, method, code).Inc()
}

// ScanSummary describes one completed scan.
type ScanSummary struct {
	Tickets  int
	Breached int
	AtRisk   int
	Duration time.Duration
	At       time.Time
}

// RecordScan records a completed scan.
func (m *Metrics) RecordScan(s ScanSummary) {
	if m == nil {
		return
	}
	m.scans.Inc()
	m.scanDuration.Observe(s.Duration.Seconds())
	m.ticketsScanned.Add(float64(s.Tickets))
	m.breachedTickets.Set(float64(s.Breached))
	m.atRiskTickets.Set(float64(s.AtRisk))
	m.lastScanCompletion.Set(float64(s.At.Unix()))
}

// RecordTicketFailure counts a ticket skipped by the scan.
func (m *Metrics) RecordTicketFailure(code string) {
	if m == nil {
		return
	}
	m.ticketFailures.WithLabelValues(code).Inc()
}

// RecordRuleFired counts a rule match.
func (m *Metrics) RecordRuleFired(rule string) {
	if m == nil {
		return
	}
	m.rulesFired.WithLabelValues(rule).Inc()
}

// RecordActionFailure counts a failed escalation action.
func (m *Metrics) RecordActionFailure(action, code string) {
	if m == nil {
		return
	}
	m.actionFailures.WithLabelValues(action, code).Inc()
}

// RecordNotification counts a dispatch outcome.
func (m *Metrics) RecordNotification(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}
