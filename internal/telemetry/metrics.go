package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evsecdev/orchestrator/internal/model"
)

// Metrics generalizes deployment_metrics.go's DeploymentMetrics: per-run
// counters by status plus elapsed time and bytes transferred, exported both
// as a human summary (createReport/printFailures) and as Prometheus
// collectors for scraping.
type Metrics struct {
	mu        sync.Mutex
	counts    map[model.Status]int
	hostFail  map[string]string
	bytesSent int
	started   time.Time
	ended     time.Time

	resultsTotal *prometheus.CounterVec
	bytesTotal   prometheus.Counter
	runSeconds   prometheus.Histogram
}

// NewMetrics builds a fresh metrics collector, registering it against reg
// (nil is allowed - collectors simply stay unregistered/unscraped, useful
// in unit tests that don't want a global registry side effect).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		counts:   make(map[model.Status]int),
		hostFail: make(map[string]string),
		resultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Name:      "executor_results_total",
			Help:      "Count of executor invocation results by status.",
		}, []string{"status"}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Name:      "bytes_transferred_total",
			Help:      "Bytes transferred to or from remote hosts via SCP uploads and downloads.",
		}),
		runSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orchestrator",
			Name:      "sequence_duration_seconds",
			Help:      "Wall-clock duration of a full sequence run.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.resultsTotal, m.bytesTotal, m.runSeconds)
	}
	return m
}

// Start marks the beginning of a sequence run.
func (m *Metrics) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = time.Now()
}

// End marks the end of a sequence run and records the histogram observation.
func (m *Metrics) End() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = time.Now()
	m.runSeconds.Observe(m.ended.Sub(m.started).Seconds())
}

// Record tallies one executor invocation's result.
func (m *Metrics) Record(hostRepr string, res model.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[res.Status]++
	m.resultsTotal.WithLabelValues(res.Status.String()).Inc()
	if res.Status == model.FAIL {
		m.hostFail[hostRepr] = res.Message
	}
}

// AddBytes records bytes transferred by an SCP upload (template) or
// download (fetch).
func (m *Metrics) AddBytes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesSent += n
	m.bytesTotal.Add(float64(n))
}

// Summary is the JSON-serializable human report, mirroring DeploymentSummary
// from createReport.
type Summary struct {
	Counters        map[string]int    `json:"counters"`
	Failures        map[string]string `json:"failures,omitempty"`
	BytesSent       int               `json:"bytesSent"`
	ElapsedDuration string            `json:"elapsed"`
}

// Report renders the current counters into a Summary, matching the
// createReport()/printFailures() pair but as one value.
func (m *Metrics) Report() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	counters := make(map[string]int, len(m.counts))
	for status, n := range m.counts {
		counters[status.String()] = n
	}
	failures := make(map[string]string, len(m.hostFail))
	for h, msg := range m.hostFail {
		failures[h] = msg
	}
	return Summary{
		Counters:        counters,
		Failures:        failures,
		BytesSent:       m.bytesSent,
		ElapsedDuration: m.ended.Sub(m.started).String(),
	}
}

// ReportJSON renders the summary as indented JSON, for --detailed-summary
// style output.
func (m *Metrics) ReportJSON() (string, error) {
	b, err := json.MarshalIndent(m.Report(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal deployment summary: %w", err)
	}
	return string(b), nil
}
