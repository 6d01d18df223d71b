package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Setup stages a worker can abandon in.
const (
	StageConnect = "connect"
	StagePrepare = "prepare"
	StageBarrier = "barrier"
)

// Collector observes worker lifecycle and request outcomes while a benchmark
// runs. Implementations must be safe for concurrent use.
type Collector interface {
	WorkerReady(worker int)
	WorkerAbandoned(worker int, stage string)
	RequestDone(ok bool, d time.Duration)
}

type nop struct{}

func (nop) WorkerReady(int)                 {}
func (nop) WorkerAbandoned(int, string)     {}
func (nop) RequestDone(bool, time.Duration) {}

// Nop discards everything.
func Nop() Collector { return nop{} }

type PrometheusCollector struct {
	duration  *prometheus.HistogramVec
	requests  *prometheus.CounterVec
	ready     prometheus.Gauge
	abandoned *prometheus.CounterVec
}

func NewPrometheusCollector(r prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "request_duration_seconds",
			Namespace: "ldapbench",
			Help:      "Latency of benchmark requests",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 18)},
			[]string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests_total",
			Namespace: "ldapbench",
			Help:      "Number of benchmark requests by result"},
			[]string{"result"}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{Name: "workers_ready",
			Namespace: "ldapbench",
			Help:      "Workers that finished setup and reached the start barrier"}),
		abandoned: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "workers_abandoned_total",
			Namespace: "ldapbench",
			Help:      "Workers that gave up before the timed phase"},
			[]string{"stage"}),
	}
	r.MustRegister(c.duration, c.requests, c.ready, c.abandoned)
	return c
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (c *PrometheusCollector) WorkerReady(int) {
	c.ready.Inc()
}

func (c *PrometheusCollector) WorkerAbandoned(_ int, stage string) {
	c.abandoned.WithLabelValues(stage).Inc()
}

func (c *PrometheusCollector) RequestDone(ok bool, d time.Duration) {
	c.duration.WithLabelValues(result(ok)).Observe(d.Seconds())
	c.requests.WithLabelValues(result(ok)).Inc()
}

// Progress keeps lock-free counters for the live progress view.
type Progress struct {
	ready     atomic.Int64
	abandoned atomic.Int64
	done      atomic.Uint64
	failed    atomic.Uint64
}

type ProgressSnapshot struct {
	Ready     int
	Abandoned int
	Done      uint64
	Failed    uint64
}

func (p *Progress) WorkerReady(int) {
	p.ready.Add(1)
}

func (p *Progress) WorkerAbandoned(int, string) {
	p.abandoned.Add(1)
}

func (p *Progress) RequestDone(ok bool, _ time.Duration) {
	p.done.Add(1)
	if !ok {
		p.failed.Add(1)
	}
}

func (p *Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		Ready:     int(p.ready.Load()),
		Abandoned: int(p.abandoned.Load()),
		Done:      p.done.Load(),
		Failed:    p.failed.Load(),
	}
}

// Multi fans every event out to all collectors.
type Multi []Collector

func (m Multi) WorkerReady(worker int) {
	for _, c := range m {
		c.WorkerReady(worker)
	}
}

func (m Multi) WorkerAbandoned(worker int, stage string) {
	for _, c := range m {
		c.WorkerAbandoned(worker, stage)
	}
}

func (m Multi) RequestDone(ok bool, d time.Duration) {
	for _, c := range m {
		c.RequestDone(ok, d)
	}
}
