package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ldapbench/internal/runner"
	"ldapbench/internal/stats"
)

var ErrNoResults = errors.New("no results received")

// WorkerThroughput is the throughput of a single worker over its own timed phase.
type WorkerThroughput struct {
	Worker         int           `json:"worker"`
	Attempted      uint64        `json:"attempted"`
	Success        uint64        `json:"success"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	RequestsPerSec float64       `json:"requests_per_sec"`
}

// Summary aggregates every worker of a run. Elapsed spans from the earliest
// worker start to the latest worker end.
type Summary struct {
	Concurrency int
	Workers     int
	Counters    stats.Counters
	Start       time.Time
	End         time.Time
	Elapsed     time.Duration

	RequestsPerSec      float64
	TimePerRequestMs    float64
	TimePerRequestAllMs float64

	PerWorker []WorkerThroughput
	Histogram *stats.Histogram
}

func (s Summary) SuccessRate() float64 {
	return s.Counters.SuccessRate()
}

// Summarize folds the results of a run into a Summary. It fails as a whole
// when any worker histogram cannot be merged.
func Summarize(results []runner.TaskResult, concurrency int, cfg stats.HistogramConfig) (Summary, error) {
	if len(results) == 0 {
		return Summary{}, ErrNoResults
	}

	merged, err := stats.NewHistogram(cfg)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", stats.ErrIncompatible, err)
	}

	s := Summary{
		Concurrency: concurrency,
		Workers:     len(results),
		PerWorker:   make([]WorkerThroughput, 0, len(results)),
	}
	for i, r := range results {
		h, err := stats.FromSnapshot(r.Histogram)
		if err != nil {
			return Summary{}, fmt.Errorf("worker %d: %w", r.Worker, err)
		}
		if merged, err = merged.Merge(h); err != nil {
			return Summary{}, fmt.Errorf("worker %d: %w", r.Worker, err)
		}

		s.Counters.Add(stats.Counters{Attempted: r.Attempted, Success: r.Success})
		if i == 0 || r.Start.Before(s.Start) {
			s.Start = r.Start
		}
		if i == 0 || r.End.After(s.End) {
			s.End = r.End
		}
		s.PerWorker = append(s.PerWorker, throughput(r))
	}
	sort.Slice(s.PerWorker, func(i, j int) bool {
		return s.PerWorker[i].Worker < s.PerWorker[j].Worker
	})

	s.Histogram = merged
	s.Elapsed = s.End.Sub(s.Start)

	taken := s.Elapsed.Seconds()
	attempted := float64(s.Counters.Attempted)
	if taken > 0 {
		s.RequestsPerSec = attempted / taken
	}
	if attempted > 0 {
		s.TimePerRequestMs = float64(concurrency) * taken * 1000 / attempted
		s.TimePerRequestAllMs = taken * 1000 / attempted
	}
	return s, nil
}

func throughput(r runner.TaskResult) WorkerThroughput {
	w := WorkerThroughput{
		Worker:    r.Worker,
		Attempted: r.Attempted,
		Success:   r.Success,
		Elapsed:   r.Elapsed(),
	}
	if secs := w.Elapsed.Seconds(); secs > 0 {
		w.RequestsPerSec = float64(r.Attempted) / secs
	}
	return w
}
