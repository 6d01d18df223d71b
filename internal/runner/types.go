package runner

import (
	"errors"
	"fmt"
	"time"

	"ldapbench/internal/stats"
)

var ErrInvalidConfig = errors.New("invalid benchmark config")

// Config is shared read-only by every worker of a run.
type Config struct {
	Concurrency  int    `mapstructure:"concurrency"`
	Total        int    `mapstructure:"number"`
	URL          string `mapstructure:"url"`
	BindDN       string `mapstructure:"bind-dn"`
	BindPassword string `mapstructure:"bind-pw"`
	BaseDN       string `mapstructure:"base-dn"`
	StartTLS     bool   `mapstructure:"starttls"`

	Histogram stats.HistogramConfig `mapstructure:"layout"`
}

func DefaultConfig() Config {
	return Config{
		Concurrency: 10,
		Total:       10,
		Histogram:   stats.DefaultHistogramConfig(),
	}
}

func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.Total < 0 {
		return fmt.Errorf("%w: number of requests must not be negative, got %d", ErrInvalidConfig, c.Total)
	}
	if err := c.Histogram.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// PerWorker is the number of requests every worker performs. The rounding
// means a run may perform more than Total requests.
func (c Config) PerWorker() int {
	if c.Total <= 0 {
		return 0
	}
	return (c.Total + c.Concurrency - 1) / c.Concurrency
}

// WorkerState is mutated only by the goroutine that owns it.
type WorkerState struct {
	Index     int
	Counters  stats.Counters
	Histogram *stats.Histogram
}

func newWorkerState(index int, cfg stats.HistogramConfig) (*WorkerState, error) {
	h, err := stats.NewHistogram(cfg)
	if err != nil {
		return nil, err
	}
	return &WorkerState{Index: index, Histogram: h}, nil
}

// TaskResult is what one worker reports after its timed phase.
type TaskResult struct {
	Worker    int            `json:"worker"`
	Attempted uint64         `json:"attempted"`
	Success   uint64         `json:"success"`
	Start     time.Time      `json:"start"`
	End       time.Time      `json:"end"`
	Histogram stats.Snapshot `json:"histogram"`
}

func (r TaskResult) Failed() uint64 {
	return r.Attempted - r.Success
}

func (r TaskResult) Elapsed() time.Duration {
	return r.End.Sub(r.Start)
}
