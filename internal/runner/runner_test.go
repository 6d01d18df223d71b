package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ldapbench/internal/metrics"
	"ldapbench/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errFake = errors.New("fake failure")

type fakeJob struct {
	worker       int
	connectErr   error
	prepareErr   error
	prepareDelay time.Duration
	fail         func(seq int) bool
	trace        *trace

	finished atomic.Int32
}

// trace records when workers finished prepare and when they first requested.
type trace struct {
	mu           sync.Mutex
	prepared     []time.Time
	firstRequest []time.Time
}

func (j *fakeJob) Connect(context.Context) error {
	return j.connectErr
}

func (j *fakeJob) Prepare(context.Context) error {
	time.Sleep(j.prepareDelay)
	if j.prepareErr != nil {
		return j.prepareErr
	}
	if j.trace != nil {
		j.trace.mu.Lock()
		j.trace.prepared = append(j.trace.prepared, time.Now())
		j.trace.mu.Unlock()
	}
	return nil
}

func (j *fakeJob) Request(_ context.Context, seq int) error {
	if seq == 0 && j.trace != nil {
		j.trace.mu.Lock()
		j.trace.firstRequest = append(j.trace.firstRequest, time.Now())
		j.trace.mu.Unlock()
	}
	if j.fail != nil && j.fail(seq) {
		return errFake
	}
	return nil
}

func (j *fakeJob) Finish(context.Context) {
	j.finished.Add(1)
}

func newConfig(concurrency, total int) Config {
	cfg := DefaultConfig()
	cfg.Concurrency = concurrency
	cfg.Total = total
	return cfg
}

func run(t *testing.T, cfg Config, factory Factory, opts ...Option) []TaskResult {
	t.Helper()
	var results []TaskResult
	within(t, 10*time.Second, func() {
		var err error
		results, err = NewRunner(cfg, factory, opts...).Run(context.Background())
		require.NoError(t, err)
	})
	return results
}

func sumAttempted(results []TaskResult) uint64 {
	var sum uint64
	for _, r := range results {
		sum += r.Attempted
	}
	return sum
}

func TestConfig(t *testing.T) {
	t.Run("per worker rounds up", func(t *testing.T) {
		assert.Equal(t, 2, newConfig(2, 3).PerWorker())
		assert.Equal(t, 1, newConfig(10, 10).PerWorker())
		assert.Equal(t, 1, newConfig(10, 1).PerWorker())
		assert.Equal(t, 0, newConfig(4, 0).PerWorker())
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		assert.ErrorIs(t, newConfig(0, 10).Validate(), ErrInvalidConfig)
		assert.ErrorIs(t, newConfig(1, -1).Validate(), ErrInvalidConfig)

		cfg := newConfig(1, 1)
		cfg.Histogram.GroupingPower = 3
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("run refuses invalid config", func(t *testing.T) {
		_, err := NewRunner(newConfig(0, 1), nil).Run(context.Background())
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestRunner_Totals(t *testing.T) {
	for _, c := range []int{1, 3, 10} {
		for _, total := range []int{0, 1, 7, 10, 25} {
			t.Run(fmt.Sprintf("c=%d n=%d", c, total), func(t *testing.T) {
				cfg := newConfig(c, total)
				results := run(t, cfg, func(worker int, _ Config) Job {
					return &fakeJob{worker: worker}
				})

				require.Len(t, results, c)
				assert.Equal(t, uint64(c*cfg.PerWorker()), sumAttempted(results))
				assert.GreaterOrEqual(t, sumAttempted(results), uint64(total))

				seen := map[int]bool{}
				for _, r := range results {
					assert.False(t, seen[r.Worker], "duplicate worker %d", r.Worker)
					seen[r.Worker] = true
					assert.Equal(t, uint64(cfg.PerWorker()), r.Attempted)
					assert.Equal(t, r.Attempted, r.Success)
					assert.False(t, r.End.Before(r.Start))
				}
			})
		}
	}
}

func TestRunner_CountsFailures(t *testing.T) {
	cfg := newConfig(2, 3)
	results := run(t, cfg, func(worker int, _ Config) Job {
		return &fakeJob{worker: worker, fail: func(seq int) bool { return seq%2 == 1 }}
	})

	require.Len(t, results, 2)
	assert.Equal(t, uint64(4), sumAttempted(results))
	for _, r := range results {
		assert.Equal(t, uint64(2), r.Attempted)
		assert.Equal(t, uint64(1), r.Success)
		assert.Equal(t, uint64(1), r.Failed())

		h, err := stats.FromSnapshot(r.Histogram)
		require.NoError(t, err)
		assert.Equal(t, r.Attempted, h.TotalCount(), "failed requests are timed too")
	}
}

func TestRunner_AbandonedWorkers(t *testing.T) {
	jobs := make([]*fakeJob, 4)
	factory := func(worker int, _ Config) Job {
		j := &fakeJob{worker: worker}
		switch worker {
		case 1:
			j.connectErr = errFake
		case 2:
			j.prepareErr = errFake
			j.prepareDelay = 20 * time.Millisecond
		}
		jobs[worker] = j
		return j
	}

	var progress metrics.Progress
	results := run(t, newConfig(4, 8), factory,
		WithLogger(zap.NewNop()),
		WithCollector(&progress))

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, []int{0, 3}, r.Worker)
		assert.Equal(t, uint64(2), r.Attempted)
	}

	assert.Zero(t, jobs[1].finished.Load(), "connect failure has nothing to release")
	assert.Equal(t, int32(1), jobs[2].finished.Load(), "prepare failure releases the connection")
	assert.Equal(t, int32(1), jobs[0].finished.Load())
	assert.Equal(t, int32(1), jobs[3].finished.Load())

	assert.Equal(t, metrics.ProgressSnapshot{Ready: 2, Abandoned: 2, Done: 4}, progress.Snapshot())
}

func TestRunner_AllWorkersAbandon(t *testing.T) {
	results := run(t, newConfig(3, 3), func(worker int, _ Config) Job {
		return &fakeJob{worker: worker, connectErr: errFake}
	})
	assert.Empty(t, results)
}

func TestRunner_StartsTogether(t *testing.T) {
	tr := &trace{}
	run(t, newConfig(4, 4), func(worker int, _ Config) Job {
		return &fakeJob{
			worker:       worker,
			prepareDelay: time.Duration(worker) * 15 * time.Millisecond,
			trace:        tr,
		}
	})

	require.Len(t, tr.prepared, 4)
	require.Len(t, tr.firstRequest, 4)

	var lastPrepared time.Time
	for _, p := range tr.prepared {
		if p.After(lastPrepared) {
			lastPrepared = p
		}
	}
	for _, first := range tr.firstRequest {
		assert.False(t, first.Before(lastPrepared), "request started before the slowest worker was ready")
	}
}

func TestRunner_CancelledSetup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var results []TaskResult
	within(t, 5*time.Second, func() {
		var err error
		results, err = NewRunner(newConfig(2, 4), func(worker int, _ Config) Job {
			if worker == 1 {
				return &fakeJob{worker: worker, connectErr: context.Canceled}
			}
			return &fakeJob{worker: worker}
		}).Run(ctx)
		require.NoError(t, err)
	})
	assert.LessOrEqual(t, len(results), 1)
}
