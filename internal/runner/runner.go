package runner

import (
	"context"
	"sync/atomic"
	"time"

	"ldapbench/internal/metrics"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

type Runner struct {
	Cfg Config

	factory   Factory
	log       *zap.Logger
	collector metrics.Collector
	abandoned atomic.Int64
}

type Option func(*Runner)

func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// WithCollector reports worker lifecycle and request outcomes as they happen.
func WithCollector(c metrics.Collector) Option {
	return func(r *Runner) {
		r.collector = c
	}
}

func NewRunner(cfg Config, factory Factory, opts ...Option) *Runner {
	r := &Runner{
		Cfg:       cfg,
		factory:   factory,
		log:       zap.NewNop(),
		collector: metrics.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the benchmark and returns one result per worker that reached
// the timed phase, in no particular order. Workers that fail to connect or
// prepare are abandoned and the others carry on without them. ctx only
// bounds setup and the start barrier; once a worker starts its timed
// requests it runs them to completion.
func (r *Runner) Run(ctx context.Context) ([]TaskResult, error) {
	if err := r.Cfg.Validate(); err != nil {
		return nil, err
	}
	n := r.Cfg.Concurrency
	r.abandoned.Store(0)

	r.log.Info("starting benchmark",
		zap.Int("concurrency", n),
		zap.Int("total", r.Cfg.Total),
		zap.Int("per_worker", r.Cfg.PerWorker()))

	barrier := NewBarrier(n)
	results := make(chan TaskResult, n)

	var wg conc.WaitGroup
	for i := 0; i < n; i++ {
		wg.Go(func() {
			r.work(ctx, i, barrier, results)
		})
	}
	wg.Wait()
	close(results)

	out := make([]TaskResult, 0, n)
	for res := range results {
		out = append(out, res)
	}

	if abandoned := r.abandoned.Load(); abandoned > 0 {
		r.log.Warn("workers abandoned before the timed phase",
			zap.Int64("abandoned", abandoned),
			zap.Int("concurrency", n))
	}
	return out, nil
}

func (r *Runner) work(ctx context.Context, i int, barrier *Barrier, results chan<- TaskResult) {
	log := r.log.With(zap.Int("worker", i))

	state, err := newWorkerState(i, r.Cfg.Histogram)
	if err != nil {
		log.Error("cannot create worker histogram", zap.Error(err))
		r.abandon(i, metrics.StageConnect, barrier)
		return
	}

	job := r.factory(i, r.Cfg)
	if err := job.Connect(ctx); err != nil {
		log.Warn("connect failed, abandoning worker", zap.Error(err))
		r.abandon(i, metrics.StageConnect, barrier)
		return
	}
	if err := job.Prepare(ctx); err != nil {
		log.Warn("prepare failed, abandoning worker", zap.Error(err))
		job.Finish(context.WithoutCancel(ctx))
		r.abandon(i, metrics.StagePrepare, barrier)
		return
	}

	r.collector.WorkerReady(i)
	log.Debug("worker ready")
	if err := barrier.Wait(ctx); err != nil {
		// Wait already withdrew us.
		log.Warn("cancelled at start barrier", zap.Error(err))
		job.Finish(context.WithoutCancel(ctx))
		r.abandoned.Add(1)
		r.collector.WorkerAbandoned(i, metrics.StageBarrier)
		return
	}

	results <- r.drive(context.WithoutCancel(ctx), job, state, log)
}

func (r *Runner) abandon(i int, stage string, barrier *Barrier) {
	barrier.Withdraw()
	r.abandoned.Add(1)
	r.collector.WorkerAbandoned(i, stage)
}

// drive performs the timed loop. Every call is measured, successful or not.
func (r *Runner) drive(ctx context.Context, job Job, state *WorkerState, log *zap.Logger) TaskResult {
	perWorker := r.Cfg.PerWorker()

	start := time.Now()
	for seq := 0; seq < perWorker; seq++ {
		t0 := time.Now()
		err := job.Request(ctx, seq)
		d := time.Since(t0)

		state.Histogram.Increment(uint64(d.Microseconds()))
		state.Counters.Record(err == nil)
		r.collector.RequestDone(err == nil, d)
		if err != nil {
			log.Debug("request failed", zap.Int("seq", seq), zap.Error(err))
		}
	}
	end := time.Now()
	job.Finish(ctx)

	log.Debug("worker finished",
		zap.Uint64("attempted", state.Counters.Attempted),
		zap.Uint64("success", state.Counters.Success),
		zap.Duration("elapsed", end.Sub(start)))

	return TaskResult{
		Worker:    state.Index,
		Attempted: state.Counters.Attempted,
		Success:   state.Counters.Success,
		Start:     start,
		End:       end,
		Histogram: state.Histogram.Snapshot(),
	}
}
