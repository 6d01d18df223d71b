package runner

import "context"

// Job is the per-worker unit of benchmark work. A Job is used by exactly one
// goroutine, so implementations need no locking.
//
// Connect and Prepare run before the start barrier and are not timed; an
// error abandons the worker. Request performs one timed operation and
// returns nil when it succeeded; seq is the zero-based index of the request
// within the worker. Finish releases whatever Connect acquired.
type Job interface {
	Connect(ctx context.Context) error
	Prepare(ctx context.Context) error
	Request(ctx context.Context, seq int) error
	Finish(ctx context.Context)
}

// Factory builds the Job for one worker. It must not perform I/O.
type Factory func(worker int, cfg Config) Job
