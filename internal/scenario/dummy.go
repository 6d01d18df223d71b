package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"ldapbench/internal/runner"
)

var (
	ErrSimulatedFailure = errors.New("simulated server error")
	ErrSimulatedBusy    = errors.New("simulated busy server")
)

// profile decides the latency and outcome of one synthetic request.
type profile func(rng *rand.Rand, opts DummyOptions) (time.Duration, error)

func between(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	return lo + time.Duration(rng.Int64N(int64(hi-lo)+1))
}

var profiles = map[string]profile{
	// 0-100ms, the classic self test
	"random": func(rng *rand.Rand, _ DummyOptions) (time.Duration, error) {
		return between(rng, 0, 100*time.Millisecond), nil
	},
	"fast": func(rng *rand.Rand, _ DummyOptions) (time.Duration, error) {
		return between(rng, 10*time.Millisecond, 49*time.Millisecond), nil
	},
	"medium": func(rng *rand.Rand, _ DummyOptions) (time.Duration, error) {
		return between(rng, 100*time.Millisecond, 299*time.Millisecond), nil
	},
	"slow": func(rng *rand.Rand, _ DummyOptions) (time.Duration, error) {
		return between(rng, time.Second, 2*time.Second), nil
	},
	// Usually fast, randomly very slow. P99 will be terrible, P50 will be fine.
	"spike": func(rng *rand.Rand, _ DummyOptions) (time.Duration, error) {
		if rng.Float32() < 0.05 {
			return 2 * time.Second, nil
		}
		return 20 * time.Millisecond, nil
	},
	"error": func(rng *rand.Rand, _ DummyOptions) (time.Duration, error) {
		switch rnd := rng.Float32(); {
		case rnd < 0.2:
			return 0, ErrSimulatedFailure
		case rnd < 0.4:
			return 0, ErrSimulatedBusy
		default:
			return 0, nil
		}
	},
	"fixed": func(_ *rand.Rand, opts DummyOptions) (time.Duration, error) {
		return opts.Latency, nil
	},
}

// Profiles lists the synthetic latency profiles.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type DummyOptions struct {
	Profile string
	// Latency of the fixed profile.
	Latency time.Duration
}

type dummyJob struct {
	worker  int
	rng     *rand.Rand
	profile profile
	opts    DummyOptions
}

// NewDummy builds the synthetic scenario: requests sleep according to a
// latency profile and never open a connection.
func NewDummy(opts DummyOptions) (runner.Factory, error) {
	if opts.Profile == "" {
		opts.Profile = "random"
	}
	p, ok := profiles[opts.Profile]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (want one of %v)", opts.Profile, Profiles())
	}
	seed := rand.Uint64()
	return func(worker int, _ runner.Config) runner.Job {
		return &dummyJob{
			worker:  worker,
			rng:     rand.New(rand.NewPCG(seed, uint64(worker))),
			profile: p,
			opts:    opts,
		}
	}, nil
}

func (j *dummyJob) Connect(context.Context) error { return nil }

func (j *dummyJob) Prepare(context.Context) error { return nil }

func (j *dummyJob) Request(ctx context.Context, _ int) error {
	d, err := j.profile(j.rng, j.opts)
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (j *dummyJob) Finish(context.Context) {}
