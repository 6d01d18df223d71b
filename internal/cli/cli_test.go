package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldapbench/internal/report"
	"ldapbench/internal/runner"
	"ldapbench/internal/scenario"
	"ldapbench/internal/stats"
)

type failingJob struct{}

type unpreparedJob struct{ failingJob }

func (unpreparedJob) Connect(context.Context) error { return nil }
func (unpreparedJob) Prepare(context.Context) error { return errors.New("bind refused") }

func (failingJob) Connect(context.Context) error      { return errors.New("connection refused") }
func (failingJob) Prepare(context.Context) error      { return nil }
func (failingJob) Request(context.Context, int) error { return nil }
func (failingJob) Finish(context.Context)             {}

func dummy(t *testing.T) runner.Factory {
	t.Helper()
	factory, err := scenario.NewDummy(scenario.DummyOptions{Profile: "fixed"})
	require.NoError(t, err)
	return factory
}

func config(concurrency, total int) runner.Config {
	cfg := runner.DefaultConfig()
	cfg.URL = "dummy"
	cfg.Concurrency = concurrency
	cfg.Total = total
	return cfg
}

func TestStart_Text(t *testing.T) {
	var out bytes.Buffer
	err := Start(context.Background(), config(2, 4), dummy(t), Options{
		Scenario:  "Test",
		Histogram: true,
		Stdout:    &out,
		Stderr:    io.Discard,
	})
	require.NoError(t, err)

	s := out.String()
	assert.True(t, strings.HasPrefix(s, "This is LDAPBench, Version "))
	assert.Contains(t, s, "Test Benchmarking: dummy\n")
	assert.Contains(t, s, "Concurrency Level: 2\n")
	assert.Contains(t, s, "Total Requests: 4\n")
	assert.Contains(t, s, "Success Requests: 4\n")
	assert.Contains(t, s, "Success Rate: 100%\n")
	assert.Contains(t, s, "Total samples: 4\n")
}

func TestStart_QuietShort(t *testing.T) {
	var out bytes.Buffer
	err := Start(context.Background(), config(3, 3), dummy(t), Options{
		Scenario: "Test",
		Quiet:    true,
		Short:    true,
		Stdout:   &out,
		Stderr:   io.Discard,
	})
	require.NoError(t, err)

	fields := strings.Fields(out.String())
	require.Len(t, fields, 3)
	assert.Equal(t, "3", fields[0])
	assert.Equal(t, "100%", fields[2])
}

func TestStart_VerboseShort(t *testing.T) {
	var out, errOut bytes.Buffer
	err := Start(context.Background(), config(2, 4), dummy(t), Options{
		Quiet:   true,
		Short:   true,
		Verbose: 2,
		Stdout:  &out,
		Stderr:  &errOut,
	})
	require.NoError(t, err)

	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 1)
	assert.NotContains(t, out.String(), "worker[")
	assert.Contains(t, errOut.String(), "worker[0]: ")
	assert.Contains(t, errOut.String(), "worker[1]: ")
}

func TestStart_JSON(t *testing.T) {
	var out bytes.Buffer
	err := Start(context.Background(), config(2, 5), dummy(t), Options{
		Scenario: "Test",
		Output:   OutputJSON,
		Stdout:   &out,
		Stderr:   io.Discard,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), out.String())
	assert.EqualValues(t, 2, got["concurrency"])
	assert.EqualValues(t, 6, got["attempted"])
	assert.EqualValues(t, 6, got["success"])
}

func TestStart_CSV(t *testing.T) {
	var out bytes.Buffer
	err := Start(context.Background(), config(2, 2), dummy(t), Options{
		Output: OutputCSV,
		Stdout: &out,
		Stderr: io.Discard,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "worker,"))
}

func TestStart_NoResults(t *testing.T) {
	factory := func(int, runner.Config) runner.Job { return failingJob{} }

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		err := Start(context.Background(), config(2, 2), factory, Options{Quiet: true, Stdout: &out})
		assert.ErrorIs(t, err, report.ErrNoResults)
		assert.Equal(t, "No results received\n", out.String())
	})

	t.Run("json", func(t *testing.T) {
		var out, errOut bytes.Buffer
		err := Start(context.Background(), config(2, 2), factory, Options{
			Output: OutputJSON,
			Stdout: &out,
			Stderr: &errOut,
		})
		assert.ErrorIs(t, err, report.ErrNoResults)
		assert.Empty(t, out.String())
		assert.Equal(t, "No results received\n", errOut.String())
	})
}

func TestStart_InvalidInput(t *testing.T) {
	err := Start(context.Background(), config(1, 1), dummy(t), Options{Output: "xml", Stdout: io.Discard})
	assert.ErrorIs(t, err, ErrUnknownOutput)

	err = Start(context.Background(), config(0, 1), dummy(t), Options{Stdout: io.Discard})
	assert.ErrorIs(t, err, runner.ErrInvalidConfig)
}

func TestEndToEnd(t *testing.T) {
	t.Run("fixed delay", func(t *testing.T) {
		factory, err := scenario.NewDummy(scenario.DummyOptions{Profile: "fixed", Latency: 10 * time.Millisecond})
		require.NoError(t, err)

		results, err := runner.NewRunner(config(1, 5), factory).Run(context.Background())
		require.NoError(t, err)
		s, err := report.Summarize(results, 1, stats.DefaultHistogramConfig())
		require.NoError(t, err)

		assert.Equal(t, uint64(5), s.Counters.Attempted)
		assert.Equal(t, uint64(5), s.Counters.Success)
		assert.Equal(t, 100.0, s.SuccessRate())
		assert.LessOrEqual(t, s.RequestsPerSec, 100.5)
		assert.Greater(t, s.RequestsPerSec, 60.0)
	})

	t.Run("requests round up per worker", func(t *testing.T) {
		results, err := runner.NewRunner(config(4, 10), dummy(t)).Run(context.Background())
		require.NoError(t, err)
		s, err := report.Summarize(results, 4, stats.DefaultHistogramConfig())
		require.NoError(t, err)

		assert.Equal(t, 4, s.Workers)
		assert.Equal(t, uint64(12), s.Counters.Attempted)
		for _, w := range s.PerWorker {
			assert.Equal(t, uint64(3), w.Attempted)
		}
	})

	t.Run("every worker fails prepare", func(t *testing.T) {
		factory := func(int, runner.Config) runner.Job { return unpreparedJob{} }
		var out bytes.Buffer
		err := Start(context.Background(), config(3, 9), factory, Options{Quiet: true, Stdout: &out})
		assert.ErrorIs(t, err, report.ErrNoResults)
		assert.Equal(t, "No results received\n", out.String())
	})
}

func TestServeMetrics(t *testing.T) {
	factory, err := scenario.NewDummy(scenario.DummyOptions{Profile: "fixed", Latency: time.Millisecond})
	require.NoError(t, err)

	// the endpoint only lives for the run; scrape it from inside a request
	var body string
	scrape := func(worker int, cfg runner.Config) runner.Job {
		return &scrapingJob{Job: factory(worker, cfg), body: &body}
	}
	err = Start(context.Background(), config(1, 2), scrape, Options{
		Quiet:       true,
		MetricsAddr: "127.0.0.1:19465",
		Stdout:      io.Discard,
		Stderr:      io.Discard,
	})
	require.NoError(t, err)
	assert.Contains(t, body, "ldapbench_workers_ready 1")
	assert.Contains(t, body, `ldapbench_requests_total{result="success"} 1`)
}

type scrapingJob struct {
	runner.Job
	body *string
}

func (j *scrapingJob) Request(ctx context.Context, seq int) error {
	if seq == 1 {
		resp, err := http.Get("http://127.0.0.1:19465/metrics")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		*j.body = string(b)
	}
	return j.Job.Request(ctx, seq)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
}
