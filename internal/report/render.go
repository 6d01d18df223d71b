package report

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"ldapbench/internal/runner"
	"ldapbench/internal/stats"
	"ldapbench/internal/tui/styles"
)

const (
	maxBarWidth = 40
	maxRows     = 10
)

var percentiles = []float64{50, 75, 90, 95, 99, 99.9}

type Options struct {
	// Histogram layout the worker snapshots were recorded with; zero means default.
	Histogram stats.HistogramConfig
	// Detailed adds the latency percentiles and distribution chart.
	Detailed bool
	// Short prints a single "<concurrency> <rps> <rate>%" line.
	Short bool
	// Diagnostics receives the per-worker throughput lines when set. They
	// never go to the report writer, so short output stays a single line.
	Diagnostics io.Writer
}

func (o Options) histogramConfig() stats.HistogramConfig {
	if o.Histogram == (stats.HistogramConfig{}) {
		return stats.DefaultHistogramConfig()
	}
	return o.Histogram
}

// Write summarizes results and renders the report to w.
func Write(w io.Writer, results []runner.TaskResult, concurrency int, opts Options) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results received")
		return ErrNoResults
	}
	s, err := Summarize(results, concurrency, opts.histogramConfig())
	if err != nil {
		return err
	}
	return Render(w, s, opts)
}

// printer remembers the first write error so rendering code stays linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func Render(w io.Writer, s Summary, opts Options) error {
	p := &printer{w: w}
	rate := int(s.SuccessRate())

	if opts.Diagnostics != nil {
		d := &printer{w: opts.Diagnostics}
		for _, wt := range s.PerWorker {
			d.printf("worker[%d]: %.2f [#/sec] time=%.3f\n", wt.Worker, wt.RequestsPerSec, wt.Elapsed.Seconds())
		}
		if d.err != nil {
			return d.err
		}
	}

	if opts.Short {
		p.printf("%d %.2f %d%%\n", s.Concurrency, s.RequestsPerSec, rate)
		return p.err
	}

	p.printf("\n%s\n", styles.Section("Benchmark Results"))
	p.printf("Concurrency Level: %d\n", s.Concurrency)
	p.printf("Total Requests: %d\n", s.Counters.Attempted)
	p.printf("Success Requests: %d\n", s.Counters.Success)
	p.printf("Success Rate: %s\n", styles.Rate(rate).Render(fmt.Sprintf("%d%%", rate)))
	p.printf("Time taken for tests: %.3f seconds\n", s.Elapsed.Seconds())
	p.printf("Requests per second: %.2f [#/sec] (mean)\n", s.RequestsPerSec)
	p.printf("Time per request: %.3f [ms] (mean)\n", s.TimePerRequestMs)
	p.printf("Time per request: %.3f [ms] (mean, across all concurrent requests)\n", s.TimePerRequestAllMs)
	p.printf("CPU Number: %d\n", runtime.NumCPU())
	p.printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	if opts.Detailed && s.Histogram != nil {
		p.printf("\n%s\n", styles.Section("Latency Histogram"))
		writeHistogram(p, s.Histogram)
	}
	return p.err
}

func writeHistogram(p *printer, h *stats.Histogram) {
	total := h.TotalCount()
	p.printf("Total samples: %d\n", total)
	if total == 0 {
		p.printf("No latency data collected\n")
		return
	}

	p.printf("\nPercentile Latencies:\n")
	for _, q := range percentiles {
		b, err := h.Percentile(q)
		if err != nil {
			continue
		}
		val, unit := formatLatency(b.Midpoint())
		p.printf("  p%5.1f: %8s %s\n", q, val, unit)
	}

	p.printf("\nLatency Distribution:\n")
	rows := distribution(h.Buckets(), maxRows)
	var largest uint64 = 1
	for _, r := range rows {
		largest = max(largest, r.Count)
	}
	for _, r := range rows {
		pct := float64(r.Count) / float64(total) * 100
		width := int(float64(r.Count) / float64(largest) * maxBarWidth)
		bar := styles.Bar.Render(strings.Repeat("#", width))

		start, end, unit := formatLatencyRange(r.Start, r.End)
		if start == end {
			p.printf("  %8s %2s: %6d (%5.1f%%) %s\n", start, unit, r.Count, pct, bar)
		} else {
			p.printf("  %8s-%-8s %2s: %6d (%5.1f%%) %s\n", start, end, unit, r.Count, pct, bar)
		}
	}
}

// distribution groups consecutive buckets so that at most rows remain.
func distribution(buckets []stats.Bucket, rows int) []stats.Bucket {
	if len(buckets) <= rows {
		return buckets
	}
	per := (len(buckets) + rows - 1) / rows
	out := make([]stats.Bucket, 0, rows)
	for i := 0; i < len(buckets); i += per {
		chunk := buckets[i:min(i+per, len(buckets))]
		row := stats.Bucket{Start: chunk[0].Start, End: chunk[len(chunk)-1].End}
		for _, b := range chunk {
			row.Count += b.Count
		}
		out = append(out, row)
	}
	return out
}
