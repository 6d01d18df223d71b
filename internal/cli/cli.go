// Package cli runs one benchmark end to end: header, metrics endpoint,
// progress view, the runner itself and the final report.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ldapbench/internal/banner"
	"ldapbench/internal/metrics"
	"ldapbench/internal/report"
	"ldapbench/internal/runner"
	"ldapbench/internal/tui/live"
)

const (
	OutputText = "text"
	OutputJSON = "json"
	OutputCSV  = "csv"
)

var ErrUnknownOutput = errors.New("unknown output format")

type Options struct {
	// Scenario names the benchmark in the header, e.g. "Search".
	Scenario    string
	Quiet       bool
	Verbose     int
	Short       bool
	Histogram   bool
	Output      string
	Progress    bool
	MetricsAddr string

	Stdout io.Writer
	Stderr io.Writer
	Log    *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Output == "" {
		o.Output = OutputText
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return o
}

func validOutput(s string) bool {
	switch s {
	case OutputText, OutputJSON, OutputCSV:
		return true
	}
	return false
}

// Start runs the benchmark described by cfg and writes the report.
func Start(ctx context.Context, cfg runner.Config, factory runner.Factory, opts Options) error {
	opts = opts.withDefaults()
	if !validOutput(opts.Output) {
		return fmt.Errorf("%w %q (want text, json or csv)", ErrUnknownOutput, opts.Output)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := opts.Log

	if !opts.Quiet && opts.Output == OutputText {
		printHeader(opts.Stdout, opts.Scenario, cfg.URL)
	}

	progress := &metrics.Progress{}
	collector := metrics.Multi{progress}

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		collector = append(collector, metrics.NewPrometheusCollector(reg))
		stop, err := serveMetrics(opts.MetricsAddr, reg, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	var view *tea.Program
	var viewDone chan struct{}
	if opts.Progress && isTerminal(opts.Stderr) {
		view = tea.NewProgram(live.NewModel(progress, cfg.Concurrency, cfg.PerWorker()),
			tea.WithOutput(opts.Stderr), tea.WithInput(nil), tea.WithoutSignalHandler())
		viewDone = make(chan struct{})
		go func() {
			defer close(viewDone)
			if _, err := view.Run(); err != nil {
				log.Warn("progress view failed", zap.Error(err))
			}
		}()
	}

	r := runner.NewRunner(cfg, factory, runner.WithLogger(log), runner.WithCollector(collector))
	results, err := r.Run(ctx)

	if view != nil {
		view.Send(live.DoneMsg{})
		<-viewDone
	}
	if err != nil {
		return err
	}

	return writeReport(results, cfg, opts)
}

func printHeader(w io.Writer, scenario, url string) {
	fmt.Fprintln(w, banner.Header())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s Benchmarking: %s\n", scenario, url)
}

func writeReport(results []runner.TaskResult, cfg runner.Config, opts Options) error {
	if opts.Output == OutputText {
		ropts := report.Options{
			Histogram: cfg.Histogram,
			Detailed:  opts.Histogram,
			Short:     opts.Short,
		}
		if opts.Verbose >= 2 {
			ropts.Diagnostics = opts.Stderr
		}
		return report.Write(opts.Stdout, results, cfg.Concurrency, ropts)
	}

	if len(results) == 0 {
		fmt.Fprintln(opts.Stderr, "No results received")
		return report.ErrNoResults
	}
	s, err := report.Summarize(results, cfg.Concurrency, cfg.Histogram)
	if err != nil {
		return err
	}
	if opts.Output == OutputJSON {
		return report.WriteJSON(opts.Stdout, s)
	}
	return report.WriteCSV(opts.Stdout, s)
}

// serveMetrics exposes reg on addr until the returned stop is called.
func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
