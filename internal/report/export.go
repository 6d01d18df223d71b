package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"ldapbench/internal/stats"
)

type percentileJSON struct {
	Percentile float64 `json:"percentile"`
	Micros     uint64  `json:"us"`
}

type latencyJSON struct {
	Samples     uint64           `json:"samples"`
	Percentiles []percentileJSON `json:"percentiles"`
	Buckets     []stats.Bucket   `json:"buckets"`
}

type summaryJSON struct {
	Concurrency         int                `json:"concurrency"`
	Workers             int                `json:"workers"`
	Attempted           uint64             `json:"attempted"`
	Success             uint64             `json:"success"`
	Failed              uint64             `json:"failed"`
	SuccessRate         float64            `json:"success_rate"`
	ErrorRate           float64            `json:"error_rate"`
	Start               time.Time          `json:"start"`
	End                 time.Time          `json:"end"`
	ElapsedSeconds      float64            `json:"elapsed_seconds"`
	RequestsPerSec      float64            `json:"requests_per_sec"`
	TimePerRequestMs    float64            `json:"time_per_request_ms"`
	TimePerRequestAllMs float64            `json:"time_per_request_all_ms"`
	PerWorker           []WorkerThroughput `json:"per_worker"`
	Latency             *latencyJSON       `json:"latency,omitempty"`
}

// WriteJSON emits the summary, including latency percentiles and the
// non-empty histogram buckets, as indented JSON.
func WriteJSON(w io.Writer, s Summary) error {
	out := summaryJSON{
		Concurrency:         s.Concurrency,
		Workers:             s.Workers,
		Attempted:           s.Counters.Attempted,
		Success:             s.Counters.Success,
		Failed:              s.Counters.Failed(),
		SuccessRate:         s.Counters.SuccessRate(),
		ErrorRate:           s.Counters.ErrorRate(),
		Start:               s.Start,
		End:                 s.End,
		ElapsedSeconds:      s.Elapsed.Seconds(),
		RequestsPerSec:      s.RequestsPerSec,
		TimePerRequestMs:    s.TimePerRequestMs,
		TimePerRequestAllMs: s.TimePerRequestAllMs,
		PerWorker:           s.PerWorker,
	}

	if s.Histogram != nil && s.Histogram.TotalCount() > 0 {
		lat := &latencyJSON{
			Samples: s.Histogram.TotalCount(),
			Buckets: s.Histogram.Buckets(),
		}
		for _, q := range percentiles {
			b, err := s.Histogram.Percentile(q)
			if err != nil {
				return err
			}
			lat.Percentiles = append(lat.Percentiles, percentileJSON{Percentile: q, Micros: b.Midpoint()})
		}
		out.Latency = lat
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV emits one row per worker.
func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)

	header := []string{"worker", "attempted", "success", "failed", "elapsed_ms", "requests_per_sec"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, wt := range s.PerWorker {
		record := []string{
			strconv.Itoa(wt.Worker),
			strconv.FormatUint(wt.Attempted, 10),
			strconv.FormatUint(wt.Success, 10),
			strconv.FormatUint(wt.Attempted-wt.Success, 10),
			strconv.FormatInt(wt.Elapsed.Milliseconds(), 10),
			fmt.Sprintf("%.2f", wt.RequestsPerSec),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
