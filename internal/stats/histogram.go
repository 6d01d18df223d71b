package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"
)

var (
	ErrIncompatible      = errors.New("histogram configurations differ")
	ErrNoData            = errors.New("histogram has no samples")
	ErrInvalidPercentile = errors.New("percentile must be in (0, 100]")
)

// Process-wide histogram layout: 128 linear buckets per power of two, values up to 2^32us.
const (
	DefaultGroupingPower uint8 = 7
	DefaultMaxValuePower uint8 = 32
)

// groupingPower -> significant figures of the underlying HDR layout.
// HDR keeps 2^ceil(log2(2*10^sf))/2 sub-buckets per power of two.
var sigFigsByGrouping = map[uint8]int{
	4:  1,
	7:  2,
	10: 3,
	14: 4,
	17: 5,
}

// HistogramConfig is the two-parameter logarithmic layout shared by every
// histogram of a run. Histograms only merge when their configs are equal.
type HistogramConfig struct {
	GroupingPower uint8 `json:"grouping_power" mapstructure:"grouping_power"`
	MaxValuePower uint8 `json:"max_value_power" mapstructure:"max_value_power"`
}

func DefaultHistogramConfig() HistogramConfig {
	return HistogramConfig{
		GroupingPower: DefaultGroupingPower,
		MaxValuePower: DefaultMaxValuePower,
	}
}

func (c HistogramConfig) Validate() error {
	if _, ok := sigFigsByGrouping[c.GroupingPower]; !ok {
		return fmt.Errorf("unsupported grouping power %d (want one of 4, 7, 10, 14, 17)", c.GroupingPower)
	}
	if c.MaxValuePower <= c.GroupingPower+1 || c.MaxValuePower > 62 {
		return fmt.Errorf("max value power %d out of range (%d, 62]", c.MaxValuePower, c.GroupingPower+1)
	}
	return nil
}

// Limit is the smallest value that is no longer representable.
func (c HistogramConfig) Limit() uint64 {
	return uint64(1) << c.MaxValuePower
}

func (c HistogramConfig) newHDR() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, int64(c.Limit()-1), sigFigsByGrouping[c.GroupingPower])
}

// Bucket is a contiguous, inclusive range of values and the samples that fell into it.
type Bucket struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
	Count uint64 `json:"count"`
}

// Midpoint is the value reported for the bucket.
func (b Bucket) Midpoint() uint64 {
	return b.Start + (b.End-b.Start)/2
}

// Snapshot is the exported bucket-count vector of a histogram.
type Snapshot struct {
	Config HistogramConfig `json:"config"`
	Counts []uint64        `json:"counts"`
}

// Histogram records latencies in microseconds. It is not safe for concurrent
// use; each worker owns its own instance and only snapshots cross goroutines.
type Histogram struct {
	cfg   HistogramConfig
	hist  *hdrhistogram.Histogram
	total uint64
}

func NewHistogram(cfg HistogramConfig) (*Histogram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Histogram{cfg: cfg, hist: cfg.newHDR()}, nil
}

// FromSnapshot rebuilds a histogram equivalent to the one the snapshot was taken from.
func FromSnapshot(s Snapshot) (*Histogram, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	empty := s.Config.newHDR().Export()
	if len(s.Counts) != len(empty.Counts) {
		return nil, fmt.Errorf("%w: snapshot has %d buckets, layout has %d",
			ErrIncompatible, len(s.Counts), len(empty.Counts))
	}

	var total uint64
	for i, c := range s.Counts {
		if c > math.MaxInt64 {
			return nil, fmt.Errorf("%w: bucket %d overflows", ErrIncompatible, i)
		}
		empty.Counts[i] = int64(c)
		total += c
	}
	return &Histogram{cfg: s.Config, hist: hdrhistogram.Import(empty), total: total}, nil
}

func (h *Histogram) Config() HistogramConfig {
	return h.cfg
}

// TotalCount is the number of samples actually recorded.
func (h *Histogram) TotalCount() uint64 {
	return h.total
}

// Increment records one sample. Values beyond the layout are dropped and
// reported with false.
func (h *Histogram) Increment(v uint64) bool {
	if v >= h.cfg.Limit() {
		return false
	}
	if err := h.hist.RecordValue(int64(v)); err != nil {
		return false
	}
	h.total++
	return true
}

// Merge returns a new histogram holding the elementwise sum of h and other.
func (h *Histogram) Merge(other *Histogram) (*Histogram, error) {
	if h.cfg != other.cfg {
		return nil, fmt.Errorf("%w: %+v vs %+v", ErrIncompatible, h.cfg, other.cfg)
	}
	// Import takes ownership of the counts slice.
	own := h.hist.Export()
	own.Counts = append([]int64(nil), own.Counts...)
	merged := hdrhistogram.Import(own)
	if dropped := merged.Merge(other.hist); dropped > 0 {
		return nil, fmt.Errorf("%w: %d samples dropped while merging", ErrIncompatible, dropped)
	}
	return &Histogram{cfg: h.cfg, hist: merged, total: h.total + other.total}, nil
}

func (h *Histogram) Snapshot() Snapshot {
	exported := h.hist.Export()
	counts := make([]uint64, len(exported.Counts))
	for i, c := range exported.Counts {
		counts[i] = uint64(c)
	}
	return Snapshot{Config: h.cfg, Counts: counts}
}

// Buckets lists the non-empty buckets in ascending order.
func (h *Histogram) Buckets() []Bucket {
	var out []Bucket
	for _, bar := range h.hist.Distribution() {
		if bar.Count <= 0 {
			continue
		}
		out = append(out, Bucket{
			Start: uint64(bar.From),
			End:   uint64(bar.To),
			Count: uint64(bar.Count),
		})
	}
	return out
}

// Percentile returns the first bucket whose cumulative count reaches p% of
// all samples.
func (h *Histogram) Percentile(p float64) (Bucket, error) {
	if math.IsNaN(p) || p <= 0 || p > 100 {
		return Bucket{}, ErrInvalidPercentile
	}
	if h.total == 0 {
		return Bucket{}, ErrNoData
	}

	rank := uint64(math.Ceil(p / 100 * float64(h.total)))
	if rank == 0 {
		rank = 1
	}
	if rank > h.total {
		rank = h.total
	}

	var seen uint64
	buckets := h.Buckets()
	for _, b := range buckets {
		seen += b.Count
		if seen >= rank {
			return b, nil
		}
	}
	return buckets[len(buckets)-1], nil
}
