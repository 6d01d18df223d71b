package report

import (
	"fmt"
	"strconv"
)

// formatLatency picks the largest unit the value reaches.
func formatLatency(us uint64) (string, string) {
	switch {
	case us >= 1_000_000:
		return fmt.Sprintf("%.2f", float64(us)/1_000_000), "s"
	case us >= 1_000:
		return fmt.Sprintf("%.2f", float64(us)/1_000), "ms"
	default:
		return strconv.FormatUint(us, 10), "us"
	}
}

// formatLatencyRange renders both ends in the unit of the upper end.
func formatLatencyRange(start, end uint64) (string, string, string) {
	switch {
	case end >= 1_000_000:
		return fmt.Sprintf("%.2f", float64(start)/1_000_000), fmt.Sprintf("%.2f", float64(end)/1_000_000), "s"
	case end >= 1_000:
		return fmt.Sprintf("%.2f", float64(start)/1_000), fmt.Sprintf("%.2f", float64(end)/1_000), "ms"
	default:
		return strconv.FormatUint(start, 10), strconv.FormatUint(end, 10), "us"
	}
}
