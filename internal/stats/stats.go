// Package stats summarizes the latencies of repeated sequential transfers.
package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histogramMin     = 1
	histogramMax     = 3600000000 // 1 hour in microseconds
	histogramSigFigs = 3
)

// Recorder collects one latency sample per transfer. It is not safe for
// concurrent use; runs are recorded one after another.
type Recorder struct {
	hist      *hdrhistogram.Histogram
	succeeded int64
	failed    int64
	bytes     int64
}

// Summary is a point-in-time view of a Recorder.
type Summary struct {
	Count     int64         `json:"count" yaml:"count"`
	Succeeded int64         `json:"succeeded" yaml:"succeeded"`
	Failed    int64         `json:"failed" yaml:"failed"`
	Bytes     int64         `json:"bytes" yaml:"bytes"`
	Min       time.Duration `json:"min" yaml:"min"`
	Max       time.Duration `json:"max" yaml:"max"`
	Mean      time.Duration `json:"mean" yaml:"mean"`
	StdDev    time.Duration `json:"stddev" yaml:"stddev"`
	P50       time.Duration `json:"p50" yaml:"p50"`
	P90       time.Duration `json:"p90" yaml:"p90"`
	P95       time.Duration `json:"p95" yaml:"p95"`
	P99       time.Duration `json:"p99" yaml:"p99"`
}

// NewRecorder returns an empty Recorder covering 1µs to 1h.
func NewRecorder() *Recorder {
	return &Recorder{hist: hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)}
}

// Record adds one transfer. Latencies outside the histogram range are
// clamped to its bounds.
func (r *Recorder) Record(latency time.Duration, success bool, bytes int64) {
	micros := latency.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}
	_ = r.hist.RecordValue(micros)

	if success {
		r.succeeded++
	} else {
		r.failed++
	}
	r.bytes += bytes
}

// Summary returns the current percentiles and counters.
func (r *Recorder) Summary() Summary {
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Summary{
		Count:     r.hist.TotalCount(),
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Bytes:     r.bytes,
		Min:       us(r.hist.Min()),
		Max:       us(r.hist.Max()),
		Mean:      us(int64(r.hist.Mean())),
		StdDev:    us(int64(r.hist.StdDev())),
		P50:       us(r.hist.ValueAtQuantile(50)),
		P90:       us(r.hist.ValueAtQuantile(90)),
		P95:       us(r.hist.ValueAtQuantile(95)),
		P99:       us(r.hist.ValueAtQuantile(99)),
	}
}
