package loadgen

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Counters exposes publish outcomes.
type Counters interface {
	Sent() int64
	Failed() int64
}

// Summary is the outcome of a run. Percentiles are in milliseconds.
type Summary struct {
	Elapsed time.Duration
	Sent    int64
	Failed  int64
	P50     float64
	P95     float64
	P99     float64
}

// RequestsPerSecond averages successful publishes over whole elapsed seconds, with a floor of
// one second.
func (s Summary) RequestsPerSecond() int64 {
	seconds := math.Max(1, math.Round(s.Elapsed.Seconds()))
	return int64(math.Round(float64(s.Sent) / seconds))
}

// ReporterConfig wires a Reporter.
type ReporterConfig struct {
	Counters  Counters
	Histogram *LatencyHistogram
	Output    io.Writer
	Interval  time.Duration
	Colour    bool
	Clock     func() time.Time
}

// Reporter prints a progress line on an interval and the final summary.
type Reporter struct {
	counters  Counters
	histogram *LatencyHistogram
	output    io.Writer
	interval  time.Duration
	colour    bool
	clock     func() time.Time
	started   time.Time
}

func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	if cfg.Counters == nil {
		return nil, fmt.Errorf("loadgen: reporter counters are required")
	}
	if cfg.Histogram == nil {
		return nil, errMissingHistogram
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Reporter{
		counters:  cfg.Counters,
		histogram: cfg.Histogram,
		output:    cfg.Output,
		interval:  cfg.Interval,
		colour:    cfg.Colour,
		clock:     clock,
		started:   clock(),
	}, nil
}

// Snapshot captures the current counters and percentiles.
func (r *Reporter) Snapshot() Summary {
	return Summary{
		Elapsed: r.clock().Sub(r.started),
		Sent:    r.counters.Sent(),
		Failed:  r.counters.Failed(),
		P50:     r.histogram.Quantile(0.50),
		P95:     r.histogram.Quantile(0.95),
		P99:     r.histogram.Quantile(0.99),
	}
}

// Run prints a progress line every interval until ctx is done, then terminates the line.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.output)
			return
		case <-ticker.C:
			r.PrintProgress()
		}
	}
}

// PrintProgress rewrites the current terminal line with a fresh snapshot.
func (r *Reporter) PrintProgress() {
	line := FormatProgress(r.Snapshot())
	if r.colour {
		line = color.New(color.FgCyan).Render(line)
	}
	fmt.Fprintf(r.output, "%s      \r", line)
}

// FormatProgress renders a snapshot as a single status line.
func FormatProgress(s Summary) string {
	return fmt.Sprintf("t=%ds sent=%d fail=%d rps≈%d p50=%sms p95=%sms p99=%sms",
		int64(math.Round(s.Elapsed.Seconds())),
		s.Sent,
		s.Failed,
		s.RequestsPerSecond(),
		formatMillis(s.P50),
		formatMillis(s.P95),
		formatMillis(s.P99))
}

// WriteSummary renders the final summary as a table.
func WriteSummary(w io.Writer, s Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Sent", "Failed", "RPS", "P50 (ms)", "P95 (ms)", "P99 (ms)"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append([]string{
		strconv.FormatInt(s.Sent, 10),
		strconv.FormatInt(s.Failed, 10),
		strconv.FormatInt(s.RequestsPerSecond(), 10),
		formatMillis(s.P50),
		formatMillis(s.P95),
		formatMillis(s.P99),
	})
	table.Render()
}

func formatMillis(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
