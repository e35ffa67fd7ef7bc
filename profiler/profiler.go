// Package profiler tracks operation timings (feature extraction, prediction,
// training) and custom metrics, and reports them through the logger and the
// stats endpoint.
package profiler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/nvr-ai/go-tumorscope/logging"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// MetricsCollector defines the interface for collecting custom metrics.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// Profiler records operation timings and custom metrics.
//
// The profiler is thread-safe. When started with a positive report interval it
// logs a periodic status report; Snapshot can be called at any time.
type Profiler struct {
	// Configuration
	reportInterval time.Duration
	maxSamples     int
	logger         zerolog.Logger

	// State management
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	startTime time.Time
	running   bool

	// Custom metrics
	customMetrics map[string]*metricTracker
	collectors    []MetricsCollector

	// Performance tracking
	operationTimes map[string]*timeTracker
}

// metricTracker tracks statistics for a custom metric over a sliding window.
type metricTracker struct {
	values   []float64
	sum      float64
	min      float64
	max      float64
	count    int64
	lastTime time.Time
}

// timeTracker tracks operation timing statistics over a sliding window.
type timeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
	failures  int64
}

// Options configures the profiler.
type Options struct {
	// ReportInterval specifies how often to log status reports. Zero disables reports.
	ReportInterval time.Duration `yaml:"report_interval" json:"report_interval"`
	// MaxSamples specifies the sliding window size per metric (default: 600)
	MaxSamples int `yaml:"max_samples" json:"max_samples"`
}

// New creates a profiler with the specified options.
//
// Arguments:
// - opts: Configuration options for the profiler
// - logger: The logger status reports are written to
//
// Returns:
// - A configured Profiler instance
func New(opts Options, logger zerolog.Logger) *Profiler {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}

	return &Profiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		logger:         logging.Component(logger, "profiler"),
		startTime:      time.Now(),
		customMetrics:  make(map[string]*metricTracker),
		operationTimes: make(map[string]*timeTracker),
	}
}

// Start begins periodic collection and reporting. It is a no-op when already
// running or when no report interval is configured.
func (p *Profiler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.reportInterval <= 0 {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.collect()
				p.emitStatusReport()
			}
		}
	}()
}

// Stop gracefully stops reporting and waits for the reporter to exit.
func (p *Profiler) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// AddMetricsCollector registers a custom metrics collector polled on every
// report tick.
func (p *Profiler) AddMetricsCollector(collector MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collectors = append(p.collectors, collector)
}

// RecordMetric records a custom metric value.
//
// Arguments:
// - name: The name of the metric
// - value: The metric value to record
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordMetricLocked(name, value)
}

func (p *Profiler) recordMetricLocked(name string, value float64) {
	tracker, exists := p.customMetrics[name]
	if !exists {
		tracker = &metricTracker{
			values: make([]float64, 0, p.maxSamples),
			min:    value,
			max:    value,
		}
		p.customMetrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	if len(tracker.values) > p.maxSamples {
		// Remove oldest sample
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}

	tracker.sum += value
	tracker.count++
	tracker.lastTime = time.Now()

	if value < tracker.min {
		tracker.min = value
	}
	if value > tracker.max {
		tracker.max = value
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes, with the operation error
//
// @example
//
//	done := prof.StartOperation("predict")
//	res, err := detector.Predict(img)
//	done(err)
func (p *Profiler) StartOperation(name string) func(err error) {
	start := time.Now()
	return func(err error) {
		p.recordOperationTime(name, time.Since(start), err != nil)
	}
}

// recordOperationTime records the completion time of an operation.
func (p *Profiler) recordOperationTime(name string, duration time.Duration, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &timeTracker{
			minTime: duration,
			maxTime: duration,
		}
		p.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	if len(tracker.durations) > p.maxSamples {
		// Remove oldest sample
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.totalTime += duration
	tracker.count++
	if failed {
		tracker.failures++
	}

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// collect polls the registered collectors.
func (p *Profiler) collect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, collector := range p.collectors {
		for name, value := range collector.CollectMetrics() {
			p.recordMetricLocked(name, value)
		}
	}
}

// emitStatusReport logs a status report.
func (p *Profiler) emitStatusReport() {
	snap := p.Snapshot()

	event := p.logger.Info().
		Dur("uptime", snap.Uptime.Truncate(time.Millisecond)).
		Int("goroutines", snap.Goroutines).
		Str("heap_alloc", formatBytes(snap.Memory.HeapAlloc)).
		Uint32("gc_cycles", snap.Memory.GCCycles)

	ops := zerolog.Dict()
	for name, op := range snap.Operations {
		ops = ops.Str(name, fmt.Sprintf("avg=%v p95=%v count=%d failures=%d",
			op.Avg.Truncate(time.Microsecond), op.P95.Truncate(time.Microsecond), op.Count, op.Failures))
	}
	metrics := zerolog.Dict()
	for name, m := range snap.Metrics {
		metrics = metrics.Str(name, fmt.Sprintf("avg=%.2f min=%.2f max=%.2f samples=%d", m.Avg, m.Min, m.Max, m.Samples))
	}

	event.Dict("operations", ops).Dict("metrics", metrics).Msg("status report")
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// MemoryStats is a subset of runtime.MemStats.
type MemoryStats struct {
	Alloc         uint64  `json:"alloc"`
	Sys           uint64  `json:"sys"`
	HeapAlloc     uint64  `json:"heap_alloc"`
	HeapObjects   uint64  `json:"heap_objects"`
	GCCycles      uint32  `json:"gc_cycles"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
}

// MetricStats summarizes a custom metric window.
type MetricStats struct {
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
	Count   int64   `json:"count"`
}

// OperationStats summarizes an operation timing window.
type OperationStats struct {
	Avg      time.Duration `json:"avg"`
	Min      time.Duration `json:"min"`
	Max      time.Duration `json:"max"`
	P95      time.Duration `json:"p95"`
	Count    int64         `json:"count"`
	Failures int64         `json:"failures"`
}

// Snapshot is a point-in-time view of the profiler.
type Snapshot struct {
	Uptime     time.Duration             `json:"uptime"`
	Goroutines int                       `json:"goroutines"`
	Memory     MemoryStats               `json:"memory"`
	Metrics    map[string]MetricStats    `json:"metrics"`
	Operations map[string]OperationStats `json:"operations"`
}

// Snapshot returns the current profiling statistics.
func (p *Profiler) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	snap := Snapshot{
		Uptime:     time.Since(p.startTime),
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryStats{
			Alloc:         ms.Alloc,
			Sys:           ms.Sys,
			HeapAlloc:     ms.HeapAlloc,
			HeapObjects:   ms.HeapObjects,
			GCCycles:      ms.NumGC,
			GCCPUFraction: ms.GCCPUFraction,
		},
		Metrics:    make(map[string]MetricStats, len(p.customMetrics)),
		Operations: make(map[string]OperationStats, len(p.operationTimes)),
	}

	for name, tracker := range p.customMetrics {
		if len(tracker.values) == 0 {
			continue
		}
		snap.Metrics[name] = MetricStats{
			Avg:     tracker.sum / float64(len(tracker.values)),
			Min:     tracker.min,
			Max:     tracker.max,
			Samples: len(tracker.values),
			Count:   tracker.count,
		}
	}

	for name, tracker := range p.operationTimes {
		if len(tracker.durations) == 0 {
			continue
		}
		sorted := make([]float64, len(tracker.durations))
		for i, d := range tracker.durations {
			sorted[i] = float64(d)
		}
		sort.Float64s(sorted)

		snap.Operations[name] = OperationStats{
			Avg:      tracker.totalTime / time.Duration(len(tracker.durations)),
			Min:      tracker.minTime,
			Max:      tracker.maxTime,
			P95:      time.Duration(stat.Quantile(0.95, stat.Empirical, sorted, nil)),
			Count:    tracker.count,
			Failures: tracker.failures,
		}
	}

	return snap
}
