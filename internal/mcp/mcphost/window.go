package mcphost

import (
	"slices"
	"sync"
)

// rollingWindow keeps the last size tool call outcomes for percentile and
// error-rate calculation. All methods are safe for concurrent use.
type rollingWindow struct {
	mu      sync.Mutex
	samples []sample
	pos     int // next write position
	count   int // total samples written, may exceed size
	size    int
}

type sample struct {
	latencyMs int64
	failed    bool
}

// newRollingWindow creates a window with the given capacity. A size of 0 or
// less defaults to [defaultWindowSize].
func newRollingWindow(size int) *rollingWindow {
	if size <= 0 {
		size = defaultWindowSize
	}
	return &rollingWindow{samples: make([]sample, size), size: size}
}

// Record adds one outcome, overwriting the oldest once the window is full.
func (w *rollingWindow) Record(latencyMs int64, isError bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples[w.pos] = sample{latencyMs: latencyMs, failed: isError}
	w.pos = (w.pos + 1) % w.size
	w.count++
}

func (w *rollingWindow) live() []sample {
	return w.samples[:min(w.count, w.size)]
}

func (w *rollingWindow) sortedLatencies() []int64 {
	live := w.live()
	out := make([]int64, len(live))
	for i, s := range live {
		out[i] = s.latencyMs
	}
	slices.Sort(out)
	return out
}

// P50 returns the median latency in ms, or 0 without samples.
func (w *rollingWindow) P50() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	sorted := w.sortedLatencies()
	if len(sorted) == 0 {
		return 0
	}
	return sorted[len(sorted)/2]
}

// P99 returns the 99th-percentile latency in ms, or 0 without samples.
func (w *rollingWindow) P99() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	sorted := w.sortedLatencies()
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*0.99)]
}

// ErrorRate returns the fraction of failed calls still inside the window.
func (w *rollingWindow) ErrorRate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	live := w.live()
	if len(live) == 0 {
		return 0
	}
	failed := 0
	for _, s := range live {
		if s.failed {
			failed++
		}
	}
	return float64(failed) / float64(len(live))
}

// Count returns the total number of recorded calls, including those that
// have left the window.
func (w *rollingWindow) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}
