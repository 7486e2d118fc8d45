package history

import (
	"sync"
	"time"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

// EventKind labels entries in an EventWindow.
type EventKind string

const (
	EventAddressChange EventKind = "address_change"
	EventRecovery      EventKind = "recovery"
)

// EventWindow is a time-bounded FIFO of timestamped events, one queue per
// kind. Insertion is O(1); entries older than the window are dropped lazily
// on read, so the structure never grows past its bound when queried.
type EventWindow struct {
	mu     sync.Mutex
	window time.Duration
	events map[EventKind][]time.Time
}

// NewEventWindow creates an event window with the given age bound.
func NewEventWindow(window time.Duration) *EventWindow {
	return &EventWindow{
		window: window,
		events: make(map[EventKind][]time.Time),
	}
}

// Record appends one event of the given kind.
func (w *EventWindow) Record(kind EventKind, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events[kind] = append(w.events[kind], at)
}

// Count returns how many events of the kind fall inside the window ending
// at now, evicting everything older.
func (w *EventWindow) Count(kind EventKind, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.evict(kind, now))
}

// RatePerHour returns the in-window event count normalized to one hour.
func (w *EventWindow) RatePerHour(kind EventKind, now time.Time) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.evict(kind, now)
	if len(kept) == 0 {
		return 0
	}
	return float64(len(kept)) * float64(time.Hour) / float64(w.window)
}

// evict drops entries older than the window bound. Caller holds the lock.
func (w *EventWindow) evict(kind EventKind, now time.Time) []time.Time {
	cutoff := now.Add(-w.window)
	queue := w.events[kind]
	i := 0
	for i < len(queue) && !queue[i].After(cutoff) {
		i++
	}
	if i > 0 {
		queue = append([]time.Time(nil), queue[i:]...)
		w.events[kind] = queue
	}
	return queue
}

// SampleWindow keeps the last N API call samples per operation. Oldest
// entries are evicted first; the count bound is enforced on insert so the
// store holds at most N samples per operation at all times.
type SampleWindow struct {
	mu      sync.Mutex
	maxSize int
	samples map[types.Operation][]types.APICallSample
}

// NewSampleWindow creates a sample window holding at most maxSize samples
// per operation.
func NewSampleWindow(maxSize int) *SampleWindow {
	return &SampleWindow{
		maxSize: maxSize,
		samples: make(map[types.Operation][]types.APICallSample),
	}
}

// Record appends one sample, evicting the oldest if the bound is reached.
func (w *SampleWindow) Record(sample types.APICallSample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	queue := append(w.samples[sample.Operation], sample)
	if len(queue) > w.maxSize {
		queue = append([]types.APICallSample(nil), queue[len(queue)-w.maxSize:]...)
	}
	w.samples[sample.Operation] = queue
}

// Recent returns up to n of the newest samples for the operation, oldest
// first.
func (w *SampleWindow) Recent(op types.Operation, n int) []types.APICallSample {
	w.mu.Lock()
	defer w.mu.Unlock()

	queue := w.samples[op]
	if n > len(queue) {
		n = len(queue)
	}
	out := make([]types.APICallSample, n)
	copy(out, queue[len(queue)-n:])
	return out
}

// SuccessRate returns the percentage of successful calls among the held
// samples for the operation. With no samples it reports 100: an operation
// that has never been tried has not failed.
func (w *SampleWindow) SuccessRate(op types.Operation) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	queue := w.samples[op]
	if len(queue) == 0 {
		return 100
	}
	ok := 0
	for _, s := range queue {
		if s.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(queue)) * 100
}

// LastDuration returns the duration of the newest sample for the operation,
// or zero when none exists.
func (w *SampleWindow) LastDuration(op types.Operation) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	queue := w.samples[op]
	if len(queue) == 0 {
		return 0
	}
	return queue[len(queue)-1].Duration
}
