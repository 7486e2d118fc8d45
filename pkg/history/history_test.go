package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

func TestEventWindowEvictsOldEntries(t *testing.T) {
	w := NewEventWindow(time.Hour)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	w.Record(EventAddressChange, base)
	w.Record(EventAddressChange, base.Add(3700*time.Second))

	// Queried at t=3700s the event at t=0 is outside the window.
	assert.Equal(t, 1, w.Count(EventAddressChange, base.Add(3700*time.Second)))
}

func TestEventWindowKeepsInBoundEntries(t *testing.T) {
	w := NewEventWindow(time.Hour)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		w.Record(EventAddressChange, base.Add(time.Duration(i)*time.Minute))
	}

	assert.Equal(t, 5, w.Count(EventAddressChange, base.Add(10*time.Minute)))
}

func TestEventWindowKindsAreIndependent(t *testing.T) {
	w := NewEventWindow(time.Hour)
	now := time.Now()

	w.Record(EventAddressChange, now)
	w.Record(EventAddressChange, now)
	w.Record(EventRecovery, now)

	assert.Equal(t, 2, w.Count(EventAddressChange, now))
	assert.Equal(t, 1, w.Count(EventRecovery, now))
}

func TestEventWindowRatePerHour(t *testing.T) {
	w := NewEventWindow(time.Hour)
	now := time.Now()

	assert.Zero(t, w.RatePerHour(EventAddressChange, now))

	for i := 0; i < 6; i++ {
		w.Record(EventAddressChange, now)
	}
	// One-hour window: the rate equals the in-window count.
	assert.InDelta(t, 6.0, w.RatePerHour(EventAddressChange, now), 1e-9)
}

func TestEventWindowBoundedAfterManyInserts(t *testing.T) {
	w := NewEventWindow(time.Hour)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// A day of events, one per minute.
	for i := 0; i < 24*60; i++ {
		w.Record(EventAddressChange, base.Add(time.Duration(i)*time.Minute))
	}

	count := w.Count(EventAddressChange, base.Add(24*time.Hour))
	assert.LessOrEqual(t, count, 60)
}

func TestSampleWindowCountBound(t *testing.T) {
	w := NewSampleWindow(100)
	now := time.Now()

	for i := 0; i < 250; i++ {
		w.Record(types.APICallSample{
			Operation: types.OpListRequests,
			Duration:  time.Duration(i) * time.Millisecond,
			Success:   true,
			At:        now,
		})
	}

	recent := w.Recent(types.OpListRequests, 200)
	require.Len(t, recent, 100)
	// Oldest retained sample is the 151st insert.
	assert.Equal(t, 150*time.Millisecond, recent[0].Duration)
	assert.Equal(t, 249*time.Millisecond, recent[99].Duration)
}

func TestSampleWindowSuccessRate(t *testing.T) {
	w := NewSampleWindow(100)

	// No samples yet: a never-tried operation has not failed.
	assert.InDelta(t, 100.0, w.SuccessRate(types.OpListNodes), 1e-9)

	for i := 0; i < 3; i++ {
		w.Record(types.APICallSample{Operation: types.OpListNodes, Success: true})
	}
	w.Record(types.APICallSample{Operation: types.OpListNodes, Success: false})

	assert.InDelta(t, 75.0, w.SuccessRate(types.OpListNodes), 1e-9)
}

func TestSampleWindowLastDuration(t *testing.T) {
	w := NewSampleWindow(10)

	assert.Zero(t, w.LastDuration(types.OpListAssignments))

	w.Record(types.APICallSample{Operation: types.OpListAssignments, Duration: time.Second})
	w.Record(types.APICallSample{Operation: types.OpListAssignments, Duration: 2 * time.Second})

	assert.Equal(t, 2*time.Second, w.LastDuration(types.OpListAssignments))
}

func TestSampleWindowOperationsAreIndependent(t *testing.T) {
	w := NewSampleWindow(2)

	w.Record(types.APICallSample{Operation: types.OpListRequests, Success: false})
	w.Record(types.APICallSample{Operation: types.OpListNodes, Success: true})

	assert.InDelta(t, 0.0, w.SuccessRate(types.OpListRequests), 1e-9)
	assert.InDelta(t, 100.0, w.SuccessRate(types.OpListNodes), 1e-9)
}
