package collector

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/distribution"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/history"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/log"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/reconcile"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/score"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/snapshot"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

// ResourceFetcher is the upstream dependency of the engine: one call per
// cycle returning per-kind lists or failures.
type ResourceFetcher interface {
	Fetch(ctx context.Context) *types.FetchResult
}

// Config holds engine parameters.
type Config struct {
	// PollInterval is the delay from the end of one cycle to the start of
	// the next. Cycles never overlap.
	PollInterval time.Duration

	// Version is reported in the monitoring info metric.
	Version string
}

// Engine runs the poll loop: fetch, build, reconcile, analyze, score,
// publish. It owns the Prometheus registry and the published-state cell.
// The loop is the single writer; HTTP handlers only ever read.
type Engine struct {
	cfg        Config
	fetcher    ResourceFetcher
	registry   *prometheus.Registry
	metrics    *Metrics
	events     *history.EventWindow
	perf       *history.SampleWindow
	instanceID string
	logger     zerolog.Logger

	// published is swapped whole once per cycle so readers never observe a
	// half-updated state. publishMu additionally spans gauge publication
	// and rendering, keeping one exposition internally consistent.
	published atomic.Pointer[types.PublishedState]
	publishMu sync.RWMutex

	// previous cycle state, touched only by the loop goroutine.
	prev     *types.Snapshot
	lastFull time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an engine. The sample window must be the same instance the
// fetcher records into.
func New(cfg Config, f ResourceFetcher, perf *history.SampleWindow) *Engine {
	registry := prometheus.NewRegistry()
	e := &Engine{
		cfg:        cfg,
		fetcher:    f,
		registry:   registry,
		metrics:    NewMetrics(registry),
		events:     history.NewEventWindow(time.Hour),
		perf:       perf,
		instanceID: uuid.NewString(),
		logger:     log.WithComponent("collector"),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	e.metrics.Info.WithLabelValues(cfg.Version, e.instanceID).Set(1)
	return e
}

// InstanceID returns the per-process engine identity.
func (e *Engine) InstanceID() string {
	return e.instanceID
}

// Published returns the last published state, or nil before the first
// completed cycle.
func (e *Engine) Published() *types.PublishedState {
	return e.published.Load()
}

// Start launches the poll loop. The first cycle runs immediately.
func (e *Engine) Start() {
	go e.run()
}

// Stop halts the loop, letting an in-flight cycle finish first. It returns
// once the loop has exited or the context expires.
func (e *Engine) Stop(ctx context.Context) error {
	close(e.stopCh)
	select {
	case <-e.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for poll loop: %w", ctx.Err())
	}
}

// MetricsHandler returns the /metrics handler. Rendering takes the read
// side of the publish lock so it never observes a half-written cycle, and
// it is deterministic: two renders with no cycle in between are identical.
func (e *Engine) MetricsHandler() http.Handler {
	inner := promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.publishMu.RLock()
		defer e.publishMu.RUnlock()
		inner.ServeHTTP(w, r)
	})
}

func (e *Engine) run() {
	defer close(e.doneCh)
	e.logger.Info().
		Dur("interval", e.cfg.PollInterval).
		Str("instance_id", e.instanceID).
		Msg("poll loop starting")

	for {
		e.runCycle(context.Background())

		select {
		case <-e.stopCh:
			e.logger.Info().Msg("poll loop stopped")
			return
		case <-time.After(e.cfg.PollInterval):
		}
	}
}

// runCycle executes one full poll cycle. A panic anywhere inside is
// recovered and counted; the previously published state stays in force.
func (e *Engine) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.ScrapeErrors.Inc()
			e.logger.Error().Interface("panic", r).Msg("poll cycle abandoned")
		}
	}()

	start := time.Now()
	result := e.fetcher.Fetch(ctx)

	for _, sample := range result.Samples {
		status := "success"
		if !sample.Success {
			status = "error"
		}
		e.metrics.APICallsTotal.WithLabelValues(string(sample.Operation), status).Inc()
	}
	if failures := result.FailureCount(); failures > 0 {
		e.metrics.ScrapeErrors.Add(float64(failures))
	}

	snap := snapshot.Build(result, e.prev, start)

	changes, recoveries := snapshot.Diff(e.prev, snap)
	for i := 0; i < changes; i++ {
		e.events.Record(history.EventAddressChange, start)
	}
	for i := 0; i < recoveries; i++ {
		e.events.Record(history.EventRecovery, start)
	}

	mismatches := reconcile.Reconcile(snap)
	dist := distribution.Analyze(snap)
	scores := e.computeScores(snap, dist, start)

	if result.AllSucceeded() {
		e.lastFull = start
	}

	state := &types.PublishedState{
		Snapshot:       snap,
		Mismatches:     mismatches,
		Distribution:   dist,
		Scores:         scores,
		ChangesHour:    e.events.Count(history.EventAddressChange, start),
		RecoverHour:    e.events.Count(history.EventRecovery, start),
		CycleDuration:  time.Since(start),
		LastFullScrape: e.lastFull,
		PublishedAt:    start,
	}

	e.publish(state)
	e.prev = snap

	e.logger.Debug().
		Int("requests", len(snap.Requests)).
		Int("assignments", len(snap.Assignments)).
		Int("nodes", len(snap.Nodes)).
		Bool("partial", snap.Partial).
		Dur("took", state.CycleDuration).
		Msg("poll cycle complete")
}

func (e *Engine) computeScores(snap *types.Snapshot, dist types.DistributionStats, now time.Time) types.Scores {
	totalAssigned := 0
	totalErrors := 0
	for _, a := range snap.Assignments {
		switch a.Phase {
		case types.PhaseSuccess:
			totalAssigned++
		case types.PhaseError:
			totalErrors++
		}
	}
	totalCapacity := 0
	for _, n := range snap.CapableNodes() {
		totalCapacity += n.Capacity
	}

	return score.Compute(score.Inputs{
		TotalAssigned:    totalAssigned,
		TotalAssignments: len(snap.Assignments),
		ErrorAssignments: totalErrors,
		TotalCapacity:    totalCapacity,
		Gini:             dist.Gini,
		ChangesPerHour:   e.events.RatePerHour(history.EventAddressChange, now),
	})
}

// publish writes one cycle's results into the gauges and swaps the state
// cell, all under the write lock so a concurrent render sees either the
// whole previous cycle or the whole new one.
func (e *Engine) publish(state *types.PublishedState) {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	m := e.metrics
	snap := state.Snapshot
	m.resetPerResource()

	configured := len(snap.Requests)
	assigned := 0
	for _, req := range snap.Requests {
		if len(req.Status) > 0 {
			assigned++
		}
	}
	m.EIPsConfigured.Set(float64(configured))
	m.EIPsAssigned.Set(float64(assigned))
	m.EIPsUnassigned.Set(float64(configured - assigned))
	if configured > 0 {
		m.EIPUtilization.Set(float64(assigned) / float64(configured) * 100)
	} else {
		m.EIPUtilization.Set(0)
	}

	e.publishAssignments(state)
	e.publishNodes(state)
	e.publishReconciliation(state)
	e.publishHistory(state)

	m.HealthScore.Set(state.Scores.Health)
	m.StabilityScore.Set(state.Scores.Stability)

	m.ScrapeDuration.Set(state.CycleDuration.Seconds())
	if !state.LastFullScrape.IsZero() {
		m.LastScrape.Set(float64(state.LastFullScrape.Unix()))
	}

	e.published.Store(state)
}

func (e *Engine) publishAssignments(state *types.PublishedState) {
	m := e.metrics
	snap := state.Snapshot

	success, pending, errored := 0, 0, 0
	for _, a := range snap.Assignments {
		switch a.Phase {
		case types.PhaseSuccess:
			success++
		case types.PhasePending:
			pending++
			if !a.LastTransition.IsZero() {
				m.CPICPendingDuration.WithLabelValues(a.Address).
					Set(snap.FetchedAt.Sub(a.LastTransition).Seconds())
			}
		case types.PhaseError:
			errored++
			if !a.LastTransition.IsZero() {
				m.CPICErrorDuration.WithLabelValues(a.Address).
					Set(snap.FetchedAt.Sub(a.LastTransition).Seconds())
			}
		}
	}
	m.CPICSuccess.Set(float64(success))
	m.CPICPending.Set(float64(pending))
	m.CPICError.Set(float64(errored))
}

func (e *Engine) publishNodes(state *types.PublishedState) {
	m := e.metrics
	snap := state.Snapshot
	capable := snap.CapableNodes()

	phaseCounts := make(map[string]map[types.AssignmentPhase]int)
	errorNodes := make(map[string]bool)
	for _, a := range snap.Assignments {
		if a.Node == "" {
			continue
		}
		if phaseCounts[a.Node] == nil {
			phaseCounts[a.Node] = make(map[types.AssignmentPhase]int)
		}
		phaseCounts[a.Node][a.Phase]++
		if a.Phase == types.PhaseError {
			errorNodes[a.Node] = true
		}
	}

	bound := make(map[string]int)
	for _, req := range snap.Requests {
		for _, b := range req.Status {
			bound[b.Node]++
		}
	}

	for _, n := range capable {
		m.NodeCPICSuccess.WithLabelValues(n.Name).Set(float64(phaseCounts[n.Name][types.PhaseSuccess]))
		m.NodeCPICPending.WithLabelValues(n.Name).Set(float64(phaseCounts[n.Name][types.PhasePending]))
		m.NodeCPICError.WithLabelValues(n.Name).Set(float64(phaseCounts[n.Name][types.PhaseError]))
		m.NodeEIPAssigned.WithLabelValues(n.Name).Set(float64(bound[n.Name]))
	}
	for _, ns := range state.Distribution.PerNode {
		m.NodeCapacity.WithLabelValues(ns.Node).Set(float64(ns.Capacity))
		m.NodeUtilization.WithLabelValues(ns.Node).Set(ns.UtilizationPercent)
	}

	m.NodesAvailable.Set(float64(len(capable)))
	m.NodesWithErrors.Set(float64(len(errorNodes)))

	m.DistributionStdDev.Set(state.Distribution.StdDev)
	m.DistributionGini.Set(state.Distribution.Gini)
	m.MaxPerNode.Set(float64(state.Distribution.Max))
	m.MinPerNode.Set(float64(state.Distribution.Min))
}

func (e *Engine) publishReconciliation(state *types.PublishedState) {
	m := e.metrics
	agg := reconcile.Aggregate(state.Mismatches)

	for _, kind := range []types.MismatchKind{
		types.NodeMismatch, types.MissingFromRequestStatus,
		types.Overcommitted, types.NoWorkingAssignment,
	} {
		m.MismatchTotal.WithLabelValues(string(kind)).Set(float64(agg.ByKind[kind]))
	}
	m.RequestsWithMismatch.Set(float64(agg.RequestsWithMismatch))
	m.OvercommitExcess.Set(float64(agg.OvercommitTotal))
	m.RequestsCritical.Set(float64(agg.Critical))
}

func (e *Engine) publishHistory(state *types.PublishedState) {
	m := e.metrics

	m.ChangesLastHour.Set(float64(state.ChangesHour))
	m.RecoveriesLastHour.Set(float64(state.RecoverHour))
	m.AssignmentRate.Set(float64(state.ChangesHour) / 60)

	for _, op := range types.Operations {
		m.APIResponseTime.WithLabelValues(string(op)).Set(e.perf.LastDuration(op).Seconds())
		m.APISuccessRate.WithLabelValues(string(op)).Set(e.perf.SuccessRate(op))
	}
}
