package server

import (
	"sort"
	"sync"
	"time"

	"github.com/chargesim/chargesim/simulation"
)

// Rolling-window tuning for realtime KPIs.
const (
	defaultWaitWindow       = 30 * time.Minute
	defaultThroughputWindow = 30 * time.Minute
	defaultAcceptanceWindow = 30 * time.Minute
	snapshotInterval        = 10 * time.Second
	maxSnapshots            = 1440
)

// kpiSnapshot is one point-in-time read of the fleet's health, partly folded
// from rolling event-driven samples (wait time, throughput), partly read
// straight off sim.Metrics' cumulative counters (utilization, stranded and
// acceptance rates), with fairness computed from each vehicle's TicksWaiting.
type kpiSnapshot struct {
	ts              time.Time
	utilization     float64
	avgWaitTicks    float64
	p90WaitTicks    float64
	throughput      int
	strandedRate    float64
	acceptanceRate  float64
	openQueueLength int
	fairnessIndex   float64
	efficiency      float64
	performance     float64
}

type waitSample struct {
	ts    time.Time
	ticks int
}

type metricsState struct {
	mu sync.RWMutex

	waitSamples []waitSample
	completions []time.Time

	snapshots []kpiSnapshot
}

var metrics = &metricsState{}

// startMetricsListener wires the rolling-window collector into sim's event
// stream and starts the periodic snapshot ticker: the listener captures
// per-event samples as they happen, the ticker folds them together with
// sim's cumulative counters into a point-in-time kpiSnapshot.
func startMetricsListener(s *simulation.Simulation) {
	s.AddListener(updateMetrics)
	go func() {
		ticker := time.NewTicker(snapshotInterval)
		for range ticker.C {
			takeSnapshot(s)
		}
	}()
}

func updateMetrics(e *simulation.Event) {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	switch e.Name {
	case simulation.VehicleCompletedEvent:
		v, ok := e.Object.(*simulation.Vehicle)
		if !ok {
			return
		}
		now := time.Now().UTC()
		metrics.completions = append(metrics.completions, now)
		metrics.waitSamples = append(metrics.waitSamples, waitSample{ts: now, ticks: v.TicksWaiting})
		trimCompletionsLocked()
		trimWaitSamplesLocked()
	case simulation.VehicleStrandedEvent:
		v, ok := e.Object.(*simulation.Vehicle)
		if !ok {
			return
		}
		metrics.waitSamples = append(metrics.waitSamples, waitSample{ts: time.Now().UTC(), ticks: v.TicksWaiting})
		trimWaitSamplesLocked()
	}
}

func trimCompletionsLocked() {
	cutoff := time.Now().UTC().Add(-defaultThroughputWindow)
	i := 0
	for ; i < len(metrics.completions); i++ {
		if metrics.completions[i].After(cutoff) {
			break
		}
	}
	metrics.completions = append([]time.Time{}, metrics.completions[i:]...)
}

func trimWaitSamplesLocked() {
	cutoff := time.Now().UTC().Add(-defaultWaitWindow)
	i := 0
	for ; i < len(metrics.waitSamples); i++ {
		if metrics.waitSamples[i].ts.After(cutoff) {
			break
		}
	}
	metrics.waitSamples = append([]waitSample{}, metrics.waitSamples[i:]...)
}

func takeSnapshot(s *simulation.Simulation) {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	stations := s.Stations()
	totalTicks := s.Tick()
	var busyShare float64
	var queueLen int
	var shares []float64
	for _, st := range stations {
		if st.Capacity > 0 {
			busyShare += s.Metrics.Utilization(st.ID, totalTicks)
		}
		queueLen += len(st.Queue)
	}
	util := 0.0
	if len(stations) > 0 {
		util = busyShare / float64(len(stations)) * 100.0
	}
	for _, v := range s.Vehicles() {
		shares = append(shares, float64(v.TicksWaiting))
	}

	avgWait, p90Wait := 0.0, 0.0
	if len(metrics.waitSamples) > 0 {
		vals := make([]float64, 0, len(metrics.waitSamples))
		sum := 0.0
		for _, w := range metrics.waitSamples {
			sum += float64(w.ticks)
			vals = append(vals, float64(w.ticks))
		}
		avgWait = sum / float64(len(vals))
		sort.Float64s(vals)
		idx := int(0.9*float64(len(vals)-1) + 0.5)
		if idx >= len(vals) {
			idx = len(vals) - 1
		}
		p90Wait = vals[idx]
	}

	throughput := len(metrics.completions)

	total := s.Metrics.CompletedCount + s.Metrics.StrandedCount
	strandedRate := 0.0
	if total > 0 {
		strandedRate = float64(s.Metrics.StrandedCount) / float64(total) * 100.0
	}

	var proposed, accepted int
	for _, n := range s.Metrics.CounterProposalsByBehavior {
		proposed += n
	}
	for _, n := range s.Metrics.AcceptedByBehavior {
		accepted += n
	}
	acceptanceRate := 0.0
	if proposed > 0 {
		acceptanceRate = float64(accepted) / float64(proposed) * 100.0
	}

	fairness := simulation.FairnessIndex(shares)
	efficiency := 100.0 - avgWait
	if efficiency < 0 {
		efficiency = 0
	}
	performance := 0.5*util + 0.3*float64(throughput) + 0.2*(100.0-strandedRate)

	snap := kpiSnapshot{
		ts:              time.Now().UTC(),
		utilization:     util,
		avgWaitTicks:    avgWait,
		p90WaitTicks:    p90Wait,
		throughput:      throughput,
		strandedRate:    strandedRate,
		acceptanceRate:  acceptanceRate,
		openQueueLength: queueLen,
		fairnessIndex:   fairness,
		efficiency:      efficiency,
		performance:     performance,
	}
	metrics.snapshots = append(metrics.snapshots, snap)
	if len(metrics.snapshots) > maxSnapshots {
		metrics.snapshots = metrics.snapshots[len(metrics.snapshots)-maxSnapshots:]
	}
}

// aggregateKPIs averages every snapshot within rangeDur and returns that
// average alongside a trend (latest 10% of snapshots vs the 10% before it).
func aggregateKPIs(rangeDur time.Duration) (kpiSnapshot, kpiSnapshot) {
	metrics.mu.RLock()
	defer metrics.mu.RUnlock()
	if len(metrics.snapshots) == 0 {
		return kpiSnapshot{ts: time.Now().UTC()}, kpiSnapshot{}
	}
	cutoff := time.Now().UTC().Add(-rangeDur)
	var windowed []kpiSnapshot
	for _, s := range metrics.snapshots {
		if s.ts.After(cutoff) {
			windowed = append(windowed, s)
		}
	}
	if len(windowed) == 0 {
		windowed = metrics.snapshots
	}
	agg := averageSlice(windowed)

	if len(metrics.snapshots) < 10 {
		return agg, kpiSnapshot{}
	}
	n := len(metrics.snapshots)
	w := n / 10
	if w < 1 {
		w = 1
	}
	cur := averageSlice(metrics.snapshots[n-w:])
	var prevStart int
	if n-2*w > 0 {
		prevStart = n - 2*w
	}
	prev := averageSlice(metrics.snapshots[prevStart : n-w])
	trend := kpiSnapshot{
		utilization:     cur.utilization - prev.utilization,
		avgWaitTicks:    cur.avgWaitTicks - prev.avgWaitTicks,
		p90WaitTicks:    cur.p90WaitTicks - prev.p90WaitTicks,
		throughput:      cur.throughput - prev.throughput,
		strandedRate:    cur.strandedRate - prev.strandedRate,
		acceptanceRate:  cur.acceptanceRate - prev.acceptanceRate,
		openQueueLength: cur.openQueueLength - prev.openQueueLength,
		fairnessIndex:   cur.fairnessIndex - prev.fairnessIndex,
		efficiency:      cur.efficiency - prev.efficiency,
		performance:     cur.performance - prev.performance,
	}
	return agg, trend
}

func averageSlice(ss []kpiSnapshot) kpiSnapshot {
	var a kpiSnapshot
	if len(ss) == 0 {
		return a
	}
	for _, s := range ss {
		a.utilization += s.utilization
		a.avgWaitTicks += s.avgWaitTicks
		a.p90WaitTicks += s.p90WaitTicks
		a.throughput += s.throughput
		a.strandedRate += s.strandedRate
		a.acceptanceRate += s.acceptanceRate
		a.openQueueLength += s.openQueueLength
		a.fairnessIndex += s.fairnessIndex
		a.efficiency += s.efficiency
		a.performance += s.performance
	}
	n := float64(len(ss))
	a.utilization /= n
	a.avgWaitTicks /= n
	a.p90WaitTicks /= n
	a.strandedRate /= n
	a.acceptanceRate /= n
	a.fairnessIndex /= n
	a.efficiency /= n
	a.performance /= n
	return a
}
