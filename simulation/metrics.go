package simulation

// Metrics accumulates system-wide counters across the run (§6). Per-vehicle
// counters (distance, ticks charging/waiting, replans) live directly on
// each Vehicle and are read from there by the server package; Metrics
// itself only holds figures that have no single vehicle owner.
type Metrics struct {
	CompletedCount      int
	StrandedCount       int
	YieldsAverted       int
	TotalTicksWaiting   int
	TotalTicksCharging  int
	CounterProposalsByBehavior map[Behavior]int
	AcceptedByBehavior         map[Behavior]int
	RejectedByBehavior         map[Behavior]int

	peakQueue map[string]int
	busyTicks map[string]int
}

func newMetrics() *Metrics {
	return &Metrics{
		CounterProposalsByBehavior: make(map[Behavior]int),
		AcceptedByBehavior:         make(map[Behavior]int),
		RejectedByBehavior:         make(map[Behavior]int),
		peakQueue:                  make(map[string]int),
		busyTicks:                  make(map[string]int),
	}
}

func (m *Metrics) recordCompleted(vehicleID int) { m.CompletedCount++ }
func (m *Metrics) recordStranded(vehicleID int)  { m.StrandedCount++ }
func (m *Metrics) recordYield()                  { m.YieldsAverted++ }

// tickWaiting/tickCharging fold a single vehicle's per-tick state into the
// system-wide totals; per-vehicle counts still live on Vehicle itself
// (TicksWaiting/TicksCharging) for the KPI/audit surfaces that report by id.
func (m *Metrics) tickWaiting(vehicleID int)  { m.TotalTicksWaiting++ }
func (m *Metrics) tickCharging(vehicleID int) { m.TotalTicksCharging++ }

func (m *Metrics) recordProposal(b Behavior, accepted bool) {
	m.CounterProposalsByBehavior[b]++
	if accepted {
		m.AcceptedByBehavior[b]++
	} else {
		m.RejectedByBehavior[b]++
	}
}

func (m *Metrics) observeQueueDepth(stationID string, depth int) {
	if depth > m.peakQueue[stationID] {
		m.peakQueue[stationID] = depth
	}
}

func (m *Metrics) observeBusy(stationID string, occupied bool) {
	if occupied {
		m.busyTicks[stationID]++
	}
}

// PeakQueue returns the highest observed queue depth for a station.
func (m *Metrics) PeakQueue(stationID string) int { return m.peakQueue[stationID] }

// Utilization returns busyTicks/totalTicks for a station (0 if totalTicks is 0).
func (m *Metrics) Utilization(stationID string, totalTicks int) float64 {
	if totalTicks == 0 {
		return 0
	}
	return float64(m.busyTicks[stationID]) / float64(totalTicks)
}

// FairnessIndex computes Jain's fairness index over a set of per-vehicle
// shares (e.g. ticks waited), 1.0 meaning perfectly equal allocation.
func FairnessIndex(shares []float64) float64 {
	if len(shares) == 0 {
		return 1
	}
	var sum, sumSq float64
	for _, s := range shares {
		sum += s
		sumSq += s * s
	}
	if sumSq == 0 {
		return 1
	}
	n := float64(len(shares))
	return (sum * sum) / (n * sumSq)
}
