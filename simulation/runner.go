package simulation

import "time"

// DefaultTickInterval is how often Start's background loop calls Step when
// no other interval has been set with SetTickInterval.
const DefaultTickInterval = 200 * time.Millisecond

// Vehicles returns every vehicle, sorted by ascending id. Exported for the
// server package's read-only views; the returned pointers are the live
// vehicles, not copies.
func (s *Simulation) Vehicles() []*Vehicle { return s.vehiclesSlice() }

// Stations returns every station, sorted by id.
func (s *Simulation) Stations() []*ChargingStation { return s.stationsSlice() }

// RecentLog returns the bounded recent-event buffer, oldest first. (The
// server's audit trail keeps its own buffer, fed by a Listener.)
func (s *Simulation) RecentLog() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Event, len(s.recentLog))
	copy(out, s.recentLog)
	return out
}

// Start launches a background goroutine that calls Step once per tick
// interval until Pause is called or the run terminates on its own. A
// second Start while already running is a no-op, so the hub's "start"
// action stays safe to re-trigger.
func (s *Simulation) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	interval := s.tickInterval
	if interval == 0 {
		interval = DefaultTickInterval
	}
	stop := s.stopCh
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Step()
				if s.IsTerminated() {
					s.mu.Lock()
					s.running = false
					s.mu.Unlock()
					return
				}
			}
		}
	}()
}

// Pause stops the background loop started by Start, if any.
func (s *Simulation) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

// IsStarted reports whether the background loop is currently running.
func (s *Simulation) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// IsTerminated reports whether the run has reached a terminal condition.
func (s *Simulation) IsTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Terminated
}

// SetTickInterval overrides the cadence used by Start; has no effect on an
// already-running loop until the next Start.
func (s *Simulation) SetTickInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickInterval = d
}
