package server

import "github.com/chargesim/chargesim/simulation"

// resetNegotiationEngine rebinds the negotiation engine to s, discarding any
// previously computed candidate set and rejection cooldowns. Called after
// sim.Reset() so a restarted run doesn't carry over stale negotiations.
func resetNegotiationEngine(s *simulation.Simulation) {
	simulation.ResetNegotiationEngine(s)
}

// dumpVehicle is the wire shape of one vehicle in a "dump" response —
// everything an operator console needs to render a roster row, without
// exposing sim's internal map.
type dumpVehicle struct {
	ID              int     `json:"id"`
	X               int     `json:"x"`
	Y               int     `json:"y"`
	Battery         float64 `json:"battery"`
	State           string  `json:"state"`
	AssignedStation string  `json:"assignedStation,omitempty"`
	QueuePos        int     `json:"queuePos,omitempty"`
	Behavior        string  `json:"behavior"`
}

type dumpStation struct {
	ID        string `json:"id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Capacity  int    `json:"capacity"`
	Occupants []int  `json:"occupants"`
	Queue     []int  `json:"queue"`
}

// simulationDump is the full wire shape of the "dump" hub action, a
// one-shot snapshot for clients that don't want to replay the event
// stream (e.g. a freshly connected web client painting its initial view).
type simulationDump struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Tick        int           `json:"tick"`
	Terminated  bool          `json:"terminated"`
	Vehicles    []dumpVehicle `json:"vehicles"`
	Stations    []dumpStation `json:"stations"`
}

func dumpSimulation(s *simulation.Simulation) *simulationDump {
	d := &simulationDump{
		Title:       s.Title,
		Description: s.Description,
		Tick:        s.Tick(),
		Terminated:  s.IsTerminated(),
	}
	for _, v := range s.Vehicles() {
		d.Vehicles = append(d.Vehicles, dumpVehicle{
			ID:              v.ID,
			X:               v.Coord.X,
			Y:               v.Coord.Y,
			Battery:         v.Battery,
			State:           v.State.String(),
			AssignedStation: v.AssignedStation,
			QueuePos:        v.QueuePosOrZero(),
			Behavior:        v.Behavior.String(),
		})
	}
	for _, st := range s.Stations() {
		d.Stations = append(d.Stations, dumpStation{
			ID:        st.ID,
			X:         st.Coord.X,
			Y:         st.Coord.Y,
			Capacity:  st.Capacity,
			Occupants: append([]int(nil), st.Occupants...),
			Queue:     append([]int(nil), st.Queue...),
		})
	}
	return d
}
