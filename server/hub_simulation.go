package server

import (
	"encoding/json"
	"fmt"
)

type simulationObject struct{}

// defaultRunUntilSafetyCap bounds a "run_until" call that specifies no
// explicit tick count, the same safety-cap role --batch plays for
// cmd/chargesimd (main.go).
const defaultRunUntilSafetyCap = 1_000_000

// dispatch processes requests made on the simulation object: the run
// controls the web client uses to start, pause, and reset a scenario.
func (s *simulationObject) dispatch(h *Hub, req Request, conn *connection) {
	ch := conn.pushChan
	logger.Debug("Request for simulation received", "submodule", "hub", "object", req.Object, "action", req.Action)
	switch req.Action {
	case "start":
		sim.Start()
		ch <- NewOkResponse(req.ID, "Simulation started")
	case "pause":
		sim.Pause()
		ch <- NewOkResponse(req.ID, "Simulation paused")
	case "step":
		if sim == nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("simulation not initialized"))
			return
		}
		if sim.IsStarted() {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("cannot single-step while running; pause first"))
			return
		}
		sim.Step()
		ch <- NewResponse(req.ID, dumpSimulation(sim))
	case "run_until":
		if sim == nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("simulation not initialized"))
			return
		}
		ticks := defaultRunUntilSafetyCap
		if req.Params != nil {
			var params map[string]interface{}
			if err := json.Unmarshal(req.Params, &params); err == nil {
				if v, ok := params["ticks"].(float64); ok && v > 0 {
					ticks = int(v)
				}
			}
		}
		sim.RunUntilTerminal(ticks)
		ch <- NewResponse(req.ID, dumpSimulation(sim))
	case "restart":
		if sim == nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("simulation not initialized"))
			return
		}
		sim.Reset()
		resetNegotiationEngine(sim)

		autoStart := false
		if req.Params != nil {
			var params map[string]interface{}
			if err := json.Unmarshal(req.Params, &params); err == nil {
				if v, ok := params["autoStart"].(bool); ok {
					autoStart = v
				}
			}
		}
		if autoStart {
			sim.Start()
			ch <- NewOkResponse(req.ID, "Simulation restarted and started")
		} else {
			ch <- NewOkResponse(req.ID, "Simulation restarted")
		}
	case "isStarted":
		ch <- NewResponse(req.ID, sim.IsStarted())
	case "dump":
		ch <- NewResponse(req.ID, dumpSimulation(sim))
	default:
		ch <- NewErrorResponse(req.ID, fmt.Errorf("unknown action %s/%s", req.Object, req.Action))
		logger.Debug("Request for unknown action received", "submodule", "hub", "object", req.Object, "action", req.Action)
	}
}

var _ hubObject = new(simulationObject)

func init() {
	hub.objects["simulation"] = new(simulationObject)
}
