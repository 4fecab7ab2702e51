package server

import (
	"encoding/json"
	"fmt"

	"github.com/chargesim/chargesim/simulation"
)

type negotiationsObject struct{}

// dispatch processes requests on the negotiations object: the operator
// console's view into load-balancing candidates the engine has proposed
// (negotiations.go), distinct from the per-tick automatic counter-proposal
// adjudication the orchestrator runs on its own.
func (n *negotiationsObject) dispatch(h *Hub, req Request, conn *connection) {
	ch := conn.pushChan
	switch req.Action {
	case "list":
		items := sim.Negotiations
		if items == nil {
			items = simulation.RecomputeNegotiations()
		}
		data, err := json.Marshal(items)
		if err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("internal error: %s", err))
			return
		}
		ch <- NewResponse(req.ID, RawJSON(data))
	case "accept":
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
			return
		}
		if err := simulation.AcceptNegotiation(p.ID); err != nil {
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		simulation.RecomputeNegotiations()
		ch <- NewOkResponse(req.ID, "Negotiation accepted")
	case "reject":
		var p struct {
			ID            string `json:"id"`
			CooldownTicks int    `json:"cooldownTicks"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
			return
		}
		if err := simulation.RejectNegotiation(p.ID, p.CooldownTicks); err != nil {
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewOkResponse(req.ID, "Negotiation rejected")
	case "recompute":
		simulation.RecomputeNegotiations()
		ch <- NewOkResponse(req.ID, "Recomputed")
	default:
		ch <- NewErrorResponse(req.ID, fmt.Errorf("unknown action %s/%s", req.Object, req.Action))
		logger.Debug("Request for unknown action received", "submodule", "hub", "object", req.Object, "action", req.Action)
	}
}

var _ hubObject = new(negotiationsObject)

func init() {
	hub.objects["negotiations"] = new(negotiationsObject)
}
