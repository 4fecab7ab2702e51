package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/chargesim/chargesim/simulation"
)

// GET /api/analytics/kpis?timeRange=1h|6h|1d|1w|1m
func serveKPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rangeParam := r.URL.Query().Get("timeRange")
	var dur time.Duration
	switch rangeParam {
	case "1h":
		dur = time.Hour
	case "6h":
		dur = 6 * time.Hour
	case "1d":
		dur = 24 * time.Hour
	case "1w":
		dur = 7 * 24 * time.Hour
	case "1m":
		dur = 30 * 24 * time.Hour
	default:
		dur = time.Hour
	}
	agg, trend := aggregateKPIs(dur)
	resp := map[string]interface{}{
		"timeRange": rangeParam,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"kpis": map[string]interface{}{
			"utilization":     agg.utilization,
			"avgWaitTicks":    agg.avgWaitTicks,
			"p90WaitTicks":    agg.p90WaitTicks,
			"throughput":      agg.throughput,
			"strandedRate":    agg.strandedRate,
			"acceptanceRate":  agg.acceptanceRate,
			"openQueueLength": agg.openQueueLength,
			"fairnessIndex":   agg.fairnessIndex,
			"efficiency":      agg.efficiency,
			"performance":     agg.performance,
		},
		"trends": map[string]interface{}{
			"utilization":    map[string]interface{}{"change": trend.utilization, "direction": trendDirection(trend.utilization)},
			"avgWaitTicks":   map[string]interface{}{"change": trend.avgWaitTicks, "direction": trendDirection(-trend.avgWaitTicks)},
			"throughput":     map[string]interface{}{"change": float64(trend.throughput), "direction": trendDirection(float64(trend.throughput))},
			"strandedRate":   map[string]interface{}{"change": trend.strandedRate, "direction": trendDirection(-trend.strandedRate)},
			"acceptanceRate": map[string]interface{}{"change": trend.acceptanceRate, "direction": trendDirection(trend.acceptanceRate)},
			"fairnessIndex":  map[string]interface{}{"change": trend.fairnessIndex, "direction": trendDirection(trend.fairnessIndex)},
		},
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

func trendDirection(v float64) string {
	if v >= 0 {
		return "UP"
	}
	return "DOWN"
}

// GET /api/analytics/historical?metric=...&period=hourly
func serveKPIHistorical(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metric := r.URL.Query().Get("metric")
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "hourly"
	}
	metrics.mu.RLock()
	snaps := append([]kpiSnapshot{}, metrics.snapshots...)
	metrics.mu.RUnlock()
	series := []map[string]interface{}{}
	for _, s := range snaps {
		v := 0.0
		switch metric {
		case "utilization":
			v = s.utilization
		case "avgWaitTicks":
			v = s.avgWaitTicks
		case "p90WaitTicks":
			v = s.p90WaitTicks
		case "throughput":
			v = float64(s.throughput)
		case "strandedRate":
			v = s.strandedRate
		case "acceptanceRate":
			v = s.acceptanceRate
		case "openQueueLength":
			v = float64(s.openQueueLength)
		case "fairnessIndex":
			v = s.fairnessIndex
		default:
			v = s.performance
		}
		series = append(series, map[string]interface{}{"t": s.ts.Format(time.RFC3339), "v": v})
	}
	resp := map[string]interface{}{"metric": metric, "period": period, "series": series}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

// GET /api/negotiations/hints
func serveNegotiationHints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if sim == nil {
		http.Error(w, "Simulation not initialized", http.StatusServiceUnavailable)
		return
	}
	if r.URL.Query().Get("recompute") == "1" || sim.Negotiations == nil {
		simulation.RecomputeNegotiations()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(sim.Negotiations)
}

// POST /api/negotiations/{id}/respond
func serveNegotiationRespond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := mux.Vars(r)["id"]
	var body struct {
		Response      string `json:"response"` // "ACCEPT" | "REJECT"
		CooldownTicks int    `json:"cooldownTicks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	switch strings.ToUpper(body.Response) {
	case "ACCEPT":
		if err := simulation.AcceptNegotiation(id); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		simulation.RecomputeNegotiations()
	case "REJECT":
		if err := simulation.RejectNegotiation(id, body.CooldownTicks); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "unknown response", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

// POST /api/simulation/restart
func serveSimulationRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if sim == nil {
		http.Error(w, "Simulation not initialized", http.StatusServiceUnavailable)
		return
	}
	if sim.IsStarted() {
		sim.Pause()
	}
	sim.Reset()
	resetNegotiationEngine(sim)

	if r.URL.Query().Get("autoStart") == "1" {
		sim.Start()
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

// GET /api/audit/logs?sinceId=123&limit=200
func serveAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	sinceParam := q.Get("sinceId")
	limitParam := q.Get("limit")
	var sinceID int64
	var err error
	if sinceParam != "" {
		sinceID, err = strconv.ParseInt(sinceParam, 10, 64)
		if err != nil {
			http.Error(w, "Bad sinceId", http.StatusBadRequest)
			return
		}
	}
	limit := 200
	if limitParam != "" {
		if l, err2 := strconv.Atoi(limitParam); err2 == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	logs := audits.getSince(sinceID, limit)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": logs})
}

// GET /api/audit/stream (Server-Sent Events)
func serveAuditStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch := audits.subscribe()
	defer audits.unsubscribe(ch)
	_, _ = w.Write([]byte(":ok\n\n"))
	flusher.Flush()
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()
	enc := json.NewEncoder(w)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("event: audit\ndata: "))
			_ = enc.Encode(e)
			_, _ = w.Write([]byte("\n"))
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(":hb\n\n"))
			flusher.Flush()
		}
	}
}
