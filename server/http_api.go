package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// GET /api/vehicles
func serveVehicles(w http.ResponseWriter, r *http.Request) {
	if sim == nil {
		http.Error(w, "Simulation not initialized", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"vehicles": dumpSimulation(sim).Vehicles})
}

// GET /api/vehicles/{id}
func serveVehicleByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Bad vehicle id", http.StatusBadRequest)
		return
	}
	if sim.VehicleByID(id) == nil {
		http.Error(w, "VEHICLE_NOT_FOUND", http.StatusNotFound)
		return
	}
	for _, dv := range dumpSimulation(sim).Vehicles {
		if dv.ID == id {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_ = json.NewEncoder(w).Encode(dv)
			return
		}
	}
	http.Error(w, "VEHICLE_NOT_FOUND", http.StatusNotFound)
}

// GET /api/stations
func serveStations(w http.ResponseWriter, r *http.Request) {
	if sim == nil {
		http.Error(w, "Simulation not initialized", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"stations": dumpSimulation(sim).Stations})
}

// GET /api/stations/{id}
func serveStationByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if sim.StationByID(id) == nil {
		http.Error(w, "STATION_NOT_FOUND", http.StatusNotFound)
		return
	}
	for _, ds := range dumpSimulation(sim).Stations {
		if ds.ID == id {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_ = json.NewEncoder(w).Encode(ds)
			return
		}
	}
	http.Error(w, "STATION_NOT_FOUND", http.StatusNotFound)
}

// GET /api/system/overview
func serveSystemOverview(w http.ResponseWriter, r *http.Request) {
	if sim == nil {
		http.Error(w, "Simulation not initialized", http.StatusServiceUnavailable)
		return
	}
	d := dumpSimulation(sim)
	byState := map[string]int{}
	for _, v := range d.Vehicles {
		byState[v.State]++
	}
	resp := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"system": map[string]interface{}{
			"title":       d.Title,
			"description": d.Description,
			"tick":        d.Tick,
			"running":     sim.IsStarted(),
			"terminated":  d.Terminated,
		},
		"totals": map[string]interface{}{
			"vehicles":      len(d.Vehicles),
			"stations":      len(d.Stations),
			"byState":       byState,
			"completed":     sim.Metrics.CompletedCount,
			"stranded":      sim.Metrics.StrandedCount,
			"yieldsAverted": sim.Metrics.YieldsAverted,
		},
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

func installHTTPAPI(router *mux.Router) {
	router.HandleFunc("/api/vehicles", serveVehicles).Methods(http.MethodGet)
	router.HandleFunc("/api/vehicles/{id}", serveVehicleByID).Methods(http.MethodGet)
	router.HandleFunc("/api/stations", serveStations).Methods(http.MethodGet)
	router.HandleFunc("/api/stations/{id}", serveStationByID).Methods(http.MethodGet)
	router.HandleFunc("/api/system/overview", serveSystemOverview).Methods(http.MethodGet)
	router.HandleFunc("/api/analytics/kpis", serveKPI).Methods(http.MethodGet)
	router.HandleFunc("/api/analytics/historical", serveKPIHistorical).Methods(http.MethodGet)
	router.HandleFunc("/api/simulation/restart", serveSimulationRestart).Methods(http.MethodPost)
	router.HandleFunc("/api/negotiations/hints", serveNegotiationHints).Methods(http.MethodGet)
	router.HandleFunc("/api/negotiations/{id}/respond", serveNegotiationRespond).Methods(http.MethodPost)
	router.HandleFunc("/api/audit/logs", serveAuditLogs).Methods(http.MethodGet)
	router.HandleFunc("/api/audit/stream", serveAuditStream).Methods(http.MethodGet)
}
