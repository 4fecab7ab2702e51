//go:generate statik -src=../static

package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rakyll/statik/fs"

	_ "github.com/chargesim/chargesim/server/statik"
	"github.com/chargesim/chargesim/simulation"
	log "gopkg.in/inconshreveable/log15.v2"
)

const (
	DefaultAddr       string = "0.0.0.0"
	DefaultPort       string = "22222"
	MaxHubStartupTime        = 3 * time.Second
)

var (
	sim    *simulation.Simulation
	hub    = NewHub()
	logger log.Logger
)

// InitializeLogger creates the logger for the server module.
func InitializeLogger(parentLogger log.Logger) {
	logger = parentLogger.New("module", "server")
}

// Run wires sim into the package, starts the websocket hub and the
// metrics/audit listeners, then blocks serving HTTP on addr:port.
func Run(s *simulation.Simulation, addr, port string) {
	logger.Info("Starting server")
	sim = s
	simulation.ResetNegotiationEngine(sim)
	startMetricsListener(sim)
	startAuditListener(sim)

	hubUp := make(chan bool)
	timer := time.After(MaxHubStartupTime)
	go hub.run(hubUp)
	select {
	case <-hubUp:
		HttpdStart(addr, port)
		os.Exit(1)
	case <-timer:
		log.Crit("Hub did not start")
		os.Exit(1)
	}
}

// HttpdStart serves:
//
//	/            - operator console home page with an embedded websocket client
//	/ws          - websocket endpoint for start/pause/restart, negotiations
//	/api/...     - REST surface (installHTTPAPI, http_api.go)
func HttpdStart(addr, port string) {
	statikFS, err := fs.New()
	if err != nil {
		logger.Crit("Unable to read statik FS", "error", err)
		return
	}
	homeTemplFile, err := statikFS.Open("/index.html")
	if err != nil {
		logger.Crit("Unable to read index.html from statikFS", "error", err)
		return
	}
	homeTemplData, err := ioutil.ReadAll(homeTemplFile)
	if err != nil {
		logger.Crit("Unable to open index.html", "error", err)
		return
	}
	homeTempl = template.Must(template.New("").Parse(string(homeTemplData)))

	router := mux.NewRouter()
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(statikFS)))
	router.HandleFunc("/", serveHome).Methods(http.MethodGet)
	router.HandleFunc("/ws", serveWs)
	router.HandleFunc("/api/negotiations", serveNegotiations).Methods(http.MethodGet)
	installHTTPAPI(router)

	serverAddress := fmt.Sprintf("%s:%s", addr, port)
	logger.Info("Starting HTTP", "submodule", "http", "address", serverAddress)
	err = http.ListenAndServe(serverAddress, router)
	logger.Crit("HTTP crashed", "submodule", "http", "error", err)
}

// serveHome serves the operator console's home page.
func serveHome(w http.ResponseWriter, r *http.Request) {
	logger.Debug("New HTTP connection", "submodule", "http", "remote", r.RemoteAddr)
	if r.URL.Path != "/" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Title       string
		Description string
		Host        string
	}{
		sim.Title,
		sim.Description,
		"ws://" + r.Host + "/ws",
	}
	homeTempl.Execute(w, data)
}

var homeTempl *template.Template

// serveNegotiations returns the current load-balancing candidate set as
// JSON, recomputing first if the client asks (?recompute=1) or none has
// been computed yet.
func serveNegotiations(w http.ResponseWriter, r *http.Request) {
	logger.Debug("New HTTP negotiations request", "submodule", "http", "remote", r.RemoteAddr)
	if r.Method != "GET" {
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
	if sim.Negotiations == nil {
		_, _ = w.Write([]byte(`{"items":[],"generatedAtTick":0}`))
		return
	}
	data, err := json.Marshal(sim.Negotiations)
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}
