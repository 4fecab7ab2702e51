package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	log "gopkg.in/inconshreveable/log15.v2"

	"github.com/chargesim/chargesim/server"
	"github.com/chargesim/chargesim/simulation"
)

// Exit codes per the run's error table: 0 success, 1 configuration error,
// 2 simulation runtime error, 3 timeout with vehicles still incomplete.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitRuntimeError  = 2
	exitTimedOut      = 3
	defaultSafetyCap  = 1_000_000
	defaultServerAddr = server.DefaultAddr
	defaultServerPort = server.DefaultPort
)

var (
	scenarioPath string
	logLevel     string
	addr         string
	port         string
	batch        bool
	safetyCap    int
)

func main() {
	root := &cobra.Command{
		Use:   "chargesimd",
		Short: "Runs a battery-charging fleet coordination simulation",
		RunE:  run,
	}
	root.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "path to the scenario file (yaml/json/toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: crit, error, warn, info, debug")
	root.PersistentFlags().StringVar(&addr, "addr", defaultServerAddr, "address to bind the HTTP/websocket server to")
	root.PersistentFlags().StringVar(&port, "port", defaultServerPort, "port to bind the HTTP/websocket server to")
	root.PersistentFlags().BoolVar(&batch, "batch", false, "run to completion without starting the HTTP server, then exit")
	root.PersistentFlags().IntVar(&safetyCap, "safety-cap", defaultSafetyCap, "tick cap for --batch runs that never reach a terminal condition")
	_ = root.MarkPersistentFlagRequired("scenario")

	viper.SetEnvPrefix("CHARGESIM")
	viper.AutomaticEnv()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}

func run(cmd *cobra.Command, args []string) error {
	handler := log.LvlFilterHandler(parseLvl(logLevel), log.StreamHandler(colorable.NewColorableStdout(), log.TerminalFormat()))
	root := log.New()
	root.SetHandler(handler)
	simulation.InitializeLogger(root)
	server.InitializeLogger(root)
	logger := root.New("module", "main")

	sc, err := simulation.LoadScenario(scenarioPath)
	if err != nil {
		logger.Crit("Failed to load scenario", "error", err)
		return exitErr(exitConfigError, err)
	}

	sim, err := sc.Build()
	if err != nil {
		logger.Crit("Failed to build simulation", "error", err)
		return exitErr(exitConfigError, err)
	}
	logger.Info("Scenario loaded", "title", sim.Title, "vehicles", len(sim.Vehicles()), "stations", len(sim.Stations()))

	if batch {
		return runBatch(logger, sim)
	}

	server.Run(sim, addr, port)
	return nil
}

// runBatch drives the simulation to completion without the HTTP server,
// for scripted evaluation runs.
func runBatch(logger log.Logger, sim *simulation.Simulation) error {
	sim.RunUntilTerminal(safetyCap)

	if !sim.IsTerminated() {
		err := fmt.Errorf("simulation did not terminate within the %d tick safety cap", safetyCap)
		logger.Crit("Run did not terminate", "error", err)
		return exitErr(exitRuntimeError, err)
	}

	logger.Info("Run terminated", "tick", sim.Tick(), "kind", sim.TerminationKind, "message", sim.TerminationMsg,
		"completed", sim.Metrics.CompletedCount, "stranded", sim.Metrics.StrandedCount)

	switch sim.TerminationKind {
	case "":
		return nil
	case simulation.TimedOutErrorKind:
		return exitErr(exitTimedOut, fmt.Errorf(sim.TerminationMsg))
	default:
		return exitErr(exitRuntimeError, fmt.Errorf(sim.TerminationMsg))
	}
}

// exitErr prints msg's error and terminates the process with code,
// bypassing cobra's own error-printing so the process exit code matches
// the run's error table exactly rather than cobra's blanket exit(1).
func exitErr(code int, err error) error {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
	return nil
}

func parseLvl(s string) log.Lvl {
	lvl, err := log.LvlFromString(s)
	if err != nil {
		return log.LvlInfo
	}
	return lvl
}
