package simulation

import (
	"github.com/spf13/viper"

	"github.com/chargesim/chargesim/grid"
)

// Scenario is the on-disk description of a run: the map, the stations'
// capacities, the vehicle roster, and the tuning parameters. Loaded with
// viper so scenarios can be authored in YAML, JSON or TOML interchangeably.
type Scenario struct {
	Title       string   `mapstructure:"title"`
	Description string   `mapstructure:"description"`
	Map         []string `mapstructure:"map"`

	Stations []StationConfig `mapstructure:"stations"`
	Vehicles []VehicleConfig `mapstructure:"vehicles"`

	DrainPerStep  float64 `mapstructure:"drainPerStep"`
	LowThreshold  float64 `mapstructure:"lowThreshold"`
	ChargePerStep float64 `mapstructure:"chargePerStep"`
	ChargeTarget  float64 `mapstructure:"chargeTarget"`

	WeightDistance float64 `mapstructure:"weightDistance"`
	WeightBattery  float64 `mapstructure:"weightBattery"`
	WeightLoad     float64 `mapstructure:"weightLoad"`

	DeadlockTicks int `mapstructure:"deadlockTicks"`
	MaxTicks      int `mapstructure:"maxTicks"`
}

// StationConfig supplies the capacity for a station id that must appear in
// the ASCII map (map tokens carry only the id, not the capacity).
type StationConfig struct {
	ID       string `mapstructure:"id"`
	Capacity int    `mapstructure:"capacity"`
}

// VehicleConfig is one row of the scenario's vehicle roster.
type VehicleConfig struct {
	ID       int     `mapstructure:"id"`
	X        int     `mapstructure:"x"`
	Y        int     `mapstructure:"y"`
	Battery  float64 `mapstructure:"battery"`
	Behavior string  `mapstructure:"behavior"` // "cooperative" | "competitive" | "titfortat"
}

// LoadScenario reads and validates a scenario file at path, in any format
// viper supports (inferred from the extension).
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, newSimError(ConfigErrorKind, "reading scenario %q: %v", path, err)
	}
	var sc Scenario
	if err := v.Unmarshal(&sc); err != nil {
		return nil, newSimError(ConfigErrorKind, "decoding scenario %q: %v", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario's internal consistency before Build is
// attempted: a non-empty map, duplicate station and vehicle ids, positive
// capacities and batteries within [0,100]. Checks that need the parsed map
// (vehicles placed on obstacles, station placement) happen in Build.
func (sc *Scenario) Validate() error {
	if len(sc.Map) == 0 {
		return newSimError(ConfigErrorKind, "scenario has no map")
	}
	seenStation := map[string]bool{}
	for _, s := range sc.Stations {
		if seenStation[s.ID] {
			return newSimError(ConfigErrorKind, "duplicate station config id %q", s.ID)
		}
		seenStation[s.ID] = true
		if s.Capacity <= 0 {
			return newSimError(ConfigErrorKind, "station %q has non-positive capacity %d", s.ID, s.Capacity)
		}
	}
	seenVehicle := map[int]bool{}
	for _, v := range sc.Vehicles {
		if seenVehicle[v.ID] {
			return newSimError(ConfigErrorKind, "duplicate vehicle id %d", v.ID)
		}
		seenVehicle[v.ID] = true
		if v.Battery < 0 || v.Battery > 100 {
			return newSimError(ConfigErrorKind, "vehicle %d battery %.1f out of [0,100]", v.ID, v.Battery)
		}
	}
	return nil
}

// Build parses the map and constructs a ready-to-run Simulation.
func (sc *Scenario) Build() (*Simulation, error) {
	g, err := grid.NewFromASCII(sc.Map)
	if err != nil {
		return nil, newSimError(ConfigErrorKind, "%v", err)
	}

	mapStations := g.StationIDs()
	capacityByID := map[string]int{}
	for _, s := range sc.Stations {
		capacityByID[s.ID] = s.Capacity
	}
	var stations []*ChargingStation
	for _, id := range mapStations {
		capacity, ok := capacityByID[id]
		if !ok {
			return nil, newSimError(ConfigErrorKind, "map station %q has no configured capacity", id)
		}
		coord, _ := g.StationCoord(id)
		stations = append(stations, &ChargingStation{ID: id, Coord: coord, Capacity: capacity})
	}
	for id := range capacityByID {
		if _, ok := g.StationCoord(id); !ok {
			return nil, newSimError(ConfigErrorKind, "configured station %q does not appear on the map", id)
		}
	}

	var vehicles []*Vehicle
	for _, vc := range sc.Vehicles {
		coord := grid.Coord{X: vc.X, Y: vc.Y}
		if !g.IsWalkable(coord) {
			return nil, newSimError(ConfigErrorKind, "vehicle %d starts on an unwalkable cell %v", vc.ID, coord)
		}
		b, err := parseBehavior(vc.Behavior)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, NewVehicle(vc.ID, coord, vc.Battery, b))
	}

	reachableFromExit := floodFill(g, g.Exit())
	for _, st := range stations {
		if !reachableFromExit[st.Coord] {
			return nil, newSimError(ConfigErrorKind, "station %q at %v is not reachable from the exit %v", st.ID, st.Coord, g.Exit())
		}
	}

	opts := Options{
		DrainPerStep:  sc.DrainPerStep,
		LowThreshold:  sc.LowThreshold,
		ChargePerStep: sc.ChargePerStep,
		ChargeTarget:  sc.ChargeTarget,
		Weights:       Weights{Distance: sc.WeightDistance, Battery: sc.WeightBattery, Load: sc.WeightLoad},
		DeadlockTicks: sc.DeadlockTicks,
		MaxTicks:      sc.MaxTicks,
	}
	s := NewSimulation(g, stations, vehicles, opts)
	s.Title = sc.Title
	s.Description = sc.Description
	s.initialSnapshot = s.Snapshot()
	return s, nil
}

// floodFill returns every walkable cell reachable from start by 4-connected
// movement, used to validate that stations aren't sealed off by obstacles
// (grid.Plan's own start==goal short-circuit can't check this).
func floodFill(g *grid.Grid, start grid.Coord) map[grid.Coord]bool {
	visited := map[grid.Coord]bool{start: true}
	queue := []grid.Coord{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.Neighbors4(cur) {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return visited
}

func parseBehavior(s string) (Behavior, error) {
	switch s {
	case "", "cooperative":
		return Cooperative, nil
	case "competitive":
		return Competitive, nil
	case "titfortat":
		return TitForTat, nil
	default:
		return NoBehavior, newSimError(ConfigErrorKind, "unknown behavior %q", s)
	}
}
