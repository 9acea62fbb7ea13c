// Package config loads simulation tuning parameters from YAML, with an
// in-code default so the world server can start without a config file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a world server process.
type Config struct {
	World    WorldConfig    `yaml:"world"`
	Balance  BalanceConfig  `yaml:"balance"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

// WorldConfig is the §6.4 configuration block.
type WorldConfig struct {
	TickPeriodMS            int    `yaml:"tick_period_ms"`
	Subdivisions            int    `yaml:"subdivisions"`
	WorldSeed               uint64 `yaml:"world_seed"`
	SaveIntervalTicks       uint64 `yaml:"save_interval_ticks"`
	FaceCount               int    `yaml:"face_count"`
	CreaturesCapPerFace     int    `yaml:"creatures_cap_per_face"`
	CorruptionMax           int    `yaml:"corruption_max"`
	WorldEventCooldownTicks uint64 `yaml:"world_event_cooldown_ticks"`
	WorldEventDurationTicks uint64 `yaml:"world_event_duration_ticks"`
	PhaseDurationTicks      uint64 `yaml:"phase_duration_ticks"`
	Name                    string `yaml:"name"`
}

// TickPeriod returns the configured tick period as a time.Duration.
func (w WorldConfig) TickPeriod() time.Duration {
	return time.Duration(w.TickPeriodMS) * time.Millisecond
}

// BalanceConfig centralises every tunable numeric constant named across
// the building/power/creature/hiss/drone systems, the way the teacher's
// BalanceConfig splits agent/combat/upgrade numbers into their own
// sub-structs.
type BalanceConfig struct {
	Extraction ExtractionBalance `yaml:"extraction"`
	Conveyor   ConveyorBalance   `yaml:"conveyor"`
	Arm        ArmBalance        `yaml:"arm"`
	Power      PowerBalance      `yaml:"power"`
	Creature   CreatureBalance   `yaml:"creature"`
	Hiss       HissBalance       `yaml:"hiss"`
	Drone      DroneBalance      `yaml:"drone"`
	WorldEvent WorldEventBalance `yaml:"world_event"`
	ShiftCycle ShiftCycleBalance `yaml:"shift_cycle"`
	Territory  TerritoryBalance  `yaml:"territory"`
}

type ExtractionBalance struct {
	DefaultRateTicks int `yaml:"default_rate_ticks"`
	AreaBoostRadius  int `yaml:"area_boost_radius"`
}

type ConveyorBalance struct {
	MaxTier int `yaml:"max_tier"`
}

type ArmBalance struct {
	MaxRangeManhattan int `yaml:"max_range_manhattan"`
	StackUpgradeCount int `yaml:"stack_upgrade_count"`
}

type PowerBalance struct {
	ResolveEveryTicks     uint64 `yaml:"resolve_every_ticks"`
	SubstationRadius      int    `yaml:"substation_radius"`
	TransferStationRadius int    `yaml:"transfer_station_radius"`
}

type CreatureBalance struct {
	SpawnEveryTicks  uint64 `yaml:"spawn_every_ticks"`
	MoveEveryTicks   uint64 `yaml:"move_every_ticks"`
	CaptureRadius    int    `yaml:"capture_radius"`
	CaptureThreshold int    `yaml:"capture_threshold"`
	TTLTicks         uint64 `yaml:"ttl_ticks"`
}

type HissBalance struct {
	MoveEveryTicks    uint64 `yaml:"move_every_ticks"`
	SpreadEveryTicks  uint64 `yaml:"spread_every_ticks"`
	SpawnIntensityMin int    `yaml:"spawn_intensity_min"`
	PurifierRadius    int    `yaml:"purifier_radius"`
	StabilizerRadius  int    `yaml:"stabilizer_radius"`
	TurretRadius      int    `yaml:"turret_radius"`
}

type DroneBalance struct {
	BaseFuelSeconds   float64 `yaml:"base_fuel_seconds"`
	BaseCargoCapacity int     `yaml:"base_cargo_capacity"`
	UpgradedCapacity  int     `yaml:"upgraded_capacity"`
	BaseRangeCells    int     `yaml:"base_range_cells"`
}

type WorldEventBalance struct {
	DurationTicks map[string]uint64 `yaml:"duration_ticks"`
}

type ShiftCycleBalance struct {
	TicksPerAngleStep int     `yaml:"ticks_per_angle_step"`
	DarkThreshold     float64 `yaml:"dark_threshold"`
}

type TerritoryBalance struct {
	BeaconRadius int `yaml:"beacon_radius"`
}

// DatabaseConfig holds connection strings for the persistence and intake
// layers.
type DatabaseConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
}

// ServerConfig holds process-level settings for optional debug transports.
type ServerConfig struct {
	TelemetryAddr string `yaml:"telemetry_addr"`
}

// Load reads a YAML config file from disk on top of Default(), so a config
// file only needs to specify the fields it overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the standard configuration values plus balance defaults
// for every subsystem.
func Default() *Config {
	return &Config{
		World: WorldConfig{
			TickPeriodMS:            200,
			Subdivisions:            64,
			WorldSeed:               1,
			SaveIntervalTicks:       600,
			FaceCount:               30,
			CreaturesCapPerFace:     8,
			CorruptionMax:           10,
			WorldEventCooldownTicks: 500,
			WorldEventDurationTicks: 150,
			PhaseDurationTicks:      600,
			Name:                    "default",
		},
		Balance: DefaultBalanceConfig(),
		Database: DatabaseConfig{
			PostgresDSN: "",
			RedisAddr:   "",
		},
		Server: ServerConfig{
			TelemetryAddr: ":8900",
		},
	}
}

// DefaultBalanceConfig returns the default tuning numbers. Values not
// pinned exactly by the specification are decided here.
func DefaultBalanceConfig() BalanceConfig {
	return BalanceConfig{
		Extraction: ExtractionBalance{
			DefaultRateTicks: 5,
			AreaBoostRadius:  1,
		},
		Conveyor: ConveyorBalance{MaxTier: 3},
		Arm: ArmBalance{
			MaxRangeManhattan: 2,
			StackUpgradeCount: 2,
		},
		Power: PowerBalance{
			ResolveEveryTicks:     5,
			SubstationRadius:      4,
			TransferStationRadius: 8,
		},
		Creature: CreatureBalance{
			SpawnEveryTicks:  25,
			MoveEveryTicks:   5,
			CaptureRadius:    3,
			CaptureThreshold: 15,
			TTLTicks:         12000,
		},
		Hiss: HissBalance{
			MoveEveryTicks:    10,
			SpreadEveryTicks:  30,
			SpawnIntensityMin: 8,
			PurifierRadius:    5,
			StabilizerRadius:  15,
			TurretRadius:      3,
		},
		Drone: DroneBalance{
			BaseFuelSeconds:   60,
			BaseCargoCapacity: 2,
			UpgradedCapacity:  4,
			BaseRangeCells:    1,
		},
		WorldEvent: WorldEventBalance{
			DurationTicks: map[string]uint64{
				"hiss_surge":        150,
				"meteor_shower":     150,
				"resonance_cascade": 150,
				"entity_migration":  150,
			},
		},
		ShiftCycle: ShiftCycleBalance{
			TicksPerAngleStep: 10,
			DarkThreshold:     0.15,
		},
		Territory: TerritoryBalance{
			BeaconRadius: 8,
		},
	}
}
