// Package config loads the generator simulator settings from YAML, validated
// against an embedded CUE schema.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"genset-sim/internal/generator"
	"genset-sim/internal/sensor"
)

// EngineConfig holds generator ratings, ramp rates and sequencing limits.
type EngineConfig struct {
	MaxRPM             float64       `yaml:"max_rpm"`
	MaxVoltage         float64       `yaml:"max_voltage"`
	MaxFrequency       float64       `yaml:"max_frequency"`
	MaxLoad            float64       `yaml:"max_load"`
	MinLoad            float64       `yaml:"min_load"`
	DroopRPM           float64       `yaml:"droop_rpm"`
	DroopVoltage       float64       `yaml:"droop_voltage"`
	RPMRate            float64       `yaml:"rpm_rate"`
	VoltageRate        float64       `yaml:"voltage_rate"`
	FrequencyRate      float64       `yaml:"frequency_rate"`
	LoadRate           float64       `yaml:"load_rate"`
	StartupDuration    time.Duration `yaml:"startup_duration"`
	ShutdownDuration   time.Duration `yaml:"shutdown_duration"`
	RPMTolerance       float64       `yaml:"rpm_tolerance"`
	VoltageTolerance   float64       `yaml:"voltage_tolerance"`
	FrequencyTolerance float64       `yaml:"frequency_tolerance"`
	ShutdownRPM        float64       `yaml:"shutdown_rpm"`
	ShutdownVoltage    float64       `yaml:"shutdown_voltage"`
}

// SensorConfig tunes the instrument model. A zero Seed picks a random one.
type SensorConfig struct {
	NoiseLevel      float64 `yaml:"noise_level"`
	FuelConsumption float64 `yaml:"fuel_consumption"`
	AmbientTemp     float64 `yaml:"ambient_temp"`
	Humidity        float64 `yaml:"humidity"`
	InitialFuel     float64 `yaml:"initial_fuel"`
	Seed            uint64  `yaml:"seed"`
}

// AlarmConfig holds alarm trip points and the alarm log bound.
type AlarmConfig struct {
	LowFuel           float64 `yaml:"low_fuel"`
	LowOilPressure    float64 `yaml:"low_oil_pressure"`
	HighTemperature   float64 `yaml:"high_temperature"`
	OverloadFraction  float64 `yaml:"overload_fraction"`
	OverspeedFraction float64 `yaml:"overspeed_fraction"`
	HighVibration     float64 `yaml:"high_vibration"`
	Retention         int     `yaml:"retention"`
}

// SimulationConfig controls the periodic driver.
type SimulationConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

// ServerConfig holds listener addresses. An empty AdminAddr disables the
// admin server; a zero IdleTimeout never drops an idle command client.
type ServerConfig struct {
	TCPAddr     string        `yaml:"tcp_addr"`
	AdminAddr   string        `yaml:"admin_addr"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// LoggingConfig selects the minimum log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config is the root configuration.
type Config struct {
	UnitID     string           `yaml:"unit_id"`
	Engine     EngineConfig     `yaml:"engine"`
	Sensors    SensorConfig     `yaml:"sensors"`
	Alarms     AlarmConfig      `yaml:"alarms"`
	Simulation SimulationConfig `yaml:"simulation"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

const (
	// DefaultUnitID names the simulated set when neither config nor env does.
	DefaultUnitID = "genset-1"
	// DefaultTickInterval is the nominal driver period.
	DefaultTickInterval = 200 * time.Millisecond
	// DefaultTCPAddr is the command protocol listener.
	DefaultTCPAddr = ":8081"
	// DefaultAdminAddr is the admin HTTP listener.
	DefaultAdminAddr = ":8080"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvUnitID       = "GENSET_ID"
	EnvTickInterval = "TICK_INTERVAL"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default returns the configuration of the reference generator set.
func Default() *Config {
	p := generator.DefaultParams()
	th := generator.DefaultThresholds()
	sp := sensor.DefaultParams()
	return &Config{
		UnitID: DefaultUnitID,
		Engine: EngineConfig{
			MaxRPM:             p.MaxRPM,
			MaxVoltage:         p.MaxVoltage,
			MaxFrequency:       p.MaxFrequency,
			MaxLoad:            p.MaxLoad,
			MinLoad:            p.MinLoad,
			DroopRPM:           p.DroopRPM,
			DroopVoltage:       p.DroopVoltage,
			RPMRate:            p.RPMRate,
			VoltageRate:        p.VoltageRate,
			FrequencyRate:      p.FrequencyRate,
			LoadRate:           p.LoadRate,
			StartupDuration:    seconds(p.StartupDuration),
			ShutdownDuration:   seconds(p.ShutdownDuration),
			RPMTolerance:       p.RPMTolerance,
			VoltageTolerance:   p.VoltageTolerance,
			FrequencyTolerance: p.FrequencyTolerance,
			ShutdownRPM:        p.ShutdownRPM,
			ShutdownVoltage:    p.ShutdownVoltage,
		},
		Sensors: SensorConfig{
			NoiseLevel:      sp.NoiseLevel,
			FuelConsumption: sp.FuelConsumption,
			AmbientTemp:     sp.AmbientTemp,
			Humidity:        sp.Humidity,
			InitialFuel:     sp.InitialFuel,
		},
		Alarms: AlarmConfig{
			LowFuel:           th.LowFuel,
			LowOilPressure:    th.LowOilPressure,
			HighTemperature:   th.HighTemperature,
			OverloadFraction:  th.OverloadFraction,
			OverspeedFraction: th.OverspeedFraction,
			HighVibration:     th.HighVibration,
			Retention:         generator.DefaultAlarmRetention,
		},
		Simulation: SimulationConfig{TickInterval: DefaultTickInterval},
		Server:     ServerConfig{TCPAddr: DefaultTCPAddr, AdminAddr: DefaultAdminAddr},
		Logging:    LoggingConfig{Level: "info"},
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Load reads path, checks it against the schema and overlays it on Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	if err := ValidateWithCue(data); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides the unit ID and tick interval from the environment.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvUnitID); ok && v != "" {
		c.UnitID = v
	}
	if v, ok := lookup(EnvTickInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvTickInterval, err)
		}
		c.Simulation.TickInterval = d
	}
	return nil
}

// EngineParams converts the engine section for generator.New.
func (c *Config) EngineParams() generator.Params {
	e := c.Engine
	return generator.Params{
		MaxRPM:             e.MaxRPM,
		MaxVoltage:         e.MaxVoltage,
		MaxFrequency:       e.MaxFrequency,
		MaxLoad:            e.MaxLoad,
		MinLoad:            e.MinLoad,
		DroopRPM:           e.DroopRPM,
		DroopVoltage:       e.DroopVoltage,
		RPMRate:            e.RPMRate,
		VoltageRate:        e.VoltageRate,
		FrequencyRate:      e.FrequencyRate,
		LoadRate:           e.LoadRate,
		StartupDuration:    e.StartupDuration.Seconds(),
		ShutdownDuration:   e.ShutdownDuration.Seconds(),
		RPMTolerance:       e.RPMTolerance,
		VoltageTolerance:   e.VoltageTolerance,
		FrequencyTolerance: e.FrequencyTolerance,
		ShutdownRPM:        e.ShutdownRPM,
		ShutdownVoltage:    e.ShutdownVoltage,
	}
}

// Thresholds converts the alarm section.
func (c *Config) Thresholds() generator.Thresholds {
	a := c.Alarms
	return generator.Thresholds{
		LowFuel:           a.LowFuel,
		LowOilPressure:    a.LowOilPressure,
		HighTemperature:   a.HighTemperature,
		OverloadFraction:  a.OverloadFraction,
		OverspeedFraction: a.OverspeedFraction,
		HighVibration:     a.HighVibration,
	}
}

// SensorParams converts the sensor section.
func (c *Config) SensorParams() sensor.Params {
	s := c.Sensors
	return sensor.Params{
		NoiseLevel:      s.NoiseLevel,
		FuelConsumption: s.FuelConsumption,
		AmbientTemp:     s.AmbientTemp,
		Humidity:        s.Humidity,
		InitialFuel:     s.InitialFuel,
	}
}
