package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// ValidateWithCue checks raw YAML against the embedded #Config schema.
// Unknown keys and out-of-range values are rejected.
func ValidateWithCue(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := def.Unify(ctx.Encode(raw))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: schema validation failed: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ValidateFile runs the full Load pipeline on path and returns the effective
// configuration.
func ValidateFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Validate checks cross-field rules the schema cannot express. It also
// catches invalid values set programmatically or through ApplyEnv.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	e := c.Engine
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"max_rpm", e.MaxRPM},
		{"max_voltage", e.MaxVoltage},
		{"max_frequency", e.MaxFrequency},
		{"max_load", e.MaxLoad},
		{"rpm_rate", e.RPMRate},
		{"voltage_rate", e.VoltageRate},
		{"frequency_rate", e.FrequencyRate},
		{"load_rate", e.LoadRate},
		{"rpm_tolerance", e.RPMTolerance},
		{"voltage_tolerance", e.VoltageTolerance},
		{"frequency_tolerance", e.FrequencyTolerance},
	} {
		if !(f.v > 0) {
			fail("engine.%s must be positive", f.name)
		}
	}
	if e.MinLoad < 0 || e.MinLoad > e.MaxLoad {
		fail("engine.min_load %.1f outside [0, max_load]", e.MinLoad)
	}
	if e.StartupDuration < 0 || e.ShutdownDuration < 0 {
		fail("engine durations must not be negative")
	}
	if c.Simulation.TickInterval <= 0 {
		fail("simulation.tick_interval must be positive")
	}
	if c.Sensors.NoiseLevel < 0 || c.Sensors.NoiseLevel > 1 {
		fail("sensors.noise_level %.3f outside [0, 1]", c.Sensors.NoiseLevel)
	}
	if c.Alarms.Retention < 0 {
		fail("alarms.retention must not be negative")
	}
	if c.Server.TCPAddr == "" {
		fail("server.tcp_addr is required")
	}
	if c.UnitID == "" {
		fail("unit_id is required")
	}
	return errors.Join(errs...)
}

// ToleranceWarnings lists startup tolerances that are not smaller than one
// tick's maximum change at the configured tick interval. Such a tolerance
// still converges but cannot distinguish one tick from the next.
func (c *Config) ToleranceWarnings() []string {
	dt := c.Simulation.TickInterval.Seconds()
	e := c.Engine
	var out []string
	check := func(name string, tol, rate float64) {
		if step := rate * dt; tol >= step {
			out = append(out, fmt.Sprintf("engine.%s %.3g is not below one tick's change %.3g", name, tol, step))
		}
	}
	check("rpm_tolerance", e.RPMTolerance, e.RPMRate)
	check("voltage_tolerance", e.VoltageTolerance, e.VoltageRate)
	check("frequency_tolerance", e.FrequencyTolerance, e.FrequencyRate)
	return out
}
