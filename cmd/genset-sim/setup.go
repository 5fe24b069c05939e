package main

import (
	"fmt"
	"io"
	"math/rand/v2"

	"go.uber.org/zap"

	"genset-sim/internal/config"
	"genset-sim/internal/generator"
	"genset-sim/internal/logging"
	"genset-sim/internal/sensor"
)

// loadConfig reads path, or the defaults when path is empty, and applies the
// environment overrides.
func loadConfig(path string, lookup func(string) (string, bool)) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. The --log-level flag wins over the
// configured level.
func newLogger(cfg *config.Config, w io.Writer) (*zap.SugaredLogger, error) {
	name := cfg.Logging.Level
	if rootLogLevel != "" {
		name = rootLogLevel
	}
	level, ok := logging.ParseLevel(name)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", name)
	}
	return logging.NewWriter(w, zap.NewAtomicLevelAt(level)), nil
}

// newEngine builds the generator described by cfg.
func newEngine(cfg *config.Config, log *zap.SugaredLogger) *generator.Engine {
	seed := cfg.Sensors.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	src := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	log.Debugw("sensor noise seeded", "seed", seed)
	return generator.New(cfg.EngineParams(),
		generator.WithLogger(log.Named("generator")),
		generator.WithSensors(sensor.New(cfg.SensorParams(), src)),
		generator.WithThresholds(cfg.Thresholds()),
		generator.WithAlarmRetention(cfg.Alarms.Retention),
	)
}

// logWarnings reports configuration choices that are legal but likely to
// stall convergence.
func logWarnings(cfg *config.Config, log *zap.SugaredLogger) {
	for _, w := range cfg.ToleranceWarnings() {
		log.Warnw("configuration warning", "detail", w)
	}
}
