// Package generator models the engine, alternator and alarm panel of a marine
// diesel generator set. An Engine is advanced by Tick and controlled through
// Start, Stop, EmergencyStop and SetLoad; all methods are safe for concurrent
// use.
package generator

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"genset-sim/internal/dynamics"
	"genset-sim/internal/sensor"
)

var (
	// ErrNotRunning is returned by SetLoad while the generator is stopped or faulted.
	ErrNotRunning = errors.New("cannot change load, generator is stopped")
	// ErrInvalidLoad is returned by SetLoad for a NaN request.
	ErrInvalidLoad = errors.New("invalid load value")
	// ErrInvalidParameters is returned by SetParameters for non-positive maxima.
	ErrInvalidParameters = errors.New("invalid generator parameters")
)

// Params holds ratings, ramp rates and sequencing limits. Durations are in
// seconds of simulated time.
type Params struct {
	MaxRPM       float64
	MaxVoltage   float64
	MaxFrequency float64
	MaxLoad      float64
	MinLoad      float64 // floor applied to load requests while running

	DroopRPM     float64 // rpm lost at full load
	DroopVoltage float64 // volts lost at full load

	RPMRate       float64 // rpm/s
	VoltageRate   float64 // V/s
	FrequencyRate float64 // Hz/s
	LoadRate      float64 // %/s

	StartupDuration  float64
	ShutdownDuration float64

	RPMTolerance       float64
	VoltageTolerance   float64
	FrequencyTolerance float64

	// Stopping completes early once rpm and voltage both fall below these.
	ShutdownRPM     float64
	ShutdownVoltage float64
}

// DefaultParams returns the ratings of the reference 1800 rpm, 440 V, 60 Hz set.
func DefaultParams() Params {
	return Params{
		MaxRPM:             1800,
		MaxVoltage:         440,
		MaxFrequency:       60,
		MaxLoad:            100,
		MinLoad:            20,
		DroopRPM:           50,
		DroopVoltage:       10,
		RPMRate:            100,
		VoltageRate:        50,
		FrequencyRate:      2,
		LoadRate:           10,
		StartupDuration:    30,
		ShutdownDuration:   15,
		RPMTolerance:       10,
		VoltageTolerance:   5,
		FrequencyTolerance: 0.5,
		ShutdownRPM:        50,
		ShutdownVoltage:    10,
	}
}

// withDefaults replaces unset or negative fields with their defaults.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	fill := func(v *float64, def float64) {
		if !(*v > 0) {
			*v = def
		}
	}
	fill(&p.MaxRPM, d.MaxRPM)
	fill(&p.MaxVoltage, d.MaxVoltage)
	fill(&p.MaxFrequency, d.MaxFrequency)
	fill(&p.MaxLoad, d.MaxLoad)
	fill(&p.RPMRate, d.RPMRate)
	fill(&p.VoltageRate, d.VoltageRate)
	fill(&p.FrequencyRate, d.FrequencyRate)
	fill(&p.LoadRate, d.LoadRate)
	fill(&p.RPMTolerance, d.RPMTolerance)
	fill(&p.VoltageTolerance, d.VoltageTolerance)
	fill(&p.FrequencyTolerance, d.FrequencyTolerance)
	// Zero is a meaningful value for these.
	if p.MinLoad < 0 {
		p.MinLoad = 0
	}
	if p.DroopRPM < 0 {
		p.DroopRPM = 0
	}
	if p.DroopVoltage < 0 {
		p.DroopVoltage = 0
	}
	if p.StartupDuration < 0 {
		p.StartupDuration = 0
	}
	if p.ShutdownDuration < 0 {
		p.ShutdownDuration = 0
	}
	if p.ShutdownRPM < 0 {
		p.ShutdownRPM = 0
	}
	if p.ShutdownVoltage < 0 {
		p.ShutdownVoltage = 0
	}
	return p
}

// Quantities are the electrical and mechanical values of the set.
type Quantities struct {
	RPM       float64 `json:"rpm"`
	Voltage   float64 `json:"voltage"`
	Frequency float64 `json:"frequency"`
	Load      float64 `json:"load"`
}

// Status is a consistent snapshot of the engine.
type Status struct {
	State        State           `json:"state"`
	Current      Quantities      `json:"current"`
	Target       Quantities      `json:"target"`
	Sensors      sensor.Readings `json:"sensors"`
	Failures     sensor.Failures `json:"failures"`
	Drift        sensor.Drift    `json:"drift"`
	ActiveAlarms []Alarm         `json:"active_alarms"`
}

// Engine is the generator state machine.
type Engine struct {
	mu sync.Mutex

	params     Params
	thresholds Thresholds
	state      State
	current    Quantities
	target     Quantities

	startupElapsed  float64
	shutdownElapsed float64
	// forcedRPM holds a ForceRPM value until the next alarm evaluation, so
	// dynamics cannot pull an injected overspeed back below the trip point.
	forcedRPM float64

	sensors   *sensor.Model
	alarms    []Alarm
	retention int

	log   *zap.SugaredLogger
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for operator messages. Nil disables logging.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the source of alarm timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSensors replaces the default sensor model.
func WithSensors(m *sensor.Model) Option {
	return func(e *Engine) {
		if m != nil {
			e.sensors = m
		}
	}
}

// WithThresholds sets the alarm thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// WithIDGenerator sets the alarm ID source.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) {
		if f != nil {
			e.newID = f
		}
	}
}

// WithAlarmRetention bounds the alarm log. Zero or less keeps every record.
func WithAlarmRetention(n int) Option {
	return func(e *Engine) { e.retention = n }
}

// DefaultAlarmRetention is the alarm log bound used by New.
const DefaultAlarmRetention = 1000

// New creates a stopped engine.
func New(p Params, opts ...Option) *Engine {
	e := &Engine{
		params:     p.withDefaults(),
		thresholds: DefaultThresholds(),
		state:      StateStopped,
		retention:  DefaultAlarmRetention,
		log:        zap.NewNop().Sugar(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sensors == nil {
		e.sensors = sensor.New(sensor.DefaultParams(), nil)
	}
	return e
}

// Start begins the startup sequence from Stopped or Fault.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.canStart() {
		return false
	}
	e.state = StateStarting
	e.startupElapsed = 0
	e.target.RPM = e.params.MaxRPM
	e.target.Voltage = e.params.MaxVoltage
	e.target.Frequency = e.params.MaxFrequency
	e.log.Infow("generator starting",
		"target_rpm", e.target.RPM,
		"target_voltage", e.target.Voltage,
		"target_frequency", e.target.Frequency)
	return true
}

// Stop begins a controlled shutdown from Running or Starting.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.canStop() {
		return false
	}
	e.state = StateStopping
	e.shutdownElapsed = 0
	e.target = Quantities{}
	e.log.Infow("generator stopping")
	return true
}

// EmergencyStop halts the set immediately, bypassing the shutdown sequence.
func (e *Engine) EmergencyStop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emergencyStop()
}

func (e *Engine) emergencyStop() bool {
	if e.state.halted() {
		return false
	}
	e.state = StateStopped
	e.current = Quantities{}
	e.target.Load = 0
	e.log.Warnw("EMERGENCY STOP ACTIVATED")
	return true
}

// EnterFault latches the Fault state and zeroes every quantity. Start clears it.
func (e *Engine) EnterFault(reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateFault {
		return false
	}
	e.state = StateFault
	e.current = Quantities{}
	e.target = Quantities{}
	e.log.Errorw("generator fault", "reason", reason)
	return true
}

// SetLoad stores a new load target in percent and returns the stored value.
// The load itself follows at the load ramp rate on subsequent ticks.
func (e *Engine) SetLoad(pct float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if math.IsNaN(pct) {
		return e.target.Load, ErrInvalidLoad
	}
	if e.state.halted() {
		e.log.Infow("cannot change load, generator is stopped", "requested", pct, "state", e.state)
		return e.target.Load, ErrNotRunning
	}
	if e.state == StateRunning && pct < e.params.MinLoad {
		pct = e.params.MinLoad
		e.log.Infow("load adjusted to minimum", "min_load", e.params.MinLoad)
	}
	pct = dynamics.Clamp(pct, 0, e.params.MaxLoad)
	e.target.Load = pct
	if e.state == StateRunning {
		e.log.Infow("load set", "target_load", pct)
	}
	return pct, nil
}

// SetParameters changes the rated maxima. A set that is starting retargets to
// the new maxima.
func (e *Engine) SetParameters(maxRPM, maxVoltage, maxFrequency float64) error {
	for _, v := range []float64{maxRPM, maxVoltage, maxFrequency} {
		if !(v > 0) || math.IsInf(v, 0) {
			return ErrInvalidParameters
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.params.MaxRPM = maxRPM
	e.params.MaxVoltage = maxVoltage
	e.params.MaxFrequency = maxFrequency
	if e.state == StateStarting {
		e.target.RPM = maxRPM
		e.target.Voltage = maxVoltage
		e.target.Frequency = maxFrequency
	}
	e.log.Infow("generator parameters updated",
		"max_rpm", maxRPM, "max_voltage", maxVoltage, "max_frequency", maxFrequency)
	return nil
}

// Params returns the active parameters.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// State returns the current operational state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Tick advances the simulation by dt seconds of measured elapsed time.
// Non-positive or non-finite dt only re-evaluates alarms.
func (e *Engine) Tick(dt float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		dt = 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateStarting:
		e.advanceStartup(dt)
	case StateRunning:
		e.advanceRunning(dt)
	case StateStopping:
		e.advanceShutdown(dt)
	}
	e.sensors.Update(dt, e.state == StateRunning, e.current.Load)
	e.evaluateAlarms()
}

func (e *Engine) advanceStartup(dt float64) {
	p := e.params
	e.startupElapsed += dt
	e.current.RPM = dynamics.Converge(e.current.RPM, e.target.RPM, p.RPMRate, dt)
	e.current.Voltage = dynamics.Converge(e.current.Voltage, e.target.Voltage, p.VoltageRate, dt)
	e.current.Frequency = dynamics.Converge(e.current.Frequency, e.target.Frequency, p.FrequencyRate, dt)

	if e.startupElapsed >= p.StartupDuration &&
		math.Abs(e.current.RPM-e.target.RPM) < p.RPMTolerance &&
		math.Abs(e.current.Voltage-e.target.Voltage) < p.VoltageTolerance &&
		math.Abs(e.current.Frequency-e.target.Frequency) < p.FrequencyTolerance {
		e.state = StateRunning
		e.log.Infow("generator startup complete, now running", "elapsed", e.startupElapsed)
	}
}

// advanceRunning emulates the governor and AVR: speed and voltage droop
// linearly with load and frequency follows speed.
func (e *Engine) advanceRunning(dt float64) {
	p := e.params
	e.current.Load = dynamics.Converge(e.current.Load, e.target.Load, p.LoadRate, dt)

	factor := e.current.Load / p.MaxLoad
	e.target.RPM = p.MaxRPM - p.DroopRPM*factor
	e.target.Voltage = p.MaxVoltage - p.DroopVoltage*factor
	e.current.RPM = dynamics.Converge(e.current.RPM, e.target.RPM, p.RPMRate, dt)
	e.current.Voltage = dynamics.Converge(e.current.Voltage, e.target.Voltage, p.VoltageRate, dt)

	e.current.Frequency = e.current.RPM / p.MaxRPM * p.MaxFrequency
	e.target.Frequency = e.target.RPM / p.MaxRPM * p.MaxFrequency
}

func (e *Engine) advanceShutdown(dt float64) {
	p := e.params
	e.shutdownElapsed += dt
	e.current.RPM = dynamics.Converge(e.current.RPM, 0, p.RPMRate, dt)
	e.current.Voltage = dynamics.Converge(e.current.Voltage, 0, p.VoltageRate, dt)
	e.current.Frequency = dynamics.Converge(e.current.Frequency, 0, p.FrequencyRate, dt)
	e.current.Load = dynamics.Converge(e.current.Load, 0, p.LoadRate, dt)

	if e.shutdownElapsed >= p.ShutdownDuration ||
		(e.current.RPM < p.ShutdownRPM && e.current.Voltage < p.ShutdownVoltage) {
		e.state = StateStopped
		e.current = Quantities{}
		e.log.Infow("generator shutdown complete", "elapsed", e.shutdownElapsed)
	}
}

// Status returns a snapshot of state, quantities, sensors and active alarms.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Status{
		State:        e.state,
		Current:      e.current,
		Target:       e.target,
		Sensors:      e.sensors.Readings(),
		Failures:     e.sensors.Failures(),
		Drift:        e.sensors.Drift(),
		ActiveAlarms: e.activeAlarms(),
	}
}

// ForceRPM overrides the current engine speed, e.g. to stage an overspeed
// drill. The next Tick evaluates the consequences.
func (e *Engine) ForceRPM(rpm float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !(rpm > 0) {
		rpm = 0
	}
	e.current.RPM = rpm
	e.forcedRPM = rpm
	e.log.Infow("engine speed forced", "rpm", rpm)
}

// SetSensorFailure flags or clears a sensor failure.
func (e *Engine) SetSensorFailure(c sensor.Channel, failed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.sensors.SetFailure(c, failed); err != nil {
		return err
	}
	e.log.Infow("sensor failure injection", "sensor", c, "failed", failed)
	return nil
}

// SetSensorDrift sets the drift rate of one sensor in units per second.
func (e *Engine) SetSensorDrift(c sensor.Channel, rate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.sensors.SetDriftRate(c, rate); err != nil {
		return err
	}
	e.log.Infow("sensor drift injection", "sensor", c, "rate", rate)
	return nil
}

// ResetSensors clears every injected failure and drift rate.
func (e *Engine) ResetSensors() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sensors.Reset()
	e.log.Infow("sensor injections cleared")
}

// SetFuelLevel overrides the tank level in percent.
func (e *Engine) SetFuelLevel(level float64) error {
	if math.IsNaN(level) {
		return sensor.ErrInvalidLevel
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sensors.SetFuelLevel(level)
	e.log.Infow("fuel level set", "level", dynamics.Clamp(level, 0, 100))
	return nil
}
