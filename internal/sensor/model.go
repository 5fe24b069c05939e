// Package sensor simulates the auxiliary instrumentation of the generator set:
// fuel, oil pressure, coolant and exhaust temperature, and vibration.
package sensor

import (
	"math"
	"math/rand/v2"

	"genset-sim/internal/dynamics"
)

// Readings is one snapshot of every instrument.
type Readings struct {
	FuelLevel   float64 `json:"fuel_level"`   // %
	OilPressure float64 `json:"oil_pressure"` // bar
	CoolingTemp float64 `json:"cooling_temp"` // °C
	ExhaustTemp float64 `json:"exhaust_temp"` // °C
	Vibration   float64 `json:"vibration"`    // mm/s RMS
	AmbientTemp float64 `json:"ambient_temp"` // °C
	Humidity    float64 `json:"humidity"`     // %
}

// Failures flags sensors that report garbage instead of the physical state.
type Failures struct {
	Fuel        bool `json:"fuel"`
	OilPressure bool `json:"oil_pressure"`
	Temperature bool `json:"temperature"`
	Vibration   bool `json:"vibration"`
}

// Drift holds per-sensor calibration drift rates in units per second.
type Drift struct {
	Fuel        float64 `json:"fuel"`
	OilPressure float64 `json:"oil_pressure"`
	Temperature float64 `json:"temperature"`
	Vibration   float64 `json:"vibration"`
}

// Params tunes the sensor model.
type Params struct {
	NoiseLevel      float64 // multiplicative Gaussian noise, fraction of value
	FuelConsumption float64 // % per second while running
	AmbientTemp     float64
	Humidity        float64
	InitialFuel     float64
}

// DefaultParams returns the stock sensor tuning.
func DefaultParams() Params {
	return Params{
		NoiseLevel:      0.02,
		FuelConsumption: 0.001,
		AmbientTemp:     25,
		Humidity:        60,
		InitialFuel:     100,
	}
}

// Load-linear targets and convergence rates.
const (
	oilPressureBase       = 3.0
	oilPressureLoadFactor = 0.02
	oilPressureRate       = 2.0

	coolingTempBase       = 85.0
	coolingTempLoadFactor = 0.3
	coolingRunRate        = 5.0
	coolingCoolRate       = 2.0

	exhaustOffset   = 200.0
	exhaustRunRate  = 10.0
	exhaustCoolRate = 5.0

	vibrationBase       = 2.0
	vibrationLoadFactor = 0.05
	vibrationRate       = 1.0
)

// channel describes the valid range of one instrument and the garbage it
// reports when failed.
type channel struct {
	min, max  float64
	failBase  float64
	failSigma float64
}

func (c channel) clamp(v float64) float64 { return dynamics.Clamp(v, c.min, c.max) }

var (
	fuelChannel        = channel{min: 0, max: 100, failBase: 50, failSigma: 20}
	oilPressureChannel = channel{min: 0, max: 10, failBase: 2, failSigma: 1}
	coolingChannel     = channel{min: -20, max: 150, failBase: 80, failSigma: 20}
	exhaustChannel     = channel{min: -20, max: 600, failBase: 80 + exhaustOffset, failSigma: 20}
	vibrationChannel   = channel{min: 0, max: 50, failBase: 5, failSigma: 2}
)

// Model tracks the physical state behind each instrument and the values the
// instruments report. Noise is applied to the reported value only, so the
// physical state follows its dynamics undisturbed.
//
// Model is not safe for concurrent use; its owner serializes access.
type Model struct {
	params   Params
	rand     *rand.Rand
	state    Readings
	reported Readings
	failures Failures
	drift    Drift
}

// New creates a sensor model at ambient conditions. A nil r seeds a fresh source.
func New(p Params, r *rand.Rand) *Model {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	initial := Readings{
		FuelLevel:   fuelChannel.clamp(p.InitialFuel),
		CoolingTemp: p.AmbientTemp,
		ExhaustTemp: p.AmbientTemp,
		AmbientTemp: p.AmbientTemp,
		Humidity:    p.Humidity,
	}
	return &Model{params: p, rand: r, state: initial, reported: initial}
}

// Readings returns the last reported values.
func (m *Model) Readings() Readings {
	return m.reported
}

// Update advances every instrument by dt seconds and returns the new readings.
func (m *Model) Update(dt float64, running bool, load float64) Readings {
	if !(dt > 0) {
		dt = 0
	}
	m.updateFuel(dt, running)
	m.updateOilPressure(dt, running, load)
	m.updateTemperatures(dt, running, load)
	m.updateVibration(dt, running, load)
	return m.reported
}

func (m *Model) updateFuel(dt float64, running bool) {
	if m.failures.Fuel {
		m.reported.FuelLevel = m.garbage(fuelChannel)
		return
	}
	if running {
		m.state.FuelLevel = math.Max(0, m.state.FuelLevel-m.params.FuelConsumption*dt)
	}
	m.state.FuelLevel = fuelChannel.clamp(m.state.FuelLevel + m.drift.Fuel*dt)
	m.reported.FuelLevel = m.observe(fuelChannel, m.state.FuelLevel)
}

func (m *Model) updateOilPressure(dt float64, running bool, load float64) {
	if m.failures.OilPressure {
		m.reported.OilPressure = m.garbage(oilPressureChannel)
		return
	}
	p := 0.0
	if running {
		target := oilPressureBase + load*oilPressureLoadFactor
		p = dynamics.Converge(m.state.OilPressure, target, oilPressureRate, dt)
	}
	m.state.OilPressure = oilPressureChannel.clamp(p + m.drift.OilPressure*dt)
	m.reported.OilPressure = m.observe(oilPressureChannel, m.state.OilPressure)
}

func (m *Model) updateTemperatures(dt float64, running bool, load float64) {
	if m.failures.Temperature {
		m.reported.CoolingTemp = m.garbage(coolingChannel)
		m.reported.ExhaustTemp = m.garbage(exhaustChannel)
		return
	}
	cooling, exhaust := m.state.CoolingTemp, m.state.ExhaustTemp
	if running {
		target := coolingTempBase + load*coolingTempLoadFactor
		cooling = dynamics.Converge(cooling, target, coolingRunRate, dt)
		exhaust = dynamics.Converge(exhaust, target+exhaustOffset, exhaustRunRate, dt)
	} else {
		cooling = dynamics.Converge(cooling, m.params.AmbientTemp, coolingCoolRate, dt)
		exhaust = dynamics.Converge(exhaust, m.params.AmbientTemp, exhaustCoolRate, dt)
	}
	m.state.CoolingTemp = coolingChannel.clamp(cooling + m.drift.Temperature*dt)
	m.state.ExhaustTemp = exhaustChannel.clamp(exhaust + m.drift.Temperature*dt)
	m.reported.CoolingTemp = m.observe(coolingChannel, m.state.CoolingTemp)
	m.reported.ExhaustTemp = m.observe(exhaustChannel, m.state.ExhaustTemp)
}

func (m *Model) updateVibration(dt float64, running bool, load float64) {
	if m.failures.Vibration {
		m.reported.Vibration = m.garbage(vibrationChannel)
		return
	}
	v := 0.0
	if running {
		target := vibrationBase + load*vibrationLoadFactor
		v = dynamics.Converge(m.state.Vibration, target, vibrationRate, dt)
	}
	m.state.Vibration = vibrationChannel.clamp(v + m.drift.Vibration*dt)
	m.reported.Vibration = m.observe(vibrationChannel, m.state.Vibration)
}

// observe applies multiplicative noise and clamps to the instrument range.
func (m *Model) observe(c channel, v float64) float64 {
	return c.clamp(v + m.rand.NormFloat64()*v*m.params.NoiseLevel)
}

func (m *Model) garbage(c channel) float64 {
	return c.clamp(c.failBase + m.rand.NormFloat64()*c.failSigma)
}
