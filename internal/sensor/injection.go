package sensor

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Channel names one failure-injectable instrument.
type Channel string

// Injectable channels. Temperature covers the coolant and exhaust pair.
const (
	ChannelFuel        Channel = "fuel"
	ChannelOilPressure Channel = "oil_pressure"
	ChannelTemperature Channel = "temperature"
	ChannelVibration   Channel = "vibration"
)

var (
	// ErrUnknownChannel is returned for a sensor name that is not injectable.
	ErrUnknownChannel = errors.New("unknown sensor channel")
	// ErrInvalidDrift is returned for a NaN or infinite drift rate.
	ErrInvalidDrift = errors.New("invalid drift rate")
	// ErrInvalidLevel is returned for a NaN fuel level.
	ErrInvalidLevel = errors.New("invalid fuel level")
)

// Channels lists every injectable channel.
func Channels() []Channel {
	return []Channel{ChannelFuel, ChannelOilPressure, ChannelTemperature, ChannelVibration}
}

// ParseChannel maps operator input such as "oil" or "temp" to a Channel.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fuel":
		return ChannelFuel, nil
	case "oil", "oil_pressure":
		return ChannelOilPressure, nil
	case "temp", "temperature", "cooling":
		return ChannelTemperature, nil
	case "vibration", "vib":
		return ChannelVibration, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// Failures returns the current failure flags.
func (m *Model) Failures() Failures { return m.failures }

// Drift returns the current drift rates.
func (m *Model) Drift() Drift { return m.drift }

// SetFailures replaces all failure flags.
func (m *Model) SetFailures(f Failures) { m.failures = f }

// SetDrift replaces all drift rates.
func (m *Model) SetDrift(d Drift) { m.drift = d }

// SetFailure flags or clears a single channel.
func (m *Model) SetFailure(c Channel, failed bool) error {
	switch c {
	case ChannelFuel:
		m.failures.Fuel = failed
	case ChannelOilPressure:
		m.failures.OilPressure = failed
	case ChannelTemperature:
		m.failures.Temperature = failed
	case ChannelVibration:
		m.failures.Vibration = failed
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, c)
	}
	return nil
}

// SetDriftRate sets the drift rate of a single channel.
func (m *Model) SetDriftRate(c Channel, rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return ErrInvalidDrift
	}
	switch c {
	case ChannelFuel:
		m.drift.Fuel = rate
	case ChannelOilPressure:
		m.drift.OilPressure = rate
	case ChannelTemperature:
		m.drift.Temperature = rate
	case ChannelVibration:
		m.drift.Vibration = rate
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, c)
	}
	return nil
}

// Reset clears every failure flag and drift rate. Readings are left as they
// are; offsets already accumulated by drift stay in the values.
func (m *Model) Reset() {
	m.SetFailures(Failures{})
	m.SetDrift(Drift{})
}

// SetFuelLevel overrides the tank level, e.g. after bunkering or to stage a
// low-fuel drill.
func (m *Model) SetFuelLevel(level float64) {
	level = fuelChannel.clamp(level)
	m.state.FuelLevel = level
	if !m.failures.Fuel {
		m.reported.FuelLevel = level
	}
}
