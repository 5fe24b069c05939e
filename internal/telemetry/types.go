// Package telemetry defines the JSON rows published to status consumers:
// stdout feed, websocket clients and the command protocol.
package telemetry

import (
	"time"

	"genset-sim/internal/generator"
)

// StatusRow is one flattened status sample of a generator set.
type StatusRow struct {
	UnitID string `json:"unit_id"`
	State  string `json:"state"`

	RPM       float64 `json:"rpm"`
	Voltage   float64 `json:"voltage"`
	Frequency float64 `json:"frequency"`
	Load      float64 `json:"load_percentage"`

	TargetRPM       float64 `json:"target_rpm"`
	TargetVoltage   float64 `json:"target_voltage"`
	TargetFrequency float64 `json:"target_frequency"`
	TargetLoad      float64 `json:"target_load"`

	FuelLevel   float64 `json:"fuel_level"`
	OilPressure float64 `json:"oil_pressure"`
	CoolingTemp float64 `json:"cooling_temp"`
	ExhaustTemp float64 `json:"exhaust_temp"`
	Vibration   float64 `json:"vibration"`
	AmbientTemp float64 `json:"ambient_temp"`
	Humidity    float64 `json:"humidity"`

	FailedSensors []string   `json:"failed_sensors,omitempty"`
	ActiveAlarms  []AlarmRow `json:"active_alarms"`
	Timestamp     time.Time  `json:"ts"`
}

// AlarmRow is one alarm log entry.
type AlarmRow struct {
	UnitID    string    `json:"unit_id"`
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"ts"`
}

// SimulationStateRow captures the periodic driver's bookkeeping.
type SimulationStateRow struct {
	UnitID       string    `json:"unit_id"`
	TickInterval string    `json:"tick_interval"`
	Ticks        uint64    `json:"ticks"`
	LastDelta    float64   `json:"last_delta_s"`
	MaxDelta     float64   `json:"max_delta_s"`
	WriteErrors  uint64    `json:"write_errors"`
	Timestamp    time.Time `json:"ts"`
}

// NewStatusRow flattens an engine snapshot taken at ts.
func NewStatusRow(unitID string, st generator.Status, ts time.Time) StatusRow {
	return StatusRow{
		UnitID:          unitID,
		State:           st.State.String(),
		RPM:             st.Current.RPM,
		Voltage:         st.Current.Voltage,
		Frequency:       st.Current.Frequency,
		Load:            st.Current.Load,
		TargetRPM:       st.Target.RPM,
		TargetVoltage:   st.Target.Voltage,
		TargetFrequency: st.Target.Frequency,
		TargetLoad:      st.Target.Load,
		FuelLevel:       st.Sensors.FuelLevel,
		OilPressure:     st.Sensors.OilPressure,
		CoolingTemp:     st.Sensors.CoolingTemp,
		ExhaustTemp:     st.Sensors.ExhaustTemp,
		Vibration:       st.Sensors.Vibration,
		AmbientTemp:     st.Sensors.AmbientTemp,
		Humidity:        st.Sensors.Humidity,
		FailedSensors:   failedSensors(st),
		ActiveAlarms:    NewAlarmRows(unitID, st.ActiveAlarms),
		Timestamp:       ts,
	}
}

// NewAlarmRows converts alarm log entries. The result is never nil so it
// encodes as an empty JSON array.
func NewAlarmRows(unitID string, alarms []generator.Alarm) []AlarmRow {
	rows := make([]AlarmRow, 0, len(alarms))
	for _, a := range alarms {
		rows = append(rows, AlarmRow{
			UnitID:    unitID,
			ID:        a.ID,
			Type:      string(a.Type),
			Message:   a.Message,
			Active:    a.Active,
			Timestamp: a.Timestamp,
		})
	}
	return rows
}

func failedSensors(st generator.Status) []string {
	var out []string
	f := st.Failures
	if f.Fuel {
		out = append(out, "fuel")
	}
	if f.OilPressure {
		out = append(out, "oil_pressure")
	}
	if f.Temperature {
		out = append(out, "temperature")
	}
	if f.Vibration {
		out = append(out, "vibration")
	}
	return out
}
