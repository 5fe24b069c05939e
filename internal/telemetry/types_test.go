package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"genset-sim/internal/generator"
	"genset-sim/internal/sensor"
)

func TestNewStatusRow(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	st := generator.Status{
		State:    generator.StateRunning,
		Current:  generator.Quantities{RPM: 1790, Voltage: 438, Frequency: 59.67, Load: 20},
		Target:   generator.Quantities{RPM: 1790, Voltage: 438, Frequency: 59.67, Load: 20},
		Sensors:  sensor.Readings{FuelLevel: 8, OilPressure: 3.4, CoolingTemp: 91},
		Failures: sensor.Failures{Vibration: true},
		ActiveAlarms: []generator.Alarm{{
			ID: "a-1", Type: generator.AlarmLowFuel, Message: "Low fuel level: 8.0%", Timestamp: ts, Active: true,
		}},
	}

	row := NewStatusRow("genset-1", st, ts)
	require.Equal(t, "running", row.State)
	require.Equal(t, 1790.0, row.RPM)
	require.Equal(t, 20.0, row.TargetLoad)
	require.Equal(t, 8.0, row.FuelLevel)
	require.Equal(t, []string{"vibration"}, row.FailedSensors)
	require.Len(t, row.ActiveAlarms, 1)
	require.Equal(t, "low_fuel", row.ActiveAlarms[0].Type)
	require.Equal(t, "genset-1", row.ActiveAlarms[0].UnitID)
}

func TestAlarmRowsEncodeAsArray(t *testing.T) {
	t.Parallel()

	row := NewStatusRow("genset-1", generator.Status{State: generator.StateStopped}, time.Time{})
	data, err := json.Marshal(row)
	require.NoError(t, err)
	require.Contains(t, string(data), `"active_alarms":[]`)
	require.NotContains(t, string(data), "failed_sensors")
}
