package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"genset-sim/internal/generator"
	"genset-sim/internal/sensor"
)

func TestParseValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line string
		want Request
	}{
		{"start", Request{Op: OpStart}},
		{"  STOP \r", Request{Op: OpStop}},
		{"emergency_stop", Request{Op: OpEmergencyStop}},
		{"set_load 75", Request{Op: OpSetLoad, Value: 75}},
		{"set_load 0", Request{Op: OpSetLoad, Value: 0}},
		{"set_load 100", Request{Op: OpSetLoad, Value: 100}},
		{"status", Request{Op: OpStatus}},
		{"alarms", Request{Op: OpAlarms}},
		{"ack low_oil_pressure", Request{Op: OpAck, Alarm: generator.AlarmLowOilPressure}},
		{"reset_alarms", Request{Op: OpResetAlarms}},
		{"fail oil on", Request{Op: OpFail, Channel: sensor.ChannelOilPressure, Failed: true}},
		{"fail temp off", Request{Op: OpFail, Channel: sensor.ChannelTemperature}},
		{"drift vibration -0.25", Request{Op: OpDrift, Channel: sensor.ChannelVibration, Value: -0.25}},
		{"reset_sensors", Request{Op: OpResetSensors}},
		{"refuel 80.5", Request{Op: OpRefuel, Value: 80.5}},
		{"overspeed 2100", Request{Op: OpOverspeed, Value: 2100}},
		{"fault", Request{Op: OpFault, Reason: "operator request"}},
		{"fault cooling water leak", Request{Op: OpFault, Reason: "cooling water leak"}},
	}
	for _, tc := range cases {
		got, err := Parse(tc.line)
		require.NoError(t, err, tc.line)
		require.Equal(t, tc.want, got, tc.line)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line    string
		kind    error
		message string
	}{
		{"", ErrUnknownCommand, "Unknown command"},
		{"dance", ErrUnknownCommand, "Unknown command"},
		{"set_load", ErrMissingArgument, "Missing load value"},
		{"set_load abc", ErrInvalidArgument, "Invalid load value"},
		{"set_load NaN", ErrInvalidArgument, "Invalid load value"},
		{"set_load 150", ErrInvalidArgument, "Load must be between 0 and 100"},
		{"set_load -1", ErrInvalidArgument, "Load must be between 0 and 100"},
		{"refuel 101", ErrInvalidArgument, "Fuel level must be between 0 and 100"},
		{"ack", ErrMissingArgument, "Missing alarm type"},
		{"ack meltdown", ErrInvalidArgument, `Unknown alarm type "meltdown"`},
		{"fail oil", ErrMissingArgument, "Usage: fail <sensor> <on|off>"},
		{"fail gauge on", ErrInvalidArgument, `Unknown sensor "gauge"`},
		{"fail oil maybe", ErrInvalidArgument, "Failure flag must be on or off"},
		{"drift fuel fast", ErrInvalidArgument, "Invalid drift rate"},
		{"drift fuel +Inf", ErrInvalidArgument, "Invalid drift rate"},
		{"overspeed", ErrMissingArgument, "Missing rpm value"},
		{"overspeed -5", ErrInvalidArgument, "Invalid rpm value"},
	}
	for _, tc := range cases {
		_, err := Parse(tc.line)
		require.ErrorIs(t, err, tc.kind, tc.line)
		require.Equal(t, tc.message, errorMessage(err), tc.line)
	}
}
