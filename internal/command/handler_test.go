package command

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genset-sim/internal/generator"
	"genset-sim/internal/sensor"
	"genset-sim/internal/telemetry"
)

func newTestHandler(t *testing.T) (*Handler, *generator.Engine) {
	t.Helper()
	sp := sensor.DefaultParams()
	sp.NoiseLevel = 0
	eng := generator.New(generator.DefaultParams(),
		generator.WithSensors(sensor.New(sp, rand.New(rand.NewPCG(7, 7)))),
	)
	h := NewHandler("genset-test", eng, nil)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return h, eng
}

func requireResponse(t *testing.T, resp Response, status, message string) {
	t.Helper()
	assert.Equal(t, status, resp.Status)
	assert.Equal(t, message, resp.Message)
}

func TestHandleLifecycle(t *testing.T) {
	t.Parallel()
	h, eng := newTestHandler(t)

	requireResponse(t, h.Handle("set_load 50"), StatusError, "cannot change load, generator is stopped")
	requireResponse(t, h.Handle("stop"), StatusError, "Generator cannot stop while stopped")
	requireResponse(t, h.Handle("emergency_stop"), StatusError, "Generator is already stopped")

	requireResponse(t, h.Handle("start"), StatusSuccess, "Generator started")
	requireResponse(t, h.Handle("start"), StatusError, "Generator cannot start while starting")
	requireResponse(t, h.Handle("set_load 50"), StatusSuccess, "Load set to 50%")
	require.Equal(t, 50.0, eng.Status().Target.Load)
	requireResponse(t, h.Handle("set_load 33.7"), StatusSuccess, "Load set to 33.7%")
	require.Equal(t, 33.7, eng.Status().Target.Load)

	requireResponse(t, h.Handle("set_load 150"), StatusError, "Load must be between 0 and 100")
	requireResponse(t, h.Handle("set_load"), StatusError, "Missing load value")
	requireResponse(t, h.Handle("set_load x"), StatusError, "Invalid load value")
	requireResponse(t, h.Handle("blink"), StatusError, "Unknown command")

	requireResponse(t, h.Handle("emergency_stop"), StatusSuccess, "Emergency stop activated")
	require.Equal(t, generator.StateStopped, eng.State())

	requireResponse(t, h.Handle("fault coolant leak"), StatusSuccess, "Generator fault: coolant leak")
	requireResponse(t, h.Handle("fault"), StatusError, "Generator is already in fault")
	requireResponse(t, h.Handle("start"), StatusSuccess, "Generator started")
}

func TestHandleStatus(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	resp := h.Handle("status")
	require.Equal(t, StatusSuccess, resp.Status)
	row, ok := resp.Data.(telemetry.StatusRow)
	require.True(t, ok, "status data should be a status row")
	assert.Equal(t, "genset-test", row.UnitID)
	assert.Equal(t, "stopped", row.State)
	assert.Equal(t, h.now(), row.Timestamp)
	assert.NotNil(t, row.ActiveAlarms)
}

func TestHandleAlarmsAndInjection(t *testing.T) {
	t.Parallel()
	h, eng := newTestHandler(t)

	requireResponse(t, h.Handle("refuel 5"), StatusSuccess, "Fuel level set to 5.0%")
	eng.Tick(0.2)

	resp := h.Handle("alarms")
	rows, ok := resp.Data.([]telemetry.AlarmRow)
	require.True(t, ok)
	var types []string
	for _, r := range rows {
		assert.Equal(t, "genset-test", r.UnitID)
		types = append(types, r.Type)
	}
	assert.Contains(t, types, "low_fuel")

	requireResponse(t, h.Handle("ack low_fuel"), StatusSuccess, "Acknowledged 1 low_fuel alarm(s)")
	requireResponse(t, h.Handle("ack low_fuel"), StatusSuccess, "Acknowledged 0 low_fuel alarm(s)")

	requireResponse(t, h.Handle("fail oil on"), StatusSuccess, "Sensor oil_pressure failure on")
	assert.True(t, eng.Status().Failures.OilPressure)
	requireResponse(t, h.Handle("drift fuel -0.5"), StatusSuccess, "Sensor fuel drift set to -0.5 per second")
	assert.Equal(t, -0.5, eng.Status().Drift.Fuel)
	requireResponse(t, h.Handle("reset_sensors"), StatusSuccess, "Sensor failures and drift cleared")
	assert.False(t, eng.Status().Failures.OilPressure)
	assert.Zero(t, eng.Status().Drift.Fuel)

	resp = h.Handle("reset_alarms")
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Empty(t, eng.ActiveAlarms())
}

func TestHandleOverspeedTripsStop(t *testing.T) {
	t.Parallel()
	h, eng := newTestHandler(t)

	requireResponse(t, h.Handle("start"), StatusSuccess, "Generator started")
	eng.Tick(0.2)
	requireResponse(t, h.Handle("overspeed 2100"), StatusSuccess, "Engine speed forced to 2100 RPM")
	eng.Tick(0.2)

	st := eng.Status()
	assert.Equal(t, generator.StateStopped, st.State)
	assert.Zero(t, st.Current.RPM)
	var types []generator.AlarmType
	for _, a := range st.ActiveAlarms {
		types = append(types, a.Type)
	}
	assert.Contains(t, types, generator.AlarmOverspeed)
}
