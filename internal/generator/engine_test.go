package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"genset-sim/internal/sensor"
)

var testClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, p Params, opts ...Option) *Engine {
	t.Helper()
	sp := sensor.DefaultParams()
	sp.NoiseLevel = 0
	ids := 0
	base := []Option{
		WithSensors(sensor.New(sp, rand.New(rand.NewPCG(1, 1)))),
		WithClock(func() time.Time { return testClock }),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("alarm-%d", ids)
		}),
	}
	return New(p, append(base, opts...)...)
}

func tickFor(e *Engine, seconds, dt float64) {
	for n := int(math.Round(seconds / dt)); n > 0; n-- {
		e.Tick(dt)
	}
}

func runningEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := newTestEngine(t, DefaultParams(), opts...)
	require.True(t, e.Start())
	tickFor(e, 40, 0.2)
	require.Equal(t, StateRunning, e.State())
	return e
}

func activeOf(alarms []Alarm, typ AlarmType) []Alarm {
	var out []Alarm
	for _, a := range alarms {
		if a.Type == typ && a.Active {
			out = append(out, a)
		}
	}
	return out
}

func recordsOf(alarms []Alarm, typ AlarmType) []Alarm {
	var out []Alarm
	for _, a := range alarms {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func TestStartupReachesRunningWithinTolerances(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	require.True(t, e.Start())
	require.Equal(t, StateStarting, e.State())

	tickFor(e, 20, 0.2)
	require.Equal(t, StateStarting, e.State(), "startup duration has not elapsed")

	tickFor(e, 20, 0.2)
	st := e.Status()
	require.Equal(t, StateRunning, st.State)
	assert.Less(t, math.Abs(st.Current.RPM-1800), 10.0)
	assert.Less(t, math.Abs(st.Current.Voltage-440), 5.0)
	assert.Less(t, math.Abs(st.Current.Frequency-60), 0.5)
}

func TestStartupHoldsUntilConverged(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.StartupDuration = 1
	e := newTestEngine(t, p)
	require.True(t, e.Start())

	// Frequency needs 30 s at 2 Hz/s.
	tickFor(e, 20, 0.2)
	require.Equal(t, StateStarting, e.State())
	tickFor(e, 15, 0.2)
	require.Equal(t, StateRunning, e.State())
}

func TestTransitionGuards(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	assert.False(t, e.Stop(), "stop from stopped")
	assert.False(t, e.EmergencyStop(), "emergency stop from stopped")

	require.True(t, e.Start())
	assert.False(t, e.Start(), "start while starting")
	require.True(t, e.Stop(), "stop while starting")
	assert.False(t, e.Stop(), "stop while stopping")
	assert.False(t, e.Start(), "start while stopping")
	require.True(t, e.EmergencyStop(), "emergency stop while stopping")
	require.Equal(t, StateStopped, e.State())
}

func TestRunningDroopFollowsLoad(t *testing.T) {
	t.Parallel()

	e := runningEngine(t)
	got, err := e.SetLoad(5)
	require.NoError(t, err)
	require.Equal(t, 20.0, got, "load floor while running")
	require.Equal(t, 20.0, e.Status().Target.Load)

	e.Tick(0.2)
	require.InDelta(t, 2.0, e.Status().Current.Load, 1e-9, "load ramps at 10 %/s")

	tickFor(e, 10, 0.2)
	st := e.Status()
	require.Equal(t, 20.0, st.Current.Load)
	assert.InDelta(t, 1790.0, st.Current.RPM, 1e-9)
	assert.InDelta(t, 438.0, st.Current.Voltage, 1e-9)
	assert.InDelta(t, 1790.0/1800.0*60.0, st.Current.Frequency, 1e-9)
}

func TestSetLoadClamps(t *testing.T) {
	t.Parallel()

	e := runningEngine(t)
	got, err := e.SetLoad(150)
	require.NoError(t, err)
	require.Equal(t, 100.0, got)

	got, err = e.SetLoad(-5)
	require.NoError(t, err)
	require.Equal(t, 20.0, got)

	_, err = e.SetLoad(math.NaN())
	require.ErrorIs(t, err, ErrInvalidLoad)
	require.Equal(t, 20.0, e.Status().Target.Load)
}

func TestSetLoadWhileStartingHasNoFloor(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	require.True(t, e.Start())
	got, err := e.SetLoad(10)
	require.NoError(t, err)
	require.Equal(t, 10.0, got)
}

func TestSetLoadRejectedWhenHalted(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	e := newTestEngine(t, DefaultParams(), WithLogger(zap.New(core).Sugar()))

	got, err := e.SetLoad(50)
	require.ErrorIs(t, err, ErrNotRunning)
	require.Equal(t, 0.0, got)
	require.Equal(t, 0.0, e.Status().Target.Load)
	require.Equal(t, 1, logs.FilterMessage("cannot change load, generator is stopped").Len())

	require.True(t, e.EnterFault("test"))
	_, err = e.SetLoad(50)
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestOverspeedTripsEmergencyStop(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	require.True(t, e.Start())
	e.ForceRPM(2500)
	e.Tick(0.01)

	st := e.Status()
	require.Equal(t, StateStopped, st.State)
	require.Equal(t, Quantities{}, st.Current)
	require.Len(t, activeOf(st.ActiveAlarms, AlarmOverspeed), 1)

	e.Tick(0.2)
	assert.Len(t, activeOf(e.Alarms(), AlarmOverspeed), 1, "overspeed does not clear on its own")
	assert.Len(t, recordsOf(e.Alarms(), AlarmOverspeed), 1)
}

func TestOverspeedWhileHaltedZeroesSpeed(t *testing.T) {
	t.Parallel()

	for _, halt := range []func(*Engine) bool{
		func(*Engine) bool { return true },
		func(e *Engine) bool { return e.EnterFault("test") },
	} {
		e := newTestEngine(t, DefaultParams())
		require.True(t, halt(e))
		halted := e.State()
		e.ForceRPM(2500)
		e.Tick(0.2)
		e.Tick(0.2)

		st := e.Status()
		assert.Equal(t, halted, st.State)
		assert.Equal(t, 0.0, st.Current.RPM)
		assert.Len(t, activeOf(st.ActiveAlarms, AlarmOverspeed), 1)
	}
}

func TestForcedOverspeedJustAboveLimitTrips(t *testing.T) {
	t.Parallel()

	e := runningEngine(t)
	limit := e.Params().MaxRPM * DefaultThresholds().OverspeedFraction
	e.ForceRPM(limit + 10)
	e.Tick(0.2)

	st := e.Status()
	require.Equal(t, StateStopped, st.State)
	require.Equal(t, Quantities{}, st.Current)
	require.Len(t, activeOf(st.ActiveAlarms, AlarmOverspeed), 1)
}

func TestEmergencyStopZeroesImmediately(t *testing.T) {
	t.Parallel()

	e := runningEngine(t)
	_, err := e.SetLoad(60)
	require.NoError(t, err)
	tickFor(e, 2, 0.2)

	require.True(t, e.EmergencyStop())
	st := e.Status()
	require.Equal(t, StateStopped, st.State)
	require.Equal(t, Quantities{}, st.Current)
	require.Equal(t, 0.0, st.Target.Load)
}

func TestShutdownCompletesAfterDuration(t *testing.T) {
	t.Parallel()

	e := runningEngine(t)
	require.True(t, e.Stop())
	require.Equal(t, Quantities{}, e.Status().Target)

	tickFor(e, 5, 0.2)
	require.Equal(t, StateStopping, e.State())

	tickFor(e, 11, 0.2)
	st := e.Status()
	require.Equal(t, StateStopped, st.State)
	require.Equal(t, Quantities{}, st.Current)
}

func TestShutdownCompletesEarlyBelowCutoff(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.ShutdownDuration = 100
	e := newTestEngine(t, p)
	require.True(t, e.Start())
	tickFor(e, 40, 0.2)
	require.Equal(t, StateRunning, e.State())
	require.True(t, e.Stop())

	// 1800 rpm falls below 50 after 17.5 s at 100 rpm/s.
	tickFor(e, 17, 0.2)
	require.Equal(t, StateStopping, e.State())
	tickFor(e, 1, 0.2)
	require.Equal(t, StateStopped, e.State())
	require.Equal(t, Quantities{}, e.Status().Current)
}

func TestNonPositiveTickChangesNothing(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	require.True(t, e.Start())
	e.Tick(0)
	e.Tick(-1)
	e.Tick(math.NaN())
	st := e.Status()
	require.Equal(t, StateStarting, st.State)
	require.Equal(t, Quantities{}, st.Current)
}

func TestAlarmsAreIdempotent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	require.NoError(t, e.SetFuelLevel(5))
	for i := 0; i < 10; i++ {
		e.Tick(0.2)
	}
	active := activeOf(e.Status().ActiveAlarms, AlarmLowFuel)
	require.Len(t, active, 1)
	assert.Equal(t, testClock, active[0].Timestamp)
	assert.NotEmpty(t, active[0].ID)
	assert.Equal(t, "Low fuel level: 5.0%", active[0].Message)
	require.Len(t, recordsOf(e.Alarms(), AlarmLowFuel), 1)

	require.NoError(t, e.SetFuelLevel(50))
	e.Tick(0.2)
	require.Empty(t, activeOf(e.Status().ActiveAlarms, AlarmLowFuel))
	require.Len(t, recordsOf(e.Alarms(), AlarmLowFuel), 1, "clearing keeps the record")

	require.NoError(t, e.SetFuelLevel(5))
	e.Tick(0.2)
	require.Len(t, recordsOf(e.Alarms(), AlarmLowFuel), 2)
	require.Len(t, activeOf(e.Alarms(), AlarmLowFuel), 1)
}

func TestAcknowledgeAndReset(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	require.NoError(t, e.SetFuelLevel(5))
	e.Tick(0.2)
	require.NotEmpty(t, activeOf(e.Alarms(), AlarmLowOilPressure), "oil pressure is zero at rest")

	require.Equal(t, 1, e.AcknowledgeAlarm(AlarmLowFuel))
	require.Empty(t, activeOf(e.Alarms(), AlarmLowFuel))
	require.Equal(t, 0, e.AcknowledgeAlarm(AlarmLowFuel))

	require.Equal(t, 1, e.ResetAlarms())
	require.Empty(t, e.Status().ActiveAlarms)

	e.Tick(0.2)
	assert.Len(t, activeOf(e.Alarms(), AlarmLowFuel), 1, "a persisting condition raises again")
}

func TestHighVibrationClearsBelowThreshold(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	require.NoError(t, e.SetSensorDrift(sensor.ChannelVibration, 20))
	e.Tick(1)
	require.Len(t, activeOf(e.Alarms(), AlarmHighVibration), 1)

	e.ResetSensors()
	e.Tick(1)
	require.Empty(t, activeOf(e.Alarms(), AlarmHighVibration))
}

func TestOverloadFollowsLoad(t *testing.T) {
	t.Parallel()

	e := runningEngine(t)
	_, err := e.SetLoad(100)
	require.NoError(t, err)
	tickFor(e, 10, 0.2)
	require.Len(t, activeOf(e.Alarms(), AlarmOverload), 1)

	_, err = e.SetLoad(50)
	require.NoError(t, err)
	tickFor(e, 1, 0.2)
	require.Empty(t, activeOf(e.Alarms(), AlarmOverload))
}

func TestAlarmRetentionKeepsActive(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams(), WithAlarmRetention(3))
	for i := 0; i < 5; i++ {
		require.NoError(t, e.SetFuelLevel(5))
		e.Tick(0.2)
		require.NoError(t, e.SetFuelLevel(50))
		e.Tick(0.2)
	}
	require.NoError(t, e.SetFuelLevel(5))
	e.Tick(0.2)

	log := e.Alarms()
	require.Len(t, log, 3)
	require.Len(t, activeOf(log, AlarmLowOilPressure), 1)
	require.Len(t, activeOf(log, AlarmLowFuel), 1)
	assert.Equal(t, "alarm-7", log[2].ID, "newest record is last")
}

func TestEnterFault(t *testing.T) {
	t.Parallel()

	e := runningEngine(t)
	require.True(t, e.EnterFault("governor failure"))
	require.False(t, e.EnterFault("again"))
	st := e.Status()
	require.Equal(t, StateFault, st.State)
	require.Equal(t, Quantities{}, st.Current)
	require.False(t, e.EmergencyStop())
	require.True(t, e.Start(), "start clears a fault")
}

func TestSetParameters(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	require.ErrorIs(t, e.SetParameters(0, 440, 60), ErrInvalidParameters)
	require.ErrorIs(t, e.SetParameters(1500, math.Inf(1), 50), ErrInvalidParameters)

	require.NoError(t, e.SetParameters(1500, 400, 50))
	require.True(t, e.Start())
	st := e.Status()
	assert.Equal(t, Quantities{RPM: 1500, Voltage: 400, Frequency: 50}, st.Target)
}

func TestConcurrentAccessIsSerialized(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultParams())
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			e.Tick(0.05)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			switch i % 4 {
			case 0:
				e.Start()
			case 1:
				_, _ = e.SetLoad(float64(i % 120))
			case 2:
				e.AcknowledgeAlarm(AlarmLowOilPressure)
			case 3:
				if i%40 == 3 {
					e.Stop()
				}
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			st := e.Status()
			assert.GreaterOrEqual(t, st.Current.RPM, 0.0)
			assert.LessOrEqual(t, st.Current.Load, 100.0)
			assert.LessOrEqual(t, st.Target.Load, 100.0)
			for _, a := range st.ActiveAlarms {
				assert.True(t, a.Active)
			}
		}
	}()
	wg.Wait()
}

func TestParseAlarmType(t *testing.T) {
	t.Parallel()

	got, err := ParseAlarmType(" LOW_FUEL ")
	require.NoError(t, err)
	require.Equal(t, AlarmLowFuel, got)

	_, err = ParseAlarmType("fire")
	require.ErrorIs(t, err, ErrUnknownAlarm)
}
