package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"genset-sim/internal/generator"
	"genset-sim/internal/telemetry"
)

// fakeEngine records the deltas it is ticked with and reports a fixed status.
type fakeEngine struct {
	deltas []float64
	status generator.Status
}

func (e *fakeEngine) Tick(dt float64) { e.deltas = append(e.deltas, dt) }
func (e *fakeEngine) Status() generator.Status { return e.status }

// recordingWriter collects every row kind it is offered.
type recordingWriter struct {
	rows   []telemetry.StatusRow
	alarms []telemetry.AlarmRow
	states []telemetry.SimulationStateRow
	err    error
}

func (w *recordingWriter) Write(row telemetry.StatusRow) error {
	w.rows = append(w.rows, row)
	return w.err
}

func (w *recordingWriter) WriteAlarm(a telemetry.AlarmRow) error {
	w.alarms = append(w.alarms, a)
	return nil
}

func (w *recordingWriter) WriteState(s telemetry.SimulationStateRow) error {
	w.states = append(w.states, s)
	return nil
}

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSimulator(eng Engine, w StatusWriter) (*Simulator, *stepClock) {
	clk := &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSimulator("genset-test", eng, w, 200*time.Millisecond)
	s.now = clk.now
	s.last = clk.now()
	return s, clk
}

func TestTickUsesMeasuredElapsedTime(t *testing.T) {
	eng := &fakeEngine{status: generator.Status{State: generator.StateRunning}}
	w := &recordingWriter{}
	s, clk := newTestSimulator(eng, w)

	clk.advance(200 * time.Millisecond)
	s.tick(context.Background())
	clk.advance(350 * time.Millisecond)
	s.tick(context.Background())

	if len(eng.deltas) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(eng.deltas))
	}
	if eng.deltas[0] != 0.2 || eng.deltas[1] != 0.35 {
		t.Fatalf("unexpected deltas %v", eng.deltas)
	}
	st := s.State()
	if st.Ticks != 2 || st.LastDelta != 0.35 || st.MaxDelta != 0.35 {
		t.Fatalf("unexpected state %+v", st)
	}
	if len(w.rows) != 2 || w.rows[1].UnitID != "genset-test" || w.rows[1].State != "running" {
		t.Fatalf("unexpected rows %+v", w.rows)
	}
	if !w.rows[1].Timestamp.Equal(clk.t) {
		t.Fatalf("row timestamp %v, want %v", w.rows[1].Timestamp, clk.t)
	}
	if len(w.states) != 2 || w.states[1].Ticks != 2 {
		t.Fatalf("expected a state row per tick, got %+v", w.states)
	}
}

func TestFreshAlarmsDeliveredOnce(t *testing.T) {
	alarm := generator.Alarm{ID: "a1", Type: generator.AlarmLowFuel, Message: "Low fuel level: 5.0%", Active: true}
	eng := &fakeEngine{status: generator.Status{State: generator.StateRunning, ActiveAlarms: []generator.Alarm{alarm}}}
	w := &recordingWriter{}
	s, clk := newTestSimulator(eng, w)

	for i := 0; i < 3; i++ {
		clk.advance(200 * time.Millisecond)
		s.tick(context.Background())
	}
	if len(w.alarms) != 1 || w.alarms[0].ID != "a1" {
		t.Fatalf("expected one alarm delivery, got %+v", w.alarms)
	}

	// Cleared then raised again under a new record.
	eng.status.ActiveAlarms = nil
	clk.advance(200 * time.Millisecond)
	s.tick(context.Background())
	alarm.ID = "a2"
	eng.status.ActiveAlarms = []generator.Alarm{alarm}
	clk.advance(200 * time.Millisecond)
	s.tick(context.Background())
	if len(w.alarms) != 2 || w.alarms[1].ID != "a2" {
		t.Fatalf("expected re-raised alarm, got %+v", w.alarms)
	}
	if got := s.Latest().ActiveAlarms; len(got) != 1 || got[0].ID != "a2" {
		t.Fatalf("latest row alarms %+v", got)
	}
}

func TestWriteErrorsCounted(t *testing.T) {
	eng := &fakeEngine{status: generator.Status{State: generator.StateStopped}}
	w := &recordingWriter{err: errors.New("closed")}
	s, clk := newTestSimulator(eng, w)

	clk.advance(200 * time.Millisecond)
	s.tick(context.Background())
	if got := s.State().WriteErrors; got != 1 {
		t.Fatalf("expected 1 write error, got %d", got)
	}
	if len(eng.deltas) != 1 {
		t.Fatalf("engine should still tick on writer failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	eng := generator.New(generator.DefaultParams())
	w := &recordingWriter{}
	s := NewSimulator("genset-test", eng, nil, 5*time.Millisecond)
	s.writer = w

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if s.State().Ticks == 0 {
		t.Fatal("expected at least one tick")
	}
	if s.Latest().State != "stopped" {
		t.Fatalf("unexpected latest state %q", s.Latest().State)
	}
}

func TestNewSimulatorDefaults(t *testing.T) {
	s := NewSimulator("u", &fakeEngine{}, nil, 0)
	if s.TickInterval() != 200*time.Millisecond {
		t.Fatalf("default tick interval %v", s.TickInterval())
	}
	if err := s.writer.Write(telemetry.StatusRow{}); err != nil {
		t.Fatalf("discard writer: %v", err)
	}
}
