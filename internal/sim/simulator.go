// Package sim drives a generator engine in real time and publishes its status
// to pluggable writers.
package sim

import (
	"sync"
	"time"

	"genset-sim/internal/generator"
	"genset-sim/internal/telemetry"
)

// StatusWriter is an interface to support different status outputs.
type StatusWriter interface {
	Write(telemetry.StatusRow) error
}

// AlarmWriter receives each alarm once, when it is first seen active.
type AlarmWriter interface {
	WriteAlarm(telemetry.AlarmRow) error
}

// Engine is the part of generator.Engine the driver needs.
type Engine interface {
	Tick(dt float64)
	Status() generator.Status
}

// Simulator ticks an engine at a fixed cadence with the measured elapsed time
// and fans the resulting status out to a writer.
type Simulator struct {
	unitID       string
	engine       Engine
	writer       StatusWriter
	tickInterval time.Duration
	now          func() time.Time

	mu          sync.Mutex
	last        time.Time
	seen        map[string]struct{}
	ticks       uint64
	lastDelta   float64
	maxDelta    float64
	writeErrors uint64
	latest      telemetry.StatusRow
}

// NewSimulator prepares a driver for engine. A nil writer discards output.
func NewSimulator(unitID string, engine Engine, writer StatusWriter, tickInterval time.Duration) *Simulator {
	if writer == nil {
		writer = discardWriter{}
	}
	if tickInterval <= 0 {
		tickInterval = 200 * time.Millisecond
	}
	return &Simulator{
		unitID:       unitID,
		engine:       engine,
		writer:       writer,
		tickInterval: tickInterval,
		now:          time.Now,
		seen:         make(map[string]struct{}),
	}
}

// UnitID returns the unit identifier stamped on every row.
func (s *Simulator) UnitID() string { return s.unitID }

// TickInterval returns the nominal driver period.
func (s *Simulator) TickInterval() time.Duration { return s.tickInterval }

// Latest returns the most recently published status row.
func (s *Simulator) Latest() telemetry.StatusRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// State returns the driver bookkeeping as a row.
func (s *Simulator) State() telemetry.SimulationStateRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateRow()
}

func (s *Simulator) stateRow() telemetry.SimulationStateRow {
	return telemetry.SimulationStateRow{
		UnitID:       s.unitID,
		TickInterval: s.tickInterval.String(),
		Ticks:        s.ticks,
		LastDelta:    s.lastDelta,
		MaxDelta:     s.maxDelta,
		WriteErrors:  s.writeErrors,
		Timestamp:    s.last,
	}
}

type discardWriter struct{}

func (discardWriter) Write(telemetry.StatusRow) error { return nil }
