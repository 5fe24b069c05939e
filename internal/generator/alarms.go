package generator

import (
	"fmt"
	"math"
	"time"
)

// Alarm is one entry of the alarm log. Clearing an alarm only flips Active;
// records leave the log only through retention compaction.
type Alarm struct {
	ID        string    `json:"id"`
	Type      AlarmType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Active    bool      `json:"active"`
}

// Thresholds are the alarm trip points. Overload and overspeed are fractions
// of the rated load and speed.
type Thresholds struct {
	LowFuel           float64 // %
	LowOilPressure    float64 // bar
	HighTemperature   float64 // °C coolant
	OverloadFraction  float64
	OverspeedFraction float64
	HighVibration     float64 // mm/s
}

// DefaultThresholds returns the standard alarm panel settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowFuel:           10,
		LowOilPressure:    1.5,
		HighTemperature:   110,
		OverloadFraction:  0.95,
		OverspeedFraction: 1.1,
		HighVibration:     15,
	}
}

// evaluateAlarms raises and clears alarms from the current readings. Overspeed
// never clears on its own and trips an emergency stop.
func (e *Engine) evaluateAlarms() {
	r := e.sensors.Readings()
	th := e.thresholds

	e.check(AlarmLowFuel, r.FuelLevel < th.LowFuel,
		"Low fuel level: %.1f%%", r.FuelLevel)
	e.check(AlarmLowOilPressure, r.OilPressure < th.LowOilPressure,
		"Low oil pressure: %.2f bar", r.OilPressure)
	e.check(AlarmHighTemperature, r.CoolingTemp > th.HighTemperature,
		"High temperature: %.1f°C", r.CoolingTemp)
	e.check(AlarmOverload, e.current.Load > e.params.MaxLoad*th.OverloadFraction,
		"Generator overload: %.1f%%", e.current.Load)

	rpm := math.Max(e.current.RPM, e.forcedRPM)
	e.forcedRPM = 0
	if rpm > e.params.MaxRPM*th.OverspeedFraction {
		e.raise(AlarmOverspeed, fmt.Sprintf("Generator overspeed: %.0f RPM", rpm))
		if !e.emergencyStop() {
			// Already halted: the set still must not keep spinning.
			e.current = Quantities{}
			e.target.Load = 0
		}
	}

	e.check(AlarmHighVibration, r.Vibration > th.HighVibration,
		"High vibration: %.1f mm/s", r.Vibration)
}

func (e *Engine) check(t AlarmType, tripped bool, format string, args ...any) {
	if tripped {
		e.raise(t, fmt.Sprintf(format, args...))
		return
	}
	e.clear(t)
}

// raise appends an active alarm unless one of the same type is already active.
func (e *Engine) raise(t AlarmType, msg string) {
	for i := range e.alarms {
		if e.alarms[i].Type == t && e.alarms[i].Active {
			return
		}
	}
	a := Alarm{
		ID:        e.newID(),
		Type:      t,
		Message:   msg,
		Timestamp: e.now(),
		Active:    true,
	}
	e.alarms = append(e.alarms, a)
	e.log.Warnw("ALARM: "+msg, "type", t, "alarm_id", a.ID)
	e.compact()
}

// clear deactivates every active alarm of type t and reports how many changed.
func (e *Engine) clear(t AlarmType) int {
	n := 0
	for i := range e.alarms {
		if e.alarms[i].Type == t && e.alarms[i].Active {
			e.alarms[i].Active = false
			n++
		}
	}
	return n
}

// compact drops the oldest inactive records while the log exceeds retention.
func (e *Engine) compact() {
	excess := len(e.alarms) - e.retention
	if e.retention <= 0 || excess <= 0 {
		return
	}
	kept := e.alarms[:0]
	for _, a := range e.alarms {
		if excess > 0 && !a.Active {
			excess--
			continue
		}
		kept = append(kept, a)
	}
	// Zero the tail so dropped messages can be collected.
	for i := len(kept); i < len(e.alarms); i++ {
		e.alarms[i] = Alarm{}
	}
	e.alarms = kept
}

func (e *Engine) activeAlarms() []Alarm {
	active := []Alarm{}
	for _, a := range e.alarms {
		if a.Active {
			active = append(active, a)
		}
	}
	return active
}

// Alarms returns a copy of the full alarm log, oldest first.
func (e *Engine) Alarms() []Alarm {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Alarm, len(e.alarms))
	copy(out, e.alarms)
	return out
}

// ActiveAlarms returns the currently active alarms.
func (e *Engine) ActiveAlarms() []Alarm {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeAlarms()
}

// AcknowledgeAlarm deactivates all active alarms of type t and returns how
// many were acknowledged.
func (e *Engine) AcknowledgeAlarm(t AlarmType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.clear(t)
	if n > 0 {
		e.log.Infow("alarm acknowledged", "type", t, "count", n)
	}
	return n
}

// ResetAlarms deactivates every alarm and returns how many were active.
func (e *Engine) ResetAlarms() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for i := range e.alarms {
		if e.alarms[i].Active {
			e.alarms[i].Active = false
			n++
		}
	}
	e.log.Infow("all alarms reset", "count", n)
	return n
}
