// Package scenario scripts operator training drills: ordered phases that
// issue protocol commands on entry and advance when the generator status
// matches a trigger.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"genset-sim/internal/telemetry"
)

// Trigger events.
const (
	EventTimeElapsed  = "time_elapsed"  // Value seconds spent in the phase
	EventState        = "state"         // Match is the engine state
	EventAlarm        = "alarm"         // Match is an active alarm type
	EventAlarmCleared = "alarm_cleared" // Match is an alarm type no longer active
	EventFuelBelow    = "fuel_below"    // Value is a fuel level in percent
)

// ErrInvalidScenario wraps every structural problem found by Validate.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario defines a drill with ordered phases and an overall description.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase is one stage of a drill. Actions are protocol command lines such as
// "set_load 80" sent when the phase is entered.
type Phase struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Actions     []string  `yaml:"actions,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
}

// Trigger moves the drill to another phase when its event is observed.
type Trigger struct {
	Event string  `yaml:"event"`
	Value float64 `yaml:"value,omitempty"`
	Match string  `yaml:"match,omitempty"`
	Next  string  `yaml:"next"`
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Lookup returns a built-in drill by name, or loads nameOrPath as a file.
func Lookup(nameOrPath string) (*Scenario, error) {
	if s, ok := BuiltIn()[nameOrPath]; ok {
		return &s, nil
	}
	return Load(nameOrPath)
}

// Validate checks that phases are named uniquely and every trigger is known
// and points at an existing phase.
func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("%w: no phases", ErrInvalidScenario)
	}
	names := make(map[string]struct{}, len(s.Phases))
	for _, p := range s.Phases {
		if p.Name == "" {
			return fmt.Errorf("%w: phase without name", ErrInvalidScenario)
		}
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("%w: duplicate phase %q", ErrInvalidScenario, p.Name)
		}
		names[p.Name] = struct{}{}
	}
	var errs []error
	for _, p := range s.Phases {
		for _, tr := range p.Triggers {
			switch tr.Event {
			case EventTimeElapsed, EventState, EventAlarm, EventAlarmCleared, EventFuelBelow:
			default:
				errs = append(errs, fmt.Errorf("%w: phase %q: unknown event %q", ErrInvalidScenario, p.Name, tr.Event))
			}
			if _, ok := names[tr.Next]; !ok {
				errs = append(errs, fmt.Errorf("%w: phase %q: unknown next phase %q", ErrInvalidScenario, p.Name, tr.Next))
			}
		}
	}
	return errors.Join(errs...)
}

// phase returns the named phase.
func (s *Scenario) phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the phase that follows current given a status row and the
// time spent in current. If no trigger matches, ok is false.
func (s *Scenario) NextPhase(current string, row telemetry.StatusRow, inPhase time.Duration) (next string, ok bool) {
	p, found := s.phase(current)
	if !found {
		return "", false
	}
	for _, tr := range p.Triggers {
		if tr.matches(row, inPhase) {
			return tr.Next, true
		}
	}
	return "", false
}

func (tr Trigger) matches(row telemetry.StatusRow, inPhase time.Duration) bool {
	switch tr.Event {
	case EventTimeElapsed:
		return inPhase.Seconds() >= tr.Value
	case EventState:
		return row.State == tr.Match
	case EventAlarm:
		return alarmActive(row, tr.Match)
	case EventAlarmCleared:
		return !alarmActive(row, tr.Match)
	case EventFuelBelow:
		return row.FuelLevel < tr.Value
	}
	return false
}

func alarmActive(row telemetry.StatusRow, typ string) bool {
	for _, a := range row.ActiveAlarms {
		if a.Type == typ {
			return true
		}
	}
	return false
}
