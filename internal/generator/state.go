package generator

import (
	"errors"
	"fmt"
	"strings"
)

// State is the operational state of the generator set.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateFault    State = "fault"
)

func (s State) String() string { return string(s) }

// canStart reports whether Start is permitted from s.
func (s State) canStart() bool { return s == StateStopped || s == StateFault }

// canStop reports whether a controlled Stop is permitted from s.
func (s State) canStop() bool { return s == StateRunning || s == StateStarting }

// halted reports whether the engine is at rest, i.e. stopped or faulted.
func (s State) halted() bool { return s == StateStopped || s == StateFault }

// AlarmType identifies an alarm condition. At most one alarm of each type is
// active at a time.
type AlarmType string

const (
	AlarmLowFuel         AlarmType = "low_fuel"
	AlarmLowOilPressure  AlarmType = "low_oil_pressure"
	AlarmHighTemperature AlarmType = "high_temperature"
	AlarmOverload        AlarmType = "overload"
	AlarmOverspeed       AlarmType = "overspeed"
	AlarmHighVibration   AlarmType = "high_vibration"
)

// ErrUnknownAlarm is returned when an alarm type name is not recognised.
var ErrUnknownAlarm = errors.New("unknown alarm type")

// AlarmTypes lists every alarm type in evaluation order.
func AlarmTypes() []AlarmType {
	return []AlarmType{
		AlarmLowFuel,
		AlarmLowOilPressure,
		AlarmHighTemperature,
		AlarmOverload,
		AlarmOverspeed,
		AlarmHighVibration,
	}
}

// ParseAlarmType accepts the wire name of an alarm type, case-insensitively.
func ParseAlarmType(s string) (AlarmType, error) {
	name := AlarmType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range AlarmTypes() {
		if t == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlarm, s)
}
