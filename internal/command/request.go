// Package command implements the text command protocol used to control a
// generator over TCP.
//
// A request is one line of whitespace separated words, e.g. "set_load 75".
// Each request is answered with a single JSON object followed by a newline.
package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"genset-sim/internal/generator"
	"genset-sim/internal/sensor"
)

// Op names a protocol operation.
type Op string

const (
	OpStart         Op = "start"
	OpStop          Op = "stop"
	OpEmergencyStop Op = "emergency_stop"
	OpSetLoad       Op = "set_load"
	OpStatus        Op = "status"
	OpAlarms        Op = "alarms"
	OpAck           Op = "ack"
	OpResetAlarms   Op = "reset_alarms"
	OpFail          Op = "fail"
	OpDrift         Op = "drift"
	OpResetSensors  Op = "reset_sensors"
	OpRefuel        Op = "refuel"
	OpFault         Op = "fault"
	OpOverspeed     Op = "overspeed"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing argument")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Request is a parsed protocol line.
type Request struct {
	Op      Op
	Value   float64
	Channel sensor.Channel
	Failed  bool
	Alarm   generator.AlarmType
	Reason  string
}

// ArgError carries the client-facing message of a rejected argument.
type ArgError struct {
	Err     error
	Message string
}

func (e *ArgError) Error() string { return e.Message }

func (e *ArgError) Unwrap() error { return e.Err }

func missing(msg string) error { return &ArgError{Err: ErrMissingArgument, Message: msg} }

func invalid(msg string) error { return &ArgError{Err: ErrInvalidArgument, Message: msg} }

// Parse reads one request line. Operation names are case-insensitive.
func Parse(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Request{}, ErrUnknownCommand
	}
	req := Request{Op: Op(strings.ToLower(fields[0]))}
	args := fields[1:]

	switch req.Op {
	case OpStart, OpStop, OpEmergencyStop, OpStatus, OpAlarms, OpResetAlarms, OpResetSensors:
		return req, nil
	case OpSetLoad:
		v, err := percent(args, "load")
		if err != nil {
			return Request{}, err
		}
		req.Value = v
	case OpRefuel:
		v, err := percent(args, "fuel level")
		if err != nil {
			return Request{}, err
		}
		req.Value = v
	case OpAck:
		if len(args) == 0 {
			return Request{}, missing("Missing alarm type")
		}
		t, err := generator.ParseAlarmType(args[0])
		if err != nil {
			return Request{}, invalid(fmt.Sprintf("Unknown alarm type %q", args[0]))
		}
		req.Alarm = t
	case OpFail:
		if len(args) < 2 {
			return Request{}, missing("Usage: fail <sensor> <on|off>")
		}
		c, err := channel(args[0])
		if err != nil {
			return Request{}, err
		}
		switch strings.ToLower(args[1]) {
		case "on", "true", "1":
			req.Failed = true
		case "off", "false", "0":
			req.Failed = false
		default:
			return Request{}, invalid("Failure flag must be on or off")
		}
		req.Channel = c
	case OpDrift:
		if len(args) < 2 {
			return Request{}, missing("Usage: drift <sensor> <rate>")
		}
		c, err := channel(args[0])
		if err != nil {
			return Request{}, err
		}
		rate, err := strconv.ParseFloat(args[1], 64)
		if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return Request{}, invalid("Invalid drift rate")
		}
		req.Channel = c
		req.Value = rate
	case OpOverspeed:
		if len(args) == 0 {
			return Request{}, missing("Missing rpm value")
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Request{}, invalid("Invalid rpm value")
		}
		req.Value = v
	case OpFault:
		req.Reason = strings.Join(args, " ")
		if req.Reason == "" {
			req.Reason = "operator request"
		}
	default:
		return Request{}, ErrUnknownCommand
	}
	return req, nil
}

func percent(args []string, what string) (float64, error) {
	if len(args) == 0 {
		return 0, missing("Missing " + what + " value")
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(v) {
		return 0, invalid("Invalid " + what + " value")
	}
	if v < 0 || v > 100 {
		return 0, invalid(strings.ToUpper(what[:1]) + what[1:] + " must be between 0 and 100")
	}
	return v, nil
}

func channel(s string) (sensor.Channel, error) {
	c, err := sensor.ParseChannel(s)
	if err != nil {
		return "", invalid(fmt.Sprintf("Unknown sensor %q", s))
	}
	return c, nil
}
