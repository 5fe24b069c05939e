package command

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"genset-sim/internal/generator"
	"genset-sim/internal/sensor"
	"genset-sim/internal/telemetry"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the JSON object written back for every request.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func success(msg string) Response { return Response{Status: StatusSuccess, Message: msg} }

func failure(msg string) Response { return Response{Status: StatusError, Message: msg} }

// Controller is the generator surface reachable through the protocol.
type Controller interface {
	Start() bool
	Stop() bool
	EmergencyStop() bool
	EnterFault(reason string) bool
	SetLoad(pct float64) (float64, error)
	Status() generator.Status
	Alarms() []generator.Alarm
	AcknowledgeAlarm(t generator.AlarmType) int
	ResetAlarms() int
	SetSensorFailure(c sensor.Channel, failed bool) error
	SetSensorDrift(c sensor.Channel, rate float64) error
	ResetSensors()
	SetFuelLevel(level float64) error
	ForceRPM(rpm float64)
}

// Handler executes parsed requests against a generator.
type Handler struct {
	unitID string
	gen    Controller
	log    *zap.SugaredLogger
	now    func() time.Time
}

// NewHandler returns a Handler for gen. A nil logger discards output.
func NewHandler(unitID string, gen Controller, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{unitID: unitID, gen: gen, log: log, now: time.Now}
}

// Handle parses and executes one request line.
func (h *Handler) Handle(line string) Response {
	req, err := Parse(line)
	if err != nil {
		h.log.Debugw("rejected command", "line", line, "error", err)
		return failure(errorMessage(err))
	}
	resp := h.Execute(req)
	h.log.Debugw("command", "op", req.Op, "status", resp.Status, "message", resp.Message)
	return resp
}

// Execute runs an already parsed request.
func (h *Handler) Execute(req Request) Response {
	switch req.Op {
	case OpStart:
		if h.gen.Start() {
			return success("Generator started")
		}
		return failure("Generator cannot start while " + h.state())
	case OpStop:
		if h.gen.Stop() {
			return success("Generator stopped")
		}
		return failure("Generator cannot stop while " + h.state())
	case OpEmergencyStop:
		if h.gen.EmergencyStop() {
			return success("Emergency stop activated")
		}
		return failure("Generator is already " + h.state())
	case OpSetLoad:
		got, err := h.gen.SetLoad(req.Value)
		if err != nil {
			return failure(err.Error())
		}
		return success("Load set to " + strconv.FormatFloat(got, 'f', -1, 64) + "%")
	case OpStatus:
		row := telemetry.NewStatusRow(h.unitID, h.gen.Status(), h.now())
		return Response{Status: StatusSuccess, Data: row}
	case OpAlarms:
		rows := telemetry.NewAlarmRows(h.unitID, h.gen.Alarms())
		return Response{Status: StatusSuccess, Data: rows}
	case OpAck:
		n := h.gen.AcknowledgeAlarm(req.Alarm)
		return success(fmt.Sprintf("Acknowledged %d %s alarm(s)", n, req.Alarm))
	case OpResetAlarms:
		return success(fmt.Sprintf("Cleared %d alarm(s)", h.gen.ResetAlarms()))
	case OpFail:
		if err := h.gen.SetSensorFailure(req.Channel, req.Failed); err != nil {
			return failure(err.Error())
		}
		flag := "off"
		if req.Failed {
			flag = "on"
		}
		return success(fmt.Sprintf("Sensor %s failure %s", req.Channel, flag))
	case OpDrift:
		if err := h.gen.SetSensorDrift(req.Channel, req.Value); err != nil {
			return failure(err.Error())
		}
		return success(fmt.Sprintf("Sensor %s drift set to %g per second", req.Channel, req.Value))
	case OpResetSensors:
		h.gen.ResetSensors()
		return success("Sensor failures and drift cleared")
	case OpRefuel:
		if err := h.gen.SetFuelLevel(req.Value); err != nil {
			return failure(err.Error())
		}
		return success(fmt.Sprintf("Fuel level set to %.1f%%", req.Value))
	case OpOverspeed:
		h.gen.ForceRPM(req.Value)
		return success(fmt.Sprintf("Engine speed forced to %.0f RPM", req.Value))
	case OpFault:
		if h.gen.EnterFault(req.Reason) {
			return success("Generator fault: " + req.Reason)
		}
		return failure("Generator is already in fault")
	}
	return failure("Unknown command")
}

func (h *Handler) state() string { return h.gen.Status().State.String() }

func errorMessage(err error) string {
	var ae *ArgError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if errors.Is(err, ErrUnknownCommand) {
		return "Unknown command"
	}
	return err.Error()
}
