package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"genset-sim/internal/telemetry"
)

// JSONStdoutWriter prints status and alarm rows as JSON lines.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a status row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.StatusRow) error {
	return w.emit(row)
}

// WriteAlarm outputs an alarm row in JSON format.
func (w *JSONStdoutWriter) WriteAlarm(row telemetry.AlarmRow) error {
	return w.emit(struct {
		Kind string `json:"kind"`
		telemetry.AlarmRow
	}{Kind: "alarm", AlarmRow: row})
}

func (w *JSONStdoutWriter) emit(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
