package sim

import (
	"errors"

	"genset-sim/internal/telemetry"
)

// MultiWriter fans status, alarm and state rows out to multiple writers.
// A failing writer does not stop delivery to the others.
type MultiWriter struct {
	writers []StatusWriter
}

// NewMultiWriter creates a new MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...StatusWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Add appends w to the fan-out. It must not be called once rows are flowing.
func (mw *MultiWriter) Add(w StatusWriter) {
	if w != nil {
		mw.writers = append(mw.writers, w)
	}
}

// Writers returns the fan-out targets in delivery order.
func (mw *MultiWriter) Writers() []StatusWriter {
	return append([]StatusWriter(nil), mw.writers...)
}

// Write sends a status row to all writers.
func (mw *MultiWriter) Write(row telemetry.StatusRow) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteAlarm sends an alarm row to every writer that accepts alarms.
func (mw *MultiWriter) WriteAlarm(row telemetry.AlarmRow) error {
	var errs []error
	for _, w := range mw.writers {
		if aw, ok := w.(AlarmWriter); ok {
			if err := aw.WriteAlarm(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteState sends a state row to every writer that accepts state rows.
func (mw *MultiWriter) WriteState(row telemetry.SimulationStateRow) error {
	var errs []error
	for _, w := range mw.writers {
		if sw, ok := w.(StateWriter); ok {
			if err := sw.WriteState(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards the admin server status to writers that show it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}
