// ColorStdoutWriter prints human-friendly, colorized status to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"genset-sim/internal/config"
	"genset-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints status rows using ANSI colors. The configuration
// overview is printed once before the first row.
type ColorStdoutWriter struct {
	cfg  *config.Config
	out  io.Writer
	mu   sync.Mutex
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.Config) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func stateColor(state string) string {
	switch state {
	case "running":
		return colorGreen
	case "starting", "stopping":
		return colorYellow
	case "fault":
		return colorRed
	default:
		return colorGray
	}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	e := w.cfg.Engine
	fmt.Fprintln(w.out, "Generator Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Unit:\t%s\n", w.cfg.UnitID)
	fmt.Fprintf(tw, "Rating:\t%.0f rpm, %.0f V, %.0f Hz\n", e.MaxRPM, e.MaxVoltage, e.MaxFrequency)
	fmt.Fprintf(tw, "Droop:\t%.0f rpm, %.0f V at full load\n", e.DroopRPM, e.DroopVoltage)
	fmt.Fprintf(tw, "Minimum Load:\t%.0f%%\n", e.MinLoad)
	fmt.Fprintf(tw, "Startup/Shutdown:\t%s / %s\n", e.StartupDuration, e.ShutdownDuration)
	fmt.Fprintf(tw, "Sensor Noise:\t%.2f\n", w.cfg.Sensors.NoiseLevel)
	fmt.Fprintf(tw, "Tick Interval:\t%s\n", w.cfg.Simulation.TickInterval)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single status row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.StatusRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%sunit=%s%s ", colorBlue, row.UnitID, colorReset)
	fmt.Fprintf(w.out, "%sstate=%s%s ", stateColor(row.State), row.State, colorReset)
	fmt.Fprintf(w.out, "%srpm=%.0f%s ", colorGreen, row.RPM, colorReset)
	fmt.Fprintf(w.out, "%svolt=%.1f%s ", colorYellow, row.Voltage, colorReset)
	fmt.Fprintf(w.out, "%sfreq=%.2f%s ", colorYellow, row.Frequency, colorReset)
	fmt.Fprintf(w.out, "%sload=%.1f/%.0f%s ", colorMagenta, row.Load, row.TargetLoad, colorReset)
	fmt.Fprintf(w.out, "%sfuel=%.2f%s ", colorCyan, row.FuelLevel, colorReset)
	fmt.Fprintf(w.out, "%soil=%.2f%s ", colorCyan, row.OilPressure, colorReset)
	fmt.Fprintf(w.out, "%scool=%.1f%s ", colorCyan, row.CoolingTemp, colorReset)
	fmt.Fprintf(w.out, "%svib=%.1f%s", colorCyan, row.Vibration, colorReset)
	if n := len(row.ActiveAlarms); n > 0 {
		fmt.Fprintf(w.out, " %salarms=%d%s", colorRed, n, colorReset)
	}
	_, err := fmt.Fprintln(w.out)
	return err
}

// WriteAlarm prints a newly raised alarm.
func (w *ColorStdoutWriter) WriteAlarm(a telemetry.AlarmRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintf(w.out, "%s[%s]%s %sALARM%s type=%s %s\n",
		colorGray, a.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset, a.Type, a.Message)
	return err
}
