package sim

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/muesli/reflow/wordwrap"

	"genset-sim/internal/config"
	"genset-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// Controls are the operator actions bound to console keys.
type Controls interface {
	Start() bool
	Stop() bool
	EmergencyStop() bool
	SetLoad(pct float64) (float64, error)
	ResetAlarms() int
	ResetSensors()
}

// logMsg carries a line for the event log.
type logMsg struct{ line string }

// statusMsg carries a status update.
type statusMsg struct{ telemetry.StatusRow }

// alarmMsg carries a newly raised alarm.
type alarmMsg struct{ telemetry.AlarmRow }

// stateMsg carries a driver state update.
type stateMsg struct{ telemetry.SimulationStateRow }

// adminMsg reports admin server status.
type adminMsg struct{ active bool }

const (
	loadStep       = 5.0
	trendLength    = 120
	trendHeight    = 8
	maxLogLines    = 500
	maxLogHeight   = 12
	minTrendPoints = 2
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	alarmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	stateStyle = map[string]lipgloss.Style{
		"running":  lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		"starting": lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		"stopping": lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		"stopped":  lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true),
		"fault":    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

// TUIWriter renders generator status using a bubbletea TUI and forwards
// operator keys to the engine.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the program interrupts the process so the caller's signal handling runs.
func NewTUIWriter(cfg *config.Config, ctl Controls) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg, ctl), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements StatusWriter.
func (w *TUIWriter) Write(row telemetry.StatusRow) error {
	w.program.Send(statusMsg{row})
	return nil
}

// WriteAlarm implements AlarmWriter.
func (w *TUIWriter) WriteAlarm(a telemetry.AlarmRow) error {
	w.program.Send(alarmMsg{a})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.SimulationStateRow) error {
	w.program.Send(stateMsg{row})
	return nil
}

// SetAdminStatus updates the admin server indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg        *config.Config
	ctl        Controls
	table      table.Model
	vp         viewport.Model
	logs       []string
	status     telemetry.StatusRow
	state      telemetry.SimulationStateRow
	admin      bool
	wrap       bool
	autoscroll bool
	help       bool
	showTrend  bool
	rpmTrend   []float64
	loadTrend  []float64
	width      int
	height     int
}

func newTUIModel(cfg *config.Config, ctl Controls) tuiModel {
	if cfg == nil {
		cfg = config.Default()
	}
	cols := []table.Column{
		{Title: "Engine", Width: 16},
		{Title: "Value", Width: 16},
		{Title: "Sensor", Width: 18},
		{Title: "Value", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(6))
	m := tuiModel{
		cfg:        cfg,
		ctl:        ctl,
		table:      t,
		vp:         viewport.New(80, 5),
		autoscroll: true,
		showTrend:  true,
		status:     telemetry.StatusRow{UnitID: cfg.UnitID, State: "stopped"},
	}
	m.refreshTable()
	m.refreshViewport()
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.refreshViewport()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case statusMsg:
		m.status = msg.StatusRow
		m.pushTrend(msg.StatusRow)
		m.refreshTable()
	case alarmMsg:
		m.appendLog(alarmStyle.Render("ALARM") + " " + msg.Type + ": " + msg.Message)
	case stateMsg:
		m.state = msg.SimulationStateRow
	case adminMsg:
		m.admin = msg.active
	case logMsg:
		m.appendLog(msg.line)
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.help {
		switch msg.String() {
		case "?", "h", "esc":
			m.help = false
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		m.control("start", func() bool { return m.ctl.Start() })
	case "x":
		m.control("stop", func() bool { return m.ctl.Stop() })
	case "e":
		m.control("emergency stop", func() bool { return m.ctl.EmergencyStop() })
	case "+", "=":
		m.adjustLoad(loadStep)
	case "-":
		m.adjustLoad(-loadStep)
	case "a":
		if m.ctl != nil {
			m.appendLog(fmt.Sprintf("alarms reset (%d cleared)", m.ctl.ResetAlarms()))
		}
	case "r":
		if m.ctl != nil {
			m.ctl.ResetSensors()
			m.appendLog("sensor injections cleared")
		}
	case "w":
		m.wrap = !m.wrap
		m.refreshViewport()
	case "f":
		m.autoscroll = !m.autoscroll
		if m.autoscroll {
			m.vp.GotoBottom()
		}
	case "g":
		m.showTrend = !m.showTrend
		m.updateViewportHeight()
		if m.autoscroll {
			m.vp.GotoBottom()
		}
	case "h", "?":
		m.help = true
	default:
		if !m.autoscroll {
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *tuiModel) control(name string, fn func() bool) {
	if m.ctl == nil {
		return
	}
	if fn() {
		m.appendLog(name + " accepted")
		return
	}
	m.appendLog(name + " rejected in state " + m.status.State)
}

func (m *tuiModel) adjustLoad(delta float64) {
	if m.ctl == nil {
		return
	}
	got, err := m.ctl.SetLoad(m.status.TargetLoad + delta)
	if err != nil {
		m.appendLog("load change rejected: " + err.Error())
		return
	}
	m.status.TargetLoad = got
	m.appendLog(fmt.Sprintf("load target %.0f%%", got))
	m.refreshTable()
}

func (m *tuiModel) appendLog(line string) {
	ts := time.Now().Format("15:04:05")
	m.logs = append(m.logs, dimStyle.Render(ts)+" "+line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m *tuiModel) pushTrend(row telemetry.StatusRow) {
	rated := m.cfg.Engine.MaxRPM
	rpmPct := 0.0
	if rated > 0 {
		rpmPct = row.RPM / rated * 100
	}
	m.rpmTrend = appendBounded(m.rpmTrend, rpmPct, trendLength)
	m.loadTrend = appendBounded(m.loadTrend, row.Load, trendLength)
}

func appendBounded(s []float64, v float64, n int) []float64 {
	s = append(s, v)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

func (m *tuiModel) refreshTable() {
	s := m.status
	m.table.SetRows([]table.Row{
		{"State", s.State, "Fuel (%)", fmt.Sprintf("%.2f", s.FuelLevel)},
		{"RPM", fmt.Sprintf("%.0f / %.0f", s.RPM, s.TargetRPM), "Oil (bar)", fmt.Sprintf("%.2f", s.OilPressure)},
		{"Voltage (V)", fmt.Sprintf("%.1f / %.1f", s.Voltage, s.TargetVoltage), "Coolant (°C)", fmt.Sprintf("%.1f", s.CoolingTemp)},
		{"Frequency (Hz)", fmt.Sprintf("%.2f / %.2f", s.Frequency, s.TargetFrequency), "Exhaust (°C)", fmt.Sprintf("%.1f", s.ExhaustTemp)},
		{"Load (%)", fmt.Sprintf("%.1f / %.0f", s.Load, s.TargetLoad), "Vibration (mm/s)", fmt.Sprintf("%.2f", s.Vibration)},
		{"Active alarms", fmt.Sprintf("%d", len(s.ActiveAlarms)), "Failed sensors", strings.Join(s.FailedSensors, ",")},
	})
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	content := "no events"
	if len(lines) > 0 {
		content = strings.Join(lines, "\n")
	}
	m.vp.SetContent(content)
	m.updateViewportHeight()
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

// updateViewportHeight sizes the event log to its rendered lines, bounded by
// the space left under the header and trend.
func (m *tuiModel) updateViewportHeight() {
	h := m.vp.TotalLineCount()
	if h < 1 {
		h = 1
	}
	if h > maxLogHeight {
		h = maxLogHeight
	}
	if m.height > 0 {
		avail := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.renderBottom()) - 4
		if m.showTrend {
			avail -= trendHeight + 2
		}
		if h > avail {
			h = avail
		}
		if h < 1 {
			h = 1
		}
	}
	m.vp.Height = h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", max(m.vp.Width, 1))
	sections := []string{m.renderHeader(), divider}
	if m.showTrend {
		sections = append(sections, m.renderTrend(), divider)
	}
	sections = append(sections, "Events:", m.vp.View(), divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	st, ok := stateStyle[m.status.State]
	if !ok {
		st = dimStyle
	}
	title := titleStyle.Render("genset "+m.status.UnitID) + "  " + st.Render(strings.ToUpper(m.status.State))
	var alarms []string
	for _, a := range m.status.ActiveAlarms {
		alarms = append(alarms, alarmStyle.Render("● ")+a.Message)
	}
	parts := []string{title, m.table.View()}
	if len(alarms) > 0 {
		parts = append(parts, strings.Join(alarms, "\n"))
	}
	return strings.Join(parts, "\n")
}

func (m tuiModel) renderTrend() string {
	if len(m.rpmTrend) < minTrendPoints {
		return dimStyle.Render("collecting trend…")
	}
	width := m.width - 10
	if width < 20 {
		width = 20
	}
	return asciigraph.PlotMany([][]float64{m.rpmTrend, m.loadTrend},
		asciigraph.Height(trendHeight),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(110),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Magenta),
		asciigraph.Caption("rpm (% of rated, green) and load (%, magenta)"),
	)
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	state := fmt.Sprintf("%sDRIVER%s %sticks=%d%s %sdt=%.3fs%s %smax_dt=%.3fs%s",
		colorBlue, colorReset,
		colorGreen, m.state.Ticks, colorReset,
		colorYellow, m.state.LastDelta, colorReset,
		colorMagenta, m.state.MaxDelta, colorReset)
	return fmt.Sprintf("%s | Admin %s | Wrap %s | Follow %s | Trend %s | h help",
		state, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.showTrend))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" s  start generator",
		" x  controlled stop",
		" e  emergency stop",
		" +  raise load target 5%",
		" -  lower load target 5%",
		" a  reset all alarms",
		" r  clear sensor failures and drift",
		" w  toggle wrap for event log",
		" f  toggle follow (auto-scroll)",
		" g  toggle rpm/load trend",
		" q  quit",
		" h/? toggle this help view",
		"",
		"When follow is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
