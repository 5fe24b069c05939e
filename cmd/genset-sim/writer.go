package main

import (
	"fmt"

	"genset-sim/internal/admin"
	"genset-sim/internal/config"
	"genset-sim/internal/sim"
)

// Stdout feed formats.
const (
	formatJSON  = "json"
	formatColor = "color"
	formatNone  = "none"
)

// newWriters assembles the status writers for the simulate command. The
// stdout feed is always JSON when printOnly is set; a nil hub adds no
// websocket stream.
func newWriters(cfg *config.Config, format string, printOnly bool, hub *admin.Hub) (*sim.MultiWriter, error) {
	if printOnly {
		format = formatJSON
	}
	var ws []sim.StatusWriter
	switch format {
	case formatJSON:
		ws = append(ws, sim.NewJSONStdoutWriter())
	case formatColor, "":
		ws = append(ws, sim.NewColorStdoutWriter(cfg))
	case formatNone:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	if hub != nil {
		ws = append(ws, hub)
	}
	return sim.NewMultiWriter(ws...), nil
}
