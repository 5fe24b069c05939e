package sim

import "genset-sim/internal/telemetry"

// StateWriter handles simulation state rows, published once per tick.
type StateWriter interface {
	WriteState(telemetry.SimulationStateRow) error
}
