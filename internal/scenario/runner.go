package scenario

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"genset-sim/internal/command"
	"genset-sim/internal/telemetry"
)

// Executor runs one protocol command line.
type Executor interface {
	Handle(line string) command.Response
}

// Runner plays a scenario against a generator. It is fed status rows as a
// simulator writer and advances at most one phase per row.
type Runner struct {
	sc   *Scenario
	exec Executor
	log  *zap.SugaredLogger

	mu      sync.Mutex
	phase   string
	entered time.Time
	started bool
	done    bool
}

// NewRunner prepares sc. The first phase is entered on the first row.
func NewRunner(sc *Scenario, exec Executor, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{sc: sc, exec: exec, log: log}
}

// Phase returns the current phase name, empty before the first row.
func (r *Runner) Phase() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Done reports whether a phase without triggers has been reached.
func (r *Runner) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Write implements sim.StatusWriter.
func (r *Runner) Write(row telemetry.StatusRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.done:
		return nil
	case !r.started:
		r.started = true
		r.enter(r.sc.Phases[0], row.Timestamp)
		return nil
	}
	next, ok := r.sc.NextPhase(r.phase, row, row.Timestamp.Sub(r.entered))
	if !ok {
		return nil
	}
	p, _ := r.sc.phase(next)
	r.enter(p, row.Timestamp)
	return nil
}

func (r *Runner) enter(p Phase, at time.Time) {
	r.phase = p.Name
	r.entered = at
	r.log.Infow("scenario phase", "scenario", r.sc.Name, "phase", p.Name, "description", p.Description)
	for _, a := range p.Actions {
		if resp := r.exec.Handle(a); resp.Status != command.StatusSuccess {
			r.log.Warnw("scenario action rejected", "phase", p.Name, "action", a, "message", resp.Message)
		}
	}
	if len(p.Triggers) == 0 {
		r.done = true
		r.log.Infow("scenario complete", "scenario", r.sc.Name)
	}
}
