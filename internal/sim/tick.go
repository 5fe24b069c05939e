package sim

import (
	"context"
	"time"

	"genset-sim/internal/logging"
	"genset-sim/internal/telemetry"
)

// Run starts the simulation loop and stops when the context is done.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Infow("starting simulator", "unit_id", s.unitID, "tick_interval", s.tickInterval)

	s.mu.Lock()
	s.last = s.now()
	s.mu.Unlock()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			log.Infow("stopping simulator", "ticks", s.State().Ticks)
			return
		}
	}
}

// tick advances the engine by the time measured since the previous tick, not
// the nominal interval, then publishes the new status.
func (s *Simulator) tick(ctx context.Context) {
	log := logging.FromContext(ctx)

	s.mu.Lock()
	now := s.now()
	dt := 0.0
	if !s.last.IsZero() {
		dt = now.Sub(s.last).Seconds()
	}
	s.last = now
	s.ticks++
	s.lastDelta = dt
	if dt > s.maxDelta {
		s.maxDelta = dt
	}
	s.mu.Unlock()

	s.engine.Tick(dt)
	row := telemetry.NewStatusRow(s.unitID, s.engine.Status(), now)
	fresh := s.record(row)

	if err := s.writer.Write(row); err != nil {
		s.writeFailed()
		log.Warnw("status write failed", "error", err)
	}
	if aw, ok := s.writer.(AlarmWriter); ok {
		for _, a := range fresh {
			if err := aw.WriteAlarm(a); err != nil {
				s.writeFailed()
				log.Warnw("alarm write failed", "alarm_id", a.ID, "error", err)
			}
		}
	}
	if sw, ok := s.writer.(StateWriter); ok {
		if err := sw.WriteState(s.State()); err != nil {
			s.writeFailed()
			log.Warnw("state write failed", "error", err)
		}
	}
}

// record stores row as the latest sample and returns the active alarms that
// were not active on the previous tick.
func (s *Simulator) record(row telemetry.StatusRow) []telemetry.AlarmRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = row
	var fresh []telemetry.AlarmRow
	next := make(map[string]struct{}, len(row.ActiveAlarms))
	for _, a := range row.ActiveAlarms {
		next[a.ID] = struct{}{}
		if _, ok := s.seen[a.ID]; !ok {
			fresh = append(fresh, a)
		}
	}
	s.seen = next
	return fresh
}

func (s *Simulator) writeFailed() {
	s.mu.Lock()
	s.writeErrors++
	s.mu.Unlock()
}
