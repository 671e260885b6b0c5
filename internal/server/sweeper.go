package server

import "time"

// sweep periodically scans all clients, freeing any idle past maxidletime
// and republishing the aggregate queued-reply gauge. Snapshot() pre-collects
// the list so FreeClient mutating the registry mid-scan is safe.
func (s *Server) sweep() {
	snapshot := s.registry.Snapshot()

	var queuedBytes int
	for _, c := range snapshot {
		if c.Detached() {
			continue
		}
		queuedBytes += c.BufPos + c.ReplyBytes
	}
	s.metrics.ReplyBytesQueued.Set(float64(queuedBytes))

	if s.cfg.MaxIdleTimeSeconds <= 0 {
		return
	}
	maxIdle := float64(s.cfg.MaxIdleTimeSeconds)

	for _, c := range snapshot {
		if c.Detached() {
			continue
		}
		if c.IdleSeconds() > maxIdle {
			s.metrics.IdleDisconnects.Inc()
			s.logger.Debug().Int("fd", c.FD).Float64("idle_s", c.IdleSeconds()).Msg("closing idle client")
			s.FreeClient(c)
		}
	}
}

// startSweeper schedules sweep on the reactor's own timer facility so no
// second goroutine ever touches client state, and no locking is required.
func (s *Server) startSweeper() {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Second
	}
	s.stopSweep = s.poller.AfterFunc(interval, s.sweep)
}
