package core

// scheduler.go runs background maintenance for the Service.
//
// The session reaper drops sessions idle for longer than the configured TTL
// so their decoded tables can be garbage collected. Sessions with an attempt
// in progress are never reaped.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReapInterval is how often idle sessions are swept.
const DefaultReapInterval = time.Minute

// RunReaper sweeps idle sessions every interval until ctx is cancelled.
// It always returns nil so it can run in an errgroup next to the server.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultReapInterval
	}

	s.logger.Info("session reaper started",
		slog.Duration("idle_ttl", s.idleTTL),
		slog.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session reaper stopped")
			return nil
		case <-ticker.C:
			if n := s.ReapIdle(); n > 0 {
				s.logger.Info("reaped idle sessions",
					slog.Int("reaped", n),
					slog.Int("remaining", s.SessionCount()),
				)
			}
		}
	}
}

// ReapIdle removes sessions unused for longer than the idle TTL and returns
// how many were removed.
func (s *Service) ReapIdle() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	reaped := 0
	for id, sess := range s.sessions {
		if !sess.LastSeen().Before(cutoff) {
			continue
		}
		if sess.Controller.Snapshot().State == StateLoading {
			continue
		}
		delete(s.sessions, id)
		reaped++
	}

	if g, ok := s.observer.(sessionGauge); ok {
		g.SetSessions(len(s.sessions))
	}
	return reaped
}

// sessionGauge is implemented by observers that track the live session count.
type sessionGauge interface {
	SetSessions(n int)
}
