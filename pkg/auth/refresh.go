package auth

import (
	"context"
	"time"
)

// StartAutoRefresh launches the session refresh loop. On every tick the
// loop refreshes the session when its remaining lifetime has dropped below
// the configured threshold. Double start is a no-op; the loop is also a
// no-op when auto refresh is disabled in config.
func (s *Service) StartAutoRefresh() {
	if !s.cfg.EnableAutoRefresh {
		return
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.refreshLoop(s.stopCh, s.doneCh)
}

// StopAutoRefresh halts the loop and waits for any in-flight refresh to
// finish, so no session mutation happens after it returns. Idempotent.
func (s *Service) StopAutoRefresh() {
	s.refreshMu.Lock()
	if !s.running {
		s.refreshMu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.refreshMu.Unlock()
	<-done
}

func (s *Service) refreshLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(s.cfg.AutoRefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refreshIfNeeded()
		case <-stopCh:
			return
		}
	}
}

// refreshIfNeeded refreshes when the session is within the threshold of
// expiry. Sessions without an expiry never refresh automatically.
func (s *Service) refreshIfNeeded() {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil || session.ExpiresAt.IsZero() {
		return
	}
	if session.ExpiresAt.Sub(now()) >= s.cfg.SessionRefreshThreshold() {
		return
	}

	if _, err := s.Refresh(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("automatic session refresh failed")
	}
}
