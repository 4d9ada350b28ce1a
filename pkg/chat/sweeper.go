package chat

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Sweeper periodically reclaims ringing calls whose clients never reported
// a timeout, the server-side safety net behind the client ring timer.
type Sweeper struct {
	coordinator *CallCoordinator
	interval    time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewSweeper(coordinator *CallCoordinator, interval time.Duration) *Sweeper {
	return &Sweeper{
		coordinator: coordinator,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if n := s.coordinator.SweepStale(now); n > 0 {
				log.Infof("sweeper reclaimed %d stale call(s)", n)
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop shuts the sweeper down and waits for the loop to exit.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}
