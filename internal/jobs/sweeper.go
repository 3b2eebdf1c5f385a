// Package jobs runs the background sweeper that removes expired sessions
// and stale rate-limit windows.
package jobs

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/wallet-relay-go/internal/session"
)

// LimiterSweeper is implemented by the in-memory rate limiter. The Redis
// limiter self-expires its keys, so it has nothing to sweep; pass nil.
type LimiterSweeper interface {
	Sweep() int
}

type Sweeper struct {
	store    *session.Store
	limiter  LimiterSweeper
	interval time.Duration
	done     chan struct{}
}

func NewSweeper(store *session.Store, limiter LimiterSweeper, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		limiter:  limiter,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.run()
	log.Info().Dur("interval", s.interval).Msg("sweeper started")
}

func (s *Sweeper) Stop() {
	close(s.done)
	log.Info().Msg("sweeper stopped")
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one pass; exported so tests can tick without waiting.
func (s *Sweeper) Sweep() {
	if removed := s.store.CleanupExpired(); removed > 0 {
		log.Info().Int("count", removed).Msg("expired sessions removed")
	}
	if s.limiter != nil {
		if removed := s.limiter.Sweep(); removed > 0 {
			log.Debug().Int("count", removed).Msg("stale rate-limit entries removed")
		}
	}
}
