// Package maintenance runs the router's periodic upkeep: sweeping expired
// sessions and stale score-cache entries on a fixed cadence, following the
// same cron.Cron-backed scheduler pattern used elsewhere in the tree.
package maintenance

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bright8192/ClawRouter/internal/cache"
	"github.com/bright8192/ClawRouter/internal/logging"
	"github.com/bright8192/ClawRouter/internal/metrics"
	"github.com/bright8192/ClawRouter/internal/session"
)

// sweepSpec runs the sweep every five minutes.
const sweepSpec = "@every 5m"

// Scheduler drives the router's periodic maintenance sweep.
type Scheduler struct {
	cron       *cron.Cron
	sessions   *session.Store
	scoreCache *cache.Cache
}

// NewScheduler builds a scheduler that sweeps sessions and the score cache
// on a fixed cadence. scoreCache may be nil, in which case only sessions are
// swept.
func NewScheduler(sessions *session.Store, scoreCache *cache.Cache) *Scheduler {
	s := &Scheduler{
		cron:       cron.New(),
		sessions:   sessions,
		scoreCache: scoreCache,
	}
	s.scheduleSweep()
	return s
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) scheduleSweep() {
	log := logging.WithComponent("maintenance")
	_, err := s.cron.AddFunc(sweepSpec, func() {
		removed := s.sessions.SweepExpired(time.Now())
		metrics.ActiveSessions.Set(float64(s.sessions.Len()))
		if removed > 0 {
			log.Info().Int("removed", removed).Msg("swept expired sessions")
		}

		if s.scoreCache != nil {
			cacheRemoved := s.scoreCache.SweepExpired()
			metrics.ScoreCacheEntries.Set(float64(s.scoreCache.Len()))
			if cacheRemoved > 0 {
				log.Info().Int("removed", cacheRemoved).Msg("swept expired score cache entries")
			}
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to schedule session sweep")
	}
}
