package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Purger is implemented by stores that keep expired entries on disk until
// they are removed explicitly.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// purgeTimeout bounds a single scheduled purge.
const purgeTimeout = time.Minute

// ParseSchedule validates a cron expression or descriptor such as "@hourly".
func ParseSchedule(expr string) (cron.Schedule, error) {
	return scheduleParser.Parse(expr)
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// PurgeScheduler runs Purge on a cron schedule.
type PurgeScheduler struct {
	cron    *cron.Cron
	purger  Purger
	logger  zerolog.Logger
	removed atomic.Int64
	runs    atomic.Int64
}

// NewPurgeScheduler registers a purge of p on the cron expression expr. Call Start to begin.
func NewPurgeScheduler(p Purger, expr string, logger zerolog.Logger) (*PurgeScheduler, error) {
	s := &PurgeScheduler{
		cron:   cron.New(cron.WithParser(scheduleParser)),
		purger: p,
		logger: logger.With().Str("component", "PurgeScheduler").Logger(),
	}
	if _, err := s.cron.AddFunc(expr, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", expr, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *PurgeScheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running purge to finish.
func (s *PurgeScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Runs returns how many purges have completed.
func (s *PurgeScheduler) Runs() int64 {
	return s.runs.Load()
}

// Removed returns the total number of entries purged so far.
func (s *PurgeScheduler) Removed() int64 {
	return s.removed.Load()
}

func (s *PurgeScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := s.purger.Purge(ctx)
	s.runs.Add(1)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled purge failed.")
		return
	}
	s.removed.Add(n)
	s.logger.Debug().Int64("removed", n).Msg("Scheduled purge finished.")
}
