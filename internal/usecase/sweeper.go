package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ChartDeck/pkg/logger"
)

// Sweeper periodically closes chart sessions nobody has touched for ttl.
type Sweeper struct {
	sessions *ChartSessions
	spec     string
	ttl      time.Duration
	cron     *cron.Cron
	logger   *logger.Logger
}

func NewSweeper(sessions *ChartSessions, spec string, ttl time.Duration, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.Nop()
	}
	return &Sweeper{
		sessions: sessions,
		spec:     spec,
		ttl:      ttl,
		cron:     cron.New(),
		logger:   log,
	}
}

// Start schedules the sweep. A zero ttl disables it.
func (s *Sweeper) Start() error {
	if s.ttl <= 0 {
		s.logger.Info("session sweeper disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.Sweep() }); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("session sweeper started", logger.String("spec", s.spec), logger.Duration("ttl", s.ttl))
	return nil
}

// Sweep runs one pass and returns the number of sessions closed.
func (s *Sweeper) Sweep() int {
	return s.sessions.SweepIdle(s.ttl)
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
