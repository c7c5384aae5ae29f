package services

import (
	"log"
	"sync"
	"time"

	"unity-upload-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

type SweepStats struct {
	LastRun     time.Time `json:"last_run"`
	LastRemoved int       `json:"last_removed"`
	LastError   string    `json:"last_error,omitempty"`
	Runs        int       `json:"runs"`
}

// Sweeper drives BanRegistry.Sweep on a fixed period, plus any housekeeping
// jobs registered with AddJob. A failing run is logged and the next tick
// still fires.
type Sweeper struct {
	registry *BanRegistry
	interval time.Duration
	cron     *cron.Cron

	mu      sync.Mutex
	stats   SweepStats
	started bool
}

func NewSweeper(registry *BanRegistry, interval time.Duration) *Sweeper {
	if interval < time.Second {
		interval = time.Second
	}
	cronLog := cron.PrintfLogger(log.New(logger.NewStdLogger(), "[cron] ", 0))
	return &Sweeper{
		registry: registry,
		interval: interval,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
	}
}

// AddJob schedules fn on its own period alongside the sweep.
func (s *Sweeper) AddJob(name string, every time.Duration, fn func() error) {
	s.cron.Schedule(cron.Every(every), cron.FuncJob(func() {
		if err := fn(); err != nil {
			logger.Error("[%s] %v", name, err)
		}
	}))
}

// Start sweeps once synchronously, covering bans that lapsed while the
// process was down, then hands the schedule to cron.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.RunOnce()
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() { s.RunOnce() }))
	s.cron.Start()
	logger.Info("[sweeper] started, interval %s", s.interval)
}

// Stop waits for an in-flight run to finish. No run starts afterwards.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("[sweeper] stopped")
}

func (s *Sweeper) RunOnce() (int, error) {
	removed, err := s.registry.Sweep()

	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastRun = s.registry.Clock().Now()
	s.stats.LastRemoved = removed
	s.stats.LastError = ""
	if err != nil {
		s.stats.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		logger.Error("[sweeper] sweep failed: %v", err)
		return 0, err
	}
	if removed > 0 {
		logger.Info("[sweeper] removed %d expired ban(s)", removed)
	}
	return removed, nil
}

func (s *Sweeper) Stats() SweepStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
