package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type SchedulerStatus string

const (
	SchedulerRunning SchedulerStatus = "running"
	SchedulerStopped SchedulerStatus = "stopped"
)

type StartResult struct {
	AlreadyRunning bool
}

type TickFunc func(ctx context.Context)

// Scheduler invokes a tick function on a fixed interval. It owns all of its
// state, so several schedulers can coexist in one process. Overlapping ticks
// are dropped, not queued: when a tick is still executing, the next interval
// fire is skipped entirely.
type Scheduler struct {
	log      *logger.Logger
	tick     TickFunc
	interval time.Duration

	mu         sync.Mutex
	running    bool
	tickActive bool
	stopCh     chan struct{}
}

func NewScheduler(baseLog *logger.Logger, interval time.Duration, tick TickFunc) *Scheduler {
	return &Scheduler{
		log:      baseLog.With("component", "PipelineScheduler"),
		tick:     tick,
		interval: interval,
	}
}

// Start runs one tick immediately, then arms the repeating timer. Calling
// Start on a running scheduler is a reported no-op.
func (s *Scheduler) Start() StartResult {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Info("Scheduler already running")
		return StartResult{AlreadyRunning: true}
	}
	s.running = true
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	s.log.Info("Scheduler started", "interval", s.interval)
	go s.loop(stopCh)
	return StartResult{}
}

// Stop cancels the repeating timer. An in-flight tick completes naturally.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.stopCh = nil
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return SchedulerRunning
	}
	return SchedulerStopped
}

func (s *Scheduler) loop(stopCh chan struct{}) {
	s.runTick()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			go s.runTick()
		}
	}
}

func (s *Scheduler) runTick() {
	s.mu.Lock()
	if s.tickActive {
		s.mu.Unlock()
		s.log.Warn("Previous tick still executing, skipping")
		return
	}
	s.tickActive = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.tickActive = false
		s.mu.Unlock()
	}()

	s.tick(context.Background())
}
