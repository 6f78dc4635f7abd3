package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
)

// Task represents a scheduled task
type Task struct {
	Name     string
	Interval time.Duration
	Fn       func(context.Context) error
}

// Scheduler runs named tasks on fixed intervals. Each task runs once
// immediately on Start and never overlaps with itself.
type Scheduler struct {
	tasks   []*Task
	clock   clockwork.Clock
	logger  *logging.Logger
	running bool
	mutex   sync.Mutex
	cron    gocron.Scheduler
	cancel  context.CancelFunc
}

// NewScheduler creates a new scheduler
func NewScheduler(clock clockwork.Clock, logger *logging.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Scheduler{
		tasks:  make([]*Task, 0),
		clock:  clock,
		logger: logger,
	}
}

// AddTask adds a task to the scheduler. Tasks added after Start wait for the next Start.
func (s *Scheduler) AddTask(name string, interval time.Duration, fn func(context.Context) error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
}

// Tasks returns the names of the registered tasks
func (s *Scheduler) Tasks() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		names = append(names, t.Name)
	}
	return names
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	cron, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	for _, task := range s.tasks {
		if task.Interval <= 0 {
			cancel()
			_ = cron.Shutdown()
			return fmt.Errorf("task %s has non-positive interval %v", task.Name, task.Interval)
		}
		t := task
		_, err := cron.NewJob(
			gocron.DurationJob(t.Interval),
			gocron.NewTask(func() { s.runTask(ctx, t) }),
			gocron.WithName(t.Name),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			_ = cron.Shutdown()
			return fmt.Errorf("failed to schedule task %s: %w", t.Name, err)
		}
	}

	cron.Start()
	s.cron = cron
	s.cancel = cancel
	s.running = true

	s.logger.Info("[SCHEDULER] Started with %d tasks", len(s.tasks))
	return nil
}

// Stop stops the scheduler and waits for running tasks to return
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	if err := s.cron.Shutdown(); err != nil {
		s.logger.Warn("[SCHEDULER] Shutdown: %v", err)
	}
	s.running = false
	s.logger.Info("[SCHEDULER] Stopped")
}

func (s *Scheduler) runTask(ctx context.Context, task *Task) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Debug("[SCHEDULER] Running task %s", task.Name)
	if err := task.Fn(ctx); err != nil {
		s.logger.Error("[SCHEDULER] Error running task %s: %v", task.Name, err)
	}
}
