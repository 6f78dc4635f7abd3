package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/backup"
	"github.com/fadedpez/quantumtheater/pkg/entities"
)

type counter struct {
	mu    sync.Mutex
	calls map[string]int
	at    []time.Time
}

func newCounter() *counter {
	return &counter{calls: map[string]int{}}
}

func (c *counter) hit(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
}

func (c *counter) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *counter) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	c.at = append(c.at, now)
	c.mu.Unlock()
	c.hit("sweep")
	return 1, nil
}

func (c *counter) AdvanceFact(ctx context.Context) (*entities.Fact, error) {
	c.hit("fact")
	return &entities.Fact{ID: "1"}, nil
}

func (c *counter) ReconcilePending(ctx context.Context, now time.Time) (int, int, error) {
	c.hit("ads")
	return 0, 0, nil
}

func (c *counter) Export(ctx context.Context) (string, *backup.Snapshot, error) {
	c.hit("backup")
	return "", nil, errors.New("bucket unavailable")
}

type SchedulerTestSuite struct {
	suite.Suite
	clock *clockwork.FakeClock
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) SetupTest() {
	s.clock = clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
}

func (s *SchedulerTestSuite) TestRunsImmediatelyThenOnInterval() {
	c := newCounter()
	sched := NewScheduler(s.clock, logging.Discard())
	sched.AddTask("tick", time.Minute, func(ctx context.Context) error {
		c.hit("tick")
		return nil
	})

	s.Require().NoError(sched.Start(context.Background()))
	defer sched.Stop()

	s.Eventually(func() bool { return c.count("tick") >= 1 }, time.Second, 5*time.Millisecond)

	s.Eventually(func() bool {
		s.clock.Advance(time.Minute)
		return c.count("tick") >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *SchedulerTestSuite) TestStartTwiceAndStopIdempotent() {
	sched := NewScheduler(s.clock, logging.Discard())
	sched.AddTask("noop", time.Minute, func(ctx context.Context) error { return nil })

	s.Require().NoError(sched.Start(context.Background()))
	s.Require().NoError(sched.Start(context.Background()))
	sched.Stop()
	sched.Stop()
}

func (s *SchedulerTestSuite) TestRejectsNonPositiveInterval() {
	sched := NewScheduler(s.clock, logging.Discard())
	sched.AddTask("broken", 0, func(ctx context.Context) error { return nil })

	s.Error(sched.Start(context.Background()))
}

func (s *SchedulerTestSuite) TestStopCancelsTaskContext() {
	done := make(chan struct{})
	sched := NewScheduler(s.clock, logging.Discard())
	sched.AddTask("wait", time.Hour, func(ctx context.Context) error {
		<-ctx.Done()
		close(done)
		return ctx.Err()
	})

	s.Require().NoError(sched.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	sched.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("task context was not cancelled")
	}
}

func (s *SchedulerTestSuite) TestMaintenanceTasks() {
	c := newCounter()
	m := NewMaintenanceScheduler(MaintenanceConfig{
		Parties: c,
		Facts:   c,
		Ads:     c,
		Backups: c,
	}, s.clock, logging.Discard())

	s.Equal([]string{"party_sweep", "fact_rotation", "ad_reconcile", "wallet_backup"}, m.Tasks())

	s.Require().NoError(m.Start(context.Background()))
	defer m.Stop()

	s.Eventually(func() bool {
		return c.count("sweep") >= 1 && c.count("fact") >= 1 && c.count("ads") >= 1 && c.count("backup") >= 1
	}, time.Second, 5*time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	s.Equal(s.clock.Now(), c.at[0])
}

func (s *SchedulerTestSuite) TestMaintenanceSkipsMissingDependencies() {
	m := NewMaintenanceScheduler(MaintenanceConfig{}, s.clock, logging.Discard())
	s.Empty(m.Tasks())
}
