package accrual

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
)

// Ticker is the part of the service the runner drives
type Ticker interface {
	Tick(ctx context.Context, userID string) (int64, error)
}

// Runner owns one accrual ticker per watching user. Watching again
// replaces the previous ticker, so a user never has two.
type Runner struct {
	ticker   Ticker
	clock    clockwork.Clock
	interval time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	base    context.Context
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a runner ticking every interval
func NewRunner(ctx context.Context, ticker Ticker, clock clockwork.Clock, interval time.Duration, logger *logging.Logger) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Runner{
		ticker:   ticker,
		clock:    clock,
		interval: interval,
		logger:   logger,
		base:     ctx,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Watch starts (or restarts) the ticker for userID
func (r *Runner) Watch(userID string) {
	userID = strings.Clone(userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.cancels[userID]; ok {
		cancel()
	}

	ctx, cancel := context.WithCancel(r.base)
	r.cancels[userID] = cancel
	t := r.clock.NewTicker(r.interval)

	r.wg.Add(1)
	go r.run(ctx, userID, t)
}

// Unwatch stops the ticker for userID
func (r *Runner) Unwatch(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.cancels[userID]; ok {
		cancel()
		delete(r.cancels, userID)
	}
}

// Watching reports whether userID has a ticker
func (r *Runner) Watching(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.cancels[userID]
	return ok
}

// Active returns the number of running tickers
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.cancels)
}

// StopAll stops every ticker and waits for them to exit
func (r *Runner) StopAll() {
	r.mu.Lock()
	for userID, cancel := range r.cancels {
		cancel()
		delete(r.cancels, userID)
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("[ACCRUAL] All watch tickers stopped")
}

func (r *Runner) run(ctx context.Context, userID string, t clockwork.Ticker) {
	defer r.wg.Done()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			if _, err := r.ticker.Tick(ctx, userID); err != nil && ctx.Err() == nil {
				r.logger.Debug("[ACCRUAL] Tick for user %s failed: %v", userID, err)
			}
		}
	}
}
