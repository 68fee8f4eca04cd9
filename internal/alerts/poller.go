// Package alerts polls the site for new alerts.
package alerts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pjuu/client/internal/logging"
	"github.com/pjuu/client/internal/metrics"
)

// DefaultInterval is the delay before the first check and between checks.
const DefaultInterval = 5 * time.Second

// ErrStopped is returned by Run after Stop was called.
var ErrStopped = errors.New("alert poller stopped")

// Checker reports the number of new alerts.
type Checker interface {
	NewAlerts(ctx context.Context) (int, error)
}

// Poller checks for new alerts on a fixed interval until it finds some.
// The page already shows the alert state it was rendered with, so the first
// check only happens after one interval. A failed check counts as "no
// alerts yet".
type Poller struct {
	checker  Checker
	clock    clockwork.Clock
	interval time.Duration
	onFound  func(int)

	stopOnce sync.Once
	stop     chan struct{}
}

type Option func(*Poller)

// WithClock replaces the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithInterval sets the check interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// OnFound sets the callback fired once when alerts are found.
func OnFound(fn func(count int)) Option {
	return func(p *Poller) { p.onFound = fn }
}

func NewPoller(checker Checker, opts ...Option) *Poller {
	p := &Poller{
		checker:  checker,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the configured check interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run blocks until a check reports new alerts and returns their count. It
// returns early with ctx.Err() or ErrStopped.
func (p *Poller) Run(ctx context.Context) (int, error) {
	timer := p.clock.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-p.stop:
			return 0, ErrStopped
		case <-timer.Chan():
		}

		if n := p.check(ctx); n > 0 {
			if p.onFound != nil {
				p.onFound(n)
			}
			return n, nil
		}
		timer.Reset(p.interval)
	}
}

// Stop cancels a pending check. It is safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *Poller) check(ctx context.Context) int {
	checkCtx := logging.WithRequestID(ctx, uuid.NewString())
	logger := logging.Ctx(checkCtx)

	n, err := p.checker.NewAlerts(checkCtx)
	switch {
	case err != nil:
		metrics.AlertChecksTotal.WithLabelValues("error").Inc()
		logger.Debug().Err(err).Dur("retry_in", p.interval).Msg("Alert check failed")
		return 0
	case n > 0:
		metrics.AlertChecksTotal.WithLabelValues("found").Inc()
		logger.Info().Int("new_alerts", n).Msg("New alerts")
		return n
	default:
		metrics.AlertChecksTotal.WithLabelValues("none").Inc()
		logger.Debug().Dur("next_check_in", p.interval).Msg("No new alerts")
		return 0
	}
}
