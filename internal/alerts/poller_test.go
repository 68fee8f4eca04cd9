package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjuu/client/internal/pjuutest"
	"github.com/pjuu/client/internal/site"
)

type scriptedChecker struct {
	mu      sync.Mutex
	replies []reply
	calls   int
}

type reply struct {
	n   int
	err error
}

func (c *scriptedChecker) NewAlerts(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.replies[len(c.replies)-1]
	if c.calls < len(c.replies) {
		r = c.replies[c.calls]
	}
	c.calls++
	return r.n, r.err
}

func (c *scriptedChecker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type result struct {
	n   int
	err error
}

func start(p *Poller) <-chan result {
	out := make(chan result, 1)
	go func() {
		n, err := p.Run(context.Background())
		out <- result{n, err}
	}()
	return out
}

// tick waits for the poller to arm its timer and fires it.
func tick(t *testing.T, clock *clockwork.FakeClock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(d)
}

func TestPoller_WaitsOneIntervalBeforeFirstCheck(t *testing.T) {
	clock := clockwork.NewFakeClock()
	checker := &scriptedChecker{replies: []reply{{n: 2}}}
	p := NewPoller(checker, WithClock(clock), WithInterval(5*time.Second))
	done := start(p)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(4 * time.Second)
	assert.Equal(t, 0, checker.count())

	clock.Advance(time.Second)
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, 2, r.n)
	assert.Equal(t, 1, checker.count())
}

func TestPoller_ReschedulesUntilFound(t *testing.T) {
	clock := clockwork.NewFakeClock()
	checker := &scriptedChecker{replies: []reply{{n: 0}, {err: errors.New("connection refused")}, {n: 0}, {n: 4}}}

	var fired []int
	p := NewPoller(checker, WithClock(clock), OnFound(func(n int) { fired = append(fired, n) }))
	done := start(p)

	for i := 0; i < 4; i++ {
		tick(t, clock, DefaultInterval)
	}

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, 4, r.n)
	assert.Equal(t, 4, checker.count())
	assert.Equal(t, []int{4}, fired)
}

func TestPoller_StopCancelsPendingCheck(t *testing.T) {
	clock := clockwork.NewFakeClock()
	checker := &scriptedChecker{replies: []reply{{n: 0}}}
	p := NewPoller(checker, WithClock(clock))
	done := start(p)

	tick(t, clock, DefaultInterval)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	p.Stop()
	p.Stop()

	r := <-done
	assert.ErrorIs(t, r.err, ErrStopped)
	assert.Equal(t, 1, checker.count())
}

func TestPoller_ContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewPoller(&scriptedChecker{replies: []reply{{n: 0}}}, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoller_WithInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, NewPoller(nil, WithInterval(0)).Interval())
	assert.Equal(t, time.Minute, NewPoller(nil, WithInterval(time.Minute)).Interval())
}

func TestPoller_AgainstSite(t *testing.T) {
	srv := pjuutest.New(t)
	srv.SetAlertCounts(0, 0, 1)

	client, err := site.New(site.Config{BaseURL: srv.URL, SessionValue: pjuutest.SessionValue})
	require.NoError(t, err)

	p := NewPoller(client, WithInterval(10*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, srv.Requests("GET"), 3)
}
