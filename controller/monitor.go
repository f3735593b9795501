package controller

import (
	"context"
	"sync"
	"time"

	"github.com/TacoronteRiveroCristian/ModbusController/catalog"
	"github.com/TacoronteRiveroCristian/ModbusController/internal/plan"
)

// ChangeFunc is invoked synchronously from a register's poll cycle when
// its value changes. previous is nil on the first successful read. A
// callback that blocks delays that register's subsequent polls.
type ChangeFunc func(name string, previous, current any)

// PollError is one monitored register's failed poll, reported on the
// status channel. The scheduler itself never stops because of these.
type PollError struct {
	Register string
	At       time.Time
	Err      error
}

// monitor owns one ticker goroutine per monitored register. Created by
// StartMonitoring, torn down by StopMonitoring.
type monitor struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartMonitoring schedules an independent poll loop for every register
// with a poll interval. Calling it while monitoring is already running is
// a no-op. Poll failures are logged and reported on Errors; they never
// propagate here.
func (c *Controller) StartMonitoring(cb ChangeFunc) error {
	c.monMu.Lock()
	defer c.monMu.Unlock()

	if c.mon != nil {
		c.logger.Warn().Msg("monitoring already running")
		return nil
	}

	regs := c.cat.Monitored()
	if len(regs) == 0 {
		c.logger.Warn().Msg("no registers declare a poll interval")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &monitor{cancel: cancel}

	for _, reg := range regs {
		m.wg.Add(1)
		go c.pollLoop(ctx, m, reg, cb)
	}

	c.mon = m
	c.logger.Info().Int("registers", len(regs)).Msg("monitoring started")
	return nil
}

// StopMonitoring cancels all poll loops and waits for in-flight reads to
// finish. No poll starts after it returns. Stopping when not running is a
// no-op.
func (c *Controller) StopMonitoring() {
	c.monMu.Lock()
	m := c.mon
	c.mon = nil
	c.monMu.Unlock()

	if m == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	c.logger.Info().Msg("monitoring stopped")
}

// Errors exposes the bounded status channel carrying monitored-poll
// failures. When nobody drains it, the oldest reports are dropped.
func (c *Controller) Errors() <-chan PollError {
	return c.events
}

// pollLoop drives one register's schedule. Cancellation is observed at
// cycle boundaries only: a read already underway completes first.
func (c *Controller) pollLoop(ctx context.Context, m *monitor, reg catalog.Register, cb ChangeFunc) {
	defer m.wg.Done()

	ticker := time.NewTicker(reg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(reg, cb)
		}
	}
}

func (c *Controller) pollOnce(reg catalog.Register, cb ChangeFunc) {
	prev, had := c.store.Get(reg.Name)

	groups := plan.Build([]catalog.Register{reg}, c.limits.MaxRegistersPerRead)
	values, err := c.readGroup(context.Background(), groups[0])
	if err != nil {
		c.logger.Warn().Err(err).Str("register", reg.Name).Msg("poll failed")
		c.report(PollError{Register: reg.Name, At: time.Now(), Err: err})
		return
	}

	current := values[reg.Name]
	if cb == nil {
		return
	}
	if !had {
		cb(reg.Name, nil, current)
		return
	}
	if prev.Value != current {
		cb(reg.Name, prev.Value, current)
	}
}

// report delivers without blocking: the channel is bounded, and a stalled
// consumer must not delay any register's schedule.
func (c *Controller) report(e PollError) {
	select {
	case c.events <- e:
	default:
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- e:
		default:
		}
	}
}
