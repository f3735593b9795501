// Package conn owns the transport. Every wire operation passes through a
// single critical section here, so at most one request is in flight at a
// time, and transport failures drive a bounded reconnect-and-retry
// sequence instead of surfacing raw socket errors.
package conn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/TacoronteRiveroCristian/ModbusController/internal/pace"
)

// Transport is the wire-level capability the manager drives. Framing,
// checksums and socket handling live behind it.
type Transport interface {
	Connect() error
	ReadRegisters(fc uint8, address, quantity uint16) ([]uint16, error)
	WriteRegisters(address uint16, values []uint16) error
	Close() error
}

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// ConnectError reports a failed connection attempt.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("conn: connect failed: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// RetryError reports that an operation still failed once the bounded
// reconnect-and-retry sequence was exhausted.
type RetryError struct {
	Attempts int

	// ConnectFailed marks that the transport could not be re-established.
	// False means the link came back but the operation itself kept
	// failing.
	ConnectFailed bool

	Err error
}

func (e *RetryError) Error() string {
	if e.ConnectFailed {
		return fmt.Sprintf("conn: reconnection failed after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("conn: operation failed after %d retry attempt(s): %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// Manager serializes access to one Transport and keeps it alive across
// transient failures.
type Manager struct {
	mu      sync.Mutex
	tr      Transport
	limiter *pace.Limiter
	state   atomic.Int32

	maxRetries int
	delay      time.Duration
	logger     zerolog.Logger
}

// NewManager wires a manager around tr. All pacing goes through limiter;
// transport errors trigger up to maxRetries reconnect attempts separated
// by delay.
func NewManager(tr Transport, limiter *pace.Limiter, maxRetries int, delay time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		tr:         tr,
		limiter:    limiter,
		maxRetries: maxRetries,
		delay:      delay,
		logger:     logger.With().Str("component", "conn").Logger(),
	}
}

// State returns the current connection state. Readable without the lock.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Connect opens the transport. Connecting when already connected is a
// no-op.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.limiter.Acquire(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked()
}

func (m *Manager) connectLocked() error {
	if m.State() == Connected {
		return nil
	}
	m.state.Store(int32(Connecting))
	if err := m.tr.Connect(); err != nil {
		m.state.Store(int32(Disconnected))
		m.logger.Error().Err(err).Msg("connect failed")
		return &ConnectError{Err: err}
	}
	m.state.Store(int32(Connected))
	m.logger.Info().Msg("connected")
	return nil
}

// Close shuts the transport down. Safe to call in any state.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.tr.Close()
	m.state.Store(int32(Disconnected))
	m.logger.Info().Msg("closed")
	return err
}

// Do runs op inside the critical section. The rate limiter is acquired
// first, so FIFO order at the limiter decides fairness among contenders;
// the lock is held only for the transport exchange itself. A transport
// error moves the manager to Reconnecting and drives the bounded retry
// sequence; when the bound is exhausted the state falls back to
// Disconnected so a later call can start fresh.
func (m *Manager) Do(ctx context.Context, op func(Transport) error) error {
	if err := m.limiter.Acquire(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != Connected {
		if err := m.connectLocked(); err != nil {
			return err
		}
	}

	err := op(m.tr)
	if err == nil {
		return nil
	}
	return m.retryLocked(ctx, op, err)
}

// retryLocked reconnects and re-attempts op up to maxRetries times. The
// caller holds the lock for the whole sequence: an in-flight operation is
// never pre-empted mid-request.
func (m *Manager) retryLocked(ctx context.Context, op func(Transport) error, lastErr error) error {
	m.state.Store(int32(Reconnecting))
	m.logger.Warn().Err(lastErr).Msg("transport error, reconnecting")

	connectFailed := false
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		if err := sleep(ctx, m.delay); err != nil {
			m.state.Store(int32(Disconnected))
			return err
		}

		m.tr.Close()
		if err := m.tr.Connect(); err != nil {
			lastErr = err
			connectFailed = true
			m.logger.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			continue
		}

		m.state.Store(int32(Connected))
		err := op(m.tr)
		if err == nil {
			m.logger.Info().Int("attempt", attempt).Msg("recovered")
			return nil
		}
		lastErr = err
		connectFailed = false
		m.state.Store(int32(Reconnecting))
		m.logger.Warn().Err(err).Int("attempt", attempt).Msg("operation failed after reconnect")
	}

	m.state.Store(int32(Disconnected))
	return &RetryError{Attempts: m.maxRetries, ConnectFailed: connectFailed, Err: lastErr}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
