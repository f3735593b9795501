// Package controller orchestrates named-register reads and writes
// against a resource-constrained Modbus device: it batches adjacent
// registers into grouped requests, paces and serializes all wire
// traffic, converts raw words to scaled engineering values, caches the
// last known value per register, and keeps background polling alive
// across transient transport failures.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TacoronteRiveroCristian/ModbusController/catalog"
	"github.com/TacoronteRiveroCristian/ModbusController/internal/cache"
	"github.com/TacoronteRiveroCristian/ModbusController/internal/conn"
	"github.com/TacoronteRiveroCristian/ModbusController/internal/convert"
	"github.com/TacoronteRiveroCristian/ModbusController/internal/pace"
	"github.com/TacoronteRiveroCristian/ModbusController/internal/plan"
)

// Transport is the wire-level capability the controller consumes. The
// transport/modbus package provides TCP and RTU implementations; tests
// substitute fakes.
type Transport interface {
	Connect() error
	ReadRegisters(fc uint8, address, quantity uint16) ([]uint16, error)
	WriteRegisters(address uint16, values []uint16) error
	Close() error
}

// WordOrder selects how two 16-bit words combine into a 32-bit value.
// One setting for the whole device, not per register.
type WordOrder int

const (
	HighWordFirst WordOrder = iota
	LowWordFirst
)

// ConnectionState mirrors the connection manager's lifecycle state.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
)

func (s ConnectionState) String() string {
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

// Option adjusts controller construction.
type Option func(*Controller)

// WithLogger installs a zerolog logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithWordOrder sets the 32-bit word order. High word first is the
// default, matching the most common device convention.
func WithWordOrder(o WordOrder) Option {
	return func(c *Controller) { c.order = wordOrder(o) }
}

// pollErrorBuffer bounds the monitor status channel. Slow consumers lose
// the oldest reports rather than stalling polls.
const pollErrorBuffer = 64

// Controller is the facade over the register orchestration pipeline. One
// Controller owns one logical connection and one value cache.
type Controller struct {
	cat    *catalog.Catalog
	limits catalog.Limits
	order  convert.WordOrder

	limiter *pace.Limiter
	mgr     *conn.Manager
	store   *cache.Store
	logger  zerolog.Logger

	monMu  sync.Mutex
	mon    *monitor
	events chan PollError
}

// New builds a controller for the given catalog on top of tr. The
// catalog's limits size the grouper, the rate limiter and the
// reconnection policy.
func New(cat *catalog.Catalog, tr Transport, opts ...Option) (*Controller, error) {
	if cat == nil {
		return nil, errors.New("controller: catalog required")
	}
	if tr == nil {
		return nil, errors.New("controller: transport required")
	}

	c := &Controller{
		cat:    cat,
		limits: cat.Limits(),
		order:  convert.HighWordFirst,
		logger: zerolog.Nop(),
		events: make(chan PollError, pollErrorBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.limiter = pace.NewLimiter(c.limits.MinRequestInterval)
	c.mgr = conn.NewManager(tr, c.limiter, c.limits.MaxRetries, c.limits.ReconnectDelay, c.logger)
	c.store = cache.NewStore()

	c.logger.Info().Int("registers", cat.Len()).Msg("controller ready")
	return c, nil
}

// Connect opens the transport.
func (c *Controller) Connect(ctx context.Context) error {
	if err := c.mgr.Connect(ctx); err != nil {
		return c.wrapConn(err)
	}
	return nil
}

// Close stops monitoring and closes the transport. Safe on every exit
// path; closing twice is harmless.
func (c *Controller) Close() error {
	c.StopMonitoring()
	return c.mgr.Close()
}

// ConnectionState reports the connection manager's current state.
func (c *Controller) ConnectionState() ConnectionState {
	return ConnectionState(c.mgr.State())
}

// ReadRegister reads one register by name through the full pipeline and
// returns its scaled value.
func (c *Controller) ReadRegister(ctx context.Context, name string) (any, error) {
	reg, ok := c.cat.Lookup(name)
	if !ok {
		return nil, &RegisterNotFoundError{Name: name}
	}

	groups := plan.Build([]catalog.Register{reg}, c.limits.MaxRegistersPerRead)
	values, err := c.readGroup(ctx, groups[0])
	if err != nil {
		return nil, err
	}
	return values[name], nil
}

// ReadAll reads every catalog register using the minimal grouped request
// set and returns a name-to-value map.
func (c *Controller) ReadAll(ctx context.Context) (map[string]any, error) {
	groups := plan.Build(c.cat.Registers(), c.limits.MaxRegistersPerRead)
	c.logger.Debug().Int("registers", c.cat.Len()).Int("groups", len(groups)).Msg("read all")

	out := make(map[string]any, c.cat.Len())
	for _, g := range groups {
		values, err := c.readGroup(ctx, g)
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			out[k] = v
		}
	}
	return out, nil
}

// WriteRegister converts value to the register's raw encoding and writes
// it. The write is not verified: devices may silently ignore writes
// under internal preconditions, so callers needing confirmation must
// re-read.
func (c *Controller) WriteRegister(ctx context.Context, name string, value any) error {
	reg, ok := c.cat.Lookup(name)
	if !ok {
		return &RegisterNotFoundError{Name: name}
	}
	if !reg.Writable {
		return &WriteRejectedError{Name: name}
	}

	encodeValue := value
	if reg.Scaled() && reg.Type != catalog.String {
		user, err := convert.Numeric(value)
		if err != nil {
			return &ConversionError{Register: name, Value: value, Err: err}
		}
		encodeValue = convert.ToRaw(user, reg.Scale, reg.Offset)
	}

	words, err := convert.Encode(encodeValue, reg.Type, reg.Length, c.order)
	if err != nil {
		return &ConversionError{Register: name, Value: value, Err: err}
	}

	err = c.mgr.Do(ctx, func(tr conn.Transport) error {
		return tr.WriteRegisters(reg.Address, words)
	})
	if err != nil {
		if cerr := c.connErr(err); cerr != nil {
			return cerr
		}
		return &WriteError{Register: name, Value: value, Err: err}
	}

	c.logger.Info().Str("register", name).Interface("value", value).Msg("written")
	return nil
}

// LastValue returns the cached value and read timestamp for name without
// touching the transport.
func (c *Controller) LastValue(name string) (any, time.Time, bool) {
	e, ok := c.store.Get(name)
	return e.Value, e.At, ok
}

// AllLastValues returns every cached value without touching the
// transport.
func (c *Controller) AllLastValues() map[string]any {
	entries := c.store.All()
	out := make(map[string]any, len(entries))
	for name, e := range entries {
		out[name] = e.Value
	}
	return out
}

// readGroup issues one grouped request and decodes each register's slice
// out of the returned words. Every successful decode updates the cache;
// a failed request leaves the cache untouched.
func (c *Controller) readGroup(ctx context.Context, g plan.Group) (map[string]any, error) {
	var words []uint16
	err := c.mgr.Do(ctx, func(tr conn.Transport) error {
		w, err := tr.ReadRegisters(g.FC, g.Start, g.Quantity)
		if err != nil {
			return err
		}
		words = w
		return nil
	})
	if err != nil {
		if cerr := c.connErr(err); cerr != nil {
			return nil, cerr
		}
		return nil, &ReadError{Registers: groupNames(g), Err: err}
	}
	if len(words) < int(g.Quantity) {
		return nil, &ReadError{Registers: groupNames(g), Err: errors.New("short response from transport")}
	}

	now := time.Now()
	out := make(map[string]any, len(g.Registers))
	for _, reg := range g.Registers {
		offset := reg.Address - g.Start
		raw := words[offset : offset+reg.Words()]

		value, err := convert.Decode(raw, reg.Type, c.order)
		if err != nil {
			return nil, &ConversionError{Register: reg.Name, Err: err}
		}
		if reg.Scaled() && reg.Type != catalog.String {
			value = convert.ApplyScale(value.(float64), reg.Scale, reg.Offset)
		}

		c.store.Update(reg.Name, value, now)
		out[reg.Name] = value
	}
	return out, nil
}

// connErr maps connection-level failures onto the public taxonomy,
// returning nil for plain operation failures.
func (c *Controller) connErr(err error) error {
	var ce *conn.ConnectError
	if errors.As(err, &ce) {
		return &ConnectionError{Err: err}
	}
	var re *conn.RetryError
	if errors.As(err, &re) && re.ConnectFailed {
		return &ConnectionError{Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (c *Controller) wrapConn(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ConnectionError{Err: err}
}

func groupNames(g plan.Group) []string {
	names := make([]string, len(g.Registers))
	for i, r := range g.Registers {
		names[i] = r.Name
	}
	return names
}

func wordOrder(o WordOrder) convert.WordOrder {
	if o == LowWordFirst {
		return convert.LowWordFirst
	}
	return convert.HighWordFirst
}
