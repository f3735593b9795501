// Package catalog holds the validated, immutable description of every
// register the controller may touch. A Catalog is built once, before any
// I/O, and never mutated afterwards.
package catalog

import (
	"fmt"
	"time"
)

// DataType identifies the on-wire encoding of a register.
type DataType string

const (
	Uint16  DataType = "uint16"
	Int16   DataType = "int16"
	Uint32  DataType = "uint32"
	Int32   DataType = "int32"
	Float32 DataType = "float32"
	String  DataType = "string"
)

// Modbus function codes supported for reads.
const (
	FCHoldingRegisters uint8 = 3
	FCInputRegisters   uint8 = 4
)

// Register describes one named register. Scale defaults to 1 and Offset
// to 0; a Register with those defaults passes values through untouched.
type Register struct {
	Name         string
	Address      uint16
	Type         DataType
	FunctionCode uint8
	Writable     bool

	// Length is the word count for String registers. Ignored otherwise.
	Length uint16

	Scale  float64
	Offset float64

	// PollInterval > 0 marks the register for background monitoring.
	PollInterval time.Duration

	// Unit and Description are caller-facing metadata only.
	Unit        string
	Description string
}

// Words returns the number of 16-bit words the register occupies.
func (r Register) Words() uint16 {
	switch r.Type {
	case Uint16, Int16:
		return 1
	case Uint32, Int32, Float32:
		return 2
	case String:
		return r.Length
	}
	return 0
}

// Scaled reports whether the register declares a non-default linear
// transform. Unscaled registers skip the float math entirely.
func (r Register) Scaled() bool {
	return r.Scale != 1 || r.Offset != 0
}

// Limits are the device-wide throughput constraints every operation
// honors.
type Limits struct {
	// MaxRegistersPerRead caps the word count of a single read request.
	MaxRegistersPerRead uint16

	// MinRequestInterval is the minimum gap between the starts of two
	// consecutive wire requests.
	MinRequestInterval time.Duration

	// MaxRetries bounds reconnection attempts after a transport error.
	MaxRetries int

	// ReconnectDelay is the pause before each reconnection attempt.
	ReconnectDelay time.Duration
}

// DefaultLimits are conservative values a typical inverter or meter
// tolerates.
func DefaultLimits() Limits {
	return Limits{
		MaxRegistersPerRead: 125,
		MinRequestInterval:  100 * time.Millisecond,
		MaxRetries:          3,
		ReconnectDelay:      5 * time.Second,
	}
}

// Catalog is the validated register set plus its limits.
type Catalog struct {
	regs   []Register
	byName map[string]Register
	limits Limits
}

// New validates the register set and builds a Catalog. Validation happens
// here, once, so no invalid-configuration condition can surface later
// during I/O.
func New(regs []Register, limits Limits) (*Catalog, error) {
	if len(regs) == 0 {
		return nil, fmt.Errorf("catalog: at least one register required")
	}
	if limits.MaxRegistersPerRead == 0 {
		return nil, fmt.Errorf("catalog: max registers per read must be > 0")
	}
	if limits.MinRequestInterval < 0 {
		return nil, fmt.Errorf("catalog: min request interval must be >= 0")
	}
	if limits.MaxRetries < 0 {
		return nil, fmt.Errorf("catalog: max retries must be >= 0")
	}

	byName := make(map[string]Register, len(regs))
	kept := make([]Register, 0, len(regs))

	for _, r := range regs {
		if r.Name == "" {
			return nil, fmt.Errorf("catalog: register at address %d has no name", r.Address)
		}
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate register name %q", r.Name)
		}

		switch r.Type {
		case Uint16, Int16, Uint32, Int32, Float32:
		case String:
			if r.Length == 0 {
				return nil, fmt.Errorf("catalog: register %q: string registers need a length", r.Name)
			}
		default:
			return nil, fmt.Errorf("catalog: register %q: unsupported data type %q", r.Name, r.Type)
		}

		if r.FunctionCode != FCHoldingRegisters && r.FunctionCode != FCInputRegisters {
			return nil, fmt.Errorf("catalog: register %q: unsupported function code %d", r.Name, r.FunctionCode)
		}
		if r.Writable && r.FunctionCode == FCInputRegisters {
			return nil, fmt.Errorf("catalog: register %q: input registers are read-only", r.Name)
		}
		if r.Scale == 0 {
			return nil, fmt.Errorf("catalog: register %q: scale factor must not be zero", r.Name)
		}
		if end := uint32(r.Address) + uint32(r.Words()); end > 0x10000 {
			return nil, fmt.Errorf("catalog: register %q: address range %d-%d exceeds the 16-bit address space",
				r.Name, r.Address, end-1)
		}
		if r.PollInterval < 0 {
			return nil, fmt.Errorf("catalog: register %q: poll interval must be >= 0", r.Name)
		}

		byName[r.Name] = r
		kept = append(kept, r)
	}

	return &Catalog{regs: kept, byName: byName, limits: limits}, nil
}

// Lookup returns the register named name.
func (c *Catalog) Lookup(name string) (Register, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// Registers returns a copy of all registers in declaration order.
func (c *Catalog) Registers() []Register {
	out := make([]Register, len(c.regs))
	copy(out, c.regs)
	return out
}

// Monitored returns the registers that declare a poll interval.
func (c *Catalog) Monitored() []Register {
	var out []Register
	for _, r := range c.regs {
		if r.PollInterval > 0 {
			out = append(out, r)
		}
	}
	return out
}

// Limits returns the device-wide limits.
func (c *Catalog) Limits() Limits {
	return c.limits
}

// Len returns the register count.
func (c *Catalog) Len() int {
	return len(c.regs)
}
