// Package modbus implements the controller's Transport capability on top
// of goburrow/modbus, for TCP and serial RTU links. It is geometry only:
// the orchestration layer above decides what to read, how to batch it and
// how to interpret the words.
package modbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// Mode selects the physical link.
type Mode string

const (
	TCP Mode = "tcp"
	RTU Mode = "rtu"
)

// Config is the minimal transport configuration.
type Config struct {
	Mode    Mode
	Address string // host:port for TCP, device path for RTU
	SlaveID uint8
	Timeout time.Duration

	// Serial parameters, RTU only.
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
}

// handler is the slice of goburrow's client handlers the adapter needs:
// framing plus an explicit connection lifecycle.
type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// Client is one logical connection to one device.
type Client struct {
	handler handler
	client  modbus.Client
}

// New builds a client for cfg. The connection is not opened here; the
// connection manager owns the Connect/Close lifecycle.
func New(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("transport: address required")
	}

	var h handler
	switch cfg.Mode {
	case TCP:
		th := modbus.NewTCPClientHandler(cfg.Address)
		th.Timeout = cfg.Timeout
		th.SlaveId = cfg.SlaveID
		h = th
	case RTU:
		rh := modbus.NewRTUClientHandler(cfg.Address)
		rh.Timeout = cfg.Timeout
		rh.SlaveId = cfg.SlaveID
		rh.BaudRate = cfg.BaudRate
		rh.DataBits = cfg.DataBits
		rh.Parity = cfg.Parity
		rh.StopBits = cfg.StopBits
		h = rh
	default:
		return nil, fmt.Errorf("transport: unsupported mode %q", cfg.Mode)
	}

	return &Client{handler: h, client: modbus.NewClient(h)}, nil
}

// Connect opens the underlying link.
func (c *Client) Connect() error {
	return c.handler.Connect()
}

// Close closes the underlying link.
func (c *Client) Close() error {
	return c.handler.Close()
}

// ReadRegisters reads quantity words starting at address using the given
// function code (3 holding, 4 input).
func (c *Client) ReadRegisters(fc uint8, address, quantity uint16) ([]uint16, error) {
	var raw []byte
	var err error

	switch fc {
	case 3:
		raw, err = c.client.ReadHoldingRegisters(address, quantity)
	case 4:
		raw, err = c.client.ReadInputRegisters(address, quantity)
	default:
		return nil, fmt.Errorf("transport: unsupported function code %d", fc)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) < int(quantity)*2 {
		return nil, fmt.Errorf("transport: short response: got %d byte(s), want %d", len(raw), int(quantity)*2)
	}
	return unpackRegisters(raw[:int(quantity)*2]), nil
}

// WriteRegisters writes values starting at address. A single word uses
// Write Single Register (FC 6); more use Write Multiple Registers
// (FC 16).
func (c *Client) WriteRegisters(address uint16, values []uint16) error {
	if len(values) == 0 {
		return errors.New("transport: no values to write")
	}

	var err error
	if len(values) == 1 {
		_, err = c.client.WriteSingleRegister(address, values[0])
	} else {
		_, err = c.client.WriteMultipleRegisters(address, uint16(len(values)), packRegisters(values))
	}
	return err
}

func unpackRegisters(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

func packRegisters(values []uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		out[2*i] = byte(v >> 8)
		out[2*i+1] = byte(v)
	}
	return out
}
