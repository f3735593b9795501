// Package config binds the YAML configuration file and turns it into a
// validated register catalog plus transport settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TacoronteRiveroCristian/ModbusController/catalog"
	"github.com/TacoronteRiveroCristian/ModbusController/controller"
	transport "github.com/TacoronteRiveroCristian/ModbusController/transport/modbus"
)

type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Limits     LimitsConfig     `yaml:"limits"`
	WordOrder  string           `yaml:"word_order"` // "big" (default) or "little"
	Registers  []RegisterConfig `yaml:"registers"`
}

// ---- CONNECTION ----

type ConnectionConfig struct {
	Type      string `yaml:"type"` // "tcp" or "rtu"
	TimeoutMs int    `yaml:"timeout_ms"`
	SlaveID   uint8  `yaml:"slave_id"`

	// TCP
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// RTU
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
	DataBits   int    `yaml:"data_bits"`
	Parity     string `yaml:"parity"`
	StopBits   int    `yaml:"stop_bits"`
}

// ---- LIMITS ----

type LimitsConfig struct {
	MaxRegistersPerRead  uint16 `yaml:"max_registers_per_read"`
	MinRequestIntervalMs int    `yaml:"min_request_interval_ms"`
	MaxRetries           *int   `yaml:"max_retries"`
	ReconnectDelayMs     int    `yaml:"reconnect_delay_ms"`
}

// ---- REGISTERS ----

type RegisterConfig struct {
	Name         string `yaml:"name"`
	Address      uint16 `yaml:"address"`
	Type         string `yaml:"type"`
	FunctionCode uint8  `yaml:"function_code"`
	Writable     bool   `yaml:"writable"`

	// Length is the word count for string registers.
	Length uint16 `yaml:"length"`

	// Pointers distinguish "absent" from an explicit zero. An explicit
	// zero scale factor is a configuration error.
	ScaleFactor *float64 `yaml:"scale_factor"`
	Offset      *float64 `yaml:"offset"`

	PollIntervalMs int    `yaml:"poll_interval_ms"`
	Unit           string `yaml:"unit"`
	Description    string `yaml:"description"`
}

// Load reads, parses and validates the file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse unmarshals and validates raw YAML.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Catalog builds the validated immutable catalog from the register list,
// applying defaults for absent optional fields.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	limits := catalog.DefaultLimits()
	if c.Limits.MaxRegistersPerRead > 0 {
		limits.MaxRegistersPerRead = c.Limits.MaxRegistersPerRead
	}
	if c.Limits.MinRequestIntervalMs > 0 {
		limits.MinRequestInterval = time.Duration(c.Limits.MinRequestIntervalMs) * time.Millisecond
	}
	if c.Limits.MaxRetries != nil {
		limits.MaxRetries = *c.Limits.MaxRetries
	}
	if c.Limits.ReconnectDelayMs > 0 {
		limits.ReconnectDelay = time.Duration(c.Limits.ReconnectDelayMs) * time.Millisecond
	}

	regs := make([]catalog.Register, 0, len(c.Registers))
	for _, r := range c.Registers {
		fc := r.FunctionCode
		if fc == 0 {
			fc = catalog.FCHoldingRegisters
		}
		scale := 1.0
		if r.ScaleFactor != nil {
			scale = *r.ScaleFactor
		}
		offset := 0.0
		if r.Offset != nil {
			offset = *r.Offset
		}

		regs = append(regs, catalog.Register{
			Name:         r.Name,
			Address:      r.Address,
			Type:         catalog.DataType(r.Type),
			FunctionCode: fc,
			Writable:     r.Writable,
			Length:       r.Length,
			Scale:        scale,
			Offset:       offset,
			PollInterval: time.Duration(r.PollIntervalMs) * time.Millisecond,
			Unit:         r.Unit,
			Description:  r.Description,
		})
	}

	return catalog.New(regs, limits)
}

// Transport maps the connection section onto the transport adapter's
// settings.
func (c *Config) Transport() transport.Config {
	conn := c.Connection

	timeout := 3 * time.Second
	if conn.TimeoutMs > 0 {
		timeout = time.Duration(conn.TimeoutMs) * time.Millisecond
	}
	slave := conn.SlaveID
	if slave == 0 {
		slave = 1
	}

	if conn.Type == "rtu" {
		baud := conn.BaudRate
		if baud == 0 {
			baud = 9600
		}
		dataBits := conn.DataBits
		if dataBits == 0 {
			dataBits = 8
		}
		parity := conn.Parity
		if parity == "" {
			parity = "N"
		}
		stopBits := conn.StopBits
		if stopBits == 0 {
			stopBits = 1
		}
		return transport.Config{
			Mode:     transport.RTU,
			Address:  conn.SerialPort,
			SlaveID:  slave,
			Timeout:  timeout,
			BaudRate: baud,
			DataBits: dataBits,
			Parity:   parity,
			StopBits: stopBits,
		}
	}

	port := conn.Port
	if port == 0 {
		port = 502
	}
	return transport.Config{
		Mode:    transport.TCP,
		Address: fmt.Sprintf("%s:%d", conn.Host, port),
		SlaveID: slave,
		Timeout: timeout,
	}
}

// Order returns the configured 32-bit word order.
func (c *Config) Order() controller.WordOrder {
	if c.WordOrder == "little" {
		return controller.LowWordFirst
	}
	return controller.HighWordFirst
}
