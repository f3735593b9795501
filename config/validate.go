package config

import (
	"fmt"
)

var validTypes = map[string]bool{
	"uint16":  true,
	"int16":   true,
	"uint32":  true,
	"int32":   true,
	"float32": true,
	"string":  true,
}

// Validate checks configuration correctness before anything touches the
// wire. It performs declarative validation only and MUST NOT mutate the
// configuration; defaults are applied later, in Catalog and Transport.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// CONNECTION
	// ------------------------------------------------------------

	switch cfg.Connection.Type {
	case "tcp":
		if cfg.Connection.Host == "" {
			return fmt.Errorf("config: tcp connection requires a host")
		}
	case "rtu":
		if cfg.Connection.SerialPort == "" {
			return fmt.Errorf("config: rtu connection requires a serial_port")
		}
		switch cfg.Connection.Parity {
		case "", "N", "E", "O":
		default:
			return fmt.Errorf("config: parity must be N, E or O, got %q", cfg.Connection.Parity)
		}
		if sb := cfg.Connection.StopBits; sb != 0 && sb != 1 && sb != 2 {
			return fmt.Errorf("config: stop_bits must be 1 or 2, got %d", sb)
		}
		if db := cfg.Connection.DataBits; db != 0 && db != 7 && db != 8 {
			return fmt.Errorf("config: data_bits must be 7 or 8, got %d", db)
		}
	default:
		return fmt.Errorf("config: connection type must be tcp or rtu, got %q", cfg.Connection.Type)
	}

	switch cfg.WordOrder {
	case "", "big", "little":
	default:
		return fmt.Errorf("config: word_order must be big or little, got %q", cfg.WordOrder)
	}

	// ------------------------------------------------------------
	// REGISTERS
	// ------------------------------------------------------------

	if len(cfg.Registers) == 0 {
		return fmt.Errorf("config: at least one register required")
	}

	seen := make(map[string]bool, len(cfg.Registers))
	for _, r := range cfg.Registers {
		if r.Name == "" {
			return fmt.Errorf("config: register at address %d has no name", r.Address)
		}
		if seen[r.Name] {
			return fmt.Errorf("config: duplicate register name %q", r.Name)
		}
		seen[r.Name] = true

		if !validTypes[r.Type] {
			return fmt.Errorf("config: register %q: unknown type %q", r.Name, r.Type)
		}
		if r.Type == "string" && r.Length == 0 {
			return fmt.Errorf("config: register %q: string registers need a length", r.Name)
		}
		if fc := r.FunctionCode; fc != 0 && fc != 3 && fc != 4 {
			return fmt.Errorf("config: register %q: function_code must be 3 or 4, got %d", r.Name, fc)
		}
		if r.ScaleFactor != nil && *r.ScaleFactor == 0 {
			return fmt.Errorf("config: register %q: scale_factor must not be zero", r.Name)
		}
		if r.PollIntervalMs < 0 {
			return fmt.Errorf("config: register %q: poll_interval_ms must be >= 0", r.Name)
		}
	}

	return nil
}
