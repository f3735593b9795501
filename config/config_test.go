package config

import (
	"strings"
	"testing"
	"time"

	"github.com/TacoronteRiveroCristian/ModbusController/controller"
	transport "github.com/TacoronteRiveroCristian/ModbusController/transport/modbus"
)

const sample = `
connection:
  type: tcp
  host: 192.168.1.50
  port: 1502
  slave_id: 2
  timeout_ms: 2000
word_order: big
limits:
  max_registers_per_read: 60
  min_request_interval_ms: 250
  max_retries: 5
  reconnect_delay_ms: 1000
registers:
  - name: active_power
    address: 40100
    type: uint32
    function_code: 3
    scale_factor: 0.1
    unit: W
    poll_interval_ms: 1000
  - name: power_limit
    address: 40200
    type: uint16
    writable: true
    scale_factor: 100
  - name: serial_number
    address: 40000
    type: string
    length: 8
    function_code: 4
`

func TestParseAndCatalog(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}

	cat, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog err=%v", err)
	}

	limits := cat.Limits()
	if limits.MaxRegistersPerRead != 60 {
		t.Fatalf("MaxRegistersPerRead = %d", limits.MaxRegistersPerRead)
	}
	if limits.MinRequestInterval != 250*time.Millisecond {
		t.Fatalf("MinRequestInterval = %v", limits.MinRequestInterval)
	}
	if limits.MaxRetries != 5 {
		t.Fatalf("MaxRetries = %d", limits.MaxRetries)
	}

	r, ok := cat.Lookup("active_power")
	if !ok {
		t.Fatal("active_power missing")
	}
	if r.Scale != 0.1 || r.PollInterval != time.Second || r.Unit != "W" {
		t.Fatalf("active_power = %+v", r)
	}

	// function_code defaults to 3 (holding registers).
	r, _ = cat.Lookup("power_limit")
	if r.FunctionCode != 3 || !r.Writable {
		t.Fatalf("power_limit = %+v", r)
	}
}

func TestTransportMapping(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}

	tc := cfg.Transport()
	if tc.Mode != transport.TCP {
		t.Fatalf("Mode = %v", tc.Mode)
	}
	if tc.Address != "192.168.1.50:1502" {
		t.Fatalf("Address = %q", tc.Address)
	}
	if tc.SlaveID != 2 || tc.Timeout != 2*time.Second {
		t.Fatalf("transport = %+v", tc)
	}
	if cfg.Order() != controller.HighWordFirst {
		t.Fatalf("Order = %v", cfg.Order())
	}
}

func TestRTUDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
connection:
  type: rtu
  serial_port: /dev/ttyUSB0
registers:
  - name: x
    address: 1
    type: uint16
`))
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}

	tc := cfg.Transport()
	if tc.Mode != transport.RTU || tc.Address != "/dev/ttyUSB0" {
		t.Fatalf("transport = %+v", tc)
	}
	if tc.BaudRate != 9600 || tc.DataBits != 8 || tc.Parity != "N" || tc.StopBits != 1 {
		t.Fatalf("serial defaults = %+v", tc)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			"tcp without host",
			"connection:\n  type: tcp\nregisters:\n  - {name: x, address: 1, type: uint16}\n",
			"host",
		},
		{
			"unknown connection type",
			"connection:\n  type: udp\nregisters:\n  - {name: x, address: 1, type: uint16}\n",
			"tcp or rtu",
		},
		{
			"no registers",
			"connection:\n  type: tcp\n  host: h\n",
			"register",
		},
		{
			"duplicate names",
			"connection: {type: tcp, host: h}\nregisters:\n  - {name: x, address: 1, type: uint16}\n  - {name: x, address: 2, type: uint16}\n",
			"duplicate",
		},
		{
			"zero scale factor",
			"connection: {type: tcp, host: h}\nregisters:\n  - {name: x, address: 1, type: uint16, scale_factor: 0}\n",
			"scale_factor",
		},
		{
			"unknown type",
			"connection: {type: tcp, host: h}\nregisters:\n  - {name: x, address: 1, type: float64}\n",
			"unknown type",
		},
		{
			"string without length",
			"connection: {type: tcp, host: h}\nregisters:\n  - {name: x, address: 1, type: string}\n",
			"length",
		},
		{
			"bad function code",
			"connection: {type: tcp, host: h}\nregisters:\n  - {name: x, address: 1, type: uint16, function_code: 6}\n",
			"function_code",
		},
	}

	for _, tc := range cases {
		_, err := Parse([]byte(tc.yaml))
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err=%q, want substring %q", tc.name, err, tc.want)
		}
	}
}
