package catalog

import (
	"strings"
	"testing"
	"time"
)

func valid(name string, addr uint16) Register {
	return Register{Name: name, Address: addr, Type: Uint16, FunctionCode: FCHoldingRegisters, Scale: 1}
}

func TestNewValid(t *testing.T) {
	c, err := New([]Register{
		valid("power", 10),
		{Name: "serial", Address: 100, Type: String, FunctionCode: FCInputRegisters, Length: 8, Scale: 1},
		{Name: "temp", Address: 20, Type: Int16, FunctionCode: FCHoldingRegisters, Scale: 0.1, Offset: -40,
			PollInterval: time.Second},
	}, DefaultLimits())
	if err != nil {
		t.Fatalf("New err=%v", err)
	}

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Lookup("power"); !ok {
		t.Fatal("Lookup(power) missed")
	}
	if _, ok := c.Lookup("missing"); ok {
		t.Fatal("Lookup(missing) hit")
	}
	if mon := c.Monitored(); len(mon) != 1 || mon[0].Name != "temp" {
		t.Fatalf("Monitored = %v", mon)
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		regs []Register
		want string
	}{
		{"empty", nil, "at least one register"},
		{"unnamed", []Register{{Address: 1, Type: Uint16, FunctionCode: 3, Scale: 1}}, "no name"},
		{"duplicate", []Register{valid("x", 1), valid("x", 2)}, "duplicate"},
		{"zero scale", []Register{{Name: "x", Address: 1, Type: Uint16, FunctionCode: 3}}, "scale factor"},
		{"bad type", []Register{{Name: "x", Address: 1, Type: "float64", FunctionCode: 3, Scale: 1}}, "data type"},
		{"bad fc", []Register{{Name: "x", Address: 1, Type: Uint16, FunctionCode: 6, Scale: 1}}, "function code"},
		{"string without length", []Register{{Name: "x", Address: 1, Type: String, FunctionCode: 3, Scale: 1}}, "length"},
		{"writable input register", []Register{{Name: "x", Address: 1, Type: Uint16, FunctionCode: 4, Writable: true, Scale: 1}}, "read-only"},
		{"address overflow", []Register{{Name: "x", Address: 0xFFFF, Type: Uint32, FunctionCode: 3, Scale: 1}}, "address"},
	}

	for _, tc := range cases {
		_, err := New(tc.regs, DefaultLimits())
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err=%q, want substring %q", tc.name, err, tc.want)
		}
	}
}

func TestWords(t *testing.T) {
	cases := []struct {
		r    Register
		want uint16
	}{
		{Register{Type: Uint16}, 1},
		{Register{Type: Int16}, 1},
		{Register{Type: Uint32}, 2},
		{Register{Type: Int32}, 2},
		{Register{Type: Float32}, 2},
		{Register{Type: String, Length: 6}, 6},
	}
	for _, tc := range cases {
		if got := tc.r.Words(); got != tc.want {
			t.Errorf("Words(%s) = %d, want %d", tc.r.Type, got, tc.want)
		}
	}
}

func TestScaled(t *testing.T) {
	if (Register{Scale: 1}).Scaled() {
		t.Fatal("identity transform reported as scaled")
	}
	if !(Register{Scale: 100}).Scaled() {
		t.Fatal("scale 100 not reported as scaled")
	}
	if !(Register{Scale: 1, Offset: -40}).Scaled() {
		t.Fatal("offset not reported as scaled")
	}
}

func TestRegistersReturnsACopy(t *testing.T) {
	c, err := New([]Register{valid("a", 1)}, DefaultLimits())
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	regs := c.Registers()
	regs[0].Name = "mutated"
	if r, _ := c.Lookup("a"); r.Name != "a" {
		t.Fatal("catalog mutated through Registers()")
	}
}
