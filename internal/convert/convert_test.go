package convert

import (
	"math"
	"testing"

	"github.com/TacoronteRiveroCristian/ModbusController/catalog"
)

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		dt    catalog.DataType
		value float64
	}{
		{"uint16 zero", catalog.Uint16, 0},
		{"uint16 max", catalog.Uint16, 65535},
		{"int16 min", catalog.Int16, -32768},
		{"int16 max", catalog.Int16, 32767},
		{"int16 negative", catalog.Int16, -1},
		{"uint32 max", catalog.Uint32, 4294967295},
		{"int32 min", catalog.Int32, -2147483648},
		{"int32 negative", catalog.Int32, -42},
		{"float32 pi", catalog.Float32, float64(float32(3.14159))},
		{"float32 negative", catalog.Float32, float64(float32(-273.15))},
	}

	for _, order := range []WordOrder{HighWordFirst, LowWordFirst} {
		for _, tc := range cases {
			words, err := Encode(tc.value, tc.dt, 0, order)
			if err != nil {
				t.Fatalf("%s: Encode err=%v", tc.name, err)
			}
			got, err := Decode(words, tc.dt, order)
			if err != nil {
				t.Fatalf("%s: Decode err=%v", tc.name, err)
			}
			if got.(float64) != tc.value {
				t.Errorf("%s (order=%d): round trip got %v, want %v", tc.name, order, got, tc.value)
			}
		}
	}
}

func TestWordOrder(t *testing.T) {
	// 0x00010002 = 65538: high word 1, low word 2.
	words, err := Encode(65538.0, catalog.Uint32, 0, HighWordFirst)
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	if words[0] != 1 || words[1] != 2 {
		t.Fatalf("high word first: got %v, want [1 2]", words)
	}

	words, err = Encode(65538.0, catalog.Uint32, 0, LowWordFirst)
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	if words[0] != 2 || words[1] != 1 {
		t.Fatalf("low word first: got %v, want [2 1]", words)
	}
}

func TestDecodeSigned(t *testing.T) {
	v, err := Decode([]uint16{0xFFFF}, catalog.Int16, HighWordFirst)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if v.(float64) != -1 {
		t.Fatalf("int16 0xFFFF: got %v, want -1", v)
	}

	v, err = Decode([]uint16{0xFFFF, 0xFFFF}, catalog.Int32, HighWordFirst)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if v.(float64) != -1 {
		t.Fatalf("int32 0xFFFFFFFF: got %v, want -1", v)
	}
}

func TestEncodeRounding(t *testing.T) {
	words, err := Encode(49.6, catalog.Uint16, 0, HighWordFirst)
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	if words[0] != 50 {
		t.Fatalf("rounding: got %d, want 50", words[0])
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	cases := []struct {
		dt    catalog.DataType
		value float64
	}{
		{catalog.Uint16, -1},
		{catalog.Uint16, 65536},
		{catalog.Int16, 32768},
		{catalog.Int16, -32769},
		{catalog.Uint32, -1},
		{catalog.Uint32, 4294967296},
		{catalog.Int32, 2147483648},
	}
	for _, tc := range cases {
		if _, err := Encode(tc.value, tc.dt, 0, HighWordFirst); err == nil {
			t.Errorf("%s %v: expected out-of-range error", tc.dt, tc.value)
		}
	}
}

func TestString(t *testing.T) {
	words, err := Encode("AB12", catalog.String, 4, HighWordFirst)
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	if len(words) != 4 {
		t.Fatalf("string length: got %d words, want 4", len(words))
	}
	if words[0] != 0x4142 || words[1] != 0x3132 {
		t.Fatalf("string packing: got %04X %04X", words[0], words[1])
	}
	// Remainder padded with spaces.
	if words[2] != 0x2020 || words[3] != 0x2020 {
		t.Fatalf("string padding: got %04X %04X, want 2020 2020", words[2], words[3])
	}

	got, err := Decode(words, catalog.String, HighWordFirst)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if got.(string) != "AB12" {
		t.Fatalf("string round trip: got %q, want %q", got, "AB12")
	}
}

func TestStringStopsAtNul(t *testing.T) {
	got, err := Decode([]uint16{0x4F4B, 0x0041}, catalog.String, HighWordFirst)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if got.(string) != "OK" {
		t.Fatalf("NUL terminator: got %q, want %q", got, "OK")
	}
}

func TestScaleInverse(t *testing.T) {
	cases := []struct {
		x, scale, offset float64
	}{
		{50, 100, 0},
		{1234, 0.1, -40},
		{-17, 2.5, 3},
		{0, 0.01, 100},
	}
	for _, tc := range cases {
		back := ToRaw(ApplyScale(tc.x, tc.scale, tc.offset), tc.scale, tc.offset)
		if math.Abs(back-tc.x) > 1e-9 {
			t.Errorf("scale=%v offset=%v: got %v back, want %v", tc.scale, tc.offset, back, tc.x)
		}
	}
}

func TestDecodeWordCountMismatch(t *testing.T) {
	if _, err := Decode([]uint16{1, 2}, catalog.Uint16, HighWordFirst); err == nil {
		t.Fatal("expected word count error")
	}
	if _, err := Decode([]uint16{1}, catalog.Float32, HighWordFirst); err == nil {
		t.Fatal("expected word count error")
	}
}
