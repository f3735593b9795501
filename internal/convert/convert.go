// Package convert translates between raw 16-bit register words and typed
// Go values, and applies the linear scale/offset transform between raw
// device values and caller-facing engineering values.
package convert

import (
	"fmt"
	"math"
	"strings"

	"github.com/TacoronteRiveroCristian/ModbusController/catalog"
)

// WordOrder selects how two words combine into one 32-bit value. It is a
// transport-level constant, not a per-register setting.
type WordOrder int

const (
	// HighWordFirst places the most significant word at the lower address.
	HighWordFirst WordOrder = iota
	// LowWordFirst places the least significant word at the lower address.
	LowWordFirst
)

// Numeric ranges for encode validation.
const (
	maxUint16 = 0xFFFF
	minInt16  = -32768
	maxInt16  = 32767
	maxUint32 = 0xFFFFFFFF
	minInt32  = -2147483648
	maxInt32  = 2147483647
)

// Decode converts raw words into a typed value: float64 for all numeric
// types (float64 represents every 16/32-bit value exactly), string for
// String registers.
func Decode(words []uint16, dt catalog.DataType, order WordOrder) (any, error) {
	switch dt {
	case catalog.Uint16:
		if len(words) != 1 {
			return nil, wordCountError(dt, 1, len(words))
		}
		return float64(words[0]), nil

	case catalog.Int16:
		if len(words) != 1 {
			return nil, wordCountError(dt, 1, len(words))
		}
		return float64(int16(words[0])), nil

	case catalog.Uint32:
		v, err := combine(words, dt, order)
		if err != nil {
			return nil, err
		}
		return float64(v), nil

	case catalog.Int32:
		v, err := combine(words, dt, order)
		if err != nil {
			return nil, err
		}
		return float64(int32(v)), nil

	case catalog.Float32:
		v, err := combine(words, dt, order)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(v)), nil

	case catalog.String:
		if len(words) == 0 {
			return nil, fmt.Errorf("convert: string registers need at least one word")
		}
		return decodeString(words), nil
	}
	return nil, fmt.Errorf("convert: unsupported data type %q", dt)
}

// Encode converts a typed value into raw words. length is the declared
// word count for String registers and is ignored otherwise. Floating
// point inputs for integer types are rounded to nearest; values outside
// the type's representable range fail.
func Encode(value any, dt catalog.DataType, length uint16, order WordOrder) ([]uint16, error) {
	if dt == catalog.String {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("convert: value %v is not a string", value)
		}
		return encodeString(s, length)
	}

	f, err := Numeric(value)
	if err != nil {
		return nil, err
	}

	switch dt {
	case catalog.Uint16:
		n := math.Round(f)
		if n < 0 || n > maxUint16 {
			return nil, rangeError(value, dt, 0, maxUint16)
		}
		return []uint16{uint16(n)}, nil

	case catalog.Int16:
		n := math.Round(f)
		if n < minInt16 || n > maxInt16 {
			return nil, rangeError(value, dt, minInt16, maxInt16)
		}
		return []uint16{uint16(int16(n))}, nil

	case catalog.Uint32:
		n := math.Round(f)
		if n < 0 || n > maxUint32 {
			return nil, rangeError(value, dt, 0, maxUint32)
		}
		return split(uint32(n), order), nil

	case catalog.Int32:
		n := math.Round(f)
		if n < minInt32 || n > maxInt32 {
			return nil, rangeError(value, dt, minInt32, maxInt32)
		}
		return split(uint32(int32(n)), order), nil

	case catalog.Float32:
		return split(math.Float32bits(float32(f)), order), nil
	}
	return nil, fmt.Errorf("convert: unsupported data type %q", dt)
}

// ApplyScale maps a raw device value to the caller-facing value.
func ApplyScale(raw, scale, offset float64) float64 {
	return raw*scale + offset
}

// ToRaw is the inverse of ApplyScale. scale is never zero: the catalog
// rejects zero scale factors at construction.
func ToRaw(user, scale, offset float64) float64 {
	return (user - offset) / scale
}

func combine(words []uint16, dt catalog.DataType, order WordOrder) (uint32, error) {
	if len(words) != 2 {
		return 0, wordCountError(dt, 2, len(words))
	}
	if order == HighWordFirst {
		return uint32(words[0])<<16 | uint32(words[1]), nil
	}
	return uint32(words[1])<<16 | uint32(words[0]), nil
}

func split(v uint32, order WordOrder) []uint16 {
	hi := uint16(v >> 16)
	lo := uint16(v & 0xFFFF)
	if order == HighWordFirst {
		return []uint16{hi, lo}
	}
	return []uint16{lo, hi}
}

// decodeString unpacks two ASCII bytes per word, high byte first,
// stopping at the first NUL and trimming trailing padding.
func decodeString(words []uint16) string {
	buf := make([]byte, 0, len(words)*2)
	for _, w := range words {
		buf = append(buf, byte(w>>8), byte(w))
	}
	if i := strings.IndexByte(string(buf), 0); i >= 0 {
		buf = buf[:i]
	}
	return strings.TrimRight(string(buf), " ")
}

// encodeString packs the string two bytes per word, padding with spaces
// up to the declared word length. Longer strings are truncated.
func encodeString(s string, length uint16) ([]uint16, error) {
	if length == 0 {
		return nil, fmt.Errorf("convert: string registers need a declared length")
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return nil, fmt.Errorf("convert: string value contains non-ASCII byte 0x%02X", s[i])
		}
	}

	target := int(length) * 2
	b := []byte(s)
	if len(b) > target {
		b = b[:target]
	}
	for len(b) < target {
		b = append(b, ' ')
	}

	words := make([]uint16, length)
	for i := range words {
		words[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return words, nil
}

// Numeric coerces any supported numeric input to float64.
func Numeric(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	}
	return 0, fmt.Errorf("convert: value %v (%T) is not numeric", value, value)
}

func wordCountError(dt catalog.DataType, want, got int) error {
	return fmt.Errorf("convert: %s needs %d word(s), got %d", dt, want, got)
}

func rangeError(value any, dt catalog.DataType, lo, hi float64) error {
	return fmt.Errorf("convert: value %v out of range for %s (%.0f..%.0f)", value, dt, lo, hi)
}
