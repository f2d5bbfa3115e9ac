package vm

import (
	"math"
)

// Value represents a script-visible value using NaN-boxing.
//
// All values are represented as 64-bit IEEE 754 doubles. Non-number values
// are encoded in the NaN (Not-a-Number) space using the quiet NaN prefix
// and tag bits to distinguish types.
//
// Encoding scheme:
//   - Number: native IEEE 754 double (if not a tagged NaN, it's a number)
//   - Object: quiet NaN + tagObject + 48-bit arena handle (index + generation)
//   - String: quiet NaN + tagString + interned string ID
//   - Special: quiet NaN + tagSpecial + special value ID
//     (null/undefined/true/false)
//
// Object payloads are arena handles, never machine addresses: a handle is a
// 32-bit slot index plus a 16-bit generation, stable for the lifetime of
// the object and detectably stale after collection.
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits for handle/id
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	// Tag values (shifted into position)
	tagObject  uint64 = 0x0001000000000000 // arena handle
	tagString  uint64 = 0x0002000000000000 // interned string ID
	tagSpecial uint64 = 0x0003000000000000 // null, undefined, true, false
)

// Special value payloads
const (
	specialNull      uint64 = 0
	specialUndefined uint64 = 1
	specialTrue      uint64 = 2
	specialFalse     uint64 = 3
)

// Pre-defined special values
const (
	Null      Value = Value(nanBits | tagSpecial | specialNull)
	Undefined Value = Value(nanBits | tagSpecial | specialUndefined)
	True      Value = Value(nanBits | tagSpecial | specialTrue)
	False     Value = Value(nanBits | tagSpecial | specialFalse)
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsNumber returns true if v represents a float64 number.
// A value is a number if it's not one of our tagged NaN values; this
// includes regular doubles, infinities, and "real" NaN.
func (v Value) IsNumber() bool {
	bits := uint64(v)
	if (bits & 0x7FF0000000000000) != 0x7FF0000000000000 {
		return true
	}
	mantissa := bits & 0x000FFFFFFFFFFFFF
	if mantissa == 0 {
		// +Inf or -Inf
		return true
	}
	if (bits & nanBits) != nanBits {
		// Signaling NaN, treat as number
		return true
	}
	if bits&tagMask == 0 {
		// Untagged quiet NaN, treat as number
		return true
	}
	return false
}

// IsObject returns true if v holds an arena handle.
func (v Value) IsObject() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagObject)
}

// IsString returns true if v holds an interned string ID.
func (v Value) IsString() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagString)
}

// IsNull returns true if v is the null value.
func (v Value) IsNull() bool { return v == Null }

// IsUndefined returns true if v is the undefined value.
func (v Value) IsUndefined() bool { return v == Undefined }

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool { return v == True || v == False }

// ---------------------------------------------------------------------------
// Number operations
// ---------------------------------------------------------------------------

// Float64 returns v as a float64.
// Panics if v is not a number.
func (v Value) Float64() float64 {
	if !v.IsNumber() {
		panic("Value.Float64: not a number")
	}
	return math.Float64frombits(uint64(v))
}

// FromFloat64 creates a Value from a float64. Real NaN inputs normalize to
// the canonical untagged quiet NaN so they can never alias a tagged value.
func FromFloat64(f float64) Value {
	if math.IsNaN(f) {
		return Value(nanBits)
	}
	return Value(math.Float64bits(f))
}

// ---------------------------------------------------------------------------
// Handle operations
// ---------------------------------------------------------------------------

// handleIndex returns the arena slot index encoded in an object value.
func (v Value) handleIndex() uint32 {
	return uint32(uint64(v) & 0xFFFFFFFF)
}

// handleGen returns the handle generation encoded in an object value.
func (v Value) handleGen() uint16 {
	return uint16((uint64(v) & payloadMask) >> 32)
}

// fromHandle creates an object Value from a slot index and generation.
func fromHandle(index uint32, gen uint16) Value {
	return Value(nanBits | tagObject | uint64(gen)<<32 | uint64(index))
}

// ---------------------------------------------------------------------------
// String operations
// ---------------------------------------------------------------------------

// stringID returns the interned string ID.
// Panics if v is not a string.
func (v Value) stringID() uint32 {
	if !v.IsString() {
		panic("Value.stringID: not a string")
	}
	return uint32(uint64(v) & payloadMask)
}

// fromStringID creates a string Value from an intern table ID.
func fromStringID(id uint32) Value {
	return Value(nanBits | tagString | uint64(id))
}

// ---------------------------------------------------------------------------
// Boolean operations
// ---------------------------------------------------------------------------

// Bool returns v as a bool.
// Panics if v is not true or false.
func (v Value) Bool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	default:
		panic("Value.Bool: not a boolean")
	}
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}
