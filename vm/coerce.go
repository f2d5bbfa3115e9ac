package vm

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Dynamic type coercion
//
// The script language is duck typed: arithmetic and comparison coerce
// their operands at run time. Numbers are IEEE-754 doubles throughout;
// string-to-number parse failures yield NaN, never an error.
// ---------------------------------------------------------------------------

// ToNumber coerces a value to a float64.
func (h *Heap) ToNumber(v Value) float64 {
	switch {
	case v.IsNumber():
		return v.Float64()
	case v == True:
		return 1
	case v == False:
		return 0
	case v.IsString():
		s := strings.TrimSpace(h.StringValue(v))
		if s == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		// null, undefined, and plain objects
		return math.NaN()
	}
}

// ToString coerces a value to a string.
func (h *Heap) ToString(v Value) string {
	switch {
	case v.IsString():
		return h.StringValue(v)
	case v.IsNumber():
		return formatNumber(v.Float64())
	case v == True:
		return "true"
	case v == False:
		return "false"
	case v.IsNull():
		return "null"
	case v.IsUndefined():
		return "undefined"
	case v.IsObject():
		if d := h.DisplayOf(v); d != nil {
			return d.Path()
		}
		if h.FunctionOf(v) != nil {
			return "[type Function]"
		}
		return "[object Object]"
	default:
		return "undefined"
	}
}

// formatNumber renders a double the way the original player's trace output
// does: integral values without a fractional part or exponent.
func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Truthy reports whether a value is considered true in conditionals:
// false, NaN, ±0, the empty string, null, and undefined are falsy.
func (h *Heap) Truthy(v Value) bool {
	switch {
	case v == False, v.IsNull(), v.IsUndefined():
		return false
	case v == True:
		return true
	case v.IsNumber():
		f := v.Float64()
		return f != 0 && !math.IsNaN(f)
	case v.IsString():
		return h.StringValue(v) != ""
	default:
		return true
	}
}

// Equals implements abstract (coercing) equality: null and undefined are
// mutually equal, numbers and strings cross-coerce numerically, booleans
// coerce to numbers, and objects compare by handle identity.
func (h *Heap) Equals(a, b Value) bool {
	switch {
	case a == b:
		// Identical encodings: same handle, same interned string, same
		// special. Identical number bits too, except NaN.
		if a.IsNumber() {
			return !math.IsNaN(a.Float64())
		}
		return true
	case (a.IsNull() || a.IsUndefined()) && (b.IsNull() || b.IsUndefined()):
		return true
	case a.IsObject() || b.IsObject():
		// Distinct handles are never equal; an object never coerces equal
		// to a primitive here.
		if a.IsObject() && b.IsObject() {
			return false
		}
		return false
	case a.IsString() && b.IsString():
		// Distinct interned IDs mean distinct contents; only one side
		// being a string falls through to numeric comparison.
		return false
	default:
		// Remaining mixed primitives compare numerically.
		fa, fb := h.ToNumber(a), h.ToNumber(b)
		return fa == fb
	}
}

// StrictEquals implements identity equality: same type and same value,
// with no coercion.
func (h *Heap) StrictEquals(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.Float64() == b.Float64()
	}
	if a.IsNumber() != b.IsNumber() {
		return false
	}
	return a == b
}

// TypeOf returns the script-visible type name of a value.
func (h *Heap) TypeOf(v Value) string {
	switch {
	case v.IsNumber():
		return "number"
	case v.IsString():
		return "string"
	case v.IsBool():
		return "boolean"
	case v.IsNull():
		return "null"
	case v.IsUndefined():
		return "undefined"
	case v.IsObject():
		if h.FunctionOf(v) != nil {
			return "function"
		}
		if h.DisplayOf(v) != nil {
			return "movieclip"
		}
		return "object"
	default:
		return "undefined"
	}
}
