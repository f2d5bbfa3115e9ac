package vm

import (
	"math"
	"testing"
)

func TestToNumber(t *testing.T) {
	h := NewHeap()
	cases := []struct {
		in   Value
		want float64
	}{
		{FromFloat64(2.5), 2.5},
		{True, 1},
		{False, 0},
		{h.Intern("42"), 42},
		{h.Intern("  -3.5  "), -3.5},
		{h.Intern("1e3"), 1000},
	}
	for _, c := range cases {
		if got := h.ToNumber(c.in); got != c.want {
			t.Errorf("ToNumber(%v) = %v, want %v", c.in, got, c.want)
		}
	}
	for _, v := range []Value{h.Intern("abc"), h.Intern(""), Null, Undefined, h.Alloc(Undefined)} {
		if got := h.ToNumber(v); !math.IsNaN(got) {
			t.Errorf("ToNumber(%v) = %v, want NaN", v, got)
		}
	}
}

func TestToString(t *testing.T) {
	h := NewHeap()
	cases := []struct {
		in   Value
		want string
	}{
		{FromFloat64(5), "5"},
		{FromFloat64(-0.5), "-0.5"},
		{FromFloat64(1e21), "1e+21"},
		{FromFloat64(math.NaN()), "NaN"},
		{FromFloat64(math.Inf(1)), "Infinity"},
		{FromFloat64(math.Inf(-1)), "-Infinity"},
		{True, "true"},
		{False, "false"},
		{Null, "null"},
		{Undefined, "undefined"},
		{h.Intern("hi"), "hi"},
		{h.Alloc(Undefined), "[object Object]"},
	}
	for _, c := range cases {
		if got := h.ToString(c.in); got != c.want {
			t.Errorf("ToString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	h := NewHeap()
	falsy := []Value{False, FromFloat64(0), FromFloat64(math.NaN()), h.Intern(""), Null, Undefined}
	for _, v := range falsy {
		if h.Truthy(v) {
			t.Errorf("Truthy(%v) = true, want false", v)
		}
	}
	truthy := []Value{True, FromFloat64(1), FromFloat64(-1), h.Intern("0"), h.Alloc(Undefined)}
	for _, v := range truthy {
		if !h.Truthy(v) {
			t.Errorf("Truthy(%v) = false, want true", v)
		}
	}
}

func TestEquals(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc(Undefined)
	other := h.Alloc(Undefined)
	nan := FromFloat64(math.NaN())

	cases := []struct {
		a, b Value
		want bool
	}{
		{FromFloat64(1), FromFloat64(1), true},
		{FromFloat64(1), h.Intern("1"), true},
		{True, FromFloat64(1), true},
		{Null, Undefined, true},
		{Undefined, Null, true},
		{nan, nan, false},
		{obj, obj, true},
		{obj, other, false},
		{obj, h.Intern("[object Object]"), false},
		{h.Intern("a"), h.Intern("b"), false},
		{h.Intern("1"), h.Intern("1.0"), false}, // strings compare as strings, never numerically
		{h.Intern("abc"), h.Intern("abc"), true},
		{h.Intern("1.0"), FromFloat64(1), true},
	}
	for _, c := range cases {
		if got := h.Equals(c.a, c.b); got != c.want {
			t.Errorf("Equals(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}

	if h.StrictEquals(FromFloat64(1), h.Intern("1")) {
		t.Error("StrictEquals must not coerce")
	}
	if !h.StrictEquals(FromFloat64(1), FromFloat64(1)) {
		t.Error("StrictEquals on equal numbers")
	}
}

func TestTypeOf(t *testing.T) {
	h := NewHeap()
	fn := h.NewFunction(&Function{Name: "f", Native: func(in *Interp, this Value, args []Value) (Value, error) {
		return Undefined, nil
	}})
	cases := []struct {
		in   Value
		want string
	}{
		{FromFloat64(1), "number"},
		{h.Intern("s"), "string"},
		{True, "boolean"},
		{Null, "null"},
		{Undefined, "undefined"},
		{fn, "function"},
		{h.Alloc(Undefined), "object"},
	}
	for _, c := range cases {
		if got := h.TypeOf(c.in); got != c.want {
			t.Errorf("TypeOf(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
