package vm

import (
	"math"
	"testing"
)

func TestValueNumberRoundTrip(t *testing.T) {
	cases := []float64{0, -0, 1, -1, 3.14159, 1e300, -1e-300, math.Inf(1), math.Inf(-1)}
	for _, f := range cases {
		v := FromFloat64(f)
		if !v.IsNumber() {
			t.Fatalf("FromFloat64(%v): not a number", f)
		}
		if got := v.Float64(); got != f {
			t.Errorf("FromFloat64(%v).Float64() = %v", f, got)
		}
	}
}

func TestValueNaNNormalized(t *testing.T) {
	v := FromFloat64(math.NaN())
	if !v.IsNumber() {
		t.Fatal("NaN must remain a number")
	}
	if !math.IsNaN(v.Float64()) {
		t.Fatal("NaN round trip lost NaN-ness")
	}
	// A signalling-ish NaN payload must not collide with the tag space.
	weird := math.Float64frombits(0x7FF8_0000_0000_00FF)
	if !math.IsNaN(FromFloat64(weird).Float64()) {
		t.Fatal("payload NaN not normalized")
	}
}

func TestValueSpecialsDistinct(t *testing.T) {
	specials := []Value{Null, Undefined, True, False}
	for i, a := range specials {
		for j, b := range specials {
			if (i == j) != (a == b) {
				t.Fatalf("specials %d and %d compare wrong", i, j)
			}
		}
		if a.IsNumber() {
			t.Fatalf("special %d claims to be a number", i)
		}
	}
	if !Null.IsNull() || !Undefined.IsUndefined() || !True.IsBool() || !False.IsBool() {
		t.Fatal("special predicates wrong")
	}
}

func TestValueHandleEncoding(t *testing.T) {
	cases := []struct {
		index uint32
		gen   uint16
	}{
		{0, 0}, {1, 0}, {0, 1}, {123456, 42}, {0xFFFFFFFF, 0xFFFF},
	}
	for _, c := range cases {
		v := fromHandle(c.index, c.gen)
		if !v.IsObject() {
			t.Fatalf("handle (%d,%d): not an object", c.index, c.gen)
		}
		if v.handleIndex() != c.index || v.handleGen() != c.gen {
			t.Errorf("handle (%d,%d) round-tripped to (%d,%d)",
				c.index, c.gen, v.handleIndex(), v.handleGen())
		}
	}
}

func TestValueBool(t *testing.T) {
	if FromBool(true) != True || FromBool(false) != False {
		t.Fatal("FromBool")
	}
	if True.Bool() != true || False.Bool() != false {
		t.Fatal("Bool")
	}
}

func TestInternSameString(t *testing.T) {
	h := NewHeap()
	a := h.Intern("hello")
	b := h.Intern("hello")
	c := h.Intern("world")
	if a != b {
		t.Fatal("same string interned to different values")
	}
	if a == c {
		t.Fatal("different strings interned to same value")
	}
	if h.StringValue(a) != "hello" || h.StringValue(c) != "world" {
		t.Fatal("StringValue round trip")
	}
}
