package vm

import (
	"errors"
	"testing"
)

func TestDataRoundTrip(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc(Undefined)
	h.Pin(obj)
	h.Set(obj, "n", FromFloat64(1.5))
	h.Set(obj, "s", h.Intern("hi"))
	h.Set(obj, "t", True)
	h.Set(obj, "nothing", Null)
	nested := h.Alloc(Undefined)
	h.Set(nested, "deep", FromFloat64(2))
	h.Set(obj, "inner", nested)

	raw, err := h.EncodeData(obj)
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}

	back, err := h.DecodeData(raw)
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if v := h.Get(back, "n"); v.Float64() != 1.5 {
		t.Errorf("n = %v", v.Float64())
	}
	if v := h.Get(back, "s"); h.ToString(v) != "hi" {
		t.Errorf("s = %q", h.ToString(v))
	}
	if v := h.Get(back, "t"); v != True {
		t.Errorf("t = %v", v)
	}
	if v := h.Get(back, "nothing"); !v.IsNull() {
		t.Errorf("nothing = %v", v)
	}
	inner := h.Get(back, "inner")
	if v := h.Get(inner, "deep"); v.Float64() != 2 {
		t.Errorf("inner.deep = %v", v.Float64())
	}
}

func TestDataEncodeDeterministic(t *testing.T) {
	h := NewHeap()
	// Same contents inserted in different orders must encode identically;
	// canonical encoding sorts map keys.
	a := h.Alloc(Undefined)
	h.Pin(a)
	h.Set(a, "x", FromFloat64(1))
	h.Set(a, "y", FromFloat64(2))
	b := h.Alloc(Undefined)
	h.Pin(b)
	h.Set(b, "y", FromFloat64(2))
	h.Set(b, "x", FromFloat64(1))

	ra, err := h.EncodeData(a)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := h.EncodeData(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ra) != string(rb) {
		t.Fatal("insertion order leaked into encoding")
	}
}

func TestDataDecodeOrderDeterministic(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc(Undefined)
	h.Pin(obj)
	for _, key := range []string{"zeta", "alpha", "mid", "beta"} {
		h.Set(obj, key, FromFloat64(1))
	}

	raw, err := h.EncodeData(obj)
	if err != nil {
		t.Fatal(err)
	}
	back, err := h.DecodeData(raw)
	if err != nil {
		t.Fatal(err)
	}

	// Decoding goes through a Go map; enumeration order must still be
	// fixed, so decoded objects insert their keys sorted.
	want := []string{"alpha", "beta", "mid", "zeta"}
	got := h.OwnKeys(back)
	if len(got) != len(want) {
		t.Fatalf("keys = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}

func TestDataRejectsCycles(t *testing.T) {
	h := NewHeap()
	a := h.Alloc(Undefined)
	h.Pin(a)
	b := h.Alloc(Undefined)
	h.Set(a, "b", b)
	h.Set(b, "a", a)

	if _, err := h.EncodeData(a); !errors.Is(err, ErrCyclicData) {
		t.Fatalf("EncodeData on a cycle = %v, want ErrCyclicData", err)
	}
}

func TestDataSkipsFunctions(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc(Undefined)
	h.Pin(obj)
	fn := h.NewFunction(&Function{Name: "f", Native: func(in *Interp, this Value, args []Value) (Value, error) {
		return Undefined, nil
	}})
	h.Set(obj, "fn", fn)
	h.Set(obj, "n", FromFloat64(1))

	raw, err := h.EncodeData(obj)
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	back, err := h.DecodeData(raw)
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if v := h.Get(back, "fn"); !v.IsNull() {
		t.Errorf("function encoded as %v, want null", v)
	}
	if v := h.Get(back, "n"); v.Float64() != 1 {
		t.Errorf("n = %v", v.Float64())
	}
}

func TestSharedSubtreeIsNotACycle(t *testing.T) {
	h := NewHeap()
	root := h.Alloc(Undefined)
	h.Pin(root)
	shared := h.Alloc(Undefined)
	h.Set(shared, "v", FromFloat64(9))
	h.Set(root, "left", shared)
	h.Set(root, "right", shared)

	if _, err := h.EncodeData(root); err != nil {
		t.Fatalf("diamond sharing must encode: %v", err)
	}
}
