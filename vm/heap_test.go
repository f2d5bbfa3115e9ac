package vm

import (
	"testing"
)

func TestHeapPropertyOrder(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc(Undefined)
	h.Pin(obj)

	h.Set(obj, "b", FromFloat64(1))
	h.Set(obj, "a", FromFloat64(2))
	h.Set(obj, "c", FromFloat64(3))
	h.Set(obj, "a", FromFloat64(4)) // overwrite keeps position

	keys := h.OwnKeys(obj)
	want := []string{"b", "a", "c"}
	if len(keys) != len(want) {
		t.Fatalf("OwnKeys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("OwnKeys = %v, want %v", keys, want)
		}
	}
	if v := h.Get(obj, "a"); v.Float64() != 4 {
		t.Fatalf("overwritten property = %v", v.Float64())
	}
}

func TestHeapDeleteIdempotent(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc(Undefined)
	h.Pin(obj)
	h.Set(obj, "x", True)

	h.Delete(obj, "x")
	h.Delete(obj, "x")
	h.Delete(obj, "never-existed")

	if h.Has(obj, "x") {
		t.Fatal("x survived delete")
	}
	if len(h.OwnKeys(obj)) != 0 {
		t.Fatal("keys left after delete")
	}
}

func TestHeapPrototypeLookup(t *testing.T) {
	h := NewHeap()
	proto := h.Alloc(Undefined)
	h.Pin(proto)
	h.Set(proto, "shared", FromFloat64(10))
	h.Set(proto, "shadowed", FromFloat64(20))

	obj := h.Alloc(proto)
	h.Pin(obj)
	h.Set(obj, "shadowed", FromFloat64(30))

	if v := h.Get(obj, "shared"); v.Float64() != 10 {
		t.Errorf("inherited = %v, want 10", v.Float64())
	}
	if v := h.Get(obj, "shadowed"); v.Float64() != 30 {
		t.Errorf("own must shadow inherited, got %v", v.Float64())
	}
	if v := h.Get(obj, "missing"); !v.IsUndefined() {
		t.Errorf("missing = %v, want undefined", v)
	}
	if _, ok := h.GetOwn(obj, "shared"); ok {
		t.Error("GetOwn must not walk the prototype chain")
	}
}

func TestHeapCollectUnreferenced(t *testing.T) {
	h := NewHeap()
	root := h.Alloc(Undefined)
	h.Pin(root)

	kept := h.Alloc(Undefined)
	h.Set(root, "kept", kept)
	h.Alloc(Undefined) // garbage
	h.Alloc(Undefined) // garbage

	before := h.Live()
	swept := h.Collect()
	if swept != 2 {
		t.Fatalf("swept %d, want 2 (live before: %d)", swept, before)
	}
	if h.Get(root, "kept") != kept {
		t.Fatal("reachable object lost")
	}
	if len(h.OwnKeys(kept)) != 0 {
		t.Fatal("kept object corrupted")
	}
}

func TestHeapCollectCycle(t *testing.T) {
	h := NewHeap()
	root := h.Alloc(Undefined)
	h.Pin(root)

	a := h.Alloc(Undefined)
	b := h.Alloc(Undefined)
	h.Set(a, "other", b)
	h.Set(b, "other", a)
	h.Set(root, "cycle", a)

	if swept := h.Collect(); swept != 0 {
		t.Fatalf("reachable cycle swept (%d objects)", swept)
	}

	h.Delete(root, "cycle")
	if swept := h.Collect(); swept != 2 {
		t.Fatalf("unreachable cycle: swept %d, want 2", swept)
	}
}

func TestHeapStaleHandle(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc(Undefined)
	h.Set(obj, "x", FromFloat64(1))
	h.Collect()

	// The old handle must resolve to nothing, even after the slot is
	// reused by a new allocation.
	if v := h.Get(obj, "x"); !v.IsUndefined() {
		t.Fatalf("stale read = %v, want undefined", v)
	}
	fresh := h.Alloc(Undefined)
	h.Pin(fresh)
	h.Set(fresh, "x", FromFloat64(99))
	if v := h.Get(obj, "x"); !v.IsUndefined() {
		t.Fatal("stale handle observed a recycled slot")
	}
	h.Set(obj, "x", FromFloat64(7)) // write through stale handle: no-op
	if v := h.Get(fresh, "x"); v.Float64() != 99 {
		t.Fatal("stale write reached a live object")
	}
}

func TestHeapPinPreventsCollection(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc(Undefined)
	h.Pin(obj)
	h.Pin(obj) // nested

	if swept := h.Collect(); swept != 0 {
		t.Fatalf("pinned object swept (%d)", swept)
	}
	h.Unpin(obj)
	if swept := h.Collect(); swept != 0 {
		t.Fatal("object with remaining pin swept")
	}
	h.Unpin(obj)
	if swept := h.Collect(); swept != 1 {
		t.Fatalf("unpinned garbage not swept (swept %d)", swept)
	}
}

func TestHeapAccessors(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc(Undefined)
	h.Pin(obj)
	getter := h.NewFunction(&Function{Name: "get x", Native: func(in *Interp, this Value, args []Value) (Value, error) {
		return FromFloat64(42), nil
	}})
	h.DefineAccessor(obj, "x", getter, Undefined)

	g, ok := h.LookupGetter(obj, "x")
	if !ok || g != getter {
		t.Fatal("getter not found")
	}
	if _, ok := h.LookupSetter(obj, "x"); ok {
		t.Fatal("setter reported where none defined")
	}

	// A plain own property shadows an inherited accessor.
	child := h.Alloc(obj)
	h.Pin(child)
	if _, ok := h.LookupGetter(child, "x"); !ok {
		t.Fatal("inherited accessor not found")
	}
	h.Set(child, "x", FromFloat64(1))
	if _, ok := h.LookupGetter(child, "x"); ok {
		t.Fatal("own plain property must shadow inherited accessor")
	}
}

func TestHeapClosureScopeTraced(t *testing.T) {
	h := NewHeap()
	root := h.Alloc(Undefined)
	h.Pin(root)

	captured := h.Alloc(Undefined)
	h.Set(captured, "n", FromFloat64(5))
	fn := h.NewFunction(&Function{
		Name:  "closure",
		Code:  []byte{byte(OpEnd)},
		Scope: NewScope(captured),
	})
	h.Set(root, "fn", fn)

	if swept := h.Collect(); swept != 0 {
		t.Fatalf("closure-captured scope swept (%d)", swept)
	}
	if v := h.Get(captured, "n"); v.Float64() != 5 {
		t.Fatal("captured scope corrupted")
	}
}
